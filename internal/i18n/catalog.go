// Package i18n provides the localized labels used in notifications, journal
// notes and CLI output.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// BaseLocale supplies every key missing from another locale.
const BaseLocale = "en"

//go:embed locales/*.yaml
var embeddedLocales embed.FS

type localeFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Labels resolves a label key to display text.
type Labels interface {
	Label(key string) string
}

// Bundle holds the parsed locale files and a matcher over their tags.
type Bundle struct {
	tags     []language.Tag
	messages map[language.Tag]map[string]string
	builder  *catalog.Builder
	matcher  language.Matcher
}

// LoadEmbedded loads the locales shipped with the binary.
func LoadEmbedded() (*Bundle, error) {
	return LoadFromFS(embeddedLocales)
}

// LoadFromFS loads every locales/*.yaml file in fsys.
func LoadFromFS(fsys fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locales: %w", err)
	}
	sort.Strings(paths)

	raw := make(map[language.Tag]map[string]string, len(paths))
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", p, err)
		}
		var file localeFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", p, err)
		}
		name := strings.TrimSuffix(path.Base(p), path.Ext(p))
		if file.Locale != name {
			return nil, fmt.Errorf("locale %s: declared locale %q must match file name", p, file.Locale)
		}
		tag, err := language.Parse(file.Locale)
		if err != nil {
			return nil, fmt.Errorf("locale %s: %w", p, err)
		}
		raw[tag] = file.Messages
	}

	base, ok := raw[language.Make(BaseLocale)]
	if !ok {
		return nil, fmt.Errorf("base locale %s is not defined", BaseLocale)
	}

	b := &Bundle{
		messages: make(map[language.Tag]map[string]string, len(raw)),
		builder:  catalog.NewBuilder(catalog.Fallback(language.Make(BaseLocale))),
	}
	// Base locale first so the matcher falls back to it.
	b.tags = append(b.tags, language.Make(BaseLocale))
	for tag := range raw {
		if tag != language.Make(BaseLocale) {
			b.tags = append(b.tags, tag)
		}
	}
	sort.Slice(b.tags[1:], func(i, j int) bool { return b.tags[i+1].String() < b.tags[j+1].String() })

	for _, tag := range b.tags {
		merged := make(map[string]string, len(base))
		for k, v := range base {
			merged[k] = v
		}
		for k, v := range raw[tag] {
			merged[k] = v
		}
		for k, v := range merged {
			// Catalog entries are format strings; labels are literal text.
			if err := b.builder.SetString(tag, k, strings.ReplaceAll(v, "%", "%%")); err != nil {
				return nil, fmt.Errorf("register %s/%s: %w", tag, k, err)
			}
		}
		b.messages[tag] = merged
	}
	b.matcher = language.NewMatcher(b.tags)
	return b, nil
}

// Locales returns the available locale tags, base locale first.
func (b *Bundle) Locales() []string {
	out := make([]string, len(b.tags))
	for i, t := range b.tags {
		out[i] = t.String()
	}
	return out
}

// Localizer returns labels for the closest available match to locale.
// Unknown or empty locales get the base locale.
func (b *Bundle) Localizer(locale string) *Localizer {
	tag := b.tags[0]
	if want, err := language.Parse(locale); err == nil {
		_, idx, conf := b.matcher.Match(want)
		if conf != language.No {
			tag = b.tags[idx]
		}
	}
	return &Localizer{
		tag:      tag,
		messages: b.messages[tag],
		printer:  message.NewPrinter(tag, message.Catalog(b.builder)),
	}
}

// Localizer renders labels for one locale.
type Localizer struct {
	tag      language.Tag
	messages map[string]string
	printer  *message.Printer
}

// Locale returns the resolved locale tag.
func (l *Localizer) Locale() string {
	return l.tag.String()
}

// Label returns the text for key, or key itself when it is unknown.
func (l *Localizer) Label(key string) string {
	if _, ok := l.messages[key]; !ok {
		return key
	}
	return l.printer.Sprintf(key)
}
