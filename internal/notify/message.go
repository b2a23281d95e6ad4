package notify

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/alexanderramin/hourglass/internal/domain"
	"github.com/alexanderramin/hourglass/internal/i18n"
)

// Payload is the incoming-webhook message body.
type Payload struct {
	LinkNames   int          `json:"link_names"`
	Username    string       `json:"username"`
	Channel     string       `json:"channel"`
	IconURL     string       `json:"icon_url"`
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments"`
}

type Attachment struct {
	Text   string  `json:"text,omitempty"`
	Fields []Field `json:"fields"`
}

type Field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// Sender identifies the bot posting the message.
type Sender struct {
	Username string
	Channel  string
	IconURL  string
}

// Escape encodes the three characters the chat service treats as markup.
// Ampersands go first so the entities produced for < and > stay intact.
func Escape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	return strings.ReplaceAll(s, ">", "&gt;")
}

// Chat user names are lowercase letters, digits, dashes and underscores and
// start with a letter or digit.
var mentionPattern = regexp.MustCompile(`@[a-z0-9][a-z0-9_\-]*`)

// ExtractMentions returns the distinct names mentioned in description, in
// first-seen order and without the leading @. A nil description yields nil.
func ExtractMentions(description *string) []string {
	if description == nil {
		return nil
	}
	var names []string
	seen := make(map[string]bool)
	for _, m := range mentionPattern.FindAllString(*description, -1) {
		name := m[1:]
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// mentionLine renders the "To:" line, keeping the @ so the names link.
func mentionLine(description *string) string {
	names := ExtractMentions(description)
	if len(names) == 0 {
		return ""
	}
	return "\nTo: @" + strings.Join(names, ", @")
}

var hostPattern = regexp.MustCompile(`(?i)^(https?://)?(.+?)(:(\d+))?(/.+)?$`)

// Linker builds issue permalinks from the configured host name, which may
// carry a scheme, a port and a path prefix. The scheme in the host name is
// ignored in favour of Protocol.
type Linker struct {
	HostName string
	Protocol string
}

// IssueURL returns the permalink of the issue.
func (l Linker) IssueURL(issueID int64) string {
	protocol := domain.CoalesceStr(l.Protocol, "http")
	m := hostPattern.FindStringSubmatch(l.HostName)
	if m == nil {
		return fmt.Sprintf("%s://%s/issues/%d", protocol, l.HostName, issueID)
	}
	host, port, prefix := m[2], m[4], m[5]
	var b strings.Builder
	b.WriteString(protocol)
	b.WriteString("://")
	b.WriteString(host)
	if port != "" {
		b.WriteString(":")
		b.WriteString(port)
	}
	b.WriteString(prefix)
	b.WriteString("/issues/")
	b.WriteString(strconv.FormatInt(issueID, 10))
	return b.String()
}

// BuildMessage renders the "started work" message for issue.
func BuildMessage(issue *domain.Issue, permalink string, labels i18n.Labels, sender Sender) Payload {
	text := fmt.Sprintf("[%s] %s started work on <%s|%s>%s",
		Escape(issue.Project.String()),
		Escape(issue.Author.String()),
		permalink,
		Escape(issue.String()),
		mentionLine(issue.Description),
	)

	attachment := Attachment{
		Fields: []Field{
			{Title: labels.Label("field_status"), Value: Escape(issue.Status.String()), Short: true},
			{Title: labels.Label("field_priority"), Value: Escape(issue.Priority.String()), Short: true},
			{Title: labels.Label("field_done_ratio"), Value: Escape(strconv.Itoa(issue.DoneRatio)), Short: true},
			{Title: labels.Label("field_assigned_to"), Value: Escape(issue.AssignedTo.String()), Short: true},
			{Title: labels.Label("field_watcher"), Value: Escape(strings.Join(issue.WatcherNames(), ", ")), Short: true},
		},
	}
	if issue.Description != nil {
		attachment.Text = Escape(*issue.Description)
	}

	return Payload{
		LinkNames:   1,
		Username:    sender.Username,
		Channel:     sender.Channel,
		IconURL:     sender.IconURL,
		Text:        text,
		Attachments: []Attachment{attachment},
	}
}
