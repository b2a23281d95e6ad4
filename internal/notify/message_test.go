package notify

import (
	"testing"

	"github.com/alexanderramin/hourglass/internal/domain"
	"github.com/alexanderramin/hourglass/internal/i18n"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"a & b", "a &amp; b"},
		{"<b>", "&lt;b&gt;"},
		{"&lt;", "&amp;lt;"},
		{"x < y && y > z", "x &lt; y &amp;&amp; y &gt; z"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Escape(tt.in))
		})
	}
}

func TestEscape_AmpersandsEscapedOnce(t *testing.T) {
	got := Escape("<&>")
	assert.Equal(t, "&lt;&amp;&gt;", got)
	assert.NotContains(t, got, "&amp;lt;")
	assert.NotContains(t, got, "&amp;gt;")
}

func TestExtractMentions(t *testing.T) {
	desc := "@alice please pair with @bob-2 and @alice again; @_nope and @Carol stay quiet"
	assert.Equal(t, []string{"alice", "bob-2"}, ExtractMentions(&desc))
}

func TestExtractMentions_NilAndEmpty(t *testing.T) {
	assert.Nil(t, ExtractMentions(nil))

	none := "no handles here"
	assert.Empty(t, ExtractMentions(&none))
	assert.Empty(t, mentionLine(&none))
}

func TestMentionLine(t *testing.T) {
	desc := "cc @ops_team @dev"
	assert.Equal(t, "\nTo: @ops_team, @dev", mentionLine(&desc))
	assert.Empty(t, mentionLine(nil))
}

func TestLinker_IssueURL(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		protocol string
		want     string
	}{
		{"bare host", "tracker.example.com", "https", "https://tracker.example.com/issues/5"},
		{"with port", "tracker.example.com:3000", "http", "http://tracker.example.com:3000/issues/5"},
		{"port and prefix", "tracker.example.com:3000/pm", "", "http://tracker.example.com:3000/pm/issues/5"},
		{"scheme is ignored", "https://tracker.example.com/pm", "http", "http://tracker.example.com/pm/issues/5"},
		{"localhost", "localhost", "", "http://localhost/issues/5"},
		{"empty host", "", "https", "https:///issues/5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := Linker{HostName: tt.host, Protocol: tt.protocol}
			assert.Equal(t, tt.want, l.IssueURL(5))
		})
	}
}

func englishLabels(t *testing.T) i18n.Labels {
	t.Helper()
	bundle, err := i18n.LoadEmbedded()
	require.NoError(t, err)
	return bundle.Localizer("en")
}

func TestBuildMessage(t *testing.T) {
	desc := "Login fails for <admin> & guests, @bob please look"
	issue := &domain.Issue{
		ID:          7,
		Tracker:     "Bug",
		Subject:     "Fix <login>",
		Description: &desc,
		Project:     &domain.Project{Name: "Ops & Infra"},
		Author:      &domain.User{Login: "ann", Firstname: "Ann", Lastname: "Lee"},
		Status:      &domain.IssueStatus{ID: 1, Name: "New"},
		Priority:    &domain.IssuePriority{ID: 3, Name: "High"},
		DoneRatio:   40,
		AssignedTo:  &domain.User{Login: "bob"},
		Watchers:    []*domain.User{{Login: "bob"}, {Login: "cy", Firstname: "Cy"}},
	}

	p := BuildMessage(issue, "https://tracker.example.com/issues/7", englishLabels(t),
		Sender{Username: "hourglass", Channel: "#dev", IconURL: "https://example.com/icon.png"})

	assert.Equal(t, 1, p.LinkNames)
	assert.Equal(t, "hourglass", p.Username)
	assert.Equal(t, "#dev", p.Channel)
	assert.Equal(t, "https://example.com/icon.png", p.IconURL)
	assert.Equal(t,
		"[Ops &amp; Infra] Ann Lee started work on <https://tracker.example.com/issues/7|Bug #7: Fix &lt;login&gt;>\nTo: @bob",
		p.Text)

	require.Len(t, p.Attachments, 1)
	a := p.Attachments[0]
	assert.Equal(t, "Login fails for &lt;admin&gt; &amp; guests, @bob please look", a.Text)
	assert.Equal(t, []Field{
		{Title: "Status", Value: "New", Short: true},
		{Title: "Priority", Value: "High", Short: true},
		{Title: "% Done", Value: "40", Short: true},
		{Title: "Assignee", Value: "bob", Short: true},
		{Title: "Watcher", Value: "bob, Cy", Short: true},
	}, a.Fields)
}

func TestBuildMessage_SparseIssue(t *testing.T) {
	issue := &domain.Issue{
		ID:      9,
		Tracker: "Task",
		Subject: "Tidy",
		Project: &domain.Project{Name: "Ops"},
		Author:  &domain.User{Login: "ann"},
		Status:  &domain.IssueStatus{ID: 1, Name: "New"},
	}

	p := BuildMessage(issue, "http://h/issues/9", englishLabels(t), Sender{})

	assert.Equal(t, "[Ops] ann started work on <http://h/issues/9|Task #9: Tidy>", p.Text)
	require.Len(t, p.Attachments, 1)
	assert.Empty(t, p.Attachments[0].Text)
	values := make([]string, 0, len(p.Attachments[0].Fields))
	for _, f := range p.Attachments[0].Fields {
		values = append(values, f.Value)
	}
	assert.Equal(t, []string{"New", "", "0", "", ""}, values)
}
