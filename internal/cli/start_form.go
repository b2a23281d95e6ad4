package cli

import (
	"github.com/alexanderramin/hourglass/internal/cli/formatter"
	"github.com/alexanderramin/hourglass/internal/domain"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

func hourglassHuhTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(formatter.ColorHeader).Bold(true)
	t.Focused.FocusedButton = lipgloss.NewStyle().Foreground(formatter.ColorFg).Background(formatter.ColorHeader).Padding(0, 1)
	t.Focused.BlurredButton = lipgloss.NewStyle().Foreground(formatter.ColorDim).Padding(0, 1)
	t.Focused.TextInput.Cursor = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.TextInput.Prompt = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.TextInput.Text = lipgloss.NewStyle().Foreground(formatter.ColorFg)
	t.Focused.TextInput.Placeholder = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Focused.Description = lipgloss.NewStyle().Foreground(formatter.ColorDim)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.TextInput.Prompt = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.TextInput.Text = lipgloss.NewStyle().Foreground(formatter.ColorDim)

	return t
}

// startForm collects tracker fields, starting from whatever flags were given.
func startForm(in *startInput) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			idInput("Issue", "Blank for none; the project follows the issue", &in.Issue),
			idInput("Project", "Blank for none or to inherit from the issue", &in.Project),
			idInput("Activity", "Required for booking", &in.Activity),
			huh.NewInput().
				Title("Comments").
				CharLimit(domain.MaxCommentsLength).
				Value(&in.Comments),
			huh.NewConfirm().
				Title("Round the booked duration?").
				Value(&in.Round),
		),
	).WithTheme(hourglassHuhTheme()).WithShowHelp(false)
}

func idInput(title, description string, value *string) *huh.Input {
	return huh.NewInput().
		Title(title).
		Description(description).
		Placeholder("42").
		Value(value).
		Validate(validateOptionalID)
}

func validateOptionalID(s string) error {
	_, err := parseOptionalID("value", s)
	return err
}

func runStartForm(in *startInput) error {
	return startForm(in).Run()
}
