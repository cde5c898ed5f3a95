package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/keewee/gamepadctl/internal/version"
)

// AppName is shown in the dashboard title bar
const AppName = "GAMEPADCTL"

// AppVersion returns the application version from the centralized version package
func AppVersion() string {
	return version.Version
}

// Color palette
var (
	PrimaryColor   = lipgloss.Color("#7D56F4") // Purple
	SecondaryColor = lipgloss.Color("#43BF6D") // Green
	WarningColor   = lipgloss.Color("#FFA500") // Orange
	ErrorColor     = lipgloss.Color("#FF5555") // Red
	TextColor      = lipgloss.Color("#FFFFFF") // White
	SubtleColor    = lipgloss.Color("#626262") // Gray
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	VersionStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	// SectionStyle is for the "Connected" and "Paired" headings
	SectionStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Bold(true).
			MarginTop(1)

	// ActiveSectionStyle marks the section that has the cursor
	ActiveSectionStyle = SectionStyle.
				Foreground(PrimaryColor)

	RowStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			Foreground(TextColor)

	SelectedRowStyle = lipgloss.NewStyle().
				Foreground(SecondaryColor).
				Bold(true)

	EmptyStyle = lipgloss.NewStyle().
			PaddingLeft(4).
			Foreground(SubtleColor).
			Italic(true)

	BatteryStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	ReconnectingStyle = lipgloss.NewStyle().
				Foreground(WarningColor)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)

	NoticeStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			MarginTop(1)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true).
			MarginTop(1)

	PromptStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true).
			MarginTop(1)

	HelpStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			MarginTop(1)

	// ContainerStyle frames the whole dashboard
	ContainerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(PrimaryColor).
			Padding(0, 2)
)
