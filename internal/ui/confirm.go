package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Confirm displays a warning box and asks the user to type answer to
// proceed. Returns true if the user confirmed, false otherwise.
func Confirm(in io.Reader, out io.Writer, title string, warnings []string, answer string) bool {
	width := GetTerminalWidth()

	lines := []string{
		"",
		WarningTitleStyle.Render(fmt.Sprintf("   %s  WARNING  ─  %s", WarningMarker, title)),
		"",
	}
	bulletStyle := lipgloss.NewStyle().Foreground(TextColor)
	for _, warning := range warnings {
		lines = append(lines, bulletStyle.Render("   • "+warning))
	}
	lines = append(lines, "")

	_, _ = fmt.Fprintln(out, ResultBoxStyle(width, WarningColor).Render(strings.Join(lines, "\n")))
	_, _ = fmt.Fprintln(out)

	prompt := fmt.Sprintf("To proceed, type %q and press Enter: ", answer)
	_, _ = fmt.Fprint(out, WarningTitleStyle.Render(prompt))

	input, err := bufio.NewReader(in).ReadString('\n')
	_, _ = fmt.Fprintln(out)
	if err != nil && input == "" {
		return false
	}

	if strings.EqualFold(strings.TrimSpace(input), answer) {
		return true
	}

	_, _ = fmt.Fprintln(out, StepPendingStyle.Render("  Operation cancelled."))
	_, _ = fmt.Fprintln(out)
	return false
}

// ConfirmRemoval asks before the daemon forgets a device.
func ConfirmRemoval(in io.Reader, out io.Writer, address, name string) bool {
	label := address
	if name != "" && name != address {
		label = fmt.Sprintf("%s (%s)", name, address)
	}
	return Confirm(in, out,
		"REMOVE DEVICE",
		[]string{
			"The Bluetooth daemon will forget " + label,
			"The controller must be put in pairing mode to use it again",
		},
		"yes",
	)
}
