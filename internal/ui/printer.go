package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/keewee/gamepadctl/internal/bluez"
	"github.com/keewee/gamepadctl/internal/session"
)

// Printer provides methods for printing UI components to a writer.
// This is the primary way one-shot commands should output styled content.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// Width returns the current terminal width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// SetWidth overrides the detected terminal width
func (p *Printer) SetWidth(width int) *Printer {
	p.width = clampWidth(width)
	return p
}

// Print writes content to the output
func (p *Printer) Print(content string) {
	_, _ = fmt.Fprint(p.out, content)
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

// PrintHeader prints a command header box
func (p *Printer) PrintHeader(title, command string, params ...Param) {
	p.Println(NewHeader(title, command, params...).SetWidth(p.width).Render())
	p.Newline()
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, details ...Param) {
	p.Println(NewSuccessResult(title, details...).SetWidth(p.width).Render())
}

// PrintFailure prints an error result box with troubleshooting tips
func (p *Printer) PrintFailure(title string, err error) {
	p.Println(NewFailureResult(title, err, Troubleshooting(err)).SetWidth(p.width).Render())
}

// PrintWarning prints a warning result box
func (p *Printer) PrintWarning(title string, details ...Param) {
	p.Println(NewWarningResult(title, details...).SetWidth(p.width).Render())
}

// PrintDevices prints the connected and paired lists as tables.
func (p *Printer) PrintDevices(snap session.Snapshot) {
	p.Print(RenderDevices(snap))
}

// PrintDevicesDetailed prints one block per device with every known field.
func (p *Printer) PrintDevicesDetailed(snap session.Snapshot) {
	p.Print(RenderDevicesDetailed(snap))
}

// FormatBattery renders a battery reading the way every view shows it.
func FormatBattery(level *uint8, charging bool) string {
	if level == nil {
		return "unknown"
	}
	s := fmt.Sprintf("%d%%", *level)
	if charging {
		s += " (charging)"
	}
	return s
}

// RenderDevices renders the connected and paired lists as two tables.
func RenderDevices(snap session.Snapshot) string {
	var b strings.Builder

	b.WriteString(TableHeaderStyle.Render(fmt.Sprintf("Connected (%d)", len(snap.Connected))))
	b.WriteString("\n")
	if len(snap.Connected) == 0 {
		b.WriteString(StepPendingStyle.Render("  none"))
		b.WriteString("\n")
	}
	for _, d := range snap.Connected {
		fmt.Fprintf(&b, "  %-17s  %-28s  %s\n", d.Address, d.Name, FormatBattery(d.Battery, d.Charging))
	}

	b.WriteString("\n")
	b.WriteString(TableHeaderStyle.Render(fmt.Sprintf("Paired (%d)", len(snap.Paired))))
	b.WriteString("\n")
	if len(snap.Paired) == 0 {
		b.WriteString(StepPendingStyle.Render("  none"))
		b.WriteString("\n")
	}
	for _, d := range snap.Paired {
		fmt.Fprintf(&b, "  %-17s  %s\n", d.Address, d.Name)
	}
	return b.String()
}

// RenderDevicesDetailed renders one labelled block per device.
func RenderDevicesDetailed(snap session.Snapshot) string {
	connected := make(map[string]session.ConnectedDevice, len(snap.Connected))
	for _, d := range snap.Connected {
		connected[bluez.NormalizeAddress(d.Address)] = d
	}

	var blocks []string
	for _, d := range snap.Paired {
		lines := []string{
			SuccessTitleStyle.Render(d.Name),
			"  Address:   " + d.Address,
		}
		if c, ok := connected[bluez.NormalizeAddress(d.Address)]; ok {
			lines = append(lines,
				"  Connected: yes",
				"  Battery:   "+FormatBattery(c.Battery, c.Charging),
			)
			delete(connected, bluez.NormalizeAddress(d.Address))
		} else {
			lines = append(lines, "  Connected: no")
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}

	// Connected but not paired, e.g. a bonding that has not completed
	for _, d := range snap.Connected {
		if _, ok := connected[bluez.NormalizeAddress(d.Address)]; !ok {
			continue
		}
		blocks = append(blocks, strings.Join([]string{
			WarningTitleStyle.Render(d.Name),
			"  Address:   " + d.Address,
			"  Connected: yes (not paired)",
			"  Battery:   " + FormatBattery(d.Battery, d.Charging),
		}, "\n"))
	}

	if len(blocks) == 0 {
		return StepPendingStyle.Render("No devices") + "\n"
	}
	return strings.Join(blocks, "\n\n") + "\n"
}
