package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"github.com/keewee/gamepadctl/internal/bluez"
	"github.com/keewee/gamepadctl/internal/ui"
)

// View renders the dashboard
func (m AppModel) View() string {
	var b strings.Builder

	b.WriteString(m.renderTitle())
	b.WriteString("\n")
	b.WriteString(m.renderConnected())
	b.WriteString("\n")
	b.WriteString(m.renderPaired())

	if m.ConfirmingRemove != "" {
		b.WriteString("\n")
		b.WriteString(PromptStyle.Render(fmt.Sprintf("Remove %s? The controller will need pairing mode to come back.",
			m.labelFor(m.ConfirmingRemove))))
	}

	if m.Notice != "" {
		b.WriteString("\n")
		b.WriteString(NoticeStyle.Render(ui.SuccessMarker + " " + m.Notice))
	}

	if m.State.LastError != "" {
		b.WriteString("\n")
		b.WriteString(ErrorStyle.Render("Error: " + m.State.LastError))
	}

	b.WriteString("\n")
	b.WriteString(HelpStyle.Render(m.renderHelp()))

	content := b.String()
	if m.Width > 0 {
		return ContainerStyle.Width(m.Width - 2).Render(content)
	}
	return ContainerStyle.Render(content)
}

func (m AppModel) renderTitle() string {
	title := TitleStyle.Render(AppName)
	if v := AppVersion(); v != "" {
		title += " " + VersionStyle.Render(v)
	}
	if m.Loading {
		title += " " + VersionStyle.Render("loading...")
	}
	return title
}

func (m AppModel) sectionTitle(s Section, label string) string {
	if m.Section == s {
		return ActiveSectionStyle.Render("▸ " + label)
	}
	return SectionStyle.Render("  " + label)
}

func (m AppModel) renderConnected() string {
	lines := []string{m.sectionTitle(SectionConnected, "Connected devices")}
	if len(m.State.Connected) == 0 {
		lines = append(lines, EmptyStyle.Render("No connected devices"))
	}
	for i, dev := range m.State.Connected {
		label := fmt.Sprintf("%s (%s)", dev.Name, dev.Address)
		battery := BatteryStyle.Render(ui.FormatBattery(dev.Battery, dev.Charging))
		lines = append(lines, m.renderRow(SectionConnected, i, label, battery))
	}
	return strings.Join(lines, "\n")
}

func (m AppModel) renderPaired() string {
	lines := []string{m.sectionTitle(SectionPaired, "Paired devices")}
	if len(m.State.Paired) == 0 {
		lines = append(lines, EmptyStyle.Render("No paired devices"))
	}

	edit, editing := m.State.Renaming()
	for i, dev := range m.State.Paired {
		if editing && bluez.SameAddress(edit.Address, dev.Address) {
			lines = append(lines, RowStyle.Render("✎ "+m.RenameInput.View()))
			continue
		}

		label := fmt.Sprintf("%s (%s)", dev.Name, dev.Address)
		status := ""
		if a, ok := m.State.Attempt(dev.Address); ok {
			status = ReconnectingStyle.Render(fmt.Sprintf("%s reconnecting %ds", m.Spinner.View(), a.Remaining))
		}
		lines = append(lines, m.renderRow(SectionPaired, i, label, status))
	}
	return strings.Join(lines, "\n")
}

func (m AppModel) renderRow(s Section, idx int, label, status string) string {
	selected := m.Section == s && m.Cursor == idx
	prefix := "  "
	if selected {
		prefix = "› "
		label = SelectedRowStyle.Render(label)
	}

	row := prefix + label
	if status != "" {
		// Right-hand column
		pad := 44 - lipgloss.Width(prefix+label)
		if pad < 2 {
			pad = 2
		}
		row += strings.Repeat(" ", pad) + status
	}
	return RowStyle.Render(row)
}

func (m AppModel) labelFor(addr string) string {
	for _, p := range m.State.Paired {
		if bluez.SameAddress(p.Address, addr) {
			return fmt.Sprintf("%s (%s)", p.Name, p.Address)
		}
	}
	return addr
}

func (m AppModel) renderHelp() string {
	var km help.KeyMap = m.Keys
	if _, ok := m.State.Renaming(); ok {
		km = m.EditKeys
	} else if m.ConfirmingRemove != "" {
		km = m.ConfirmKeys
	}
	return m.Help.View(km)
}
