package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"todoblock/internal/client"
	"todoblock/internal/model"
)

func (m listModel) View() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	if groups := m.renderGroups(); groups != "" {
		b.WriteString(groups)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.renderRows())

	switch m.mode {
	case modeForm:
		b.WriteString("\n\n")
		b.WriteString(m.renderForm())
	case modeConfirm:
		b.WriteString("\n\n")
		b.WriteString(m.renderConfirm())
	}

	if m.errMsg != "" {
		b.WriteString("\n\n")
		b.WriteString(styleError().Render(truncateToWidth(m.errMsg, m.width)))
	}
	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m listModel) renderHeader() string {
	title := styleHeading().Render(m.loc.String("pluginname"))
	var flags []string
	if !m.vm.IncludeHidden {
		flags = append(flags, m.loc.String("hidecompleted"))
	}
	if m.vm.CurrentGroup != model.GroupNone {
		flags = append(flags, m.loc.GroupLabel(m.vm.CurrentGroup))
	}
	if len(flags) == 0 {
		return title
	}
	return title + "  " + styleMuted().Render("["+strings.Join(flags, ", ")+"]")
}

func (m listModel) renderGroups() string {
	var parts []string
	for _, g := range m.vm.ActiveGroups {
		if g.HideOnLoad {
			continue
		}
		label := fmt.Sprintf("%d %s", g.GroupID, g.Label)
		if g.GroupID != model.GroupNone {
			label = groupStar(g.GroupID) + " " + label
		}
		if g.GroupID != model.GroupNone && g.GroupID == m.vm.CurrentGroup {
			label = styleSelected().Render(label)
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, "  ")
}

func (m listModel) renderRows() string {
	if len(m.rows) == 0 {
		return styleMuted().Render(m.loc.String("empty"))
	}
	lines := make([]string, 0, len(m.rows))
	for i, r := range m.rows {
		if r.item == nil {
			h := styleBucket(r.overdue, r.today).Render(r.heading)
			switch {
			case r.overdue:
				h += " " + styleMuted().Render(m.loc.String("overdue"))
			case r.today:
				h += " " + styleMuted().Render(m.loc.String("today"))
			}
			if len(lines) > 0 {
				lines = append(lines, "")
			}
			lines = append(lines, h)
			continue
		}
		lines = append(lines, m.renderItem(*r.item, i == m.cursor))
	}
	return strings.Join(lines, "\n")
}

func (m listModel) renderItem(it model.Item, selected bool) string {
	box := "[ ]"
	if it.Done {
		box = "[x]"
	}
	pin := " "
	if it.Pinned {
		pin = "^"
	}
	prefix := fmt.Sprintf("  %s %s %s ", box, pin, groupStar(it.GroupID))
	text := truncateToWidth(it.Text, m.width-xansi.StringWidth(prefix))
	switch {
	case selected:
		text = styleSelected().Render(text)
	case it.Done:
		text = styleDone().Render(text)
	}
	return prefix + text
}

func (m listModel) renderForm() string {
	title := m.loc.String("additem")
	if m.editID != 0 {
		title = m.loc.String("edititem")
	}
	labels := [fieldCount]string{m.loc.String("itemname"), m.loc.String("duedate"), m.loc.String("group")}
	w := 0
	for _, l := range labels {
		w = max(w, xansi.StringWidth(l))
	}
	rows := []string{styleHeading().Render(title)}
	for i := range m.fields {
		label := labels[i] + strings.Repeat(" ", w-xansi.StringWidth(labels[i]))
		if i == m.focus {
			label = lipgloss.NewStyle().Bold(true).Render(label)
		} else {
			label = styleMuted().Render(label)
		}
		rows = append(rows, label+"  "+m.fields[i].View())
	}
	rows = append(rows, styleMuted().Render("tab: next field   enter: save   esc: cancel"))
	return renderBox(m.width, strings.Join(rows, "\n"))
}

func (m listModel) renderConfirm() string {
	body := m.loc.Sprintf("confirmdeletecompleted", m.countDone())
	if m.confirm.Method == client.MethodDelete {
		body = m.loc.Sprintf("confirmdelete", m.confirm.Text)
	}
	btn := lipgloss.NewStyle().Padding(0, 1).Foreground(colorSurfaceFg).Background(colorControlBg)
	controls := lipgloss.JoinHorizontal(lipgloss.Top,
		btn.Render("y "+m.loc.String("confirm")), " ", btn.Render("n "+m.loc.String("cancel")))
	return renderBox(m.width, body+"\n\n"+controls)
}

// countDone counts completed items currently in view.
func (m listModel) countDone() int {
	n := 0
	for _, r := range m.rows {
		if r.item != nil && r.item.Done {
			n++
		}
	}
	return n
}

func renderBox(width int, content string) string {
	w := min(max(width-4, 20), 72)
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorAccent).
		Padding(0, 1).
		Width(w).
		Render(content)
}

func truncateToWidth(s string, w int) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
	if w <= 0 {
		return ""
	}
	if xansi.StringWidth(s) <= w {
		return s
	}
	if w <= 1 {
		return "…"
	}
	return xansi.Truncate(s, w, "…")
}
