package tui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"todoblock/internal/model"
)

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

// faintIfDark only fades text on dark backgrounds; faint text on light
// terminals is often illegible.
func faintIfDark(st lipgloss.Style) lipgloss.Style {
	if lipgloss.HasDarkBackground() {
		return st.Faint(true)
	}
	return st
}

var (
	colorMuted      lipgloss.TerminalColor = ac("240", "243")
	colorSelectedBg lipgloss.TerminalColor = ac("#e9e9e9", "#262626")
	colorSelectedFg lipgloss.TerminalColor = ac("235", "255")
	colorSurfaceFg  lipgloss.TerminalColor = ac("235", "252")
	colorControlBg  lipgloss.TerminalColor = ac("252", "235")
	colorAccent     lipgloss.TerminalColor = ac("27", "62")
	colorDanger     lipgloss.TerminalColor = ac("160", "203")
	colorToday      lipgloss.TerminalColor = ac("31", "74")
	colorDone       lipgloss.TerminalColor = ac("245", "241")
)

// groupColors follow the widget's red, orange, green, blue, purple stars.
var groupColors = map[model.GroupID]lipgloss.TerminalColor{
	1: ac("160", "203"),
	2: ac("166", "215"),
	3: ac("28", "114"),
	4: ac("27", "75"),
	5: ac("91", "141"),
}

func styleMuted() lipgloss.Style {
	return faintIfDark(lipgloss.NewStyle().Foreground(colorMuted))
}

func styleHeading() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
}

func styleBucket(overdue, today bool) lipgloss.Style {
	st := lipgloss.NewStyle().Bold(true)
	switch {
	case overdue:
		return st.Foreground(colorDanger)
	case today:
		return st.Foreground(colorToday)
	default:
		return st.Foreground(colorSurfaceFg)
	}
}

func styleSelected() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorSelectedFg).Background(colorSelectedBg).Bold(true)
}

func styleDone() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorDone).Strikethrough(true)
}

func styleError() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorDanger).Bold(true)
}

func groupStar(g model.GroupID) string {
	c, ok := groupColors[g]
	if !ok {
		return " "
	}
	return lipgloss.NewStyle().Foreground(c).Render("★")
}

// ApplyColorProfile sets the lipgloss color profile. NO_COLOR or noColor
// force plain output; otherwise the terminal's capabilities decide.
func ApplyColorProfile(noColor bool) {
	if noColor || strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	profile := termenv.ColorProfile()
	if strings.Contains(strings.ToLower(os.Getenv("TERM")), "256color") && profile > termenv.ANSI256 {
		profile = termenv.ANSI256
	}
	lipgloss.SetColorProfile(profile)
}
