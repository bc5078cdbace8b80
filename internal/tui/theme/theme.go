package theme

import "github.com/charmbracelet/lipgloss"

// Theme defines all colors for the TUI
type Theme struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color

	Text        lipgloss.Color
	TextMuted   lipgloss.Color
	TextInverse lipgloss.Color

	Background          lipgloss.Color
	BackgroundSecondary lipgloss.Color

	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	User    lipgloss.Color

	Border      lipgloss.Color
	BorderFocus lipgloss.Color
}

// Current is the active theme
var Current = Default()

// Default returns the default theme (green accent on dark gray)
func Default() Theme {
	return Theme{
		Primary:   lipgloss.Color("#10A37F"),
		Secondary: lipgloss.Color("#1A7F64"),
		Accent:    lipgloss.Color("#19C37D"),

		Text:        lipgloss.Color("#ECECF1"),
		TextMuted:   lipgloss.Color("#8E8EA0"),
		TextInverse: lipgloss.Color("#202123"),

		Background:          lipgloss.Color("#202123"),
		BackgroundSecondary: lipgloss.Color("#343541"),

		Success: lipgloss.Color("#19C37D"),
		Warning: lipgloss.Color("#F59E0B"),
		Error:   lipgloss.Color("#EF4146"),
		User:    lipgloss.Color("#AB68FF"),

		Border:      lipgloss.Color("#4D4D4F"),
		BorderFocus: lipgloss.Color("#10A37F"),
	}
}

// Light returns a theme for light terminals
func Light() Theme {
	return Theme{
		Primary:             lipgloss.Color("#0E8C6C"),
		Secondary:           lipgloss.Color("#1A7F64"),
		Accent:              lipgloss.Color("#0E8C6C"),
		Text:                lipgloss.Color("#202123"),
		TextMuted:           lipgloss.Color("#6E6E80"),
		TextInverse:         lipgloss.Color("#FFFFFF"),
		Background:          lipgloss.Color("#FFFFFF"),
		BackgroundSecondary: lipgloss.Color("#F7F7F8"),
		Success:             lipgloss.Color("#0E8C6C"),
		Warning:             lipgloss.Color("#B45309"),
		Error:               lipgloss.Color("#D00E17"),
		User:                lipgloss.Color("#7C3AED"),
		Border:              lipgloss.Color("#D9D9E3"),
		BorderFocus:         lipgloss.Color("#0E8C6C"),
	}
}

// Set selects a theme by name ("dark" or "light"). Unknown names keep the
// current theme and return false.
func Set(name string) bool {
	switch name {
	case "", "dark":
		Current = Default()
	case "light":
		Current = Light()
	default:
		return false
	}
	return true
}

// GlamourStyle returns the glamour style matching the current theme
func GlamourStyle() string {
	if Current.Background == Light().Background {
		return "light"
	}
	return "dark"
}
