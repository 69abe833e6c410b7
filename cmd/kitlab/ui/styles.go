// Package ui provides the visual styling for the kitlab terminal client.
package ui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Lab palette
var (
	// Light Mode Colors (Default)
	LightBackground = lipgloss.Color("#f7f7f5")
	LightForeground = lipgloss.Color("#1f2933")
	LightPrimary    = lipgloss.Color("#0d6efd") // Bootstrap primary, as on the web client
	LightAccent     = lipgloss.Color("#212529")
	LightMuted      = lipgloss.Color("#6c757d")
	LightBorder     = lipgloss.Color("#dee2e6")
	LightUserBubble = lipgloss.Color("#0d6efd")
	LightAIBubble   = lipgloss.Color("#ffffff")

	// Dark Mode Colors
	DarkBackground = lipgloss.Color("#16181d")
	DarkForeground = lipgloss.Color("#e9ecef")
	DarkPrimary    = lipgloss.Color("#6ea8fe")
	DarkAccent     = lipgloss.Color("#f8f9fa")
	DarkMuted      = lipgloss.Color("#adb5bd")
	DarkBorder     = lipgloss.Color("#343a40")
	DarkUserBubble = lipgloss.Color("#1f4fa3")
	DarkAIBubble   = lipgloss.Color("#23262d")

	// Semantic Colors (same in both modes)
	Destructive = lipgloss.Color("#dc3545")
	Success     = lipgloss.Color("#198754")
	Warning     = lipgloss.Color("#ffc107")
)

// Theme holds the current color scheme
type Theme struct {
	Background lipgloss.Color
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	UserBubble lipgloss.Color
	AIBubble   lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light mode theme
func LightTheme() Theme {
	return Theme{
		Background: LightBackground,
		Foreground: LightForeground,
		Primary:    LightPrimary,
		Accent:     LightAccent,
		Muted:      LightMuted,
		Border:     LightBorder,
		UserBubble: LightUserBubble,
		AIBubble:   LightAIBubble,
	}
}

// DarkTheme returns the dark mode theme
func DarkTheme() Theme {
	return Theme{
		Background: DarkBackground,
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Accent:     DarkAccent,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		UserBubble: DarkUserBubble,
		AIBubble:   DarkAIBubble,
		IsDark:     true,
	}
}

// ThemeByName resolves a configured theme. "auto" and unknown names detect.
func ThemeByName(name string) Theme {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "light":
		return LightTheme()
	case "dark":
		return DarkTheme()
	}
	return DetectTheme()
}

// DetectTheme auto-detects based on terminal or returns light mode
func DetectTheme() Theme {
	// Format is usually "foreground;background"
	if parts := strings.Split(os.Getenv("COLORFGBG"), ";"); len(parts) == 2 {
		// 0-6 and 8 (dark grey) are likely dark backgrounds
		if bgIdx, err := strconv.Atoi(parts[1]); err == nil {
			if (bgIdx >= 0 && bgIdx <= 6) || bgIdx == 8 {
				return DarkTheme()
			}
		}
	}
	return LightTheme()
}

// Styles holds all the styled components
type Styles struct {
	Theme Theme

	// Layout
	Header  lipgloss.Style
	Footer  lipgloss.Style
	Sidebar lipgloss.Style

	// Text
	Title   lipgloss.Style
	Body    lipgloss.Style
	Muted   lipgloss.Style
	Section lipgloss.Style

	// Messages
	UserMessage lipgloss.Style
	AIMessage   lipgloss.Style
	RoleLabel   lipgloss.Style

	// Kit
	Tile  lipgloss.Style
	Price lipgloss.Style
	Link  lipgloss.Style
	Badge lipgloss.Style
	Pro   lipgloss.Style
	Con   lipgloss.Style

	// Status
	Error   lipgloss.Style
	Spinner lipgloss.Style
	Prompt  lipgloss.Style
}

// NewStyles creates a new Styles instance with the given theme
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,

		Header: lipgloss.NewStyle().
			Background(theme.Accent).
			Foreground(theme.Background).
			Padding(0, 2).
			Bold(true),

		Footer: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 2),

		Sidebar: lipgloss.NewStyle().
			BorderRight(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(theme.Border).
			PaddingRight(1),

		Title: lipgloss.NewStyle().
			Foreground(theme.Accent).
			Bold(true),

		Body: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Section: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Bold(true).
			MarginTop(1),

		UserMessage: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			Background(theme.UserBubble).
			Padding(0, 1),

		AIMessage: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			PaddingLeft(1).
			BorderLeft(true).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(theme.Primary),

		RoleLabel: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Italic(true),

		Tile: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		Price: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		Link: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Underline(true),

		Badge: lipgloss.NewStyle().
			Background(theme.Primary).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 1).
			Bold(true),

		Pro: lipgloss.NewStyle().
			Foreground(Success),

		Con: lipgloss.NewStyle().
			Foreground(Destructive),

		Error: lipgloss.NewStyle().
			Foreground(Destructive).
			Bold(true),

		Spinner: lipgloss.NewStyle().
			Foreground(theme.Primary),

		Prompt: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),
	}
}

// DefaultStyles returns styles for the detected theme
func DefaultStyles() Styles {
	return NewStyles(DetectTheme())
}

// RenderDivider returns a horizontal divider
func (s Styles) RenderDivider(width int) string {
	if width < 0 {
		width = 0
	}
	return s.Muted.Render(strings.Repeat("─", width))
}
