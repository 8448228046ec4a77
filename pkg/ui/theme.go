package ui

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

type Theme struct {
	Renderer *lipgloss.Renderer

	// Colors
	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor

	// Categories
	Historical lipgloss.AdaptiveColor
	Alternate  lipgloss.AdaptiveColor

	// Correlations
	Parallel lipgloss.AdaptiveColor
	Related  lipgloss.AdaptiveColor

	// UI Elements
	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Danger    lipgloss.AdaptiveColor
	Success   lipgloss.AdaptiveColor

	// Styles
	Base     lipgloss.Style
	Selected lipgloss.Style
	Header   lipgloss.Style

	// Pre-computed styles, created once instead of per frame.
	MutedText     lipgloss.Style
	SecondaryText lipgloss.Style
	PrimaryBold   lipgloss.Style
	YearText      lipgloss.Style // year column in event rows
	GapText       lipgloss.Style // "N years later..." markers
	ParallelText  lipgloss.Style
	RelatedText   lipgloss.Style
	ErrorText     lipgloss.Style
}

// DefaultTheme returns the standard Dracula-inspired theme (adaptive).
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"},
		Secondary: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Subtext:   lipgloss.AdaptiveColor{Light: "#666666", Dark: "#BFBFBF"},

		Historical: lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"}, // amber, like old paper
		Alternate:  lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"},

		Parallel: lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"},
		Related:  lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"},

		Border:    lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		Highlight: lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#44475A"},
		Muted:     lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Danger:    lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"},
		Success:   lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"},
	}

	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#F8F8F2"})
	t.Selected = r.NewStyle().
		Background(t.Highlight).
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(t.Primary).
		PaddingLeft(1)
	t.Header = r.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Background(t.Primary).
		Bold(true).
		Padding(0, 1)

	t.MutedText = r.NewStyle().Foreground(t.Muted)
	t.SecondaryText = r.NewStyle().Foreground(t.Secondary)
	t.PrimaryBold = r.NewStyle().Foreground(t.Primary).Bold(true)
	t.YearText = r.NewStyle().Foreground(t.Historical).Bold(true)
	t.GapText = r.NewStyle().Foreground(t.Muted).Italic(true)
	t.ParallelText = r.NewStyle().Foreground(t.Parallel)
	t.RelatedText = r.NewStyle().Foreground(t.Related)
	t.ErrorText = r.NewStyle().Foreground(t.Danger).Bold(true)

	// 16-color terminals render the highlight background as a solid block.
	if TermProfile < colorprofile.ANSI256 {
		t.Selected = t.Selected.UnsetBackground().Bold(true)
	}

	return t
}

// CategoryColor returns the accent for a timeline category.
func (t Theme) CategoryColor(alternate bool) lipgloss.AdaptiveColor {
	if alternate {
		return t.Alternate
	}
	return t.Historical
}

// NewRenderer returns a renderer on stdout, forcing the background mode
// when the configured theme is "dark" or "light".
func NewRenderer(themeName string) *lipgloss.Renderer {
	r := lipgloss.NewRenderer(os.Stdout)
	switch themeName {
	case "dark":
		r.SetHasDarkBackground(true)
	case "light":
		r.SetHasDarkBackground(false)
	}
	return r
}
