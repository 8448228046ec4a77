package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/curiousdates/pkg/model"
)

var (
	// PanelStyle is the default style for unfocused panels
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.AdaptiveColor{Light: "#D0D0D0", Dark: "#44475A"})

	// FocusedPanelStyle is the style for focused panels
	FocusedPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"})

	// ModalStyle frames overlays (what-if form, admin panel, ask prompt).
	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}).
			Padding(1, 2)
)

// RenderCategoryBadge returns a compact badge for a timeline category.
func RenderCategoryBadge(t Theme, c model.Category) string {
	label := "HIST"
	if c == model.CategoryAlternate {
		label = "WHAT-IF"
	}
	return t.Renderer.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1F29"}).
		Background(t.CategoryColor(c == model.CategoryAlternate)).
		Bold(true).
		Padding(0, 1).
		Render(label)
}

// RenderGeneratedBadge marks timelines that came from the model.
func RenderGeneratedBadge(t Theme) string {
	return t.Renderer.NewStyle().Foreground(t.Alternate).Render("✦")
}
