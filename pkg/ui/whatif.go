package ui

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/vanderheijden86/curiousdates/pkg/model"
)

// Shown when a generation fails, whatever the cause.
const generationFailedMsg = "We encountered a temporal anomaly. Please try a different prompt."

var historicalSuggestions = []string{
	"The history of the Printing Press",
	"The rise and fall of the Samurai",
	"The Industrial Revolution in Britain",
	"The Space Race timeline",
}

var alternateSuggestions = []string{
	"What if the Library of Alexandria never burned?",
	"What if Napoleon won the Battle of Waterloo?",
	"What if electricity was discovered in Ancient Rome?",
	"What if the dinosaurs never went extinct?",
}

// whatIfValues is heap-allocated so the form's bound pointers survive the
// Model being copied by value on every Update.
type whatIfValues struct {
	category string
	prompt   string
}

// WhatIfModal collects a prompt and category for timeline generation.
type WhatIfModal struct {
	form   *huh.Form
	values *whatIfValues
	theme  Theme
}

// NewWhatIfModal builds the generator form.
func NewWhatIfModal(theme Theme) WhatIfModal {
	v := &whatIfValues{category: string(model.CategoryHistorical)}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Timeline Generator").
				Description("Create a custom timeline using AI.").
				Options(
					huh.NewOption("Real History", string(model.CategoryHistorical)),
					huh.NewOption("What If?", string(model.CategoryAlternate)),
				).
				Value(&v.category),
			huh.NewInput().
				TitleFunc(func() string {
					if v.category == string(model.CategoryAlternate) {
						return "What if..."
					}
					return "Topic"
				}, &v.category).
				PlaceholderFunc(func() string {
					if v.category == string(model.CategoryAlternate) {
						return "e.g. What if the internet was invented in 1950?"
					}
					return "e.g. The history of Aviation"
				}, &v.category).
				SuggestionsFunc(func() []string {
					return Suggestions(model.Category(v.category))
				}, &v.category).
				Value(&v.prompt).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("enter a topic")
					}
					return nil
				}),
		),
	).WithTheme(huh.ThemeDracula()).WithShowHelp(true)

	return WhatIfModal{form: form, values: v, theme: theme}
}

// Suggestions returns the canned prompts for a category.
func Suggestions(c model.Category) []string {
	if c == model.CategoryAlternate {
		return alternateSuggestions
	}
	return historicalSuggestions
}

func (w WhatIfModal) Init() tea.Cmd {
	return w.form.Init()
}

// Update forwards every message to the form; huh drives its own field
// navigation through internal message types.
func (w WhatIfModal) Update(msg tea.Msg) (WhatIfModal, tea.Cmd) {
	f, cmd := w.form.Update(msg)
	if form, ok := f.(*huh.Form); ok {
		w.form = form
	}
	return w, cmd
}

// Completed reports whether the form was submitted.
func (w WhatIfModal) Completed() bool { return w.form.State == huh.StateCompleted }

// Aborted reports whether the form was cancelled from inside huh.
func (w WhatIfModal) Aborted() bool { return w.form.State == huh.StateAborted }

// Prompt is the trimmed topic.
func (w WhatIfModal) Prompt() string { return strings.TrimSpace(w.values.prompt) }

// Category is the chosen category.
func (w WhatIfModal) Category() model.Category { return model.Category(w.values.category) }

func (w WhatIfModal) View(width int) string {
	body := w.form.View()
	hint := w.theme.MutedText.Render("esc cancel")
	return ModalStyle.Width(min(max(width-4, 40), 80)).Render(body + "\n" + hint)
}
