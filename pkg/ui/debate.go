package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/vanderheijden86/curiousdates/pkg/model"
)

// DebateView shows a generated debate about one event, rendered as markdown.
type DebateView struct {
	event   model.TimelineEvent
	data    *model.DebateData
	err     error
	loading bool

	vp         viewport.Model
	mdRenderer *glamour.TermRenderer
	wrap       int
	theme      Theme
}

// NewDebateView creates a debate view that is waiting for its data.
func NewDebateView(ev model.TimelineEvent, theme Theme) DebateView {
	return DebateView{
		event:   ev,
		loading: true,
		vp:      viewport.New(80, 20),
		theme:   theme,
	}
}

// Event is the event under debate.
func (d DebateView) Event() model.TimelineEvent { return d.event }

// Loading reports whether the debate is still being generated.
func (d DebateView) Loading() bool { return d.loading }

// Data is the generated debate, nil while loading or after an error.
func (d DebateView) Data() *model.DebateData { return d.data }

// SetData stores the generation result and re-renders the content.
func (d *DebateView) SetData(data *model.DebateData, err error) {
	d.loading = false
	d.data = data
	d.err = err
	d.render()
}

// SetSize resizes the viewport. The markdown renderer is rebuilt only when
// the wrap width changes.
func (d *DebateView) SetSize(width, height int) {
	d.vp.Width = max(width, 20)
	d.vp.Height = max(height, 5)
	if wrap := max(width-4, 20); wrap != d.wrap || d.mdRenderer == nil {
		d.wrap = wrap
		d.mdRenderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wrap),
		)
	}
	d.render()
}

// Question returns the n-th (1-based) suggested question.
func (d DebateView) Question(n int) (string, bool) {
	if d.data == nil || n < 1 || n > len(d.data.Questions) {
		return "", false
	}
	return d.data.Questions[n-1], true
}

func (d *DebateView) render() {
	if d.loading {
		return
	}
	var md string
	if d.err != nil {
		md = fmt.Sprintf("# %s\n\nThe debate could not be generated: %v\n", d.event.Title, d.err)
	} else {
		md = debateMarkdown(d.data)
	}
	if d.mdRenderer != nil {
		if out, err := d.mdRenderer.Render(md); err == nil {
			md = out
		}
	}
	d.vp.SetContent(md)
	d.vp.GotoTop()
}

// Update scrolls the viewport.
func (d DebateView) Update(msg tea.Msg) (DebateView, tea.Cmd) {
	var cmd tea.Cmd
	d.vp, cmd = d.vp.Update(msg)
	return d, cmd
}

func (d DebateView) View(spinnerFrame string) string {
	t := d.theme
	header := t.Header.Render("Debate") + " " + t.PrimaryBold.Render(d.event.Title) + " " + t.YearText.Render(d.event.Year)
	if d.loading {
		return header + "\n\n" + spinnerFrame + " " + t.MutedText.Render("Summoning voices from the past...")
	}
	footer := t.MutedText.Render("↑/↓ scroll • 1-9 ask a question in chat • c chat • esc back")
	return header + "\n" + d.vp.View() + "\n" + footer
}

// debateMarkdown lays a debate out as a markdown document.
func debateMarkdown(d *model.DebateData) string {
	if d == nil {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", d.Topic)

	if len(d.Perspectives) > 0 {
		sb.WriteString("## Perspectives\n\n")
		for _, p := range d.Perspectives {
			fmt.Fprintf(&sb, "**%s** (*%s*): %s\n\n", p.Name, p.Role, p.Summary)
			if p.Argument != "" {
				fmt.Fprintf(&sb, "> %s\n\n", p.Argument)
			}
		}
	}

	if len(d.Exchanges) > 0 {
		sb.WriteString("## The Debate\n\n")
		for _, ex := range d.Exchanges {
			fmt.Fprintf(&sb, "**%s:** %s\n\n", ex.Speaker, ex.Text)
		}
	}

	if len(d.Questions) > 0 {
		sb.WriteString("## Questions to Consider\n\n")
		for i, q := range d.Questions {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, q)
		}
	}
	return sb.String()
}
