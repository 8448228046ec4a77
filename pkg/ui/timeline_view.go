package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/curiousdates/pkg/chrono"
	"github.com/vanderheijden86/curiousdates/pkg/correlation"
	"github.com/vanderheijden86/curiousdates/pkg/metrics"
	"github.com/vanderheijden86/curiousdates/pkg/model"
)

func (m Model) View() string {
	defer metrics.Timer(metrics.UIRender)()

	if !m.ready {
		return "Loading timelines..."
	}

	var body string
	switch {
	case m.showHelp:
		body = m.renderHelp()
	case m.showWhatIf:
		body = lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, m.whatIf.View(m.width))
	case m.showAdmin:
		body = lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, m.adminPanel.View(m.width))
	default:
		body = m.renderMain()
	}
	return body + "\n" + m.renderFooter()
}

func (m Model) renderMain() string {
	var main string
	switch m.mode {
	case ViewPicker:
		return m.list.View()
	case ViewDebate:
		main = m.debate.View(m.spinner.View())
	default:
		main = m.renderTimeline(m.mainWidth(), m.height-1)
	}
	if m.chatOpen {
		main = lipgloss.NewStyle().Width(m.mainWidth()).Height(m.height - 1).Render(main)
		return lipgloss.JoinHorizontal(lipgloss.Top, main, m.chat.View(m.chatContext().String()))
	}
	return main
}

// renderTimeline draws the header, the event column and the detail pane.
func (m Model) renderTimeline(width, height int) string {
	t := m.theme
	tl := m.timeline

	header := t.Header.Render(truncate(tl.Title, max(width-30, 10))) + " " + RenderCategoryBadge(t, tl.Category)
	if tl.IsGenerated {
		header += " " + RenderGeneratedBadge(t)
	}
	yearLine := m.renderYearLine(width)

	listWidth := min(max(width*2/5, 28), 48)
	detailWidth := max(width-listWidth-3, 20)
	bodyHeight := max(height-4, 5)

	events := m.renderEventList(listWidth, bodyHeight)
	detail := m.renderDetail(detailWidth, bodyHeight)

	left := PanelStyle.Width(listWidth).Height(bodyHeight).Render(events)
	right := FocusedPanelStyle.Width(detailWidth).Height(bodyHeight).Render(detail)
	return header + "\n" + yearLine + "\n" + lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

// renderYearLine shows the displayed year and, while travelling, a progress
// bar toward the target.
func (m Model) renderYearLine(width int) string {
	t := m.theme
	year := t.YearText.Render(chrono.FormatYear(m.displayYear))
	plan, travelling := m.nav.Current()
	if !travelling {
		return year
	}
	barWidth := max(min(width-40, 40), 10)
	filled := int(m.progress * float64(barWidth))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	return fmt.Sprintf("%s  %s  %s %s",
		year,
		t.ParallelText.Render(bar),
		t.MutedText.Render("travelling to"),
		t.PrimaryBold.Render(plan.To.Year))
}

func (m Model) renderEventList(width, height int) string {
	t := m.theme
	sel := m.nav.Selection()
	var target string
	if plan, ok := m.nav.Current(); ok {
		target = plan.To.ID
	}
	yw := yearWidth(m.timeline.Events)

	var lines []string
	for i, ev := range m.timeline.Events {
		if i > 0 && m.cfg.UI.ShowGapMarkers && i-1 < len(m.gaps) && m.gaps[i-1].ShowMarker() {
			lines = append(lines, t.GapText.Render("   ⋮ "+m.gaps[i-1].Label()))
		}
		marker := "  "
		switch ev.ID {
		case sel.ID:
			marker = "● "
		case target:
			marker = "◌ "
		}
		row := marker + padRight(ev.Year, yw) + "  " + truncate(ev.Title, max(width-yw-6, 4))
		if ev.ID == sel.ID {
			row = t.PrimaryBold.Render(row)
		} else {
			row = t.Base.Render(row)
		}
		lines = append(lines, row)
	}
	return clipLines(lines, height)
}

func (m Model) renderDetail(width, height int) string {
	t := m.theme
	ev := m.nav.Selection()
	inner := max(width-2, 10)

	var lines []string
	lines = append(lines, t.YearText.Render(ev.Year)+"  "+t.PrimaryBold.Render(truncate(ev.Title, inner-len(ev.Year)-2)))
	lines = append(lines, "")
	lines = append(lines, wrapText(ev.Description, inner)...)
	if ev.ImageURL != "" {
		lines = append(lines, "", t.MutedText.Render(truncate("🖼 "+ev.ImageURL, inner)))
	}

	if len(m.parallels) > 0 {
		lines = append(lines, "", t.SecondaryText.Render("Meanwhile… (p+n)"))
		for i, p := range m.parallels {
			lines = append(lines, t.ParallelText.Render(truncate(parallelLine(i+1, p), inner)))
		}
	}
	if len(m.related) > 0 {
		lines = append(lines, "", t.SecondaryText.Render("Related (r+n)"))
		for i, r := range m.related {
			lines = append(lines, t.RelatedText.Render(truncate(relatedLine(i+1, r, ev, m.timeline.ID), inner)))
		}
	}

	switch {
	case m.asking:
		lines = append(lines, "", m.askInput.View())
	case m.askPending:
		lines = append(lines, "", m.spinner.View()+" "+t.MutedText.Render("Consulting the archives..."))
	case m.answer != "":
		lines = append(lines, "", t.SecondaryText.Render("Q: "+m.question))
		lines = append(lines, wrapText(m.answer, inner)...)
	}
	return clipLines(lines, height)
}

func parallelLine(n int, p correlation.Parallel) string {
	return fmt.Sprintf("%d. %s · %s (%s)", n, p.Event.Year, p.Event.Title, p.Timeline.Title)
}

func relatedLine(n int, r correlation.Related, source model.TimelineEvent, homeID string) string {
	return fmt.Sprintf("%d. %s · %s: %s", n, r.Event.Year, r.Event.Title, correlation.Explain(r, source, homeID))
}

// clipLines keeps at most height lines.
func clipLines(lines []string, height int) string {
	if height > 0 && len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderFooter() string {
	t := m.theme
	width := max(m.width, 20)
	prefix := ""
	if m.busy > 0 {
		prefix = m.spinner.View() + " "
		width -= lipgloss.Width(prefix)
	}
	switch {
	case m.statusMsg != "" && m.statusIsError:
		return prefix + t.ErrorText.Render(truncate(m.statusMsg, width))
	case m.statusMsg != "":
		return prefix + t.Base.Render(truncate(m.statusMsg, width))
	default:
		return prefix + t.MutedText.Render(truncate(m.keyHints(), width))
	}
}

func (m Model) keyHints() string {
	switch {
	case m.Travelling():
		return "travelling… esc leave"
	case m.mode == ViewPicker:
		return "enter open • / filter • g generate • D delete • A admin • ? help • q quit"
	case m.mode == ViewDebate:
		return "1-9 ask • c chat • esc back"
	default:
		return "j/k travel • p/r+n jump • a ask • d debate • c chat • y copy • esc back"
	}
}

func (m Model) renderHelp() string {
	t := m.theme
	sections := []struct {
		title string
		keys  [][2]string
	}{
		{"Timelines", [][2]string{
			{"enter", "open timeline"},
			{"/", "filter by title, year or event"},
			{"g", "generate a timeline"},
			{"D", "delete a generated timeline"},
			{"A", "admin dashboard"},
		}},
		{"Timeline", [][2]string{
			{"j / ↓", "travel to the next event"},
			{"k / ↑", "travel to the previous event"},
			{"p 1-9", "jump to a parallel event"},
			{"r 1-9", "jump to a related event"},
			{"a", "ask about this event"},
			{"d", "open a debate"},
			{"y", "copy event"},
			{"esc", "back (cancels travel)"},
		}},
		{"Chat", [][2]string{
			{"c", "open or focus the assistant"},
			{"tab", "leave the chat input"},
			{"ctrl+l", "clear the conversation"},
		}},
	}

	var sb strings.Builder
	sb.WriteString(t.Header.Render("Keyboard Shortcuts") + "\n\n")
	for _, s := range sections {
		sb.WriteString(t.SecondaryText.Render(s.title) + "\n")
		for _, k := range s.keys {
			sb.WriteString("  " + t.PrimaryBold.Render(padRight(k[0], 8)) + " " + k[1] + "\n")
		}
		sb.WriteString("\n")
	}
	sb.WriteString(t.MutedText.Render("? or esc to close"))
	return lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, ModalStyle.Render(sb.String()))
}
