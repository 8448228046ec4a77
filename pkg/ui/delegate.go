package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/curiousdates/pkg/model"
)

// TimelineDelegate renders timeline items in the picker list
type TimelineDelegate struct {
	Theme Theme
}

func (d TimelineDelegate) Height() int {
	return 2
}

func (d TimelineDelegate) Spacing() int {
	return 1
}

func (d TimelineDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd {
	return nil
}

func (d TimelineDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(TimelineItem)
	if !ok {
		return
	}

	t := d.Theme
	width := m.Width()
	if width <= 0 {
		width = 80
	}
	// Reduce width by 1 to prevent terminal wrapping on the exact edge
	width = width - 1

	isSelected := index == m.Index()
	tl := i.Timeline

	// Line 1: [badge] [generated] title ............ span
	badge := RenderCategoryBadge(t, tl.Category)
	left := badge + " "
	if tl.IsGenerated {
		left += RenderGeneratedBadge(t) + " "
	}
	span := timelineSpan(tl.Events)
	rightWidth := lipgloss.Width(span) + 1
	titleWidth := width - lipgloss.Width(left) - rightWidth - 2
	title := truncate(tl.Title, titleWidth)

	titleStyle := t.Base
	if isSelected {
		titleStyle = t.PrimaryBold
	}
	line1 := left + titleStyle.Render(padRight(title, max(titleWidth, 0))) + " " + t.YearText.Render(span)

	// Line 2: description, muted
	desc := tl.Description
	if desc == "" {
		desc = fmt.Sprintf("%d events", len(tl.Events))
	}
	line2 := t.MutedText.Render(truncate(desc, width-2))

	row := line1 + "\n" + line2
	if isSelected {
		row = t.Selected.Width(width).Render(row)
	} else {
		row = lipgloss.NewStyle().PaddingLeft(2).Render(row)
	}
	fmt.Fprint(w, row)
}

// timelineSpan renders "first – last" years of a timeline.
func timelineSpan(events []model.TimelineEvent) string {
	switch len(events) {
	case 0:
		return ""
	case 1:
		return events[0].Year
	}
	first, last := events[0].Year, events[len(events)-1].Year
	if first == last {
		return first
	}
	return strings.TrimSpace(first) + " – " + strings.TrimSpace(last)
}

// yearWidth is the widest year label among events, used to align rows.
func yearWidth(events []model.TimelineEvent) int {
	w := 4
	for _, ev := range events {
		if n := lipgloss.Width(ev.Year); n > w {
			w = n
		}
	}
	return w
}
