package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/vanderheijden86/curiousdates/pkg/model"
)

// TimelineItem wraps model.Timeline to implement list.Item
type TimelineItem struct {
	Timeline model.Timeline
}

func (i TimelineItem) Title() string {
	return i.Timeline.Title
}

func (i TimelineItem) Description() string {
	return fmt.Sprintf("%s • %d events", i.Timeline.Category.Label(), len(i.Timeline.Events))
}

func (i TimelineItem) FilterValue() string {
	// Titles and years of every event are searchable too, so "/1969" finds
	// the moon landing.
	var sb strings.Builder
	sb.WriteString(i.Timeline.Title)
	sb.WriteString(" ")
	sb.WriteString(i.Timeline.Description)
	sb.WriteString(" ")
	sb.WriteString(string(i.Timeline.Category))
	for _, ev := range i.Timeline.Events {
		sb.WriteString(" ")
		sb.WriteString(ev.Year)
		sb.WriteString(" ")
		sb.WriteString(ev.Title)
	}
	return sb.String()
}

// timelineItems converts a working set into list items, preserving order.
func timelineItems(ws model.WorkingSet) []list.Item {
	items := make([]list.Item, len(ws))
	for i, tl := range ws {
		items[i] = TimelineItem{Timeline: tl}
	}
	return items
}
