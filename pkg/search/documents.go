package search

import (
	"strings"

	"github.com/vanderheijden86/curiousdates/pkg/model"
)

// Document is the searchable text of one event.
type Document struct {
	EventID    string
	TimelineID string
	Text       string
}

// EventDocument builds the text embedded for ev. The title is repeated so
// it outweighs the description, and the timeline title gives context.
func EventDocument(tl model.Timeline, ev model.TimelineEvent) string {
	parts := []string{ev.Title, ev.Title, ev.Year}
	if d := strings.TrimSpace(ev.Description); d != "" {
		parts = append(parts, d)
	}
	parts = append(parts, tl.Title)
	return strings.Join(parts, "\n")
}

// Documents returns one document per event in scan order.
func Documents(ws model.WorkingSet) []Document {
	docs := make([]Document, 0, ws.EventCount())
	for _, tl := range ws {
		for _, ev := range tl.Events {
			docs = append(docs, Document{EventID: ev.ID, TimelineID: tl.ID, Text: EventDocument(tl, ev)})
		}
	}
	return docs
}
