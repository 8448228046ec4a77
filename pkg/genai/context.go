package genai

import (
	"fmt"

	"github.com/vanderheijden86/curiousdates/pkg/model"
)

// ChatContext is what the user is looking at when they talk to the assistant.
type ChatContext struct {
	Timeline *model.Timeline
	EventID  string
	// Debating is set while a debate about DebateEvent is open.
	Debating    bool
	DebateEvent *model.TimelineEvent
}

// String renders the context line passed to Chat.
func (c ChatContext) String() string {
	if c.Debating && c.DebateEvent != nil {
		return "Debating event: " + c.DebateEvent.Title
	}
	if c.EventID != "" && c.Timeline != nil {
		if ev, ok := c.Timeline.Event(c.EventID); ok {
			return fmt.Sprintf("Viewing event: %s (%s)", ev.Title, ev.Year)
		}
		return "Viewing timeline: " + c.Timeline.Title
	}
	if c.Timeline != nil {
		return "Browsing timeline: " + c.Timeline.Title
	}
	return "Topic Selection"
}
