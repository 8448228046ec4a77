// Package model defines the timeline records shared by every curiousdates package.
//
// Timelines and their events are created once, from seed data or from a
// generation call, and are read-only afterwards. New timelines are prepended to
// the working set; nothing edits an existing timeline's event sequence.
package model

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Category classifies a timeline as factual or counterfactual.
type Category string

const (
	CategoryHistorical Category = "historical"
	CategoryAlternate  Category = "alternate"
)

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	switch c {
	case CategoryHistorical, CategoryAlternate:
		return true
	}
	return false
}

// Label returns the human-readable category name used in headers.
func (c Category) Label() string {
	if c == CategoryAlternate {
		return "Alternate History"
	}
	return "Historical"
}

// TimelineEvent is a single dated occurrence.
// Year is free-form display text ("2560 BC", "1969", "AD 500").
type TimelineEvent struct {
	ID          string `json:"id" yaml:"id" validate:"required"`
	Year        string `json:"year" yaml:"year" validate:"required"`
	Title       string `json:"title" yaml:"title" validate:"required"`
	Description string `json:"description" yaml:"description"`
	ImageURL    string `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty"`
}

// Timeline is an ordered, named collection of events. The order of Events is
// chronological-as-authored and defines previous/next for navigation.
type Timeline struct {
	ID          string          `json:"id" yaml:"id" validate:"required"`
	Title       string          `json:"title" yaml:"title" validate:"required"`
	Description string          `json:"description" yaml:"description"`
	Category    Category        `json:"category" yaml:"category" validate:"required,oneof=historical alternate"`
	Events      []TimelineEvent `json:"events" yaml:"events" validate:"dive"`
	IsGenerated bool            `json:"isGenerated,omitempty" yaml:"isGenerated,omitempty"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks a single event's required fields.
func (e TimelineEvent) Validate() error {
	if err := structValidator().Struct(e); err != nil {
		return fmt.Errorf("event %q: %w", e.ID, describeValidation(err))
	}
	return nil
}

// Validate checks required fields, the category and every event, and rejects
// duplicate event ids within the timeline.
func (t Timeline) Validate() error {
	if err := structValidator().Struct(t); err != nil {
		return fmt.Errorf("timeline %q: %w", t.ID, describeValidation(err))
	}
	seen := make(map[string]bool, len(t.Events))
	for _, ev := range t.Events {
		if seen[ev.ID] {
			return fmt.Errorf("timeline %q: duplicate event id %q", t.ID, ev.ID)
		}
		seen[ev.ID] = true
	}
	return nil
}

// describeValidation flattens validator errors into one readable error.
func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Timeline.")
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return errors.New(strings.Join(parts, "; "))
}

// EventIndex returns the position of the event with the given id, or -1.
func (t Timeline) EventIndex(id string) int {
	for i := range t.Events {
		if t.Events[i].ID == id {
			return i
		}
	}
	return -1
}

// Event returns the event with the given id.
func (t Timeline) Event(id string) (TimelineEvent, bool) {
	if i := t.EventIndex(id); i >= 0 {
		return t.Events[i], true
	}
	return TimelineEvent{}, false
}

// Adjacent returns the event delta positions away from id (delta -1 is the
// previous event, +1 the next one).
func (t Timeline) Adjacent(id string, delta int) (TimelineEvent, bool) {
	i := t.EventIndex(id)
	if i < 0 {
		return TimelineEvent{}, false
	}
	j := i + delta
	if j < 0 || j >= len(t.Events) {
		return TimelineEvent{}, false
	}
	return t.Events[j], true
}
