package genai

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/curiousdates/pkg/admin"
	"github.com/vanderheijden86/curiousdates/pkg/debug"
	"github.com/vanderheijden86/curiousdates/pkg/metrics"
	"github.com/vanderheijden86/curiousdates/pkg/model"
)

// ErrInvalidResponse is returned when the model's reply cannot be parsed or
// lacks the required structure.
var ErrInvalidResponse = errors.New("invalid response from model")

// Fallback replies for the never-failing text operations.
const (
	ReplyPaused         = "System is currently paused by admin."
	ReplyQuestionFailed = "I'm having trouble analyzing this event right now."
	ReplyQuestionEmpty  = "I couldn't find an answer to that specific question."
	ReplyChatFailed     = "I'm having trouble connecting to the history archives right now. Please try again."
	ReplyChatEmpty      = "I apologize, I couldn't formulate a response at this time."
)

// Defaults applied to generated timelines with missing fields.
const (
	DefaultEventYear           = "Unknown Date"
	DefaultEventTitle          = "Untitled Event"
	DefaultEventDescription    = "No description."
	DefaultTimelineTitle       = "Untitled Timeline"
	DefaultTimelineDescription = "No description available."
)

const (
	DefaultMaxFailures    = 3
	DefaultBreakerTimeout = 30 * time.Second
	maxParallelImages     = 4
)

// Option configures a Service.
type Option func(*Service)

// WithImageSource sets the illustration source for generated events.
func WithImageSource(src ImageSource) Option {
	return func(s *Service) { s.images = src }
}

// WithMaxFailures sets how many consecutive backend failures open the
// circuit breaker.
func WithMaxFailures(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxFailures = uint32(n)
		}
	}
}

// WithBreakerTimeout sets how long the breaker stays open before probing.
func WithBreakerTimeout(d time.Duration) Option {
	return func(s *Service) { s.breakerTimeout = d }
}

// WithClock overrides the time source used for generated ids.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service is the application-facing AI client.
type Service struct {
	backend        Backend
	store          admin.Store
	images         ImageSource
	breaker        *gobreaker.CircuitBreaker
	maxFailures    uint32
	breakerTimeout time.Duration
	now            func() time.Time
}

// NewService wraps backend with the admin store and a circuit breaker.
func NewService(backend Backend, store admin.Store, opts ...Option) *Service {
	s := &Service{
		backend:        backend,
		store:          store,
		images:         NoImages{},
		maxFailures:    DefaultMaxFailures,
		breakerTimeout: DefaultBreakerTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	maxFailures := s.maxFailures
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "genai",
		MaxRequests: 1,
		Timeout:     s.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			debug.Log("genai: breaker %s %v -> %v", name, from, to)
		},
		// Cancellation is the user's doing, not a backend failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return s
}

// Model returns the backend model name.
func (s *Service) Model() string { return s.backend.Model() }

// BreakerState reports the circuit breaker state ("closed", "open", "half-open").
func (s *Service) BreakerState() string { return s.breaker.State().String() }

// complete runs one backend call through the breaker and records usage on
// success.
func (s *Service) complete(ctx context.Context, kind string, req Request) (string, error) {
	defer metrics.Timer(metrics.AIRequest)()

	out, err := s.breaker.Execute(func() (interface{}, error) {
		return s.backend.Complete(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.BreakerRejected.Inc()
		} else {
			metrics.AIFailures.Inc()
		}
		debug.Log("genai: %s failed: %v", kind, err)
		return "", err
	}
	s.store.RecordCall(s.backend.Model(), kind)
	return out.(string), nil
}

var fencePattern = regexp.MustCompile("```json\\n?|```")

// CleanJSON strips Markdown code fences from a model reply.
func CleanJSON(text string) string {
	return strings.TrimSpace(fencePattern.ReplaceAllString(text, ""))
}

type rawEvent struct {
	Year        string `json:"year"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type rawTimeline struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Events      []rawEvent `json:"events"`
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// GenerateTimeline asks the model for a 5-6 event timeline on prompt.
// Alternate-category prompts are treated as "what if" premises.
func (s *Service) GenerateTimeline(ctx context.Context, prompt string, category model.Category) (*model.Timeline, error) {
	if err := s.store.CheckAvailable(); err != nil {
		return nil, err
	}
	if !category.IsValid() {
		return nil, fmt.Errorf("unknown category %q", category)
	}

	text, err := s.complete(ctx, KindTimeline, Request{
		System:   timelineSystemPrompt(category),
		Messages: []Message{{Role: "user", Content: timelineUserPrompt(prompt, category)}},
		Schema:   timelineSchema,
	})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty reply", ErrInvalidResponse)
	}

	var raw rawTimeline
	if err := json.Unmarshal([]byte(CleanJSON(text)), &raw); err != nil {
		debug.Log("genai: unparseable timeline reply: %q", text)
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if raw.Events == nil {
		return nil, fmt.Errorf("%w: no events array", ErrInvalidResponse)
	}

	stamp := s.now().UnixMilli()
	events := make([]model.TimelineEvent, len(raw.Events))
	for i, e := range raw.Events {
		events[i] = model.TimelineEvent{
			ID:          fmt.Sprintf("gen-%d-%d", i, stamp),
			Year:        orDefault(e.Year, DefaultEventYear),
			Title:       orDefault(e.Title, DefaultEventTitle),
			Description: orDefault(e.Description, DefaultEventDescription),
		}
	}
	if err := s.illustrate(ctx, events, category == model.CategoryAlternate, stamp); err != nil {
		return nil, err
	}

	return &model.Timeline{
		ID:          uuid.NewString(),
		Title:       orDefault(raw.Title, DefaultTimelineTitle),
		Description: orDefault(raw.Description, DefaultTimelineDescription),
		Category:    category,
		Events:      events,
		IsGenerated: true,
	}, nil
}

// PlaceholderImage is the picture used when illustration fails.
func PlaceholderImage(idx int, stamp int64) string {
	return fmt.Sprintf("https://picsum.photos/seed/%d%d/800/600", idx, stamp)
}

// illustrate fills ImageURL for every event in parallel. Only a pause aborts
// generation; any other image failure falls back to a placeholder.
func (s *Service) illustrate(ctx context.Context, events []model.TimelineEvent, alternate bool, stamp int64) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelImages)

	for i := range events {
		g.Go(func() error {
			if err := s.store.CheckAvailable(); err != nil {
				return err
			}
			url, err := s.images.EventImage(gctx, imagePrompt(events[i].Description, alternate))
			if err != nil || url == "" {
				if err != nil && !errors.Is(err, ErrNoImages) {
					debug.Log("genai: image for event %d: %v", i, err)
				}
				events[i].ImageURL = PlaceholderImage(i, stamp)
				return nil
			}
			s.store.RecordCall(s.backend.Model(), KindImage)
			events[i].ImageURL = url
			return nil
		})
	}
	return g.Wait()
}

// GenerateDebate asks the model for a multi-perspective debate on an event.
func (s *Service) GenerateDebate(ctx context.Context, title, description string) (*model.DebateData, error) {
	if err := s.store.CheckAvailable(); err != nil {
		return nil, err
	}

	text, err := s.complete(ctx, KindDebate, Request{
		System:   debateSystemPrompt,
		Messages: []Message{{Role: "user", Content: debateUserPrompt(title, description)}},
		Schema:   debateSchema,
	})
	if err != nil {
		return nil, err
	}

	var data model.DebateData
	if err := json.Unmarshal([]byte(CleanJSON(text)), &data); err != nil {
		debug.Log("genai: unparseable debate reply: %q", text)
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if data.Perspectives == nil || data.Exchanges == nil {
		return nil, fmt.Errorf("%w: debate needs perspectives and exchanges", ErrInvalidResponse)
	}
	return &data, nil
}

// AskAboutEvent answers a question about one event. It never fails: pauses
// and backend errors produce a fixed reply.
func (s *Service) AskAboutEvent(ctx context.Context, title, description, question string) string {
	if err := s.store.CheckAvailable(); err != nil {
		return ReplyPaused
	}
	text, err := s.complete(ctx, KindQuestion, Request{
		Messages: []Message{{Role: "user", Content: questionPrompt(title, description, question)}},
	})
	if err != nil {
		return ReplyQuestionFailed
	}
	if strings.TrimSpace(text) == "" {
		return ReplyQuestionEmpty
	}
	return text
}

// Chat continues the assistant conversation. Like AskAboutEvent it never
// fails.
func (s *Service) Chat(ctx context.Context, history []model.ChatMessage, chatContext, message string) string {
	if err := s.store.CheckAvailable(); err != nil {
		return ReplyPaused
	}

	msgs := make([]Message, 0, len(history)+1)
	for _, h := range history {
		role := "user"
		if h.Role == model.RoleModel {
			role = "assistant"
		}
		msgs = append(msgs, Message{Role: role, Content: h.Text})
	}
	msgs = append(msgs, Message{Role: "user", Content: message})

	text, err := s.complete(ctx, KindChat, Request{System: chatSystemPrompt(chatContext), Messages: msgs})
	if err != nil {
		return ReplyChatFailed
	}
	if strings.TrimSpace(text) == "" {
		return ReplyChatEmpty
	}
	return text
}
