package model

import "time"

// Perspective is one voice in a generated debate.
type Perspective struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	Summary  string `json:"summary"`
	Argument string `json:"argument"`
}

// Exchange is a single line of the debate script.
type Exchange struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// DebateData is the generated debate about one event.
type DebateData struct {
	Topic        string        `json:"topic"`
	Perspectives []Perspective `json:"perspectives"`
	Exchanges    []Exchange    `json:"exchanges"`
	Questions    []string      `json:"questions"`
}

// ChatRole identifies who wrote a chat message.
type ChatRole string

const (
	RoleUser  ChatRole = "user"
	RoleModel ChatRole = "model"
)

// ChatMessage is one entry in the assistant conversation.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      ChatRole  `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}
