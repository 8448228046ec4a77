package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/vanderheijden86/curiousdates/pkg/model"
)

const (
	welcomeID      = "welcome"
	welcomeText    = "Hello! I'm your historical assistant. Ask me anything about the timeline or events you're exploring."
	chatClearedMsg = "Conversation cleared. What would you like to discuss now?"
)

// ChatPanel is the assistant sidebar: a scrolling transcript and an input.
type ChatPanel struct {
	messages []model.ChatMessage
	input    textinput.Model
	vp       viewport.Model
	typing   bool
	width    int
	height   int
	theme    Theme
	now      func() time.Time
}

// NewChatPanel creates a panel holding only the welcome message.
func NewChatPanel(theme Theme) ChatPanel {
	ti := textinput.New()
	ti.Placeholder = "Ask about history..."
	ti.Prompt = "› "
	ti.CharLimit = 500

	c := ChatPanel{
		input: ti,
		vp:    viewport.New(30, 10),
		theme: theme,
		now:   time.Now,
	}
	c.messages = []model.ChatMessage{{ID: welcomeID, Role: model.RoleModel, Text: welcomeText, Timestamp: c.now()}}
	return c
}

// Messages returns the transcript including the welcome message.
func (c ChatPanel) Messages() []model.ChatMessage { return c.messages }

// History is the transcript sent to the model: the welcome message is a
// local greeting and never part of it.
func (c ChatPanel) History() []model.ChatMessage {
	out := make([]model.ChatMessage, 0, len(c.messages))
	for _, m := range c.messages {
		if m.ID == welcomeID {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Typing reports whether a reply is pending.
func (c ChatPanel) Typing() bool { return c.typing }

// Focus focuses the input.
func (c *ChatPanel) Focus() tea.Cmd { return c.input.Focus() }

// Blur releases the input.
func (c *ChatPanel) Blur() { c.input.Blur() }

// Focused reports whether the input has focus.
func (c ChatPanel) Focused() bool { return c.input.Focused() }

// Submit takes the input text, appends it as a user message and returns the
// text plus the history preceding it. ok is false for blank input or while a
// reply is pending.
func (c *ChatPanel) Submit() (text string, history []model.ChatMessage, ok bool) {
	text = strings.TrimSpace(c.input.Value())
	if text == "" || c.typing {
		return "", nil, false
	}
	c.input.SetValue("")
	return text, c.Send(text), true
}

// Send appends text as a user message, marks the panel as waiting and
// returns the history preceding it.
func (c *ChatPanel) Send(text string) []model.ChatMessage {
	history := c.History()
	c.messages = append(c.messages, model.ChatMessage{
		ID:        uuid.NewString(),
		Role:      model.RoleUser,
		Text:      text,
		Timestamp: c.now(),
	})
	c.typing = true
	c.refresh()
	return history
}

// Receive appends the assistant's reply.
func (c *ChatPanel) Receive(text string) {
	c.messages = append(c.messages, model.ChatMessage{
		ID:        uuid.NewString(),
		Role:      model.RoleModel,
		Text:      text,
		Timestamp: c.now(),
	})
	c.typing = false
	c.refresh()
}

// Clear resets the transcript to a single notice.
func (c *ChatPanel) Clear() {
	c.messages = []model.ChatMessage{{ID: uuid.NewString(), Role: model.RoleModel, Text: chatClearedMsg, Timestamp: c.now()}}
	c.typing = false
	c.refresh()
}

// SetSize sets the panel's outer dimensions.
func (c *ChatPanel) SetSize(width, height int) {
	c.width = width
	c.height = height
	c.input.Width = max(width-6, 10)
	c.vp.Width = max(width-4, 10)
	c.vp.Height = max(height-7, 3)
	c.refresh()
}

func (c *ChatPanel) refresh() {
	t := c.theme
	width := max(c.vp.Width, 10)
	var sb strings.Builder
	for i, m := range c.messages {
		if i > 0 {
			sb.WriteString("\n")
		}
		label := t.PrimaryBold.Render("Guide")
		if m.Role == model.RoleUser {
			label = t.YearText.Render("You")
		}
		sb.WriteString(label + "\n")
		for _, line := range wrapText(m.Text, width) {
			sb.WriteString(line + "\n")
		}
	}
	if c.typing {
		sb.WriteString("\n" + t.MutedText.Render("Guide is typing..."))
	}
	c.vp.SetContent(sb.String())
	c.vp.GotoBottom()
}

// Update forwards keys to the input when focused and scrolls otherwise.
func (c ChatPanel) Update(msg tea.Msg) (ChatPanel, tea.Cmd) {
	var cmd tea.Cmd
	if c.input.Focused() {
		c.input, cmd = c.input.Update(msg)
		return c, cmd
	}
	c.vp, cmd = c.vp.Update(msg)
	return c, cmd
}

func (c ChatPanel) View(context string) string {
	t := c.theme
	var sb strings.Builder
	sb.WriteString(t.PrimaryBold.Render("History Assistant") + "\n")
	sb.WriteString(t.MutedText.Render(truncate(context, max(c.width-4, 10))) + "\n\n")
	sb.WriteString(c.vp.View() + "\n\n")
	sb.WriteString(c.input.View())

	style := PanelStyle
	if c.input.Focused() {
		style = FocusedPanelStyle
	}
	return style.Width(max(c.width-2, 10)).Height(max(c.height-2, 5)).Render(sb.String())
}
