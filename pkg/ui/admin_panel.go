package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/curiousdates/pkg/admin"
)

// AdminPanel gates usage stats and the pause switch behind a password.
type AdminPanel struct {
	store      admin.Store
	password   textinput.Model
	authorized bool
	err        string
	stats      admin.Stats
	theme      Theme
}

// NewAdminPanel creates a locked panel over store.
func NewAdminPanel(store admin.Store, theme Theme) AdminPanel {
	ti := textinput.New()
	ti.Placeholder = "Password"
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	ti.Prompt = "🔒 "
	ti.Focus()

	return AdminPanel{store: store, password: ti, theme: theme}
}

// Authorized reports whether the password was accepted.
func (a AdminPanel) Authorized() bool { return a.authorized }

// Stats is the last snapshot shown.
func (a AdminPanel) Stats() admin.Stats { return a.stats }

// Err is the login error, if any.
func (a AdminPanel) Err() string { return a.err }

// Refresh reloads the stats snapshot.
func (a *AdminPanel) Refresh() {
	if a.store != nil {
		a.stats = a.store.Stats()
	}
}

func (a AdminPanel) Init() tea.Cmd { return textinput.Blink }

// Update handles login while locked and the panel keys once unlocked.
func (a AdminPanel) Update(msg tea.Msg) (AdminPanel, tea.Cmd) {
	keyMsg, isKey := msg.(tea.KeyMsg)

	if !a.authorized {
		if isKey && keyMsg.String() == "enter" {
			if a.store != nil && a.store.Login(a.password.Value()) {
				a.authorized = true
				a.err = ""
				a.password.Blur()
				a.Refresh()
			} else {
				a.err = "Invalid password"
			}
			a.password.SetValue("")
			return a, nil
		}
		var cmd tea.Cmd
		a.password, cmd = a.password.Update(msg)
		return a, cmd
	}

	if !isKey {
		return a, nil
	}
	switch keyMsg.String() {
	case "p":
		a.store.TogglePause()
		a.Refresh()
	case "r":
		a.Refresh()
	case "l":
		a.authorized = false
		a.stats = admin.Stats{}
		return a, a.password.Focus()
	}
	return a, nil
}

func (a AdminPanel) View(width int) string {
	t := a.theme
	var sb strings.Builder
	sb.WriteString(t.Header.Render("Admin Dashboard") + "\n\n")

	if !a.authorized {
		sb.WriteString(a.password.View() + "\n")
		if a.err != "" {
			sb.WriteString("\n" + t.ErrorText.Render(a.err) + "\n")
		}
		sb.WriteString("\n" + t.MutedText.Render("enter unlock • esc close"))
		return ModalStyle.Width(min(max(width-4, 40), 80)).Render(sb.String())
	}

	status := t.Renderer.NewStyle().Foreground(t.Success).Bold(true).Render("ONLINE")
	if a.stats.IsPaused {
		status = t.ErrorText.Render("PAUSED")
	}
	fmt.Fprintf(&sb, "System status  %s\n", status)
	fmt.Fprintf(&sb, "Total AI calls %s\n\n", t.PrimaryBold.Render(fmt.Sprintf("%d", a.stats.TotalCalls)))

	sb.WriteString(t.SecondaryText.Render("Recent activity") + "\n")
	if len(a.stats.RecentLogs) == 0 {
		sb.WriteString(t.MutedText.Render("  no activity yet") + "\n")
	}
	logWidth := min(max(width-12, 20), 72)
	for i, line := range a.stats.RecentLogs {
		if i == 12 {
			sb.WriteString(t.MutedText.Render(fmt.Sprintf("  … %d more", len(a.stats.RecentLogs)-i)) + "\n")
			break
		}
		sb.WriteString("  " + truncate(line, logWidth) + "\n")
	}

	toggle := "pause AI"
	if a.stats.IsPaused {
		toggle = "resume AI"
	}
	sb.WriteString("\n" + t.MutedText.Render("p "+toggle+" • r refresh • l lock • esc close"))
	return ModalStyle.Width(min(max(width-4, 40), 80)).Render(sb.String())
}
