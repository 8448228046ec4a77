package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/curiousdates/pkg/admin"
	"github.com/vanderheijden86/curiousdates/pkg/loader"
	"github.com/vanderheijden86/curiousdates/pkg/model"
)

func testTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(nil))
}

func keyEnter() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyEnter} }

func keyRunes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func TestDefaultTheme(t *testing.T) {
	renderer := lipgloss.NewRenderer(nil)
	theme := DefaultTheme(renderer)

	if theme.Renderer != renderer {
		t.Error("DefaultTheme renderer mismatch")
	}
	for name, c := range map[string]lipgloss.AdaptiveColor{
		"Primary":    theme.Primary,
		"Historical": theme.Historical,
		"Alternate":  theme.Alternate,
		"Parallel":   theme.Parallel,
	} {
		if c.Light == "" || c.Dark == "" {
			t.Errorf("%s color is empty", name)
		}
	}
	if theme.CategoryColor(true) != theme.Alternate || theme.CategoryColor(false) != theme.Historical {
		t.Error("CategoryColor mismatch")
	}
}

func TestTruncateRunesHelper(t *testing.T) {
	tests := []struct {
		in     string
		max    int
		suffix string
		want   string
	}{
		{"short", 10, "…", "short"},
		{"Hanging Gardens of Babylon", 10, "…", "Hanging G…"},
		{"日本語のタイトル", 7, "…", "日本語…"},
		{"anything", 0, "…", ""},
		{"abc", 2, "...", ".."},
	}
	for _, tt := range tests {
		if got := truncateRunesHelper(tt.in, tt.max, tt.suffix); got != tt.want {
			t.Errorf("truncateRunesHelper(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("The first artificial satellite was launched by the Soviet Union.", 20)
	for _, l := range lines {
		if lipgloss.Width(l) > 20 {
			t.Errorf("line %q exceeds width", l)
		}
	}
	if strings.Join(lines, " ") != "The first artificial satellite was launched by the Soviet Union." {
		t.Errorf("words lost: %q", lines)
	}
	if got := wrapText("a\n\nb", 10); len(got) != 3 || got[1] != "" {
		t.Errorf("paragraph breaks not kept: %q", got)
	}
	if wrapText("x", 0) != nil {
		t.Error("zero width should yield nothing")
	}
}

func TestPadRight(t *testing.T) {
	if got := padRight("1969", 7); got != "1969   " {
		t.Errorf("padRight = %q", got)
	}
	if got := padRight("2560 BC", 4); got != "2560 BC" {
		t.Errorf("padRight should not truncate, got %q", got)
	}
}

func TestTimelineItemFilterValue(t *testing.T) {
	tl, _ := loader.Seed().Find("moon-landing")
	item := TimelineItem{Timeline: tl}
	fv := item.FilterValue()
	for _, want := range []string{"Space Race", "1969", "Apollo 11 Landing", "historical"} {
		if !strings.Contains(fv, want) {
			t.Errorf("FilterValue missing %q", want)
		}
	}
	if !strings.Contains(item.Description(), "4 events") {
		t.Errorf("Description = %q", item.Description())
	}
}

func TestTimelineSpan(t *testing.T) {
	tl, _ := loader.Seed().Find("ancient-wonders")
	if got := timelineSpan(tl.Events); got != "2560 BC – 280 BC" {
		t.Errorf("span = %q", got)
	}
	if got := timelineSpan(nil); got != "" {
		t.Errorf("empty span = %q", got)
	}
	if got := yearWidth(tl.Events); got != 7 {
		t.Errorf("yearWidth = %d, want 7", got)
	}
}

func TestDelegateRender(t *testing.T) {
	ws := loader.Seed()
	d := TimelineDelegate{Theme: testTheme()}
	l := list.New(timelineItems(ws), d, 100, 30)

	var buf bytes.Buffer
	d.Render(&buf, l, 0, l.Items()[0])
	if !strings.Contains(buf.String(), ws[0].Title) {
		t.Errorf("row missing title:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "HIST") {
		t.Errorf("row missing category badge:\n%s", buf.String())
	}
}

func TestChatPanelHistoryExcludesWelcome(t *testing.T) {
	c := NewChatPanel(testTheme())
	c.SetSize(40, 20)
	if len(c.Messages()) != 1 || len(c.History()) != 0 {
		t.Fatal("new panel holds only the welcome message")
	}

	history := c.Send("When did Apollo 11 land?")
	if len(history) != 0 {
		t.Error("history before the first question should be empty")
	}
	if !c.Typing() {
		t.Error("panel should be waiting")
	}
	c.Receive("July 20, 1969.")
	if c.Typing() {
		t.Error("reply should clear the waiting state")
	}
	if got := c.History(); len(got) != 2 || got[0].Role != model.RoleUser || got[1].Role != model.RoleModel {
		t.Errorf("history = %+v", got)
	}

	c.Clear()
	if len(c.Messages()) != 1 || c.Messages()[0].Text != chatClearedMsg {
		t.Errorf("after clear = %+v", c.Messages())
	}
	if len(c.History()) != 1 {
		t.Error("the cleared notice is part of the history")
	}
}

func TestChatPanelSubmit(t *testing.T) {
	c := NewChatPanel(testTheme())
	if _, _, ok := c.Submit(); ok {
		t.Error("blank input must not submit")
	}
	c.input.SetValue("  hello  ")
	text, _, ok := c.Submit()
	if !ok || text != "hello" {
		t.Fatalf("Submit = %q, %v", text, ok)
	}
	if c.input.Value() != "" {
		t.Error("input should be cleared")
	}
	c.input.SetValue("again")
	if _, _, ok := c.Submit(); ok {
		t.Error("cannot submit while a reply is pending")
	}
}

func TestDebateMarkdown(t *testing.T) {
	d := &model.DebateData{
		Topic:        "Should the pyramid be built?",
		Perspectives: []model.Perspective{{Name: "Hemiunu", Role: "Vizier", Summary: "For", Argument: "It honors Khufu."}},
		Exchanges:    []model.Exchange{{Speaker: "Hemiunu", Text: "Stone by stone."}},
		Questions:    []string{"Who built it?"},
	}
	md := debateMarkdown(d)
	for _, want := range []string{
		"# Should the pyramid be built?",
		"**Hemiunu** (*Vizier*): For",
		"> It honors Khufu.",
		"**Hemiunu:** Stone by stone.",
		"1. Who built it?",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}
	if debateMarkdown(nil) != "" {
		t.Error("nil debate renders nothing")
	}
}

func TestDebateViewQuestion(t *testing.T) {
	v := NewDebateView(model.TimelineEvent{ID: "1", Title: "Great Pyramid of Giza", Year: "2560 BC"}, testTheme())
	if _, ok := v.Question(1); ok {
		t.Error("no questions while loading")
	}
	v.SetSize(80, 20)
	v.SetData(&model.DebateData{Topic: "t", Questions: []string{"a", "b"}}, nil)
	if q, ok := v.Question(2); !ok || q != "b" {
		t.Errorf("Question(2) = %q, %v", q, ok)
	}
	if _, ok := v.Question(3); ok {
		t.Error("Question(3) out of range")
	}
	if !strings.Contains(v.View("."), "Great Pyramid of Giza") {
		t.Error("header missing event title")
	}
}

func TestWhatIfModalDefaults(t *testing.T) {
	w := NewWhatIfModal(testTheme())
	if w.Category() != model.CategoryHistorical {
		t.Errorf("default category = %q", w.Category())
	}
	if w.Completed() || w.Aborted() {
		t.Error("new form should be in progress")
	}
	w.values.prompt = "  The Space Race timeline  "
	if w.Prompt() != "The Space Race timeline" {
		t.Errorf("Prompt = %q", w.Prompt())
	}
	if got := Suggestions(model.CategoryAlternate); len(got) != 4 || !strings.HasPrefix(got[0], "What if") {
		t.Errorf("alternate suggestions = %q", got)
	}
	if got := Suggestions(model.CategoryHistorical); got[3] != "The Space Race timeline" {
		t.Errorf("historical suggestions = %q", got)
	}
}

func TestAdminPanelLocked(t *testing.T) {
	store := admin.NewMemoryStore("pw")
	p := NewAdminPanel(store, testTheme())
	if p.Authorized() {
		t.Fatal("panel starts locked")
	}
	if strings.Contains(p.View(80), "Total AI calls") {
		t.Error("stats must not show while locked")
	}
	store.RecordCall("llama3.2", "Chat Message")
	p.password.SetValue("pw")
	p, _ = p.Update(keyEnter())
	if !p.Authorized() || p.Stats().TotalCalls != 1 {
		t.Fatalf("authorized=%v stats=%+v", p.Authorized(), p.Stats())
	}
	p, _ = p.Update(keyRunes("l"))
	if p.Authorized() {
		t.Error("l should lock the panel")
	}
}
