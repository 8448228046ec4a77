package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/curiousdates/internal/datasource"
	"github.com/vanderheijden86/curiousdates/pkg/admin"
	"github.com/vanderheijden86/curiousdates/pkg/chrono"
	"github.com/vanderheijden86/curiousdates/pkg/config"
	"github.com/vanderheijden86/curiousdates/pkg/correlation"
	"github.com/vanderheijden86/curiousdates/pkg/debug"
	"github.com/vanderheijden86/curiousdates/pkg/genai"
	"github.com/vanderheijden86/curiousdates/pkg/loader"
	"github.com/vanderheijden86/curiousdates/pkg/metrics"
	"github.com/vanderheijden86/curiousdates/pkg/model"
	"github.com/vanderheijden86/curiousdates/pkg/navigator"
	"github.com/vanderheijden86/curiousdates/pkg/watcher"
)

// ViewMode is the main screen being shown.
type ViewMode int

const (
	ViewPicker ViewMode = iota
	ViewTimeline
	ViewDebate
)

func (v ViewMode) String() string {
	switch v {
	case ViewTimeline:
		return "timeline"
	case ViewDebate:
		return "debate"
	default:
		return "picker"
	}
}

const chatWidth = 44

// FileChangedMsg is sent when the timelines path changes on disk
type FileChangedMsg struct{}

// WatchFileCmd returns a command that waits for file changes and sends FileChangedMsg
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		<-w.Changed()
		return FileChangedMsg{}
	}
}

// travelTickMsg drives one frame of the travel animation. seq ties the tick
// to the transition that scheduled it so ticks from a cancelled transition
// are dropped.
type travelTickMsg struct{ seq int }

// reloadedMsg carries a freshly loaded working set.
type reloadedMsg struct {
	ws       model.WorkingSet
	warnings []string
	err      error
}

type timelineGeneratedMsg struct {
	timeline *model.Timeline
	saveErr  error
	err      error
}

type debateMsg struct {
	eventID string
	data    *model.DebateData
	err     error
}

type answerMsg struct {
	eventID string
	answer  string
}

type chatReplyMsg struct{ text string }

// Options wires the model to its collaborators. Only Config and WorkingSet
// are required; nil collaborators disable the features that need them.
type Options struct {
	Config     config.Config
	WorkingSet model.WorkingSet
	DataPath   string
	AI         *genai.Service
	Admin      admin.Store
	Library    *datasource.Library
	Watcher    *watcher.Watcher
	Context    context.Context
	Renderer   *lipgloss.Renderer
	Now        func() time.Time
}

// Model is the main Bubble Tea model for cdv.
type Model struct {
	cfg      config.Config
	ws       model.WorkingSet
	dataPath string
	ai       *genai.Service
	store    admin.Store
	lib      *datasource.Library
	watcher  *watcher.Watcher
	ctx      context.Context
	now      func() time.Time

	// generated holds timelines generated this session when there is no
	// library to persist them, so a reload keeps them.
	generated model.WorkingSet

	theme  Theme
	list   list.Model
	mode   ViewMode
	width  int
	height int
	ready  bool

	// Timeline view
	timeline    model.Timeline
	nav         *navigator.Navigator
	maxGap      int
	travelSeq   int
	displayYear int
	progress    float64
	parallels   []correlation.Parallel
	related     []correlation.Related
	pendingJump string // "p" or "r" while waiting for a digit
	gaps        []chrono.Gap

	// Ask about this event
	asking     bool
	askInput   textinput.Model
	question   string
	answer     string
	answerFor  string
	askPending bool

	debate DebateView

	chat     ChatPanel
	chatOpen bool

	whatIf     WhatIfModal
	showWhatIf bool
	generating bool

	adminPanel AdminPanel
	showAdmin  bool

	showHelp bool
	spinner  spinner.Model
	busy     int

	statusMsg     string
	statusIsError bool
}

// NewModel creates the UI model over the given working set.
func NewModel(opts Options) Model {
	r := opts.Renderer
	if r == nil {
		r = NewRenderer(opts.Config.UI.Theme)
	}
	theme := DefaultTheme(r)

	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	l := list.New(timelineItems(opts.WorkingSet), TimelineDelegate{Theme: theme}, 0, 0)
	l.Title = "Curious Dates"
	l.Styles.Title = theme.Header
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)
	l.DisableQuitKeybindings()
	l.SetStatusBarItemName("timeline", "timelines")

	ask := textinput.New()
	ask.Placeholder = "Ask a question about this event..."
	ask.Prompt = "? "
	ask.CharLimit = 300

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.PrimaryBold

	return Model{
		cfg:      opts.Config,
		ws:       opts.WorkingSet,
		dataPath: opts.DataPath,
		ai:       opts.AI,
		store:    opts.Admin,
		lib:      opts.Library,
		watcher:  opts.Watcher,
		ctx:      ctx,
		now:      now,
		theme:    theme,
		list:     l,
		askInput: ask,
		chat:     NewChatPanel(theme),
		spinner:  sp,
	}
}

func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	if m.watcher != nil {
		cmds = append(cmds, WatchFileCmd(m.watcher))
	}
	return tea.Batch(cmds...)
}

// Accessors used by cmd/cdv and tests.

func (m Model) Mode() ViewMode                  { return m.mode }
func (m Model) WorkingSet() model.WorkingSet    { return m.ws }
func (m Model) Timeline() model.Timeline        { return m.timeline }
func (m Model) Navigator() *navigator.Navigator { return m.nav }
func (m Model) DisplayedYear() int              { return m.displayYear }
func (m Model) Status() (string, bool)          { return m.statusMsg, m.statusIsError }
func (m Model) ChatOpen() bool                  { return m.chatOpen }
func (m Model) Chat() ChatPanel                 { return m.chat }
func (m Model) Debate() DebateView              { return m.debate }
func (m Model) Answer() string                  { return m.answer }
func (m Model) ShowingAdmin() bool              { return m.showAdmin }
func (m Model) ShowingWhatIf() bool             { return m.showWhatIf }
func (m Model) ShowingHelp() bool               { return m.showHelp }

// Travelling reports whether a transition is in flight.
func (m Model) Travelling() bool {
	return m.nav != nil && m.nav.Phase() == navigator.Travelling
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.statusMsg = msg
	m.statusIsError = isErr
}

func (m *Model) startBusy() tea.Cmd {
	m.busy++
	if m.busy == 1 {
		return m.spinner.Tick
	}
	return nil
}

func (m *Model) stopBusy() {
	if m.busy > 0 {
		m.busy--
	}
}

func (m Model) mainWidth() int {
	if m.chatOpen && m.mode != ViewPicker {
		return max(m.width-chatWidth, 20)
	}
	return m.width
}

func (m *Model) resize() {
	m.list.SetSize(m.width, max(m.height-2, 5))
	m.debate.SetSize(m.mainWidth(), max(m.height-4, 5))
	m.chat.SetSize(chatWidth, max(m.height-1, 8))
	m.askInput.Width = max(m.mainWidth()-8, 10)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	// Handle the what-if form before the type switch: huh.Form needs to
	// receive ALL message types for its internal field navigation.
	if m.showWhatIf {
		if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
			m.showWhatIf = false
			return m, nil
		}
		m.whatIf, cmd = m.whatIf.Update(msg)
		cmds = append(cmds, cmd)
		switch {
		case m.whatIf.Aborted():
			m.showWhatIf = false
		case m.whatIf.Completed():
			m.showWhatIf = false
			cmds = append(cmds, m.beginGenerate(m.whatIf.Prompt(), m.whatIf.Category()))
		}
		if _, isKey := msg.(tea.KeyMsg); isKey {
			return m, tea.Batch(cmds...)
		}
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()

	case spinner.TickMsg:
		if m.busy > 0 {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case travelTickMsg:
		if msg.seq == m.travelSeq && m.Travelling() {
			cmds = append(cmds, m.stepTravel())
		}

	case FileChangedMsg:
		debug.Log("ui: change detected under %s", m.dataPath)
		cmds = append(cmds, m.reloadCmd())
		if m.watcher != nil {
			cmds = append(cmds, WatchFileCmd(m.watcher))
		}

	case reloadedMsg:
		m.applyReload(msg)

	case timelineGeneratedMsg:
		m.stopBusy()
		m.generating = false
		m.applyGenerated(msg)

	case debateMsg:
		m.stopBusy()
		if m.mode == ViewDebate && m.debate.Event().ID == msg.eventID && m.debate.Loading() {
			m.debate.SetData(msg.data, msg.err)
		}
		if msg.err != nil {
			debug.Log("ui: debate failed: %v", msg.err)
			m.setStatus(aiErrorStatus(msg.err, "Could not generate the debate"), true)
		}

	case answerMsg:
		m.stopBusy()
		m.askPending = false
		if m.nav != nil && m.nav.Selection().ID == msg.eventID {
			m.answer = msg.answer
			m.answerFor = msg.eventID
		}

	case chatReplyMsg:
		m.stopBusy()
		m.chat.Receive(msg.text)

	case tea.KeyMsg:
		return m.handleKey(msg)

	default:
		if m.showAdmin {
			m.adminPanel, cmd = m.adminPanel.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	key := msg.String()

	if key == "ctrl+c" {
		return m, tea.Quit
	}

	// Nothing but leaving is accepted while travelling.
	if m.Travelling() {
		if key == "esc" {
			m.nav.Cancel()
			m.travelSeq++
			m.leaveTimeline()
		}
		return m, nil
	}

	if m.showHelp {
		if key == "?" || key == "esc" || key == "q" {
			m.showHelp = false
		}
		return m, nil
	}

	if m.showAdmin {
		if key == "esc" {
			m.showAdmin = false
			return m, nil
		}
		m.adminPanel, cmd = m.adminPanel.Update(msg)
		return m, cmd
	}

	if m.asking {
		return m.handleAskKey(msg)
	}

	if m.chatOpen && m.chat.Focused() {
		return m.handleChatKey(msg)
	}

	switch m.mode {
	case ViewPicker:
		return m.handlePickerKey(msg)
	case ViewDebate:
		return m.handleDebateKey(msg)
	default:
		return m.handleTimelineKey(msg)
	}
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	// While the filter input is open every key belongs to it.
	if m.list.FilterState() == list.Filtering {
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "?":
		m.showHelp = true
		return m, nil
	case "enter":
		if item, ok := m.list.SelectedItem().(TimelineItem); ok {
			m.openTimeline(item.Timeline)
		}
		return m, nil
	case "g":
		return m.openWhatIf()
	case "A":
		return m.openAdmin()
	case "D":
		return m.deleteSelected()
	}

	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleTimelineKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.pendingJump != "" {
		kind := m.pendingJump
		m.pendingJump = ""
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			m.jumpTo(kind, int(key[0]-'0'))
			return m, nil
		}
		m.setStatus("", false)
		if key == "esc" {
			return m, nil
		}
	}

	switch key {
	case "j", "down", "l", "right":
		return m.startTravel(1)
	case "k", "up", "h", "left":
		return m.startTravel(-1)
	case "p", "r":
		if len(m.jumpTargets(key)) == 0 {
			m.setStatus("Nothing to jump to", false)
			return m, nil
		}
		m.pendingJump = key
		label := "parallel"
		if key == "r" {
			label = "related event"
		}
		m.setStatus(fmt.Sprintf("Jump to %s: press 1-%d", label, len(m.jumpTargets(key))), false)
		return m, nil
	case "a":
		if m.ai == nil {
			m.setStatus("AI backend not configured", true)
			return m, nil
		}
		m.asking = true
		m.askInput.SetValue("")
		return m, m.askInput.Focus()
	case "d":
		return m.openDebate()
	case "c":
		return m.toggleChat()
	case "y":
		m.copySelection()
		return m, nil
	case "g":
		return m.openWhatIf()
	case "A":
		return m.openAdmin()
	case "?":
		m.showHelp = true
		return m, nil
	case "esc", "q", "backspace":
		m.leaveTimeline()
		return m, nil
	}
	return m, nil
}

func (m Model) handleDebateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "esc", "q", "backspace":
		m.mode = ViewTimeline
		return m, nil
	case "c":
		return m.toggleChat()
	case "?":
		m.showHelp = true
		return m, nil
	}
	if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
		if q, ok := m.debate.Question(int(key[0] - '0')); ok {
			return m.askInChat(q)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.debate, cmd = m.debate.Update(msg)
	return m, cmd
}

func (m Model) handleAskKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.asking = false
		m.askInput.Blur()
		return m, nil
	case "enter":
		q := m.askInput.Value()
		m.asking = false
		m.askInput.Blur()
		if q == "" || m.nav == nil {
			return m, nil
		}
		ev := m.nav.Selection()
		m.question = q
		m.answer = ""
		m.askPending = true
		return m, tea.Batch(m.startBusy(), m.askCmd(ev, q))
	}
	var cmd tea.Cmd
	m.askInput, cmd = m.askInput.Update(msg)
	return m, cmd
}

func (m Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.chat.Blur()
		m.chatOpen = false
		m.resize()
		return m, nil
	case "tab":
		m.chat.Blur()
		return m, nil
	case "ctrl+l":
		m.chat.Clear()
		return m, nil
	case "enter":
		text, history, ok := m.chat.Submit()
		if !ok {
			return m, nil
		}
		return m, tea.Batch(m.startBusy(), m.chatCmd(history, text))
	}
	var cmd tea.Cmd
	m.chat, cmd = m.chat.Update(msg)
	return m, cmd
}

// --- timeline navigation ------------------------------------------------------

// openTimeline shows tl with its first event selected.
func (m *Model) openTimeline(tl model.Timeline) {
	if len(tl.Events) == 0 {
		m.setStatus(fmt.Sprintf("%s has no events", tl.Title), true)
		return
	}
	m.openTimelineAt(tl, tl.Events[0])
}

func (m *Model) openTimelineAt(tl model.Timeline, ev model.TimelineEvent) {
	m.timeline = tl
	m.nav = navigator.New(ev)
	m.maxGap = chrono.MaxAdjacentGap(tl.Events)
	m.gaps = chrono.Gaps(tl.Events)
	m.mode = ViewTimeline
	m.pendingJump = ""
	m.setStatus("", false)
	m.onSelectionChanged()
}

func (m *Model) leaveTimeline() {
	m.mode = ViewPicker
	m.nav = nil
	m.timeline = model.Timeline{}
	m.parallels = nil
	m.related = nil
	m.pendingJump = ""
	m.asking = false
	m.answer = ""
	m.chatOpen = false
	m.chat.Blur()
	m.resize()
}

// onSelectionChanged recomputes everything derived from the committed event.
func (m *Model) onSelectionChanged() {
	ev := m.nav.Selection()
	m.displayYear = chrono.ParseYear(ev.Year)
	m.progress = 1
	m.parallels = correlation.FindParallels(ev, m.timeline.ID, m.ws)
	m.related = correlation.FindRelated(ev, m.timeline.ID, m.ws)
	if m.answerFor != ev.ID {
		m.answer = ""
		m.question = ""
	}
}

func (m Model) startTravel(delta int) (tea.Model, tea.Cmd) {
	if m.nav == nil {
		return m, nil
	}
	from := m.nav.Selection()
	to, ok := m.timeline.Adjacent(from.ID, delta)
	if !ok {
		return m, nil
	}

	if !m.cfg.Navigator.Enabled {
		m.nav.Select(to)
		m.onSelectionChanged()
		return m, nil
	}

	plan, ok := m.nav.Begin(from, to, m.maxGap, m.now())
	if !ok {
		return m, nil
	}
	if plan.Immediate {
		m.onSelectionChanged()
		return m, nil
	}
	debug.Log("ui: travel %s -> %s over %v", from.Year, to.Year, plan.Duration)
	m.travelSeq++
	m.displayYear = plan.StartYear
	m.progress = 0
	m.pendingJump = ""
	return m, m.travelTick()
}

func (m Model) travelTick() tea.Cmd {
	seq := m.travelSeq
	return tea.Tick(m.cfg.FrameInterval(), func(time.Time) tea.Msg {
		return travelTickMsg{seq: seq}
	})
}

// stepTravel advances the animation one frame and schedules the next one
// until the target is committed.
func (m *Model) stepTravel() tea.Cmd {
	f := m.nav.Step(m.now())
	m.displayYear = f.DisplayedYear
	m.progress = f.Progress
	if f.Committed != nil {
		// Pick up the reloaded copy of the target; fall back to the first
		// event if it no longer exists.
		ev, ok := m.timeline.Event(f.Committed.ID)
		if !ok {
			m.openTimeline(m.timeline)
			return nil
		}
		m.nav.Select(ev)
		m.onSelectionChanged()
		return nil
	}
	return m.travelTick()
}

func (m Model) jumpTargets(kind string) []model.Timeline {
	var out []model.Timeline
	if kind == "p" {
		for _, p := range m.parallels {
			out = append(out, p.Timeline)
		}
		return out
	}
	for _, r := range m.related {
		out = append(out, r.Timeline)
	}
	return out
}

// jumpTo switches to the n-th (1-based) parallel or related event's timeline
// with that event selected.
func (m *Model) jumpTo(kind string, n int) {
	var tl model.Timeline
	var ev model.TimelineEvent
	switch {
	case kind == "p" && n <= len(m.parallels):
		tl, ev = m.parallels[n-1].Timeline, m.parallels[n-1].Event
	case kind == "r" && n <= len(m.related):
		tl, ev = m.related[n-1].Timeline, m.related[n-1].Event
	default:
		m.setStatus(fmt.Sprintf("No entry %d", n), true)
		return
	}
	m.openTimelineAt(tl, ev)
	m.setStatus(fmt.Sprintf("Jumped to %s · %s", ev.Year, tl.Title), false)
}

func (m *Model) copySelection() {
	if m.nav == nil {
		return
	}
	ev := m.nav.Selection()
	text := fmt.Sprintf("%s: %s\n\n%s\n\n(%s)", ev.Year, ev.Title, ev.Description, m.timeline.Title)
	if err := clipboard.WriteAll(text); err != nil {
		m.setStatus(fmt.Sprintf("Clipboard error: %v", err), true)
		return
	}
	m.setStatus(fmt.Sprintf("Copied %q to clipboard", ev.Title), false)
}

// --- overlays -------------------------------------------------------------

func (m Model) openWhatIf() (tea.Model, tea.Cmd) {
	if m.ai == nil {
		m.setStatus("AI backend not configured", true)
		return m, nil
	}
	if m.generating {
		m.setStatus("A timeline is already being generated", false)
		return m, nil
	}
	m.whatIf = NewWhatIfModal(m.theme)
	m.showWhatIf = true
	return m, m.whatIf.Init()
}

func (m Model) openAdmin() (tea.Model, tea.Cmd) {
	if m.store == nil {
		m.setStatus("Admin store not available", true)
		return m, nil
	}
	m.adminPanel = NewAdminPanel(m.store, m.theme)
	m.showAdmin = true
	return m, m.adminPanel.Init()
}

func (m Model) openDebate() (tea.Model, tea.Cmd) {
	if m.ai == nil {
		m.setStatus("AI backend not configured", true)
		return m, nil
	}
	if m.nav == nil {
		return m, nil
	}
	ev := m.nav.Selection()
	m.debate = NewDebateView(ev, m.theme)
	m.debate.SetSize(m.mainWidth(), max(m.height-4, 5))
	m.mode = ViewDebate
	return m, tea.Batch(m.startBusy(), m.debateCmd(ev))
}

func (m Model) toggleChat() (tea.Model, tea.Cmd) {
	if m.chatOpen && !m.chat.Focused() {
		return m, m.chat.Focus()
	}
	m.chatOpen = !m.chatOpen
	m.resize()
	if m.chatOpen {
		return m, m.chat.Focus()
	}
	m.chat.Blur()
	return m, nil
}

// askInChat opens the chat and sends text as if the user typed it.
func (m Model) askInChat(text string) (tea.Model, tea.Cmd) {
	if m.chat.Typing() {
		return m, nil
	}
	m.chatOpen = true
	m.resize()
	focus := m.chat.Focus()
	history := m.chat.Send(text)
	return m, tea.Batch(focus, m.startBusy(), m.chatCmd(history, text))
}

func (m Model) deleteSelected() (tea.Model, tea.Cmd) {
	item, ok := m.list.SelectedItem().(TimelineItem)
	if !ok {
		return m, nil
	}
	tl := item.Timeline
	if !tl.IsGenerated {
		m.setStatus("Only generated timelines can be deleted", true)
		return m, nil
	}
	if m.lib != nil {
		if err := m.lib.Delete(m.ctx, tl.ID); err != nil && !errors.Is(err, datasource.ErrNotFound) {
			m.setStatus(fmt.Sprintf("Delete failed: %v", err), true)
			return m, nil
		}
	}
	m.generated = removeTimeline(m.generated, tl.ID)
	m.setWorkingSet(removeTimeline(m.ws, tl.ID))
	m.setStatus(fmt.Sprintf("Deleted %s", tl.Title), false)
	return m, nil
}

func removeTimeline(ws model.WorkingSet, id string) model.WorkingSet {
	out := make(model.WorkingSet, 0, len(ws))
	for _, tl := range ws {
		if tl.ID != id {
			out = append(out, tl)
		}
	}
	return out
}

// --- working set updates -----------------------------------------------------

func (m *Model) setWorkingSet(ws model.WorkingSet) {
	m.ws = ws
	m.list.SetItems(timelineItems(ws))
}

func (m *Model) applyReload(msg reloadedMsg) {
	if msg.err != nil {
		m.setStatus(fmt.Sprintf("Reload failed: %v", msg.err), true)
		return
	}
	ws := msg.ws
	if m.lib == nil && len(m.generated) > 0 {
		ws = datasource.Merge(m.generated, ws, loader.Options{WarningHandler: func(w string) {
			msg.warnings = append(msg.warnings, w)
		}})
	}
	diff := datasource.Diff(m.ws, ws)
	metrics.Reloads.Inc()
	debug.Log("ui: %s", diff.Summary())
	m.setWorkingSet(ws)

	status := diff.Summary()
	if n := len(msg.warnings); n > 0 {
		status += fmt.Sprintf(" · %d warnings", n)
	}
	m.setStatus(status, false)

	if m.mode == ViewPicker {
		return
	}
	tl, ok := ws.Find(m.timeline.ID)
	if !ok {
		if m.nav != nil {
			m.nav.Cancel()
		}
		m.leaveTimeline()
		m.setStatus(status+" · current timeline removed", true)
		return
	}
	m.timeline = tl
	m.maxGap = chrono.MaxAdjacentGap(tl.Events)
	m.gaps = chrono.Gaps(tl.Events)
	if plan, ok := m.nav.Current(); ok {
		if _, still := tl.Event(plan.To.ID); still {
			// The in-flight target commits on its own; correlations refresh then.
			return
		}
		m.nav.Cancel()
		status += " · travel target removed"
		m.setStatus(status, true)
	}
	if ev, ok := tl.Event(m.nav.Selection().ID); ok {
		m.nav.Select(ev)
		m.onSelectionChanged()
	} else {
		m.openTimeline(tl)
	}
}

func (m *Model) applyGenerated(msg timelineGeneratedMsg) {
	if msg.err != nil {
		debug.Log("ui: generation failed: %v", msg.err)
		m.setStatus(aiErrorStatus(msg.err, generationFailedMsg), true)
		return
	}
	tl := *msg.timeline
	if m.lib == nil {
		m.generated = m.generated.Prepend(tl)
	}
	m.setWorkingSet(m.ws.Prepend(tl))
	m.list.Select(0)
	m.openTimeline(tl)
	if msg.saveErr != nil {
		m.setStatus(fmt.Sprintf("Generated %s but could not save it: %v", tl.Title, msg.saveErr), true)
		return
	}
	m.setStatus(fmt.Sprintf("Generated %s", tl.Title), false)
}

func aiErrorStatus(err error, fallback string) string {
	if errors.Is(err, admin.ErrSystemPaused) {
		return "AI features are paused by the administrator"
	}
	return fallback
}

// --- commands --------------------------------------------------------------

func (m *Model) beginGenerate(prompt string, category model.Category) tea.Cmd {
	if prompt == "" {
		return nil
	}
	m.generating = true
	m.setStatus(fmt.Sprintf("Generating %q...", prompt), false)
	return tea.Batch(m.startBusy(), m.generateCmd(prompt, category))
}

func (m Model) generateCmd(prompt string, category model.Category) tea.Cmd {
	svc, lib, base, timeout := m.ai, m.lib, m.ctx, m.cfg.AITimeout()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(base, timeout)
		defer cancel()
		tl, err := svc.GenerateTimeline(ctx, prompt, category)
		if err != nil {
			return timelineGeneratedMsg{err: err}
		}
		var saveErr error
		if lib != nil {
			saveErr = lib.Save(base, *tl)
		}
		return timelineGeneratedMsg{timeline: tl, saveErr: saveErr}
	}
}

func (m Model) debateCmd(ev model.TimelineEvent) tea.Cmd {
	svc, base, timeout := m.ai, m.ctx, m.cfg.AITimeout()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(base, timeout)
		defer cancel()
		data, err := svc.GenerateDebate(ctx, ev.Title, ev.Description)
		return debateMsg{eventID: ev.ID, data: data, err: err}
	}
}

func (m Model) askCmd(ev model.TimelineEvent, question string) tea.Cmd {
	svc, base, timeout := m.ai, m.ctx, m.cfg.AITimeout()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(base, timeout)
		defer cancel()
		return answerMsg{eventID: ev.ID, answer: svc.AskAboutEvent(ctx, ev.Title, ev.Description, question)}
	}
}

func (m Model) chatCmd(history []model.ChatMessage, text string) tea.Cmd {
	if m.ai == nil {
		return func() tea.Msg { return chatReplyMsg{text: genai.ReplyChatFailed} }
	}
	svc, base, timeout := m.ai, m.ctx, m.cfg.AITimeout()
	chatContext := m.chatContext().String()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(base, timeout)
		defer cancel()
		return chatReplyMsg{text: svc.Chat(ctx, history, chatContext, text)}
	}
}

func (m Model) reloadCmd() tea.Cmd {
	path, lib, base := m.dataPath, m.lib, m.ctx
	return func() tea.Msg {
		var warnings []string
		opts := loader.Options{WarningHandler: func(w string) { warnings = append(warnings, w) }}
		ws, err := datasource.LoadWorkingSet(base, path, lib, opts)
		return reloadedMsg{ws: ws, warnings: warnings, err: err}
	}
}

// chatContext describes what is on screen for the assistant.
func (m Model) chatContext() genai.ChatContext {
	var c genai.ChatContext
	if m.mode == ViewPicker || m.nav == nil {
		return c
	}
	tl := m.timeline
	c.Timeline = &tl
	ev := m.nav.Selection()
	c.EventID = ev.ID
	if m.mode == ViewDebate {
		c.Debating = true
		debated := m.debate.Event()
		c.DebateEvent = &debated
	}
	return c
}
