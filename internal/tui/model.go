// Package tui hosts the interactive demo for the attune engine. It binds a
// large synthetic list to the windowed renderer, loads row details through
// the task scheduler with cache memoization, and keeps the optimizer fed
// with UI timing so its rules have something to react to.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/attunedev/attune/internal/cache"
	"github.com/attunedev/attune/internal/event"
	"github.com/attunedev/attune/internal/logging"
	"github.com/attunedev/attune/internal/metrics"
	"github.com/attunedev/attune/internal/optimizer"
	"github.com/attunedev/attune/internal/scheduler"
	"github.com/attunedev/attune/internal/tui/styles"
	"github.com/attunedev/attune/internal/window"
)

// tickInterval paces dispatcher drains and status refreshes.
const tickInterval = 100 * time.Millisecond

// drainBatch bounds how many queued callbacks run per tick so a burst of
// completions cannot stall the UI loop.
const drainBatch = 64

// Deps are the engine components the demo host runs against. Cache,
// Scheduler, Optimizer, Dispatcher, and Bus are required; Metrics and
// Logger may be nil.
type Deps struct {
	Cache      *cache.Cache
	Scheduler  *scheduler.Scheduler
	Optimizer  *optimizer.Optimizer
	Dispatcher *event.Dispatcher
	Bus        *event.Bus
	Metrics    *metrics.Recorder
	Logger     *logging.Logger

	// Items is the synthetic dataset size. Defaults to 10000.
	Items int
	// WindowCfg configures the list renderer. Bus and Logger are filled
	// in from the deps above when unset.
	WindowCfg window.Config
}

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding
	Open     key.Binding
	Optimize key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Open, k.Optimize, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Home, k.End},
		{k.Open, k.Optimize, k.Help, k.Quit},
	}
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		PageUp:   key.NewBinding(key.WithKeys("pgup", "ctrl+b"), key.WithHelp("pgup", "page up")),
		PageDown: key.NewBinding(key.WithKeys("pgdown", "ctrl+f"), key.WithHelp("pgdn", "page down")),
		Home:     key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "top")),
		End:      key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "bottom")),
		Open:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "load detail")),
		Optimize: key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "optimize now")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// tickMsg drives the periodic drain/refresh cycle.
type tickMsg time.Time

// detailMsg carries a finished (or failed) detail load back to Update.
type detailMsg struct {
	recordID int
	taskID   string
	detail   string
	err      error
}

// Model is the bubbletea model for the demo host.
type Model struct {
	deps     Deps
	records  []Record
	renderer *window.Renderer

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	cursor   int
	width    int
	height   int
	ready    bool
	quitting bool

	detail        string
	detailErr     error
	loadingRecord int // 0 when no load is in flight

	lastOptimize optimizer.OptimizeResult
	optimizedAt  time.Time

	logger *logging.Logger
}

// NewModel builds the demo model and binds the dataset to the renderer.
func NewModel(deps Deps) Model {
	if deps.Items <= 0 {
		deps.Items = 10000
	}
	wcfg := deps.WindowCfg
	if wcfg.Bus == nil {
		wcfg.Bus = deps.Bus
	}
	if wcfg.Logger == nil {
		wcfg.Logger = deps.Logger
	}
	renderer := window.New(wcfg)

	logger := deps.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Primary

	m := Model{
		deps:     deps,
		records:  makeRecords(deps.Items),
		renderer: renderer,
		keys:     defaultKeyMap(),
		help:     help.New(),
		spinner:  sp,
		logger:   logger.WithComponent("tui"),
	}

	items := make([]any, len(m.records))
	for i, rec := range m.records {
		items[i] = rec
	}
	renderer.Bind(items, renderRow)

	if deps.Optimizer != nil {
		deps.Optimizer.RegisterRenderer(renderer)
	}
	return m
}

// renderRow materializes one list row. Only rows inside the window plus
// buffer are ever rendered.
func renderRow(_ int, item any) any {
	rec, ok := item.(Record)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s  %-10s %8d KB",
		rec.Name,
		styles.RowCategory.Render(rec.Category),
		rec.Size/1024)
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.spinner.Tick)
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.renderer.SetViewport(m.listHeight())
		m.ready = true
		return m, nil

	case tickMsg:
		start := time.Now()
		if m.deps.Dispatcher != nil {
			m.deps.Dispatcher.Drain(drainBatch)
		}
		if m.deps.Optimizer != nil {
			m.deps.Optimizer.TrackUITurnaround(time.Since(start))
		}
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case detailMsg:
		if msg.recordID == m.loadingRecord {
			m.loadingRecord = 0
			m.detail = msg.detail
			m.detailErr = msg.err
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.PageUp):
		m.moveCursor(-m.pageSize())
	case key.Matches(msg, m.keys.PageDown):
		m.moveCursor(m.pageSize())
	case key.Matches(msg, m.keys.Home):
		m.cursor = 0
		m.renderer.ScrollTo(0)
	case key.Matches(msg, m.keys.End):
		m.cursor = len(m.records) - 1
		m.renderer.ScrollTo(m.cursor)

	case key.Matches(msg, m.keys.Open):
		return m.loadDetail()

	case key.Matches(msg, m.keys.Optimize):
		if m.deps.Optimizer != nil {
			m.lastOptimize = m.deps.Optimizer.ManualOptimize()
			m.optimizedAt = time.Now()
		}

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

// moveCursor shifts the selection and keeps it inside the materialized
// window.
func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= len(m.records) {
		m.cursor = len(m.records) - 1
	}

	start, end := m.renderer.VisibleRange()
	per := m.renderer.Stats().ItemsPerScreen
	switch {
	case m.cursor < start:
		m.renderer.ScrollTo(m.cursor)
	case m.cursor >= end:
		first := m.cursor - per + 1
		if first < 0 {
			first = 0
		}
		m.renderer.ScrollTo(first)
	}
}

// loadDetail resolves the selected record's detail: straight from the
// cache on a hit, otherwise through the scheduler. The identity option
// makes repeated Enter presses on the same row share one task.
func (m Model) loadDetail() (tea.Model, tea.Cmd) {
	if m.deps.Cache == nil || m.deps.Scheduler == nil {
		return m, nil
	}
	rec := m.records[m.cursor]
	key := detailKey(rec.ID)

	if v, ok := m.deps.Cache.Get(key); ok {
		if s, ok := v.(string); ok {
			m.detail = s
			m.detailErr = nil
			m.loadingRecord = 0
			return m, nil
		}
	}

	c := m.deps.Cache
	taskID, err := m.deps.Scheduler.Submit(detailWork(rec),
		scheduler.WithIdentity(key),
		scheduler.WithPriority(scheduler.PriorityHigh),
		scheduler.WithTimeout(5*time.Second),
		scheduler.WithOnComplete(func(result any) {
			c.Put(key, result, cache.WithTTL(5*time.Minute), cache.WithTags("detail"))
		}),
	)
	if err != nil {
		m.detailErr = err
		return m, nil
	}

	m.loadingRecord = rec.ID
	m.detail = ""
	m.detailErr = nil
	m.logger.Debug("detail load submitted", "task_id", taskID, "record", rec.ID)

	sched := m.deps.Scheduler
	return m, func() tea.Msg {
		v, err := sched.Wait(taskID, 10*time.Second)
		msg := detailMsg{recordID: rec.ID, taskID: taskID, err: err}
		if s, ok := v.(string); ok {
			msg.detail = s
		}
		return msg
	}
}

// pageSize is the cursor stride for page up/down.
func (m Model) pageSize() int {
	per := m.renderer.Stats().ItemsPerScreen
	if per < 1 {
		per = 1
	}
	return per
}

// listHeight is the viewport height available to the list after the
// header, status, detail, and help rows.
func (m Model) listHeight() int {
	reserved := 3 + detailHeight
	h := m.height - reserved
	if h < 1 {
		h = 1
	}
	return h
}
