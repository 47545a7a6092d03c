package status

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bnema/modal-accounts-cli/internal/application"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	DefaultRefresh = 30 * time.Second
	clockStep      = time.Second
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

// Snapshot is one read of the daemon: the overview plus armed grace timers.
type Snapshot struct {
	Overview application.Overview
	Pending  []application.PendingSwitch
}

// FetchFunc loads a fresh snapshot for the watch view.
type FetchFunc func(ctx context.Context) (Snapshot, error)

type WatchOptions struct {
	// Refresh is how often the snapshot is fetched again. The countdown
	// redraws every second in between.
	Refresh      time.Duration
	BalanceScale float64
	Now          func() time.Time
}

type snapshotMsg struct {
	snapshot Snapshot
	err      error
	at       time.Time
}

type clockMsg time.Time

type model struct {
	ctx     context.Context
	fetch   FetchFunc
	refresh time.Duration
	step    time.Duration
	clock   func() time.Time

	snapshot  Snapshot
	loaded    bool
	fetchErr  error
	fetchedAt time.Time
	now       time.Time
	opts      RenderOptions
	styles    styles
}

// newModel builds the one-shot model: it renders the given snapshot once
// and quits.
func newModel(overview application.Overview, opts RenderOptions) model {
	return model{
		snapshot: Snapshot{Overview: overview, Pending: opts.Pending},
		now:      opts.Now,
		opts:     opts,
		styles:   newStyles(),
	}
}

func newWatchModel(ctx context.Context, fetch FetchFunc, opts WatchOptions) model {
	if opts.Refresh <= 0 {
		opts.Refresh = DefaultRefresh
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return model{
		ctx:     ctx,
		fetch:   fetch,
		refresh: opts.Refresh,
		step:    clockStep,
		clock:   opts.Now,
		now:     opts.Now(),
		opts:    RenderOptions{BalanceScale: opts.BalanceScale},
		styles:  newStyles(),
	}
}

func (m model) watching() bool {
	return m.fetch != nil
}

func (m model) Init() tea.Cmd {
	if !m.watching() {
		snapshot := m.snapshot
		return func() tea.Msg {
			return snapshotMsg{snapshot: snapshot}
		}
	}

	return tea.Batch(m.load(), m.tick())
}

func (m model) load() tea.Cmd {
	ctx, fetch, clock := m.ctx, m.fetch, m.clock
	return func() tea.Msg {
		snapshot, err := fetch(ctx)
		return snapshotMsg{snapshot: snapshot, err: err, at: clock()}
	}
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.step, func(t time.Time) tea.Msg {
		return clockMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		if !msg.at.IsZero() {
			m.fetchedAt = msg.at
		}
		if msg.err != nil {
			// Keep showing the last good snapshot.
			m.fetchErr = msg.err
		} else {
			m.snapshot = msg.snapshot
			m.loaded = true
			m.fetchErr = nil
		}
		if !m.watching() {
			return m, tea.Quit
		}
		return m, nil
	case clockMsg:
		m.now = time.Time(msg)
		if !m.fetchedAt.IsZero() && m.now.Sub(m.fetchedAt) >= m.refresh {
			m.fetchedAt = m.now
			return m, tea.Batch(m.load(), m.tick())
		}
		return m, m.tick()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, m.load()
		}
	}

	return m, nil
}

func (m model) View() string {
	if m.watching() && !m.loaded && m.fetchErr == nil {
		return m.styles.empty.Render("Loading...") + "\n"
	}

	opts := m.opts
	opts.Now = m.now
	opts.Pending = m.snapshot.Pending
	view := renderView(m.snapshot.Overview, opts, m.styles)
	if !m.watching() {
		return view
	}

	if m.fetchErr != nil {
		view += "\n" + m.styles.warning.Render(fmt.Sprintf("refresh failed: %v", m.fetchErr))
	}
	return view + "\n" + m.styles.empty.Render("r refresh, q quit") + "\n"
}

// Render draws a snapshot once without touching the terminal.
func Render(overview application.Overview, opts RenderOptions) (string, error) {
	p := tea.NewProgram(
		newModel(overview, opts),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	rendered, ok := finalModel.(model)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}

	return rendered.View(), nil
}

// Watch redraws the status until the user quits or ctx is done.
func Watch(ctx context.Context, in io.Reader, out io.Writer, fetch FetchFunc, opts WatchOptions) error {
	p := tea.NewProgram(
		newWatchModel(ctx, fetch, opts),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)

	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}

	return nil
}
