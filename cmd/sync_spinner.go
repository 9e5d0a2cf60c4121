package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/locus-sync/internal/application"
)

type syncFinishedMsg struct {
	result application.SyncResult
	err    error
}

// syncProgress shows a spinner with elapsed time while one reconciliation
// pass runs, then keeps its result.
type syncProgress struct {
	spinner spinner.Model
	started time.Time
	elapsed time.Duration
	pass    tea.Cmd
	result  application.SyncResult
	err     error
	done    bool
}

func newSyncProgress(pass tea.Cmd, started time.Time) syncProgress {
	return syncProgress{
		spinner: spinner.New(
			spinner.WithSpinner(spinner.MiniDot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("43"))),
		),
		started: started,
		pass:    pass,
	}
}

func (m syncProgress) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.pass)
}

func (m syncProgress) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		m.elapsed = time.Since(m.started)
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case syncFinishedMsg:
		m.done = true
		m.result = msg.result
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m syncProgress) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s Syncing active sessions... %s", m.spinner.View(), m.elapsed.Truncate(100*time.Millisecond))
}

func runSyncWithProgress(
	ctx context.Context,
	output io.Writer,
	sync func(context.Context) (application.SyncResult, error),
) (application.SyncResult, error) {
	pass := func() tea.Msg {
		result, err := sync(ctx)
		return syncFinishedMsg{result: result, err: err}
	}

	program := tea.NewProgram(
		newSyncProgress(pass, time.Now()),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)
	final, err := program.Run()
	if err != nil {
		return application.SyncResult{}, fmt.Errorf("run sync progress: %w", err)
	}

	progress, ok := final.(syncProgress)
	if !ok {
		return application.SyncResult{}, fmt.Errorf("unexpected progress model %T", final)
	}
	return progress.result, progress.err
}
