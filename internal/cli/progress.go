package cli

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/qecdec/fusionmatch/pkg/profile"
)

var (
	barDoneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("36"))
	barTodoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	statLineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	headerStyle   = lipgloss.NewStyle().Bold(true)
)

// roundDoneMsg reports one finished benchmark round to the UI.
type roundDoneMsg struct {
	index   int
	seconds float64
	defects int
}

// benchFinishedMsg ends the progress UI.
type benchFinishedMsg struct{ err error }

// progressModel is the bubbletea model of the live benchmark view.
type progressModel struct {
	total   int
	done    int
	last    roundDoneMsg
	started time.Time
	err     error
}

func newProgressModel(total int) progressModel {
	return progressModel{total: total, started: time.Now()}
}

func (m progressModel) Init() tea.Cmd { return nil }

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case roundDoneMsg:
		m.done++
		m.last = msg
		return m, nil
	case benchFinishedMsg:
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m progressModel) View() string {
	const width = 40
	filled := 0
	if m.total > 0 {
		filled = width * m.done / m.total
	}
	bar := barDoneStyle.Render(strings.Repeat("█", filled)) +
		barTodoStyle.Render(strings.Repeat("░", width-filled))
	elapsed := time.Since(m.started).Round(time.Millisecond)
	line := fmt.Sprintf("%s %d/%d rounds", bar, m.done, m.total)
	stats := statLineStyle.Render(fmt.Sprintf("last: %.2fms, %d defects, elapsed %s",
		m.last.seconds*1000, m.last.defects, elapsed))
	return line + "\n" + stats + "\n"
}

// runWithProgress drives run under a live progress display. run
// receives a report callback for each finished round.
func runWithProgress(total int, run func(report func(roundDoneMsg)) error) error {
	p := tea.NewProgram(newProgressModel(total))
	errCh := make(chan error, 1)
	go func() {
		err := run(func(msg roundDoneMsg) { p.Send(msg) })
		errCh <- err
		p.Send(benchFinishedMsg{err: err})
	}()
	if _, err := p.Run(); err != nil {
		return err
	}
	return <-errCh
}

// renderSummary lays out the benchmark statistics as a small table.
func renderSummary(s profile.Summary) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers("rounds", "mean", "stddev", "p50", "p95", "p99").
		Row(
			fmt.Sprintf("%d", s.Rounds),
			fmt.Sprintf("%.3fms", s.Mean*1000),
			fmt.Sprintf("%.3fms", s.StdDev*1000),
			fmt.Sprintf("%.3fms", s.P50*1000),
			fmt.Sprintf("%.3fms", s.P95*1000),
			fmt.Sprintf("%.3fms", s.P99*1000),
		)
	return t.Render()
}
