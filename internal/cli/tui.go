package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/forPelevin/transcut/internal/pipeline"
	"github.com/forPelevin/transcut/internal/transcription"
	"github.com/forPelevin/transcut/internal/types"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))  // cyan
	fileStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))            // pink
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))  // green
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))            // gray
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))            // white
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))            // gray
	errStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")) // red
)

type eventMsg struct{ ev transcription.Event }

type doneMsg struct {
	tr  types.Transcript
	err error
}

type tickMsg time.Time

// transcribeModel renders coordinator events for one media item.
type transcribeModel struct {
	progress progress.Model
	spinner  spinner.Model

	mediaID string
	file    string
	model   string
	stage   string
	percent float64
	start   time.Time
	end     time.Time
	done    bool
	err     error
	words   int
	cancel  context.CancelFunc
}

func newTranscribeModel(mediaID, file, model string, cancel context.CancelFunc) transcribeModel {
	p := progress.New(
		progress.WithScaledGradient("#FF6B6B", "#4ECDC4"),
		progress.WithWidth(50),
	)
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return transcribeModel{
		progress: p,
		spinner:  s,
		mediaID:  mediaID,
		file:     file,
		model:    model,
		stage:    "Preparing...",
		start:    time.Now(),
		cancel:   cancel,
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m transcribeModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

func (m transcribeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.cancel != nil {
				m.cancel()
			}
			m.stage = "Cancelling..."
			return m, nil
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		m.progress = pm.(progress.Model)
		return m, cmd

	case tickMsg:
		if m.done {
			return m, nil
		}
		return m, tickCmd()

	case eventMsg:
		return m, m.applyEvent(msg.ev)

	case doneMsg:
		m.done = true
		m.end = time.Now()
		m.err = msg.err
		m.words = wordCount(msg.tr)
		return m, tea.Quit
	}
	return m, nil
}

// applyEvent updates the stage and bar from one coordinator event.
func (m *transcribeModel) applyEvent(ev transcription.Event) tea.Cmd {
	switch e := ev.(type) {
	case transcription.ModelLoading:
		m.model = e.ModelID
		m.stage = "Loading model..."
		m.percent = 0
	case transcription.ModelProgress:
		m.stage = "Downloading " + e.Progress.File + "..."
		m.percent = e.Progress.Progress
	case transcription.ModelReady:
		m.stage = "Model ready"
		m.percent = 0
	case transcription.ModelFailed:
		m.stage = "Model failed: " + e.Err
	case transcription.Transcribing:
		if e.MediaID != m.mediaID {
			return nil
		}
		m.stage = e.Message
		m.percent = 0
	case transcription.TranscribeProgress:
		if e.MediaID != m.mediaID {
			return nil
		}
		m.percent = e.Percent
	case transcription.Completed:
		if e.MediaID != m.mediaID {
			return nil
		}
		m.stage = "Finishing..."
		m.percent = 100
	case transcription.Failed:
		if e.MediaID != m.mediaID {
			return nil
		}
		m.stage = "Failed: " + e.Err
	default:
		return nil
	}
	return m.progress.SetPercent(m.percent / 100)
}

func (m transcribeModel) elapsed() time.Duration {
	if m.end.IsZero() {
		return time.Since(m.start)
	}
	return m.end.Sub(m.start)
}

func (m transcribeModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("\n  %s Transcription failed: %v\n\n", errStyle.Render("✗"), m.err)
	}
	if m.done {
		return fmt.Sprintf("\n  %s %s\n  %s %s\n  %s %s\n  %s %d\n\n",
			successStyle.Render("✓"),
			titleStyle.Render("Transcription complete"),
			labelStyle.Render("Elapsed:"),
			valueStyle.Render(formatDurationTUI(m.elapsed())),
			labelStyle.Render("Model:"),
			valueStyle.Render(m.model),
			labelStyle.Render("Words:"),
			m.words,
		)
	}

	var b strings.Builder
	b.WriteString("\n")
	fmt.Fprintf(&b, "  %s %s\n", m.spinner.View(), titleStyle.Render(m.stage))
	fmt.Fprintf(&b, "  %s %s\n", labelStyle.Render("File:"), fileStyle.Render(m.file))
	fmt.Fprintf(&b, "  %s %s\n\n", labelStyle.Render("Model:"), valueStyle.Render(m.model))
	fmt.Fprintf(&b, "  %s\n\n", m.progress.View())
	fmt.Fprintf(&b, "  %s %.0f%%  %s  %s %s\n",
		labelStyle.Render("Progress:"),
		m.percent,
		labelStyle.Render("│"),
		labelStyle.Render("Elapsed:"),
		valueStyle.Render(formatDurationTUI(m.elapsed())),
	)
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("  Press q to cancel"))
	b.WriteString("\n")
	return b.String()
}

func formatDurationTUI(d time.Duration) string {
	d = d.Round(time.Second)
	m := d / time.Minute
	s := (d % time.Minute) / time.Second
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// runTranscribeTUI runs fn while a progress view follows the coordinator.
// It returns fn's result after the view exits.
func runTranscribeTUI(ctx context.Context, a *pipeline.App, mediaID, file, model string, fn func(ctx context.Context) (types.Transcript, error)) (types.Transcript, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newTranscribeModel(mediaID, file, model, cancel))
	events, unsubscribe := a.Coordinator.Subscribe(64)
	defer unsubscribe()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case ev := <-events:
				p.Send(eventMsg{ev: ev})
			case <-stop:
				return
			}
		}
	}()

	result := make(chan doneMsg, 1)
	go func() {
		tr, err := fn(ctx)
		result <- doneMsg{tr: tr, err: err}
		p.Send(doneMsg{tr: tr, err: err})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-result
		return types.Transcript{}, err
	}
	res := <-result
	return res.tr, res.err
}
