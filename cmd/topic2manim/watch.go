package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"topic2manim/internal/jobs"
)

const defaultPollInterval = 2 * time.Second

// progressSource is the slice of the API client the watcher polls.
type progressSource interface {
	Progress(ctx context.Context, id string) (jobs.Record, error)
}

type submitFunc func(topic string) (string, error)

type (
	submittedMsg struct{ id string }
	recordMsg    struct{ record jobs.Record }
	pollMsg      struct{}
	watchErrMsg  struct{ err error }
)

type watchModel struct {
	ctx      context.Context
	source   progressSource
	submit   submitFunc
	interval time.Duration

	prompting bool
	input     textinput.Model
	spinner   spinner.Model
	bar       progress.Model

	jobID   string
	record  jobs.Record
	err     error
	done    bool
	aborted bool
}

// newWatchModel builds the live progress view. With an empty jobID the model
// first prompts for a topic and submits it.
func newWatchModel(ctx context.Context, source progressSource, submit submitFunc, jobID string) watchModel {
	input := textinput.New()
	input.Placeholder = "Photosynthesis"
	input.Prompt = "Topic: "
	input.CharLimit = 200
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = runningStyle

	return watchModel{
		ctx:       ctx,
		source:    source,
		submit:    submit,
		interval:  defaultPollInterval,
		prompting: jobID == "",
		input:     input,
		spinner:   sp,
		bar:       progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		jobID:     jobID,
	}
}

func (m watchModel) Init() tea.Cmd {
	if m.prompting {
		return textinput.Blink
	}
	return tea.Batch(m.spinner.Tick, m.pollCmd())
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.aborted = true
			return m, tea.Quit
		case "enter":
			if !m.prompting {
				return m, nil
			}
			topic := strings.TrimSpace(m.input.Value())
			if topic == "" {
				return m, nil
			}
			m.prompting = false
			return m, m.submitCmd(topic)
		}
		if m.prompting {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		return m, nil
	case submittedMsg:
		m.jobID = msg.id
		return m, tea.Batch(m.spinner.Tick, m.pollCmd())
	case pollMsg:
		return m, m.pollCmd()
	case recordMsg:
		m.record = msg.record
		if msg.record.IsTerminal() {
			m.done = true
			return m, tea.Quit
		}
		return m, tea.Tick(m.interval, func(time.Time) tea.Msg { return pollMsg{} })
	case watchErrMsg:
		m.err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m watchModel) View() string {
	if m.prompting {
		return lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("topic2manim"),
			m.input.View(),
			mutedStyle.Render("enter to submit, esc to cancel"),
		) + "\n"
	}
	if m.err != nil {
		return errorStyle.Render("Error: "+m.err.Error()) + "\n"
	}
	if m.jobID == "" {
		return m.spinner.View() + " Submitting...\n"
	}

	header := titleStyle.Render("Job "+m.jobID) + " " + mutedStyle.Render(m.record.Topic)
	status := renderStatus(m.record.Status, true)
	line := fmt.Sprintf("%s %s %s", m.spinner.View(), m.bar.ViewAs(float64(m.record.Progress)/100), status)
	if m.done {
		line = fmt.Sprintf("%s %s", m.bar.ViewAs(float64(m.record.Progress)/100), status)
	}
	detail := mutedStyle.Render(stepLabel(m.record))
	lines := []string{header, line, detail}
	if m.done {
		lines = append(lines, finalLine(m.record))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...) + "\n"
}

func (m watchModel) submitCmd(topic string) tea.Cmd {
	return func() tea.Msg {
		if m.submit == nil {
			return watchErrMsg{err: errors.New("submission unavailable")}
		}
		id, err := m.submit(topic)
		if err != nil {
			return watchErrMsg{err: err}
		}
		return submittedMsg{id: id}
	}
}

func (m watchModel) pollCmd() tea.Cmd {
	id := m.jobID
	return func() tea.Msg {
		rec, err := m.source.Progress(m.ctx, id)
		if err != nil {
			return watchErrMsg{err: err}
		}
		return recordMsg{record: rec}
	}
}

func stepLabel(rec jobs.Record) string {
	parts := make([]string, 0, 3)
	if rec.CurrentStep != "" {
		parts = append(parts, string(rec.CurrentStep))
	}
	if rec.Message != "" {
		parts = append(parts, rec.Message)
	}
	if rec.SceneCount > 0 {
		parts = append(parts, fmt.Sprintf("scenes %d/%d", rec.ScenesRendered, rec.SceneCount))
	}
	return strings.Join(parts, " | ")
}

func finalLine(rec jobs.Record) string {
	if rec.Status == jobs.StatusFailed {
		return errorStyle.Render("Failed: " + rec.Error)
	}
	return okStyle.Render("Done: " + rec.VideoURL)
}

// runWatchTUI drives the model until the job finishes and returns the final record.
func runWatchTUI(model watchModel) (jobs.Record, error) {
	final, err := tea.NewProgram(model).Run()
	if err != nil {
		return jobs.Record{}, err
	}
	m, ok := final.(watchModel)
	if !ok {
		return jobs.Record{}, errors.New("unexpected watch model")
	}
	if m.aborted {
		return m.record, context.Canceled
	}
	if m.err != nil {
		return m.record, m.err
	}
	return m.record, nil
}

// pollUntilDone is the non-interactive watcher: one line per observed change.
func pollUntilDone(ctx context.Context, source progressSource, id string, interval time.Duration, report func(jobs.Record)) (jobs.Record, error) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	var last jobs.Record
	first := true
	for {
		rec, err := source.Progress(ctx, id)
		if err != nil {
			return last, err
		}
		if first || rec.Progress != last.Progress || rec.Message != last.Message || rec.Status != last.Status {
			report(rec)
		}
		first = false
		last = rec
		if rec.IsTerminal() {
			return rec, nil
		}
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-time.After(interval):
		}
	}
}
