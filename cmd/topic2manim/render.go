package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"topic2manim/internal/jobs"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func statusStyle(status jobs.Status) lipgloss.Style {
	switch status {
	case jobs.StatusCompleted:
		return okStyle
	case jobs.StatusFailed:
		return errorStyle
	case jobs.StatusRunning:
		return runningStyle
	default:
		return mutedStyle
	}
}

func renderStatus(status jobs.Status, colorize bool) string {
	label := strings.ToUpper(string(status))
	if !colorize {
		return label
	}
	return statusStyle(status).Render(label)
}

// recordLines describes one job for the status command.
func recordLines(rec jobs.Record, mediaURL string, colorize bool) []string {
	heading := fmt.Sprintf("Job %s", rec.ID)
	if colorize {
		heading = titleStyle.Render(heading)
	}
	lines := []string{
		heading,
		fmt.Sprintf("  %-12s %s", "Topic:", rec.Topic),
		fmt.Sprintf("  %-12s %s", "Status:", renderStatus(rec.Status, colorize)),
		fmt.Sprintf("  %-12s %d%%", "Progress:", rec.Progress),
	}
	if rec.CurrentStep != "" {
		lines = append(lines, fmt.Sprintf("  %-12s %s", "Step:", rec.CurrentStep))
	}
	if rec.Message != "" {
		lines = append(lines, fmt.Sprintf("  %-12s %s", "Message:", rec.Message))
	}
	if rec.Provider != "" {
		lines = append(lines, fmt.Sprintf("  %-12s %s", "Provider:", rec.Provider))
	}
	if rec.SceneCount > 0 {
		lines = append(lines, fmt.Sprintf("  %-12s %d/%d", "Scenes:", rec.ScenesRendered, rec.SceneCount))
	}
	lines = append(lines, fmt.Sprintf("  %-12s %s", "Narrated:", yesNo(rec.Narrated)))
	if rec.Error != "" {
		errLine := fmt.Sprintf("  %-12s %s", "Error:", rec.Error)
		if colorize {
			errLine = errorStyle.Render(errLine)
		}
		lines = append(lines, errLine)
	}
	if mediaURL != "" {
		lines = append(lines, fmt.Sprintf("  %-12s %s", "Video:", mediaURL))
	}
	return lines
}
