package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/restora-app/restora/internal/models"
	"github.com/restora-app/restora/internal/pipeline"
)

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}
	if m.guard.Loading() {
		return fmt.Sprintf("%s Checking session...", m.spin.View())
	}

	switch m.view {
	case LoginView, SignupView:
		return m.renderAuth()
	case UploadView:
		return m.renderUpload()
	case HistoryView:
		return m.renderHistory()
	default:
		return ""
	}
}

func (m *Model) renderAuth() string {
	var b strings.Builder

	if m.view == SignupView {
		b.WriteString(styles.title.Render("Create your restora account"))
	} else {
		b.WriteString(styles.title.Render("Sign in to restora"))
	}
	b.WriteString("\n\n")

	if m.notice != "" {
		b.WriteString(styles.warn.Render(m.notice))
		b.WriteString("\n\n")
	}

	if m.view == SignupView {
		b.WriteString(m.nameInput.View())
		b.WriteString("\n")
	}
	b.WriteString(m.emailInput.View())
	b.WriteString("\n")
	b.WriteString(m.passInput.View())
	b.WriteString("\n\n")

	if m.busy {
		b.WriteString(fmt.Sprintf("%s Authenticating...\n\n", m.spin.View()))
	}
	if m.authErr != "" {
		b.WriteString(styles.err.Render(m.authErr))
		b.WriteString("\n\n")
	}

	submit := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit"))
	b.WriteString(m.help.ShortHelpView([]key.Binding{submit, m.keys.signup, m.keys.quit}))
	return b.String()
}

// stageLabels in pipeline order, rendered as the staged progress indicator
// the dashboard shows during an upload.
var stageLabels = []struct {
	stage pipeline.Stage
	label string
}{
	{pipeline.Selected, "File selected"},
	{pipeline.UploadingToStore, "Uploading to storage"},
	{pipeline.RegisteringJob, "Registering job"},
	{pipeline.Accepted, "Accepted"},
}

func (m *Model) renderUpload() string {
	state := m.pipe.State()
	var b strings.Builder

	b.WriteString(styles.title.Render("Restore a degraded image"))
	b.WriteString("\n\n")

	switch state.Stage {
	case pipeline.Accepted:
		b.WriteString(styles.ok.Render("✓ Job Accepted!"))
		b.WriteString("\n\nYour job has been successfully accepted.\nYou can view its status from the job history.\n\n")
		closeKey := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "close"))
		b.WriteString(m.help.ShortHelpView([]key.Binding{closeKey, m.keys.quit}))
		return b.String()

	case pipeline.Error:
		b.WriteString(styles.err.Render("✗ Upload Failed"))
		b.WriteString("\n\n")
		b.WriteString(state.ErrorMessage)
		b.WriteString("\n\n")
		b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.retry, m.keys.quit}))
		return b.String()
	}

	if m.pickerActive {
		b.WriteString("Pick a degraded image to restore:\n\n")
		b.WriteString(m.picker.View())
		b.WriteString("\n")
		b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.up, m.keys.down, m.keys.enter, m.keys.quit}))
		return b.String()
	}

	if state.File != nil {
		b.WriteString(fmt.Sprintf("Selected: %s (%d bytes)\n\n", state.File.Name, state.File.Size))
	}

	for _, entry := range stageLabels {
		marker := "  "
		line := entry.label
		switch {
		case state.Stage > entry.stage || state.Stage == pipeline.Accepted:
			marker = styles.ok.Render("✓ ")
		case state.Stage == entry.stage:
			marker = m.spin.View()
			line = styles.title.Render(line)
		}
		b.WriteString(fmt.Sprintf("%s%s\n", marker, line))
	}
	b.WriteString("\n")

	if state.Stage == pipeline.Selected {
		startKey := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "start restoration"))
		b.WriteString(m.help.ShortHelpView([]key.Binding{startKey, m.keys.back, m.keys.history, m.keys.quit}))
	} else {
		b.WriteString(styles.help.Render("Working... esc abandons this attempt"))
	}
	return b.String()
}

// statusSummary renders colored per-status counts for the visible window.
func statusSummary(jobs []models.Job) string {
	counts := map[string]int{}
	for _, job := range jobs {
		counts[string(job.Status)]++
	}

	var parts []string
	for _, status := range []string{"PENDING", "PROCESSING", "COMPLETED", "FAILED"} {
		if n := counts[status]; n > 0 {
			parts = append(parts, statusStyle(status).Render(fmt.Sprintf("%d %s", n, strings.ToLower(status))))
		}
	}
	return strings.Join(parts, "  ")
}

func (m *Model) renderHistory() string {
	state := m.pager.State()
	var b strings.Builder

	b.WriteString(styles.title.Render("Job History"))
	b.WriteString("\n")

	if state.Loading {
		verb := "Loading"
		if state.Refreshing {
			verb = "Refreshing"
		}
		b.WriteString(fmt.Sprintf("%s %s jobs...\n\n", m.spin.View(), verb))
	}

	if state.Err != "" {
		b.WriteString(styles.err.Render(state.Err))
		b.WriteString("\n")
	}

	if len(state.Jobs) == 0 && !state.Loading && state.Err == "" {
		b.WriteString(styles.help.Render("No jobs found."))
		b.WriteString("\n")
	} else {
		b.WriteString(m.jobTable.View())
		b.WriteString("\n")
		if line := statusSummary(state.Jobs); line != "" {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	b.WriteString(fmt.Sprintf("\nShowing page %d of %d\n\n", state.Page, state.LastPage))

	bindings := []key.Binding{m.keys.refresh}
	if m.pager.CanPrev() {
		bindings = append(bindings, m.keys.prev)
	}
	if m.pager.CanNext() {
		bindings = append(bindings, m.keys.next)
	}
	bindings = append(bindings, m.keys.upload, m.keys.quit)
	b.WriteString(m.help.ShortHelpView(bindings))
	return b.String()
}
