package ui

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/restora-app/restora/internal/history"
	"github.com/restora-app/restora/internal/models"
	"github.com/restora-app/restora/internal/pipeline"
	"github.com/restora-app/restora/internal/session"
	"github.com/restora-app/restora/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LoginView ViewState = iota
	SignupView
	UploadView
	HistoryView
)

// protected reports whether a view requires a valid session.
func protected(v ViewState) bool {
	return v == UploadView || v == HistoryView
}

// Model represents the TUI application state.
type Model struct {
	ctx    context.Context
	guard  *session.Guard
	pipe   *pipeline.Pipeline
	pager  *history.Pager
	logger *log.Logger

	view   ViewState
	width  int
	height int
	keys   keyMap
	help   help.Model

	nameInput  textinput.Model
	emailInput textinput.Model
	passInput  textinput.Model
	focus      int
	authErr    string
	notice     string
	busy       bool

	picker       filepicker.Model
	pickerActive bool
	spin         spinner.Model

	jobTable table.Model
	err      error
}

type sessionReadyMsg struct{ err error }

type authResultMsg struct{ err error }

type uploadFinishedMsg struct {
	attempt uint64
	err     error
}

type jobsLoadedMsg struct{ err error }

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, guard *session.Guard, pipe *pipeline.Pipeline, pager *history.Pager, logger *log.Logger) *Model {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	name := textinput.New()
	name.Placeholder = "display name"
	name.CharLimit = 64

	email := textinput.New()
	email.Placeholder = "email"
	email.CharLimit = 128
	email.Focus()

	pass := textinput.New()
	pass.Placeholder = "password"
	pass.EchoMode = textinput.EchoPassword
	pass.CharLimit = 128

	picker := filepicker.New()
	if wd, err := os.Getwd(); err == nil {
		picker.CurrentDirectory = wd
	}

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = styles.title

	columns := []table.Column{
		{Title: "#", Width: 4},
		{Title: "Image Name", Width: 28},
		{Title: "Status", Width: 12},
		{Title: "Created At", Width: 20},
	}
	jobTable := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(history.PageSize+1),
	)

	return &Model{
		ctx:          ctx,
		guard:        guard,
		pipe:         pipe,
		pager:        pager,
		logger:       logger,
		view:         LoginView,
		keys:         newKeyMap(),
		help:         help.New(),
		nameInput:    name,
		emailInput:   email,
		passInput:    pass,
		picker:       picker,
		pickerActive: true,
		spin:         spin,
		jobTable:     jobTable,
	}
}

// Init restores any persisted session before the first protected view can
// render; the interim paints a loading spinner.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return sessionReadyMsg{err: m.guard.Initialize()} },
		m.spin.Tick,
		m.picker.Init(),
	)
}

// routeTo switches views, bouncing protected destinations back to the login
// entry point when no valid session exists.
func (m *Model) routeTo(v ViewState) tea.Cmd {
	if protected(v) && !m.guard.Authenticated() {
		m.view = LoginView
		m.notice = "Please log in to continue."
		return nil
	}
	m.view = v
	if v == HistoryView {
		return m.loadJobs(func(ctx context.Context) error {
			return m.pager.FetchPage(ctx, m.pager.State().Page)
		})
	}
	return nil
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.picker.Height = msg.Height - 10
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case sessionReadyMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		if m.guard.Authenticated() {
			return m, m.routeTo(UploadView)
		}
		m.view = LoginView
		return m, nil

	case authResultMsg:
		m.busy = false
		if msg.err != nil {
			m.authErr = msg.err.Error()
			return m, nil
		}
		m.authErr = ""
		m.notice = ""
		m.passInput.SetValue("")
		return m, m.routeTo(UploadView)

	case uploadFinishedMsg:
		m.busy = false
		if errors.Is(msg.err, shared.ErrUnauthorized) {
			return m, m.expelToLogin()
		}
		return m, nil

	case jobsLoadedMsg:
		m.busy = false
		if errors.Is(msg.err, shared.ErrUnauthorized) {
			return m, m.expelToLogin()
		}
		m.refreshTable()
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case LoginView, SignupView:
			return m.handleAuthKeys(msg)
		case UploadView:
			return m.handleUploadKeys(msg)
		case HistoryView:
			return m.handleHistoryKeys(msg)
		}
	}

	return m.updateComponents(msg)
}

// expelToLogin is the reactive half of the access contract: the backend
// rejected our credentials mid-session, the guard has already cleared them,
// and every protected view redirects to login.
func (m *Model) expelToLogin() tea.Cmd {
	m.view = LoginView
	m.notice = "Session expired. Please log in again."
	return nil
}

func (m *Model) handleAuthKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "ctrl+s":
		if m.view == LoginView {
			m.view = SignupView
		} else {
			m.view = LoginView
		}
		m.authErr = ""
		m.setFocus(0)
		return m, nil
	case "tab", "shift+tab", "up", "down":
		fields := 2
		if m.view == SignupView {
			fields = 3
		}
		if msg.String() == "shift+tab" || msg.String() == "up" {
			m.setFocus((m.focus + fields - 1) % fields)
		} else {
			m.setFocus((m.focus + 1) % fields)
		}
		return m, nil
	case "enter":
		if m.busy {
			return m, nil
		}
		return m, m.submitAuth()
	}

	return m.updateComponents(msg)
}

// setFocus moves input focus. Field order: (name,) email, password.
func (m *Model) setFocus(idx int) {
	m.focus = idx
	inputs := m.authInputs()
	for i := range inputs {
		if i == idx {
			inputs[i].Focus()
		} else {
			inputs[i].Blur()
		}
	}
}

func (m *Model) authInputs() []*textinput.Model {
	if m.view == SignupView {
		return []*textinput.Model{&m.nameInput, &m.emailInput, &m.passInput}
	}
	return []*textinput.Model{&m.emailInput, &m.passInput}
}

func (m *Model) submitAuth() tea.Cmd {
	creds := session.Credentials{
		Email:    m.emailInput.Value(),
		Password: m.passInput.Value(),
	}
	signup := m.view == SignupView
	if signup {
		creds.UserName = m.nameInput.Value()
	}
	if creds.Email == "" || creds.Password == "" {
		m.authErr = "email and password are required"
		return nil
	}

	m.busy = true
	m.authErr = ""
	return func() tea.Msg {
		var err error
		if signup {
			err = m.guard.Register(m.ctx, creds)
		} else {
			err = m.guard.Login(m.ctx, creds)
		}
		return authResultMsg{err: err}
	}
}

func (m *Model) handleUploadKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	state := m.pipe.State()

	switch msg.String() {
	case "q", "ctrl+c":
		if !m.pickerActive || state.Stage != pipeline.Idle {
			return m, tea.Quit
		}
	case "ctrl+d":
		return m, m.logout()
	}

	switch state.Stage {
	case pipeline.Accepted:
		if msg.String() == "enter" {
			m.pipe.Dismiss()
			m.pickerActive = true
		}
		return m, nil

	case pipeline.Error:
		if key.Matches(msg, m.keys.retry) || msg.String() == "enter" {
			m.pipe.TryAgain()
			m.pickerActive = true
		}
		return m, nil

	case pipeline.UploadingToStore, pipeline.RegisteringJob:
		// A hang here parks the view until the user abandons the attempt.
		if msg.String() == "esc" {
			m.pickerActive = true
		}
		return m, nil

	case pipeline.Selected:
		switch msg.String() {
		case "enter":
			return m, m.startUpload()
		case "esc":
			m.pickerActive = true
			return m, nil
		case "h":
			return m, m.routeTo(HistoryView)
		}
		return m, nil
	}

	if msg.String() == "h" && !m.pickerActive {
		return m, m.routeTo(HistoryView)
	}

	return m.updateComponents(msg)
}

func (m *Model) startUpload() tea.Cmd {
	state := m.pipe.State()
	m.busy = true
	m.pickerActive = false
	return tea.Batch(m.spin.Tick, func() tea.Msg {
		err := m.pipe.Run(m.ctx)
		return uploadFinishedMsg{attempt: state.Attempt, err: err}
	})
}

func (m *Model) logout() tea.Cmd {
	if err := m.guard.Logout(); err != nil {
		m.logger.Errorf("logout failed: %v", err)
	}
	m.view = LoginView
	m.notice = "Logged out."
	return nil
}

func (m *Model) handleHistoryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	state := m.pager.State()

	switch {
	case msg.String() == "q" || msg.String() == "ctrl+c":
		return m, tea.Quit
	case msg.String() == "ctrl+d":
		return m, m.logout()
	case key.Matches(msg, m.keys.upload):
		return m, m.routeTo(UploadView)
	case key.Matches(msg, m.keys.refresh):
		if !state.Loading {
			return m, m.loadJobs(m.pager.Refresh)
		}
		return m, nil
	case key.Matches(msg, m.keys.next):
		if m.pager.CanNext() {
			return m, m.loadJobs(m.pager.Next)
		}
		return m, nil
	case key.Matches(msg, m.keys.prev):
		if m.pager.CanPrev() {
			return m, m.loadJobs(m.pager.Prev)
		}
		return m, nil
	}

	return m.updateComponents(msg)
}

func (m *Model) loadJobs(fn func(context.Context) error) tea.Cmd {
	m.busy = true
	return tea.Batch(m.spin.Tick, func() tea.Msg {
		return jobsLoadedMsg{err: fn(m.ctx)}
	})
}

// refreshTable rebuilds table rows from the pager's current window.
func (m *Model) refreshTable() {
	state := m.pager.State()
	rows := make([]table.Row, 0, len(state.Jobs))
	for i, job := range state.Jobs {
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", (state.Page-1)*history.PageSize+i+1),
			job.ImageName,
			string(job.Status),
			job.CreatedAt.Local().Format("Jan 2 2006 15:04"),
		})
	}
	m.jobTable.SetRows(rows)
}

func (m *Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch m.view {
	case LoginView, SignupView:
		for _, input := range m.authInputs() {
			*input, cmd = input.Update(msg)
			cmds = append(cmds, cmd)
		}

	case UploadView:
		if m.pickerActive {
			m.picker, cmd = m.picker.Update(msg)
			cmds = append(cmds, cmd)
			if ok, path := m.picker.DidSelectFile(msg); ok {
				m.selectFile(path)
			}
		}

	case HistoryView:
		m.jobTable, cmd = m.jobTable.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// selectFile resolves a picked path into a FileRef and hands it to the
// pipeline, abandoning any prior attempt.
func (m *Model) selectFile(path string) {
	info, err := os.Stat(path)
	if err != nil {
		m.logger.Warnf("cannot stat selected file: %v", err)
		return
	}
	m.pipe.Select(models.FileRef{
		Name: info.Name(),
		Path: path,
		Size: info.Size(),
	})
	m.pickerActive = false
}
