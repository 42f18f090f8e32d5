// Package tui is the terminal front end of the query workspace.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pkt.systems/mongoui/core"
	"pkt.systems/mongoui/internal/command"
	"pkt.systems/mongoui/internal/textmodel"
	"pkt.systems/mongoui/schema"
	"pkt.systems/pslog"
)

// Tree is the navigation surface shown in the sidebar.
type Tree interface {
	Click(ctx context.Context, path []int) (schema.BufferID, error)
	Nodes() []core.TreeNode
}

// Deps wires the model to a workspace.
type Deps struct {
	Workspace command.Workspace
	View      *textmodel.View
	// Tree returns the tree of the current connection, or nil.
	Tree     func() Tree
	Commands *command.Handler
	Events   <-chan schema.WorkspaceEvent
	// Title names the active connection.
	Title func() string
	// SidebarWidth defaults to 28 columns.
	SidebarWidth int
	ShowHelp     bool
	Logger       pslog.Logger
}

type focusArea int

const (
	focusEditor focusArea = iota
	focusSidebar
	focusCommand
)

type (
	eventMsg   schema.WorkspaceEvent
	runDoneMsg struct {
		id     schema.BufferID
		result schema.RunResult
		err    error
	}
	clickDoneMsg struct {
		id  schema.BufferID
		err error
	}
	commandDoneMsg struct {
		result  command.Result
		handled bool
		err     error
	}
)

// Model is the bubbletea model of the workspace screen.
type Model struct {
	ctx    context.Context
	ws     command.Workspace
	view   *textmodel.View
	tree   func() Tree
	cmds   *command.Handler
	events <-chan schema.WorkspaceEvent
	title  func() string
	logger pslog.Logger

	keys   keyMap
	help   help.Model
	editor textarea.Model
	output viewport.Model
	prompt textinput.Model

	focus        focusArea
	bound        core.TextModel
	rows         []sidebarRow
	cursor       int
	labels       []schema.TabLabel
	status       string
	statusErr    bool
	busy         int
	width        int
	height       int
	sidebarWidth int
	showHelp     bool
}

// New constructs the model.
func New(ctx context.Context, deps Deps) (*Model, error) {
	if ctx == nil {
		return nil, errors.New("missing context")
	}
	if deps.Workspace == nil || deps.View == nil {
		return nil, errors.New("workspace and view are required")
	}
	if deps.Tree == nil {
		deps.Tree = func() Tree { return nil }
	}
	if deps.Title == nil {
		deps.Title = func() string { return "" }
	}
	if deps.Commands == nil {
		deps.Commands = command.NewHandler(deps.Workspace, nil)
	}
	if deps.SidebarWidth <= 0 {
		deps.SidebarWidth = 28
	}
	if deps.Logger == nil {
		deps.Logger = pslog.Ctx(ctx)
	}

	editor := textarea.New()
	editor.Placeholder = "open a collection from the sidebar, /open <db> [collection] or /connect <uri>"
	editor.ShowLineNumbers = true
	editor.CharLimit = 0
	editor.Focus()

	prompt := textinput.New()
	prompt.Prompt = ": "
	prompt.Placeholder = "/help"

	m := &Model{
		ctx:          ctx,
		ws:           deps.Workspace,
		view:         deps.View,
		tree:         deps.Tree,
		cmds:         deps.Commands,
		events:       deps.Events,
		title:        deps.Title,
		logger:       deps.Logger,
		keys:         defaultKeys(),
		help:         help.New(),
		editor:       editor,
		output:       viewport.New(0, 0),
		prompt:       prompt,
		sidebarWidth: deps.SidebarWidth,
		showHelp:     deps.ShowHelp,
	}
	m.refresh()
	return m, nil
}

// Run starts the program and blocks until the user quits or ctx ends.
func Run(ctx context.Context, deps Deps) error {
	m, err := New(ctx, deps)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	m.flush()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, waitForEvent(m.events))
}

func waitForEvent(ch <-chan schema.WorkspaceEvent) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return nil
		}
		return eventMsg(event)
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil
	case eventMsg:
		m.refresh()
		if msg.Type == schema.EventNotice {
			m.setStatus(msg.Message, msg.Level == schema.NoticeError)
		}
		return m, waitForEvent(m.events)
	case runDoneMsg:
		m.busy--
		m.refresh()
		switch {
		case msg.err != nil:
			m.setStatus(msg.err.Error(), true)
		case !msg.result.Delivered:
			m.setStatus(fmt.Sprintf("b%d closed before its result arrived", msg.id), false)
		default:
			m.setStatus(fmt.Sprintf("b%d finished", msg.id), false)
		}
		return m, nil
	case clickDoneMsg:
		m.busy--
		m.refresh()
		if msg.err != nil {
			m.setStatus(msg.err.Error(), true)
		} else if msg.id != 0 {
			m.setStatus(fmt.Sprintf("opened b%d", msg.id), false)
		}
		return m, nil
	case commandDoneMsg:
		m.busy--
		m.refresh()
		if msg.err != nil {
			m.setStatus(msg.err.Error(), true)
			return m, nil
		}
		if !msg.handled {
			m.setStatus("commands start with /", true)
			return m, nil
		}
		m.setStatus(msg.result.Message, false)
		if msg.result.Quit {
			m.flush()
			return m, tea.Quit
		}
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}
	return m, m.forward(msg)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, m.keys.Quit) {
		m.flush()
		return tea.Quit
	}
	if m.focus == focusCommand {
		switch {
		case key.Matches(msg, m.keys.Cancel):
			m.prompt.Reset()
			return m.setFocus(focusEditor)
		case key.Matches(msg, m.keys.Activate):
			return m.submit()
		}
		var cmd tea.Cmd
		m.prompt, cmd = m.prompt.Update(msg)
		return cmd
	}
	switch {
	case key.Matches(msg, m.keys.Run):
		return m.runSelected()
	case key.Matches(msg, m.keys.Next):
		m.cycle(1)
		return nil
	case key.Matches(msg, m.keys.Prev):
		m.cycle(-1)
		return nil
	case key.Matches(msg, m.keys.Close):
		m.closeSelected()
		return nil
	case key.Matches(msg, m.keys.Command):
		return m.setFocus(focusCommand)
	case key.Matches(msg, m.keys.Focus):
		if m.focus == focusSidebar {
			return m.setFocus(focusEditor)
		}
		return m.setFocus(focusSidebar)
	}
	if m.focus == focusSidebar {
		switch {
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.rows)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Activate):
			return m.click()
		}
		return nil
	}
	if m.bound == nil {
		return nil
	}
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return cmd
}

func (m *Model) forward(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	var cmd tea.Cmd
	switch m.focus {
	case focusEditor:
		m.editor, cmd = m.editor.Update(msg)
		cmds = append(cmds, cmd)
	case focusCommand:
		m.prompt, cmd = m.prompt.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.output, cmd = m.output.Update(msg)
	cmds = append(cmds, cmd)
	return tea.Batch(cmds...)
}

func (m *Model) setFocus(area focusArea) tea.Cmd {
	m.focus = area
	m.editor.Blur()
	m.prompt.Blur()
	switch area {
	case focusEditor:
		return m.editor.Focus()
	case focusCommand:
		return m.prompt.Focus()
	}
	return nil
}

func (m *Model) runSelected() tea.Cmd {
	id := m.ws.Selected()
	if id == 0 {
		m.setStatus(schema.ErrNoBuffers.Error(), true)
		return nil
	}
	m.flush()
	m.busy++
	m.setStatus(fmt.Sprintf("running b%d", id), false)
	m.logger.Debug("tui run requested", "buffer", id)
	ctx, ws := m.ctx, m.ws
	return func() tea.Msg {
		result, err := ws.Run(ctx, id)
		return runDoneMsg{id: id, result: result, err: err}
	}
}

func (m *Model) cycle(delta int) {
	m.flush()
	if _, err := m.ws.SelectRelative(m.ctx, delta); err != nil {
		m.setStatus(err.Error(), true)
	}
	m.refresh()
}

func (m *Model) closeSelected() {
	id := m.ws.Selected()
	if id == 0 {
		m.setStatus(schema.ErrNoBuffers.Error(), true)
		return
	}
	m.flush()
	if err := m.ws.CloseBuffer(m.ctx, id); err != nil {
		m.setStatus(err.Error(), true)
	}
	m.refresh()
}

func (m *Model) click() tea.Cmd {
	tree := m.tree()
	if tree == nil || m.cursor < 0 || m.cursor >= len(m.rows) {
		return nil
	}
	path := append([]int(nil), m.rows[m.cursor].path...)
	m.flush()
	m.busy++
	ctx := m.ctx
	return func() tea.Msg {
		id, err := tree.Click(ctx, path)
		return clickDoneMsg{id: id, err: err}
	}
}

func (m *Model) submit() tea.Cmd {
	input := strings.TrimSpace(m.prompt.Value())
	m.prompt.Reset()
	focus := m.setFocus(focusEditor)
	if input == "" {
		return focus
	}
	m.flush()
	m.busy++
	ctx, cmds := m.ctx, m.cmds
	return tea.Batch(focus, func() tea.Msg {
		result, handled, err := cmds.Handle(ctx, input)
		return commandDoneMsg{result: result, handled: handled, err: err}
	})
}

// flush writes the editor text back into the bound input model.
func (m *Model) flush() {
	if m.bound != nil {
		m.bound.SetValue(m.editor.Value())
	}
}

// refresh pulls tabs, models and tree rows from the workspace.
func (m *Model) refresh() {
	m.labels = m.ws.Labels()
	if current := m.view.Input(); current != m.bound {
		m.flush()
		m.bound = current
		if current == nil {
			m.editor.SetValue("")
		} else {
			m.editor.SetValue(current.Value())
		}
	}
	m.output.SetContent(m.view.OutputText())
	m.output.GotoTop()
	m.rows = nil
	if tree := m.tree(); tree != nil {
		m.rows = flattenTree(tree.Nodes())
	}
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

func (m *Model) layout() {
	mainWidth := m.width - m.sidebarWidth - 2
	if mainWidth < 20 {
		mainWidth = 20
	}
	// tabs, two pane titles, status and prompt
	avail := m.height - 5
	if m.showHelp {
		avail--
	}
	if avail < 6 {
		avail = 6
	}
	editorHeight := avail / 2
	m.editor.SetWidth(mainWidth)
	m.editor.SetHeight(editorHeight)
	m.output.Width = mainWidth
	m.output.Height = avail - editorHeight
	m.prompt.Width = mainWidth - len(m.prompt.Prompt) - 1
	m.help.Width = mainWidth
}

// View implements tea.Model.
func (m *Model) View() string {
	return lipgloss.JoinHorizontal(lipgloss.Top, m.sidebarView(), m.mainView())
}

func (m *Model) sidebarView() string {
	lines := []string{titleStyle.Render(m.title())}
	for i, row := range m.rows {
		line := renderRow(row, m.sidebarWidth)
		if i == m.cursor && m.focus == focusSidebar {
			lines = append(lines, rowCursorStyle.Render(line))
			continue
		}
		lines = append(lines, rowStyle.Render(line))
	}
	if len(m.rows) == 0 {
		lines = append(lines, statusStyle.Render("not connected"))
	}
	style := sidebarStyle
	if m.focus == focusSidebar {
		style = sidebarFocusedStyle
	}
	height := m.height
	if height < 1 {
		height = len(lines)
	}
	return style.Width(m.sidebarWidth).Height(height).Render(strings.Join(lines, "\n"))
}

func (m *Model) mainView() string {
	sections := []string{
		m.tabsView(),
		paneTitleStyle.Render("input"),
		m.editor.View(),
		paneTitleStyle.Render("output"),
		m.output.View(),
		m.statusView(),
		m.prompt.View(),
	}
	if m.showHelp {
		sections = append(sections, m.help.View(m.keys))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) tabsView() string {
	if len(m.labels) == 0 {
		return tabStyle.Render("no buffers")
	}
	tabs := make([]string, 0, len(m.labels))
	for _, label := range m.labels {
		text := fmt.Sprintf("b%d %s", label.ID, label.Name)
		if label.Selected {
			tabs = append(tabs, tabSelectedStyle.Render(text))
			continue
		}
		tabs = append(tabs, tabStyle.Render(text))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m *Model) statusView() string {
	text := m.status
	if m.busy > 0 {
		text = fmt.Sprintf("[%d running] %s", m.busy, text)
	}
	if m.statusErr {
		return errorStyle.Render(text)
	}
	return statusStyle.Render(text)
}
