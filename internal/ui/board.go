package ui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/nick-dorsch/taskflow/internal/service"
	"github.com/nick-dorsch/taskflow/internal/ui/components"
	"github.com/nick-dorsch/taskflow/pkg/models"
)

var (
	messageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const (
	defaultWidth  = 90
	detailHeight  = 8
	boardHelpText = "j/k: move • s: start • c: complete • d: delete • r: refresh • q: quit"
)

// BoardModel is an interactive status board over the task service.
type BoardModel struct {
	ctx context.Context
	svc *service.Service

	tasks  []models.Task
	cursor int

	columns *components.StatusColumns
	detail  *components.TaskDetail

	message  string
	isError  bool
	quitting bool
}

func NewBoardModel(ctx context.Context, svc *service.Service) BoardModel {
	m := BoardModel{
		ctx:     ctx,
		svc:     svc,
		columns: components.NewStatusColumns(defaultWidth),
		detail:  components.NewTaskDetail(defaultWidth, detailHeight),
	}
	m.detail.SetSize(defaultWidth, detailHeight)
	m.refresh()
	return m
}

func (m BoardModel) Init() tea.Cmd {
	return nil
}

func (m BoardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.columns.Width = msg.Width
		m.detail.SetSize(msg.Width, detailHeight)
		m.syncSelection()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit

		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
			m.syncSelection()

		case "down", "j":
			if m.cursor < len(m.tasks)-1 {
				m.cursor++
			}
			m.syncSelection()

		case "s":
			m.apply(m.svc.Start, "Task started!")

		case "c":
			m.apply(m.svc.Complete, "Task marked as complete!")

		case "d":
			m.apply(m.svc.Delete, "Task deleted!")

		case "r":
			m.refresh()
			m.setMessage("Refreshed", false)

		default:
			return m, m.detail.Update(msg)
		}
	}

	return m, nil
}

// apply runs op on the selected task and reports the outcome in the status line.
func (m *BoardModel) apply(op func(context.Context, int) (models.Task, error), success string) {
	task, ok := m.Selected()
	if !ok {
		m.setMessage("No task selected", true)
		return
	}

	if _, err := op(m.ctx, task.ID()); err != nil {
		m.setMessage("Error: "+err.Error(), true)
	} else {
		m.setMessage(success, false)
	}
	m.refresh()
}

func (m *BoardModel) setMessage(msg string, isError bool) {
	m.message = msg
	m.isError = isError
}

// refresh reloads tasks in column order so the cursor walks the board top to
// bottom, left to right. The selected task keeps the cursor when it survives.
func (m *BoardModel) refresh() {
	selected, hadSelection := m.Selected()

	var tasks []models.Task
	for _, status := range models.Statuses {
		tasks = append(tasks, m.svc.FilterByStatus(m.ctx, status)...)
	}
	m.tasks = tasks
	m.columns.SetTasks(m.tasks)
	m.columns.SetCounts(m.svc.Stats(m.ctx).ByStatus)

	if hadSelection {
		for i, t := range m.tasks {
			if t.ID() == selected.ID() {
				m.cursor = i
				break
			}
		}
	}
	if m.cursor >= len(m.tasks) {
		m.cursor = len(m.tasks) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.syncSelection()
}

func (m *BoardModel) syncSelection() {
	task, ok := m.Selected()
	if !ok {
		m.columns.Selected = 0
		m.detail.SetTask(nil)
		return
	}
	m.columns.Selected = task.ID()
	m.detail.SetTask(&task)
}

// Selected returns the task under the cursor.
func (m BoardModel) Selected() (models.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(m.tasks) {
		return models.Task{}, false
	}
	return m.tasks[m.cursor], true
}

// Message returns the current status line text.
func (m BoardModel) Message() string {
	return m.message
}

func (m BoardModel) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder
	s.WriteString(m.columns.View())
	s.WriteString("\n")
	s.WriteString(m.detail.View())
	s.WriteString("\n\n")

	if m.message != "" {
		style := messageStyle
		if m.isError {
			style = errorStyle
		}
		s.WriteString(style.Render(m.message))
		s.WriteString("\n")
	}
	s.WriteString(helpStyle.Render(boardHelpText))
	s.WriteString("\n")

	return s.String()
}

// RunBoard opens the board full screen until the user quits.
func RunBoard(ctx context.Context, svc *service.Service) error {
	p := tea.NewProgram(NewBoardModel(ctx, svc), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
