package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/nick-dorsch/taskflow/pkg/models"
)

var (
	todoColumnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("244")).
			Padding(0, 1)

	inProgressColumnStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("214")).
				Border(lipgloss.NormalBorder()).
				BorderForeground(lipgloss.Color("214")).
				Padding(0, 1)

	doneColumnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("42")).
			Padding(0, 1)

	boardHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("252")).
				Padding(0, 1)

	columnTitleStyle = lipgloss.NewStyle().
				Bold(true)

	selectedTaskStyle = lipgloss.NewStyle().
				Reverse(true)

	placeholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Italic(true)
)

type column struct {
	status models.TaskStatus
	title  string
	icon   string
	style  lipgloss.Style
}

var columns = []column{
	{models.TaskStatusTodo, "To Do", "○", todoColumnStyle},
	{models.TaskStatusInProgress, "In Progress", "◐", inProgressColumnStyle},
	{models.TaskStatusDone, "Done", "✓", doneColumnStyle},
}

// StatusColumns renders tasks side by side in one column per status.
type StatusColumns struct {
	Tasks []models.Task
	Width int
	Title string

	// Selected is the id of the highlighted task, 0 for none.
	Selected int

	// Counts overrides the per-column totals in the titles when set.
	Counts map[models.TaskStatus]int
}

func NewStatusColumns(width int) *StatusColumns {
	return &StatusColumns{
		Width: width,
		Title: "Tasks",
	}
}

func (c *StatusColumns) SetTasks(tasks []models.Task) {
	c.Tasks = tasks
}

func (c *StatusColumns) SetCounts(counts map[models.TaskStatus]int) {
	c.Counts = counts
}

func (c *StatusColumns) View() string {
	colWidth := c.Width / len(columns)
	if colWidth < 0 {
		colWidth = 0
	}

	boxes := make([]string, 0, len(columns))
	for _, col := range columns {
		boxes = append(boxes, c.renderColumn(col, colWidth))
	}

	content := lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
	if c.Title == "" {
		return content
	}
	return boardHeaderStyle.Render(c.Title) + "\n" + content
}

func (c *StatusColumns) renderColumn(col column, boxWidth int) string {
	// Border and padding take two cells on each side.
	innerWidth := boxWidth - 4
	if innerWidth < 0 {
		innerWidth = 0
	}
	nameWidth := innerWidth - 2
	if nameWidth < 0 {
		nameWidth = 0
	}

	var lines []string
	for _, t := range c.Tasks {
		if t.Status() != col.status {
			continue
		}
		wrapped := lipgloss.NewStyle().Width(nameWidth).Render(fmt.Sprintf("#%d %s", t.ID(), t.Title()))
		for i, line := range strings.Split(wrapped, "\n") {
			if i == 0 {
				line = fmt.Sprintf("%s %s", col.icon, line)
			} else {
				line = "  " + line
			}
			if t.ID() == c.Selected {
				line = selectedTaskStyle.Render(line)
			}
			lines = append(lines, line)
		}
	}

	body := placeholderStyle.Render("No tasks")
	if len(lines) > 0 {
		body = strings.Join(lines, "\n")
	}

	title := columnTitleStyle.Foreground(col.style.GetForeground()).
		Render(fmt.Sprintf("%s (%d)", col.title, c.count(col.status)))
	frameWidth := boxWidth - 2
	if frameWidth < 0 {
		frameWidth = 0
	}
	return col.style.Width(frameWidth).Render(title + "\n" + body)
}

func (c *StatusColumns) count(status models.TaskStatus) int {
	if c.Counts != nil {
		return c.Counts[status]
	}
	n := 0
	for _, t := range c.Tasks {
		if t.Status() == status {
			n++
		}
	}
	return n
}
