package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/nick-dorsch/taskflow/pkg/models"
)

var (
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)

	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	scrollbarTrackStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("236"))

	scrollbarHandleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241"))
)

// TaskDetail renders a single task in a scrollable viewport.
type TaskDetail struct {
	viewport viewport.Model
	content  string
	ready    bool
}

func NewTaskDetail(width, height int) *TaskDetail {
	return &TaskDetail{
		viewport: viewport.New(width, height),
	}
}

func (d *TaskDetail) SetSize(width, height int) {
	// One column is reserved for the scrollbar.
	vpWidth := width
	if width > 0 {
		vpWidth = width - 1
	}
	if !d.ready {
		d.viewport = viewport.New(vpWidth, height)
		d.ready = true
	} else {
		d.viewport.Width = vpWidth
		d.viewport.Height = height
	}
	d.updateContent()
}

// SetTask shows t, or clears the pane when t is nil.
func (d *TaskDetail) SetTask(t *models.Task) {
	if t == nil {
		d.content = ""
		d.updateContent()
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %d\n", labelStyle.Render("ID:"), t.ID())
	fmt.Fprintf(&sb, "%s %s\n", labelStyle.Render("Title:"), t.Title())
	fmt.Fprintf(&sb, "%s %s\n", labelStyle.Render("Status:"), t.Status())
	fmt.Fprintf(&sb, "%s %s\n", labelStyle.Render("Created:"), t.FormattedCreatedAt())
	if t.Description() != "" {
		fmt.Fprintf(&sb, "\n%s\n%s", labelStyle.Render("Description:"), t.Description())
	}
	d.content = sb.String()
	d.updateContent()
}

func (d *TaskDetail) updateContent() {
	width := d.viewport.Width
	content := d.content
	if width > 0 {
		content = detailStyle.Width(width).Render(content)
	} else {
		content = detailStyle.Render(content)
	}
	d.viewport.SetContent(content)
	d.viewport.GotoTop()
}

func (d *TaskDetail) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	d.viewport, cmd = d.viewport.Update(msg)
	return cmd
}

func (d *TaskDetail) View() string {
	if !d.ready {
		return ""
	}

	if d.viewport.TotalLineCount() <= d.viewport.Height {
		return d.viewport.View()
	}

	h := d.viewport.Height
	handlePos := int(float64(h-1) * d.viewport.ScrollPercent())

	var sb strings.Builder
	for i := 0; i < h; i++ {
		if i == handlePos {
			sb.WriteString(scrollbarHandleStyle.Render("┃"))
		} else {
			sb.WriteString(scrollbarTrackStyle.Render("│"))
		}
		if i < h-1 {
			sb.WriteString("\n")
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, d.viewport.View(), sb.String())
}

func (d *TaskDetail) Height() int {
	return d.viewport.Height
}
