// Package text is the terminal front-end, built on bubbletea.
package text

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jask/notebook/internal/compute"
	"github.com/jask/notebook/internal/presenter"
	"github.com/jask/notebook/internal/worksheet"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	bannerStyle = lipgloss.NewStyle().Faint(true)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	cursorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	outStyle    = lipgloss.NewStyle().PaddingLeft(8)
)

// View renders the worksheet and translates key presses into presenter
// calls. It is also the bubbletea model, so everything runs on the
// program's update goroutine.
type View struct {
	ctx    context.Context
	p      *presenter.Presenter
	banner string

	cursor      int
	editing     bool
	buffer      string
	completions []string
	status      string
	failed      bool
}

func (v *View) Attach(p *presenter.Presenter) { v.p = p }

func (v *View) CellChanged(*worksheet.Cell) {}

func (v *View) WorksheetChanged() {
	if n := v.p.Worksheet().Len(); v.cursor >= n {
		v.cursor = n - 1
	}
}

func (v *View) Notify(text string) {
	v.status = text
	v.failed = false
}

func (v *View) Error(title, text string) {
	v.status = title + ": " + text
	v.failed = true
}

type eventMsg struct {
	client *compute.Client
	event  compute.Event
}

type clientClosedMsg struct{ name string }

// waitEvent blocks on one client and re-arms itself from Update.
func waitEvent(c *compute.Client) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-c.Events()
		if !ok {
			return clientClosedMsg{name: c.Name()}
		}
		return eventMsg{client: c, event: ev}
	}
}

func (v *View) Init() tea.Cmd {
	clients := v.p.Model().RPCClients()
	cmds := make([]tea.Cmd, 0, len(clients))
	for _, c := range clients {
		cmds = append(cmds, waitEvent(c))
	}
	return tea.Batch(cmds...)
}

func (v *View) current() *worksheet.Cell {
	c, err := v.p.Worksheet().At(v.cursor)
	if err != nil {
		return nil
	}
	return c
}

func (v *View) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.KeyMsg:
		if v.editing {
			return v.handleEditKey(m)
		}
		return v.handleKey(m)
	case eventMsg:
		v.p.HandleEvent(m.event)
		return v, waitEvent(m.client)
	case clientClosedMsg:
		v.Notify(m.name + " stopped")
	}
	return v, nil
}

func (v *View) handleKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	cur := v.current()
	switch m.String() {
	case "q", "ctrl+c":
		return v, tea.Quit
	case "up", "k":
		if v.cursor > 0 {
			v.cursor--
		}
	case "down", "j":
		if v.cursor < v.p.Worksheet().Len()-1 {
			v.cursor++
		}
	case "enter", "e":
		if cur == nil {
			return v, nil
		}
		if cur.Busy() {
			v.Error("Edit failed", presenter.ErrCellBusy.Error())
			return v, nil
		}
		v.editing = true
		v.buffer = cur.Input()
		v.completions = nil
		v.status = ""
	case "r":
		if cur != nil {
			_ = v.p.RunCell(cur.ID())
		}
	case "R":
		_ = v.p.RunAll()
	case "a":
		_, _ = v.p.InsertCell(v.cursor, "")
	case "b":
		if _, err := v.p.InsertCell(v.cursor+1, ""); err == nil {
			v.cursor++
		}
	case "d":
		if cur != nil {
			_ = v.p.DeleteCell(cur.ID())
		}
	case "i":
		v.p.Interrupt()
	case "s":
		_ = v.p.Save(v.context())
	}
	return v, nil
}

func (v *View) handleEditKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.Type {
	case tea.KeyCtrlC:
		return v, tea.Quit
	case tea.KeyEsc:
		v.editing = false
		v.completions = nil
		if cur := v.current(); cur != nil {
			_ = v.p.EditCell(cur.ID(), v.buffer)
		}
	case tea.KeyEnter:
		v.buffer += "\n"
	case tea.KeyTab:
		v.complete()
	case tea.KeyBackspace, tea.KeyCtrlH, tea.KeyDelete:
		if r := []rune(v.buffer); len(r) > 0 {
			v.buffer = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		v.buffer += " "
	case tea.KeyRunes:
		v.buffer += string(m.Runes)
	}
	return v, nil
}

// complete extends the identifier before the cursor. A single candidate
// is inserted; several are listed.
func (v *View) complete() {
	word := trailingWord(v.buffer)
	if word == "" {
		return
	}
	cands := v.p.Complete(word)
	switch len(cands) {
	case 0:
		v.completions = nil
		v.Notify("no completions for " + word)
	case 1:
		v.buffer = strings.TrimSuffix(v.buffer, word) + cands[0]
		v.completions = nil
	default:
		v.completions = cands
	}
}

func trailingWord(s string) string {
	i := strings.LastIndexFunc(s, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})
	return s[i+1:]
}

func (v *View) context() context.Context {
	if v.ctx == nil {
		return context.Background()
	}
	return v.ctx
}

func (v *View) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Notebook - " + v.p.Name()))
	b.WriteString("\n")
	if v.banner != "" {
		b.WriteString(bannerStyle.Render(v.banner))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	i := 0
	for c := range v.p.Worksheet().All() {
		b.WriteString(v.renderCell(i, c))
		b.WriteString("\n")
		i++
	}

	if len(v.completions) > 0 {
		b.WriteString(strings.Join(v.completions, "  "))
		b.WriteString("\n")
	}
	if v.status != "" {
		if v.failed {
			b.WriteString(errStyle.Render(v.status))
		} else {
			b.WriteString(v.status)
		}
		b.WriteString("\n")
	}
	if v.editing {
		b.WriteString("[esc] Commit  [tab] Complete  [ctrl+c] Quit")
	} else {
		b.WriteString("[j/k] Move  [e] Edit  [r] Run  [R] Run all  [a/b] Insert  [d] Delete  [i] Interrupt  [s] Save  [q] Quit")
	}
	return b.String()
}

func label(c *worksheet.Cell) string {
	if c.Busy() {
		return "In [*]:"
	}
	if n, ok := c.Index(); ok {
		return fmt.Sprintf("In [%d]:", n)
	}
	return "In [ ]:"
}

func (v *View) renderCell(i int, c *worksheet.Cell) string {
	marker := "  "
	if i == v.cursor {
		marker = cursorStyle.Render("> ")
	}
	input := c.Input()
	if v.editing && i == v.cursor {
		input = v.buffer + "█"
	}
	lines := strings.Split(input, "\n")
	var b strings.Builder
	pad := strings.Repeat(" ", len(label(c))+1)
	for j, line := range lines {
		if j == 0 {
			fmt.Fprintf(&b, "%s%s %s\n", marker, labelStyle.Render(label(c)), line)
			continue
		}
		fmt.Fprintf(&b, "  %s%s\n", pad, line)
	}
	if out := c.PlainText(); out != "" {
		b.WriteString(outStyle.Render(out))
		b.WriteString("\n")
	}
	return b.String()
}
