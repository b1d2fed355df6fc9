package worksheet

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrNotBusy is returned when output arrives for a cell that is not executing.
var ErrNotBusy = errors.New("worksheet: cell is not busy")

// Cell is one input/output unit of a worksheet.
type Cell struct {
	id       string
	index    int
	hasIndex bool
	input    string
	stdout   strings.Builder
	stderr   strings.Builder
	busy     bool
}

// NewCell returns an empty cell with a freshly generated id.
func NewCell() *Cell {
	return NewCellWithID("")
}

// NewCellWithID returns an empty cell. An empty id generates a new one.
func NewCellWithID(id string) *Cell {
	if id == "" {
		id = newID()
	}
	return &Cell{id: id}
}

// newID renders a random uuid as 32 hex characters.
func newID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

func (c *Cell) ID() string { return c.id }

// Index returns the n in In[n]/Out[n]. ok is false when the cell has no index.
func (c *Cell) Index() (n int, ok bool) {
	return c.index, c.hasIndex
}

func (c *Cell) SetIndex(n int) {
	c.index = n
	c.hasIndex = true
}

func (c *Cell) Input() string { return c.input }

func (c *Cell) SetInput(input string) { c.input = input }

func (c *Cell) Stdout() string { return c.stdout.String() }

func (c *Cell) Stderr() string { return c.stderr.String() }

// Busy reports whether a computation is in progress.
func (c *Cell) Busy() bool { return c.busy }

// SetBusy marks the cell busy or idle. Entering busy always discards the
// index and both output buffers; leaving busy touches nothing.
func (c *Cell) SetBusy(busy bool) {
	if busy {
		c.clearOutput()
	}
	c.busy = busy
}

func (c *Cell) clearOutput() {
	c.index = 0
	c.hasIndex = false
	c.stdout.Reset()
	c.stderr.Reset()
}

func (c *Cell) AccumulateStdout(text string) error {
	if !c.busy {
		return fmt.Errorf("accumulate stdout on %s: %w", c.id, ErrNotBusy)
	}
	c.stdout.WriteString(text)
	return nil
}

func (c *Cell) AccumulateStderr(text string) error {
	if !c.busy {
		return fmt.Errorf("accumulate stderr on %s: %w", c.id, ErrNotBusy)
	}
	c.stderr.WriteString(text)
	return nil
}

// PlainText returns the trimmed stdout followed by the trimmed stderr.
func (c *Cell) PlainText() string {
	result := strings.TrimRightFunc(c.stdout.String(), isSpace)
	if c.stderr.Len() > 0 {
		result += strings.TrimRightFunc(c.stderr.String(), isSpace)
	}
	return result
}

func (c *Cell) String() string {
	return "Cell id " + c.id
}

// Snapshot is a value copy of the persistent cell fields.
type Snapshot struct {
	ID     string `json:"id"`
	Index  *int   `json:"index"`
	Input  string `json:"input"`
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

func (c *Cell) Snapshot() Snapshot {
	s := Snapshot{
		ID:     c.id,
		Input:  c.input,
		Stdout: c.stdout.String(),
		Stderr: c.stderr.String(),
	}
	if c.hasIndex {
		n := c.index
		s.Index = &n
	}
	return s
}

// FromSnapshot restores an idle cell.
func FromSnapshot(s Snapshot) *Cell {
	c := NewCellWithID(s.ID)
	c.input = s.Input
	c.stdout.WriteString(s.Stdout)
	c.stderr.WriteString(s.Stderr)
	if s.Index != nil {
		c.SetIndex(*s.Index)
	}
	return c
}

// isSpace is the ASCII whitespace set only. NBSP, EM SPACE and NEL survive
// trimming; do not replace with unicode.IsSpace.
func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
