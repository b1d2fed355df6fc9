// Package worksheet holds the notebook data model: cells with an execution
// lifecycle and the ordered collection of cells that makes up one notebook.
//
// Nothing here is safe for concurrent use; callers mutate cells from a
// single control goroutine.
package worksheet

import (
	"errors"
	"fmt"
	"iter"
	"slices"
)

var (
	ErrCellNotFound       = errors.New("worksheet: cell not found")
	ErrDuplicateCell      = errors.New("worksheet: duplicate cell id")
	ErrPositionOutOfRange = errors.New("worksheet: position out of range")
)

// Worksheet is an ordered, uniquely keyed collection of cells. It is never empty.
type Worksheet struct {
	cells map[string]*Cell
	order []string
}

func newEmpty() *Worksheet {
	return &Worksheet{cells: make(map[string]*Cell)}
}

// New returns a worksheet holding a single blank cell.
func New() *Worksheet {
	w := newEmpty()
	w.push(NewCell())
	return w
}

// NewDefault returns the worksheet shown when nothing has been saved yet.
func NewDefault() *Worksheet {
	w := newEmpty()
	for _, input := range []string{
		"123",
		"123^2",
		"def f(x):\n    return 1",
		"for i in range(10):  # test\n    print i\n    sleep(0.4)\n",
	} {
		c := NewCell()
		c.SetInput(input)
		w.push(c)
	}
	return w
}

// FromCells builds a worksheet in the given order.
func FromCells(cells ...*Cell) (*Worksheet, error) {
	w := newEmpty()
	for _, c := range cells {
		if _, ok := w.cells[c.ID()]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCell, c.ID())
		}
		w.push(c)
	}
	if len(w.order) == 0 {
		w.push(NewCell())
	}
	return w, nil
}

func (w *Worksheet) push(c *Cell) {
	w.cells[c.ID()] = c
	w.order = append(w.order, c.ID())
}

// Insert places cell at position, which must lie in [0, Len()].
func (w *Worksheet) Insert(position int, cell *Cell) error {
	if position < 0 || position > len(w.order) {
		return fmt.Errorf("%w: insert at %d of %d", ErrPositionOutOfRange, position, len(w.order))
	}
	if _, ok := w.cells[cell.ID()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCell, cell.ID())
	}
	w.cells[cell.ID()] = cell
	w.order = slices.Insert(w.order, position, cell.ID())
	return nil
}

func (w *Worksheet) Append(cell *Cell) error {
	return w.Insert(len(w.order), cell)
}

// PositionOf returns the display position of cell.
func (w *Worksheet) PositionOf(cell *Cell) (int, error) {
	i := slices.Index(w.order, cell.ID())
	if i < 0 {
		return 0, fmt.Errorf("%w: %s", ErrCellNotFound, cell.ID())
	}
	return i, nil
}

// Delete removes cell. If that empties the worksheet a blank cell takes its
// place and is returned; otherwise the returned cell is nil.
func (w *Worksheet) Delete(cell *Cell) (*Cell, error) {
	i, err := w.PositionOf(cell)
	if err != nil {
		return nil, err
	}
	delete(w.cells, cell.ID())
	w.order = slices.Delete(w.order, i, i+1)
	if len(w.order) == 0 {
		blank := NewCell()
		w.push(blank)
		return blank, nil
	}
	return nil, nil
}

func (w *Worksheet) Len() int { return len(w.order) }

func (w *Worksheet) Cell(id string) (*Cell, error) {
	c, ok := w.cells[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCellNotFound, id)
	}
	return c, nil
}

// At returns the cell at position i. Negative positions count from the end.
func (w *Worksheet) At(i int) (*Cell, error) {
	n := len(w.order)
	j := i
	if j < 0 {
		j += n
	}
	if j < 0 || j >= n {
		return nil, fmt.Errorf("%w: %d of %d", ErrPositionOutOfRange, i, n)
	}
	return w.cells[w.order[j]], nil
}

// All yields the cells in display order.
func (w *Worksheet) All() iter.Seq[*Cell] {
	return func(yield func(*Cell) bool) {
		for _, id := range w.order {
			if !yield(w.cells[id]) {
				return
			}
		}
	}
}

func (w *Worksheet) Cells() []*Cell {
	return slices.Collect(w.All())
}

func (w *Worksheet) String() string {
	return fmt.Sprintf("Worksheet containing %d cells", w.Len())
}
