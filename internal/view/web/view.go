package web

import (
	"github.com/jask/notebook/internal/presenter"
	"github.com/jask/notebook/internal/worksheet"
)

// Cell is the JSON form of a cell.
type Cell struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
	Input    string `json:"input"`
	Index    *int   `json:"index"`
	Busy     bool   `json:"busy"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

// Message is what websocket subscribers receive.
type Message struct {
	Type  string `json:"type"`
	Name  string `json:"name,omitempty"`
	Cell  *Cell  `json:"cell,omitempty"`
	Cells []Cell `json:"cells,omitempty"`
	Title string `json:"title,omitempty"`
	Text  string `json:"text,omitempty"`
}

func cellJSON(p *presenter.Presenter, c *worksheet.Cell) Cell {
	s := c.Snapshot()
	pos, _ := p.Worksheet().PositionOf(c)
	return Cell{
		ID:       s.ID,
		Position: pos,
		Input:    s.Input,
		Index:    s.Index,
		Busy:     c.Busy(),
		Stdout:   s.Stdout,
		Stderr:   s.Stderr,
	}
}

func cellsJSON(p *presenter.Presenter) []Cell {
	out := make([]Cell, 0, p.Worksheet().Len())
	for c := range p.Worksheet().All() {
		out = append(out, cellJSON(p, c))
	}
	return out
}

func worksheetMessage(p *presenter.Presenter) Message {
	return Message{Type: "worksheet", Name: p.Name(), Cells: cellsJSON(p)}
}

// View publishes presenter updates to websocket subscribers.
type View struct {
	p   *presenter.Presenter
	hub *Hub
}

func (v *View) Attach(p *presenter.Presenter) { v.p = p }

func (v *View) CellChanged(c *worksheet.Cell) {
	cell := cellJSON(v.p, c)
	v.hub.Broadcast(Message{Type: "cell", Cell: &cell})
}

func (v *View) WorksheetChanged() {
	v.hub.Broadcast(worksheetMessage(v.p))
}

func (v *View) Notify(text string) {
	v.hub.Broadcast(Message{Type: "notify", Text: text})
}

func (v *View) Error(title, text string) {
	v.hub.Broadcast(Message{Type: "error", Title: title, Text: text})
}
