package compute

import "fmt"

// EventKind tells what an Event reports.
type EventKind int

const (
	EventStdout EventKind = iota + 1
	EventStderr
	EventFinished
)

func (k EventKind) String() string {
	switch k {
	case EventStdout:
		return "stdout"
	case EventStderr:
		return "stderr"
	case EventFinished:
		return "finished"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is one message from the compute backend about a cell execution.
// For each execution there are zero or more output events followed by
// exactly one EventFinished.
type Event struct {
	Kind   EventKind
	CellID string
	Text   string
	// Index is the execution ordinal, set on EventFinished.
	Index int
	// Err holds the failure text of an unsuccessful execution.
	Err string
}

// Client is the handle through which a main loop receives backend events.
type Client struct {
	name   string
	events chan Event
}

func newClient(name string, buffer int) *Client {
	return &Client{name: name, events: make(chan Event, buffer)}
}

func (c *Client) Name() string { return c.name }

// Events is closed when the owning service shuts down.
func (c *Client) Events() <-chan Event { return c.events }
