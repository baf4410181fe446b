package input

// ID is a logical controller input.
type ID uint8

const (
	Select ID = iota
	Start
	Up
	Right
	Down
	Left
	B
	A

	numIDs
)

func (id ID) String() string {
	switch id {
	case Select:
		return "select"
	case Start:
		return "start"
	case Up:
		return "up"
	case Right:
		return "right"
	case Down:
		return "down"
	case Left:
		return "left"
	case B:
		return "B"
	case A:
		return "A"
	default:
		return "unknown"
	}
}

// Transition is the edge a button went through.
type Transition uint8

const (
	Released Transition = iota
	Pressed
)

func (t Transition) String() string {
	if t == Pressed {
		return "pressed"
	}
	return "released"
}

// Event is one edge on one logical input.
type Event struct {
	ID         ID
	Transition Transition
}

// Handler consumes one transition.
type Handler func(Transition)

// Sink resolves the handler for a logical input. A nil handler means the
// input is not wired.
type Sink interface {
	Lookup(id ID) Handler
}

// HandlerTable is a Sink backed by a map.
type HandlerTable map[ID]Handler

func (t HandlerTable) Lookup(id ID) Handler { return t[id] }
