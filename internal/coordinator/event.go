package coordinator

// EventKind identifies an aggregate lifecycle event.
type EventKind int

const (
	EventStart EventKind = iota + 1
	EventPause
	EventResume
	EventStop
	EventEnd
	EventError
)

// String returns the event name.
func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventPause:
		return "pause"
	case EventResume:
		return "resume"
	case EventStop:
		return "stop"
	case EventEnd:
		return "end"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is an aggregate notification for the whole run. A run emits Start and
// then exactly one of Stop, End or Error.
type Event struct {
	Kind EventKind

	// Found is set on Stop and End when some worker reported a hit.
	Found bool

	// Err is the last worker error, set on Error.
	Err error
}

// Observer receives aggregate events. Events are delivered on the goroutine
// that completed the barrier, which may be a worker goroutine.
type Observer interface {
	Observe(ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev Event)

// Observe implements Observer.
func (f ObserverFunc) Observe(ev Event) { f(ev) }
