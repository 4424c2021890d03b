package engine

// RunState is the lifecycle state of an Engine.
type RunState int32

const (
	StateIdle RunState = iota
	StateRunning
	StatePaused
	StateStopped
	StateEnded
)

// String returns the state name.
func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// active reports whether a generation loop owns the engine.
func (s RunState) active() bool {
	return s == StateRunning || s == StatePaused
}

// EventKind identifies a lifecycle event.
type EventKind int

const (
	EventStart EventKind = iota + 1
	EventPause
	EventResume
	EventRestart
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
	case EventRestart:
		return "restart"
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

// Event is a lifecycle notification. Every run emits Start first and then
// exactly one of Stop, End or Error.
type Event[S comparable] struct {
	Kind     EventKind
	EngineID int

	// Candidate is the most recent candidate, when there is one. Observers
	// own the slice.
	Candidate []S

	// Position is the real position of the last generated candidate.
	Position int64

	Generated int64
	Total     int64

	// Found is set on End when the callback reported a hit.
	Found bool

	// Err is set on Error.
	Err error
}

// Observer receives lifecycle events on the engine's goroutine.
type Observer[S comparable] interface {
	Observe(ev Event[S])
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc[S comparable] func(ev Event[S])

// Observe implements Observer.
func (f ObserverFunc[S]) Observe(ev Event[S]) { f(ev) }

// Generated describes one candidate handed to a Callback.
type Generated[S comparable] struct {
	EngineID int

	// Candidate is only valid for the duration of the callback.
	Candidate []S

	Position  int64
	Generated int64
	Total     int64
}

// Callback inspects each candidate. Returning true ends the run as found.
type Callback[S comparable] func(g Generated[S]) bool
