package syncer

// State — фазы жизненного цикла движка. Error не терминален: движок
// продолжает принимать правки и ретраит сохранение.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateSaving
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateSaving:
		return "saving"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}
