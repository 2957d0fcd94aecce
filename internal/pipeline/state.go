package pipeline

// State names a step of a run. Every change is logged.
type State string

const (
	StateIdle     State = "idle"
	StateGating   State = "gating"
	StateFetching State = "fetching"
	StateWriting  State = "writing"
	StateLogging  State = "logging"
	StateRetrying State = "retrying"
	StateFatal    State = "fatal"
)
