package chat

// State is the lifecycle position of a single chat turn.
type State int

const (
	StateIdle State = iota
	StateRetrievingContext
	StateBuildingPrompt
	StateStreaming
	StateDone
	StateErrored
)

var stateNames = [...]string{
	StateIdle:              "idle",
	StateRetrievingContext: "retrieving_context",
	StateBuildingPrompt:    "building_prompt",
	StateStreaming:         "streaming",
	StateDone:              "done",
	StateErrored:           "errored",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateDone || s == StateErrored
}
