package audit

import "time"

// Actor identifies which surface triggered an action.
type Actor string

const (
	ActorAdmin Actor = "admin"
	ActorUser  Actor = "user"
	ActorCLI   Actor = "cli"
)

// Action describes what was done.
type Action string

const (
	ActionUpload Action = "upload"
	ActionDelete Action = "delete"
	ActionSeed   Action = "seed"
)

// Status is the outcome of an action.
type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// Event is a single audit trail record.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Actor     Actor     `json:"actor"`
	Action    Action    `json:"action"`
	FileName  string    `json:"fileName,omitempty"`
	FileID    string    `json:"fileId,omitempty"`
	Chunks    int       `json:"chunks"`
	Status    Status    `json:"status"`
	Detail    string    `json:"detail,omitempty"`
}
