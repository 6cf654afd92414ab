package models

import "time"

// Trace job lifecycle states.
const (
	TraceStatusPending = "pending"
	TraceStatusDone    = "done"
	TraceStatusFailed  = "failed"
)

// TraceJob tracks one asynchronous raster-to-vector conversion.
type TraceJob struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	SVG       string    `json:"svg,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
