package models

import "time"

// SessionState is the lifecycle state of a work session. Session lifecycle
// is owned by the session-bookkeeping service; this coordinator reads it.
type SessionState string

const (
	SessionActive SessionState = "active"
	SessionEnded  SessionState = "ended"
)

// Session is the current work session as recorded by the bookkeeping
// service. At most one session is active at a time.
type Session struct {
	ID             string       `json:"id"`
	StartTime      time.Time    `json:"start_time"`
	ElapsedMinutes int          `json:"elapsed_minutes"`
	PausesTaken    int          `json:"pauses_taken"`
	State          SessionState `json:"state"`
}
