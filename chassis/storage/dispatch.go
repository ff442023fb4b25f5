package storage

import (
	"time"
)

// Dispatch - one launched task. Only the log path is kept, never the output itself.
type Dispatch struct {
	ID           string
	TaskType     string
	Key          string
	TaskName     string
	Username     string
	RunID        string
	Command      string
	LogPath      string
	DispatchedDt time.Time
}
