package task

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// RunIDs derives run identifiers of the form <username-local-part>-<seconds>.<microseconds>.
// Every returned timestamp is strictly later than the previous one, so ids never collide
// within a process even for the same user.
type RunIDs struct {
	now func() time.Time

	mu   sync.Mutex
	last time.Time
}

// NewRunIDs ...
func NewRunIDs(now func() time.Time) *RunIDs {
	if now == nil {
		now = time.Now
	}
	return &RunIDs{now: now}
}

// Next returns a new run id for username.
func (g *RunIDs) Next(username string) string {
	g.mu.Lock()
	ts := g.now().Truncate(time.Microsecond)
	if !ts.After(g.last) {
		ts = g.last.Add(time.Microsecond)
	}
	g.last = ts
	g.mu.Unlock()
	return fmt.Sprintf("%s-%d.%06d", LocalPart(username), ts.Unix(), ts.Nanosecond()/1000)
}

// LocalPart strips the mail domain: "alice@example.com" -> "alice".
func LocalPart(username string) string {
	if i := strings.Index(username, "@"); i >= 0 {
		return username[:i]
	}
	return username
}
