package quiz

import (
	"fmt"
	"time"
)

// DefaultFreshnessWindow is how long a progress snapshot can be resumed.
const DefaultFreshnessWindow = 3600000 * time.Millisecond

// ProgressSnapshot is a time-bounded resumable checkpoint of an in-progress test.
type ProgressSnapshot struct {
	SessionID string      `json:"sessionId"`
	TestType  TestType    `json:"testId"`
	Language  Language    `json:"language"`
	Index     int         `json:"currentQuestion"`
	Scores    ScoreVector `json:"scores"`
	Answers   []Answer    `json:"answers"`
	Timestamp int64       `json:"timestamp"`
}

// Expired reports whether the snapshot is older than window at now.
func (s ProgressSnapshot) Expired(now time.Time, window time.Duration) bool {
	return now.UnixMilli()-s.Timestamp > window.Milliseconds()
}

// SavedAt returns the snapshot timestamp as a time.
func (s ProgressSnapshot) SavedAt() time.Time {
	return time.UnixMilli(s.Timestamp)
}

// Validate checks the structural invariants of a snapshot: one answer per
// answered index and no negative tallies.
func (s ProgressSnapshot) Validate() error {
	if !s.TestType.Valid() {
		return fmt.Errorf("snapshot: unknown test type %q", s.TestType)
	}
	if s.Index < 0 {
		return fmt.Errorf("snapshot: negative index %d", s.Index)
	}
	if len(s.Answers) != s.Index {
		return fmt.Errorf("snapshot: %d answers recorded for index %d", len(s.Answers), s.Index)
	}
	for f, n := range s.Scores {
		if n < 0 {
			return fmt.Errorf("snapshot: negative score %d for factor %s", n, f)
		}
	}
	if s.Timestamp <= 0 {
		return fmt.Errorf("snapshot: missing timestamp")
	}
	return nil
}
