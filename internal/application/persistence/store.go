// Package persistence stores progress snapshots and results behind a single
// port. The tiered store writes to a remote service on a best-effort basis
// and always writes locally; reads come from the local store only.
package persistence

import (
	"context"

	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
)

// Store accepts progress snapshots and completed results.
type Store interface {
	SaveProgress(ctx context.Context, s quiz.ProgressSnapshot) error
	SaveResult(ctx context.Context, r quiz.Result) error
}

// LocalStore is a Store that can read back what it saved.
type LocalStore interface {
	Store
	// LoadProgress returns the snapshot of t, or nil when there is none or it
	// could not be decoded. An expired snapshot is deleted from the store and
	// still returned; callers check Expired.
	LoadProgress(ctx context.Context, t quiz.TestType) (*quiz.ProgressSnapshot, error)
	// LoadResult returns the latest result of t, or nil.
	LoadResult(ctx context.Context, t quiz.TestType) (*quiz.Result, error)
	ClearProgress(ctx context.Context, t quiz.TestType) error
}

// KV is a byte store keyed by string. Get returns nil, nil for a missing key.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// ProgressKey is the local key of the snapshot of t.
func ProgressKey(t quiz.TestType) string { return "progress:" + string(t) }

// ResultKey is the local key of the latest result of t.
func ResultKey(t quiz.TestType) string { return "result:" + string(t) }
