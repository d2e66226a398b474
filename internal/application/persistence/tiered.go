package persistence

import (
	"context"
	"time"

	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/prometheus"
)

// DefaultRemoteTimeout bounds a remote write before the local write proceeds.
const DefaultRemoteTimeout = 5 * time.Second

// Tiered tries remote, then always writes local. Remote failures are logged
// and counted, never returned.
type Tiered struct {
	remote  Store
	local   LocalStore
	timeout time.Duration
	logger  logging.Logger
	metrics *prometheus.AppMetrics
}

// TieredOption configures a Tiered store.
type TieredOption func(*Tiered)

// WithRemoteTimeout overrides DefaultRemoteTimeout.
func WithRemoteTimeout(d time.Duration) TieredOption {
	return func(t *Tiered) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) TieredOption { return func(t *Tiered) { t.logger = l } }

// WithMetrics sets the metrics sink.
func WithMetrics(m *prometheus.AppMetrics) TieredOption { return func(t *Tiered) { t.metrics = m } }

// NewTiered composes remote and local. A nil remote makes every save local only.
func NewTiered(remote Store, local LocalStore, opts ...TieredOption) *Tiered {
	t := &Tiered{
		remote:  remote,
		local:   local,
		timeout: DefaultRemoteTimeout,
		logger:  logging.NewNopLogger(),
		metrics: prometheus.NewNopMetrics(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *Tiered) SaveProgress(ctx context.Context, s quiz.ProgressSnapshot) error {
	t.tryRemote(ctx, "save_progress", string(s.TestType), func(ctx context.Context) error {
		return t.remote.SaveProgress(ctx, s)
	})
	return t.local.SaveProgress(ctx, s)
}

func (t *Tiered) SaveResult(ctx context.Context, r quiz.Result) error {
	t.tryRemote(ctx, "save_result", string(r.TestType), func(ctx context.Context) error {
		return t.remote.SaveResult(ctx, r)
	})
	return t.local.SaveResult(ctx, r)
}

func (t *Tiered) LoadProgress(ctx context.Context, tt quiz.TestType) (*quiz.ProgressSnapshot, error) {
	return t.local.LoadProgress(ctx, tt)
}

func (t *Tiered) LoadResult(ctx context.Context, tt quiz.TestType) (*quiz.Result, error) {
	return t.local.LoadResult(ctx, tt)
}

func (t *Tiered) ClearProgress(ctx context.Context, tt quiz.TestType) error {
	return t.local.ClearProgress(ctx, tt)
}

func (t *Tiered) tryRemote(ctx context.Context, op, testType string, fn func(context.Context) error) {
	if t.remote == nil {
		return
	}
	rctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if err := fn(rctx); err != nil {
		prometheus.RecordRemoteFallback(t.metrics, op)
		t.logger.Warn("remote save failed, keeping local copy",
			logging.String("operation", op),
			logging.String("test_type", testType),
			logging.Err(err))
	}
}
