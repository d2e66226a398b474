package persistence

import (
	"context"

	"github.com/turtacn/PersonaQuiz/internal/application/wire"
	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	dto "github.com/turtacn/PersonaQuiz/pkg/types/quiz"
)

// API is the part of the HTTP client the remote store uses.
type API interface {
	SaveProgress(ctx context.Context, req *dto.SaveProgressRequest) error
	SaveResult(ctx context.Context, req *dto.SaveResultRequest) error
}

// Remote is a write-only Store backed by the HTTP API.
type Remote struct {
	api API
}

// NewRemote adapts api.
func NewRemote(api API) *Remote { return &Remote{api: api} }

func (r *Remote) SaveProgress(ctx context.Context, s quiz.ProgressSnapshot) error {
	return r.api.SaveProgress(ctx, wire.ProgressRequest(s))
}

func (r *Remote) SaveResult(ctx context.Context, res quiz.Result) error {
	return r.api.SaveResult(ctx, wire.ResultRequest(res))
}
