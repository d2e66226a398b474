// Package questions supplies ordered question sets per test type and
// language. A remote source is tried first under a timeout; any failure falls
// back to the sets bundled into the binary.
package questions

import (
	"context"
	"time"

	"github.com/turtacn/PersonaQuiz/internal/domain/catalog"
	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/prometheus"
)

// DefaultRemoteTimeout bounds how long a remote fetch may delay the fallback.
const DefaultRemoteTimeout = 5 * time.Second

// Source names reported with a loaded set.
const (
	SourceRemote  = "remote"
	SourceBundled = "bundled"
)

// Source yields the ordered questions of a test.
type Source interface {
	Questions(ctx context.Context, t quiz.TestType, lang quiz.Language) ([]quiz.Question, error)
}

// Set is a loaded, validated and localized question set.
type Set struct {
	Test      catalog.Definition
	Language  quiz.Language
	Source    string
	Questions []quiz.Question
}

// Provider loads question sets, remote first and bundled second.
type Provider struct {
	remote  Source
	bundled Source
	timeout time.Duration
	logger  logging.Logger
	metrics *prometheus.AppMetrics
}

// Option configures a Provider.
type Option func(*Provider)

// WithRemote sets the source tried before the bundled sets.
func WithRemote(s Source) Option { return func(p *Provider) { p.remote = s } }

// WithTimeout overrides DefaultRemoteTimeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option { return func(p *Provider) { p.logger = l } }

// WithMetrics sets the metrics sink.
func WithMetrics(m *prometheus.AppMetrics) Option { return func(p *Provider) { p.metrics = m } }

// NewProvider returns a provider whose last resort is bundled.
func NewProvider(bundled Source, opts ...Option) *Provider {
	p := &Provider{
		bundled: bundled,
		timeout: DefaultRemoteTimeout,
		logger:  logging.NewNopLogger(),
		metrics: prometheus.NewNopMetrics(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Load returns the set for t localized to lang.
func (p *Provider) Load(ctx context.Context, t quiz.TestType, lang quiz.Language) (*Set, error) {
	def, err := catalog.Lookup(t)
	if err != nil {
		return nil, err
	}

	if p.remote != nil {
		start := time.Now()
		qs, err := p.fetchRemote(ctx, def, lang)
		if err == nil {
			prometheus.RecordQuestionLoad(p.metrics, string(t), SourceRemote, time.Since(start))
			return newSet(def, lang, SourceRemote, qs), nil
		}
		prometheus.RecordRemoteFallback(p.metrics, "questions")
		p.logger.Warn("remote questions unavailable, using bundled set",
			logging.String("test_type", string(t)),
			logging.String("lang", string(lang)),
			logging.Err(err))
	}

	start := time.Now()
	qs, err := p.bundled.Questions(ctx, t, lang)
	if err == nil {
		err = Validate(def, qs)
	}
	if err != nil {
		p.logger.Warn("bundled question set rejected", logging.String("test_type", string(t)), logging.Err(err))
		return nil, err
	}
	prometheus.RecordQuestionLoad(p.metrics, string(t), SourceBundled, time.Since(start))
	return newSet(def, lang, SourceBundled, qs), nil
}

func (p *Provider) fetchRemote(ctx context.Context, def catalog.Definition, lang quiz.Language) ([]quiz.Question, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	qs, err := p.remote.Questions(ctx, def.Type, lang)
	if err != nil {
		return nil, err
	}
	if err := Validate(def, qs); err != nil {
		return nil, err
	}
	return qs, nil
}

func newSet(def catalog.Definition, lang quiz.Language, source string, qs []quiz.Question) *Set {
	out := make([]quiz.Question, len(qs))
	for i, q := range qs {
		out[i] = q.Localize(lang)
	}
	return &Set{Test: def, Language: lang, Source: source, Questions: out}
}
