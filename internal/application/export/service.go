package export

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/turtacn/PersonaQuiz/internal/domain/quiz"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/database/redis"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/PersonaQuiz/internal/infrastructure/storage/minio"
	"github.com/turtacn/PersonaQuiz/pkg/errors"
	dto "github.com/turtacn/PersonaQuiz/pkg/types/quiz"
)

const (
	// DefaultURLExpiry is how long a presigned download link stays valid.
	DefaultURLExpiry = time.Hour

	metaCompletedAt = "completed-at"
	metaTestType    = "test-type"
	metaProfile     = "profile"
)

// ResultReader fetches the stored result of a session.
type ResultReader interface {
	Get(ctx context.Context, sessionID string, t quiz.TestType) (*quiz.Result, error)
}

// Objects is the slice of the object store the service needs.
type Objects interface {
	Upload(ctx context.Context, req *minio.UploadRequest) (*minio.UploadResult, error)
	GetMetadata(ctx context.Context, objectKey string) (*minio.ObjectMetadata, error)
	GetPresignedDownloadURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
}

// Option configures a Service.
type Option func(*Service)

// WithLocker serializes renders of the same document across processes.
func WithLocker(l redis.Locker) Option {
	return func(s *Service) { s.locker = l }
}

func WithURLExpiry(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.expiry = d
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithMetrics(m *prometheus.AppMetrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// Service renders results, stores them under exports/ and hands out
// presigned links.
type Service struct {
	results ResultReader
	objects Objects
	locker  redis.Locker
	expiry  time.Duration
	logger  logging.Logger
	metrics *prometheus.AppMetrics
	now     func() time.Time
}

func NewService(results ResultReader, objects Objects, opts ...Option) *Service {
	s := &Service{
		results: results,
		objects: objects,
		expiry:  DefaultURLExpiry,
		logger:  logging.NewNopLogger(),
		metrics: prometheus.NewNopMetrics(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ObjectKey is the storage key of a rendered result.
func ObjectKey(t quiz.TestType, sessionID string, lang quiz.Language) string {
	return fmt.Sprintf("%s%s/%s-%s.pdf", minio.ExportPrefix, t, sessionID, lang)
}

// Export makes sure the PDF of the session's latest result exists in lang
// and returns a download link for it.
func (s *Service) Export(ctx context.Context, sessionID string, t quiz.TestType, lang quiz.Language) (*dto.ExportResponse, error) {
	r, err := s.results.Get(ctx, sessionID, t)
	if err != nil {
		return nil, err
	}
	key, err := s.ensure(ctx, *r, lang)
	if err != nil {
		return nil, err
	}
	url, err := s.objects.GetPresignedDownloadURL(ctx, key, s.expiry)
	if err != nil {
		return nil, err
	}
	return &dto.ExportResponse{
		URL:       url,
		ObjectKey: key,
		ExpiresAt: s.now().Add(s.expiry).UTC().Format(time.RFC3339),
	}, nil
}

// Prerender stores the PDF of r in its own language. The worker calls it on
// every completed result so that later exports only presign.
func (s *Service) Prerender(ctx context.Context, sessionID string, t quiz.TestType) error {
	r, err := s.results.Get(ctx, sessionID, t)
	if err != nil {
		return err
	}
	lang := r.Language
	if !lang.Valid() {
		lang = quiz.DefaultLanguage
	}
	_, err = s.ensure(ctx, *r, lang)
	return err
}

// ensure renders and uploads unless the stored object was rendered from the
// same completion. Returns the object key.
func (s *Service) ensure(ctx context.Context, r quiz.Result, lang quiz.Language) (string, error) {
	key := ObjectKey(r.TestType, r.SessionID, lang)
	stamp := strconv.FormatInt(r.CompletedAt.UnixMilli(), 10)

	if s.locker != nil {
		mu := s.locker.NewMutex("export:"+key, redis.WithLockTTL(30*time.Second))
		if err := mu.Lock(ctx); err != nil {
			return "", err
		}
		defer func() {
			if err := mu.Unlock(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("Failed to release export lock", logging.String("key", key), logging.Err(err))
			}
		}()
	}

	if s.current(ctx, key, stamp) {
		s.logger.Debug("Export up to date", logging.String("key", key))
		return key, nil
	}

	start := time.Now()
	data, err := Render(r, lang)
	if err != nil {
		prometheus.RecordExport(s.metrics, string(r.TestType), time.Since(start), err)
		if errors.IsCode(err, errors.ErrCodeInvalidTestData) {
			return "", err
		}
		return "", errors.Wrap(err, errors.ErrCodeRenderFailed, "failed to render result")
	}
	_, err = s.objects.Upload(ctx, &minio.UploadRequest{
		ObjectKey:   key,
		Data:        data,
		ContentType: ContentType,
		Metadata: map[string]string{
			metaCompletedAt: stamp,
			metaTestType:    string(r.TestType),
			metaProfile:     r.ProfileKey,
		},
	})
	prometheus.RecordExport(s.metrics, string(r.TestType), time.Since(start), err)
	if err != nil {
		return "", err
	}
	s.logger.Info("Result exported",
		logging.String("key", key),
		logging.Int("bytes", len(data)),
		logging.Duration("elapsed", time.Since(start)))
	return key, nil
}

// current reports whether key holds a render of the completion stamp.
// Lookup errors count as stale.
func (s *Service) current(ctx context.Context, key, stamp string) bool {
	meta, err := s.objects.GetMetadata(ctx, key)
	if err != nil {
		if !errors.IsNotFound(err) {
			s.logger.Warn("Export metadata lookup failed", logging.String("key", key), logging.Err(err))
		}
		return false
	}
	// S3 canonicalizes user metadata names.
	for k, v := range meta.Metadata {
		if strings.EqualFold(k, metaCompletedAt) {
			return v == stamp
		}
	}
	return false
}
