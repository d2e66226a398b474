package minio

import (
	"bytes"
	"context"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PersonaQuiz/pkg/errors"
)

// ExportPrefix is the key prefix of rendered result documents.
const ExportPrefix = "exports/"

var (
	ErrObjectNotFound = errors.New(errors.ErrCodeNotFound, "object not found")
	ErrInvalidRequest = errors.New(errors.ErrCodeValidation, "invalid request")
)

// ObjectStorageRepository stores objects in the client's bucket.
type ObjectStorageRepository interface {
	Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error)
	Exists(ctx context.Context, objectKey string) (bool, error)
	GetMetadata(ctx context.Context, objectKey string) (*ObjectMetadata, error)
	Delete(ctx context.Context, objectKey string) error
	GetPresignedDownloadURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
}

type UploadRequest struct {
	ObjectKey   string
	Data        []byte
	ContentType string
	Metadata    map[string]string
}

type UploadResult struct {
	Bucket     string
	ObjectKey  string
	ETag       string
	Size       int64
	UploadedAt time.Time
}

type ObjectMetadata struct {
	ObjectKey    string
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
	Metadata     map[string]string
}

type minioRepository struct {
	client *MinIOClient
	logger logging.Logger
}

// NewMinIORepository returns a repository over client's bucket.
func NewMinIORepository(client *MinIOClient, log logging.Logger) ObjectStorageRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &minioRepository{client: client, logger: log}
}

func (r *minioRepository) Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	if req == nil || req.ObjectKey == "" || len(req.Data) == 0 {
		return nil, ErrInvalidRequest
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	info, err := r.client.client.PutObject(ctx, r.client.Bucket(), req.ObjectKey,
		bytes.NewReader(req.Data), int64(len(req.Data)),
		minio.PutObjectOptions{ContentType: contentType, UserMetadata: req.Metadata})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "upload failed")
	}
	r.logger.Debug("Object uploaded", logging.String("key", req.ObjectKey), logging.Int64("size", info.Size))
	return &UploadResult{
		Bucket:     r.client.Bucket(),
		ObjectKey:  req.ObjectKey,
		ETag:       info.ETag,
		Size:       info.Size,
		UploadedAt: time.Now(),
	}, nil
}

func (r *minioRepository) Exists(ctx context.Context, objectKey string) (bool, error) {
	_, err := r.client.client.StatObject(ctx, r.client.Bucket(), objectKey, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ErrCodeExternalService, "stat failed")
	}
	return true, nil
}

func (r *minioRepository) GetMetadata(ctx context.Context, objectKey string) (*ObjectMetadata, error) {
	info, err := r.client.client.StatObject(ctx, r.client.Bucket(), objectKey, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrObjectNotFound.WithDetail(objectKey)
		}
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "stat failed")
	}
	return &ObjectMetadata{
		ObjectKey:    objectKey,
		Size:         info.Size,
		ContentType:  info.ContentType,
		ETag:         info.ETag,
		LastModified: info.LastModified,
		Metadata:     info.UserMetadata,
	}, nil
}

func (r *minioRepository) Delete(ctx context.Context, objectKey string) error {
	if err := r.client.client.RemoveObject(ctx, r.client.Bucket(), objectKey, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "delete failed")
	}
	return nil
}

func (r *minioRepository) GetPresignedDownloadURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	return r.client.GeneratePresignedGetURL(ctx, objectKey, expiry)
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
