package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"tradevault/internal/platform/config"
	"tradevault/pkg/platform/sentinel"
)

const s3Scheme = "s3://"

// S3 places blobs in an S3-compatible bucket under documents/<uuid>_<name>.
type S3 struct {
	client *s3.Client
	bucket string
}

// NewS3 builds an S3 store from configuration. Returns an error when the
// bucket or credentials are missing so callers can decide to run local-only.
func NewS3(cfg config.S3) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, errors.New("S3 credentials are required")
	}

	opts := s3.Options{
		Region: cfg.Region,
		Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}

	return &S3{client: s3.New(opts), bucket: cfg.Bucket}, nil
}

func (s *S3) Place(ctx context.Context, content []byte, suggestedName string) (string, error) {
	key := fmt.Sprintf("documents/%s_%s", uuid.New(), suggestedName)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(content),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return s3Scheme + s.bucket + "/" + key, nil
}

func (s *S3) Retrieve(ctx context.Context, locator string) ([]byte, error) {
	rest, ok := strings.CutPrefix(locator, s3Scheme)
	if !ok {
		return nil, sentinel.ErrUnsupportedScheme
	}
	bucket, key, found := strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return nil, fmt.Errorf("malformed s3 locator %q", locator)
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get object: %w", err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}
