// Package snapshot uploads captured copies of linked pages to S3-compatible
// object storage (Cloudflare R2 in production).
package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/jonesrussell/north-cloud/link-health/infrastructure/retry"
	"github.com/jonesrussell/north-cloud/link-health/internal/domain"
)

const (
	defaultContentType = "application/warc"
	hashPrefixLen      = 16
	keyTimeLayout      = "20060102150405"
	keyExtension       = ".warc.gz"
)

// ErrEmptySnapshot rejects zero-length uploads.
var ErrEmptySnapshot = errors.New("snapshot body is empty")

// Config describes the bucket that receives snapshots.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	Region    string
}

// ObjectPutter is the subset of the S3 client used by Store.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store writes snapshot objects.
type Store struct {
	client ObjectPutter
	bucket string
	prefix string
	retry  retry.Config
}

// NewS3Store builds an S3 client for cfg. Path-style addressing is used
// because R2 and MinIO endpoints do not serve virtual-host buckets.
func NewS3Store(ctx context.Context, cfg Config) (*Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load object storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})

	return NewStore(client, cfg.Bucket, cfg.Prefix), nil
}

// NewStore wraps an existing client.
func NewStore(client ObjectPutter, bucket, prefix string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		prefix: prefix,
		retry:  retry.DefaultConfig(),
	}
}

// Put uploads body as the snapshot of normalizedURL captured at capturedAt and
// returns the object key. Transient storage errors are retried.
func (s *Store) Put(ctx context.Context, normalizedURL string, capturedAt time.Time, body []byte, contentType string) (string, error) {
	if len(body) == 0 {
		return "", ErrEmptySnapshot
	}
	if contentType == "" {
		contentType = defaultContentType
	}

	key := Key(s.prefix, normalizedURL, capturedAt)
	err := retry.Retry(ctx, s.retry, func() error {
		_, putErr := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(s.bucket),
			Key:           aws.String(key),
			Body:          bytes.NewReader(body),
			ContentLength: aws.Int64(int64(len(body))),
			ContentType:   aws.String(contentType),
			Metadata: map[string]string{
				"source-url": normalizedURL,
			},
		})
		return putErr
	})
	if err != nil {
		return "", fmt.Errorf("put snapshot %s: %w", key, err)
	}

	return key, nil
}

// Key builds <prefix>/<domain>/<hash16>/<yyyymmddhhmmss>.warc.gz.
func Key(prefix, normalizedURL string, capturedAt time.Time) string {
	return path.Join(
		prefix,
		domain.ExtractDomain(normalizedURL),
		domain.URLHash(normalizedURL)[:hashPrefixLen],
		capturedAt.UTC().Format(keyTimeLayout)+keyExtension,
	)
}
