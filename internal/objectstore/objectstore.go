// Package objectstore uploads downloaded documents to a content-addressed
// S3-compatible bucket under {tenant}/{process}/{document}.pdf.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/conectasei/core/internal/logger"
)

// Config configures the object store client.
type Config struct {
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// Client is a thread-safe singleton wrapping an S3 client.
type Client struct {
	bucket string
	s3     *s3.Client
	up     *manager.Uploader
	log    *logger.Logger
}

var (
	instance   atomic.Pointer[Client]
	initMu     sync.Mutex
	initFailed error
)

// Init performs guarded, idempotent initialization of the singleton.
// Subsequent calls to Get() after a successful Init never re-run it
// (fast path, no locking). Init itself is safe to call concurrently —
// only the first caller does the work.
func Init(ctx context.Context, cfg Config) error {
	if instance.Load() != nil {
		return nil
	}

	initMu.Lock()
	defer initMu.Unlock()

	// Re-check now that we hold the lock: another goroutine may have
	// finished initialization while we were waiting.
	if instance.Load() != nil {
		return nil
	}
	if initFailed != nil {
		return initFailed
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		initFailed = fmt.Errorf("objectstore: load aws config: %w", err)
		return initFailed
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})

	client := &Client{
		bucket: cfg.Bucket,
		s3:     s3Client,
		up:     manager.NewUploader(s3Client),
		log:    logger.Default().With("component", "objectstore"),
	}
	instance.Store(client)
	return nil
}

// Get returns the initialized singleton, or nil if Init has not
// succeeded yet. Callers (the downloader) must treat a nil Client the
// same as an upload failure: record status=partial.
func Get() *Client {
	return instance.Load()
}

// reset clears the singleton; for tests only.
func reset() {
	instance.Store(nil)
	initFailed = nil
}

// CanonicalPath builds the content-addressed object key for a document.
func CanonicalPath(tenantID, processNumber, documentNumber string) string {
	return fmt.Sprintf("%s/%s/%s.pdf", tenantID, processNumber, documentNumber)
}

// Upload stores body under path with content-type application/pdf.
// Missing intermediate "directories" need no action — S3-compatible
// stores are flat keyspaces.
func (c *Client) Upload(ctx context.Context, path string, body []byte) (bool, error) {
	_, err := c.up.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(path),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		c.log.Warn("upload failed", "path", path, "error", err)
		return false, err
	}
	return true, nil
}

// Delete removes the object at path.
func (c *Client) Delete(ctx context.Context, path string) (bool, error) {
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		c.log.Warn("delete failed", "path", path, "error", err)
		return false, err
	}
	return true, nil
}

// URLFor returns a stable reference URL for the object at path. It
// does not presign; callers that need a time-limited download link
// should layer that on top.
func (c *Client) URLFor(path string) string {
	return fmt.Sprintf("s3://%s/%s", c.bucket, path)
}
