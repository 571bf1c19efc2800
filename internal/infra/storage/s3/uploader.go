package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"chakastays/internal/app/dataservice"
)

var (
	ErrNotConfigured  = errors.New("s3: uploader is not configured")
	ErrUnknownBucket  = errors.New("s3: bucket is not allowed")
	ErrMissingReader  = errors.New("s3: reader is required")
	ErrMissingKey     = errors.New("s3: object key is required")
	ErrMissingBuckets = errors.New("s3: at least one bucket is required")
)

type Options struct {
	Endpoint       string
	PublicEndpoint string
	AccessKey      string
	SecretKey      string
	UseSSL         bool
	// Buckets lists the buckets uploads may target. Each is created publicly readable on first use.
	Buckets []string
	Logger  *slog.Logger
}

// Client stores uploads in MinIO/S3 buckets and returns direct object URLs.
type Client struct {
	publicBaseURL string
	client        *minio.Client
	logger        *slog.Logger
	buckets       map[string]*bucketInit
}

type bucketInit struct {
	once sync.Once
	err  error
}

func NewClient(opts Options) (*Client, error) {
	cleanEndpoint := strings.TrimSpace(opts.Endpoint)
	if cleanEndpoint == "" {
		return nil, errors.New("s3: endpoint is required")
	}
	buckets := make(map[string]*bucketInit, len(opts.Buckets))
	for _, b := range opts.Buckets {
		if b = strings.TrimSpace(b); b != "" {
			buckets[b] = &bucketInit{}
		}
	}
	if len(buckets) == 0 {
		return nil, ErrMissingBuckets
	}

	minioClient, err := minio.New(parseEndpoint(cleanEndpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(opts.AccessKey), strings.TrimSpace(opts.SecretKey), ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}

	base := strings.TrimSpace(opts.PublicEndpoint)
	if base == "" {
		base = cleanEndpoint
	}
	return &Client{
		publicBaseURL: strings.TrimRight(base, "/"),
		client:        minioClient,
		logger:        opts.Logger,
		buckets:       buckets,
	}, nil
}

func (c *Client) Upload(ctx context.Context, bucket, key string, reader io.Reader, contentType string) (string, error) {
	if reader == nil {
		return "", ErrMissingReader
	}
	key = strings.Trim(strings.TrimSpace(key), "/")
	if key == "" {
		return "", ErrMissingKey
	}
	state, ok := c.buckets[bucket]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownBucket, bucket)
	}
	if err := c.ensureBucket(ctx, bucket, state); err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if _, err := c.client.PutObject(ctx, bucket, key, reader, -1, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return "", fmt.Errorf("%w: s3 put object: %w", dataservice.ErrUnavailable, err)
	}

	publicURL := objectURL(c.publicBaseURL, bucket, key)
	if c.logger != nil {
		c.logger.Info("s3 upload completed", "bucket", bucket, "key", key, "url", publicURL)
	}
	return publicURL, nil
}

// Ping checks that every configured bucket is reachable.
func (c *Client) Ping(ctx context.Context) error {
	for bucket := range c.buckets {
		if _, err := c.client.BucketExists(ctx, bucket); err != nil {
			return fmt.Errorf("s3: check bucket %s: %w", bucket, err)
		}
	}
	return nil
}

func (c *Client) ensureBucket(ctx context.Context, bucket string, state *bucketInit) error {
	state.once.Do(func() {
		exists, err := c.client.BucketExists(ctx, bucket)
		if err != nil {
			state.err = fmt.Errorf("s3: check bucket: %w", err)
			return
		}
		if exists {
			return
		}
		if err := c.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			state.err = fmt.Errorf("s3: create bucket: %w", err)
			return
		}
		if err := c.client.SetBucketPolicy(ctx, bucket, publicReadPolicy(bucket)); err != nil {
			state.err = fmt.Errorf("s3: set bucket policy: %w", err)
		}
	})
	return state.err
}

// NoopUploader fails fast when S3 is unavailable.
type NoopUploader struct{}

func (NoopUploader) Upload(context.Context, string, string, io.Reader, string) (string, error) {
	return "", ErrNotConfigured
}

func publicReadPolicy(bucket string) string {
	return fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, bucket)
}

func objectURL(base, bucket, key string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(base, "/"), bucket, strings.TrimLeft(key, "/"))
}

func parseEndpoint(endpoint string) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return endpoint
}

var (
	_ dataservice.Files = (*Client)(nil)
	_ dataservice.Files = NoopUploader{}
)
