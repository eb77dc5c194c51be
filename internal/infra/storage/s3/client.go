package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const defaultRegion = "us-east-1"

type Config struct {
	Endpoint       string
	PublicEndpoint string
	UseSSL         bool
	AccessKey      string
	SecretKey      string
	Bucket         string
	URLTTL         time.Duration
}

// Client keeps contracts in a private S3-compatible bucket and links to them with
// presigned GET URLs.
type Client struct {
	bucket         string
	urlTTL         time.Duration
	client         *minio.Client
	presigner      *minio.Client
	logger         *slog.Logger
	bucketInitOnce sync.Once
	bucketInitErr  error
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("s3: endpoint is required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	client, err := newMinio(endpoint, cfg)
	if err != nil {
		return nil, err
	}
	presigner := client
	if public := strings.TrimSpace(cfg.PublicEndpoint); public != "" && public != endpoint {
		if presigner, err = newMinio(public, cfg); err != nil {
			return nil, err
		}
	}
	ttl := cfg.URLTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Client{bucket: bucket, urlTTL: ttl, client: client, presigner: presigner, logger: logger}, nil
}

func newMinio(endpoint string, cfg Config) (*minio.Client, error) {
	secure := cfg.UseSSL
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Scheme == "https" {
		secure = true
	}
	c, err := minio.New(parseEndpoint(endpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(cfg.AccessKey), strings.TrimSpace(cfg.SecretKey), ""),
		Secure: secure,
		Region: defaultRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}
	return c, nil
}

func (c *Client) Put(ctx context.Context, key string, data []byte, contentType string) error {
	key = strings.Trim(strings.TrimSpace(key), "/")
	if key == "" {
		return errors.New("s3: object key is required")
	}
	if err := c.ensureBucket(ctx); err != nil {
		return err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := c.client.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("s3: put object: %w", err)
	}
	if c.logger != nil {
		c.logger.Debug("s3 upload completed", "bucket", c.bucket, "key", key)
	}
	return nil
}

func (c *Client) URL(ctx context.Context, key string) (string, error) {
	u, err := c.presigner.PresignedGetObject(ctx, c.bucket, strings.TrimLeft(key, "/"), c.urlTTL, nil)
	if err != nil {
		return "", fmt.Errorf("s3: presign %s: %w", key, err)
	}
	return u.String(), nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	key = strings.Trim(strings.TrimSpace(key), "/")
	if key == "" {
		return errors.New("s3: object key is required")
	}
	if err := c.client.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("s3: remove object: %w", err)
	}
	return nil
}

// Ping reports whether the bucket is reachable; used by the readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.client.BucketExists(ctx, c.bucket)
	return err
}

func (c *Client) ensureBucket(ctx context.Context) error {
	c.bucketInitOnce.Do(func() {
		exists, err := c.client.BucketExists(ctx, c.bucket)
		if err != nil {
			c.bucketInitErr = fmt.Errorf("s3: check bucket: %w", err)
			return
		}
		if exists {
			return
		}
		if err := c.client.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{Region: defaultRegion}); err != nil {
			c.bucketInitErr = fmt.Errorf("s3: create bucket: %w", err)
		}
	})
	return c.bucketInitErr
}

func parseEndpoint(endpoint string) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return endpoint
}
