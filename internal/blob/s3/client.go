// Package s3blob stores raw snapshots and normalized batches in S3 or an
// S3-compatible provider (iDrive e2, MinIO, Cloudflare R2) using AWS SDK v2.
package s3blob

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ClientConfig holds the object store connection settings.
type ClientConfig struct {
	// Endpoint overrides the AWS endpoint for S3-compatible providers. A
	// value without a scheme gets https:// when UseSSL is set, else http://.
	Endpoint string
	Region   string
	Bucket   string

	// AccessKey and SecretKey select static credentials. When both are
	// empty the default AWS credential chain (env, shared config, IAM role)
	// is used.
	AccessKey string
	SecretKey string

	UseSSL         bool
	ForcePathStyle bool
}

// Client is an S3 client bound to one bucket. Reader and Writer share it.
type Client struct {
	api    *s3.Client
	bucket string
}

// New loads the AWS configuration and builds the bucket client.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	switch {
	case cfg.Bucket == "":
		return nil, errors.New("s3blob: bucket name is required")
	case cfg.Region == "":
		return nil, errors.New("s3blob: region is required")
	case (cfg.AccessKey == "") != (cfg.SecretKey == ""):
		return nil, errors.New("s3blob: access_key and secret_key must be set together")
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3blob: load aws config: %w", err)
	}

	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(normaliseEndpoint(cfg.Endpoint, cfg.UseSSL))
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})
	return &Client{api: api, bucket: cfg.Bucket}, nil
}

// Health checks that the bucket exists and is reachable with the configured
// credentials.
func (c *Client) Health(ctx context.Context) error {
	if _, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)}); err != nil {
		return fmt.Errorf("s3blob: head bucket %s: %w", c.bucket, err)
	}
	return nil
}

func normaliseEndpoint(endpoint string, useSSL bool) string {
	if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" && u.Host != "" {
		return endpoint
	}
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}
