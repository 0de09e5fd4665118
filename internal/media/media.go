package media

import (
	"art-marketplace/internal/clock"
	appconfig "art-marketplace/internal/config"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	lru "github.com/hashicorp/golang-lru"
)

// Resolver turns a stored image key into a URL a browser can load
type Resolver interface {
	URL(ctx context.Context, key string) (string, error)
}

// New picks the S3 resolver when a bucket is configured, otherwise a static base URL
func New(ctx context.Context, cfg appconfig.MediaConfig, clk clock.Clock) (Resolver, error) {
	if cfg.Bucket == "" {
		return NewStaticResolver(cfg.PublicBaseURL), nil
	}
	return NewS3Resolver(ctx, cfg, clk)
}

// StaticResolver joins keys onto a public base URL, e.g. a CDN in front of the bucket
type StaticResolver struct {
	base string
}

func NewStaticResolver(base string) *StaticResolver {
	return &StaticResolver{base: strings.TrimRight(base, "/")}
}

func (r *StaticResolver) URL(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	if r.base == "" {
		return key, nil
	}
	return r.base + "/" + (&url.URL{Path: strings.TrimLeft(key, "/")}).EscapedPath(), nil
}

type presignedURL struct {
	url     string
	staleAt time.Time
}

// S3Resolver hands out presigned GET URLs, reusing each one until half its lifetime has passed
type S3Resolver struct {
	presign *s3.PresignClient
	bucket  string
	ttl     time.Duration
	cache   *lru.Cache
	clock   clock.Clock
}

// NewS3Resolver builds a presign client from static credentials. A custom endpoint
// (MinIO, Spaces) switches to path-style addressing.
func NewS3Resolver(ctx context.Context, cfg appconfig.MediaConfig, clk clock.Clock) (*S3Resolver, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load object storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	size := cfg.CacheSize
	if size < 1 {
		size = 1
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}

	return &S3Resolver{
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		ttl:     cfg.URLTTL.Std(),
		cache:   cache,
		clock:   clk,
	}, nil
}

func (r *S3Resolver) URL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}

	now := r.clock.Now()
	if v, ok := r.cache.Get(key); ok {
		if cached := v.(presignedURL); now.Before(cached.staleAt) {
			return cached.url, nil
		}
	}

	req, err := r.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(r.ttl))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}

	r.cache.Add(key, presignedURL{url: req.URL, staleAt: now.Add(r.ttl / 2)})
	return req.URL, nil
}
