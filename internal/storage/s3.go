package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/ivlev/tactiboard/internal/config"
)

var _ Uploader = (*S3Uploader)(nil)

// S3Uploader stores objects in any S3-compatible service (AWS S3, MinIO,
// RustFS).
type S3Uploader struct {
	client        *s3.Client
	bucket        string
	region        string
	endpoint      string
	usePathStyle  bool
	publicBaseURL string
	logger        *zap.Logger
}

type S3UploaderOption func(*S3Uploader)

func WithLogger(logger *zap.Logger) S3UploaderOption {
	return func(s *S3Uploader) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClient replaces the SDK client, mostly for tests against a fake
// endpoint.
func WithClient(client *s3.Client) S3UploaderOption {
	return func(s *S3Uploader) {
		s.client = client
	}
}

// NewS3Uploader creates an uploader from the storage configuration. Static
// credentials are used when given, the default AWS chain otherwise.
func NewS3Uploader(cfg *config.StorageConfig, opts ...S3UploaderOption) (*S3Uploader, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if (cfg.AccessKey == "") != (cfg.SecretKey == "") {
		return nil, errors.New("storage access key and secret key must be set together")
	}

	endpoint := cfg.Endpoint
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if cfg.UseSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}
	if endpoint != "" {
		if _, err := url.Parse(endpoint); err != nil {
			return nil, fmt.Errorf("invalid storage endpoint: %w", err)
		}
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		// S3-compatible servers do not all accept the default checksums
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	u := &S3Uploader{
		client:        client,
		bucket:        cfg.Bucket,
		region:        region,
		endpoint:      endpoint,
		usePathStyle:  cfg.UsePathStyle,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u, nil
}

func (s *S3Uploader) Bucket() string {
	return s.bucket
}

// Upload puts data under key and returns its public URL.
func (s *S3Uploader) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}

	start := time.Now()
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	s.logger.Debug("object uploaded",
		zap.String("bucket", s.bucket),
		zap.String("key", key),
		zap.Int("bytes", len(data)),
		zap.Duration("took", time.Since(start)))
	return s.URL(key), nil
}

// URL is the address an uploaded key is served from.
func (s *S3Uploader) URL(key string) string {
	switch {
	case s.publicBaseURL != "":
		return s.publicBaseURL + "/" + key
	case s.endpoint != "" && s.usePathStyle:
		return strings.TrimRight(s.endpoint, "/") + "/" + s.bucket + "/" + key
	case s.endpoint != "":
		u, err := url.Parse(s.endpoint)
		if err == nil {
			u.Host = s.bucket + "." + u.Host
			return strings.TrimRight(u.String(), "/") + "/" + key
		}
		return strings.TrimRight(s.endpoint, "/") + "/" + s.bucket + "/" + key
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
	}
}
