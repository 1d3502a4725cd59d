package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const (
	// S3ObjectKey is the key suffix for the library object
	S3ObjectKey = DirName + "/" + LibraryFile
)

// S3Backend keeps the snapshot in an S3 (or S3-compatible) bucket
type S3Backend struct {
	bucket   string
	prefix   string
	region   string
	endpoint string
	client   *s3.Client
}

// NewS3Backend creates a new S3 backend
func NewS3Backend(bucket, prefix, region string) *S3Backend {
	return &S3Backend{
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		region: region,
	}
}

// Type returns the backend type
func (b *S3Backend) Type() BackendType {
	return BackendS3
}

// GetLocation returns the S3 location as s3://bucket/prefix
func (b *S3Backend) GetLocation() string {
	if b.bucket == "" {
		return ""
	}
	if b.prefix != "" {
		return fmt.Sprintf("s3://%s/%s", b.bucket, b.prefix)
	}
	return fmt.Sprintf("s3://%s", b.bucket)
}

// SetLocation parses and sets the S3 location.
// Accepts s3://bucket/prefix or bucket/prefix.
func (b *S3Backend) SetLocation(location string) error {
	if location == "" {
		b.bucket = ""
		b.prefix = ""
		return nil
	}

	location = strings.TrimPrefix(location, "s3://")
	parts := strings.SplitN(location, "/", 2)
	if parts[0] == "" {
		return fmt.Errorf("invalid S3 location: bucket name required")
	}
	b.bucket = parts[0]
	b.prefix = ""
	if len(parts) > 1 {
		b.prefix = strings.Trim(parts[1], "/")
	}
	b.client = nil
	return nil
}

// SetEndpoint points the client at an S3-compatible service. Path-style
// addressing is used whenever an endpoint is set.
func (b *S3Backend) SetEndpoint(endpoint string) {
	b.endpoint = strings.TrimSpace(endpoint)
	b.client = nil
}

func (b *S3Backend) objectKey() string {
	if b.prefix != "" {
		return b.prefix + "/" + S3ObjectKey
	}
	return S3ObjectKey
}

// Init loads AWS credentials and verifies bucket access
func (b *S3Backend) Init(ctx context.Context) error {
	if b.bucket == "" {
		return ErrNotConfigured
	}

	opts := []func(*config.LoadOptions) error{}
	if b.region != "" {
		opts = append(opts, config.WithRegion(b.region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if b.endpoint != "" {
			o.BaseEndpoint = aws.String(b.endpoint)
			o.UsePathStyle = true
		}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(b.bucket)}); err != nil {
		return fmt.Errorf("failed to access bucket %s: %w", b.bucket, err)
	}

	b.client = client
	return nil
}

// Close releases resources (no-op for S3)
func (b *S3Backend) Close() error {
	return nil
}

// Write uploads the snapshot
func (b *S3Backend) Write(ctx context.Context, data []byte) error {
	if b.client == nil {
		return ErrNotConfigured
	}

	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.objectKey()),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("S3 put failed: %w", err)
	}
	return nil
}

// Read downloads the snapshot
func (b *S3Backend) Read(ctx context.Context) ([]byte, error) {
	if b.client == nil {
		return nil, ErrNotConfigured
	}

	result, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.objectKey()),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("S3 get failed: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}
	return data, nil
}

// GetModTime returns the last modification time of the S3 object
func (b *S3Backend) GetModTime(ctx context.Context) (time.Time, error) {
	if b.client == nil {
		return time.Time{}, ErrNotConfigured
	}

	result, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.objectKey()),
	})
	if err != nil {
		if isS3NotFound(err) {
			return time.Time{}, ErrNotFound
		}
		return time.Time{}, err
	}
	if result.LastModified != nil {
		return *result.LastModified, nil
	}
	return time.Time{}, ErrNotFound
}

// Exists returns true if the library object exists in S3
func (b *S3Backend) Exists(ctx context.Context) bool {
	if b.client == nil {
		return false
	}
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.objectKey()),
	})
	return err == nil
}

func isS3NotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}

// GetBucket returns the configured bucket name
func (b *S3Backend) GetBucket() string {
	return b.bucket
}

// GetPrefix returns the configured prefix
func (b *S3Backend) GetPrefix() string {
	return b.prefix
}

// GetRegion returns the configured region
func (b *S3Backend) GetRegion() string {
	return b.region
}
