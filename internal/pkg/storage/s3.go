// internal/pkg/storage/s3.go
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/your-org/cinema-backend/internal/config"
)

// S3Storage keeps objects in an S3-compatible bucket (AWS, MinIO, LocalStack)
type S3Storage struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

// NewS3Storage loads the AWS config and builds the client. Static keys and a
// custom endpoint are optional and only used when set.
func NewS3Storage(ctx context.Context, cfg *config.Config) (*S3Storage, error) {
	sc := cfg.External.Storage
	if sc.S3Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is required for s3 storage")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(sc.S3Region),
	}
	if sc.S3AccessKey != "" && sc.S3SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(sc.S3AccessKey, sc.S3SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if sc.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(sc.S3Endpoint)
		}
		o.UsePathStyle = sc.S3PathStyle
	})

	return &S3Storage{
		client:  client,
		bucket:  sc.S3Bucket,
		baseURL: publicBaseURL(sc),
	}, nil
}

func publicBaseURL(sc config.StorageConfig) string {
	switch {
	case sc.CDNBaseURL != "":
		return strings.TrimRight(sc.CDNBaseURL, "/")
	case sc.S3Endpoint != "":
		return strings.TrimRight(sc.S3Endpoint, "/") + "/" + sc.S3Bucket
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", sc.S3Bucket, sc.S3Region)
	}
}

// Upload puts the object and returns its public URL
func (s *S3Storage) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return s.URL(key), nil
}

// Delete removes the object
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// URL returns the public URL of key
func (s *S3Storage) URL(key string) string {
	return s.baseURL + "/" + strings.TrimLeft(key, "/")
}
