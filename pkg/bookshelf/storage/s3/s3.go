// Package s3 publishes books to an S3-compatible bucket and streams them
// back. It works against AWS S3 proper and against MinIO-style endpoints.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/prepstack/bookshelf/pkg/bookshelf"
)

// Config options for the S3 backend
type Config struct {
	Region          string // AWS region
	Bucket          string // S3 bucket name
	AccessKeyID     string // AWS access key ID
	SecretAccessKey string // AWS secret access key
	Endpoint        string // Optional custom endpoint for S3-compatible services
	UsePathStyle    bool   // Use path-style addressing (default: false)

	// PublicBaseURL is the base under which stored objects are directly
	// fetchable; the bucket must allow anonymous reads. Defaults to the
	// virtual-hosted AWS URL, or <endpoint>/<bucket> when a custom endpoint
	// is set.
	PublicBaseURL string

	// MinIO/S3-compatible service options
	CreateBucketIfNotExist bool
}

// Backend implements bookshelf.BlobPublisher and bookshelf.BlobRetriever on
// top of an S3 bucket.
type Backend struct {
	client  *s3.Client
	bucket  string
	baseURL string
	config  Config
}

// New creates a new S3-compatible backend
func New(config Config) (*Backend, error) {
	if config.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	if config.Region == "" {
		config.Region = "us-east-1"
	}

	var awsCfg aws.Config
	var err error

	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(config.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				config.AccessKeyID,
				config.SecretAccessKey,
				"",
			)),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(config.Region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Options []func(*s3.Options)
	if config.Endpoint != "" {
		s3Options = append(s3Options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = config.UsePathStyle
		})
	}

	backend := &Backend{
		client:  s3.NewFromConfig(awsCfg, s3Options...),
		bucket:  config.Bucket,
		baseURL: publicBaseURL(config),
		config:  config,
	}

	if config.CreateBucketIfNotExist {
		if err := backend.createBucketIfNotExists(context.Background()); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return backend, nil
}

func publicBaseURL(config Config) string {
	if config.PublicBaseURL != "" {
		return strings.TrimSuffix(config.PublicBaseURL, "/")
	}
	if config.Endpoint != "" {
		return fmt.Sprintf("%s/%s", strings.TrimSuffix(config.Endpoint, "/"), config.Bucket)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", config.Bucket, config.Region)
}

// createBucketIfNotExists creates the bucket if it doesn't exist
func (b *Backend) createBucketIfNotExists(ctx context.Context) error {
	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(b.bucket),
	})
	if err == nil {
		return nil
	}

	// Handle multiple error shapes for MinIO compatibility
	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) &&
		!strings.Contains(err.Error(), "BadRequest") &&
		!strings.Contains(err.Error(), "NoSuchBucket") {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	createInput := &s3.CreateBucketInput{
		Bucket: aws.String(b.bucket),
	}
	if b.config.Region != "us-east-1" {
		createInput.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(b.config.Region),
		}
	}

	_, err = b.client.CreateBucket(ctx, createInput)
	if err != nil {
		if strings.Contains(err.Error(), "BucketAlreadyExists") ||
			strings.Contains(err.Error(), "BucketAlreadyOwnedByYou") {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	return nil
}

// Publish streams the book into the bucket under a category-namespaced key.
// manager.Uploader chunks the reader, so large payloads are never held in
// memory at once.
func (b *Backend) Publish(ctx context.Context, category bookshelf.Category, fileName string, r io.Reader) (bookshelf.Locator, error) {
	key := fmt.Sprintf("%s/%d_%s/%s", category, time.Now().UTC().Unix(), uuid.NewString()[:8], fileName)

	uploader := manager.NewUploader(b.client)
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Body:   r,
	})
	if err != nil {
		return bookshelf.Locator{}, &bookshelf.PublishError{
			Category:     category,
			FileName:     fileName,
			ProviderBody: providerBody(err),
			Err:          fmt.Errorf("failed to upload to S3: %w", err),
		}
	}

	return bookshelf.Locator{DirectURL: b.objectURL(key)}, nil
}

// Open streams the book back from the bucket. The locator must carry a
// direct URL minted by this backend; its object key is recovered from it.
func (b *Backend) Open(ctx context.Context, loc bookshelf.Locator) (io.ReadCloser, *bookshelf.BlobInfo, error) {
	key, err := b.objectKey(loc.DirectURL)
	if err != nil {
		return nil, nil, &bookshelf.RetrieveError{URL: loc.DirectURL, Err: err}
	}

	result, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, nil, &bookshelf.RetrieveError{
			URL: loc.DirectURL,
			Err: fmt.Errorf("failed to download from S3: %w", err),
		}
	}

	info := &bookshelf.BlobInfo{Size: -1}
	if result.ContentLength != nil {
		info.Size = *result.ContentLength
	}
	if result.ContentType != nil {
		info.ContentType = *result.ContentType
	}
	return result.Body, info, nil
}

func (b *Backend) objectURL(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return fmt.Sprintf("%s/%s", b.baseURL, strings.Join(parts, "/"))
}

func (b *Backend) objectKey(directURL string) (string, error) {
	escaped, ok := strings.CutPrefix(directURL, b.baseURL+"/")
	if !ok {
		return "", fmt.Errorf("locator %q is outside base %q", directURL, b.baseURL)
	}
	key, err := url.PathUnescape(escaped)
	if err != nil {
		return "", fmt.Errorf("bad object key in locator: %w", err)
	}
	return key, nil
}

// providerBody extracts the provider's error code and message for the
// operator-facing error text.
func providerBody(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("%s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage())
	}
	return ""
}
