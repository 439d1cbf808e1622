// Package reliability manages durability concerns around the run journal:
// cloud backups to S3-compatible storage and remote retention.
package reliability

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/foundups/pqn-detector/internal/config"
)

// ObjectInfo describes a stored backup object.
type ObjectInfo struct {
	Key          string    `json:"key"`
	SizeBytes    int64     `json:"size_bytes"`
	LastModified time.Time `json:"last_modified"`
}

// ObjectStore is the minimal storage surface the backup service needs.
// S3Client implements it against S3-compatible storage; tests substitute an
// in-memory fake.
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader) error
	List(ctx context.Context) ([]ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

// S3Client wraps the AWS SDK for S3-compatible storage (Cloudflare R2,
// MinIO, AWS S3). A custom endpoint switches it away from plain AWS.
type S3Client struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
	log      zerolog.Logger
}

// NewS3Client creates a client from backup configuration.
func NewS3Client(ctx context.Context, cfg *config.BackupConfig, log zerolog.Logger) (*S3Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage credentials: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &S3Client{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		log:      log.With().Str("component", "s3_client").Logger(),
	}, nil
}

// Upload streams an object to the bucket under the configured prefix.
func (c *S3Client) Upload(ctx context.Context, key string, body io.Reader) error {
	fullKey := c.objectKey(key)
	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(fullKey),
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", fullKey, err)
	}
	c.log.Debug().Str("key", fullKey).Msg("Object uploaded")
	return nil
}

// List returns all objects under the configured prefix.
func (c *S3Client) List(ctx context.Context) ([]ObjectInfo, error) {
	var objects []ObjectInfo

	paginator := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(c.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list backups: %w", err)
		}
		for _, obj := range page.Contents {
			info := ObjectInfo{Key: aws.ToString(obj.Key)}
			if obj.Size != nil {
				info.SizeBytes = *obj.Size
			}
			if obj.LastModified != nil {
				info.LastModified = *obj.LastModified
			}
			objects = append(objects, info)
		}
	}
	return objects, nil
}

// Delete removes an object by its full key.
func (c *S3Client) Delete(ctx context.Context, key string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (c *S3Client) objectKey(key string) string {
	if c.prefix == "" {
		return key
	}
	return c.prefix + "/" + key
}
