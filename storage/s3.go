package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Uploader is what the media worker talks to. The default build runs with
// NoOpUploader; S3Uploader is wired in when media mirroring is enabled.
type Uploader interface {
	Upload(ctx context.Context, key string, data io.Reader, contentType string) error
}

// NoOpUploader discards uploads. Media rows still get hashed and marked, so
// switching to a real bucket later replays nothing.
type NoOpUploader struct{}

func (NoOpUploader) Upload(ctx context.Context, key string, data io.Reader, contentType string) error {
	return nil
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // optional, for Spaces / R2
	AccessKeyID     string
	SecretAccessKey string
}

type S3Uploader struct {
	client *s3.Client
	bucket string
	cfg    S3Config
}

func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var client *s3.Client
	if cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	return &S3Uploader{client: client, bucket: cfg.Bucket, cfg: cfg}, nil
}

func (u *S3Uploader) Upload(ctx context.Context, key string, data io.Reader, contentType string) error {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        data,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func (u *S3Uploader) PublicURL(key string) string {
	if u.cfg.Endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", u.cfg.Endpoint, u.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.bucket, u.cfg.Region, key)
}

// MediaKey lays mirrored media out as media/<listing id>/<type>/<hash><ext>.
func MediaKey(listingID, mediaType, contentHash, ext string) string {
	return fmt.Sprintf("media/%s/%s/%s%s", listingID, mediaType, contentHash, ext)
}
