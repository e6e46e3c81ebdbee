package storage

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"signalroom/internal/pkg/logx"
)

// s3Client implements the StorageService interface, handling interactions with S3-compatible storage.
type s3Client struct {
	cfg       ServiceConfig
	presigner *s3.PresignClient
	logger    zerolog.Logger
}

// newS3Client initializes the S3 client using a custom configuration that supports S3-compatible endpoints.
func newS3Client(ctx context.Context, cfg ServiceConfig) (*s3Client, error) {
	logger := logx.Component("Storage")

	sdkCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKeyID,
			cfg.S3SecretAccessKey,
			"",
		)),
		config.WithRegion("auto"),
	)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load AWS SDK config.")
		return nil, errors.New("failed to initialize S3 client configuration")
	}

	client := s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		o.UsePathStyle = true
	})

	return &s3Client{
		cfg:       cfg,
		presigner: s3.NewPresignClient(client),
		logger:    logger,
	}, nil
}

// PresignUpload generates a presigned PUT URL bound to the given key, MIME type and size.
func (c *s3Client) PresignUpload(
	ctx context.Context,
	key string,
	mimeType string,
	fileSize int64,
	duration time.Duration,
) (string, error) {
	presignInput := &s3.PutObjectInput{
		Bucket:        aws.String(c.cfg.S3BucketName),
		Key:           aws.String(key),
		ContentType:   aws.String(mimeType),
		ContentLength: aws.Int64(fileSize),
	}

	resp, err := c.presigner.PresignPutObject(ctx, presignInput, s3.WithPresignExpires(duration))
	if err != nil {
		c.logger.Error().Err(err).Str("key", key).Msg("Failed to generate presigned upload URL.")
		return "", errors.New("failed to generate presigned upload URL")
	}

	return resp.URL, nil
}

// PresignDownload generates a presigned GET URL for the specified key.
func (c *s3Client) PresignDownload(ctx context.Context, key string, duration time.Duration) (string, error) {
	presignInput := &s3.GetObjectInput{
		Bucket: aws.String(c.cfg.S3BucketName),
		Key:    aws.String(key),
	}

	resp, err := c.presigner.PresignGetObject(ctx, presignInput, s3.WithPresignExpires(duration))
	if err != nil {
		c.logger.Error().Err(err).Str("key", key).Msg("Failed to generate presigned download URL.")
		return "", errors.New("failed to generate presigned download URL")
	}

	return resp.URL, nil
}
