package hosting

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"teepress/internal/config"
	"teepress/internal/ports"
)

// uploaderAPI is the slice of manager.Uploader the host relies on.
type uploaderAPI interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Host stages design files on S3 so URL-based uploads have something
// public to point at.
type S3Host struct {
	bucket   string
	region   string
	prefix   string
	uploader uploaderAPI
	now      func() time.Time
	logger   *slog.Logger
}

var _ ports.AssetHost = (*S3Host)(nil)

// NewS3Host resolves AWS credentials from the default chain.
func NewS3Host(ctx context.Context, cfg config.HostingConfig, log *slog.Logger) (*S3Host, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	return &S3Host{
		bucket:   cfg.Bucket,
		region:   cfg.Region,
		prefix:   cfg.Prefix,
		uploader: manager.NewUploader(client),
		now:      time.Now,
		logger:   log,
	}, nil
}

// Host implements ports.AssetHost. Objects land public-read under a dated
// prefix so a bucket listing groups designs by day.
func (h *S3Host) Host(ctx context.Context, filename string, content []byte) (string, error) {
	key := h.objectKey(filename)

	_, err := h.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(h.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String("image/png"),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s to s3: %w", key, err)
	}

	url := h.publicURL(key)
	h.debug("design hosted", "key", key, "url", url)
	return url, nil
}

func (h *S3Host) objectKey(filename string) string {
	return fmt.Sprintf("%s/%s/%s", h.prefix, h.now().UTC().Format("20060102"), filename)
}

func (h *S3Host) publicURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", h.bucket, h.region, key)
}

func (h *S3Host) debug(msg string, args ...interface{}) {
	if h.logger != nil {
		h.logger.Debug(msg, args...)
	}
}
