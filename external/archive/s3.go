package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/foxseedlab/callscribe/internal/archive"
)

type S3Config struct {
	Region string
	Bucket string
	Prefix string
}

var ErrEmptyS3BucketName = errors.New("empty S3 bucket name")

type objectUploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type S3Archiver struct {
	bucket   string
	prefix   string
	uploader objectUploader
}

func NewS3Archiver(ctx context.Context, cfg S3Config) (*S3Archiver, error) {
	if cfg.Bucket == "" {
		return nil, ErrEmptyS3BucketName
	}
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newS3Archiver(cfg, manager.NewUploader(s3.NewFromConfig(awsCfg))), nil
}

func newS3Archiver(cfg S3Config, uploader objectUploader) *S3Archiver {
	return &S3Archiver{
		bucket:   cfg.Bucket,
		prefix:   strings.Trim(cfg.Prefix, "/"),
		uploader: uploader,
	}
}

func (a *S3Archiver) Put(ctx context.Context, name string, body []byte, contentType string) error {
	key := a.objectKey(name)
	_, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", a.bucket, key, err)
	}
	slog.Info("archived transcript object", "bucket", a.bucket, "key", key, "bytes", len(body))
	return nil
}

func (a *S3Archiver) objectKey(name string) string {
	name = strings.TrimLeft(name, "/")
	if a.prefix == "" {
		return name
	}
	return path.Join(a.prefix, name)
}

var _ archive.Archiver = (*S3Archiver)(nil)
