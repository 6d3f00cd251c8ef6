package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	cfg "github.com/GapJohn23/profferex/configs"
)

// ObjectStorage is the narrow slice of R2 this module consumes:
// header-only metadata and a full byte fetch.
type ObjectStorage interface {
	Head(ctx context.Context, key string) (contentType string, length int64, err error)
	Get(ctx context.Context, key string) ([]byte, error)
}

type R2Service struct {
	config cfg.Config
}

func NewR2Service(cfg cfg.Config) *R2Service {
	return &R2Service{config: cfg}
}

func (r *R2Service) R2Client() *s3.Client {
	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(r.config.R2.AccessKey, r.config.R2.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		slog.Info(err.Error())
		log.Fatal(err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", r.config.R2.AccountID))
	})
}

func (r *R2Service) Head(ctx context.Context, key string) (string, int64, error) {
	out, err := r.R2Client().HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.config.R2.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		slog.Info(err.Error())
		return "", 0, err
	}

	return aws.ToString(out.ContentType), aws.ToInt64(out.ContentLength), nil
}

func (r *R2Service) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := r.R2Client().GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.config.R2.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return data, nil
}
