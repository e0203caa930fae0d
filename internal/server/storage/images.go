// Package storage hands out presigned S3 URLs for profile images. The API
// server never proxies image bytes: the client uploads to a presigned PUT URL
// before signup and downloads avatars through presigned GET URLs.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// seams for tests
var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

const presignTTL = 15 * time.Minute

// Settings are the S3 (or MinIO) connection parameters.
type Settings struct {
	Region       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string
	Bucket       string
}

// ImageStore issues presigned URLs against one bucket.
type ImageStore struct {
	settings Settings
}

func NewImageStore(settings Settings) *ImageStore {
	return &ImageStore{settings: settings}
}

// NewImageKey returns a fresh storage key, partitioned by date so bucket
// listings stay manageable.
func NewImageKey() string {
	d := time.Now()
	return fmt.Sprintf("profiles/%d/%d/%d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *ImageStore) presignClient() (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		config.WithRegion(s.settings.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.settings.AccessKey,
			s.settings.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s.settings.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.settings.BaseEndpoint)
		}
	})

	return newS3PresignClient(client), nil
}

// PresignUpload mints a storage key and a presigned PUT URL for it. The
// caller uploads the image there and then passes the key to signup.
func (s *ImageStore) PresignUpload(ctx context.Context) (string, string, error) {
	pc, err := s.presignClient()
	if err != nil {
		return "", "", err
	}

	bucket := s.settings.Bucket
	key := NewImageKey()

	req, err := presignPutObject(pc, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignTTL))
	if err != nil {
		return "", "", err
	}

	return key, req.URL, nil
}

// PresignDownload returns a presigned GET URL for a stored image key.
func (s *ImageStore) PresignDownload(ctx context.Context, key string) (string, error) {
	pc, err := s.presignClient()
	if err != nil {
		return "", err
	}

	bucket := s.settings.Bucket

	req, err := presignGetObject(pc, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignTTL))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}
