package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func testSettings() Settings {
	return Settings{
		Region:       "us-east-1",
		AccessKey:    "minioadmin",
		SecretKey:    "minioadmin",
		BaseEndpoint: "http://127.0.0.1:9000",
		Bucket:       "community",
	}
}

func stubClient(t *testing.T) {
	t.Helper()
	origLoad, origNewS3, origNewPre := loadDefaultAWSConfig, newS3ClientFromConfig, newS3PresignClient
	origPut, origGet := presignPutObject, presignGetObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
		presignPutObject = origPut
		presignGetObject = origGet
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			if err := fn(&lo); err != nil {
				t.Fatalf("load options fn error: %v", err)
			}
		}
		if lo.Region != "us-east-1" {
			t.Fatalf("region not applied: %q", lo.Region)
		}
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		var opts s3.Options
		for _, fn := range optFns {
			fn(&opts)
		}
		if opts.BaseEndpoint == nil || *opts.BaseEndpoint != "http://127.0.0.1:9000" {
			t.Fatalf("base endpoint not applied: %v", opts.BaseEndpoint)
		}
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		if c == nil {
			t.Fatal("nil client passed to presign")
		}
		return &s3.PresignClient{}
	}
}

func TestPresignUpload_Success(t *testing.T) {
	stubClient(t)

	var capturedBucket, capturedKey string
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		capturedBucket = *in.Bucket
		capturedKey = *in.Key
		return &v4.PresignedHTTPRequest{URL: "http://signed-put"}, nil
	}

	store := NewImageStore(testSettings())
	key, url, err := store.PresignUpload(context.Background())
	if err != nil {
		t.Fatalf("PresignUpload error: %v", err)
	}
	if url != "http://signed-put" {
		t.Errorf("url = %q", url)
	}
	if key != capturedKey {
		t.Errorf("returned key %q differs from presigned key %q", key, capturedKey)
	}
	if capturedBucket != "community" {
		t.Errorf("bucket = %q", capturedBucket)
	}
	if !strings.HasPrefix(key, "profiles/") {
		t.Errorf("key %q not under profiles/", key)
	}
}

func TestPresignUpload_Error(t *testing.T) {
	stubClient(t)

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("presign-put-fail")
	}

	store := NewImageStore(testSettings())
	if _, _, err := store.PresignUpload(context.Background()); err == nil || err.Error() != "presign-put-fail" {
		t.Fatalf("want presign-put-fail, got %v", err)
	}
}

func TestPresignDownload_Success(t *testing.T) {
	stubClient(t)

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		if *in.Key != "profiles/2026/1/1/abc" {
			t.Fatalf("key = %q", *in.Key)
		}
		return &v4.PresignedHTTPRequest{URL: "http://signed-get"}, nil
	}

	store := NewImageStore(testSettings())
	url, err := store.PresignDownload(context.Background(), "profiles/2026/1/1/abc")
	if err != nil {
		t.Fatalf("PresignDownload error: %v", err)
	}
	if url != "http://signed-get" {
		t.Errorf("url = %q", url)
	}
}

func TestPresignDownload_Error(t *testing.T) {
	stubClient(t)

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("presign-get-fail")
	}

	store := NewImageStore(testSettings())
	if _, err := store.PresignDownload(context.Background(), "k"); err == nil || err.Error() != "presign-get-fail" {
		t.Fatalf("want presign-get-fail, got %v", err)
	}
}

func TestNewImageKey_Unique(t *testing.T) {
	if NewImageKey() == NewImageKey() {
		t.Fatal("keys must be unique")
	}
}

func TestLoadConfigError(t *testing.T) {
	stubClient(t)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}

	store := NewImageStore(testSettings())
	if _, _, err := store.PresignUpload(context.Background()); err == nil || err.Error() != "load-fail" {
		t.Fatalf("want load-fail, got %v", err)
	}
}
