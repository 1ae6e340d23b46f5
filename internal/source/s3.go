package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"github.com/i474232898/heat-stress-dashboard/internal/metrics"
)

// S3API is the subset of *s3.Client used by S3Fetcher.
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// NewS3Client builds a client for AWS or any S3-compatible endpoint.
// Static credentials are used when both keys are set, otherwise the
// default AWS credential chain applies.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// S3Fetcher downloads a dataset object when its ETag changes.
type S3Fetcher struct {
	client S3API
	bucket string
	key    string
	target string

	mu      sync.Mutex
	version string
}

// NewS3Fetcher downloads s3://bucket/key into cacheDir.
func NewS3Fetcher(client S3API, bucket, key, cacheDir string) (*S3Fetcher, error) {
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("s3 source needs s3://bucket/key, got bucket %q key %q", bucket, key)
	}
	target, err := downloadTarget(cacheDir, key)
	if err != nil {
		return nil, err
	}
	return &S3Fetcher{client: client, bucket: bucket, key: key, target: target}, nil
}

// Fetch downloads the object when its ETag differs from the last one.
func (f *S3Fetcher) Fetch(ctx context.Context) (Fetched, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	head, err := f.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(f.key),
	})
	if err != nil {
		metrics.SourceFetchesTotal.WithLabelValues("s3", "error").Inc()
		return Fetched{}, fmt.Errorf("head s3://%s/%s: %w", f.bucket, f.key, err)
	}
	version := aws.ToString(head.ETag)
	if version != "" && version == f.version {
		if _, err := os.Stat(f.target); err == nil {
			metrics.SourceFetchesTotal.WithLabelValues("s3", "unchanged").Inc()
			return Fetched{Path: f.target, Version: version}, nil
		}
	}

	obj, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(f.key),
	})
	if err != nil {
		metrics.SourceFetchesTotal.WithLabelValues("s3", "error").Inc()
		return Fetched{}, fmt.Errorf("get s3://%s/%s: %w", f.bucket, f.key, err)
	}
	defer obj.Body.Close()

	err = writeAtomically(f.target, func(out *os.File) error {
		_, err := io.Copy(out, obj.Body)
		return err
	})
	if err != nil {
		metrics.SourceFetchesTotal.WithLabelValues("s3", "error").Inc()
		return Fetched{}, fmt.Errorf("download s3://%s/%s: %w", f.bucket, f.key, err)
	}
	if etag := aws.ToString(obj.ETag); etag != "" {
		version = etag
	}

	changed := version != f.version
	f.version = version
	metrics.SourceFetchesTotal.WithLabelValues("s3", resultLabel(changed)).Inc()
	logrus.WithFields(logrus.Fields{"bucket": f.bucket, "key": f.key, "path": f.target, "version": version}).Info("source: dataset downloaded")
	return Fetched{Path: f.target, Version: version, Changed: changed}, nil
}
