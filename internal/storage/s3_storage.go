package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config selects the bucket and, for MinIO/R2 style services, the endpoint
// and static credentials.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Prefix    string
}

// S3API is the subset of *s3.Client the storage needs.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	s3.ListObjectsV2APIClient
}

var _ S3API = (*s3.Client)(nil)

// S3Storage keeps leaves as objects. Containers are zero-byte marker objects
// ending in "/" so that empty directories exist.
type S3Storage struct {
	client S3API
	bucket string
	prefix string
}

func NewS3Storage(ctx context.Context, cfg S3Config) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage/s3: bucket is not configured")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage/s3: load config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return NewS3StorageWithClient(s3.NewFromConfig(awsCfg, clientOpts...), cfg.Bucket, cfg.Prefix), nil
}

// NewS3StorageWithClient wraps an already configured client.
func NewS3StorageWithClient(client S3API, bucket, prefix string) *S3Storage {
	return &S3Storage{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

func (st *S3Storage) key(p string) string {
	p = strings.Trim(p, "/")
	if st.prefix == "" {
		return p
	}
	return st.prefix + "/" + p
}

func (st *S3Storage) Write(ctx context.Context, p string, r io.Reader) error {
	_, err := st.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(st.bucket),
		Key:    aws.String(st.key(p)),
		Body:   r,
	})
	if err != nil {
		return fmt.Errorf("storage/s3: put %s: %w", p, err)
	}
	return nil
}

func (st *S3Storage) Read(ctx context.Context, p string) (io.ReadCloser, error) {
	out, err := st.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(st.bucket),
		Key:    aws.String(st.key(p)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("storage/s3: %s not found: %w", p, err)
		}
		return nil, fmt.Errorf("storage/s3: get %s: %w", p, err)
	}
	return out.Body, nil
}

func (st *S3Storage) CreateContainer(ctx context.Context, p string) error {
	_, err := st.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(st.bucket),
		Key:    aws.String(st.key(p) + "/"),
		Body:   strings.NewReader(""),
	})
	if err != nil {
		return fmt.Errorf("storage/s3: mkdir %s: %w", p, err)
	}
	return nil
}

// DeleteRecursive removes the object at p and everything below p + "/".
func (st *S3Storage) DeleteRecursive(ctx context.Context, p string) error {
	key := st.key(p)

	if _, err := st.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(st.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("storage/s3: delete %s: %w", p, err)
	}

	paginator := s3.NewListObjectsV2Paginator(st.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(st.bucket),
		Prefix: aws.String(key + "/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("storage/s3: list %s: %w", p, err)
		}
		if len(page.Contents) == 0 {
			continue
		}

		objs := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			objs = append(objs, types.ObjectIdentifier{Key: obj.Key})
		}
		out, err := st.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(st.bucket),
			Delete: &types.Delete{Objects: objs, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("storage/s3: delete %s: %w", p, err)
		}
		if len(out.Errors) > 0 {
			return fmt.Errorf("storage/s3: delete %s: %d objects failed, first %s", p, len(out.Errors), aws.ToString(out.Errors[0].Key))
		}
	}
	return nil
}
