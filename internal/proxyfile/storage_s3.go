package proxyfile

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Storage keeps proxy files in one bucket; object keys mirror the logical
// path ("assemblies/<id>/<document>/<file>").
type S3Storage struct {
	client *s3.Client
	bucket string
}

// NewS3Storage builds the adapter from the ambient AWS configuration.
func NewS3Storage(ctx context.Context, bucket string) (*S3Storage, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &S3Storage{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

func (s *S3Storage) Upload(ctx context.Context, path string, blob io.Reader) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
		Body:   blob,
	})
	if err != nil {
		return "", fmt.Errorf("upload proxy file: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, path), nil
}

func (s *S3Storage) DeleteAllUnder(ctx context.Context, prefix string) error {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list proxy files: %w", err)
		}
		for _, obj := range page.Contents {
			_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    obj.Key,
			})
			if err != nil {
				return fmt.Errorf("delete proxy file %q: %w", aws.ToString(obj.Key), err)
			}
		}
	}
	return nil
}

var _ Storage = (*S3Storage)(nil)
