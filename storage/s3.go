package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store puts files into a bucket under the documents/ prefix
type S3Store struct {
	client    s3API
	bucket    string
	publicURL string
}

// NewS3Store loads the default AWS credential chain
func NewS3Store(ctx context.Context, bucket, publicURL string) (*S3Store, error) {
	if bucket == "" {
		return nil, errors.New("S3_BUCKET is not set")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.amazonaws.com", bucket)
	}
	return &S3Store{client: s3.NewFromConfig(cfg), bucket: bucket, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

// Save uploads r
func (s *S3Store) Save(ctx context.Context, name, contentType string, r io.Reader, size int64) (*Object, error) {
	objectName, err := ObjectName(name)
	if err != nil {
		return nil, err
	}
	key := "documents/" + objectName
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          r,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 put object: %w", err)
	}
	return &Object{Key: key, URL: s.publicURL + "/" + key, Size: size}, nil
}

// Delete removes the object
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}
