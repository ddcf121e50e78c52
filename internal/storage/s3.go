// Package storage uploads recordings to S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	apperrors "github.com/GriffinCanCode/pushtalk/internal/errors"
)

// S3Config holds bucket settings. Endpoint is set for S3-compatible services
// such as MinIO or R2 and switches to path-style addressing.
type S3Config struct {
	Bucket    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Prefix    string
}

type putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 writes objects under a fixed key prefix.
type S3 struct {
	client putter
	bucket string
	prefix string
}

// NewS3 creates an uploader for cfg.
func NewS3(cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, apperrors.New(apperrors.ConfigInvalid, "storage: bucket must not be empty")
	}

	options := []func(*s3.Options){
		func(o *s3.Options) {
			o.Region = cfg.Region
			if o.Region == "" {
				o.Region = DefaultRegion
			}
			if cfg.AccessKey != "" {
				o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
			}
		},
	}
	if cfg.Endpoint != "" {
		options = append(options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		})
	}

	prefix := cfg.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3{client: s3.New(s3.Options{}, options...), bucket: cfg.Bucket, prefix: prefix}, nil
}

// Bucket returns the target bucket.
func (s *S3) Bucket() string { return s.bucket }

// Put uploads body under prefix+key.
func (s *S3) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.prefix + key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return apperrors.Wrapf(err, apperrors.Unavailable, "storage: put %s", key)
	}
	return nil
}
