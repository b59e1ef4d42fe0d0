package media

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PutObjectAPI is the subset of the S3 client used by S3Store.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store uploads attachments to an S3 bucket.
type S3Store struct {
	client PutObjectAPI
	bucket string
	region string
	prefix string
}

// NewS3Store loads the default AWS configuration for region and returns a
// store writing under prefix in bucket.
func NewS3Store(ctx context.Context, bucket, region, prefix string) (*S3Store, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return NewS3StoreWithClient(s3.NewFromConfig(awsCfg), bucket, region, prefix), nil
}

// NewS3StoreWithClient returns a store using an existing client.
func NewS3StoreWithClient(client PutObjectAPI, bucket, region, prefix string) *S3Store {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &S3Store{client: client, bucket: bucket, region: region, prefix: prefix}
}

// Put buffers the upload (bounded by MaxFileSize) and writes it to S3.
func (s *S3Store) Put(ctx context.Context, originalName, contentType string, r io.Reader) (*Object, error) {
	name, ct, body, err := prepare(originalName, contentType, r)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	hasher := sha256.New()
	written, err := io.Copy(&buf, io.TeeReader(io.LimitReader(body, MaxFileSize+1), hasher))
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if written > MaxFileSize {
		return nil, ErrFileTooLarge
	}

	key := s.prefix + objectName(name)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentType:   aws.String(ct),
		ContentLength: aws.Int64(written),
	})
	if err != nil {
		return nil, fmt.Errorf("upload to s3: %w", err)
	}

	return &Object{
		Reference:    Reference{URL: s.objectURL(key), PublicID: key},
		Filename:     key[len(s.prefix):],
		OriginalName: name,
		ContentType:  ct,
		Size:         written,
		SHA256:       hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

func (s *S3Store) objectURL(key string) string {
	if s.region == "" {
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
