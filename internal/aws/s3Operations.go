package aws

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/mahirjain10/image-handlers/internal/types"
)

const operationTimeout = 1 * time.Minute

// S3API is the part of *s3.Client the service uses.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
}

// Creating Dependency
type S3Service struct {
	client S3API
}

// Using Constructor Pattern to initalize our s3Service
func NewS3Service(client S3API) *S3Service {
	return &S3Service{client: client}
}

// Get fetches the object body together with its user metadata.
func (service *S3Service) Get(parentCtx context.Context, bucket string, key string) (*types.ImageObject, error) {
	ctx, cancel := context.WithTimeout(parentCtx, operationTimeout)
	defer cancel()

	resp, err := service.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("couldn't download object %s/%s, AWS error: %w", bucket, key, describe(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object data: %w", err)
	}

	metadata := make(map[string]string, len(resp.Metadata))
	for k, v := range resp.Metadata {
		metadata[strings.ToLower(k)] = v
	}
	return &types.ImageObject{
		Body:        body,
		Metadata:    metadata,
		ContentType: aws.ToString(resp.ContentType),
	}, nil
}

// Put writes body under key, replacing any existing object.
func (service *S3Service) Put(parentCtx context.Context, bucket string, key string, body []byte, contentType string, metadata map[string]string) error {
	ctx, cancel := context.WithTimeout(parentCtx, operationTimeout)
	defer cancel()

	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		Metadata:      metadata,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := service.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("couldn't upload object %s/%s, AWS error: %w", bucket, key, describe(err))
	}
	return nil
}

// Copy duplicates sourceKey to destKey inside the same bucket.
func (service *S3Service) Copy(parentCtx context.Context, bucket string, sourceKey string, destKey string) error {
	ctx, cancel := context.WithTimeout(parentCtx, operationTimeout)
	defer cancel()

	_, err := service.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(bucket),
		CopySource: aws.String(CopySource(bucket, sourceKey)),
		Key:        aws.String(destKey),
	})
	if err != nil {
		return fmt.Errorf("couldn't copy %s/%s to %s, AWS error: %w", bucket, sourceKey, destKey, describe(err))
	}
	return nil
}

// CopySource is the URL-encoded "bucket/key" form CopyObject expects.
func CopySource(bucket string, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return bucket + "/" + strings.Join(segments, "/")
}

// describe prefixes API errors with their service error code so logs
// show NoSuchKey or AccessDenied up front.
func describe(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %w", apiErr.ErrorCode(), err)
	}
	return err
}
