// Package storage is the blob backend boundary. The core hands it
// bytes and gets back a durable URL plus a descriptor; everything else
// about the backend is its own business.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/lithammer/shortuuid/v4"

	"github.com/basit/nua-backend/models"
)

const keyPrefix = "nua-files/"

// Descriptor is what an upload leaves behind: where the bytes live and
// how to address them later.
type Descriptor struct {
	URL          string
	Key          string
	ResourceType string
}

// Store is the interface the disclosure service consumes.
type Store interface {
	Upload(ctx context.Context, name, contentType string, body io.Reader) (Descriptor, error)
	Fetch(ctx context.Context, key string) (io.ReadCloser, int64, error)
}

type S3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	region   string
}

func NewS3Store(client *s3.Client, bucket, region string) *S3Store {
	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		region:   region,
	}
}

func (s *S3Store) Upload(ctx context.Context, name, contentType string, body io.Reader) (Descriptor, error) {
	key := keyPrefix + shortuuid.New() + "_" + name
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return Descriptor{}, fmt.Errorf("s3 upload: %w", err)
	}
	return Descriptor{
		URL:          fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key),
		Key:          key,
		ResourceType: ResourceTypeFor(contentType),
	}, nil
}

func (s *S3Store) Fetch(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("s3 get object: %w", err)
	}
	return out.Body, aws.ToInt64(out.ContentLength), nil
}

// ResourceTypeFor classifies a MIME type the way the backend reports
// resources: images and videos by prefix, documents and everything
// else as raw.
func ResourceTypeFor(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return models.ResourceImage
	case strings.HasPrefix(contentType, "video/"):
		return models.ResourceVideo
	default:
		return models.ResourceRaw
	}
}
