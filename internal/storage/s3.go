// Package storage provides read access to uploaded document objects.
package storage

import (
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rotisserie/eris"
)

// ErrNotFound is returned when the requested object does not exist.
var ErrNotFound = eris.New("storage: object not found")

// ObjectReader fetches raw object bytes from a bucket/key location.
type ObjectReader interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
}

// S3API is the slice of the S3 client the reader uses.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Reader implements ObjectReader over S3.
type S3Reader struct {
	client S3API
}

// NewS3Reader creates a reader from a configured AWS config.
func NewS3Reader(awsCfg aws.Config) *S3Reader {
	return &S3Reader{client: s3.NewFromConfig(awsCfg)}
}

// NewS3ReaderWithClient creates a reader with an explicit client; for tests.
func NewS3ReaderWithClient(client S3API) *S3Reader {
	return &S3Reader{client: client}
}

func (r *S3Reader) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		var noBucket *types.NoSuchBucket
		if errors.As(err, &noKey) || errors.As(err, &noBucket) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "storage: get s3://%s/%s", bucket, key)
	}
	defer out.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "storage: read s3://%s/%s", bucket, key)
	}
	return data, nil
}
