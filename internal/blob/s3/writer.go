package s3blob

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/alanyoungcy/marketnorm/internal/domain"
)

// minPartSize is the smallest part S3 accepts in a multipart upload.
const minPartSize int64 = manager.MinUploadPartSize

// Writer implements domain.BlobWriter. Every upload carries a SHA-256
// checksum that S3 verifies on receipt.
type Writer struct {
	*Client
}

// NewWriter returns a Writer over the client's bucket.
func NewWriter(c *Client) *Writer {
	return &Writer{Client: c}
}

// Put uploads obj in a single request.
func (w *Writer) Put(ctx context.Context, obj domain.Object) error {
	if _, err := w.api.PutObject(ctx, putInput(w.bucket, obj)); err != nil {
		return fmt.Errorf("s3blob: put %s: %w", obj.Key, err)
	}
	return nil
}

// PutMultipart uploads obj in parts of partSize bytes, raised to the S3
// minimum when smaller.
func (w *Writer) PutMultipart(ctx context.Context, obj domain.Object, partSize int64) error {
	uploader := manager.NewUploader(w.api, func(u *manager.Uploader) {
		u.PartSize = max(partSize, minPartSize)
	})
	if _, err := uploader.Upload(ctx, putInput(w.bucket, obj)); err != nil {
		return fmt.Errorf("s3blob: multipart upload %s: %w", obj.Key, err)
	}
	return nil
}

func putInput(bucket string, obj domain.Object) *s3.PutObjectInput {
	return &s3.PutObjectInput{
		Bucket:            aws.String(bucket),
		Key:               aws.String(obj.Key),
		Body:              bytes.NewReader(obj.Body),
		ContentType:       aws.String(obj.ContentType),
		Metadata:          obj.Metadata,
		ChecksumAlgorithm: types.ChecksumAlgorithmSha256,
	}
}

var _ domain.BlobWriter = (*Writer)(nil)
