package s3

import (
	"context"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	awsconfig "github.com/scttfrdmn/cargoship/pkg/aws/config"
	cargoships3 "github.com/scttfrdmn/cargoship/pkg/aws/s3"
)

// Uploader sends objects too large for a single buffered PutObject.
type Uploader interface {
	Upload(ctx context.Context, bucket, key string, body io.Reader, size int64) error
}

// transporterUploader uploads through one cargoship transporter per bucket.
type transporterUploader struct {
	client      *s3.Client
	concurrency int

	mu           sync.Mutex
	transporters map[string]*cargoships3.Transporter
}

func newTransporterUploader(client *s3.Client, cfg *Config) *transporterUploader {
	return &transporterUploader{
		client:       client,
		concurrency:  cfg.UploadConcurrency,
		transporters: make(map[string]*cargoships3.Transporter),
	}
}

func (u *transporterUploader) transporter(bucket string) *cargoships3.Transporter {
	u.mu.Lock()
	defer u.mu.Unlock()

	t, ok := u.transporters[bucket]
	if !ok {
		t = cargoships3.NewTransporter(u.client, awsconfig.S3Config{
			Bucket:             bucket,
			StorageClass:       awsconfig.StorageClassStandard,
			MultipartThreshold: 32 * 1024 * 1024,
			MultipartChunkSize: 16 * 1024 * 1024,
			Concurrency:        u.concurrency,
		})
		u.transporters[bucket] = t
	}
	return t
}

// Upload implements Uploader.
func (u *transporterUploader) Upload(ctx context.Context, bucket, key string, body io.Reader, size int64) error {
	_, err := u.transporter(bucket).Upload(ctx, cargoships3.Archive{
		Key:          key,
		Reader:       body,
		Size:         size,
		StorageClass: awsconfig.StorageClassStandard,
	})
	return err
}

var _ Uploader = (*transporterUploader)(nil)
