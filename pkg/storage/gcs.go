package storage

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// NewGCSClient creates a Google Cloud Storage client. If credsPath is empty, ADC is used.
func NewGCSClient(ctx context.Context, credsPath string) (*storage.Client, error) {
	if credsPath == "" {
		return storage.NewClient(ctx)
	}
	return storage.NewClient(ctx, option.WithCredentialsFile(credsPath))
}

type GCSUploader struct {
	Client *storage.Client
	Bucket string
}

func NewGCSUploader(client *storage.Client, bucket string) *GCSUploader {
	return &GCSUploader{Client: client, Bucket: bucket}
}

func (u *GCSUploader) Upload(ctx context.Context, f File) (string, error) {
	r, err := f.Open()
	if err != nil {
		return "", uploadErr(err)
	}
	defer func() { _ = r.Close() }()

	key := ObjectKey(f.Filename())
	wc := u.Client.Bucket(u.Bucket).Object(key).NewWriter(ctx)
	wc.ContentType = f.ContentType()
	wc.PredefinedACL = "publicRead"
	wc.ChunkSize = 0 // disable chunking for small files
	if _, err := io.Copy(wc, r); err != nil {
		_ = wc.Close()
		return "", uploadErr(err)
	}
	if err := wc.Close(); err != nil {
		return "", uploadErr(err)
	}
	return GCSURL(u.Bucket, key), nil
}

var _ Uploader = (*GCSUploader)(nil)
