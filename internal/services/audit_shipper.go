package services

import (
	"bytes"
	"context"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// AuditShipper delivers security-event batches to the external audit sink.
type AuditShipper interface {
	Ship(ctx context.Context, objectName string, payload []byte) error
	EnsureBucketExists(ctx context.Context) error
}

type minioShipper struct {
	client *minio.Client
	bucket string
}

// NewMinioAuditShipper connects the object-store sink for audit batches.
func NewMinioAuditShipper(endpoint, accessKey, secretKey, bucket string, useSSL bool) (AuditShipper, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}
	return &minioShipper{client: client, bucket: bucket}, nil
}

func (m *minioShipper) Ship(ctx context.Context, objectName string, payload []byte) error {
	_, err := m.client.PutObject(ctx, m.bucket, objectName, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: "application/x-ndjson",
	})
	return err
}

func (m *minioShipper) EnsureBucketExists(ctx context.Context) error {
	found, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !found {
		return m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
	}
	return nil
}

// shipObjectName builds the JSONL object key for one batch.
func shipObjectName(now time.Time, batchID string) string {
	return "audit/" + now.Format("2006-01-02") + "/" + batchID + ".jsonl"
}
