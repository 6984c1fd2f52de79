package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config locates an S3-compatible bucket such as Cloudflare R2 or MinIO.
type Config struct {
	// Endpoint may carry a scheme; "https://" forces TLS regardless of UseSSL.
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	// PublicURL is the base under which uploaded objects are served.
	PublicURL string
	Region    string
	UseSSL    bool
}

// MinioRepoImpl implements repository.BlobRepository with minio-go.
type MinioRepoImpl struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

func NewMinioRepo(cfg Config) (*MinioRepoImpl, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("blob endpoint and bucket are required")
	}

	host, secure, err := splitEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	if publicURL == "" {
		publicURL = strings.TrimRight(client.EndpointURL().String(), "/") + "/" + cfg.Bucket
	}

	return &MinioRepoImpl{client: client, bucket: cfg.Bucket, publicURL: publicURL}, nil
}

// PutBytes uploads data as objectName and returns its public URL.
func (r *MinioRepoImpl) PutBytes(ctx context.Context, data []byte, objectName, contentType string) (string, error) {
	_, err := r.client.PutObject(ctx, r.bucket, objectName, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to put object %s: %w", objectName, err)
	}
	return r.PublicURL(objectName), nil
}

func (r *MinioRepoImpl) PublicURL(objectName string) string {
	return r.publicURL + "/" + objectName
}

// Ping checks that the bucket is reachable.
func (r *MinioRepoImpl) Ping(ctx context.Context) error {
	ok, err := r.client.BucketExists(ctx, r.bucket)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bucket %s does not exist", r.bucket)
	}
	return nil
}

func splitEndpoint(endpoint string, useSSL bool) (host string, secure bool, err error) {
	if !strings.Contains(endpoint, "://") {
		return strings.TrimRight(endpoint, "/"), useSSL, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("invalid blob endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid blob endpoint %q: missing host", endpoint)
	}
	return u.Host, u.Scheme == "https", nil
}
