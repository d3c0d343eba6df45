package main

import (
	"context"
	"fmt"
	"os"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/codelynx/kronoa/pkg/backend"
	"github.com/codelynx/kronoa/pkg/backend/localfs"
	"github.com/codelynx/kronoa/pkg/backend/remote"
	"github.com/codelynx/kronoa/pkg/objectstore"
)

// openBackend constructs the configured backend.Store and its
// object store. "local" opens a localfs.Adapter rooted at cfg.Root;
// "s3" dials an S3-compatible endpoint via minio-go, scoped under
// cfg.Root as a key prefix.
func openBackend(ctx context.Context, cfg *config) (backend.Store, *objectstore.Store, error) {
	switch cfg.Backend {
	case "", "local":
		adapter, err := localfs.New(cfg.Root)
		if err != nil {
			return nil, nil, err
		}
		return adapter, objectstore.New(adapter), nil

	case "s3":
		if cfg.S3Bucket == "" || cfg.S3Endpoint == "" {
			return nil, nil, fmt.Errorf("s3 backend requires s3-bucket and s3-endpoint")
		}
		accessKey := cfg.S3AccessKey
		if accessKey == "" {
			accessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		}
		secretKey := cfg.S3SecretKey
		if secretKey == "" {
			secretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
		}
		client, err := minio.New(cfg.S3Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
			Secure: true,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("dial s3 endpoint: %w", err)
		}
		adapter := remote.New(client, cfg.S3Bucket, cfg.Root)
		return adapter, objectstore.New(adapter), nil

	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
