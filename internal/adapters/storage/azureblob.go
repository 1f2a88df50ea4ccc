package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/plannerhq/planner/internal/infrastructure/config"
	"github.com/plannerhq/planner/internal/ports"
)

func init() {
	RegisterStorageType("azureblob", func(ctx context.Context, cfg config.StorageConfig) (ports.ObjectStorage, error) {
		return NewAzureBlobStorage(ctx, cfg)
	})
}

// AzureBlobStorage stores objects in an Azure Blob Storage container.
type AzureBlobStorage struct {
	client    *azblob.Client
	container string
}

// NewAzureBlobStorage authenticates with a shared key and ensures the
// container exists.
func NewAzureBlobStorage(ctx context.Context, cfg config.StorageConfig) (*AzureBlobStorage, error) {
	endpoint := cfg.AzureEndpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.AzureAccountName)
	}

	cred, err := azblob.NewSharedKeyCredential(cfg.AzureAccountName, cfg.AzureAccountKey)
	if err != nil {
		return nil, fmt.Errorf("create azure credential: %w", err)
	}
	client, err := azblob.NewClientWithSharedKeyCredential(endpoint, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create azure client: %w", err)
	}

	if _, err := client.CreateContainer(ctx, cfg.AzureContainer, nil); err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return nil, fmt.Errorf("create container %s: %w", cfg.AzureContainer, err)
	}

	return &AzureBlobStorage{client: client, container: cfg.AzureContainer}, nil
}

func (s *AzureBlobStorage) Save(ctx context.Context, key string, r io.Reader, _ int64, contentType string) (string, error) {
	p, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	_, err = s.client.UploadStream(ctx, s.container, p, r, &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: to.Ptr(contentType)},
	})
	if err != nil {
		return "", fmt.Errorf("upload blob: %w", err)
	}
	return joinURL(joinURL(s.client.URL(), s.container), p), nil
}

func (s *AzureBlobStorage) Delete(ctx context.Context, key string) error {
	p, err := cleanKey(key)
	if err != nil {
		return err
	}
	if _, err := s.client.DeleteBlob(ctx, s.container, p, nil); err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}
