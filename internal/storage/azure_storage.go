package storage

import (
	"context"
	"fmt"
	"image"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	apperrors "github.com/anime-shed/image-forensics-go/internal/errors"
)

// BlobStorage reads input images from and writes artifacts to blob storage
type BlobStorage interface {
	GetImage(ctx context.Context, blobURL string) (image.Image, error)
	PutBlob(ctx context.Context, container, name string, data []byte, contentType string) (string, error)
}

// blobClient is the subset of *azblob.Client used here
type blobClient interface {
	DownloadStream(ctx context.Context, containerName string, blobName string, o *azblob.DownloadStreamOptions) (azblob.DownloadStreamResponse, error)
	UploadBuffer(ctx context.Context, containerName string, blobName string, buffer []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error)
	URL() string
}

type azureStorage struct {
	client blobClient
}

// NewAzureStorage creates blob storage authenticated with a shared key
func NewAzureStorage(accountName string, accountKey string) (BlobStorage, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid azure storage credentials", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to create azure blob client", err)
	}

	return &azureStorage{client: client}, nil
}

func (s *azureStorage) GetImage(ctx context.Context, blobURL string) (image.Image, error) {
	containerName, blobName, err := ParseBlobURL(blobURL)
	if err != nil {
		return nil, err
	}

	downloadResponse, err := s.client.DownloadStream(ctx, containerName, blobName, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, apperrors.NewNotFoundError("blob not found", err).WithDetails("%s/%s", containerName, blobName)
		}
		return nil, apperrors.NewStorageError("blob download failed", err)
	}

	retryReader := downloadResponse.Body
	defer retryReader.Close()

	img, _, err := DecodeImage(retryReader)
	return img, err
}

// PutBlob uploads data and returns the blob URL
func (s *azureStorage) PutBlob(ctx context.Context, container, name string, data []byte, contentType string) (string, error) {
	opts := &azblob.UploadBufferOptions{}
	if contentType != "" {
		opts.HTTPHeaders = &blob.HTTPHeaders{BlobContentType: &contentType}
	}

	if _, err := s.client.UploadBuffer(ctx, container, name, data, opts); err != nil {
		return "", apperrors.NewStorageError("blob upload failed", err).WithDetails("%s/%s", container, name)
	}
	return strings.TrimSuffix(s.client.URL(), "/") + "/" + container + "/" + name, nil
}

// ParseBlobURL splits https://<account>.blob.core.windows.net/<container>/<blob path>.
// The legacy form /<container>?blob=<name> is also accepted.
func ParseBlobURL(blobURL string) (container, name string, err error) {
	parsedURL, err := url.Parse(blobURL)
	if err != nil {
		return "", "", apperrors.NewValidationError("invalid blob URL", err)
	}

	path := strings.TrimPrefix(parsedURL.Path, "/")
	if q := parsedURL.Query().Get("blob"); q != "" {
		container, name = strings.TrimSuffix(path, "/"), q
	} else if i := strings.Index(path, "/"); i >= 0 {
		container, name = path[:i], path[i+1:]
	}

	if container == "" || name == "" {
		return "", "", apperrors.NewValidationError("blob URL must name a container and a blob", nil).
			WithDetails("url %q", blobURL)
	}
	return container, name, nil
}
