// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package weights

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/hashicorp/go-cleanhttp"
)

// NewAzureStore returns a Store reading weights from an Azure Blob Storage
// container. cfg.Endpoint is the account URL and cfg.Bucket the container.
// The default Azure credential chain is used unless cfg.Anonymous is set, in
// which case the endpoint may carry a SAS token.
func NewAzureStore(cfg BackendConfig) (*ObjectStore, error) {
	opts := &azblob.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Transport: cleanhttp.DefaultPooledClient(),
		},
	}

	var (
		client *azblob.Client
		err    error
	)
	if cfg.Anonymous {
		client, err = azblob.NewClientWithNoCredential(cfg.Endpoint, opts)
	} else {
		cred, credErr := azidentity.NewDefaultAzureCredential(nil)
		if credErr != nil {
			return nil, fmt.Errorf("failed loading Azure credentials: %w", credErr)
		}
		client, err = azblob.NewClient(cfg.Endpoint, cred, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("failed creating Azure Blob client: %w", err)
	}

	container := cfg.Bucket
	return NewObjectStore(BackendAzure, cfg.ObjectName, func(ctx context.Context, key string) (io.ReadCloser, error) {
		resp, err := client.DownloadStream(ctx, container, key, nil)
		if err != nil {
			if isAzureNotFound(err) {
				return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
			}
			return nil, err
		}
		return resp.Body, nil
	}), nil
}

func isAzureNotFound(err error) bool {
	return bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound)
}
