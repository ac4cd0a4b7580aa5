package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/restora-app/restora/internal/shared"
)

// BlobClient uploads file content to the externally-addressed blob store.
// The store is a black box: the whole contract is {file, ext} in, {key} out.
// Uploads are unauthenticated; the endpoint is addressed directly rather than
// through the backend.
type BlobClient struct {
	uploadURL  string
	httpClient *http.Client
	logger     *log.Logger
}

// NewBlobClient creates a blob-store client for the given upload endpoint.
func NewBlobClient(uploadURL string, client *http.Client, logger *log.Logger) *BlobClient {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &BlobClient{uploadURL: uploadURL, httpClient: client, logger: logger}
}

type blobUploadRequest struct {
	File string `json:"file"`
	Ext  string `json:"ext"`
}

type blobUploadResponse struct {
	Key string `json:"key"`
}

// Upload encodes content as base64 and submits it with its extension,
// returning the opaque storage key the store assigned.
func (b *BlobClient) Upload(ctx context.Context, content []byte, ext string) (string, error) {
	payload, err := json.Marshal(blobUploadRequest{
		File: base64.StdEncoding.EncodeToString(content),
		Ext:  ext,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal upload request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.uploadURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrBlobUpload, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: %s", shared.ErrBlobUpload, backendMessage(raw, fmt.Sprintf("status %d", resp.StatusCode)))
	}

	var result blobUploadResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	if result.Key == "" {
		return "", fmt.Errorf("%w: store returned no key", shared.ErrBlobUpload)
	}

	b.logger.Debugf("blob stored under key %s", result.Key)
	return result.Key, nil
}
