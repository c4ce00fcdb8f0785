package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"newsreader/internal/entity"
)

// DocumentClient sends an uploaded file to the extraction service,
// which parses PDFs and OCRs images. The service's internals are not
// this repo's concern; the contract is bytes in, text out.
type DocumentClient struct {
	baseURL string
	client  *http.Client
}

func NewDocumentClient(baseURL string, timeout time.Duration) *DocumentClient {
	return &DocumentClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type documentResponse struct {
	Text string `json:"text"`
}

func (c *DocumentClient) Extract(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open upload: %v", entity.ErrExtraction, err)
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", f)
	if err != nil {
		return "", fmt.Errorf("%w: %v", entity.ErrExtraction, err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Filename", filepath.Base(path))

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: call extraction service: %v", entity.ErrExtraction, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: extraction service: status %s: %s", entity.ErrExtraction, resp.Status, body)
	}

	var out documentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode extraction response: %v", entity.ErrExtraction, err)
	}
	return out.Text, nil
}
