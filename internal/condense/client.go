// Package condense talks to the generation service that summarizes raw
// text and splits it into short phrases sized for speech synthesis. The
// model lives behind the service; this client owns the contract only:
// text + options + caller credential in, ordered segments out, with
// credential failures kept distinct from everything else.
package condense

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"newsreader/internal/entity"
)

type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type segmentRequest struct {
	Text    string          `json:"text"`
	Options []entity.Option `json:"options"`
}

type segmentResponse struct {
	Segments []string `json:"segments"`
	Error    string   `json:"error,omitempty"`
}

// Segment returns the ordered phrase list for one job. The credential
// is sent per request and nowhere else; it is the caller's key to the
// generation service, not ours.
func (c *Client) Segment(ctx context.Context, text string, opts []entity.Option, credential string) ([]string, error) {
	payload, err := json.Marshal(segmentRequest{Text: text, Options: opts})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", entity.ErrSegmentation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/segments", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrSegmentation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+credential)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: call generation service: %v", entity.ErrSegmentation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", entity.ErrSegmentation, err)
	}

	if credentialRejected(resp.StatusCode, body) {
		return nil, entity.ErrInvalidCredential
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: generation service: status %s", entity.ErrSegmentation, resp.Status)
	}

	var out segmentResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", entity.ErrSegmentation, err)
	}
	return out.Segments, nil
}

// credentialRejected recognizes an invalid caller key. The service
// signals it with 401/403; some upstream providers instead surface an
// "API key not valid" message in an error body, so that phrasing counts
// too.
func credentialRejected(status int, body []byte) bool {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return true
	}
	return strings.Contains(strings.ToLower(string(body)), "api key not valid")
}
