// Package tts is the client for the speech-synthesis service hosting
// the trained voice model. The model loads once at service startup and
// is used for every job, so Ready is a startup gate for the worker: a
// missing model is fatal to the process, never a per-job failure.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
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

// Ready reports whether the synthesizer is loaded and able to serve.
func (c *Client) Ready(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("synthesizer unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("synthesizer not ready: status %s", resp.Status)
	}
	return nil
}

type synthesizeRequest struct {
	Text string `json:"text"`
}

// Synthesize renders one segment to an audio clip at clipPath. Failures
// here are per-segment: the runner logs and skips, it does not abort.
func (c *Client) Synthesize(ctx context.Context, text, clipPath string) error {
	payload, err := json.Marshal(synthesizeRequest{Text: text})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/synthesize", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("call synthesizer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("synthesizer: status %s", resp.Status)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read audio: %w", err)
	}
	if len(audio) == 0 {
		return fmt.Errorf("%w: synthesizer returned an empty clip", entity.ErrSynthesis)
	}
	if err := os.WriteFile(clipPath, audio, 0o644); err != nil {
		return fmt.Errorf("write clip: %w", err)
	}
	return nil
}
