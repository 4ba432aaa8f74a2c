// Package facerec talks to the face-embedding sidecar.
package facerec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/exp/slog"

	"libkiosk/internal/domain/apperr"
	"libkiosk/internal/domain/identity"
)

const detectPath = "/detect"

type Client struct {
	client  *http.Client
	baseURL string
	log     *slog.Logger
}

var _ identity.Detector = (*Client)(nil)

func New(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log.With("component", "facerec"),
	}
}

type detectResponse struct {
	Faces []identity.Face `json:"faces"`
	Error string          `json:"error,omitempty"`
}

// Detect posts the raw image and returns the faces found in it.
func (c *Client) Detect(ctx context.Context, image []byte) ([]identity.Face, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+detectPath, bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", http.DetectContentType(image))

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, apperr.Transient(fmt.Errorf("face detector: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Transient(fmt.Errorf("read detector response: %w", err))
	}

	var out detectResponse
	decodeErr := json.Unmarshal(body, &out)

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, fmt.Errorf("%w: %s", identity.ErrInvalidImage, out.Error)
	case resp.StatusCode >= 500:
		return nil, apperr.Transient(fmt.Errorf("face detector responded %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("face detector responded %d: %s", resp.StatusCode, out.Error)
	case decodeErr != nil:
		return nil, fmt.Errorf("decode detector response: %w", decodeErr)
	}

	c.log.Debug("faces detected", "count", len(out.Faces))
	return out.Faces, nil
}
