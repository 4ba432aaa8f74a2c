// Package remote is the HTTP client of the central catalog service.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/slog"

	"libkiosk/internal/config"
	"libkiosk/internal/domain/apperr"
	"libkiosk/internal/domain/book"
	"libkiosk/internal/domain/outbox"
	syncdomain "libkiosk/internal/domain/sync"
)

const (
	UserAgent = "Kiosk-IoT-Device/1.0"

	usersPath      = "/api/sync/users/from-flask"
	borrowingsPath = "/api/sync/borrowings/from-flask"
	pingPath       = "/api/webhook/test"
	newBooksPath   = "/api/sync/books/new"

	maxBodyLog = 1000
)

type Client struct {
	client  *http.Client
	baseURL string
	apiKey  string
	now     func() time.Time
	log     *slog.Logger
}

var _ syncdomain.Remote = (*Client)(nil)

func New(cfg config.Remote, log *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 2,
			},
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		now:     time.Now,
		log:     log.With("component", "remote"),
	}
}

func (c *Client) PushUser(ctx context.Context, key string, action outbox.Action, s outbox.UserSnapshot) (*int64, error) {
	var resp response
	if err := c.do(ctx, http.MethodPost, usersPath, key, newUserRequest(action, s), &resp); err != nil {
		return nil, err
	}
	return resp.userID(), nil
}

func (c *Client) PushBorrowing(ctx context.Context, key string, action outbox.Action, s outbox.BorrowingSnapshot) (*int64, error) {
	var resp response
	if err := c.do(ctx, http.MethodPost, borrowingsPath, key, newBorrowingRequest(action, s), &resp); err != nil {
		return nil, err
	}
	return resp.borrowingID(), nil
}

// Ping posts a test message and returns the catalog's answer.
func (c *Client) Ping(ctx context.Context) (string, error) {
	now := c.now().UTC()
	req := pingRequest{
		Message:   "Hello from kiosk",
		Timestamp: now,
		TestID:    "kiosk_test_" + strconv.FormatInt(now.Unix(), 10),
	}

	var resp response
	if err := c.do(ctx, http.MethodPost, pingPath, "", req, &resp); err != nil {
		return "", err
	}
	if resp.Message == "" {
		return "connection successful", nil
	}
	return resp.Message, nil
}

// NewBooks accepts both a bare array and an object with a data array.
func (c *Client) NewBooks(ctx context.Context) ([]book.EventData, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, newBooksPath, "", nil, &raw); err != nil {
		return nil, err
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}

	var books []book.EventData
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &books); err != nil {
			return nil, fmt.Errorf("decode new books: %w", err)
		}
		return books, nil
	}

	var wrapped struct {
		Data []book.EventData `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decode new books: %w", err)
	}
	return wrapped.Data, nil
}

func (c *Client) do(ctx context.Context, method, path, key string, body, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return apperr.Wrap(apperr.KindValidation, "PAYLOAD", fmt.Errorf("marshal request: %w", err))
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	if key != "" {
		req.Header.Set("X-Idempotency-Key", key)
	}

	c.log.Debug("sending request", "method", method, "path", path, "idempotency_key", key)

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return apperr.Transient(fmt.Errorf("%s %s: %w", method, path, err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Transient(fmt.Errorf("read response: %w", err))
	}

	c.log.Debug("response received", "status", resp.StatusCode, "body", truncate(data))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return remoteError(resp.StatusCode, data)
	}

	if result == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func remoteError(status int, body []byte) *syncdomain.RemoteError {
	re := &syncdomain.RemoteError{StatusCode: status}

	var resp response
	if err := json.Unmarshal(body, &resp); err == nil {
		re.Message = resp.text()
		re.RemoteID = resp.userID()
		if re.RemoteID == nil {
			re.RemoteID = resp.borrowingID()
		}
	} else {
		re.Message = truncate(body)
	}
	if re.Message == "" {
		re.Message = http.StatusText(status)
	}
	return re
}

func truncate(b []byte) string {
	if len(b) > maxBodyLog {
		return string(b[:maxBodyLog]) + "..."
	}
	return string(b)
}
