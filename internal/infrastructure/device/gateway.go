// Package device owns the connection to the ESP32-CAM.
package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"libkiosk/internal/config"
	"libkiosk/internal/domain/apperr"
)

var ErrUnavailable = apperr.New(apperr.KindTransientNetwork, "CAMERA_UNAVAILABLE", "camera unavailable")

var errStreamStalled = errors.New("stream stalled")

const (
	defaultCaptureTimeout = 2 * time.Second
	defaultProbeTimeout   = time.Second
	defaultReconnect      = 100 * time.Millisecond
	defaultStreamStall    = 5 * time.Second
	// streamed frames older than this are not used as a capture fallback
	freshness     = 2 * time.Second
	frameInterval = 66 * time.Millisecond
	maxFrameSize  = 4 << 20
)

type Gateway struct {
	captureURL       string
	streamURL        string
	captureTimeout   time.Duration
	probeTimeout     time.Duration
	reconnectBackoff time.Duration
	streamStall      time.Duration

	client *http.Client
	now    func() time.Time
	log    *slog.Logger

	mu     sync.RWMutex
	latest Frame
	online bool
}

func NewGateway(cfg config.Device, log *slog.Logger) *Gateway {
	g := &Gateway{
		captureURL:       cfg.CaptureURL(),
		streamURL:        cfg.StreamURL(),
		captureTimeout:   orDefault(cfg.CaptureTimeout, defaultCaptureTimeout),
		probeTimeout:     orDefault(cfg.ProbeTimeout, defaultProbeTimeout),
		reconnectBackoff: orDefault(cfg.ReconnectBackoff, defaultReconnect),
		streamStall:      orDefault(cfg.StreamStall, defaultStreamStall),
		client:           &http.Client{},
		now:              time.Now,
		log:              log.With("component", "device"),
	}
	g.latest = placeholderFrame(g.now())
	return g
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// PullFrame fetches one JPEG from the capture endpoint.
func (g *Gateway) PullFrame(ctx context.Context) (Frame, error) {
	if g.captureURL == "" {
		return Frame{}, fmt.Errorf("%w: camera address not configured", ErrUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, g.captureTimeout)
	defer cancel()

	body, err := g.get(ctx, g.captureURL)
	if err != nil {
		return Frame{}, err
	}
	if !validJPEG(body) {
		return Frame{}, fmt.Errorf("%w: capture returned an invalid image", ErrUnavailable)
	}
	return Frame{JPEG: body, At: g.now()}, nil
}

// Probe reports whether the capture endpoint answers within the probe timeout.
func (g *Gateway) Probe(ctx context.Context) error {
	if g.captureURL == "" {
		return fmt.Errorf("%w: camera address not configured", ErrUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, g.probeTimeout)
	defer cancel()

	_, err := g.get(ctx, g.captureURL)
	return err
}

func (g *Gateway) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFrameSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return body, nil
}

// Capture prefers a fresh single shot and falls back to a recent streamed frame.
func (g *Gateway) Capture(ctx context.Context) (Frame, error) {
	f, err := g.PullFrame(ctx)
	if err == nil {
		return f, nil
	}

	latest := g.Latest()
	if !latest.Placeholder && g.now().Sub(latest.At) <= freshness {
		g.log.Debug("capture failed, using streamed frame", "error", err)
		return latest, nil
	}
	return Frame{}, err
}

// Latest returns the newest streamed frame or the placeholder.
func (g *Gateway) Latest() Frame {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.latest
}

// Online reports whether the stream is currently connected.
func (g *Gateway) Online() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.online
}

func (g *Gateway) store(f Frame, online bool) {
	g.mu.Lock()
	g.latest = f
	g.online = online
	g.mu.Unlock()
}

// Frames yields the latest frame at a steady rate until ctx is done. It never fails; while the
// camera is down it yields placeholders.
func (g *Gateway) Frames(ctx context.Context) <-chan Frame {
	out := make(chan Frame)

	go func() {
		defer close(out)

		ticker := time.NewTicker(frameInterval)
		defer ticker.Stop()

		for {
			select {
			case out <- g.Latest():
			case <-ctx.Done():
				return
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// Run keeps the MJPEG stream connected until ctx is done.
func (g *Gateway) Run(ctx context.Context) {
	if g.streamURL == "" {
		g.log.Warn("camera address not configured, serving placeholder frames")
		<-ctx.Done()
		return
	}

	g.log.Info("camera stream started", "url", g.streamURL)
	for {
		err := g.readStream(ctx)
		g.store(placeholderFrame(g.now()), false)

		if ctx.Err() != nil {
			g.log.Info("camera stream stopped")
			return
		}
		g.log.Debug("camera stream lost, reconnecting", "error", err, "backoff", g.reconnectBackoff)

		t := time.NewTimer(g.reconnectBackoff)
		select {
		case <-ctx.Done():
			t.Stop()
			g.log.Info("camera stream stopped")
			return
		case <-t.C:
		}
	}
}

// readStream stores every streamed frame until the connection fails or goes quiet for longer
// than the stall timeout.
func (g *Gateway) readStream(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	watchdog := time.AfterFunc(g.streamStall, func() { cancel(errStreamStalled) })
	defer watchdog.Stop()
	defer func() {
		if cause := context.Cause(ctx); errors.Is(cause, errStreamStalled) {
			err = cause
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.streamURL, nil)
	if err != nil {
		return err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream status %d", resp.StatusCode)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return fmt.Errorf("parse content type: %w", err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		return fmt.Errorf("unexpected content type %q", mediaType)
	}

	boundary := strings.TrimPrefix(params["boundary"], "--")
	mr := multipart.NewReader(resp.Body, boundary)

	for {
		part, err := mr.NextPart()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}
			return err
		}

		data, err := io.ReadAll(io.LimitReader(part, maxFrameSize))
		part.Close()
		if err != nil {
			return err
		}
		if !validJPEG(data) {
			continue
		}
		watchdog.Reset(g.streamStall)
		g.store(Frame{JPEG: data, At: g.now()}, true)
	}
}

// CaptureJPEG is Capture for callers that only need the image bytes.
func (g *Gateway) CaptureJPEG(ctx context.Context) ([]byte, error) {
	f, err := g.Capture(ctx)
	if err != nil {
		return nil, err
	}
	return f.JPEG, nil
}
