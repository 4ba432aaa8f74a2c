package kiosk

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libkiosk/internal/domain/book"
	"libkiosk/internal/domain/borrowing"
	"libkiosk/internal/domain/identity"
	"libkiosk/internal/domain/kiosk"
	"libkiosk/internal/domain/user"
	"libkiosk/internal/infrastructure/device"
	"libkiosk/internal/utils/logger"
)

var jpeg = []byte{0xFF, 0xD8, 0xFF, 0xD9}

type cameraFunc func(ctx context.Context) ([]byte, error)

func (f cameraFunc) CaptureJPEG(ctx context.Context) ([]byte, error) { return f(ctx) }

type faces struct {
	enrolled []byte
}

func (f *faces) Recognize(context.Context, []byte) (identity.Result, error) {
	return identity.Result{Status: identity.StatusMatched, Label: "Alice", Distance: 0.2}, nil
}

func (f *faces) Enroll(_ context.Context, img []byte, label string) (*identity.Enrollment, error) {
	f.enrolled = img
	return &identity.Enrollment{Label: label, ImageRef: "known_faces/alice.jpg"}, nil
}

func (f *faces) Reload() (int, error) { return 1, nil }

type users struct{}

var alice = user.User{ID: 1, FullName: "Alice", Email: "alice@example.com", Role: user.RoleMember}

func (users) Get(_ context.Context, id int64) (*user.User, error) {
	if id != alice.ID {
		return nil, user.ErrNotFound
	}
	u := alice
	return &u, nil
}

func (users) Resolve(_ context.Context, l user.Lookup) (*user.User, error) {
	if l.Name != alice.FullName {
		return nil, user.ErrNotFound
	}
	u := alice
	return &u, nil
}

func (users) AttachFace(_ context.Context, _ int64, ref string) (*user.User, error) {
	u := alice
	u.FaceImageRef = ref
	return &u, nil
}

type borrowings struct{}

func (borrowings) Lend(context.Context, borrowing.LendRequest) (*borrowing.Detail, error) {
	return nil, borrowing.ErrOutOfStock
}

func (borrowings) Return(context.Context, borrowing.ReturnRequest) (*borrowing.Detail, error) {
	return nil, borrowing.ErrNoActiveBorrowing
}

func (borrowings) BookStatus(_ context.Context, rfid string) (*borrowing.BookStatus, error) {
	if rfid != "53A0A434" {
		return nil, book.ErrNotFound
	}
	return &borrowing.BookStatus{Book: book.Book{ID: 1, Title: "Laskar Pelangi", RFIDTag: rfid, Stock: 1}, Available: true}, nil
}

type frames struct{}

func (frames) Latest() device.Frame {
	return device.Frame{JPEG: jpeg, At: time.Now()}
}

type fixture struct {
	svc     *kiosk.Service
	faces   *faces
	router  http.Handler
	api     humatest.TestAPI
	release chan struct{}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{faces: &faces{}, release: make(chan struct{})}
	camera := cameraFunc(func(ctx context.Context) ([]byte, error) {
		select {
		case <-f.release:
			return jpeg, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	f.svc = kiosk.NewService(camera, f.faces, users{}, borrowings{}, kiosk.Config{}, logger.Discard())
	f.router, f.api = humatest.New(t)
	NewHandler(f.svc, frames{}, users{}, logger.Discard(), huma.Middlewares{}).SetupRoutes(f.api)

	t.Cleanup(func() {
		select {
		case <-f.release:
		default:
			close(f.release)
		}
		f.svc.Wait()
	})
	return f
}

func decode(t *testing.T, body []byte) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestRecognition_BusyOverHTTP(t *testing.T) {
	f := newFixture(t)

	resp := f.api.Post("/api/recognition/start")
	require.Equal(t, http.StatusAccepted, resp.Code)

	resp = f.api.Post("/api/recognition/start")
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "BUSY", decode(t, resp.Body.Bytes())["code"])

	body := decode(t, f.api.Get("/api/recognition/result").Body.Bytes())
	assert.Equal(t, "running", body["phase"])

	close(f.release)
	f.svc.Wait()

	body = decode(t, f.api.Get("/api/recognition/result").Body.Bytes())
	assert.Equal(t, "done", body["phase"])
	result := body["result"].(map[string]any)
	assert.Equal(t, "matched", result["status"])
	assert.Equal(t, "welcome Alice", result["message"])

	require.Equal(t, http.StatusOK, f.api.Post("/api/recognition/reset").Code)
	assert.Equal(t, "idle", decode(t, f.api.Get("/api/recognition/result").Body.Bytes())["phase"])
}

func TestScan_OverHTTP(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, "idle", decode(t, f.api.Get("/api/scan/command").Body.Bytes())["status"])

	resp := f.api.Post("/api/scan/start")
	require.Equal(t, http.StatusAccepted, resp.Code)
	assert.Equal(t, http.StatusConflict, f.api.Post("/api/scan/start").Code)
	assert.Equal(t, "scan", decode(t, f.api.Get("/api/scan/command").Body.Bytes())["status"])

	resp = f.api.Post("/api/scan/report", map[string]any{"rfid_id": "53A0A434"})
	require.Equal(t, http.StatusOK, resp.Code)
	outcome := decode(t, resp.Body.Bytes())["outcome"].(map[string]any)
	assert.Equal(t, "success", outcome["status"])

	body := decode(t, f.api.Get("/api/scan/result").Body.Bytes())
	assert.Equal(t, "done", body["phase"])

	resp = f.api.Get("/api/scan/last")
	require.Equal(t, http.StatusOK, resp.Code)
	scan := decode(t, resp.Body.Bytes())["scan"].(map[string]any)
	assert.Equal(t, "53A0A434", scan["rfid_id"])
}

func TestScan_Rejections(t *testing.T) {
	f := newFixture(t)

	resp := f.api.Get("/api/scan/last")
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "SCAN_NOT_FOUND", decode(t, resp.Body.Bytes())["code"])

	resp = f.api.Post("/api/scan/report", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = f.api.Post("/api/scan/report", map[string]any{"status": "timeout"})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "timeout", decode(t, resp.Body.Bytes())["outcome"].(map[string]any)["status"])
}

func TestFrame(t *testing.T) {
	f := newFixture(t)

	resp := f.api.Get("/api/camera/frame")

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "image/jpeg", resp.Header().Get("Content-Type"))
	assert.Equal(t, "false", resp.Header().Get("X-Placeholder"))
	assert.Equal(t, jpeg, resp.Body.Bytes())
}

func multipartBody(t *testing.T, fields map[string]string, image []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	part, err := w.CreateFormFile("image", "face.jpg")
	require.NoError(t, err)
	_, err = part.Write(image)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestEnroll(t *testing.T) {
	tests := []struct {
		name       string
		fields     map[string]string
		wantStatus int
	}{
		{name: "by id", fields: map[string]string{"user_id": "1"}, wantStatus: http.StatusCreated},
		{name: "by name", fields: map[string]string{"name": "Alice"}, wantStatus: http.StatusCreated},
		{name: "unknown name", fields: map[string]string{"name": "Mallory"}, wantStatus: http.StatusNotFound},
		{name: "bad id", fields: map[string]string{"user_id": "abc"}, wantStatus: http.StatusBadRequest},
		{name: "no target", fields: map[string]string{}, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			body, contentType := multipartBody(t, tt.fields, jpeg)

			req := httptest.NewRequest(http.MethodPost, "/api/faces", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			f.router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus == http.StatusCreated {
				u := decode(t, rec.Body.Bytes())["user"].(map[string]any)
				assert.Equal(t, "known_faces/alice.jpg", u["face_image_ref"])
				assert.Equal(t, jpeg, f.faces.enrolled)
			}
		})
	}
}

func TestReloadFaces(t *testing.T) {
	f := newFixture(t)

	resp := f.api.Post("/api/faces/reload")

	require.Equal(t, http.StatusOK, resp.Code)
	assert.EqualValues(t, 1, decode(t, resp.Body.Bytes())["known_faces"])
}
