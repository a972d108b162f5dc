package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-kiosk/internal/directory"
	"github.com/kozaktomas/face-kiosk/internal/directory/mock"
	"github.com/kozaktomas/face-kiosk/internal/imaging"
	"github.com/kozaktomas/face-kiosk/internal/kiosk"
	"github.com/kozaktomas/face-kiosk/internal/web/middleware"
)

// mockEngine is a configurable verification port double.
type mockEngine struct {
	detectResult bool
	verifyResult bool
	embedResult  []float32
}

func (m *mockEngine) DetectFace(ctx context.Context, image []byte) (bool, error) {
	return m.detectResult, nil
}

func (m *mockEngine) Verify(ctx context.Context, candidate, reference []byte) (bool, error) {
	return m.verifyResult, nil
}

func (m *mockEngine) Embed(ctx context.Context, image []byte) ([]float32, error) {
	return m.embedResult, nil
}

// testDataURI returns a small valid JPEG as a data URI.
func testDataURI(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return imaging.EncodeDataURI(buf.Bytes())
}

// testEnv bundles the pieces a handler test needs.
type testEnv struct {
	store   *mock.MockStore
	engine  *mockEngine
	service *kiosk.Service
	sm      *middleware.SessionManager
}

func newTestEnv(opts kiosk.Options) *testEnv {
	store := mock.NewMockStore()
	engine := &mockEngine{detectResult: true, verifyResult: true, embedResult: []float32{1, 0, 0}}
	return &testEnv{
		store:   store,
		engine:  engine,
		service: kiosk.NewService(store, engine, nil, nil, opts),
		sm:      middleware.NewSessionManager("test-secret", nil),
	}
}

func (e *testEnv) seedIdentity(username string, role directory.Role) directory.Identity {
	identity := directory.Identity{
		ID:             uuid.NewString(),
		Username:       username,
		Role:           role,
		ReferenceImage: "data:image/jpeg;base64,Zm9v",
		CreatedAt:      time.Now().UTC(),
	}
	e.store.Add(identity)
	return identity
}

// postForm builds a form-encoded POST request.
func postForm(t *testing.T, path string, form url.Values) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// withSession attaches an authenticated session to the request context.
func withSession(r *http.Request, session *middleware.Session) *http.Request {
	return r.WithContext(middleware.SetSessionInContext(r.Context(), session))
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dest); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}
