package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"kol-studio/internal/asset"
	"kol-studio/internal/gemini"
	"kol-studio/internal/studio"
)

type fakeImages struct{}

func (fakeImages) GenerateImages(ctx context.Context, req gemini.ImageRequest) ([]string, error) {
	out := make([]string, max(req.Count, 1))
	for i := range out {
		out[i] = "data:image/png;base64,R0VO"
	}
	return out, nil
}

func (fakeImages) EditImage(ctx context.Context, instruction string, image asset.LockedFace) (string, error) {
	return "data:image/png;base64,RURJVA==", nil
}

type fakeText struct{}

func (fakeText) GenerateText(ctx context.Context, req gemini.TextRequest) (string, error) {
	return "Linh", nil
}

func (fakeText) GenerateJSON(ctx context.Context, req gemini.TextRequest, out any) error {
	return json.Unmarshal([]byte(`[]`), out)
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st := studio.New(studio.Options{Images: fakeImages{}, Text: fakeText{}})
	srv := httptest.NewServer(New(Options{Studio: st}).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func newSession(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/v1/sessions", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	return body.SessionID
}

func do(t *testing.T, srv *httptest.Server, session, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, srv.URL+"/api/v1"+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set(SessionHeader, session)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestSessionRequired(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, srv, "", http.MethodGet, "/workspace", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	resp = do(t, srv, "6f1c2c3e-1d7e-4b8e-9a53-0c0f4f1f9a11", http.MethodGet, "/workspace", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unknown session status = %d", resp.StatusCode)
	}
}

func TestGenerateWithLockedFace(t *testing.T) {
	srv := newTestServer(t)
	session := newSession(t, srv)

	resp := do(t, srv, session, http.MethodPut, "/workspace/face", map[string]any{
		"image": map[string]string{"base64": "RkFDRQ==", "mimeType": "image/jpeg"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("lock face status = %d", resp.StatusCode)
	}

	resp = do(t, srv, session, http.MethodPost, "/generate", map[string]any{
		"mode":         "creative",
		"customPrompt": "chân dung studio",
		"count":        2,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("generate status = %d", resp.StatusCode)
	}
	var ws struct {
		Generated []asset.LibraryAsset `json:"generated"`
		Loading   bool                 `json:"loading"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ws); err != nil {
		t.Fatal(err)
	}
	if len(ws.Generated) != 2 || ws.Loading {
		t.Fatalf("unexpected workspace: %+v", ws)
	}
}

func TestLockFaceRejectsEmptyImage(t *testing.T) {
	srv := newTestServer(t)
	session := newSession(t, srv)

	resp := do(t, srv, session, http.MethodPut, "/workspace/face", map[string]any{"image": map[string]string{}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestValidationErrorMessage(t *testing.T) {
	srv := newTestServer(t)
	session := newSession(t, srv)

	resp := do(t, srv, session, http.MethodPost, "/generate", map[string]any{"mode": "transform"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["error"] != studio.Message(studio.ErrSourceRequired) {
		t.Fatalf("error = %q", body["error"])
	}
}

func TestLibraryImportAndExport(t *testing.T) {
	srv := newTestServer(t)
	session := newSession(t, srv)

	resp := do(t, srv, session, http.MethodPost, "/library/import", map[string]string{"id": "x"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid import status = %d", resp.StatusCode)
	}

	resp = do(t, srv, session, http.MethodPost, "/library/import", []map[string]string{
		{"id": "a", "src": "data:image/png;base64,QQ==", "prompt": "p"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("import status = %d", resp.StatusCode)
	}

	resp = do(t, srv, session, http.MethodGet, "/library/export", nil)
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "kol-builder-library.json") {
		t.Fatalf("content disposition = %q", cd)
	}
	var lib []asset.LibraryAsset
	json.NewDecoder(resp.Body).Decode(&lib)
	if len(lib) != 1 || lib[0].ID != "a" {
		t.Fatalf("exported %+v", lib)
	}

	resp = do(t, srv, session, http.MethodDelete, "/library/missing", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("delete missing status = %d", resp.StatusCode)
	}
}

func TestCatalogUnknownAudience(t *testing.T) {
	srv := newTestServer(t)
	resp := do(t, srv, "", http.MethodGet, "/catalog/robot", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	resp = do(t, srv, "", http.MethodGet, "/catalog/female", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestCalendarCSVHasBOM(t *testing.T) {
	srv := newTestServer(t)
	session := newSession(t, srv)

	resp := do(t, srv, session, http.MethodGet, "/calendar.csv", nil)
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	if !strings.HasPrefix(buf.String(), "\ufeff") {
		t.Fatal("csv must start with a BOM")
	}
}

func TestHandoffSocketPushesChannel(t *testing.T) {
	srv := newTestServer(t)
	session := newSession(t, srv)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/handoff/ws?session=" + session
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	// The subscription is registered after the upgrade; publish until it lands.
	done := make(chan handoffEvent, 1)
	go func() {
		var ev handoffEvent
		if err := conn.ReadJSON(&ev); err == nil {
			done <- ev
		}
	}()
	deadline := time.After(2 * time.Second)
	for {
		do(t, srv, session, http.MethodPost, "/handoff/suggestion", map[string]string{"prompt": "hoàng hôn"})
		select {
		case ev := <-done:
			if ev.Channel != "suggestionPrompt" {
				t.Fatalf("channel = %q", ev.Channel)
			}
			return
		case <-deadline:
			t.Fatal("no hand-off event received")
		case <-time.After(50 * time.Millisecond):
		}
	}
}
