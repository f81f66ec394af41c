// Videoref - Video Assistant Referee Coordinator for Robotics Competitions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/videoref

package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/videoref/internal/config"
	"github.com/tomtom215/videoref/internal/logging"
)

func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

type fakeHub struct {
	mu      sync.Mutex
	served  int
	reloads int
}

func (h *fakeHub) ServeClient(conn *websocket.Conn) {
	h.mu.Lock()
	h.served++
	h.mu.Unlock()
	_ = conn.Close()
}

func (h *fakeHub) ReloadClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reloads++
}

func (h *fakeHub) servedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.served
}

func testServerConfig(staticDir string) config.ServerConfig {
	return config.ServerConfig{
		Host:          "127.0.0.1",
		Port:          0,
		StaticDir:     staticDir,
		AdminUsername: "admin",
		AdminPassword: "fieldpass",
	}
}

func newTestRouter(staticDir string) (http.Handler, *fakeHub) {
	hub := &fakeHub{}
	rt := NewRouter(testServerConfig(staticDir), hub)
	return rt.Setup(), hub
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestIndexFallbackWithoutStaticDir(t *testing.T) {
	handler, _ := newTestRouter(filepath.Join(t.TempDir(), "missing"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("Content-Type = %q, want text/html", ct)
	}
	if !strings.Contains(rec.Body.String(), "Videoref is running") {
		t.Error("fallback page body missing")
	}
}

func TestIndexServedFromStaticDir(t *testing.T) {
	staticDir := t.TempDir()
	page := "<html><body>panel build</body></html>"
	if err := os.WriteFile(filepath.Join(staticDir, "index.html"), []byte(page), 0o644); err != nil {
		t.Fatal(err)
	}

	handler, _ := newTestRouter(staticDir)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "panel build") {
		t.Errorf("body = %q, want the installed index page", rec.Body.String())
	}
}

func TestAssetsServed(t *testing.T) {
	staticDir := t.TempDir()
	assetsDir := filepath.Join(staticDir, "assets")
	if err := os.MkdirAll(assetsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(assetsDir, "app.js"), []byte("console.log('var')"), 0o644); err != nil {
		t.Fatal(err)
	}

	handler, _ := newTestRouter(staticDir)

	req := httptest.NewRequest(http.MethodGet, "/assets/app.js", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "console.log") {
		t.Errorf("body = %q, want asset contents", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/assets/ghost.js", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing asset status = %d, want 404", rec.Code)
	}
}

func TestStatusRequiresAuth(t *testing.T) {
	handler, _ := newTestRouter(t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("WWW-Authenticate"), "Basic") {
		t.Errorf("WWW-Authenticate = %q, want Basic challenge", rec.Header().Get("WWW-Authenticate"))
	}
}

func TestStatusRejectsWrongPassword(t *testing.T) {
	handler, _ := newTestRouter(t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.SetBasicAuth("admin", "wrong")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestStatusWithAuth(t *testing.T) {
	handler, _ := newTestRouter(t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.SetBasicAuth("admin", "fieldpass")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "running" {
		t.Errorf("status field = %q, want running", body["status"])
	}
	if body["user"] != "admin" {
		t.Errorf("user field = %q, want admin", body["user"])
	}
}

func TestReloadClients(t *testing.T) {
	handler, hub := newTestRouter(t.TempDir())

	req := httptest.NewRequest(http.MethodPost, "/api/reload_clients", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := decodeBody(t, rec); body["status"] != "reload requested" {
		t.Errorf("status field = %q, want 'reload requested'", body["status"])
	}
	if hub.reloads != 1 {
		t.Errorf("reloads = %d, want 1", hub.reloads)
	}
}

func TestReloadClientsRejectsGet(t *testing.T) {
	handler, hub := newTestRouter(t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/api/reload_clients", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	if hub.reloads != 0 {
		t.Error("reload must not fire on a rejected method")
	}
}

func TestRequestIDHeaderSet(t *testing.T) {
	handler, _ := newTestRouter(t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestCORSPreflightAllowed(t *testing.T) {
	handler, _ := newTestRouter(t.TempDir())

	req := httptest.NewRequest(http.MethodOptions, "/api/status", nil)
	req.Header.Set("Origin", "http://scorer-laptop.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	handler, _ := newTestRouter(t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("metrics exposition missing runtime metrics")
	}
}

func TestWebSocketUpgrade(t *testing.T) {
	handler, hub := newTestRouter(t.TempDir())
	srv := httptest.NewServer(handler)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/websocket"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if resp != nil {
		defer resp.Body.Close()
	}

	// The handshake finishes before the handler hands the connection over,
	// so give the server goroutine a moment.
	deadline := time.Now().Add(2 * time.Second)
	for hub.servedCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := hub.servedCount(); got != 1 {
		t.Fatalf("served connections = %d, want 1", got)
	}
}

func TestWebSocketRejectsPlainGet(t *testing.T) {
	handler, hub := newTestRouter(t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/api/websocket", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for a non-upgrade request", rec.Code)
	}
	if hub.servedCount() != 0 {
		t.Error("hub must not receive a failed upgrade")
	}
}

func TestRateLimitAnswers429(t *testing.T) {
	handler, _ := newTestRouter(t.TempDir())

	var last *httptest.ResponseRecorder
	for i := 0; i < apiRateLimit+10; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/reload_clients", nil)
		req.RemoteAddr = "203.0.113.7:4444"
		last = httptest.NewRecorder()
		handler.ServeHTTP(last, req)
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429 once the window is spent", last.Code)
	}
	if body := decodeBody(t, last); body["error"] != "rate limit exceeded" {
		t.Errorf("error field = %q", body["error"])
	}
}
