package chi

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shopassist/internal/repository/source"
	assistantuc "github.com/kailas-cloud/shopassist/internal/usecase/assistant"
	healthuc "github.com/kailas-cloud/shopassist/internal/usecase/health"
)

func strPtr(s string) *string { return &s }

type testEnv struct {
	handler    http.Handler
	sourcePath string
	assetsDir  string
}

func newTestEnv(t *testing.T, posts []source.Post) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		sourcePath: filepath.Join(dir, "all_channel_posts.parquet"),
		assetsDir:  filepath.Join(dir, "downloaded_images"),
	}
	if posts != nil {
		if err := source.WritePosts(env.sourcePath, posts); err != nil {
			t.Fatalf("WritePosts: %v", err)
		}
	}
	if err := os.MkdirAll(filepath.Join(env.assetsDir, "shop"), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	logger := zap.NewNop()
	reader := source.NewReader(env.sourcePath)
	assets := NewStaticAssets(env.assetsDir)
	server := NewServer(assistantuc.New(reader), healthuc.New(reader, assets), logger)
	env.handler = NewRouter(RouterConfig{
		AllowedOrigins: []string{"*"},
		AssetsRoute:    "/downloaded_images",
		Assets:         assets,
	}, server, logger)
	return env
}

func (e *testEnv) chat(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", ChatRoute, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decodeRecords(t *testing.T, rr *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var out []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return out
}

func titles(records []map[string]any) []any {
	out := make([]any, len(records))
	for i, r := range records {
		out[i] = r["title"]
	}
	return out
}

func samplePosts() []source.Post {
	return []source.Post{
		{Title: strPtr("xabcx"), Description: strPtr("first"), ID: math.MaxInt64,
			Images: []string{"downloaded_images/shop/one.jpg"}},
		{Title: strPtr("Running shoes"), Description: strPtr("Size 43, barely used"), ID: 2},
		{Title: nil, Description: strPtr("Shoe rack, ABC brand"), ID: 3},
		{Title: strPtr("Desk lamp"), Description: nil, ID: 4},
	}
}

// --- Query endpoint ---

func TestChat_NoMessageReturnsAllInOrder(t *testing.T) {
	env := newTestEnv(t, samplePosts())

	for _, body := range []string{"", "{}", `{"userMessage":""}`, `{"userMessage":null}`} {
		t.Run(fmt.Sprintf("body=%q", body), func(t *testing.T) {
			rr := env.chat(t, body)
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("content-type = %q", ct)
			}
			got := titles(decodeRecords(t, rr))
			want := []any{"xabcx", "Running shoes", nil, "Desk lamp"}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("titles mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestChat_FilterCaseInsensitive(t *testing.T) {
	env := newTestEnv(t, samplePosts())

	rr := env.chat(t, `{"userMessage":"ABC"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	records := decodeRecords(t, rr)

	// Title match on the first post, description match on the third (null title).
	want := []any{"xabcx", nil}
	if diff := cmp.Diff(want, titles(records)); diff != "" {
		t.Errorf("titles mismatch (-want +got):\n%s", diff)
	}
}

func TestChat_FilterNoMatches(t *testing.T) {
	env := newTestEnv(t, samplePosts())

	rr := env.chat(t, `{"userMessage":"bicycle"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if body := strings.TrimSpace(rr.Body.String()); body != "[]" {
		t.Errorf("body = %s, want []", body)
	}
}

func TestChat_Int64RenderedAsString(t *testing.T) {
	env := newTestEnv(t, samplePosts())

	rr := env.chat(t, `{"userMessage":"xabcx"}`)
	if !strings.Contains(rr.Body.String(), `"id":"9223372036854775807"`) {
		t.Errorf("expected id as decimal string, body = %s", rr.Body.String())
	}

	records := decodeRecords(t, rr)
	if len(records) != 1 {
		t.Fatalf("len = %d, want 1", len(records))
	}
	if id, ok := records[0]["id"].(string); !ok || id != "9223372036854775807" {
		t.Errorf("id = %#v", records[0]["id"])
	}
	images, ok := records[0]["images"].([]any)
	if !ok || len(images) != 1 || images[0] != "downloaded_images/shop/one.jpg" {
		t.Errorf("images = %#v", records[0]["images"])
	}
}

func TestChat_MissingSource(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.chat(t, `{"userMessage":"shoes"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}

	var errResp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	msg, ok := errResp["error"].(string)
	if !ok || msg == "" {
		t.Fatalf("expected non-empty error message, got %#v", errResp)
	}
	if !strings.Contains(msg, "no such file") {
		t.Errorf("error message should come from the fault, got %q", msg)
	}
}

func TestChat_MalformedSource(t *testing.T) {
	env := newTestEnv(t, nil)
	if err := os.WriteFile(env.sourcePath, []byte("PAR1 garbage"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	rr := env.chat(t, "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	var errResp ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &errResp); err != nil || errResp.Error == "" {
		t.Errorf("expected error envelope, got %s", rr.Body.String())
	}
}

func TestChat_BadRequestBody(t *testing.T) {
	env := newTestEnv(t, samplePosts())

	for _, body := range []string{`{"userMessage":`, `{"userMessage":42}`, `not json`} {
		t.Run(body, func(t *testing.T) {
			rr := env.chat(t, body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rr.Code)
			}
			var errResp ErrorResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &errResp); err != nil || errResp.Error == "" {
				t.Errorf("expected error envelope, got %s", rr.Body.String())
			}
		})
	}
}

func TestChat_ContentType(t *testing.T) {
	env := newTestEnv(t, samplePosts())

	tests := []struct {
		name        string
		contentType string
		body        string
		wantStatus  int
		wantLen     int
	}{
		{"json with charset", "application/json; charset=utf-8", `{"userMessage":"lamp"}`, http.StatusOK, 1},
		{"form encoded", "application/x-www-form-urlencoded", "userMessage=lamp", http.StatusOK, 4},
		{"plain text", "text/plain", "not json", http.StatusOK, 4},
		{"missing", "", `{"userMessage":"lamp"}`, http.StatusOK, 4},
		{"malformed header", "application/json; =", `{"userMessage":"lamp"}`, http.StatusOK, 4},
		{"json with bad body", "application/json", "userMessage=lamp", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", ChatRoute, strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rr := httptest.NewRecorder()
			env.handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if got := len(decodeRecords(t, rr)); got != tt.wantLen {
				t.Errorf("len = %d, want %d", got, tt.wantLen)
			}
		})
	}
}

func TestChat_ConcurrentRequests(t *testing.T) {
	env := newTestEnv(t, samplePosts())

	cases := map[string]int{
		`{"userMessage":"shoe"}`:  2,
		`{"userMessage":"lamp"}`:  1,
		`{"userMessage":"abc"}`:   2,
		`{}`:                      4,
		`{"userMessage":"zzzzz"}`: 0,
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		for body, want := range cases {
			wg.Add(1)
			go func(body string, want int) {
				defer wg.Done()
				req := httptest.NewRequest("POST", ChatRoute, strings.NewReader(body))
				req.Header.Set("Content-Type", "application/json")
				rr := httptest.NewRecorder()
				env.handler.ServeHTTP(rr, req)

				var out []map[string]any
				if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
					t.Errorf("%s: decode: %v", body, err)
					return
				}
				if len(out) != want {
					t.Errorf("%s: len = %d, want %d", body, len(out), want)
				}
			}(body, want)
		}
	}
	wg.Wait()
}

func TestChat_RequestIDHeader(t *testing.T) {
	env := newTestEnv(t, samplePosts())

	rr := env.chat(t, "")
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

// --- Static assets ---

func TestStatic_ServesFile(t *testing.T) {
	env := newTestEnv(t, samplePosts())
	content := []byte{0xFF, 0xD8, 0xFF, 0xE0, 'j', 'p', 'g'}
	if err := os.WriteFile(filepath.Join(env.assetsDir, "shop", "one.jpg"), content, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	req := httptest.NewRequest("GET", "/downloaded_images/shop/one.jpg", http.NoBody)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if diff := cmp.Diff(content, rr.Body.Bytes()); diff != "" {
		t.Errorf("body mismatch (-want +got):\n%s", diff)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("content-type = %q, want image/jpeg", ct)
	}
}

func TestStatic_NotFound(t *testing.T) {
	env := newTestEnv(t, samplePosts())

	for _, p := range []string{
		"/downloaded_images/shop/missing.jpg",
		"/downloaded_images/shop/",
		"/downloaded_images/../all_channel_posts.parquet",
	} {
		t.Run(p, func(t *testing.T) {
			req := httptest.NewRequest("GET", p, http.NoBody)
			rr := httptest.NewRecorder()
			env.handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusNotFound {
				t.Errorf("status = %d, want 404", rr.Code)
			}
		})
	}
}

// --- CORS ---

func TestCORS_Preflight(t *testing.T) {
	env := newTestEnv(t, samplePosts())

	req := httptest.NewRequest("OPTIONS", ChatRoute, http.NoBody)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)

	if rr.Code >= 300 {
		t.Fatalf("preflight status = %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestCORS_SimpleRequest(t *testing.T) {
	env := newTestEnv(t, samplePosts())

	req := httptest.NewRequest("POST", ChatRoute, strings.NewReader("{}"))
	req.Header.Set("Origin", "https://shop.example")
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

// --- Health & metrics ---

func TestHealth(t *testing.T) {
	healthy := newTestEnv(t, samplePosts())
	req := httptest.NewRequest("GET", "/health", http.NoBody)
	rr := httptest.NewRecorder()
	healthy.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := HealthResponse{Status: "ok", Checks: map[string]string{"source": "ok", "assets": "ok"}}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Errorf("health mismatch (-want +got):\n%s", diff)
	}

	degraded := newTestEnv(t, nil)
	rr = httptest.NewRecorder()
	degraded.handler.ServeHTTP(rr, httptest.NewRequest("GET", "/health", http.NoBody))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, samplePosts())
	_ = env.chat(t, "")

	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", http.NoBody))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "shopassist_http_requests_total") {
		t.Error("expected shopassist_http_requests_total in metrics output")
	}
}

// --- Middleware ---

func TestJSONRecoverer(t *testing.T) {
	h := jsonRecoverer(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("POST", ChatRoute, http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	var errResp ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if errResp.Error != "internal error" {
		t.Errorf("error = %q", errResp.Error)
	}
}

func TestErrorMessage_Fallback(t *testing.T) {
	if got := errorMessage(emptyError{}); got != fallbackErrorMessage {
		t.Errorf("got %q, want fallback", got)
	}
	if got := errorMessage(fmt.Errorf("disk on fire")); got != "disk on fire" {
		t.Errorf("got %q", got)
	}
}

type emptyError struct{}

func (emptyError) Error() string { return "" }
