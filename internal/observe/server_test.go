package observe

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/linkrelay/loginwatch/internal/run"
)

func newTestServer(t *testing.T, token string) (*Server, *run.Store) {
	t.Helper()
	store := run.NewStore("run-test")
	b := NewBroadcaster(store, 10*time.Millisecond)
	return NewServer(store, b, token), store
}

func TestHandleStateReturnsSnapshot(t *testing.T) {
	srv, store := newTestServer(t, "")
	store.Update(func(st *run.State) {
		st.Phase = run.Configuring
		st.Connected = true
		st.EventCount = 3
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	srv.handleState(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var st run.State
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("response not valid state JSON: %v", err)
	}
	if st.RunID != "run-test" || st.Phase != run.Configuring || st.EventCount != 3 {
		t.Errorf("state = %+v", st)
	}
}

func TestAuthorize(t *testing.T) {
	srv, _ := newTestServer(t, "sekrit")

	tests := []struct {
		name    string
		prepare func(*http.Request)
		want    bool
	}{
		{"no credentials", func(r *http.Request) {}, false},
		{"query token", func(r *http.Request) {
			q := r.URL.Query()
			q.Set("token", "sekrit")
			r.URL.RawQuery = q.Encode()
		}, true},
		{"header token", func(r *http.Request) {
			r.Header.Set("X-Loginwatch-Token", "sekrit")
		}, true},
		{"bearer token", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer sekrit")
		}, true},
		{"wrong token", func(r *http.Request) {
			r.Header.Set("X-Loginwatch-Token", "nope")
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
			tt.prepare(req)
			if got := srv.authorize(req); got != tt.want {
				t.Errorf("authorize = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAuthorizeDisabledWithoutToken(t *testing.T) {
	srv, _ := newTestServer(t, "")
	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	if !srv.authorize(req) {
		t.Error("authorize = false with auth disabled")
	}
}

func TestStateEndpointRejectsWithoutToken(t *testing.T) {
	srv, _ := newTestServer(t, "sekrit")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	srv.handleState(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		origin string
		host   string
		want   bool
	}{
		{"", "example.com:8080", true}, // non-browser clients send no origin
		{"http://localhost:3000", "example.com:8080", true},
		{"http://127.0.0.1:9000", "example.com:8080", true},
		{"http://[::1]:9000", "example.com:8080", true},
		{"http://example.com:8080", "example.com:8080", true},
		{"http://evil.example.net", "example.com:8080", false},
		{"::::", "example.com:8080", false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			req.Host = tt.host
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := checkOrigin(req); got != tt.want {
				t.Errorf("checkOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}
