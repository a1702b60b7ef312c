package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mmynk/nbbang/internal/auth"
	"github.com/mmynk/nbbang/internal/models"
)

func issue(t *testing.T, tm *auth.TokenManager) string {
	t.Helper()
	token, err := tm.Issue(&models.User{ID: "user-1", DisplayName: "Kim"})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	return token
}

func TestRequireAuth(t *testing.T) {
	tm := auth.NewTokenManager("secret", time.Hour)
	token := issue(t, tm)

	var seen string
	h := RequireAuth(tm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetUserID(r.Context())
	}))

	tests := []struct {
		name       string
		prepare    func(r *http.Request)
		wantStatus int
		wantUser   string
	}{
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, http.StatusOK, "user-1"},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: TokenCookie, Value: token}) }, http.StatusOK, "user-1"},
		{"missing", func(r *http.Request) {}, http.StatusUnauthorized, ""},
		{"wrong scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic "+token) }, http.StatusUnauthorized, ""},
		{"garbage", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest("GET", "/meeting", nil)
			tt.prepare(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if seen != tt.wantUser {
				t.Errorf("user = %q, want %q", seen, tt.wantUser)
			}
			if rec.Code == http.StatusUnauthorized {
				var body map[string]string
				if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body["detail"] == "" {
					t.Errorf("expected detail body, got %v (%v)", body, err)
				}
			}
		})
	}
}

func TestRequestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	for status, level := range map[int]string{200: "INFO", 404: "WARN", 503: "ERROR"} {
		buf.Reset()
		h := RequestLogger(logger, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/health", nil))

		line := buf.String()
		if !strings.Contains(line, "level="+level) {
			t.Errorf("status %d: expected level %s, got %q", status, level, line)
		}
	}
}

func TestCORS(t *testing.T) {
	const origin = "https://nbbang.example"
	tests := []struct {
		name        string
		configured  string
		method      string
		reqOrigin   string
		wantAllow   string
		wantHandler bool
	}{
		{"preflight from allowed origin", origin, http.MethodOptions, origin, origin, false},
		{"request from allowed origin", origin, http.MethodGet, origin, origin, true},
		{"other origin is not echoed", origin, http.MethodGet, "https://evil.example", "", true},
		{"disabled", "", http.MethodGet, origin, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached := false
			h := CORS(tt.configured)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = true
			}))
			req := httptest.NewRequest(tt.method, "/meeting", nil)
			req.Header.Set("Origin", tt.reqOrigin)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
				t.Errorf("allow origin = %q, want %q", got, tt.wantAllow)
			}
			if reached != tt.wantHandler {
				t.Errorf("handler reached = %v, want %v", reached, tt.wantHandler)
			}
			if !tt.wantHandler && rec.Code != http.StatusNoContent {
				t.Errorf("status = %d, want 204", rec.Code)
			}
		})
	}
}

func TestRealIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	if got := RealIP(req); got != "10.0.0.1" {
		t.Errorf("RealIP = %q", got)
	}
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	if got := RealIP(req); got != "1.2.3.4" {
		t.Errorf("RealIP = %q", got)
	}
}
