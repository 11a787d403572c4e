package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSetMaxBodyBytes_DefaultWhenNonPositive(t *testing.T) {
	SetMaxBodyBytes(-1)
	if maxBodyBytes != 1<<20 {
		t.Fatalf("expected default 1MiB, got %d", maxBodyBytes)
	}
	SetMaxBodyBytes(1234)
	if maxBodyBytes != 1234 {
		t.Fatalf("expected 1234, got %d", maxBodyBytes)
	}
	SetMaxBodyBytes(0)
	if maxBodyBytes != 1<<20 {
		t.Fatalf("expected default 1MiB on zero, got %d", maxBodyBytes)
	}
}

func TestSetChatTimeout_NormalizesNegativeToZero(t *testing.T) {
	SetChatTimeout(-5 * time.Second)
	if chatTimeout != 0 {
		t.Fatalf("expected 0, got %s", chatTimeout)
	}
	SetChatTimeout(3 * time.Second)
	if chatTimeout != 3*time.Second {
		t.Fatalf("expected 3s, got %s", chatTimeout)
	}
	SetChatTimeout(0)
}

func TestCORSPreflight(t *testing.T) {
	SetCORSOptions(true, []string{"http://ui.local"}, []string{"GET", "POST"}, []string{"Content-Type"})
	defer SetCORSOptions(false, nil, nil, nil)

	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "http://ui.local")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://ui.local" {
		t.Fatalf("allow-origin=%q", got)
	}
}

func TestCORSDisabledByDefault(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://ui.local")
	w := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow-origin %q", got)
	}
}
