package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func serveLogged(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, observer.LoggedEntry) {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	w := httptest.NewRecorder()
	LoggingMiddleware(zap.New(core))(h).ServeHTTP(w, req)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	return w, entries[0]
}

func TestLoggingMiddleware_Fields(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/trades/{id}/close", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	req := httptest.NewRequest("POST", "/api/trades/t-1/close", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	w, entry := serveLogged(t, mux, req)

	fields := entry.ContextMap()
	if entry.Level != zapcore.InfoLevel {
		t.Errorf("expected info level, got %v", entry.Level)
	}
	if fields["method"] != "POST" {
		t.Errorf("expected method POST, got %v", fields["method"])
	}
	if fields["path"] != "/api/trades/t-1/close" {
		t.Errorf("unexpected path %v", fields["path"])
	}
	if fields["route"] != "POST /api/trades/{id}/close" {
		t.Errorf("unexpected route %v", fields["route"])
	}
	if fields["status"] != int64(http.StatusConflict) {
		t.Errorf("expected status 409, got %v", fields["status"])
	}
	if _, ok := fields["duration_ms"]; !ok {
		t.Error("expected duration_ms field")
	}
	if fields["request_id"] != w.Header().Get(RequestIDHeader) || fields["request_id"] == "" {
		t.Errorf("request id mismatch: log %v header %q", fields["request_id"], w.Header().Get(RequestIDHeader))
	}
}

func TestLoggingMiddleware_ServerErrorsWarn(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, entry := serveLogged(t, h, httptest.NewRequest("GET", "/api/account", nil))
	if entry.Level != zapcore.WarnLevel {
		t.Errorf("expected warn level for 500, got %v", entry.Level)
	}
	if _, ok := entry.ContextMap()["route"]; ok {
		t.Error("unrouted request should not carry a route")
	}
}

func TestLoggingMiddleware_ClientIP(t *testing.T) {
	tests := []struct {
		name      string
		forwarded string
		want      string
	}{
		{"remote addr", "", "10.0.0.1:54321"},
		{"forwarded", "203.0.113.50", "203.0.113.50"},
		{"forwarded chain", "203.0.113.50, 70.41.3.18", "203.0.113.50"},
	}

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/quotes", nil)
			req.RemoteAddr = "10.0.0.1:54321"
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			_, entry := serveLogged(t, ok, req)
			if got := entry.ContextMap()["client_ip"]; got != tt.want {
				t.Errorf("expected client_ip %s, got %v", tt.want, got)
			}
		})
	}
}

func TestLoggingMiddleware_ReusesRequestID(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	wrapped := LoggingMiddleware(nil)(handler)

	req := httptest.NewRequest("GET", "/api/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()

	wrapped.ServeHTTP(w, req)

	if got := w.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("expected request id abc-123, got %s", got)
	}
}
