package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

// captureLogOutput temporarily redirects the default logger to a buffer.
func captureLogOutput(f func()) string {
	var buf bytes.Buffer

	oldLogger := defaultLogger
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	defaultLogger = slog.New(handler)

	f()

	defaultLogger = oldLogger
	return buf.String()
}

// captureLogOutputWithInit exercises the real InitLoggerWriter handler setup.
func captureLogOutputWithInit(level Level, format Format, f func()) string {
	var buf bytes.Buffer
	InitLoggerWriter(&buf, level, format)
	f()
	InitLogger(LevelInfo, FormatJSON)
	return buf.String()
}

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name   string
		level  Level
		format Format
	}{
		{"Debug level JSON format", LevelDebug, FormatJSON},
		{"Warn level JSON format", LevelWarn, FormatJSON},
		{"Error level JSON format", LevelError, FormatJSON},
		{"Info level Text format", LevelInfo, FormatText},
		{"Default level (invalid value)", Level(999), FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			InitLogger(tt.level, tt.format)
			if GetLogger() == nil {
				t.Error("Expected logger to be initialized, got nil")
			}
		})
	}
	InitLogger(LevelInfo, FormatJSON)
}

func TestLevelFiltering(t *testing.T) {
	output := captureLogOutputWithInit(LevelWarn, FormatJSON, func() {
		Info("hidden message")
		Warn("visible message")
	})

	if strings.Contains(output, "hidden message") {
		t.Error("Info message logged at warn level")
	}
	if !strings.Contains(output, "visible message") {
		t.Error("Expected warn message in output")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("text"); err != nil || f != FormatText {
		t.Errorf("ParseFormat(text) = %v, %v", f, err)
	}
	if f, err := ParseFormat(""); err != nil || f != FormatJSON {
		t.Errorf("ParseFormat('') = %v, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestGetRequestID(t *testing.T) {
	tests := []struct {
		name     string
		ctx      context.Context
		expected string
	}{
		{"Context with request ID", WithRequestID(context.Background(), "test-id"), "test-id"},
		{"Context without request ID", context.Background(), ""},
		{"Context with wrong type value", context.WithValue(context.Background(), RequestIDKey, 12345), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := GetRequestID(tt.ctx); result != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, result)
			}
		})
	}
}

func TestContextLoggingFunctions(t *testing.T) {
	ctx := WithRequestID(context.Background(), "test-request-id")

	tests := []struct {
		name string
		fn   func()
	}{
		{"DebugContext", func() { DebugContext(ctx, "debug message", "key", "value") }},
		{"InfoContext", func() { InfoContext(ctx, "info message", "key", "value") }},
		{"WarnContext", func() { WarnContext(ctx, "warning message", "key", "value") }},
		{"ErrorContext", func() { ErrorContext(ctx, "error message", "key", "value") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := captureLogOutput(tt.fn)
			if !strings.Contains(output, "test-request-id") {
				t.Errorf("Expected output to contain request ID, got %q", output)
			}
		})
	}
}

func TestHTTPRequestContext(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-456")

	output := captureLogOutput(func() {
		HTTPRequestContext(ctx, "GET", "/verse", "10.0.0.1:9999", 200, 75*time.Millisecond, "date", "1990-05-15")
	})

	for _, want := range []string{"http_request", "req-456", "/verse", "1990-05-15"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %q", want)
		}
	}
}

func TestLookupEvent(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-lookup")

	output := captureLogOutput(func() {
		LookupEvent(ctx, "http", "2samuel 19:33", "found", 120*time.Millisecond)
	})

	for _, want := range []string{"verse_lookup", "2samuel 19:33", "found", "req-lookup"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %q", want)
		}
	}
}

func TestSourceError(t *testing.T) {
	output := captureLogOutput(func() {
		SourceError(context.Background(), "sqlite", "fetch chapter", errors.New("database is locked"))
	})

	for _, want := range []string{"source_error", "sqlite", "database is locked"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %q", want)
		}
	}
}

func TestImportEvent(t *testing.T) {
	output := captureLogOutput(func() {
		ImportEvent("kjv.osis.xml.gz", "osis", 31102, 0, time.Second)
	})

	if !strings.Contains(output, "bible_import") || !strings.Contains(output, "31102") {
		t.Errorf("unexpected output %q", output)
	}
}

func TestEventHelpers(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
		want []string
	}{
		{"WebSocketEvent", func() { WebSocketEvent("client_connected", 5) }, []string{"websocket_event", "client_connected"}},
		{"ServerStartup", func() { ServerStartup("api", "http", 8080) }, []string{"server_startup", "8080"}},
		{"SecurityEvent", func() { SecurityEvent("rate_limit_exceeded", "api", "ip", "10.0.0.1") }, []string{"security_event", "rate_limit_exceeded", "10.0.0.1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := captureLogOutput(tt.fn)
			for _, want := range tt.want {
				if !strings.Contains(output, want) {
					t.Errorf("Expected output to contain %q", want)
				}
			}
		})
	}
}

func TestResponseWriter_WriteHeader(t *testing.T) {
	recorder := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: recorder, statusCode: http.StatusOK}

	rw.WriteHeader(http.StatusNotFound)
	// Second call should be ignored
	rw.WriteHeader(http.StatusInternalServerError)

	if rw.statusCode != http.StatusNotFound {
		t.Errorf("Expected status code %d, got %d", http.StatusNotFound, rw.statusCode)
	}
	if !rw.written {
		t.Error("Expected written flag to be true")
	}
}

func TestResponseWriter_Write(t *testing.T) {
	recorder := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: recorder, statusCode: http.StatusOK}

	n, err := rw.Write([]byte("test data"))
	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if n != len("test data") {
		t.Errorf("Expected to write %d bytes, wrote %d", len("test data"), n)
	}
	if rw.statusCode != http.StatusOK {
		t.Errorf("Expected status code 200, got %d", rw.statusCode)
	}
}

func TestResponseWriter_HijackUnsupported(t *testing.T) {
	rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}
	if _, _, err := rw.Hijack(); err == nil {
		t.Error("expected error hijacking a recorder")
	}
}

func TestGenerateRequestID(t *testing.T) {
	ids := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := generateRequestID()
		if _, err := uuid.Parse(id); err != nil {
			t.Fatalf("request ID %q is not a UUID: %v", id, err)
		}
		if ids[id] {
			t.Error("Generated duplicate request ID")
		}
		ids[id] = true
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		existingHeader string
		wantSame       bool
	}{
		{"Generate new request ID", "", false},
		{"Use existing request ID from header", "existing-req-id-123", true},
		{"Replace oversized request ID", strings.Repeat("x", 200), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ctxID string
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctxID = GetRequestID(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest("GET", "/verse", nil)
			if tt.existingHeader != "" {
				req.Header.Set("X-Request-ID", tt.existingHeader)
			}
			w := httptest.NewRecorder()
			RequestIDMiddleware(handler).ServeHTTP(w, req)

			reqID := w.Header().Get("X-Request-ID")
			if reqID == "" || reqID != ctxID {
				t.Fatalf("header %q and context %q disagree", reqID, ctxID)
			}
			if (reqID == tt.existingHeader) != tt.wantSame {
				t.Errorf("request ID = %q", reqID)
			}
		})
	}
}

func TestLoggingMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		statusCode int
	}{
		{"verse lookup", "/verse", http.StatusOK},
		{"bad input", "/verse", http.StatusBadRequest},
		{"source failure", "/verse", http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			})

			req := httptest.NewRequest("GET", tt.path, nil)
			req = req.WithContext(WithRequestID(req.Context(), "test-req-id"))
			w := httptest.NewRecorder()

			output := captureLogOutput(func() {
				LoggingMiddleware(handler).ServeHTTP(w, req)
			})

			if !strings.Contains(output, tt.path) {
				t.Errorf("Expected output to contain path %s", tt.path)
			}
			if !strings.Contains(output, `"status_code":`+strconv.Itoa(tt.statusCode)) {
				t.Errorf("Expected output to contain status code %d, got %q", tt.statusCode, output)
			}
		})
	}
}

func TestCombinedMiddleware(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRequestID(r.Context()) == "" {
			t.Error("Expected request ID in context")
		}
		w.Write([]byte("success"))
	})

	req := httptest.NewRequest("GET", "/books", nil)
	w := httptest.NewRecorder()

	output := captureLogOutput(func() {
		CombinedMiddleware(handler).ServeHTTP(w, req)
	})

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID header")
	}
	if !strings.Contains(output, "/books") || !strings.Contains(output, "200") {
		t.Errorf("unexpected log output %q", output)
	}
}

func TestReplaceAttrTimestamp(t *testing.T) {
	output := captureLogOutputWithInit(LevelInfo, FormatJSON, func() {
		Info("timestamp test")
	})

	if !strings.Contains(output, "timestamp test") {
		t.Error("Expected output to contain test message")
	}
	var entry struct {
		Time string `json:"time"`
	}
	if err := json.Unmarshal([]byte(output), &entry); err != nil {
		t.Fatalf("invalid JSON log line: %v", err)
	}
	if _, err := time.Parse(time.RFC3339, entry.Time); err != nil || strings.Contains(entry.Time, ".") {
		t.Errorf("timestamp %q not in RFC3339 format", entry.Time)
	}
}

func TestTextFormat(t *testing.T) {
	output := captureLogOutputWithInit(LevelInfo, FormatText, func() {
		Info("test message text", "key", "value")
	})
	if !strings.Contains(output, "key=value") {
		t.Errorf("Expected text handler output, got %q", output)
	}
}
