package httpapi

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"":      LevelOff,
		"off":   LevelOff,
		"error": LevelError,
		"info":  LevelInfo,
		"debug": LevelDebug,
		"weird": LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q)=%v want %v", in, got, want)
		}
	}
}

func TestRequestLogLevel_Overrides(t *testing.T) {
	r := httptest.NewRequest("POST", "/chat?log=1", nil)
	if got := requestLogLevel(r); got != LevelDebug {
		t.Fatalf("query log=1 -> %v", got)
	}
	r = httptest.NewRequest("POST", "/chat?log=error", nil)
	r.Header.Set("X-Log-Level", "debug")
	if got := requestLogLevel(r); got != LevelError {
		t.Fatalf("query should win over header, got %v", got)
	}
	r = httptest.NewRequest("POST", "/chat", nil)
	r.Header.Set("X-Log-Level", "info")
	if got := requestLogLevel(r); got != LevelInfo {
		t.Fatalf("header info -> %v", got)
	}
}

func TestLineLogger_SplitsLines(t *testing.T) {
	var buf bytes.Buffer
	lw := &lineLogger{log: zerolog.New(&buf).Level(zerolog.DebugLevel)}
	_, _ = lw.Write([]byte(`{"delta":"a"}` + "\n" + `{"del`))
	_, _ = lw.Write([]byte(`ta":"b"}` + "\n\n"))
	out := buf.String()
	if n := strings.Count(out, `"event":"chat_line"`); n != 2 {
		t.Fatalf("expected 2 logged lines, got %d: %s", n, out)
	}
	if len(lw.buf) != 0 {
		t.Fatalf("buffer not drained: %q", lw.buf)
	}
}
