package observability

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger(&buf, "debug", FormatJSON)
	if err != nil {
		t.Fatalf("NewLogger() error: %v", err)
	}
	log.Debug().Int("intervals", 3).Msg("decode complete")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %q", buf.String())
	}
	if rec["message"] != "decode complete" || rec["app"] != "otl" || rec["intervals"] != float64(3) {
		t.Fatalf("record = %v", rec)
	}
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger(&buf, "WARN", FormatJSON)
	if err != nil {
		t.Fatalf("NewLogger() error: %v", err)
	}
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestConsoleLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger(&buf, "", "")
	if err != nil {
		t.Fatalf("NewLogger() error: %v", err)
	}
	log.Info().Msg("capture loaded")
	if !strings.Contains(buf.String(), "capture loaded") || strings.HasPrefix(buf.String(), "{") {
		t.Fatalf("console output = %q", buf.String())
	}
}

func TestBadSettings(t *testing.T) {
	if _, err := NewLogger(nil, "loud", FormatJSON); err == nil {
		t.Fatalf("NewLogger(level=loud) succeeded")
	}
	if _, err := NewLogger(nil, "info", "xml"); err == nil {
		t.Fatalf("NewLogger(format=xml) succeeded")
	}
}
