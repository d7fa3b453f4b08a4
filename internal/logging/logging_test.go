package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewDefaultLevelIsWarn(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Options{})

	logger.Debug("hidden debug")
	logger.Info("hidden info")
	logger.Warn("shown warning")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug/info should be filtered, got %q", out)
	}
	if !strings.Contains(out, "shown warning") {
		t.Errorf("warning missing from %q", out)
	}
}

func TestNewVerboseLogsDebug(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, Options{Verbose: true}).Debug("running bd", "args", "show bd-1")

	if !strings.Contains(buf.String(), "running bd") {
		t.Errorf("debug record missing from %q", buf.String())
	}
}

func TestNewJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, Options{JSON: true}).Error("bd failed", "exit_code", 2)

	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if record["msg"] != "bd failed" {
		t.Errorf("msg = %v, want %q", record["msg"], "bd failed")
	}
	if record["exit_code"] != float64(2) {
		t.Errorf("exit_code = %v, want 2", record["exit_code"])
	}
}

func TestDiscard(t *testing.T) {
	Discard().Error("nothing happens")
}
