package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestInit_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init("warn", "text")
	SetOutput(&buf)

	Info("hidden %d", 1)
	Warn("shown %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message logged at warn level: %q", out)
	}
	if !strings.Contains(out, "shown 2") {
		t.Errorf("warn message missing: %q", out)
	}
}

func TestInit_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	Init("debug", "json")
	SetOutput(&buf)

	WithField("match_id", "m1").Info("reviewed")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["match_id"] != "m1" || entry["msg"] != "reviewed" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestInit_UnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	Init("loud", "text")
	SetOutput(&buf)

	Debug("debug line")
	Info("info line")

	if strings.Contains(buf.String(), "debug line") {
		t.Error("debug logged with default level")
	}
	if !strings.Contains(buf.String(), "info line") {
		t.Error("info missing with default level")
	}
}
