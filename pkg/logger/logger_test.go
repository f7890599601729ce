package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelWarn)

	l.Debug("debug %d", 1)
	l.Info("info %d", 2)
	if buf.Len() != 0 {
		t.Errorf("messages below the level were written: %q", buf.String())
	}

	l.Warn("warn %d", 3)
	l.Error("error %d", 4)

	out := buf.String()
	if !strings.Contains(out, "warn 3") || !strings.Contains(out, "error 4") {
		t.Errorf("output = %q; want warn and error messages", out)
	}
	if !strings.Contains(out, "component=ccda-validator") {
		t.Errorf("output = %q; want component attribute", out)
	}
}

func TestLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelInfo)

	l.SetLevel(LevelNone)
	l.Error("dropped")
	if buf.Len() != 0 {
		t.Errorf("LevelNone should drop everything, got %q", buf.String())
	}

	l.SetLevel(LevelDebug)
	l.Debug("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Errorf("output = %q; want debug message", buf.String())
	}
	if !l.Enabled(LevelDebug) || l.Enabled(LevelNone) {
		t.Error("Enabled() disagrees with the level")
	}
}

func TestLogger_WithJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithFormat(&buf, LevelInfo, FormatJSON)

	child := l.With("request_id", "r-1").With("stage", "structural")
	child.Info("validating %s", "doc.xml")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if record["msg"] != "validating doc.xml" {
		t.Errorf("msg = %v", record["msg"])
	}
	if record["request_id"] != "r-1" || record["stage"] != "structural" {
		t.Errorf("record = %v; want request_id and stage", record)
	}

	// children share the parent's level
	buf.Reset()
	l.SetLevel(LevelError)
	child.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("child should follow the parent's level, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    Level
		wantErr bool
	}{
		{"", LevelInfo, false},
		{"debug", LevelDebug, false},
		{"WARNING", LevelWarn, false},
		{"error", LevelError, false},
		{"off", LevelNone, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v; wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %s; want %s", tt.input, got, tt.want)
		}
	}
}

func TestDefault(t *testing.T) {
	prev := Default()
	defer SetDefault(prev)

	var buf bytes.Buffer
	SetDefault(New(&buf, LevelInfo))

	Info("hello %s", "world")
	With("k", "v").Warn("careful")

	out := buf.String()
	if !strings.Contains(out, "hello world") || !strings.Contains(out, "k=v") {
		t.Errorf("output = %q", out)
	}

	SetDefault(nil)
	if Default() == nil {
		t.Error("SetDefault(nil) should be ignored")
	}
}
