package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"progress", LevelProgress, false},
		{"", LevelProgress, false},
		{"minimal", slog.LevelWarn, false},
		{"verbose", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		_ = SetLevel(DefaultLevel)
	})

	if err := SetLevel("progress"); err != nil {
		t.Fatal(err)
	}

	Info("hidden message")
	Progress("pushed branch", "branch", "feature/1-x")

	out := buf.String()
	if strings.Contains(out, "hidden message") {
		t.Errorf("info message should be filtered at progress level, got %q", out)
	}
	if !strings.Contains(out, "level=PROGRESS") {
		t.Errorf("expected PROGRESS level name, got %q", out)
	}
	if !strings.Contains(out, "branch=feature/1-x") {
		t.Errorf("expected key/value pair in output, got %q", out)
	}
	if strings.Contains(out, "time=") {
		t.Errorf("time attribute should be dropped, got %q", out)
	}
}
