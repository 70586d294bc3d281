// Package vcr records and replays HTTP interactions for API client tests.
package vcr

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/dnaeon/go-vcr.v2/cassette"
	"gopkg.in/dnaeon/go-vcr.v2/recorder"
)

// ModeEnv selects the recorder mode. "record" records new fixtures; anything
// else replays existing ones.
const ModeEnv = "STORYFLOW_VCR_MODE"

// sensitiveHeaders are stripped from saved cassettes.
var sensitiveHeaders = []string{"Authorization", "X-Trackertoken", "X-TrackerToken"}

// Recorder wraps a go-vcr recorder.
type Recorder struct {
	recorder  *recorder.Recorder
	recording bool
}

// IsRecording reports whether the environment requested recording.
func IsRecording() bool {
	return os.Getenv(ModeEnv) == "record"
}

// NewRecorder opens testdata/fixtures/<name>.yaml relative to the test's
// package directory. In replay mode a missing cassette is reported as
// os.ErrNotExist.
func NewRecorder(t *testing.T, name string) (*Recorder, error) {
	t.Helper()

	// go-vcr adds the ".yaml" extension.
	path := filepath.Join("testdata", "fixtures", name)

	mode := recorder.ModeReplaying
	if IsRecording() {
		mode = recorder.ModeRecording
	}

	r, err := recorder.NewAsMode(path, mode, nil)
	if err != nil {
		if errors.Is(err, cassette.ErrCassetteNotFound) {
			return nil, fmt.Errorf("cassette %q not found: %w", path, os.ErrNotExist)
		}
		return nil, fmt.Errorf("failed to create recorder: %w", err)
	}

	r.AddSaveFilter(func(i *cassette.Interaction) error {
		for _, h := range sensitiveHeaders {
			delete(i.Request.Headers, h)
		}
		return nil
	})

	return &Recorder{recorder: r, recording: mode == recorder.ModeRecording}, nil
}

// Start opens the named cassette and stops it when the test ends. The test
// is skipped when the cassette is missing in replay mode.
func Start(t *testing.T, name string) *Recorder {
	t.Helper()

	rec, err := NewRecorder(t, name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			t.Skipf("fixture %q not found. To record it, run: %s=record go test -run %s", name, ModeEnv, t.Name())
		}
		t.Fatalf("failed to create recorder: %v", err)
	}
	t.Cleanup(func() {
		if err := rec.Stop(); err != nil {
			t.Errorf("%v", err)
		}
	})
	return rec
}

// Stop stops the recorder, writing the cassette when recording.
func (r *Recorder) Stop() error {
	if r.recorder == nil {
		return nil
	}
	if err := r.recorder.Stop(); err != nil {
		return fmt.Errorf("failed to stop recorder: %w", err)
	}
	return nil
}

// IsRecording returns true if we're in record mode
func (r *Recorder) IsRecording() bool {
	return r.recording
}

// HTTPClient returns an HTTP client configured to use the recorder
func (r *Recorder) HTTPClient() *http.Client {
	return &http.Client{Transport: r.recorder}
}

// Token returns the value of env when recording and a placeholder otherwise.
func (r *Recorder) Token(t *testing.T, env string) string {
	t.Helper()
	if !r.recording {
		return "test-token"
	}
	token := os.Getenv(env)
	if token == "" {
		t.Fatalf("%s environment variable must be set when recording fixtures", env)
	}
	return token
}
