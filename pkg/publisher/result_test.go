package publisher

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriteResult(t *testing.T) {
	t.Run("writes result file successfully", func(t *testing.T) {
		tmpDir := t.TempDir()

		result := PublishResult{
			Provider:    "github-pr",
			Branch:      "feature/123-add_login",
			StoryID:     123,
			PublishedAt: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
			Actions: []PublishAction{
				{
					Type:        ActionPushedBranch,
					Description: "Pushed branch feature/123-add_login to origin",
				},
			},
			Success: true,
		}

		if err := WriteResult(tmpDir, result); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		data, err := os.ReadFile(filepath.Join(tmpDir, PublishResultFile))
		if err != nil {
			t.Fatalf("failed to read result file: %v", err)
		}

		var readResult PublishResult
		if err := json.Unmarshal(data, &readResult); err != nil {
			t.Fatalf("failed to unmarshal result: %v", err)
		}

		if readResult.Provider != "github-pr" {
			t.Errorf("expected provider 'github-pr', got '%s'", readResult.Provider)
		}
		if readResult.Branch != "feature/123-add_login" {
			t.Errorf("expected branch 'feature/123-add_login', got '%s'", readResult.Branch)
		}
		if readResult.StoryID != 123 {
			t.Errorf("expected story id 123, got %d", readResult.StoryID)
		}
		if len(readResult.Actions) != 1 {
			t.Errorf("expected 1 action, got %d", len(readResult.Actions))
		}
		if !readResult.Success {
			t.Error("expected success to be true")
		}
	})

	t.Run("sets PublishedAt to now if zero", func(t *testing.T) {
		tmpDir := t.TempDir()
		before := time.Now()

		if err := WriteResult(tmpDir, NewResult("git", "feature/1-x")); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		after := time.Now()

		readResult, err := ReadResult(tmpDir)
		if err != nil {
			t.Fatalf("failed to read result: %v", err)
		}

		if readResult.PublishedAt.Before(before) || readResult.PublishedAt.After(after) {
			t.Error("PublishedAt was not set to current time")
		}
	})

	t.Run("creates output directory if it doesn't exist", func(t *testing.T) {
		outputDir := filepath.Join(t.TempDir(), ".storyflow")

		if err := WriteResult(outputDir, NewResult("git", "feature/1-x")); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if _, err := os.Stat(outputDir); os.IsNotExist(err) {
			t.Error("output directory was not created")
		}
	})
}

func TestReadResult(t *testing.T) {
	t.Run("reads failed result", func(t *testing.T) {
		tmpDir := t.TempDir()

		result := NewResult("github-pr", "hotfix/9-fix_cart")
		result.AddAction(NewAction(ActionPushedBranch, "Pushed branch"))
		result.Fail(ActionCreatedPR, errors.New("validation failed"))

		if err := WriteResult(tmpDir, result); err != nil {
			t.Fatalf("failed to write result: %v", err)
		}

		readResult, err := ReadResult(tmpDir)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if readResult.Success {
			t.Error("expected success to be false")
		}
		if len(readResult.Errors) != 1 {
			t.Fatalf("expected 1 error, got %d", len(readResult.Errors))
		}
		if readResult.Errors[0].Action != ActionCreatedPR {
			t.Errorf("expected error action '%s', got '%s'", ActionCreatedPR, readResult.Errors[0].Action)
		}
		if readResult.Errors[0].Message != "validation failed" {
			t.Errorf("expected error message 'validation failed', got '%s'", readResult.Errors[0].Message)
		}
	})

	t.Run("returns error when file doesn't exist", func(t *testing.T) {
		if _, err := ReadResult(t.TempDir()); err == nil {
			t.Error("expected error for missing file, got nil")
		}
	})
}

func TestNewResult(t *testing.T) {
	r := NewResult("git", "feature/1-x")
	if !r.Success {
		t.Error("expected new result to be successful")
	}
	if r.Actions == nil || r.Errors == nil {
		t.Error("expected actions and errors to be initialized")
	}
}

func TestPublishAction_AddMetadata(t *testing.T) {
	t.Run("adds metadata to action", func(t *testing.T) {
		action := NewAction(ActionCreatedPR, "Created PR #7")

		action.AddMetadata("pr_number", "7")
		action.AddMetadata("base", "development")

		if action.Metadata["pr_number"] != "7" {
			t.Errorf("expected pr_number '7', got '%s'", action.Metadata["pr_number"])
		}
		if action.Metadata["base"] != "development" {
			t.Errorf("expected base 'development', got '%s'", action.Metadata["base"])
		}
	})

	t.Run("initializes metadata if nil", func(t *testing.T) {
		action := PublishAction{Type: ActionPushedBranch}

		action.AddMetadata("branch", "feature/1-x")

		if action.Metadata["branch"] != "feature/1-x" {
			t.Errorf("expected metadata branch to be 'feature/1-x', got '%s'", action.Metadata["branch"])
		}
	})
}
