package publisher

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// PublishResultFile is the file name the CLI stores the last result under,
// inside the project's .storyflow directory.
const PublishResultFile = "publish-result.json"

// NewResult starts a successful result for provider and branch.
func NewResult(provider, branch string) PublishResult {
	return PublishResult{
		Provider: provider,
		Branch:   branch,
		Actions:  []PublishAction{},
		Errors:   []PublishError{},
		Success:  true,
	}
}

// AddAction appends an action to the result.
func (r *PublishResult) AddAction(action PublishAction) {
	r.Actions = append(r.Actions, action)
}

// Fail records err against action and marks the result unsuccessful.
func (r *PublishResult) Fail(action string, err error) {
	r.Errors = append(r.Errors, NewErrorWithAction(err.Error(), action))
	r.Success = false
}

// WriteResult writes the publish result to dir/publish-result.json.
func WriteResult(dir string, result PublishResult) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if result.PublishedAt.IsZero() {
		result.PublishedAt = time.Now()
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal publish result: %w", err)
	}

	resultPath := filepath.Join(dir, PublishResultFile)
	if err := os.WriteFile(resultPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write publish result: %w", err)
	}

	return nil
}

// ReadResult reads a publish result from dir.
func ReadResult(dir string) (PublishResult, error) {
	var result PublishResult

	resultPath := filepath.Join(dir, PublishResultFile)
	data, err := os.ReadFile(resultPath)
	if err != nil {
		return result, fmt.Errorf("failed to read publish result: %w", err)
	}

	if err := json.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("failed to unmarshal publish result: %w", err)
	}

	return result, nil
}

// NewError creates a PublishError from an error message.
func NewError(message string) PublishError {
	return PublishError{
		Message: message,
	}
}

// NewErrorWithAction creates a PublishError for a failed action.
func NewErrorWithAction(message, action string) PublishError {
	return PublishError{
		Message: message,
		Action:  action,
	}
}

// NewAction creates a PublishAction.
func NewAction(actionType, description string) PublishAction {
	return PublishAction{
		Type:        actionType,
		Description: description,
		Metadata:    make(map[string]string),
	}
}

// AddMetadata adds metadata to an action.
func (a *PublishAction) AddMetadata(key, value string) {
	if a.Metadata == nil {
		a.Metadata = make(map[string]string)
	}
	a.Metadata[key] = value
}
