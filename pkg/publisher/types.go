// Package publisher defines how a working branch is published: pushed to the
// remote and, depending on the publisher, turned into pull requests.
package publisher

import (
	"context"
	"time"
)

// Action types recorded in a PublishResult.
const (
	ActionPushedBranch = "pushed_branch"
	ActionCreatedPR    = "created_pr"
)

// PublishRequest contains the input parameters for a publish operation.
type PublishRequest struct {
	// Branch is the branch to publish, normally the current branch.
	Branch string

	// DryRun validates and resolves the story without pushing or creating PRs.
	DryRun bool
}

// PublishAction represents a single action taken during publishing.
type PublishAction struct {
	// Type is the kind of action performed ("pushed_branch", "created_pr").
	Type string `json:"type"`

	// Description provides human-readable details about the action
	Description string `json:"description"`

	// Metadata contains additional action-specific information
	Metadata map[string]string `json:"metadata,omitempty"`
}

// PublishError represents an error that occurred during publishing.
type PublishError struct {
	// Message is the error message
	Message string `json:"message"`

	// Action is the action that failed (if applicable)
	Action string `json:"action,omitempty"`

	// Details contains additional error context
	Details map[string]string `json:"details,omitempty"`
}

// PublishResult contains the outcome of a publish operation.
type PublishResult struct {
	// Provider is the name of the publisher that handled this request
	Provider string `json:"provider"`

	// Branch is the branch that was published
	Branch string `json:"branch"`

	// StoryID is the story the branch belongs to, when resolved
	StoryID int64 `json:"story_id,omitempty"`

	// PublishedAt is the timestamp when publishing completed
	PublishedAt time.Time `json:"published_at"`

	// Actions is a list of actions taken during publishing
	Actions []PublishAction `json:"actions"`

	// Errors contains any errors that occurred during publishing
	Errors []PublishError `json:"errors,omitempty"`

	// DryRun is set when nothing was pushed or created
	DryRun bool `json:"dry_run,omitempty"`

	// Success indicates whether the overall publish operation succeeded
	Success bool `json:"success"`
}

// Publisher publishes a working branch.
type Publisher interface {
	// Publish pushes the branch and performs the publisher's follow-up actions.
	// The result describes what was done even when an error is returned.
	Publish(ctx context.Context, req PublishRequest) (PublishResult, error)

	// Name returns the provider name (e.g., "github-pr", "git")
	Name() string

	// Validate checks if the request is valid for this publisher.
	// Returns nil if valid, or an error describing what's invalid.
	Validate(req PublishRequest) error
}
