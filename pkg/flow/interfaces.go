package flow

import (
	"context"

	"github.com/holon-run/storyflow/pkg/story"
)

// StoryIDConfigKey is the branch-scoped git config key recording which story a
// branch was started for.
const StoryIDConfigKey = "pivotal-story-id"

// Asker asks the user for a single string value.
type Asker interface {
	Ask(ctx context.Context, prompt, defaultValue string) (string, error)
}

// Chooser asks the user to pick one of several options and returns its index.
type Chooser interface {
	Choose(ctx context.Context, title string, options []string) (int, error)
}

// StoryFinder looks stories up in the issue tracker.
type StoryFinder interface {
	GetStory(ctx context.Context, id int64) (story.Story, error)
	QueryStories(ctx context.Context, q story.Query) ([]story.Story, error)
}

// BranchCreator creates branches and records per-branch metadata.
type BranchCreator interface {
	BranchExists(ctx context.Context, name string) bool
	CreateBranch(ctx context.Context, name, startPoint string) error
	BranchConfigSet(ctx context.Context, branch, key, value string) error
}

// BranchConfigReader reads per-branch metadata.
type BranchConfigReader interface {
	BranchConfigGet(ctx context.Context, branch, key string) (string, error)
}
