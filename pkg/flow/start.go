package flow

import (
	"context"
	"fmt"
	"strconv"

	sflog "github.com/holon-run/storyflow/pkg/log"
	"github.com/holon-run/storyflow/pkg/story"
)

// Starter creates the working branch for a story.
type Starter struct {
	Conventions Conventions
	Git         BranchCreator

	// Asker supplies the branch slug. When nil the slugified title is used.
	Asker Asker
}

// Start creates the story's branch from its start point, records the story id
// in the branch config and returns the story bound to the new branch.
// Nothing is committed or pushed.
func (s *Starter) Start(ctx context.Context, st story.Story) (story.Story, error) {
	name, err := s.branchName(ctx, st)
	if err != nil {
		return st, err
	}

	if s.Git.BranchExists(ctx, name) {
		return st, fmt.Errorf("%w: %s", ErrBranchExists, name)
	}

	startPoint := s.Conventions.StartPoint(st)
	sflog.Progress("creating branch", "branch", name, "from", startPoint)
	if err := s.Git.CreateBranch(ctx, name, startPoint); err != nil {
		return st, fmt.Errorf("failed to create branch %s: %w", name, err)
	}

	if err := s.Git.BranchConfigSet(ctx, name, StoryIDConfigKey, strconv.FormatInt(st.ID, 10)); err != nil {
		return st, fmt.Errorf("failed to record story id on branch %s: %w", name, err)
	}

	return st.WithBranch(name)
}

func (s *Starter) branchName(ctx context.Context, st story.Story) (string, error) {
	if st.HasBranch() {
		return st.BranchName, nil
	}
	// Release branches are named after the version; there is nothing to ask.
	if st.IsRelease() && !st.IsHotfix() {
		return s.Conventions.BranchName(st, "")
	}
	if s.Asker == nil {
		return s.Conventions.BranchName(st, "")
	}

	slug, err := s.Asker.Ask(ctx, s.Conventions.BranchPrompt(st), Slugify(st.Name))
	if err != nil {
		return "", err
	}
	return s.Conventions.BranchName(st, slug)
}
