package flow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	sflog "github.com/holon-run/storyflow/pkg/log"
	"github.com/holon-run/storyflow/pkg/story"
)

// Resolver finds the story a branch was created for.
type Resolver struct {
	Conventions Conventions
	Finder      StoryFinder

	// Config is optional. When set, the story id recorded at start takes
	// precedence over the id parsed from the branch name.
	Config BranchConfigReader
}

// ResolveStory returns the story bound to branch. Every failure to map the
// branch to an existing story is reported as ErrNoAssociatedStory.
func (r *Resolver) ResolveStory(ctx context.Context, branch string) (story.Story, error) {
	branch = strings.TrimSpace(branch)
	if branch == "" {
		return story.Story{}, fmt.Errorf("%w: no current branch", ErrNoAssociatedStory)
	}

	st, err := r.lookup(ctx, branch)
	if err != nil {
		if errors.Is(err, story.ErrNotFound) || errors.Is(err, ErrUnresolvableBranch) {
			return story.Story{}, fmt.Errorf("%w %s: %w", ErrNoAssociatedStory, branch, err)
		}
		return story.Story{}, err
	}

	return st.WithBranch(branch)
}

func (r *Resolver) lookup(ctx context.Context, branch string) (story.Story, error) {
	if id, ok := r.configuredID(ctx, branch); ok {
		sflog.Debug("story id from branch config", "branch", branch, "id", id)
		return r.Finder.GetStory(ctx, id)
	}

	parsed, err := r.Conventions.ParseBranch(branch)
	if err != nil {
		return story.Story{}, err
	}

	if parsed.Kind == KindRelease {
		return r.findRelease(ctx, parsed.Version)
	}
	return r.Finder.GetStory(ctx, parsed.StoryID)
}

func (r *Resolver) configuredID(ctx context.Context, branch string) (int64, bool) {
	if r.Config == nil {
		return 0, false
	}
	value, err := r.Config.BranchConfigGet(ctx, branch, StoryIDConfigKey)
	if err != nil || strings.TrimSpace(value) == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		sflog.Warn("ignoring invalid story id in branch config", "branch", branch, "value", value)
		return 0, false
	}
	return id, true
}

func (r *Resolver) findRelease(ctx context.Context, version string) (story.Story, error) {
	stories, err := r.Finder.QueryStories(ctx, story.Query{
		Types: []string{story.Release.String()},
		Name:  version,
	})
	if err != nil {
		return story.Story{}, err
	}
	for _, s := range stories {
		if s.Name == version {
			return s, nil
		}
	}
	return story.Story{}, fmt.Errorf("%w: release %q", story.ErrNotFound, version)
}
