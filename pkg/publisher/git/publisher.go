// Package git provides the push-only publisher: it resolves the branch's
// story, checks the working tree and pushes the branch, leaving pull requests
// to the user.
package git

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/holon-run/storyflow/pkg/flow"
	sflog "github.com/holon-run/storyflow/pkg/log"
	"github.com/holon-run/storyflow/pkg/publisher"
	"github.com/holon-run/storyflow/pkg/story"
)

const (
	// Name is the provider name of the push-only publisher.
	Name = "git"

	// GitTokenEnv is the environment variable for git authentication token.
	GitTokenEnv = "GIT_TOKEN"
)

// StoryResolver maps a branch to its story.
type StoryResolver interface {
	ResolveStory(ctx context.Context, branch string) (story.Story, error)
}

// Pusher is the git access the publisher needs.
type Pusher interface {
	IsClean(ctx context.Context) bool
	CurrentBranch(ctx context.Context) (string, error)
	Push(ctx context.Context, branch, remote string) error
}

// Publisher pushes a working branch without opening pull requests.
type Publisher struct {
	conventions flow.Conventions
	resolver    StoryResolver
	repo        Pusher
}

// NewPublisher creates a push-only publisher for the repository containing dir.
// GIT_TOKEN, when set, authenticates HTTPS pushes.
func NewPublisher(c flow.Conventions, resolver StoryResolver, dir string) *Publisher {
	return NewPublisherWithRepository(c, resolver, NewRepository(dir, os.Getenv(GitTokenEnv)))
}

// NewPublisherWithRepository creates a push-only publisher over repo.
func NewPublisherWithRepository(c flow.Conventions, resolver StoryResolver, repo Pusher) *Publisher {
	return &Publisher{conventions: c, resolver: resolver, repo: repo}
}

// Name returns the provider name.
func (p *Publisher) Name() string {
	return Name
}

// Validate checks if the request is valid for this publisher.
func (p *Publisher) Validate(req publisher.PublishRequest) error {
	if strings.TrimSpace(req.Branch) == "" {
		return fmt.Errorf("branch is required")
	}
	if p.conventions.IsRootBranch(req.Branch) {
		return fmt.Errorf("refusing to publish root branch %s", req.Branch)
	}
	return nil
}

// Publish pushes req.Branch to the configured remote with upstream tracking.
// A branch without a story fails with flow.ErrNoAssociatedStory before the
// repository is touched, and a dirty working tree fails with
// flow.ErrDirtyWorkingTree.
func (p *Publisher) Publish(ctx context.Context, req publisher.PublishRequest) (publisher.PublishResult, error) {
	branch := strings.TrimSpace(req.Branch)
	result := publisher.NewResult(p.Name(), branch)
	result.DryRun = req.DryRun

	if err := p.Validate(req); err != nil {
		result.Fail(publisher.ActionPushedBranch, err)
		return result, err
	}

	s, err := p.resolver.ResolveStory(ctx, branch)
	if err != nil {
		result.Fail("resolve_story", err)
		return result, err
	}
	result.StoryID = s.ID

	if !p.repo.IsClean(ctx) {
		err := fmt.Errorf("%w: commit or stash your changes before publishing %s", flow.ErrDirtyWorkingTree, branch)
		result.Fail(publisher.ActionPushedBranch, err)
		return result, err
	}

	current, err := p.repo.CurrentBranch(ctx)
	if err != nil {
		result.Fail(publisher.ActionPushedBranch, err)
		return result, err
	}
	if current != branch {
		err := fmt.Errorf("%s is not checked out (HEAD is on %q)", branch, current)
		result.Fail(publisher.ActionPushedBranch, err)
		return result, err
	}

	remote := p.conventions.Remote
	if req.DryRun {
		sflog.Info("would push branch", "branch", branch, "remote", remote)
		result.PublishedAt = time.Now()
		return result, nil
	}

	sflog.Progress("pushing branch", "branch", branch, "remote", remote)
	if err := p.repo.Push(ctx, branch, remote); err != nil {
		wrappedErr := fmt.Errorf("failed to push: %w", err)
		result.Fail(publisher.ActionPushedBranch, wrappedErr)
		return result, wrappedErr
	}

	action := publisher.NewAction(publisher.ActionPushedBranch, fmt.Sprintf("Pushed to %s/%s", remote, branch))
	action.AddMetadata("remote", remote)
	action.AddMetadata("branch", branch)
	action.AddMetadata("story_id", strconv.FormatInt(s.ID, 10))
	result.AddAction(action)

	result.PublishedAt = time.Now()
	return result, nil
}
