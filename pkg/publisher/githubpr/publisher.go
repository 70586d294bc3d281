// Package githubpr publishes a story branch as one or two GitHub pull requests.
// Every branch gets a pull request into its development-equivalent root;
// hotfix branches get a second one into the validation branch.
package githubpr

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/holon-run/storyflow/pkg/flow"
	"github.com/holon-run/storyflow/pkg/git"
	gh "github.com/holon-run/storyflow/pkg/github"
	sflog "github.com/holon-run/storyflow/pkg/log"
	"github.com/holon-run/storyflow/pkg/publisher"
	"github.com/holon-run/storyflow/pkg/story"
)

// Name is the provider name of the pull request publisher.
const Name = "github-pr"

// ActionFoundPR records a pull request that already existed for a head and base.
const ActionFoundPR = "found_pr"

// ErrPullRequestCreationFailed wraps every failed pull request creation.
var ErrPullRequestCreationFailed = errors.New("pull request creation failed")

// StoryResolver maps a branch to its story.
type StoryResolver interface {
	ResolveStory(ctx context.Context, branch string) (story.Story, error)
}

// Git is the part of the git client the publisher needs.
type Git interface {
	IsClean(ctx context.Context) bool
	Push(ctx context.Context, opts git.PushOptions) error
}

// PullRequests is the part of the GitHub client the publisher needs.
type PullRequests interface {
	CreatePullRequest(ctx context.Context, repo gh.RepoRef, pr *gh.NewPullRequest) (*gh.PRInfo, error)
	FindPullRequest(ctx context.Context, repo gh.RepoRef, head, base string) (*gh.PRInfo, error)
}

// PRPublisher pushes a story branch and opens its pull requests.
type PRPublisher struct {
	conventions flow.Conventions
	resolver    StoryResolver
	git         Git
	github      PullRequests
	repo        gh.RepoRef
}

// NewPRPublisher creates a pull request publisher for repo.
func NewPRPublisher(c flow.Conventions, resolver StoryResolver, g Git, prs PullRequests, repo gh.RepoRef) *PRPublisher {
	return &PRPublisher{
		conventions: c,
		resolver:    resolver,
		git:         g,
		github:      prs,
		repo:        repo,
	}
}

// Name returns the provider name.
func (p *PRPublisher) Name() string {
	return Name
}

// Validate checks if the request is valid for this publisher.
func (p *PRPublisher) Validate(req publisher.PublishRequest) error {
	if p.repo.Owner == "" || p.repo.Name == "" {
		return fmt.Errorf("incomplete repository reference: owner=%s, repo=%s", p.repo.Owner, p.repo.Name)
	}
	if p.conventions.IsRootBranch(req.Branch) {
		return fmt.Errorf("refusing to publish root branch %s", req.Branch)
	}
	return nil
}

// Publish pushes req.Branch and opens its pull requests.
//
// A branch without a story fails with flow.ErrNoAssociatedStory before any git
// or API call, and a dirty working tree fails with flow.ErrDirtyWorkingTree
// before the push. Once pushed, every pull request is attempted even if an
// earlier one failed; failures are joined and wrap ErrPullRequestCreationFailed.
// Pull requests already opened are never rolled back.
func (p *PRPublisher) Publish(ctx context.Context, req publisher.PublishRequest) (publisher.PublishResult, error) {
	branch := strings.TrimSpace(req.Branch)
	result := publisher.NewResult(p.Name(), branch)
	result.DryRun = req.DryRun

	if branch == "" {
		err := fmt.Errorf("%w: no current branch", flow.ErrNoAssociatedStory)
		result.Fail("resolve_story", err)
		return result, err
	}

	s, err := p.resolver.ResolveStory(ctx, branch)
	if err != nil {
		result.Fail("resolve_story", err)
		return result, err
	}
	result.StoryID = s.ID

	if !p.git.IsClean(ctx) {
		err := fmt.Errorf("%w: commit or stash your changes before publishing %s", flow.ErrDirtyWorkingTree, branch)
		result.Fail(publisher.ActionPushedBranch, err)
		return result, err
	}

	params := p.conventions.PullRequestParamSets(s, branch)

	if req.DryRun {
		for _, pr := range params {
			sflog.Info("would create pull request", "head", pr.Head, "base", pr.Base, "title", pr.Title)
		}
		result.PublishedAt = time.Now()
		return result, nil
	}

	remote := p.conventions.Remote
	sflog.Progress("pushing branch", "branch", branch, "remote", remote)
	if err := p.git.Push(ctx, git.PushOptions{
		Remote:      remote,
		Branch:      branch,
		SetUpstream: true,
	}); err != nil {
		wrappedErr := fmt.Errorf("failed to push branch %s: %w", branch, err)
		result.Fail(publisher.ActionPushedBranch, wrappedErr)
		return result, wrappedErr
	}

	pushed := publisher.NewAction(publisher.ActionPushedBranch, fmt.Sprintf("Pushed branch %s to %s", branch, remote))
	pushed.AddMetadata("branch", branch)
	pushed.AddMetadata("remote", remote)
	result.AddAction(pushed)

	var errs []error
	for _, pr := range params {
		action, err := p.openPullRequest(ctx, pr)
		if err != nil {
			wrappedErr := fmt.Errorf("%w: %s -> %s: %w", ErrPullRequestCreationFailed, pr.Head, pr.Base, err)
			result.Fail(publisher.ActionCreatedPR, wrappedErr)
			errs = append(errs, wrappedErr)
			continue
		}
		result.AddAction(action)
	}

	result.PublishedAt = time.Now()
	return result, errors.Join(errs...)
}

// openPullRequest creates one pull request. When GitHub rejects it because
// one already exists for the same head and base, the existing one is reported.
func (p *PRPublisher) openPullRequest(ctx context.Context, params flow.PullRequestParams) (publisher.PublishAction, error) {
	sflog.Progress("creating pull request", "head", params.Head, "base", params.Base)

	pr, err := p.github.CreatePullRequest(ctx, p.repo, &gh.NewPullRequest{
		Title:               params.Title,
		Head:                params.Head,
		Base:                params.Base,
		Body:                params.Body,
		MaintainerCanModify: true,
	})
	if err == nil {
		return prAction(publisher.ActionCreatedPR, "Created", pr, params), nil
	}
	if !gh.IsValidationError(err) {
		return publisher.PublishAction{}, err
	}

	existing, findErr := p.github.FindPullRequest(ctx, p.repo, params.Head, params.Base)
	if findErr != nil || existing == nil {
		return publisher.PublishAction{}, err
	}
	sflog.Info("pull request already exists", "number", existing.Number, "url", existing.URL)
	return prAction(ActionFoundPR, "Found existing", existing, params), nil
}

func prAction(actionType, verb string, pr *gh.PRInfo, params flow.PullRequestParams) publisher.PublishAction {
	action := publisher.NewAction(actionType, fmt.Sprintf("%s PR #%d (%s -> %s)", verb, pr.Number, params.Head, params.Base))
	action.AddMetadata("pr_number", strconv.Itoa(pr.Number))
	action.AddMetadata("pr_url", pr.URL)
	action.AddMetadata("base", params.Base)
	action.AddMetadata("head", params.Head)
	return action
}
