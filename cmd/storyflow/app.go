package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/holon-run/storyflow/pkg/config"
	"github.com/holon-run/storyflow/pkg/flow"
	"github.com/holon-run/storyflow/pkg/git"
	"github.com/holon-run/storyflow/pkg/github"
	sflog "github.com/holon-run/storyflow/pkg/log"
	"github.com/holon-run/storyflow/pkg/prompt"
	"github.com/holon-run/storyflow/pkg/publisher"
	gitpub "github.com/holon-run/storyflow/pkg/publisher/git"
	"github.com/holon-run/storyflow/pkg/publisher/githubpr"
	"github.com/holon-run/storyflow/pkg/tracker"
)

// app holds the collaborators one command invocation works with.
type app struct {
	dir         string
	cfg         *config.ProjectConfig
	resolver    *config.Resolver
	git         *git.Client
	conventions flow.Conventions
	tracker     *tracker.Client
	prompter    *prompt.Prompter
}

// loadApp resolves configuration for the repository containing --dir.
// Missing tracker credentials are not an error here; the tracker client
// reports them on first use, so commands that never reach the tracker work
// without them.
func loadApp(ctx context.Context) (*app, error) {
	dir, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory: %w", err)
	}

	g := git.NewClient(dir)
	if !g.IsRepo(ctx) {
		return nil, fmt.Errorf("%s is not inside a git repository", dir)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	if cfg.Path() != "" {
		sflog.Debug("loaded project config", "path", cfg.Path())
	}

	resolver := config.NewResolver(cfg, g)
	conventions, err := resolver.Conventions(ctx)
	if err != nil {
		return nil, err
	}

	token, source, err := resolver.TrackerToken(ctx, trackerToken)
	if err != nil {
		sflog.Debug("tracker token unavailable", "error", err)
	} else {
		sflog.Debug("tracker token resolved", "source", source)
	}
	project, source, err := resolver.TrackerProjectID(ctx, projectID)
	if err != nil {
		sflog.Debug("tracker project unavailable", "error", err)
	} else {
		sflog.Debug("tracker project resolved", "project", project, "source", source)
	}

	var trackerOpts []tracker.ClientOption
	baseURL, source, err := resolver.TrackerBaseURL(ctx)
	if err != nil {
		return nil, err
	}
	if baseURL != "" {
		sflog.Debug("tracker API root overridden", "url", baseURL, "source", source)
		trackerOpts = append(trackerOpts, tracker.WithBaseURL(baseURL))
	}

	return &app{
		dir:         dir,
		cfg:         cfg,
		resolver:    resolver,
		git:         g,
		conventions: conventions,
		tracker:     tracker.NewClient(token, project, trackerOpts...),
		prompter:    prompt.New(),
	}, nil
}

func (a *app) storyResolver() *flow.Resolver {
	return &flow.Resolver{
		Conventions: a.conventions,
		Finder:      a.tracker,
		Config:      a.git,
	}
}

// currentBranch returns the checked out branch or fails on a detached HEAD.
func (a *app) currentBranch(ctx context.Context) (string, error) {
	branch, err := a.git.CurrentBranch(ctx)
	if err != nil {
		return "", err
	}
	if branch == "" {
		return "", fmt.Errorf("%w: HEAD is detached", flow.ErrNoAssociatedStory)
	}
	return branch, nil
}

// stateDir is where per-repository state such as the last publish result is
// kept. It lives inside the git directory so it never dirties the working tree.
func (a *app) stateDir(ctx context.Context) (string, error) {
	gitDir, err := a.git.GitDir(ctx)
	if err != nil {
		return "", err
	}
	return filepath.Join(gitDir, "storyflow"), nil
}

// githubRepo resolves the repository pull requests are opened in: the
// configured one, or the one the remote points at.
func (a *app) githubRepo(ctx context.Context) (github.RepoRef, error) {
	name, source, err := a.resolver.GitHubRepository(ctx, "")
	if err != nil {
		return github.RepoRef{}, err
	}
	if name != "" {
		sflog.Debug("github repository resolved", "repository", name, "source", source)
		return github.ParseRepo(name)
	}

	remoteURL, err := a.git.RemoteURL(ctx, a.conventions.Remote)
	if err != nil {
		return github.RepoRef{}, err
	}
	return github.ParseRemoteURL(remoteURL)
}

func (a *app) prPublisher(ctx context.Context) (*githubpr.PRPublisher, error) {
	token, err := a.resolver.GitHubToken()
	if err != nil {
		return nil, err
	}
	repo, err := a.githubRepo(ctx)
	if err != nil {
		return nil, err
	}

	var opts []github.ClientOption
	if a.cfg.GitHub.BaseURL != "" {
		opts = append(opts, github.WithBaseURL(a.cfg.GitHub.BaseURL))
	}
	client := github.NewClient(token, opts...)

	return githubpr.NewPRPublisher(a.conventions, a.storyResolver(), a.git, client, repo), nil
}

// publishers builds the registry. Publishers that cannot be configured are
// left out and the reason is returned by name.
func (a *app) publishers(ctx context.Context) (*publisher.Registry, map[string]error, error) {
	unavailable := map[string]error{}
	pubs := []publisher.Publisher{gitpub.NewPublisher(a.conventions, a.storyResolver(), a.dir)}

	if p, err := a.prPublisher(ctx); err != nil {
		unavailable[githubpr.Name] = err
	} else {
		pubs = append(pubs, p)
	}

	registry, err := publisher.NewRegistry(pubs...)
	if err != nil {
		return nil, nil, err
	}
	return registry, unavailable, nil
}
