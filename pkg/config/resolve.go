package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/holon-run/storyflow/pkg/flow"
	"github.com/holon-run/storyflow/pkg/git"
)

// Git config keys. The gitflow keys follow git-flow's own layout so existing
// git-flow repositories work unchanged.
const (
	KeyDevelopmentBranch = "gitflow.branch.develop"
	KeyMasterBranch      = "gitflow.branch.master"
	KeyValidationBranch  = "gitflow.branch.validation"
	KeyFeaturePrefix     = "gitflow.prefix.feature"
	KeyHotfixPrefix      = "gitflow.prefix.hotfix"
	KeyReleasePrefix     = "gitflow.prefix.release"
	KeyRemote            = "gitflow.origin"
	KeyTrackerToken      = "pivotal.api-token"
	KeyTrackerProjectID  = "pivotal.project-id"
	KeyTrackerBaseURL    = "pivotal.api-url"
	KeyGitHubRepository  = "github.repository"
)

// Environment variables.
const (
	EnvTrackerToken = "PIVOTAL_API_TOKEN"
	EnvGitHubToken  = "GITHUB_TOKEN"
)

// GitConfigReader reads git configuration values.
type GitConfigReader interface {
	ConfigGet(ctx context.Context, key string) (string, error)
}

// Resolver combines the project file with git configuration.
type Resolver struct {
	File *ProjectConfig

	// Git may be nil outside a repository.
	Git GitConfigReader
}

// NewResolver creates a Resolver. A nil file is treated as empty.
func NewResolver(file *ProjectConfig, g GitConfigReader) *Resolver {
	if file == nil {
		file = &ProjectConfig{}
	}
	return &Resolver{File: file, Git: g}
}

// gitValue returns the git config value for key, or "" when unset.
func (r *Resolver) gitValue(ctx context.Context, key string) (string, error) {
	if r.Git == nil {
		return "", nil
	}
	value, err := r.Git.ConfigGet(ctx, key)
	if err != nil {
		if errors.Is(err, git.ErrConfigNotSet) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(value), nil
}

// Resolve returns the effective value of one setting and its source.
// Precedence: cliValue > git config key > fileValue > defaultValue.
func (r *Resolver) Resolve(ctx context.Context, cliValue, gitKey, fileValue, defaultValue string) (string, string, error) {
	if cliValue != "" {
		return cliValue, SourceCLI, nil
	}
	if gitKey != "" {
		value, err := r.gitValue(ctx, gitKey)
		if err != nil {
			return "", "", fmt.Errorf("failed to read %s: %w", gitKey, err)
		}
		if value != "" {
			return value, SourceGit, nil
		}
	}
	value, source := r.File.ResolveString("", fileValue, defaultValue)
	return value, source, nil
}

// Conventions resolves branch naming conventions. Empty values fall back to
// the defaults and prefixes are normalized to end in "/".
func (r *Resolver) Conventions(ctx context.Context) (flow.Conventions, error) {
	d := flow.DefaultConventions()
	f := r.File

	var c flow.Conventions
	fields := []struct {
		dst  *string
		key  string
		file string
		def  string
	}{
		{&c.DevelopmentBranch, KeyDevelopmentBranch, f.Branches.Development, d.DevelopmentBranch},
		{&c.MasterBranch, KeyMasterBranch, f.Branches.Master, d.MasterBranch},
		{&c.ValidationBranch, KeyValidationBranch, f.Branches.Validation, d.ValidationBranch},
		{&c.FeaturePrefix, KeyFeaturePrefix, f.Prefixes.Feature, d.FeaturePrefix},
		{&c.HotfixPrefix, KeyHotfixPrefix, f.Prefixes.Hotfix, d.HotfixPrefix},
		{&c.ReleasePrefix, KeyReleasePrefix, f.Prefixes.Release, d.ReleasePrefix},
		{&c.Remote, KeyRemote, f.Remote, d.Remote},
	}

	for _, field := range fields {
		value, _, err := r.Resolve(ctx, "", field.key, field.file, field.def)
		if err != nil {
			return flow.Conventions{}, err
		}
		*field.dst = value
	}

	c = c.Normalize()
	if err := c.Validate(); err != nil {
		return flow.Conventions{}, fmt.Errorf("invalid branch conventions: %w", err)
	}
	return c, nil
}

// TrackerToken resolves the Pivotal Tracker API token:
// flag > PIVOTAL_API_TOKEN > git config pivotal.api-token.
func (r *Resolver) TrackerToken(ctx context.Context, cliValue string) (string, string, error) {
	if cliValue != "" {
		return cliValue, SourceCLI, nil
	}
	if env := strings.TrimSpace(os.Getenv(EnvTrackerToken)); env != "" {
		return env, SourceEnv, nil
	}
	value, source, err := r.Resolve(ctx, "", KeyTrackerToken, "", "")
	if err != nil {
		return "", "", err
	}
	if value == "" {
		return "", "", fmt.Errorf("pivotal tracker API token not configured: set %s or git config %s", EnvTrackerToken, KeyTrackerToken)
	}
	return value, source, nil
}

// TrackerProjectID resolves the tracker project id.
func (r *Resolver) TrackerProjectID(ctx context.Context, cliValue string) (string, string, error) {
	value, source, err := r.Resolve(ctx, cliValue, KeyTrackerProjectID, r.File.Tracker.ProjectID, "")
	if err != nil {
		return "", "", err
	}
	if value == "" {
		return "", "", fmt.Errorf("pivotal tracker project id not configured: set git config %s or tracker.project_id in %s", KeyTrackerProjectID, ConfigPath)
	}
	return value, source, nil
}

// TrackerBaseURL resolves an override of the tracker API root. An empty
// result means the public API.
func (r *Resolver) TrackerBaseURL(ctx context.Context) (string, string, error) {
	return r.Resolve(ctx, "", KeyTrackerBaseURL, r.File.Tracker.BaseURL, "")
}

// GitHubToken returns the token from GITHUB_TOKEN.
func (r *Resolver) GitHubToken() (string, error) {
	token := strings.TrimSpace(os.Getenv(EnvGitHubToken))
	if token == "" {
		return "", fmt.Errorf("%s environment variable is required", EnvGitHubToken)
	}
	return token, nil
}

// GitHubRepository resolves "owner/name" when configured explicitly. An empty
// result means the caller should derive it from the remote URL.
func (r *Resolver) GitHubRepository(ctx context.Context, cliValue string) (string, string, error) {
	return r.Resolve(ctx, cliValue, KeyGitHubRepository, r.File.GitHub.Repository, "")
}
