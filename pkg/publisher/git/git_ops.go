package git

import (
	"context"
	"errors"
	"fmt"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// Repository handles the git operations of the push-only publisher using
// go-git, so publishing works without shelling out.
type Repository struct {
	// Dir is a path inside the working tree.
	Dir string

	// Token is the optional authentication token for HTTPS remotes.
	Token string
}

// NewRepository creates a Repository for dir.
func NewRepository(dir, token string) *Repository {
	return &Repository{Dir: dir, Token: token}
}

func (r *Repository) open() (*gogit.Repository, error) {
	repo, err := gogit.PlainOpenWithOptions(r.Dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%s is not a git repository", r.Dir)
		}
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}
	return repo, nil
}

// IsClean reports whether the working tree has no changes, staged or not,
// and no untracked files.
func (r *Repository) IsClean(context.Context) bool {
	repo, err := r.open()
	if err != nil {
		return false
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return false
	}
	status, err := worktree.Status()
	if err != nil {
		return false
	}
	return status.IsClean()
}

// CurrentBranch returns the checked out branch, or "" on a detached HEAD.
func (r *Repository) CurrentBranch(context.Context) (string, error) {
	repo, err := r.open()
	if err != nil {
		return "", err
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to read HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", nil
	}
	return head.Name().Short(), nil
}

// Push pushes branch to remote and records the remote branch as its upstream.
// A branch that is already up to date is not an error.
func (r *Repository) Push(ctx context.Context, branch, remoteName string) error {
	repo, err := r.open()
	if err != nil {
		return err
	}

	remote, err := repo.Remote(remoteName)
	if err != nil {
		return fmt.Errorf("failed to get remote '%s': %w", remoteName, err)
	}

	ref := plumbing.NewBranchReferenceName(branch)
	opts := &gogit.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   []config.RefSpec{config.RefSpec(ref.String() + ":" + ref.String())},
	}
	if r.Token != "" {
		opts.Auth = &http.BasicAuth{
			Username: "x-access-token",
			Password: r.Token,
		}
	}

	if err := remote.PushContext(ctx, opts); err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to push branch: %w", err)
	}

	return r.setUpstream(repo, branch, remoteName)
}

// setUpstream writes branch.<name>.remote and branch.<name>.merge.
func (r *Repository) setUpstream(repo *gogit.Repository, branch, remoteName string) error {
	cfg, err := repo.Config()
	if err != nil {
		return fmt.Errorf("failed to read repository config: %w", err)
	}

	if cfg.Branches == nil {
		cfg.Branches = make(map[string]*config.Branch)
	}
	b, ok := cfg.Branches[branch]
	if !ok {
		b = &config.Branch{Name: branch}
		cfg.Branches[branch] = b
	}
	b.Remote = remoteName
	b.Merge = plumbing.NewBranchReferenceName(branch)

	if err := repo.SetConfig(cfg); err != nil {
		return fmt.Errorf("failed to set upstream of %s: %w", branch, err)
	}
	return nil
}
