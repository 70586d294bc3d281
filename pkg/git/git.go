// Package git wraps the git command line for the branch lifecycle commands.
// Every operation runs "git -C <dir> ..." so callers never depend on the
// process working directory.
package git

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultRemote is used when an operation does not name a remote.
const DefaultRemote = "origin"

// Client represents a git client for operations on a repository.
type Client struct {
	// Dir is the working directory of the git repository.
	Dir string

	// Options provides optional git configuration.
	Options *ClientOptions
}

// ClientOptions holds configuration for git operations.
type ClientOptions struct {
	// Quiet suppresses output from git commands.
	Quiet bool
}

// DefaultClientOptions returns the default client options.
func DefaultClientOptions() *ClientOptions {
	return &ClientOptions{Quiet: true}
}

// NewClient creates a new git client for the given directory.
func NewClient(dir string) *Client {
	return &Client{
		Dir:     dir,
		Options: DefaultClientOptions(),
	}
}

// execCommand executes a git command with proper error handling.
func (c *Client) execCommand(ctx context.Context, args ...string) ([]byte, error) {
	cmdArgs := append([]string{"-C", c.Dir}, args...)
	cmd := exec.CommandContext(ctx, "git", cmdArgs...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("git %s failed: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(output)))
	}

	return output, nil
}

func (c *Client) quietFlag() []string {
	if c.Options != nil && c.Options.Quiet {
		return []string{"--quiet"}
	}
	return nil
}

// exitCode returns the process exit code wrapped in err, or -1.
func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// IsRepo checks if the directory is a git repository.
func (c *Client) IsRepo(ctx context.Context) bool {
	_, err := c.execCommand(ctx, "rev-parse", "--git-dir")
	return err == nil
}

// GetHeadSHA returns the current HEAD SHA.
func (c *Client) GetHeadSHA(ctx context.Context) (string, error) {
	return c.RevParse(ctx, "HEAD")
}

// RevParse resolves a ref to a commit SHA.
func (c *Client) RevParse(ctx context.Context, ref string) (string, error) {
	output, err := c.execCommand(ctx, "rev-parse", "--verify", ref+"^{commit}")
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", ref, err)
	}
	return strings.TrimSpace(string(output)), nil
}

// GitDir returns the absolute path of the repository's .git directory.
func (c *Client) GitDir(ctx context.Context) (string, error) {
	output, err := c.execCommand(ctx, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return "", fmt.Errorf("failed to find git directory: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// CurrentBranch returns the checked out branch, or "" when HEAD is detached.
func (c *Client) CurrentBranch(ctx context.Context) (string, error) {
	output, err := c.execCommand(ctx, "symbolic-ref", "--quiet", "--short", "HEAD")
	if err != nil {
		if exitCode(err) == 1 {
			return "", nil
		}
		return "", fmt.Errorf("failed to read current branch: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// BranchExists reports whether a local branch exists.
func (c *Client) BranchExists(ctx context.Context, name string) bool {
	_, err := c.execCommand(ctx, "show-ref", "--verify", "--quiet", "refs/heads/"+name)
	return err == nil
}

// Checkout checks out a reference (branch, tag, or commit).
func (c *Client) Checkout(ctx context.Context, ref string) error {
	args := append([]string{"checkout"}, c.quietFlag()...)
	if ref != "" {
		args = append(args, ref)
	}
	_, err := c.execCommand(ctx, args...)
	return err
}

// CreateBranch creates name from startPoint and checks it out.
func (c *Client) CreateBranch(ctx context.Context, name, startPoint string) error {
	if name == "" {
		return fmt.Errorf("branch name is required")
	}
	args := append([]string{"checkout"}, c.quietFlag()...)
	args = append(args, "-b", name)
	if startPoint != "" {
		args = append(args, startPoint)
	}
	_, err := c.execCommand(ctx, args...)
	return err
}

// IsAncestor reports whether ancestor is reachable from descendant, which is
// exactly when descendant can be fast-forwarded from ancestor.
func (c *Client) IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error) {
	_, err := c.execCommand(ctx, "merge-base", "--is-ancestor", ancestor, descendant)
	if err == nil {
		return true, nil
	}
	if exitCode(err) == 1 {
		return false, nil
	}
	return false, err
}

// MergeBase returns the best common ancestor of two refs.
func (c *Client) MergeBase(ctx context.Context, a, b string) (string, error) {
	output, err := c.execCommand(ctx, "merge-base", a, b)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}

// AheadBehind counts the commits on head missing from base (ahead) and on
// base missing from head (behind).
func (c *Client) AheadBehind(ctx context.Context, base, head string) (ahead, behind int, err error) {
	output, err := c.execCommand(ctx, "rev-list", "--left-right", "--count", base+"..."+head)
	if err != nil {
		return 0, 0, err
	}
	if _, err := fmt.Sscanf(strings.TrimSpace(string(output)), "%d\t%d", &behind, &ahead); err != nil {
		return 0, 0, fmt.Errorf("unexpected rev-list output %q: %w", output, err)
	}
	return ahead, behind, nil
}

// MergeOptions specifies how a branch is merged into the checked out branch.
type MergeOptions struct {
	// Branch is the branch merged into HEAD.
	Branch string

	// FastForwardOnly refuses to create a merge commit.
	FastForwardOnly bool

	// NoFastForward always creates a merge commit.
	NoFastForward bool

	// Message overrides the merge commit message.
	Message string
}

// Merge merges opts.Branch into the checked out branch. A conflicted merge is
// left in place for the user to resolve.
func (c *Client) Merge(ctx context.Context, opts MergeOptions) error {
	if opts.Branch == "" {
		return fmt.Errorf("branch name is required for merge")
	}
	if opts.FastForwardOnly && opts.NoFastForward {
		return fmt.Errorf("fast-forward-only and no-fast-forward are mutually exclusive")
	}

	args := append([]string{"merge"}, c.quietFlag()...)
	switch {
	case opts.FastForwardOnly:
		args = append(args, "--ff-only")
	case opts.NoFastForward:
		args = append(args, "--no-ff")
	}
	if opts.Message != "" {
		args = append(args, "-m", opts.Message)
	} else if opts.NoFastForward {
		args = append(args, "--no-edit")
	}
	args = append(args, opts.Branch)

	_, err := c.execCommand(ctx, args...)
	return err
}

// TagOptions specifies a tag to create.
type TagOptions struct {
	// Name is the tag name.
	Name string

	// Annotated creates an annotated tag carrying Message.
	Annotated bool
	Message   string

	// Ref is the tagged commit; empty means HEAD.
	Ref string
}

// Tag creates a tag.
func (c *Client) Tag(ctx context.Context, opts TagOptions) error {
	if opts.Name == "" {
		return fmt.Errorf("tag name is required")
	}

	args := []string{"tag"}
	if opts.Annotated {
		msg := opts.Message
		if msg == "" {
			msg = opts.Name
		}
		args = append(args, "-a", opts.Name, "-m", msg)
	} else {
		args = append(args, opts.Name)
	}
	if opts.Ref != "" {
		args = append(args, opts.Ref)
	}

	_, err := c.execCommand(ctx, args...)
	return err
}

// PushOptions specifies options for pushing to a remote.
type PushOptions struct {
	// Remote is the remote name (default: "origin").
	Remote string

	// Branch is the branch to push.
	Branch string

	// Force enables force push.
	Force bool

	// SetUpstream sets the upstream branch.
	SetUpstream bool

	// FollowTags also pushes annotated tags reachable from the branch.
	FollowTags bool
}

// Push pushes a branch to a remote. Credentials come from the user's git setup.
func (c *Client) Push(ctx context.Context, opts PushOptions) error {
	if opts.Remote == "" {
		opts.Remote = DefaultRemote
	}
	if opts.Branch == "" {
		return fmt.Errorf("branch name is required for push")
	}

	args := append([]string{"push"}, c.quietFlag()...)
	if opts.Force {
		args = append(args, "--force")
	}
	if opts.SetUpstream {
		args = append(args, "-u")
	}
	if opts.FollowTags {
		args = append(args, "--follow-tags")
	}
	args = append(args, opts.Remote, opts.Branch)

	if _, err := c.execCommand(ctx, args...); err != nil {
		return fmt.Errorf("push failed: %w", err)
	}
	return nil
}

// RemoteURL returns the fetch URL of a remote.
func (c *Client) RemoteURL(ctx context.Context, remote string) (string, error) {
	if remote == "" {
		remote = DefaultRemote
	}
	output, err := c.execCommand(ctx, "remote", "get-url", remote)
	if err != nil {
		return "", fmt.Errorf("failed to read url of remote %s: %w", remote, err)
	}
	return strings.TrimSpace(string(output)), nil
}

// IsClean returns true if the working directory has no uncommitted changes,
// staged changes or untracked files.
func (c *Client) IsClean(ctx context.Context) bool {
	output, err := c.execCommand(ctx, "status", "--porcelain")
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(output)) == ""
}

// FileStatus represents the status of a single file in the working tree.
type FileStatus struct {
	// Path is the file path.
	Path string

	// Status is the human-readable status (e.g., "modified", "added", "deleted").
	Status string

	// StatusCode is the raw status code from git status.
	StatusCode string
}

// GetWorkingTreeStatus parses git status --porcelain into file-level entries.
func (c *Client) GetWorkingTreeStatus(ctx context.Context) ([]FileStatus, error) {
	output, err := c.execCommand(ctx, "status", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("failed to get working tree status: %w", err)
	}
	return parseFileStatus(string(output)), nil
}

func parseFileStatus(output string) []FileStatus {
	var statuses []FileStatus
	for _, line := range strings.Split(output, "\n") {
		// Keep the leading space: it is part of the two-column status code.
		line = strings.TrimRight(line, "\r")
		if len(line) < 4 {
			continue
		}

		code := line[0:2]
		path := line[3:]
		// Renames are reported as "old -> new"; the new name is canonical.
		if _, newName, ok := strings.Cut(path, " -> "); ok {
			path = newName
		}

		statuses = append(statuses, FileStatus{
			Path:       path,
			Status:     decodeStatusCode(code),
			StatusCode: code,
		})
	}
	return statuses
}

var statusNames = map[string]string{
	" M": "modified (worktree)",
	"M ": "modified (index)",
	"MM": "modified (both)",
	"A ": "added (index)",
	"AM": "added (index), modified (worktree)",
	" D": "deleted (worktree)",
	"D ": "deleted (index)",
	"R ": "renamed (index)",
	"C ": "copied (index)",
	"??": "untracked",
	"UU": "both modified",
	"AA": "both added",
	"DD": "both deleted",
	"DU": "deleted (ours), modified (theirs)",
	"UD": "modified (ours), deleted (theirs)",
	"AU": "added (ours), unmerged",
	"UA": "added (theirs), unmerged",
}

func decodeStatusCode(code string) string {
	if name, ok := statusNames[code]; ok {
		return name
	}
	return fmt.Sprintf("unknown_%s", code)
}

// DiagnoseWorkingTree describes why the working tree is not clean.
func (c *Client) DiagnoseWorkingTree(ctx context.Context) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Repository: %s\n", c.Dir)
	statuses, err := c.GetWorkingTreeStatus(ctx)
	if err != nil {
		fmt.Fprintf(&b, "Error getting status: %v\n", err)
		return b.String()
	}
	if len(statuses) == 0 {
		b.WriteString("Status: CLEAN\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Status: DIRTY (%d files)\n", len(statuses))
	for _, s := range statuses {
		fmt.Fprintf(&b, "  - %s: %s\n", s.Path, s.Status)
	}
	return b.String()
}
