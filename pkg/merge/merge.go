// Package merge integrates finished story branches into their root branches.
//
// A merge moves through Idle, MergeDecided, Merged and, for release stories,
// Tagged. Any failing git step ends in Failed and stops the operation; the
// engine never resolves conflicts or retries.
package merge

import (
	"context"
	"errors"
	"fmt"

	"github.com/holon-run/storyflow/pkg/flow"
	"github.com/holon-run/storyflow/pkg/git"
	sflog "github.com/holon-run/storyflow/pkg/log"
	"github.com/holon-run/storyflow/pkg/story"
)

var (
	// ErrMergeFailed wraps the git error of a failed checkout or merge.
	ErrMergeFailed = errors.New("merge failed")

	// ErrNotRelease is returned when a release-only operation gets another story.
	ErrNotRelease = errors.New("story is not a release")

	// ErrNoBranch is returned when the story has no branch to merge.
	ErrNoBranch = errors.New("story has no branch")
)

// Git is the subset of the git client the engine drives.
type Git interface {
	IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error)
	Checkout(ctx context.Context, ref string) error
	Merge(ctx context.Context, opts git.MergeOptions) error
	Tag(ctx context.Context, opts git.TagOptions) error
	Push(ctx context.Context, opts git.PushOptions) error
	GetHeadSHA(ctx context.Context) (string, error)
}

// Strategy is how a branch is merged.
type Strategy int

const (
	FastForwardOnly Strategy = iota + 1
	NoFastForward
)

func (s Strategy) String() string {
	switch s {
	case FastForwardOnly:
		return "fast-forward"
	case NoFastForward:
		return "no-fast-forward"
	default:
		return "undecided"
	}
}

// State is the progress of one merge.
type State int

const (
	Idle State = iota
	MergeDecided
	Merged
	Tagged
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case MergeDecided:
		return "merge-decided"
	case Merged:
		return "merged"
	case Tagged:
		return "tagged"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == Merged || s == Tagged || s == Failed
}

// Outcome records what one merge did.
type Outcome struct {
	Source   string
	Target   string
	Strategy Strategy
	State    State

	// Commit is the target's HEAD after the merge.
	Commit string

	// Tag is set when a release tag was created.
	Tag string

	// Pushed is set once the target was pushed.
	Pushed bool
}

// Engine merges story branches following the configured conventions.
type Engine struct {
	Conventions flow.Conventions
	Git         Git
}

// New creates an Engine.
func New(conventions flow.Conventions, g Git) *Engine {
	return &Engine{Conventions: conventions, Git: g}
}

// ReleaseTagMessage is the annotation of a release tag.
func ReleaseTagMessage(version string) string {
	return "Release " + version
}

// TrivialMerge reports whether target can be fast-forwarded to source.
func (e *Engine) TrivialMerge(ctx context.Context, source, target string) (bool, error) {
	return e.Git.IsAncestor(ctx, target, source)
}

// DecideStrategy picks fast-forward-only for trivial merges and a merge
// commit otherwise.
func (e *Engine) DecideStrategy(ctx context.Context, source, target string) (Strategy, error) {
	trivial, err := e.TrivialMerge(ctx, source, target)
	if err != nil {
		return 0, fmt.Errorf("failed to compare %s with %s: %w", source, target, err)
	}
	if trivial {
		return FastForwardOnly, nil
	}
	return NoFastForward, nil
}

// Merge merges the story's branch into target and tags release stories.
// The returned Outcome is valid even when err is non-nil.
func (e *Engine) Merge(ctx context.Context, s story.Story, target string) (Outcome, error) {
	return e.merge(ctx, s, target, s.IsRelease())
}

func (e *Engine) merge(ctx context.Context, s story.Story, target string, tagRelease bool) (Outcome, error) {
	out := Outcome{Source: s.BranchName, Target: target, State: Idle}
	if !s.HasBranch() {
		out.State = Failed
		return out, fmt.Errorf("%w: story #%d", ErrNoBranch, s.ID)
	}

	strategy, err := e.DecideStrategy(ctx, s.BranchName, target)
	if err != nil {
		out.State = Failed
		return out, fmt.Errorf("%w: %w", ErrMergeFailed, err)
	}
	out.Strategy = strategy
	out.State = MergeDecided
	sflog.Progress("merging", "source", s.BranchName, "target", target, "strategy", strategy.String())

	if err := e.Git.Checkout(ctx, target); err != nil {
		out.State = Failed
		return out, fmt.Errorf("%w: checkout %s: %w", ErrMergeFailed, target, err)
	}

	opts := git.MergeOptions{
		Branch:          s.BranchName,
		FastForwardOnly: strategy == FastForwardOnly,
		NoFastForward:   strategy == NoFastForward,
	}
	if err := e.Git.Merge(ctx, opts); err != nil {
		out.State = Failed
		return out, fmt.Errorf("%w: %s into %s: %w", ErrMergeFailed, s.BranchName, target, err)
	}
	out.State = Merged

	if sha, err := e.Git.GetHeadSHA(ctx); err == nil {
		out.Commit = sha
	}

	if !tagRelease {
		return out, nil
	}

	tag := git.TagOptions{
		Name:      s.Name,
		Annotated: true,
		Message:   ReleaseTagMessage(s.Name),
	}
	if err := e.Git.Tag(ctx, tag); err != nil {
		out.State = Failed
		return out, fmt.Errorf("failed to tag %s: %w", s.Name, err)
	}
	out.State = Tagged
	out.Tag = s.Name
	sflog.Progress("tagged release", "tag", s.Name, "commit", out.Commit)

	return out, nil
}

// MergeRelease merges a release story into its master-equivalent branch and
// creates the release tag.
func (e *Engine) MergeRelease(ctx context.Context, s story.Story) (Outcome, error) {
	if !s.IsRelease() {
		return Outcome{Source: s.BranchName, State: Failed}, fmt.Errorf("%w: story #%d is a %s", ErrNotRelease, s.ID, s.Category)
	}
	return e.Merge(ctx, s, e.Conventions.MasterBranchName(s))
}

// MergeToRoots merges the story into its merge target and pushes it. Hotfix
// stories are then also merged into and pushed to every propagation target.
// It stops at the first failure and returns the outcomes completed so far.
func (e *Engine) MergeToRoots(ctx context.Context, s story.Story) ([]Outcome, error) {
	targets := e.Conventions.FinishTargets(s)

	var outcomes []Outcome
	for i, target := range targets {
		// Only the primary merge tags a release.
		out, err := e.merge(ctx, s, target, i == 0 && s.IsRelease())
		if err != nil {
			return append(outcomes, out), err
		}

		push := git.PushOptions{
			Remote:     e.Conventions.Remote,
			Branch:     target,
			FollowTags: out.Tag != "",
		}
		if err := e.Git.Push(ctx, push); err != nil {
			out.State = Failed
			return append(outcomes, out), fmt.Errorf("failed to push %s: %w", target, err)
		}
		out.Pushed = true
		outcomes = append(outcomes, out)
	}

	return outcomes, nil
}
