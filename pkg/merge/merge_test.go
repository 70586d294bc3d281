package merge

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holon-run/storyflow/pkg/flow"
	"github.com/holon-run/storyflow/pkg/git"
	"github.com/holon-run/storyflow/pkg/story"
)

// fakeGit records every call in order.
type fakeGit struct {
	trivial  bool
	ancErr   error
	mergeErr error
	tagErr   error
	pushErr  error

	calls  []string
	merges []git.MergeOptions
	tags   []git.TagOptions
	pushes []git.PushOptions
}

func (f *fakeGit) IsAncestor(_ context.Context, ancestor, descendant string) (bool, error) {
	f.calls = append(f.calls, fmt.Sprintf("is-ancestor %s %s", ancestor, descendant))
	return f.trivial, f.ancErr
}

func (f *fakeGit) Checkout(_ context.Context, ref string) error {
	f.calls = append(f.calls, "checkout "+ref)
	return nil
}

func (f *fakeGit) Merge(_ context.Context, opts git.MergeOptions) error {
	f.calls = append(f.calls, "merge "+opts.Branch)
	f.merges = append(f.merges, opts)
	return f.mergeErr
}

func (f *fakeGit) Tag(_ context.Context, opts git.TagOptions) error {
	f.calls = append(f.calls, "tag "+opts.Name)
	f.tags = append(f.tags, opts)
	return f.tagErr
}

func (f *fakeGit) Push(_ context.Context, opts git.PushOptions) error {
	f.calls = append(f.calls, "push "+opts.Branch)
	f.pushes = append(f.pushes, opts)
	return f.pushErr
}

func (f *fakeGit) GetHeadSHA(context.Context) (string, error) {
	return "abc123", nil
}

func releaseStory() story.Story {
	return story.Story{ID: 1, Name: "v1.5.1", Category: story.Release, BranchName: "release/v1.5.1"}
}

func hotfixStory() story.Story {
	return story.Story{ID: 2, Name: "Fix", Category: story.Bug, Labels: []string{"hotfix"}, BranchName: "hotfix/2-fix"}
}

func newEngine(g *fakeGit) *Engine {
	return New(flow.DefaultConventions(), g)
}

func TestMergeRelease_FastForward(t *testing.T) {
	g := &fakeGit{trivial: true}

	out, err := newEngine(g).MergeRelease(context.Background(), releaseStory())
	require.NoError(t, err)

	require.Len(t, g.merges, 1)
	assert.True(t, g.merges[0].FastForwardOnly)
	assert.False(t, g.merges[0].NoFastForward)
	assert.Equal(t, FastForwardOnly, out.Strategy)
	assert.Equal(t, "master", out.Target)
}

func TestMergeRelease_NoFastForward(t *testing.T) {
	g := &fakeGit{trivial: false}

	out, err := newEngine(g).MergeRelease(context.Background(), releaseStory())
	require.NoError(t, err)

	require.Len(t, g.merges, 1)
	assert.True(t, g.merges[0].NoFastForward)
	assert.False(t, g.merges[0].FastForwardOnly)
	assert.Equal(t, NoFastForward, out.Strategy)
}

func TestMergeRelease_Tags(t *testing.T) {
	g := &fakeGit{trivial: true}

	out, err := newEngine(g).MergeRelease(context.Background(), releaseStory())
	require.NoError(t, err)

	require.Len(t, g.tags, 1)
	assert.Equal(t, git.TagOptions{Name: "v1.5.1", Annotated: true, Message: "Release v1.5.1"}, g.tags[0])
	assert.Equal(t, Tagged, out.State)
	assert.Equal(t, "v1.5.1", out.Tag)
	assert.Equal(t, "abc123", out.Commit)

	assert.Equal(t, []string{
		"is-ancestor master release/v1.5.1",
		"checkout master",
		"merge release/v1.5.1",
		"tag v1.5.1",
	}, g.calls)
}

func TestMergeRelease_RejectsOtherStories(t *testing.T) {
	g := &fakeGit{}

	_, err := newEngine(g).MergeRelease(context.Background(), hotfixStory())
	assert.ErrorIs(t, err, ErrNotRelease)
	assert.Empty(t, g.calls)
}

func TestMerge_FailureStopsBeforeTag(t *testing.T) {
	conflict := errors.New("CONFLICT (content): Merge conflict in README.md")
	g := &fakeGit{mergeErr: conflict}

	out, err := newEngine(g).MergeRelease(context.Background(), releaseStory())
	assert.ErrorIs(t, err, ErrMergeFailed)
	assert.ErrorIs(t, err, conflict)
	assert.Equal(t, Failed, out.State)
	assert.Empty(t, g.tags)
}

func TestMerge_NonReleaseEndsMerged(t *testing.T) {
	g := &fakeGit{trivial: true}
	s := story.Story{ID: 3, Category: story.Feature, BranchName: "feature/3-x"}

	out, err := newEngine(g).Merge(context.Background(), s, "development")
	require.NoError(t, err)
	assert.Equal(t, Merged, out.State)
	assert.True(t, out.State.Terminal())
	assert.Empty(t, g.tags)
}

func TestMerge_RequiresBranch(t *testing.T) {
	g := &fakeGit{}

	out, err := newEngine(g).Merge(context.Background(), story.Story{ID: 4}, "development")
	assert.ErrorIs(t, err, ErrNoBranch)
	assert.Equal(t, Failed, out.State)
	assert.Empty(t, g.calls)
}

func TestMerge_AncestryErrorFails(t *testing.T) {
	g := &fakeGit{ancErr: errors.New("bad ref")}

	out, err := newEngine(g).Merge(context.Background(), releaseStory(), "master")
	assert.ErrorIs(t, err, ErrMergeFailed)
	assert.Equal(t, Failed, out.State)
	assert.Empty(t, g.merges)
}

func TestMergeToRoots_HotfixPushesMasterAndDevelopment(t *testing.T) {
	g := &fakeGit{trivial: true}

	outcomes, err := newEngine(g).MergeToRoots(context.Background(), hotfixStory())
	require.NoError(t, err)

	var pushed []string
	for _, p := range g.pushes {
		pushed = append(pushed, p.Branch)
		assert.Equal(t, "origin", p.Remote)
	}
	assert.Contains(t, pushed, "master")
	assert.Contains(t, pushed, "development")
	assert.Equal(t, []string{"validation", "master", "development"}, pushed)

	require.Len(t, outcomes, 3)
	for _, o := range outcomes {
		assert.True(t, o.Pushed)
	}
}

func TestMergeToRoots_Feature(t *testing.T) {
	g := &fakeGit{trivial: false}
	s := story.Story{ID: 5, Category: story.Chore, BranchName: "feature/5-x"}

	outcomes, err := newEngine(g).MergeToRoots(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, "development", outcomes[0].Target)
	require.Len(t, g.pushes, 1)
	assert.Equal(t, "development", g.pushes[0].Branch)
	assert.False(t, g.pushes[0].FollowTags)
}

func TestMergeToRoots_ReleasePushesTags(t *testing.T) {
	g := &fakeGit{trivial: true}

	outcomes, err := newEngine(g).MergeToRoots(context.Background(), releaseStory())
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, Tagged, outcomes[0].State)
	require.Len(t, g.pushes, 1)
	assert.Equal(t, "master", g.pushes[0].Branch)
	assert.True(t, g.pushes[0].FollowTags)
}

func TestMergeToRoots_StopsOnPushFailure(t *testing.T) {
	g := &fakeGit{trivial: true, pushErr: errors.New("rejected")}

	outcomes, err := newEngine(g).MergeToRoots(context.Background(), hotfixStory())
	require.Error(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, Failed, outcomes[0].State)
	assert.Len(t, g.merges, 1)
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "fast-forward", FastForwardOnly.String())
	assert.Equal(t, "no-fast-forward", NoFastForward.String())
	assert.Equal(t, "merge-decided", MergeDecided.String())
	assert.False(t, MergeDecided.Terminal())
}
