package flow

import "github.com/holon-run/storyflow/pkg/story"

// MasterBranchName returns the master-equivalent branch a story merges into:
// the validation branch for hotfixes, the master branch otherwise.
func (c Conventions) MasterBranchName(s story.Story) string {
	if s.IsHotfix() {
		return c.ValidationBranch
	}
	return c.MasterBranch
}

// DevelopmentBranchName returns the development branch.
func (c Conventions) DevelopmentBranchName(story.Story) string {
	return c.DevelopmentBranch
}

// PropagationTargets lists the root branches a completed hotfix must also
// reach, in order. Other stories have none.
func (c Conventions) PropagationTargets(s story.Story) []string {
	if !s.IsHotfix() {
		return nil
	}
	return []string{c.MasterBranch, c.DevelopmentBranch}
}

// MergeTarget returns the root branch a finished story is merged into.
// Releases and hotfixes go to the master-equivalent branch; everything else
// integrates on the development branch.
func (c Conventions) MergeTarget(s story.Story) string {
	if s.IsRelease() || s.IsHotfix() {
		return c.MasterBranchName(s)
	}
	return c.DevelopmentBranchName(s)
}

// FinishTargets lists every root branch a finished story is merged into, in
// order: the merge target first, then any propagation target not yet covered.
func (c Conventions) FinishTargets(s story.Story) []string {
	targets := []string{c.MergeTarget(s)}
	for _, t := range c.PropagationTargets(s) {
		if t != targets[0] {
			targets = append(targets, t)
		}
	}
	return targets
}

// StartPoint returns the branch a new story branch is created from.
func (c Conventions) StartPoint(s story.Story) string {
	if s.IsHotfix() {
		return c.MasterBranchName(s)
	}
	return c.DevelopmentBranchName(s)
}
