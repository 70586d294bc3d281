package flow

import (
	"fmt"
	"strings"

	"github.com/holon-run/storyflow/pkg/story"
)

// PullRequestParams describes one pull request to open.
type PullRequestParams struct {
	Base  string `json:"base"`
	Head  string `json:"head"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// ParamsForPullRequest computes pull request parameters for a story branch.
//
// The default base is the development branch, including for hotfixes, whose
// merge target is the validation branch. forHotfix selects the validation
// branch instead. Release stories target the master branch.
func (c Conventions) ParamsForPullRequest(s story.Story, head string, forHotfix bool) PullRequestParams {
	if head == "" {
		head = s.BranchName
	}

	base := c.DevelopmentBranchName(s)
	switch {
	case forHotfix:
		base = c.ValidationBranch
	case s.IsRelease() && !s.IsHotfix():
		base = c.MasterBranch
	}

	return PullRequestParams{
		Base:  base,
		Head:  head,
		Title: pullRequestTitle(s),
		Body:  s.Description,
	}
}

// PullRequestParamSets returns every pull request a published story needs:
// the default one, plus the validation one for hotfixes.
func (c Conventions) PullRequestParamSets(s story.Story, head string) []PullRequestParams {
	sets := []PullRequestParams{c.ParamsForPullRequest(s, head, false)}
	if s.IsHotfix() {
		sets = append(sets, c.ParamsForPullRequest(s, head, true))
	}
	return sets
}

func pullRequestTitle(s story.Story) string {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return fmt.Sprintf("Story #%d", s.ID)
	}
	return name
}
