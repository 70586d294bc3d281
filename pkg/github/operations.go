package github

import (
	"context"
	"fmt"

	"github.com/google/go-github/v68/github"
)

// convertFromGitHubPR converts a github.PullRequest to our PRInfo type
func convertFromGitHubPR(pr *github.PullRequest) *PRInfo {
	info := &PRInfo{
		Number:    pr.GetNumber(),
		Title:     pr.GetTitle(),
		Body:      pr.GetBody(),
		State:     pr.GetState(),
		URL:       pr.GetHTMLURL(),
		CreatedAt: pr.GetCreatedAt().Time,
	}

	if base := pr.GetBase(); base != nil {
		info.BaseRef = base.GetRef()
		if repo := base.GetRepo(); repo != nil {
			info.Repository = repo.GetFullName()
		}
	}
	if head := pr.GetHead(); head != nil {
		info.HeadRef = head.GetRef()
		info.HeadSHA = head.GetSHA()
	}
	if user := pr.GetUser(); user != nil {
		info.Author = user.GetLogin()
	}

	return info
}

// CreatePullRequest creates a new pull request
func (c *Client) CreatePullRequest(ctx context.Context, repo RepoRef, newPR *NewPullRequest) (*PRInfo, error) {
	pr, _, err := c.GitHubClient().PullRequests.Create(ctx, repo.Owner, repo.Name, &github.NewPullRequest{
		Title:               github.String(newPR.Title),
		Head:                github.String(newPR.Head),
		Base:                github.String(newPR.Base),
		Body:                github.String(newPR.Body),
		MaintainerCanModify: github.Bool(newPR.MaintainerCanModify),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pull request %s -> %s: %w", newPR.Head, newPR.Base, wrapError(err))
	}
	return convertFromGitHubPR(pr), nil
}

// ListPullRequests lists pull requests matching filter across all pages.
func (c *Client) ListPullRequests(ctx context.Context, repo RepoRef, filter PullRequestFilter) ([]*PRInfo, error) {
	opts := &github.PullRequestListOptions{
		State: filter.State,
		Head:  filter.Head,
		Base:  filter.Base,
		ListOptions: github.ListOptions{
			PerPage: 100,
		},
	}

	var all []*PRInfo
	for {
		prs, resp, err := c.GitHubClient().PullRequests.List(ctx, repo.Owner, repo.Name, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list pull requests: %w", wrapError(err))
		}
		for _, pr := range prs {
			all = append(all, convertFromGitHubPR(pr))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// FindPullRequest returns the open pull request from head into base, or nil.
func (c *Client) FindPullRequest(ctx context.Context, repo RepoRef, head, base string) (*PRInfo, error) {
	prs, err := c.ListPullRequests(ctx, repo, PullRequestFilter{
		State: "open",
		Head:  repo.Owner + ":" + head,
		Base:  base,
	})
	if err != nil {
		return nil, err
	}
	if len(prs) == 0 {
		return nil, nil
	}
	return prs[0], nil
}
