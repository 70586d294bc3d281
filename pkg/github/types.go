package github

import "time"

// PRInfo contains basic pull request information
type PRInfo struct {
	Number     int       `json:"number"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	State      string    `json:"state"`
	URL        string    `json:"url"`
	BaseRef    string    `json:"base_ref"`
	HeadRef    string    `json:"head_ref"`
	HeadSHA    string    `json:"head_sha"`
	Author     string    `json:"author"`
	CreatedAt  time.Time `json:"created_at"`
	Repository string    `json:"repository"`
}

// NewPullRequest contains information for creating a new pull request
type NewPullRequest struct {
	Title               string `json:"title"`
	Head                string `json:"head"`
	Base                string `json:"base"`
	Body                string `json:"body"`
	MaintainerCanModify bool   `json:"maintainer_can_modify"`
}

// PullRequestFilter narrows ListPullRequests.
type PullRequestFilter struct {
	// State is "open", "closed" or "all"; empty means open.
	State string

	// Head is "owner:branch".
	Head string

	// Base is the base branch name.
	Base string
}
