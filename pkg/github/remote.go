package github

import (
	"fmt"
	"net/url"
	"strings"
)

// RepoRef identifies a GitHub repository.
type RepoRef struct {
	Owner string
	Name  string
}

// FullName returns "owner/name".
func (r RepoRef) FullName() string {
	return r.Owner + "/" + r.Name
}

// ParseRepo parses "owner/name".
func ParseRepo(s string) (RepoRef, error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return RepoRef{}, fmt.Errorf("invalid repository %q, expected owner/name", s)
	}
	return RepoRef{Owner: owner, Name: strings.TrimSuffix(name, ".git")}, nil
}

// ParseRemoteURL extracts the repository from a git remote URL. It accepts
// scp-like ("git@github.com:owner/name.git"), ssh:// and http(s):// forms.
func ParseRemoteURL(remote string) (RepoRef, error) {
	remote = strings.TrimSpace(remote)
	if remote == "" {
		return RepoRef{}, fmt.Errorf("empty remote url")
	}

	var path string
	if strings.Contains(remote, "://") {
		u, err := url.Parse(remote)
		if err != nil {
			return RepoRef{}, fmt.Errorf("invalid remote url %q: %w", remote, err)
		}
		path = u.Path
	} else {
		// scp-like syntax: [user@]host:path
		_, p, ok := strings.Cut(remote, ":")
		if !ok {
			return RepoRef{}, fmt.Errorf("unsupported remote url %q", remote)
		}
		path = p
	}

	ref, err := ParseRepo(strings.Trim(path, "/"))
	if err != nil {
		return RepoRef{}, fmt.Errorf("remote url %q: %w", remote, err)
	}
	return ref, nil
}
