package github

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/go-github/v68/github"

	"github.com/holon-run/storyflow/pkg/vcr"
)

var testRepo = RepoRef{Owner: "acme", Name: "widgets"}

// setupTestClient creates a test client with VCR recording
func setupTestClient(t *testing.T, fixtureName string) *Client {
	t.Helper()

	rec := vcr.Start(t, fixtureName)
	return NewClient(rec.Token(t, TokenEnv),
		WithTimeout(10*time.Second),
		WithHTTPClient(rec.HTTPClient()),
	)
}

func TestCreatePullRequest(t *testing.T) {
	client := setupTestClient(t, "create_pull_request")

	pr, err := client.CreatePullRequest(context.Background(), testRepo, &NewPullRequest{
		Title: "Add login form",
		Head:  "feature/12345-login_form",
		Base:  "development",
		Body:  "As a user I can log in.",
	})
	if err != nil {
		t.Fatalf("CreatePullRequest() error = %v", err)
	}

	if pr.Number != 42 {
		t.Errorf("Number = %v, want 42", pr.Number)
	}
	if pr.BaseRef != "development" {
		t.Errorf("BaseRef = %q, want development", pr.BaseRef)
	}
	if pr.HeadRef != "feature/12345-login_form" {
		t.Errorf("HeadRef = %q", pr.HeadRef)
	}
	if pr.URL != "https://github.com/acme/widgets/pull/42" {
		t.Errorf("URL = %q", pr.URL)
	}
	if pr.Repository != "acme/widgets" {
		t.Errorf("Repository = %q", pr.Repository)
	}
	if pr.Author != "octocat" {
		t.Errorf("Author = %q", pr.Author)
	}
	if pr.CreatedAt.IsZero() {
		t.Error("CreatedAt should not be zero")
	}
}

func TestCreatePullRequest_AlreadyExists(t *testing.T) {
	client := setupTestClient(t, "create_pull_request_exists")

	_, err := client.CreatePullRequest(context.Background(), testRepo, &NewPullRequest{
		Title: "Add login form",
		Head:  "feature/12345-login_form",
		Base:  "development",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsValidationError(err) {
		t.Errorf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "A pull request already exists") {
		t.Errorf("error should carry GitHub's message, got %v", err)
	}
}

func TestFindPullRequest(t *testing.T) {
	client := setupTestClient(t, "find_pull_request")
	ctx := context.Background()

	pr, err := client.FindPullRequest(ctx, testRepo, "hotfix/7-fix_login", "validation")
	if err != nil {
		t.Fatalf("FindPullRequest() error = %v", err)
	}
	if pr == nil || pr.Number != 51 {
		t.Fatalf("expected pull request 51, got %+v", pr)
	}

	pr, err = client.FindPullRequest(ctx, testRepo, "hotfix/7-fix_login", "master")
	if err != nil {
		t.Fatalf("FindPullRequest() error = %v", err)
	}
	if pr != nil {
		t.Errorf("expected no pull request, got %+v", pr)
	}
}

func TestWrapError(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusNotFound, Request: &http.Request{Method: "GET"}}
	err := wrapError(&github.ErrorResponse{Response: resp, Message: "Not Found"})

	if !IsNotFoundError(err) {
		t.Errorf("expected not found, got %v", err)
	}
	if IsAuthenticationError(err) {
		t.Error("not found is not an authentication error")
	}

	resp = &http.Response{StatusCode: http.StatusUnauthorized, Request: &http.Request{Method: "GET"}}
	err = wrapError(&github.ErrorResponse{Response: resp, Message: "Bad credentials"})
	if !IsAuthenticationError(err) {
		t.Errorf("expected authentication error, got %v", err)
	}
	if got := err.Error(); got != "GitHub API error (status 401): Bad credentials" {
		t.Errorf("unexpected message %q", got)
	}

	plain := errors.New("connection refused")
	if wrapError(plain) != plain {
		t.Error("transport errors should pass through")
	}
	if IsNotFoundError(plain) || IsValidationError(nil) {
		t.Error("plain errors have no status")
	}
}

func TestParseRemoteURL(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{url: "git@github.com:acme/widgets.git", want: "acme/widgets"},
		{url: "git@github.com:acme/widgets", want: "acme/widgets"},
		{url: "https://github.com/acme/widgets.git", want: "acme/widgets"},
		{url: "https://user@github.com/acme/widgets/", want: "acme/widgets"},
		{url: "ssh://git@github.com/acme/widgets.git", want: "acme/widgets"},
		{url: "ssh://git@ghe.example.com:2222/acme/widgets.git", want: "acme/widgets"},
		{url: "", wantErr: true},
		{url: "/srv/git/widgets.git", wantErr: true},
		{url: "https://github.com/acme", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := ParseRemoteURL(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRemoteURL() error = %v", err)
			}
			if got.FullName() != tt.want {
				t.Errorf("got %q, want %q", got.FullName(), tt.want)
			}
		})
	}
}

func TestParseRepo(t *testing.T) {
	ref, err := ParseRepo("acme/widgets")
	if err != nil {
		t.Fatalf("ParseRepo() error = %v", err)
	}
	if ref.Owner != "acme" || ref.Name != "widgets" {
		t.Errorf("unexpected ref %+v", ref)
	}

	for _, bad := range []string{"acme", "/widgets", "acme/", "a/b/c"} {
		if _, err := ParseRepo(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestNewClientFromEnv(t *testing.T) {
	t.Setenv(TokenEnv, "")
	if _, err := NewClientFromEnv(); err == nil {
		t.Error("expected error without token")
	}

	t.Setenv(TokenEnv, "abc")
	c, err := NewClientFromEnv(WithBaseURL("https://ghe.example.com/api/v3"))
	if err != nil {
		t.Fatalf("NewClientFromEnv() error = %v", err)
	}
	if c.GetToken() != "abc" {
		t.Errorf("unexpected token %q", c.GetToken())
	}
	if got := c.GitHubClient().BaseURL.String(); got != "https://ghe.example.com/api/v3/" {
		t.Errorf("unexpected base url %q", got)
	}
}
