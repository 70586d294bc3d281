package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/holon-run/storyflow/pkg/flow"
	"github.com/holon-run/storyflow/pkg/git"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	configDir := filepath.Join(dir, ConfigDir)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(configDir, ConfigFile)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_NoConfigFile(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Remote != "" {
		t.Errorf("Remote should be empty, got %q", cfg.Remote)
	}
	if cfg.LogLevel != "" {
		t.Errorf("LogLevel should be empty, got %q", cfg.LogLevel)
	}
	if cfg.Path() != "" {
		t.Errorf("Path() should be empty, got %q", cfg.Path())
	}
}

func TestLoad_ValidConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeConfig(t, tmpDir, `
branches:
  development: develop
  master: main
  validation: staging
prefixes:
  feature: feat
  hotfix: fix/
remote: upstream
tracker:
  project_id: "1234"
github:
  repository: acme/shop
log_level: debug
`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Branches.Development != "develop" {
		t.Errorf("Branches.Development = %q, want %q", cfg.Branches.Development, "develop")
	}
	if cfg.Branches.Master != "main" {
		t.Errorf("Branches.Master = %q, want %q", cfg.Branches.Master, "main")
	}
	if cfg.Prefixes.Feature != "feat" {
		t.Errorf("Prefixes.Feature = %q, want %q", cfg.Prefixes.Feature, "feat")
	}
	if cfg.Remote != "upstream" {
		t.Errorf("Remote = %q, want %q", cfg.Remote, "upstream")
	}
	if cfg.Tracker.ProjectID != "1234" {
		t.Errorf("Tracker.ProjectID = %q, want %q", cfg.Tracker.ProjectID, "1234")
	}
	if cfg.GitHub.Repository != "acme/shop" {
		t.Errorf("GitHub.Repository = %q, want %q", cfg.GitHub.Repository, "acme/shop")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.Path() != path {
		t.Errorf("Path() = %q, want %q", cfg.Path(), path)
	}
}

func TestLoad_SearchParentDirectories(t *testing.T) {
	// tmpDir/
	//   .storyflow/config.yaml
	//   subdir/nested/
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "remote: upstream\n")

	nested := filepath.Join(tmpDir, "subdir", "nested")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(nested)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Remote != "upstream" {
		t.Errorf("Remote = %q, want %q", cfg.Remote, "upstream")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "branches: [unterminated\n")

	if _, err := Load(tmpDir); err == nil {
		t.Fatal("Load() should fail on invalid YAML")
	}
}

func TestSave_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := &ProjectConfig{Remote: "upstream"}
	cfg.Tracker.ProjectID = "42"

	path, err := cfg.Save(tmpDir)
	if err != nil {
		t.Fatalf("Save() returned error: %v", err)
	}
	if path != filepath.Join(tmpDir, ConfigPath) {
		t.Errorf("Save() path = %q", path)
	}

	loaded, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if loaded.Remote != "upstream" || loaded.Tracker.ProjectID != "42" {
		t.Errorf("loaded config = %+v", loaded)
	}
}

func TestResolveString(t *testing.T) {
	cfg := &ProjectConfig{}

	tests := []struct {
		name       string
		cli        string
		config     string
		def        string
		wantValue  string
		wantSource string
	}{
		{"cli wins", "a", "b", "c", "a", SourceCLI},
		{"config over default", "", "b", "c", "b", SourceConfig},
		{"default", "", "", "c", "c", SourceDefault},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, source := cfg.ResolveString(tt.cli, tt.config, tt.def)
			if value != tt.wantValue || source != tt.wantSource {
				t.Errorf("ResolveString() = (%q, %q), want (%q, %q)", value, source, tt.wantValue, tt.wantSource)
			}
		})
	}
}

func TestResolveLogLevel(t *testing.T) {
	cfg := &ProjectConfig{LogLevel: "debug"}

	if level, source := cfg.ResolveLogLevel("", "progress"); level != "debug" || source != SourceConfig {
		t.Errorf("ResolveLogLevel() = (%q, %q)", level, source)
	}
	if level, source := cfg.ResolveLogLevel("info", "progress"); level != "info" || source != SourceCLI {
		t.Errorf("ResolveLogLevel() = (%q, %q)", level, source)
	}
}

// mapGit is an in-memory git config.
type mapGit map[string]string

func (m mapGit) ConfigGet(_ context.Context, key string) (string, error) {
	if v, ok := m[key]; ok {
		return v, nil
	}
	return "", fmt.Errorf("git config %s: %w", key, git.ErrConfigNotSet)
}

type failingGit struct{}

func (failingGit) ConfigGet(context.Context, string) (string, error) {
	return "", errors.New("boom")
}

func TestResolver_Precedence(t *testing.T) {
	ctx := context.Background()
	file := &ProjectConfig{Remote: "from-file"}
	r := NewResolver(file, mapGit{KeyRemote: "from-git"})

	value, source, err := r.Resolve(ctx, "from-cli", KeyRemote, file.Remote, "origin")
	if err != nil || value != "from-cli" || source != SourceCLI {
		t.Errorf("Resolve(cli) = (%q, %q, %v)", value, source, err)
	}

	value, source, err = r.Resolve(ctx, "", KeyRemote, file.Remote, "origin")
	if err != nil || value != "from-git" || source != SourceGit {
		t.Errorf("Resolve(git) = (%q, %q, %v)", value, source, err)
	}

	r = NewResolver(file, mapGit{})
	value, source, err = r.Resolve(ctx, "", KeyRemote, file.Remote, "origin")
	if err != nil || value != "from-file" || source != SourceConfig {
		t.Errorf("Resolve(file) = (%q, %q, %v)", value, source, err)
	}

	r = NewResolver(nil, nil)
	value, source, err = r.Resolve(ctx, "", KeyRemote, "", "origin")
	if err != nil || value != "origin" || source != SourceDefault {
		t.Errorf("Resolve(default) = (%q, %q, %v)", value, source, err)
	}
}

func TestResolver_GitErrorPropagates(t *testing.T) {
	r := NewResolver(nil, failingGit{})
	if _, _, err := r.Resolve(context.Background(), "", KeyRemote, "", "origin"); err == nil {
		t.Fatal("Resolve() should fail when git config cannot be read")
	}
}

func TestResolver_ConventionsDefaults(t *testing.T) {
	c, err := NewResolver(nil, mapGit{}).Conventions(context.Background())
	if err != nil {
		t.Fatalf("Conventions() returned error: %v", err)
	}
	if c != flow.DefaultConventions() {
		t.Errorf("Conventions() = %+v, want defaults", c)
	}
}

func TestResolver_ConventionsFromGitAndFile(t *testing.T) {
	file := &ProjectConfig{}
	file.Branches.Development = "develop"
	file.Prefixes.Release = "rel"

	g := mapGit{
		KeyMasterBranch:  "main",
		KeyFeaturePrefix: "feat",
		// git wins over the file
		KeyDevelopmentBranch: "dev",
	}

	c, err := NewResolver(file, g).Conventions(context.Background())
	if err != nil {
		t.Fatalf("Conventions() returned error: %v", err)
	}
	if c.DevelopmentBranch != "dev" {
		t.Errorf("DevelopmentBranch = %q, want %q", c.DevelopmentBranch, "dev")
	}
	if c.MasterBranch != "main" {
		t.Errorf("MasterBranch = %q, want %q", c.MasterBranch, "main")
	}
	if c.FeaturePrefix != "feat/" {
		t.Errorf("FeaturePrefix = %q, want %q", c.FeaturePrefix, "feat/")
	}
	if c.ReleasePrefix != "rel/" {
		t.Errorf("ReleasePrefix = %q, want %q", c.ReleasePrefix, "rel/")
	}
	if c.HotfixPrefix != flow.DefaultHotfixPrefix {
		t.Errorf("HotfixPrefix = %q, want %q", c.HotfixPrefix, flow.DefaultHotfixPrefix)
	}
}

func TestResolver_ConventionsRejectsCollisions(t *testing.T) {
	g := mapGit{KeyMasterBranch: "development"}
	if _, err := NewResolver(nil, g).Conventions(context.Background()); err == nil {
		t.Fatal("Conventions() should reject colliding root branches")
	}
}

func TestResolver_TrackerToken(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(nil, mapGit{KeyTrackerToken: "git-token"})

	t.Setenv(EnvTrackerToken, "")
	token, source, err := r.TrackerToken(ctx, "")
	if err != nil || token != "git-token" || source != SourceGit {
		t.Errorf("TrackerToken(git) = (%q, %q, %v)", token, source, err)
	}

	t.Setenv(EnvTrackerToken, "env-token")
	token, source, err = r.TrackerToken(ctx, "")
	if err != nil || token != "env-token" || source != SourceEnv {
		t.Errorf("TrackerToken(env) = (%q, %q, %v)", token, source, err)
	}

	token, source, err = r.TrackerToken(ctx, "cli-token")
	if err != nil || token != "cli-token" || source != SourceCLI {
		t.Errorf("TrackerToken(cli) = (%q, %q, %v)", token, source, err)
	}
}

func TestResolver_TrackerTokenMissing(t *testing.T) {
	t.Setenv(EnvTrackerToken, "")
	if _, _, err := NewResolver(nil, mapGit{}).TrackerToken(context.Background(), ""); err == nil {
		t.Fatal("TrackerToken() should fail when no token is configured")
	}
}

func TestResolver_TrackerProjectID(t *testing.T) {
	file := &ProjectConfig{}
	file.Tracker.ProjectID = "77"

	id, source, err := NewResolver(file, mapGit{}).TrackerProjectID(context.Background(), "")
	if err != nil || id != "77" || source != SourceConfig {
		t.Errorf("TrackerProjectID() = (%q, %q, %v)", id, source, err)
	}

	if _, _, err := NewResolver(nil, mapGit{}).TrackerProjectID(context.Background(), ""); err == nil {
		t.Fatal("TrackerProjectID() should fail when unset")
	}
}

func TestResolver_TrackerBaseURL(t *testing.T) {
	ctx := context.Background()
	file := &ProjectConfig{}
	file.Tracker.BaseURL = "https://tracker.example.com/v5"

	url, source, err := NewResolver(file, mapGit{}).TrackerBaseURL(ctx)
	if err != nil || url != "https://tracker.example.com/v5" || source != SourceConfig {
		t.Errorf("TrackerBaseURL(file) = (%q, %q, %v)", url, source, err)
	}

	g := mapGit{KeyTrackerBaseURL: "http://127.0.0.1:9999"}
	url, source, err = NewResolver(file, g).TrackerBaseURL(ctx)
	if err != nil || url != "http://127.0.0.1:9999" || source != SourceGit {
		t.Errorf("TrackerBaseURL(git) = (%q, %q, %v)", url, source, err)
	}

	url, _, err = NewResolver(nil, mapGit{}).TrackerBaseURL(ctx)
	if err != nil || url != "" {
		t.Errorf("TrackerBaseURL(unset) = (%q, %v), want empty", url, err)
	}
}

func TestResolver_GitHubToken(t *testing.T) {
	r := NewResolver(nil, nil)

	t.Setenv(EnvGitHubToken, "")
	if _, err := r.GitHubToken(); err == nil {
		t.Error("GitHubToken() should fail when GITHUB_TOKEN is unset")
	}

	t.Setenv(EnvGitHubToken, "gh-token")
	token, err := r.GitHubToken()
	if err != nil || token != "gh-token" {
		t.Errorf("GitHubToken() = (%q, %v)", token, err)
	}
}
