// Package config provides project-level configuration for storyflow.
// Settings come from .storyflow/config.yaml and from the repository's git
// configuration, with precedence: CLI flags > git config > project file > defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// ConfigDir is the directory name for storyflow configuration
	ConfigDir = ".storyflow"
	// ConfigFile is the name of the configuration file
	ConfigFile = "config.yaml"
	// ConfigPath is the full path to the config file relative to project root
	ConfigPath = ConfigDir + "/" + ConfigFile
)

// Value sources reported by the Resolve functions.
const (
	SourceCLI     = "cli"
	SourceEnv     = "env"
	SourceGit     = "git"
	SourceConfig  = "config"
	SourceDefault = "default"
)

// ProjectConfig represents the project-level configuration file.
type ProjectConfig struct {
	// Branches names the root branches.
	Branches BranchesConfig `yaml:"branches,omitempty"`

	// Prefixes are the working branch prefixes.
	Prefixes PrefixesConfig `yaml:"prefixes,omitempty"`

	// Remote is the git remote branches are pushed to.
	Remote string `yaml:"remote,omitempty"`

	// Tracker configures the issue tracker.
	Tracker TrackerConfig `yaml:"tracker,omitempty"`

	// GitHub configures pull request creation.
	GitHub GitHubConfig `yaml:"github,omitempty"`

	// LogLevel is the default log level (debug, info, progress, minimal)
	LogLevel string `yaml:"log_level,omitempty"`

	// path is where the file was loaded from; empty when none was found.
	path string
}

// BranchesConfig names the root branches.
type BranchesConfig struct {
	Development string `yaml:"development,omitempty"`
	Master      string `yaml:"master,omitempty"`
	Validation  string `yaml:"validation,omitempty"`
}

// PrefixesConfig holds the working branch prefixes.
type PrefixesConfig struct {
	Feature string `yaml:"feature,omitempty"`
	Hotfix  string `yaml:"hotfix,omitempty"`
	Release string `yaml:"release,omitempty"`
}

// TrackerConfig configures the Pivotal Tracker project. The API token is
// never read from the project file, which is usually committed.
type TrackerConfig struct {
	ProjectID string `yaml:"project_id,omitempty"`

	// BaseURL overrides the API root, e.g. for a proxy.
	BaseURL string `yaml:"base_url,omitempty"`
}

// GitHubConfig configures the code host.
type GitHubConfig struct {
	// Repository is "owner/name"; derived from the remote URL when empty.
	Repository string `yaml:"repository,omitempty"`

	// BaseURL is the API root for GitHub Enterprise.
	BaseURL string `yaml:"base_url,omitempty"`
}

// Load loads the project configuration from the given directory.
// It searches for .storyflow/config.yaml in the directory and its parents.
//
// If no config file is found, it returns a zero config and nil error.
// If a config file is found but cannot be parsed, it returns an error.
func Load(dir string) (*ProjectConfig, error) {
	configPath, err := findConfigPath(dir)
	if err != nil {
		return nil, err
	}
	if configPath == "" {
		return &ProjectConfig{}, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}
	cfg.path = configPath

	return &cfg, nil
}

// LoadFromCurrentDir loads the project configuration from the current working directory.
func LoadFromCurrentDir() (*ProjectConfig, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	return Load(dir)
}

// Path returns the file the configuration was loaded from, or "".
func (c *ProjectConfig) Path() string {
	return c.path
}

// findConfigPath searches for .storyflow/config.yaml in dir and its parent directories.
// It returns the full path to the config file, or empty string if not found.
func findConfigPath(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	for {
		configPath := filepath.Join(absDir, ConfigPath)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		parentDir := filepath.Dir(absDir)
		if parentDir == absDir {
			return "", nil
		}
		absDir = parentDir
	}
}

// ResolveString returns the effective value for a string configuration field.
// Precedence: cliValue > configValue > defaultValue.
// Returns the effective value and its source ("cli", "config", or "default").
func (c *ProjectConfig) ResolveString(cliValue, configValue, defaultValue string) (string, string) {
	if cliValue != "" {
		return cliValue, SourceCLI
	}
	if configValue != "" {
		return configValue, SourceConfig
	}
	return defaultValue, SourceDefault
}

// ResolveLogLevel returns the effective log level and its source.
func (c *ProjectConfig) ResolveLogLevel(cliValue, defaultValue string) (string, string) {
	return c.ResolveString(cliValue, c.LogLevel, defaultValue)
}

// Save writes the configuration to dir/.storyflow/config.yaml.
func (c *ProjectConfig) Save(dir string) (string, error) {
	path := filepath.Join(dir, ConfigPath)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	c.path = path
	return path, nil
}
