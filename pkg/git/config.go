package git

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrConfigNotSet is returned when a configuration key has no value.
var ErrConfigNotSet = errors.New("git config key not set")

// ConfigScope selects which git configuration file is read or written.
type ConfigScope string

const (
	// ScopeAny reads the merged configuration and writes the repository file.
	ScopeAny    ConfigScope = ""
	ScopeLocal  ConfigScope = "local"
	ScopeGlobal ConfigScope = "global"
	ScopeSystem ConfigScope = "system"
)

func (s ConfigScope) flag() []string {
	if s == ScopeAny {
		return nil
	}
	return []string{"--" + string(s)}
}

// ConfigGet gets a git configuration value from the merged configuration.
func (c *Client) ConfigGet(ctx context.Context, key string) (string, error) {
	return c.ConfigGetWithScope(ctx, key, ScopeAny)
}

// ConfigGetWithScope gets a git configuration value from one scope.
func (c *Client) ConfigGetWithScope(ctx context.Context, key string, scope ConfigScope) (string, error) {
	args := append([]string{"config"}, scope.flag()...)
	args = append(args, "--get", key)

	output, err := c.execCommand(ctx, args...)
	if err != nil {
		// git config exits 1 for a missing key.
		if exitCode(err) == 1 {
			return "", fmt.Errorf("%w: %s", ErrConfigNotSet, key)
		}
		return "", fmt.Errorf("git config --get %s failed: %w", key, err)
	}
	return strings.TrimSpace(string(output)), nil
}

// SetConfig sets a git configuration value in the repository.
func (c *Client) SetConfig(ctx context.Context, key, value string) error {
	return c.SetConfigWithScope(ctx, key, value, ScopeAny)
}

// SetConfigWithScope sets a git configuration value in one scope.
func (c *Client) SetConfigWithScope(ctx context.Context, key, value string, scope ConfigScope) error {
	args := append([]string{"config"}, scope.flag()...)
	args = append(args, key, value)
	_, err := c.execCommand(ctx, args...)
	return err
}

// BranchConfigKey returns the "branch.<name>.<key>" configuration key.
func BranchConfigKey(branch, key string) string {
	return "branch." + branch + "." + key
}

// BranchConfigGet reads a per-branch configuration value. A missing key
// yields an empty value and no error.
func (c *Client) BranchConfigGet(ctx context.Context, branch, key string) (string, error) {
	value, err := c.ConfigGetWithScope(ctx, BranchConfigKey(branch, key), ScopeLocal)
	if errors.Is(err, ErrConfigNotSet) {
		return "", nil
	}
	return value, err
}

// BranchConfigSet writes a per-branch configuration value to the repository.
func (c *Client) BranchConfigSet(ctx context.Context, branch, key, value string) error {
	return c.SetConfigWithScope(ctx, BranchConfigKey(branch, key), value, ScopeLocal)
}
