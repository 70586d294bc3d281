// Package flow holds the branch lifecycle rules: how stories map to branch
// names, which root branches they integrate into, and which pull requests a
// published branch needs. All rules are methods on Conventions, which carries
// the repository's branch naming settings explicitly.
package flow

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoAssociatedStory is returned when a branch cannot be resolved to a story.
	ErrNoAssociatedStory = errors.New("could not find story associated with branch")

	// ErrDirtyWorkingTree is returned when an operation requires a clean working tree.
	ErrDirtyWorkingTree = errors.New("working tree has uncommitted changes")

	// ErrUnresolvableBranch is returned when a branch name matches no configured prefix.
	ErrUnresolvableBranch = errors.New("branch name does not match any configured prefix")

	// ErrInvalidVersion is returned when a release version cannot be used in a branch name.
	ErrInvalidVersion = errors.New("release version is not a valid branch name")

	// ErrBranchExists is returned when a story branch is started twice.
	ErrBranchExists = errors.New("branch already exists")
)

// Default branch names and prefixes.
const (
	DefaultDevelopmentBranch = "development"
	DefaultMasterBranch      = "master"
	DefaultValidationBranch  = "validation"
	DefaultFeaturePrefix     = "feature/"
	DefaultHotfixPrefix      = "hotfix/"
	DefaultReleasePrefix     = "release/"
	DefaultRemote            = "origin"
)

// Conventions names the root branches and the prefixes of working branches.
type Conventions struct {
	DevelopmentBranch string
	MasterBranch      string
	ValidationBranch  string

	// FeaturePrefix is shared by feature, bug and chore stories.
	FeaturePrefix string
	HotfixPrefix  string
	ReleasePrefix string

	// Remote is the git remote branches are pushed to.
	Remote string
}

// DefaultConventions returns the conventions used when nothing is configured.
func DefaultConventions() Conventions {
	return Conventions{
		DevelopmentBranch: DefaultDevelopmentBranch,
		MasterBranch:      DefaultMasterBranch,
		ValidationBranch:  DefaultValidationBranch,
		FeaturePrefix:     DefaultFeaturePrefix,
		HotfixPrefix:      DefaultHotfixPrefix,
		ReleasePrefix:     DefaultReleasePrefix,
		Remote:            DefaultRemote,
	}
}

// Normalize fills empty fields with defaults and makes every prefix end in "/".
// git-flow style configuration often stores prefixes without the separator.
func (c Conventions) Normalize() Conventions {
	d := DefaultConventions()
	c.DevelopmentBranch = orDefault(c.DevelopmentBranch, d.DevelopmentBranch)
	c.MasterBranch = orDefault(c.MasterBranch, d.MasterBranch)
	c.ValidationBranch = orDefault(c.ValidationBranch, d.ValidationBranch)
	c.FeaturePrefix = withSeparator(orDefault(c.FeaturePrefix, d.FeaturePrefix))
	c.HotfixPrefix = withSeparator(orDefault(c.HotfixPrefix, d.HotfixPrefix))
	c.ReleasePrefix = withSeparator(orDefault(c.ReleasePrefix, d.ReleasePrefix))
	c.Remote = orDefault(c.Remote, d.Remote)
	return c
}

// Validate checks that root branches and prefixes do not collide.
func (c Conventions) Validate() error {
	roots := map[string]string{}
	for role, name := range map[string]string{
		"development": c.DevelopmentBranch,
		"master":      c.MasterBranch,
		"validation":  c.ValidationBranch,
	} {
		if name == "" {
			return fmt.Errorf("%s branch name is empty", role)
		}
		if other, ok := roots[name]; ok {
			return fmt.Errorf("%s and %s branches are both named %q", other, role, name)
		}
		roots[name] = role
	}

	prefixes := []string{c.FeaturePrefix, c.HotfixPrefix, c.ReleasePrefix}
	for i, p := range prefixes {
		if p == "" {
			return fmt.Errorf("branch prefix is empty")
		}
		for _, q := range prefixes[i+1:] {
			if p == q {
				return fmt.Errorf("branch prefix %q is configured more than once", p)
			}
		}
	}
	return nil
}

// IsRootBranch reports whether name is one of the long-lived root branches.
func (c Conventions) IsRootBranch(name string) bool {
	return name == c.DevelopmentBranch || name == c.MasterBranch || name == c.ValidationBranch
}

func orDefault(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func withSeparator(prefix string) string {
	if strings.HasSuffix(prefix, "/") {
		return prefix
	}
	return prefix + "/"
}
