// Package story models issue-tracker work items and classifies them into
// branch categories. A story's category and its hotfix label are independent:
// any category may carry the hotfix label.
package story

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrInvalidCategory is returned when a story type is not one of
	// feature, bug, chore or release.
	ErrInvalidCategory = errors.New("invalid story category")

	// ErrNotFound is returned by story sources when a story id does not exist.
	ErrNotFound = errors.New("story not found")

	// ErrBranchAssigned is returned when a story already bound to one branch
	// is bound to another.
	ErrBranchAssigned = errors.New("story already has a branch")
)

// HotfixLabel marks a story as a hotfix regardless of its category.
const HotfixLabel = "hotfix"

// Category is the branch category of a story.
type Category int

const (
	Feature Category = iota + 1
	Bug
	Chore
	Release
)

var categoryNames = map[Category]string{
	Feature: "feature",
	Bug:     "bug",
	Chore:   "chore",
	Release: "release",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// ParseCategory converts a tracker story type into a Category.
func ParseCategory(s string) (Category, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for c, n := range categoryNames {
		if n == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// Story is one tracker work item, optionally bound to a branch.
type Story struct {
	ID          int64
	Name        string
	Description string
	Category    Category
	Labels      []string

	// BranchName is empty until a branch exists for the story.
	BranchName string

	// URL and State are informational and come from the tracker.
	URL   string
	State string
}

// New builds a Story from raw tracker fields.
func New(id int64, name, description, category string, labels []string) (Story, error) {
	c, err := ParseCategory(category)
	if err != nil {
		return Story{}, err
	}
	return Story{
		ID:          id,
		Name:        name,
		Description: description,
		Category:    c,
		Labels:      labels,
	}, nil
}

// IsHotfix reports whether the story carries the exact "hotfix" label.
func (s Story) IsHotfix() bool {
	return slices.Contains(s.Labels, HotfixLabel)
}

// IsRelease reports whether the story is a release story.
func (s Story) IsRelease() bool {
	return s.Category == Release
}

// HasBranch reports whether a branch name is bound to the story.
func (s Story) HasBranch() bool {
	return s.BranchName != ""
}

// WithBranch returns a copy of the story bound to the given branch.
// Rebinding to the same name is a no-op; rebinding to a different one fails.
func (s Story) WithBranch(name string) (Story, error) {
	if s.BranchName != "" && s.BranchName != name {
		return s, fmt.Errorf("%w: story #%d is bound to %q", ErrBranchAssigned, s.ID, s.BranchName)
	}
	s.BranchName = name
	return s, nil
}

// ParseLabels splits a comma-delimited label string into trimmed tokens.
func ParseLabels(s string) []string {
	var labels []string
	for _, token := range strings.Split(s, ",") {
		token = strings.TrimSpace(token)
		if token != "" {
			labels = append(labels, token)
		}
	}
	return labels
}

// Query filters stories in the tracker.
type Query struct {
	// States restricts the current state (e.g. "unstarted").
	States []string

	// Types restricts the story type (e.g. "feature", "bug").
	Types []string

	// Name matches the story name exactly when set.
	Name string

	// Limit caps the number of results; zero means the tracker default.
	Limit int
}
