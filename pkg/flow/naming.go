package flow

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/holon-run/storyflow/pkg/story"
)

// BranchKind is the prefix family a branch name belongs to.
type BranchKind int

const (
	KindFeature BranchKind = iota + 1
	KindHotfix
	KindRelease
)

func (k BranchKind) String() string {
	switch k {
	case KindFeature:
		return "feature"
	case KindHotfix:
		return "hotfix"
	case KindRelease:
		return "release"
	default:
		return "unknown"
	}
}

// ParsedBranch is a branch name split back into its story reference.
type ParsedBranch struct {
	Name   string
	Kind   BranchKind
	Prefix string

	// StoryID and Slug are set for feature and hotfix branches.
	StoryID int64
	Slug    string

	// Version is set for release branches.
	Version string
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns free text into a branch-safe segment.
func Slugify(s string) string {
	slug := slugInvalid.ReplaceAllString(strings.ToLower(s), "_")
	return strings.Trim(slug, "_")
}

// BranchPrefix returns the configured prefix for the story. The hotfix label
// takes precedence over the story's category.
func (c Conventions) BranchPrefix(s story.Story) string {
	switch {
	case s.IsHotfix():
		return c.HotfixPrefix
	case s.IsRelease():
		return c.ReleasePrefix
	default:
		return c.FeaturePrefix
	}
}

// BranchName builds the canonical branch name for a story.
//
// Release stories use the version in place of id and slug; a version that
// is not usable in a git ref fails with ErrInvalidVersion. Other stories use
// "<prefix><id>-<slug>", where the slug defaults to the slugified title.
func (c Conventions) BranchName(s story.Story, slugOrVersion string) (string, error) {
	prefix := c.BranchPrefix(s)

	if s.IsRelease() && !s.IsHotfix() {
		version := strings.TrimSpace(slugOrVersion)
		if version == "" {
			version = strings.TrimSpace(s.Name)
		}
		if err := checkVersion(version); err != nil {
			return "", fmt.Errorf("%w: story #%d: %w", ErrInvalidVersion, s.ID, err)
		}
		return prefix + version, nil
	}

	slug := Slugify(slugOrVersion)
	if slug == "" {
		slug = Slugify(s.Name)
	}
	if slug == "" {
		return fmt.Sprintf("%s%d", prefix, s.ID), nil
	}
	return fmt.Sprintf("%s%d-%s", prefix, s.ID, slug), nil
}

// checkVersion applies git's ref name rules to one release version.
func checkVersion(v string) error {
	switch {
	case v == "":
		return errors.New("version is empty")
	case strings.IndexFunc(v, func(r rune) bool { return r <= ' ' || r == 0x7f }) >= 0:
		return fmt.Errorf("%q contains whitespace or control characters", v)
	case strings.ContainsAny(v, "~^:?*[\\"):
		return fmt.Errorf("%q contains a character git does not allow in refs", v)
	case strings.Contains(v, "..") || strings.Contains(v, "@{") || strings.Contains(v, "//"):
		return fmt.Errorf("%q contains a sequence git does not allow in refs", v)
	case strings.HasPrefix(v, ".") || strings.HasPrefix(v, "/") || strings.HasSuffix(v, "/") ||
		strings.HasSuffix(v, ".") || strings.HasSuffix(v, ".lock"):
		return fmt.Errorf("%q has a leading or trailing component git does not allow", v)
	}
	return nil
}

// ParseBranch resolves a branch name back into a story reference.
func (c Conventions) ParseBranch(name string) (ParsedBranch, error) {
	type candidate struct {
		prefix string
		kind   BranchKind
	}
	candidates := []candidate{
		{c.FeaturePrefix, KindFeature},
		{c.HotfixPrefix, KindHotfix},
		{c.ReleasePrefix, KindRelease},
	}
	// Longest prefix first so nested prefixes resolve to the most specific one.
	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i].prefix) > len(candidates[j].prefix)
	})

	for _, cand := range candidates {
		if cand.prefix == "" || !strings.HasPrefix(name, cand.prefix) {
			continue
		}
		rest := strings.TrimPrefix(name, cand.prefix)
		if rest == "" {
			break
		}

		parsed := ParsedBranch{Name: name, Kind: cand.kind, Prefix: cand.prefix}
		if cand.kind == KindRelease {
			parsed.Version = rest
			return parsed, nil
		}

		idPart, slug, _ := strings.Cut(rest, "-")
		id, err := strconv.ParseInt(idPart, 10, 64)
		if err != nil || id <= 0 {
			break
		}
		parsed.StoryID = id
		parsed.Slug = slug
		return parsed, nil
	}

	return ParsedBranch{}, fmt.Errorf("%w: %q", ErrUnresolvableBranch, name)
}

// BranchPrompt is the question asked when a branch name is entered by hand.
func (c Conventions) BranchPrompt(s story.Story) string {
	return fmt.Sprintf("Enter branch name (%s<branch-name>): ", c.BranchPrefix(s))
}
