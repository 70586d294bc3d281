package flow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	sflog "github.com/holon-run/storyflow/pkg/log"
	"github.com/holon-run/storyflow/pkg/story"
)

// DefaultSelectLimit is the number of candidate stories offered when none is given.
const DefaultSelectLimit = 5

// Candidate states for stories that can be started.
var selectableStates = []string{"rejected", "unstarted", "unscheduled"}

// ErrNoCandidateStories is returned when a filter matches no startable story.
var ErrNoCandidateStories = errors.New("no stories match the filter")

// Selector picks the story to start from the tracker.
type Selector struct {
	Finder  StoryFinder
	Chooser Chooser
}

// Select resolves filter into one story.
//
// A numeric filter is a story id and is fetched directly. Otherwise filter is
// a story type (empty means feature or bug) and the startable stories of that
// type are offered through the Chooser, unless only one matches.
func (s *Selector) Select(ctx context.Context, filter string, limit int) (story.Story, error) {
	filter = strings.TrimSpace(filter)

	if id, err := strconv.ParseInt(filter, 10, 64); err == nil {
		sflog.Debug("fetching story by id", "id", id)
		return s.Finder.GetStory(ctx, id)
	}

	types := []string{story.Feature.String(), story.Bug.String()}
	if filter != "" {
		c, err := story.ParseCategory(filter)
		if err != nil {
			return story.Story{}, err
		}
		types = []string{c.String()}
	}
	if limit <= 0 {
		limit = DefaultSelectLimit
	}

	candidates, err := s.Finder.QueryStories(ctx, story.Query{
		States: selectableStates,
		Types:  types,
		Limit:  limit,
	})
	if err != nil {
		return story.Story{}, fmt.Errorf("failed to query stories: %w", err)
	}

	switch len(candidates) {
	case 0:
		return story.Story{}, fmt.Errorf("%w: %s", ErrNoCandidateStories, strings.Join(types, ","))
	case 1:
		return candidates[0], nil
	}

	if s.Chooser == nil {
		return story.Story{}, fmt.Errorf("%d stories match the filter and no chooser is available", len(candidates))
	}

	options := make([]string, len(candidates))
	for i, c := range candidates {
		if filter == "" {
			options[i] = fmt.Sprintf("%-7s %s", strings.ToUpper(c.Category.String()), c.Name)
		} else {
			options[i] = c.Name
		}
	}

	idx, err := s.Chooser.Choose(ctx, "Choose story", options)
	if err != nil {
		return story.Story{}, err
	}
	if idx < 0 || idx >= len(candidates) {
		return story.Story{}, fmt.Errorf("invalid choice %d", idx)
	}
	return candidates[idx], nil
}
