package tracker

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/holon-run/storyflow/pkg/story"
)

// apiStory is the story resource of the tracker API.
type apiStory struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	StoryType    string     `json:"story_type"`
	CurrentState string     `json:"current_state"`
	URL          string     `json:"url"`
	Labels       []apiLabel `json:"labels"`
}

type apiLabel struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type apiComment struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

func (r apiStory) toStory() (story.Story, error) {
	labels := make([]string, 0, len(r.Labels))
	for _, l := range r.Labels {
		labels = append(labels, strings.TrimSpace(l.Name))
	}

	s, err := story.New(r.ID, r.Name, r.Description, r.StoryType, labels)
	if err != nil {
		return story.Story{}, fmt.Errorf("story %d: %w", r.ID, err)
	}
	s.URL = r.URL
	s.State = r.CurrentState
	return s, nil
}

// FilterString renders q in the tracker's search syntax, e.g.
// `state:rejected,unstarted type:feature,bug name:"v1.5.1"`.
func FilterString(q story.Query) string {
	var parts []string
	if len(q.States) > 0 {
		parts = append(parts, "state:"+strings.Join(q.States, ","))
	}
	if len(q.Types) > 0 {
		parts = append(parts, "type:"+strings.Join(q.Types, ","))
	}
	if q.Name != "" {
		parts = append(parts, "name:"+strconv.Quote(q.Name))
	}
	return strings.Join(parts, " ")
}
