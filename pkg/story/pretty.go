package story

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Note is a tracker comment attached to a story.
type Note struct {
	Text    string
	NotedAt time.Time
}

const labelWidth = 11

// PrettyPrint writes a right-aligned summary of the story. Description and
// notes are left out when empty.
func PrettyPrint(w io.Writer, s Story, notes []Note) error {
	var b strings.Builder

	writeField(&b, "ID", fmt.Sprintf("%d", s.ID))
	writeField(&b, "Title", s.Name)

	if strings.TrimSpace(s.Description) != "" {
		writeField(&b, "Description", s.Description)
	}

	for i, note := range notes {
		writeField(&b, fmt.Sprintf("Note %d", i+1), note.Text)
	}

	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func writeField(b *strings.Builder, label, value string) {
	lines := strings.Split(value, "\n")
	fmt.Fprintf(b, "%*s: %s\n", labelWidth, label, lines[0])
	for _, line := range lines[1:] {
		fmt.Fprintf(b, "%*s%s\n", labelWidth+2, "", line)
	}
}
