package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kirved/tabscribe/internal/session"
	"github.com/kirved/tabscribe/internal/transcript"
)

// Reporter renders completed meetings to markdown files, one file per
// pipeline run.
type Reporter struct {
	dir string
	mu  sync.Mutex
}

// NewReporter creates a reporter writing into dir.
func NewReporter(dir string) *Reporter {
	return &Reporter{dir: dir}
}

// Write renders the bundle and returns the path of the written report.
func (r *Reporter) Write(res session.PipelineResult) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", r.dir, err)
	}

	name := fmt.Sprintf("%s-%s-tab%d.md", res.StartedAt.UTC().Format("2006-01-02-150405"), res.Platform, res.TabID)
	path := filepath.Join(r.dir, name)

	if err := os.WriteFile(path, []byte(Render(res)), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// Render produces the markdown body for one meeting.
func Render(res session.PipelineResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Meeting notes — %s\n\n", res.StartedAt.UTC().Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Platform: %s\n\n", res.Platform)

	b.WriteString("## Summary\n\n")
	b.WriteString(strings.TrimSpace(res.Summary.Narrative))
	b.WriteString("\n\n")

	b.WriteString("## Action items\n\n")
	if len(res.Summary.ActionItems) == 0 {
		b.WriteString("None.\n\n")
	} else {
		for _, item := range res.Summary.ActionItems {
			fmt.Fprintf(&b, "- [ ] %s (%s, %s, %s)\n", item.Text, item.Assignee, item.Speaker, item.Timestamp)
		}
		b.WriteString("\n")
	}

	if len(res.Transcript.Chapters) > 0 {
		b.WriteString("## Chapters\n\n")
		for _, ch := range res.Transcript.Chapters {
			fmt.Fprintf(&b, "- **%s** (%s–%s): %s\n",
				ch.Title,
				transcript.FormatSeconds(ch.StartSeconds),
				transcript.FormatSeconds(ch.EndSeconds),
				ch.Summary,
			)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Transcript\n\n")
	for _, u := range res.Transcript.Utterances {
		fmt.Fprintf(&b, "**%s (%s):** %s\n\n", u.Speaker, transcript.FormatSeconds(u.Seconds), strings.TrimSpace(u.Text))
	}

	return b.String()
}
