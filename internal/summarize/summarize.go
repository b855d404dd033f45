package summarize

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kirved/tabscribe/internal/llm"
	"github.com/kirved/tabscribe/internal/transcript"
)

// UnassignedSentinel is used when the model does not name an assignee.
const UnassignedSentinel = "Unassigned"

// ActionItem is one extracted follow-up from the meeting.
type ActionItem struct {
	Text      string `json:"text"`
	Assignee  string `json:"assignee"`
	Speaker   string `json:"speaker"`
	Timestamp string `json:"timestamp"`
}

// Result bundles the narrative summary with the extracted action items.
type Result struct {
	Narrative   string       `json:"narrative"`
	ActionItems []ActionItem `json:"action_items"`
}

// GenerateError indicates one of the two generation requests failed.
type GenerateError struct {
	Request string
	Err     error
}

func (e *GenerateError) Error() string {
	return "summarize failed (" + e.Request + "): " + e.Err.Error()
}

func (e *GenerateError) Unwrap() error { return e.Err }

const narrativePrompt = `Summarize the following meeting transcript as a short narrative.
Cover the main topics discussed, decisions made, and overall outcome.
Write plain prose, no headings.

Transcript:
`

const actionItemsPrompt = `Extract the action items from the following meeting transcript.
Respond with a JSON array only. Each element must be an object with the keys
"text", "assignee", "speaker" and "timestamp" (mm:ss). Use "Unassigned" when
no owner was named. If there are no action items, respond with [].

Transcript:
`

// Summarizer turns a normalized transcript into a Result via two
// independent generation requests.
type Summarizer struct {
	client llm.Client
}

// New creates a Summarizer over the given generation client.
func New(client llm.Client) *Summarizer {
	return &Summarizer{client: client}
}

// Summarize renders the transcript to its line form and issues the
// narrative and action-item requests. Both requests are always attempted;
// neither short-circuits the other. A failed request surfaces as a
// GenerateError, but an unparseable action-item response degrades to a
// placeholder item instead of failing the pipeline.
func (s *Summarizer) Summarize(ctx context.Context, tr transcript.Transcript) (Result, error) {
	rendered := tr.RenderLines()

	narrative, narrativeErr := s.client.Generate(ctx, narrativePrompt+rendered)
	actionsText, actionsErr := s.client.Generate(ctx, actionItemsPrompt+rendered)

	if narrativeErr != nil {
		return Result{}, &GenerateError{Request: "summary", Err: narrativeErr}
	}
	if actionsErr != nil {
		return Result{}, &GenerateError{Request: "action items", Err: actionsErr}
	}

	items, _ := ExtractActionItems(actionsText)
	return Result{Narrative: narrative, ActionItems: items}, nil
}

var (
	arrayPattern  = regexp.MustCompile(`(?s)\[.*\]`)
	fencedPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
)

// ExtractActionItems applies the best-effort extraction chain to a model
// response: a bracket-delimited JSON array in the raw text, then the
// contents of a fenced code block, then a single placeholder item. The
// boolean reports whether real items were parsed.
func ExtractActionItems(text string) ([]ActionItem, bool) {
	candidate := arrayPattern.FindString(text)
	if candidate == "" {
		if m := fencedPattern.FindStringSubmatch(text); m != nil {
			candidate = m[1]
		}
	}

	if candidate == "" {
		return []ActionItem{fallbackItem("could not parse action items")}, false
	}

	var items []ActionItem
	if err := json.Unmarshal([]byte(strings.TrimSpace(candidate)), &items); err != nil {
		return []ActionItem{fallbackItem("error parsing action items")}, false
	}

	for i := range items {
		if strings.TrimSpace(items[i].Assignee) == "" {
			items[i].Assignee = UnassignedSentinel
		}
		if strings.TrimSpace(items[i].Timestamp) == "" {
			items[i].Timestamp = "00:00"
		}
	}
	return items, true
}

func fallbackItem(text string) ActionItem {
	return ActionItem{
		Text:      text,
		Assignee:  UnassignedSentinel,
		Speaker:   "System",
		Timestamp: "00:00",
	}
}
