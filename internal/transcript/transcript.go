package transcript

import (
	"fmt"
	"strings"
)

// Utterance is one diarized speech segment returned by the speech service.
type Utterance struct {
	Speaker string  `json:"speaker"`
	Text    string  `json:"text"`
	Seconds float64 `json:"timestamp_seconds"`
}

// Chapter is a service-inferred topical segment of the meeting.
type Chapter struct {
	Title        string  `json:"title"`
	Summary      string  `json:"summary"`
	StartSeconds float64 `json:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds"`
}

// Transcript is the normalized output of the transcription pipeline.
// Utterances are ordered by timestamp ascending; chapters are
// non-overlapping and ordered by start ascending. Both slices are always
// non-nil, even when the upstream response omitted them.
type Transcript struct {
	Utterances []Utterance `json:"utterances"`
	Chapters   []Chapter   `json:"chapters"`
}

// FormatMillis renders a millisecond offset as zero-padded mm:ss. There is
// no hour component: 3600000 ms renders as "60:00".
func FormatMillis(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// FormatSeconds renders a second offset as zero-padded mm:ss, truncating
// fractional seconds.
func FormatSeconds(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	return FormatMillis(int64(seconds) * 1000)
}

// RenderLines flattens the transcript into one line per utterance, in
// transcript order, shaped as "<speaker> (<mm:ss>): <text>". This is the
// exact form handed to the summarization prompts.
func (t Transcript) RenderLines() string {
	var b strings.Builder
	for _, u := range t.Utterances {
		fmt.Fprintf(&b, "%s (%s): %s\n", u.Speaker, FormatSeconds(u.Seconds), strings.TrimSpace(u.Text))
	}
	return b.String()
}

// Empty reports whether the transcript carries no utterances.
func (t Transcript) Empty() bool {
	return len(t.Utterances) == 0
}
