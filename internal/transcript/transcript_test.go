package transcript

import (
	"strings"
	"testing"
)

func TestFormatMillis(t *testing.T) {
	tests := []struct {
		name string
		ms   int64
		want string
	}{
		{"zero", 0, "00:00"},
		{"sub-second", 999, "00:00"},
		{"one minute one second", 61000, "01:01"},
		{"no hour rollover", 3600000, "60:00"},
		{"negative clamps to zero", -5000, "00:00"},
		{"padded seconds", 9000, "00:09"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatMillis(tt.ms); got != tt.want {
				t.Fatalf("FormatMillis(%d) = %q, want %q", tt.ms, got, tt.want)
			}
		})
	}
}

func TestFormatSeconds(t *testing.T) {
	if got := FormatSeconds(61.9); got != "01:01" {
		t.Fatalf("FormatSeconds(61.9) = %q, want 01:01", got)
	}
	if got := FormatSeconds(0); got != "00:00" {
		t.Fatalf("FormatSeconds(0) = %q, want 00:00", got)
	}
}

func TestRenderLines(t *testing.T) {
	tr := Transcript{
		Utterances: []Utterance{
			{Speaker: "Speaker A", Text: "morning everyone  ", Seconds: 0},
			{Speaker: "Speaker B", Text: "let's get started", Seconds: 61},
		},
	}

	got := tr.RenderLines()
	want := "Speaker A (00:00): morning everyone\nSpeaker B (01:01): let's get started\n"
	if got != want {
		t.Fatalf("RenderLines() = %q, want %q", got, want)
	}
}

func TestRenderLines_Empty(t *testing.T) {
	var tr Transcript
	if got := tr.RenderLines(); got != "" {
		t.Fatalf("expected empty render, got %q", got)
	}
	if !tr.Empty() {
		t.Fatal("expected Empty() to be true")
	}
}

func TestRenderLines_ContainsTimestamps(t *testing.T) {
	tr := Transcript{Utterances: []Utterance{{Speaker: "Speaker C", Text: "wrap up", Seconds: 3600}}}
	if !strings.Contains(tr.RenderLines(), "(60:00)") {
		t.Fatalf("expected 60:00 timestamp, got %q", tr.RenderLines())
	}
}
