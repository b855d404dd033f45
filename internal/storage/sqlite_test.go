package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/kirved/tabscribe/internal/session"
	"github.com/kirved/tabscribe/internal/summarize"
	"github.com/kirved/tabscribe/internal/transcript"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleResult() session.PipelineResult {
	return session.PipelineResult{
		TabID:     3,
		Platform:  session.PlatformGoogleMeet,
		StartedAt: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
		Transcript: transcript.Transcript{
			Utterances: []transcript.Utterance{
				{Speaker: "Speaker A", Text: "hello", Seconds: 0},
				{Speaker: "Speaker B", Text: "hi there", Seconds: 4.5},
			},
			Chapters: []transcript.Chapter{
				{Title: "Intro", Summary: "Greetings.", StartSeconds: 0, EndSeconds: 10},
			},
		},
		Summary: summarize.Result{
			Narrative: "A short meeting.",
			ActionItems: []summarize.ActionItem{
				{Text: "send notes", Assignee: "Unassigned", Speaker: "Speaker A", Timestamp: "00:04"},
			},
		},
	}
}

func TestSaveAndLoadMeeting(t *testing.T) {
	store := newTestStore(t)

	id, err := store.SaveMeeting(sampleResult())
	if err != nil {
		t.Fatalf("SaveMeeting failed: %v", err)
	}

	meeting, tr, items, err := store.Meeting(id)
	if err != nil {
		t.Fatalf("Meeting failed: %v", err)
	}

	if meeting.TabID != 3 || meeting.Platform != string(session.PlatformGoogleMeet) {
		t.Fatalf("unexpected meeting: %+v", meeting)
	}
	if meeting.Narrative != "A short meeting." {
		t.Fatalf("narrative = %q", meeting.Narrative)
	}
	if len(tr.Utterances) != 2 || tr.Utterances[1].Seconds != 4.5 {
		t.Fatalf("unexpected utterances: %+v", tr.Utterances)
	}
	if len(tr.Chapters) != 1 || tr.Chapters[0].Title != "Intro" {
		t.Fatalf("unexpected chapters: %+v", tr.Chapters)
	}
	if len(items) != 1 || items[0].Text != "send notes" {
		t.Fatalf("unexpected action items: %+v", items)
	}
}

func TestMeetings_OrderAndLimit(t *testing.T) {
	store := newTestStore(t)

	first := sampleResult()
	if _, err := store.SaveMeeting(first); err != nil {
		t.Fatalf("SaveMeeting failed: %v", err)
	}

	second := sampleResult()
	second.TabID = 9
	if _, err := store.SaveMeeting(second); err != nil {
		t.Fatalf("SaveMeeting failed: %v", err)
	}

	meetings, err := store.Meetings(10)
	if err != nil {
		t.Fatalf("Meetings failed: %v", err)
	}
	if len(meetings) != 2 {
		t.Fatalf("got %d meetings, want 2", len(meetings))
	}

	limited, err := store.Meetings(1)
	if err != nil {
		t.Fatalf("Meetings failed: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("got %d meetings, want 1", len(limited))
	}
}

func TestMeeting_EmptyTranscriptLoadsEmptySlices(t *testing.T) {
	store := newTestStore(t)

	res := sampleResult()
	res.Transcript = transcript.Transcript{
		Utterances: []transcript.Utterance{},
		Chapters:   []transcript.Chapter{},
	}
	res.Summary.ActionItems = nil

	id, err := store.SaveMeeting(res)
	if err != nil {
		t.Fatalf("SaveMeeting failed: %v", err)
	}

	_, tr, items, err := store.Meeting(id)
	if err != nil {
		t.Fatalf("Meeting failed: %v", err)
	}
	if tr.Utterances == nil || tr.Chapters == nil || items == nil {
		t.Fatal("loaded slices must be non-nil")
	}
	if len(tr.Utterances) != 0 || len(tr.Chapters) != 0 || len(items) != 0 {
		t.Fatalf("expected empty slices, got %+v / %+v", tr, items)
	}
}

func TestMeeting_NotFound(t *testing.T) {
	store := newTestStore(t)

	if _, _, _, err := store.Meeting(999); err == nil {
		t.Fatal("expected error for missing meeting")
	}
}
