package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kirved/tabscribe/internal/speech"
	"github.com/kirved/tabscribe/internal/summarize"
	"github.com/kirved/tabscribe/internal/transcript"
)

const meetURL = "https://meet.google.com/abc-defg-hij"

type fakeRecorder struct {
	mu       sync.Mutex
	started  bool
	stopped  bool
	startErr error
	stopErr  error
	payload  []byte
}

func (r *fakeRecorder) Start(_ context.Context, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startErr != nil {
		return r.startErr
	}
	r.started = true
	return nil
}

func (r *fakeRecorder) Stop() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopErr != nil {
		return nil, r.stopErr
	}
	r.stopped = true
	return r.payload, nil
}

type fakeTranscriber struct {
	mu     sync.Mutex
	result transcript.Transcript
	err    error
	audio  []byte
	block  chan struct{} // if non-nil, wait for close (or ctx) before returning
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte, progress speech.Progress) (transcript.Transcript, error) {
	f.mu.Lock()
	f.audio = audio
	block := f.block
	f.mu.Unlock()

	if progress != nil {
		progress("transcription queued")
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return transcript.Transcript{}, ctx.Err()
		}
	}
	return f.result, f.err
}

type fakeSummarizer struct {
	result summarize.Result
	err    error
	calls  int
}

func (f *fakeSummarizer) Summarize(_ context.Context, _ transcript.Transcript) (summarize.Result, error) {
	f.calls++
	return f.result, f.err
}

type recordingNotifier struct {
	mu       sync.Mutex
	statuses []string
	results  []PipelineResult
}

func (n *recordingNotifier) StatusUpdate(_ int, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, message)
}

func (n *recordingNotifier) PipelineResult(result PipelineResult) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.results = append(n.results, result)
}

func (n *recordingNotifier) statusContaining(substr string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, s := range n.statuses {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}

func (n *recordingNotifier) resultCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.results)
}

type staticCreds struct {
	speech     string
	generative string
}

func (c staticCreds) Credentials() (string, string) { return c.speech, c.generative }

type testHarness struct {
	manager     *Manager
	transcriber *fakeTranscriber
	summarizer  *fakeSummarizer
	recorder    *fakeRecorder
	notifier    *recordingNotifier
}

func newHarness(creds CredentialSource, opts ...ManagerOption) *testHarness {
	h := &testHarness{
		transcriber: &fakeTranscriber{},
		summarizer:  &fakeSummarizer{},
		recorder:    &fakeRecorder{},
		notifier:    &recordingNotifier{},
	}
	factory := func(int) Recorder { return h.recorder }
	h.manager = NewManager(h.transcriber, h.summarizer, factory, h.notifier, creds, opts...)
	return h
}

func waitForStatus(t *testing.T, n *recordingNotifier, substr string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if n.statusContaining(substr) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	t.Fatalf("no status containing %q, got %v", substr, n.statuses)
}

func waitForState(t *testing.T, m *Manager, tabID int, want State) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap, ok := m.Session(tabID)
		if ok && snap.State == want {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	snap, ok := m.Session(tabID)
	t.Fatalf("session did not reach %v (exists=%v, snapshot=%+v)", want, ok, snap)
	return Snapshot{}
}

func TestMeetingDetected_CreatesSessionOnce(t *testing.T) {
	h := newHarness(staticCreds{"s", "g"})

	h.manager.MeetingDetected(1, meetURL)
	h.manager.MeetingDetected(1, meetURL)

	snap, ok := h.manager.Session(1)
	if !ok {
		t.Fatal("expected session for tab 1")
	}
	if snap.Platform != PlatformGoogleMeet || snap.State != StateIdle {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestMeetingDetected_UnmatchedURLCreatesNothing(t *testing.T) {
	h := newHarness(staticCreds{"s", "g"})

	h.manager.MeetingDetected(1, "https://example.com/watch")

	if _, ok := h.manager.Session(1); ok {
		t.Fatal("unmatched URL must not create a session")
	}
}

func TestMeetingDetected_NavigationAwayDestroysSession(t *testing.T) {
	h := newHarness(staticCreds{"s", "g"})

	h.manager.MeetingDetected(1, meetURL)
	h.manager.MeetingDetected(1, "https://example.com/")

	if _, ok := h.manager.Session(1); ok {
		t.Fatal("navigation away must destroy the session")
	}
}

func TestStartRecording_CredentialsMissing(t *testing.T) {
	h := newHarness(staticCreds{speech: "s"})

	h.manager.MeetingDetected(1, meetURL)

	if err := h.manager.StartRecording(1); !errors.Is(err, ErrCredentialsMissing) {
		t.Fatalf("expected ErrCredentialsMissing, got %v", err)
	}
	snap, _ := h.manager.Session(1)
	if snap.State != StateIdle {
		t.Fatalf("state = %v, want idle", snap.State)
	}
}

func TestStartRecording_NoSession(t *testing.T) {
	h := newHarness(staticCreds{"s", "g"})

	if err := h.manager.StartRecording(42); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestStartRecording_CaptureFailureKeepsIdle(t *testing.T) {
	h := newHarness(staticCreds{"s", "g"})
	h.recorder.startErr = errors.New("tab capture denied")

	h.manager.MeetingDetected(1, meetURL)

	if err := h.manager.StartRecording(1); err == nil {
		t.Fatal("expected capture error")
	}
	snap, _ := h.manager.Session(1)
	if snap.State != StateIdle {
		t.Fatalf("state = %v, want idle after capture failure", snap.State)
	}
}

func TestStartRecording_RejectedWhileRecording(t *testing.T) {
	h := newHarness(staticCreds{"s", "g"})

	h.manager.MeetingDetected(1, meetURL)
	if err := h.manager.StartRecording(1); err != nil {
		t.Fatalf("StartRecording failed: %v", err)
	}
	if err := h.manager.StartRecording(1); !errors.Is(err, ErrAlreadyRecording) {
		t.Fatalf("expected ErrAlreadyRecording, got %v", err)
	}
}

func TestStopRecording_RejectedWhileIdle(t *testing.T) {
	h := newHarness(staticCreds{"s", "g"})

	h.manager.MeetingDetected(1, meetURL)
	if err := h.manager.StopRecording(1); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("expected ErrNotRecording, got %v", err)
	}
}

func TestPipeline_EndToEndSuccess(t *testing.T) {
	h := newHarness(staticCreds{"s", "g"})
	h.recorder.payload = []byte("chunk1chunk2chunk3")
	h.transcriber.result = transcript.Transcript{
		Utterances: []transcript.Utterance{
			{Speaker: "Speaker A", Text: "hello", Seconds: 0},
			{Speaker: "Speaker B", Text: "hi", Seconds: 5},
		},
		Chapters: []transcript.Chapter{
			{Title: "Greetings", StartSeconds: 0, EndSeconds: 10},
		},
	}
	h.summarizer.result = summarize.Result{
		Narrative: "People greeted each other.",
		ActionItems: []summarize.ActionItem{
			{Text: "say hello more often", Assignee: "Unassigned", Speaker: "System", Timestamp: "00:00"},
		},
	}

	h.manager.MeetingDetected(1, meetURL)
	if err := h.manager.StartRecording(1); err != nil {
		t.Fatalf("StartRecording failed: %v", err)
	}
	if !h.manager.Recording(1) {
		t.Fatal("Recording(1) = false during recording")
	}
	if err := h.manager.StopRecording(1); err != nil {
		t.Fatalf("StopRecording failed: %v", err)
	}

	snap := waitForState(t, h.manager, 1, StateIdle)
	if snap.Transcript == nil || len(snap.Transcript.Utterances) != 2 {
		t.Fatalf("stored transcript = %+v, want 2 utterances", snap.Transcript)
	}
	if snap.Summary == nil || len(snap.Summary.ActionItems) != 1 {
		t.Fatalf("stored summary = %+v, want 1 action item", snap.Summary)
	}
	if !snap.StartedAt.IsZero() {
		t.Fatal("startedAt must be cleared on return to Idle")
	}

	if string(h.transcriber.audio) != "chunk1chunk2chunk3" {
		t.Fatalf("transcriber got %q", h.transcriber.audio)
	}
	if h.notifier.resultCount() != 1 {
		t.Fatalf("expected 1 pipeline result, got %d", h.notifier.resultCount())
	}
}

func TestPipeline_ZeroChunksStillProcesses(t *testing.T) {
	h := newHarness(staticCreds{"s", "g"})
	h.recorder.payload = []byte{}
	h.transcriber.block = make(chan struct{})

	h.manager.MeetingDetected(1, meetURL)
	if err := h.manager.StartRecording(1); err != nil {
		t.Fatalf("StartRecording failed: %v", err)
	}
	if err := h.manager.StopRecording(1); err != nil {
		t.Fatalf("StopRecording failed: %v", err)
	}

	snap := waitForState(t, h.manager, 1, StateProcessing)
	if snap.State != StateProcessing {
		t.Fatalf("state = %v, want processing", snap.State)
	}
	close(h.transcriber.block)
	waitForState(t, h.manager, 1, StateIdle)
}

func TestPipeline_TranscriptionFailure(t *testing.T) {
	h := newHarness(staticCreds{"s", "g"})
	h.transcriber.err = &speech.JobError{Remote: "decode failure"}

	h.manager.MeetingDetected(1, meetURL)
	if err := h.manager.StartRecording(1); err != nil {
		t.Fatalf("StartRecording failed: %v", err)
	}
	if err := h.manager.StopRecording(1); err != nil {
		t.Fatalf("StopRecording failed: %v", err)
	}

	snap := waitForState(t, h.manager, 1, StateIdle)
	if snap.Transcript != nil {
		t.Fatal("transcript must remain unset after pipeline failure")
	}
	if snap.Summary != nil {
		t.Fatal("summary must remain unset after pipeline failure")
	}
	if h.summarizer.calls != 0 {
		t.Fatal("summarizer must not run after transcription failure")
	}
	waitForStatus(t, h.notifier, "decode failure")
	if h.notifier.resultCount() != 0 {
		t.Fatal("no pipeline result expected on failure")
	}
}

func TestPipeline_SummarizationFailure(t *testing.T) {
	h := newHarness(staticCreds{"s", "g"})
	h.transcriber.result = transcript.Transcript{
		Utterances: []transcript.Utterance{{Speaker: "Speaker A", Text: "hi", Seconds: 0}},
		Chapters:   []transcript.Chapter{},
	}
	h.summarizer.err = &summarize.GenerateError{Request: "summary", Err: errors.New("503")}

	h.manager.MeetingDetected(1, meetURL)
	if err := h.manager.StartRecording(1); err != nil {
		t.Fatalf("StartRecording failed: %v", err)
	}
	if err := h.manager.StopRecording(1); err != nil {
		t.Fatalf("StopRecording failed: %v", err)
	}

	snap := waitForState(t, h.manager, 1, StateIdle)
	if snap.Transcript != nil || snap.Summary != nil {
		t.Fatal("partial results must be discarded on summarization failure")
	}
	waitForStatus(t, h.notifier, "summarize failed")
}

func TestTabClosed_CancelsPipeline(t *testing.T) {
	h := newHarness(staticCreds{"s", "g"})
	h.transcriber.block = make(chan struct{})
	h.transcriber.result = transcript.Transcript{
		Utterances: []transcript.Utterance{{Speaker: "Speaker A", Text: "late", Seconds: 0}},
	}

	h.manager.MeetingDetected(1, meetURL)
	if err := h.manager.StartRecording(1); err != nil {
		t.Fatalf("StartRecording failed: %v", err)
	}
	if err := h.manager.StopRecording(1); err != nil {
		t.Fatalf("StopRecording failed: %v", err)
	}

	h.manager.TabClosed(1)
	close(h.transcriber.block)

	time.Sleep(50 * time.Millisecond)
	if _, ok := h.manager.Session(1); ok {
		t.Fatal("session must be gone after tab close")
	}
	if h.notifier.resultCount() != 0 {
		t.Fatal("late pipeline result must be ignored after tab close")
	}
}

func TestTabClosed_StopsInFlightCapture(t *testing.T) {
	h := newHarness(staticCreds{"s", "g"})

	h.manager.MeetingDetected(1, meetURL)
	if err := h.manager.StartRecording(1); err != nil {
		t.Fatalf("StartRecording failed: %v", err)
	}

	h.manager.TabClosed(1)

	h.recorder.mu.Lock()
	stopped := h.recorder.stopped
	h.recorder.mu.Unlock()
	if !stopped {
		t.Fatal("in-flight capture must be stopped on tab close")
	}
}

func TestAutoStart_StartsWithCredentials(t *testing.T) {
	h := newHarness(staticCreds{"s", "g"}, WithAutoStart(true))

	h.manager.MeetingDetected(1, meetURL)

	if !h.manager.Recording(1) {
		t.Fatal("auto-start should begin recording when credentials are present")
	}
}

func TestAutoStart_BlockedWithoutCredentials(t *testing.T) {
	h := newHarness(staticCreds{}, WithAutoStart(true))

	h.manager.MeetingDetected(1, meetURL)

	if h.manager.Recording(1) {
		t.Fatal("auto-start must not begin recording without credentials")
	}
	waitForStatus(t, h.notifier, "not configured")
}

func TestSessions_IndependentTabs(t *testing.T) {
	h := newHarness(staticCreds{"s", "g"})

	h.manager.MeetingDetected(1, meetURL)
	h.manager.MeetingDetected(2, "https://zoom.us/j/555")

	if err := h.manager.StartRecording(1); err != nil {
		t.Fatalf("StartRecording(1) failed: %v", err)
	}
	if h.manager.Recording(2) {
		t.Fatal("tab 2 must not be recording")
	}

	snap2, _ := h.manager.Session(2)
	if snap2.Platform != PlatformZoom {
		t.Fatalf("tab 2 platform = %v, want zoom", snap2.Platform)
	}
}
