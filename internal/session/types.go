package session

import (
	"context"
	"time"

	"github.com/kirved/tabscribe/internal/speech"
	"github.com/kirved/tabscribe/internal/summarize"
	"github.com/kirved/tabscribe/internal/transcript"
)

// State is the recording status of one meeting session.
type State string

const (
	StateIdle       State = "idle"
	StateRecording  State = "recording"
	StateProcessing State = "processing"
)

// Transcriber runs the upload/submit/poll transcription pipeline.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, progress speech.Progress) (transcript.Transcript, error)
}

// Summarizer turns a transcript into a narrative plus action items.
type Summarizer interface {
	Summarize(ctx context.Context, tr transcript.Transcript) (summarize.Result, error)
}

// Recorder is one tab's audio capture session.
type Recorder interface {
	Start(ctx context.Context, tabID int) error
	Stop() ([]byte, error)
}

// RecorderFactory builds a fresh Recorder for each recording cycle.
type RecorderFactory func(tabID int) Recorder

// Tracker observes active-speaker changes for a meeting page. Run blocks
// until the given context is cancelled.
type Tracker interface {
	Run(ctx context.Context)
}

// TrackerFactory builds the speaker tracker for a detected meeting. May be
// nil when tracking is disabled.
type TrackerFactory func(tabID int, platform Platform) Tracker

// CredentialSource reads the two opaque service keys from the external
// settings store.
type CredentialSource interface {
	Credentials() (speechKey, generativeKey string)
}

// PipelineResult is the bundle handed to the display/export collaborator
// after a successful run.
type PipelineResult struct {
	TabID      int
	Platform   Platform
	StartedAt  time.Time
	Transcript transcript.Transcript
	Summary    summarize.Result
}

// Notifier is the outbound surface toward the extension panel and the
// export path.
type Notifier interface {
	StatusUpdate(tabID int, message string)
	PipelineResult(result PipelineResult)
}

// Snapshot is a read-only view of a session's current state.
type Snapshot struct {
	TabID      int
	Platform   Platform
	State      State
	StartedAt  time.Time
	Transcript *transcript.Transcript
	Summary    *summarize.Result
}
