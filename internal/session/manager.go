package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kirved/tabscribe/internal/summarize"
	"github.com/kirved/tabscribe/internal/transcript"
)

// meetingSession is one tracked tab. All mutation goes through the Manager
// under its lock; pipeline goroutines only touch it via settle methods.
type meetingSession struct {
	tabID     int
	platform  Platform
	state     State
	startedAt time.Time

	transcript *transcript.Transcript
	summary    *summarize.Result

	recorder Recorder
	ctx      context.Context
	cancel   context.CancelFunc
}

// Manager owns the registry of per-tab meeting sessions and drives the
// Idle → Recording → Processing → Idle cycle for each of them. Sessions
// for different tabs are fully independent.
type Manager struct {
	transcriber Transcriber
	summarizer  Summarizer
	recorders   RecorderFactory
	trackers    TrackerFactory
	notifier    Notifier
	creds       CredentialSource
	autoStart   bool
	logger      *slog.Logger

	mu       sync.Mutex
	sessions map[int]*meetingSession
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithAutoStart enables the auto-transcribe policy: meeting detection
// fires the start transition when credentials are present.
func WithAutoStart(enabled bool) ManagerOption {
	return func(m *Manager) { m.autoStart = enabled }
}

// WithTrackerFactory wires per-session speaker tracking.
func WithTrackerFactory(factory TrackerFactory) ManagerOption {
	return func(m *Manager) { m.trackers = factory }
}

// WithLogger overrides the default slog logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// NewManager wires the orchestrator. All collaborators except trackers are
// required.
func NewManager(transcriber Transcriber, summarizer Summarizer, recorders RecorderFactory, notifier Notifier, creds CredentialSource, opts ...ManagerOption) *Manager {
	m := &Manager{
		transcriber: transcriber,
		summarizer:  summarizer,
		recorders:   recorders,
		notifier:    notifier,
		creds:       creds,
		logger:      slog.Default(),
		sessions:    make(map[int]*meetingSession),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MeetingDetected handles a navigation event for a tab. A URL matching a
// known meeting pattern creates the session in Idle (once per tab) and
// starts the speaker tracker; unmatched URLs tear down any stale session
// for that tab.
func (m *Manager) MeetingDetected(tabID int, rawURL string) {
	platform, ok := DetectPlatform(rawURL)
	if !ok {
		// Navigated away from a meeting URL.
		m.TabClosed(tabID)
		return
	}

	m.mu.Lock()
	if _, exists := m.sessions[tabID]; exists {
		m.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	sess := &meetingSession{
		tabID:    tabID,
		platform: platform,
		state:    StateIdle,
		ctx:      ctx,
		cancel:   cancel,
	}
	m.sessions[tabID] = sess
	m.mu.Unlock()

	if m.trackers != nil {
		if tracker := m.trackers(tabID, platform); tracker != nil {
			go tracker.Run(ctx)
		}
	}

	m.notifier.StatusUpdate(tabID, fmt.Sprintf("meeting detected (%s)", platform))

	if m.autoStart {
		m.autoStartRecording(tabID)
	}
}

func (m *Manager) autoStartRecording(tabID int) {
	speechKey, generativeKey := m.creds.Credentials()
	if speechKey == "" || generativeKey == "" {
		m.notifier.StatusUpdate(tabID, "auto-transcribe is on, but API keys are not configured")
		return
	}
	if err := m.StartRecording(tabID); err != nil {
		m.logger.Warn("auto-start recording failed", "tab", tabID, "error", err)
	}
}

// StartRecording transitions Idle → Recording. Rejected when the session
// does not exist, credentials are unset, or the session is not Idle.
// Capture failures abort the transition without changing state.
func (m *Manager) StartRecording(tabID int) error {
	speechKey, generativeKey := m.creds.Credentials()
	if speechKey == "" || generativeKey == "" {
		return ErrCredentialsMissing
	}

	m.mu.Lock()
	sess, ok := m.sessions[tabID]
	if !ok {
		m.mu.Unlock()
		return ErrNoSession
	}
	if sess.state != StateIdle {
		m.mu.Unlock()
		return ErrAlreadyRecording
	}

	recorder := m.recorders(tabID)
	if err := recorder.Start(sess.ctx, tabID); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("start capture: %w", err)
	}

	sess.state = StateRecording
	sess.startedAt = time.Now()
	sess.recorder = recorder
	m.mu.Unlock()

	m.notifier.StatusUpdate(tabID, "recording")
	return nil
}

// StopRecording transitions Recording → Processing, obtains the audio
// payload, and unconditionally launches the transcribe → summarize
// pipeline for the session. The session settles back to Idle when the
// pipeline completes or fails.
func (m *Manager) StopRecording(tabID int) error {
	m.mu.Lock()
	sess, ok := m.sessions[tabID]
	if !ok {
		m.mu.Unlock()
		return ErrNoSession
	}
	if sess.state != StateRecording {
		m.mu.Unlock()
		return ErrNotRecording
	}

	payload, err := sess.recorder.Stop()
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("stop capture: %w", err)
	}

	sess.state = StateProcessing
	sess.recorder = nil
	ctx := sess.ctx
	m.mu.Unlock()

	m.notifier.StatusUpdate(tabID, "processing recording")
	go m.runPipeline(ctx, tabID, payload)
	return nil
}

func (m *Manager) runPipeline(ctx context.Context, tabID int, payload []byte) {
	progress := func(stage string) {
		m.notifier.StatusUpdate(tabID, stage)
	}

	tr, err := m.transcriber.Transcribe(ctx, payload, progress)
	if err != nil {
		m.settleFailure(ctx, tabID, err)
		return
	}

	sum, err := m.summarizer.Summarize(ctx, tr)
	if err != nil {
		m.settleFailure(ctx, tabID, err)
		return
	}

	m.settleSuccess(ctx, tabID, tr, sum)
}

func (m *Manager) settleSuccess(ctx context.Context, tabID int, tr transcript.Transcript, sum summarize.Result) {
	m.mu.Lock()
	sess, ok := m.sessions[tabID]
	if !ok || ctx.Err() != nil {
		// Tab closed while processing; the late result is discarded.
		m.mu.Unlock()
		return
	}

	sess.transcript = &tr
	sess.summary = &sum
	sess.state = StateIdle
	startedAt := sess.startedAt
	sess.startedAt = time.Time{}
	platform := sess.platform
	m.mu.Unlock()

	m.notifier.PipelineResult(PipelineResult{
		TabID:      tabID,
		Platform:   platform,
		StartedAt:  startedAt,
		Transcript: tr,
		Summary:    sum,
	})
	m.notifier.StatusUpdate(tabID, "transcript and summary ready")
}

func (m *Manager) settleFailure(ctx context.Context, tabID int, cause error) {
	m.mu.Lock()
	sess, ok := m.sessions[tabID]
	if !ok || ctx.Err() != nil {
		m.mu.Unlock()
		return
	}

	// Partial results are discarded; the session is never left in a
	// zombie Processing state.
	sess.state = StateIdle
	sess.startedAt = time.Time{}
	m.mu.Unlock()

	m.logger.Warn("pipeline failed", "tab", tabID, "error", cause)
	m.notifier.StatusUpdate(tabID, fmt.Sprintf("processing failed: %v", cause))
}

// Recording answers the check-recording-status probe.
func (m *Manager) Recording(tabID int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[tabID]
	return ok && sess.state == StateRecording
}

// Session returns a read-only snapshot of the tab's session.
func (m *Manager) Session(tabID int) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[tabID]
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{
		TabID:      sess.tabID,
		Platform:   sess.platform,
		State:      sess.state,
		StartedAt:  sess.startedAt,
		Transcript: sess.transcript,
		Summary:    sess.summary,
	}, true
}

// TabClosed destroys the session for a closed (or navigated-away) tab.
// An in-flight capture is stopped and discarded; an in-flight pipeline is
// cancelled best-effort, its late results ignored.
func (m *Manager) TabClosed(tabID int) {
	m.mu.Lock()
	sess, ok := m.sessions[tabID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.sessions, tabID)
	recorder := sess.recorder
	sess.recorder = nil
	m.mu.Unlock()

	sess.cancel()
	if recorder != nil {
		if _, err := recorder.Stop(); err != nil {
			m.logger.Warn("discard capture on tab close", "tab", tabID, "error", err)
		}
	}
}
