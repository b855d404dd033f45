package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kirved/tabscribe/internal/transcript"
)

var (
	// ErrCaptureUnavailable is returned by Start when the platform denies or
	// lacks the tab audio capability.
	ErrCaptureUnavailable = errors.New("capture unavailable")

	// ErrNoActiveCapture is returned by Stop when no capture is running.
	ErrNoActiveCapture = errors.New("no active capture")
)

// Stream is an open platform audio stream. Chunks yields encoded audio
// chunks until the stream is closed; Close releases the underlying
// platform resources and causes Chunks to drain and close.
type Stream interface {
	Chunks() <-chan []byte
	Close() error
}

// Source acquires the audio stream for a tab. Implementations wrap the
// browser's tab-capture capability relayed by the extension agent.
type Source interface {
	Open(ctx context.Context, tabID int) (Stream, error)
}

// Session owns one recording: it drains the stream into an in-memory
// ordered chunk list and assembles the final payload on Stop. A Session is
// single-use; the owning state machine serializes Start/Stop.
type Session struct {
	source Source
	onTick func(elapsed string)

	mu        sync.Mutex
	stream    Stream
	chunks    [][]byte
	startedAt time.Time
	drained   chan struct{}
	stopTick  chan struct{}
}

// NewSession creates a capture session over the given source. onTick, if
// non-nil, is invoked once per second while capturing with the elapsed
// time formatted as mm:ss.
func NewSession(source Source, onTick func(elapsed string)) *Session {
	return &Session{source: source, onTick: onTick}
}

// Start acquires the stream and begins accumulating chunks.
func (s *Session) Start(ctx context.Context, tabID int) error {
	s.mu.Lock()
	if s.stream != nil {
		s.mu.Unlock()
		return errors.New("capture already active")
	}
	s.mu.Unlock()

	stream, err := s.source.Open(ctx, tabID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}

	s.mu.Lock()
	s.stream = stream
	s.chunks = nil
	s.startedAt = time.Now()
	s.drained = make(chan struct{})
	s.stopTick = make(chan struct{})
	s.mu.Unlock()

	go s.drain(stream)
	if s.onTick != nil {
		go s.tick(s.startedAt, s.stopTick)
	}

	return nil
}

// Stop finalizes the capture: the stream is closed (releasing platform
// resources on every exit path), remaining chunks are drained, and the
// accumulated chunks are concatenated into a single payload. A capture
// that produced no chunks yields an empty, non-nil payload.
func (s *Session) Stop() ([]byte, error) {
	s.mu.Lock()
	stream := s.stream
	drained := s.drained
	stopTick := s.stopTick
	s.stream = nil
	s.mu.Unlock()

	if stream == nil {
		return nil, ErrNoActiveCapture
	}

	closeErr := stream.Close()
	close(stopTick)
	<-drained

	s.mu.Lock()
	chunks := s.chunks
	s.chunks = nil
	s.startedAt = time.Time{}
	s.mu.Unlock()

	if closeErr != nil {
		return nil, fmt.Errorf("close capture stream: %w", closeErr)
	}

	size := 0
	for _, c := range chunks {
		size += len(c)
	}
	payload := make([]byte, 0, size)
	for _, c := range chunks {
		payload = append(payload, c...)
	}
	return payload, nil
}

// Active reports whether a capture is currently running.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream != nil
}

func (s *Session) drain(stream Stream) {
	for chunk := range stream.Chunks() {
		if len(chunk) == 0 {
			continue
		}
		buf := make([]byte, len(chunk))
		copy(buf, chunk)
		s.mu.Lock()
		s.chunks = append(s.chunks, buf)
		s.mu.Unlock()
	}

	s.mu.Lock()
	drained := s.drained
	s.drained = nil
	s.mu.Unlock()
	if drained != nil {
		close(drained)
	}
}

func (s *Session) tick(startedAt time.Time, stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			s.onTick(transcript.FormatMillis(now.Sub(startedAt).Milliseconds()))
		}
	}
}
