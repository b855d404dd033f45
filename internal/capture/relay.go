package capture

import (
	"context"
	"fmt"
	"sync"
)

// Relay is a Source fed over the control surface: the extension posts raw
// audio chunks per tab and the open session's stream drains them. One stream
// per tab; a second Open for the same tab fails until the first is closed.
type Relay struct {
	mu      sync.Mutex
	streams map[int]*relayStream
}

func NewRelay() *Relay {
	return &Relay{streams: make(map[int]*relayStream)}
}

// Open registers a stream for the tab.
func (r *Relay) Open(_ context.Context, tabID int) (Stream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.streams[tabID]; exists {
		return nil, fmt.Errorf("tab %d already has an open stream", tabID)
	}
	st := &relayStream{relay: r, tabID: tabID, ch: make(chan []byte, 64)}
	r.streams[tabID] = st
	return st, nil
}

// Push delivers one chunk to the tab's open stream. It reports whether a
// stream was open; chunks for tabs with no open stream are dropped, as is
// anything beyond what the draining session has kept up with.
func (r *Relay) Push(tabID int, chunk []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.streams[tabID]
	if !ok {
		return false
	}

	buf := make([]byte, len(chunk))
	copy(buf, chunk)
	select {
	case st.ch <- buf:
	default:
	}
	return true
}

// Active reports whether the tab currently has an open stream.
func (r *Relay) Active(tabID int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.streams[tabID]
	return ok
}

type relayStream struct {
	relay *Relay
	tabID int
	once  sync.Once
	ch    chan []byte
}

func (s *relayStream) Chunks() <-chan []byte {
	return s.ch
}

// Close deregisters the stream and ends the chunk channel. Push holds the
// relay lock, so no send can race the close.
func (s *relayStream) Close() error {
	s.once.Do(func() {
		s.relay.mu.Lock()
		delete(s.relay.streams, s.tabID)
		s.relay.mu.Unlock()
		close(s.ch)
	})
	return nil
}
