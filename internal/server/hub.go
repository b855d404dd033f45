package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/kirved/tabscribe/internal/session"
)

// Hub fans events out to every connected extension panel. Slow clients are
// skipped rather than blocking the broadcast.
type Hub struct {
	mu      sync.RWMutex
	clients map[chan []byte]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[chan []byte]struct{})}
}

func (h *Hub) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan []byte) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

func (h *Hub) Broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
		}
	}
}

// StatusUpdate implements the manager's notifier surface.
func (h *Hub) StatusUpdate(tabID int, message string) {
	h.broadcastEvent(StatusUpdateEvent{
		Event:   newEvent("status_update", time.Now().UTC()),
		TabID:   tabID,
		Message: message,
	})
}

// PipelineResult implements the manager's notifier surface.
func (h *Hub) PipelineResult(res session.PipelineResult) {
	event := PipelineResultEvent{
		Event:       newEvent("pipeline_result", time.Now().UTC()),
		TabID:       res.TabID,
		Platform:    string(res.Platform),
		StartedAt:   res.StartedAt.UTC().Format(time.RFC3339Nano),
		Narrative:   res.Summary.Narrative,
		ActionItems: make([]ActionItemView, 0, len(res.Summary.ActionItems)),
		Utterances:  make([]UtteranceView, 0, len(res.Transcript.Utterances)),
		Chapters:    make([]ChapterView, 0, len(res.Transcript.Chapters)),
	}
	for _, item := range res.Summary.ActionItems {
		event.ActionItems = append(event.ActionItems, ActionItemView{
			Text:      item.Text,
			Assignee:  item.Assignee,
			Speaker:   item.Speaker,
			Timestamp: item.Timestamp,
		})
	}
	for _, u := range res.Transcript.Utterances {
		event.Utterances = append(event.Utterances, UtteranceView{
			Speaker: u.Speaker,
			Text:    u.Text,
			Seconds: u.Seconds,
		})
	}
	for _, ch := range res.Transcript.Chapters {
		event.Chapters = append(event.Chapters, ChapterView{
			Title:        ch.Title,
			Summary:      ch.Summary,
			StartSeconds: ch.StartSeconds,
			EndSeconds:   ch.EndSeconds,
		})
	}
	h.broadcastEvent(event)
}

func (h *Hub) BroadcastRecordingTick(tabID int, elapsed string) {
	h.broadcastEvent(RecordingTickEvent{
		Event:   newEvent("recording_tick", time.Now().UTC()),
		TabID:   tabID,
		Elapsed: elapsed,
	})
}

func (h *Hub) BroadcastSpeakerChanged(tabID int, speaker string) {
	h.broadcastEvent(SpeakerChangedEvent{
		Event:   newEvent("speaker_changed", time.Now().UTC()),
		TabID:   tabID,
		Speaker: speaker,
	})
}

func (h *Hub) broadcastEvent(event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("event marshal error: %v", err)
		return
	}
	h.Broadcast(payload)
}
