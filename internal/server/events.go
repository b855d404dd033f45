package server

import "time"

const EventVersion = 1

type Event struct {
	Type      string `json:"type"`
	Version   int    `json:"version"`
	Timestamp string `json:"timestamp"`
}

type StatusUpdateEvent struct {
	Event
	TabID   int    `json:"tab_id"`
	Message string `json:"message"`
}

type RecordingTickEvent struct {
	Event
	TabID   int    `json:"tab_id"`
	Elapsed string `json:"elapsed"`
}

type SpeakerChangedEvent struct {
	Event
	TabID   int    `json:"tab_id"`
	Speaker string `json:"speaker"`
}

type PipelineResultEvent struct {
	Event
	TabID       int              `json:"tab_id"`
	Platform    string           `json:"platform"`
	StartedAt   string           `json:"started_at"`
	Narrative   string           `json:"narrative"`
	ActionItems []ActionItemView `json:"action_items"`
	Utterances  []UtteranceView  `json:"utterances"`
	Chapters    []ChapterView    `json:"chapters"`
}

type ActionItemView struct {
	Text      string `json:"text"`
	Assignee  string `json:"assignee"`
	Speaker   string `json:"speaker"`
	Timestamp string `json:"timestamp"`
}

type UtteranceView struct {
	Speaker string  `json:"speaker"`
	Text    string  `json:"text"`
	Seconds float64 `json:"seconds"`
}

type ChapterView struct {
	Title        string  `json:"title"`
	Summary      string  `json:"summary"`
	StartSeconds float64 `json:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds"`
}

type ConnectionEvent struct {
	Event
	Connected bool `json:"connected"`
}

func newEvent(eventType string, now time.Time) Event {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return Event{
		Type:      eventType,
		Version:   EventVersion,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	}
}
