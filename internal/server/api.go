package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/kirved/tabscribe/internal/capture"
	"github.com/kirved/tabscribe/internal/session"
	"github.com/kirved/tabscribe/internal/speaker"
	"github.com/kirved/tabscribe/internal/storage"
	"github.com/kirved/tabscribe/internal/summarize"
	"github.com/kirved/tabscribe/internal/transcript"
)

// maxChunkBytes bounds a single posted audio chunk.
const maxChunkBytes = 4 << 20

// SessionManager is the orchestration surface the tab routes drive.
type SessionManager interface {
	MeetingDetected(tabID int, url string)
	StartRecording(tabID int) error
	StopRecording(tabID int) error
	Recording(tabID int) bool
	TabClosed(tabID int)
}

// MeetingStore serves the read API over saved meetings.
type MeetingStore interface {
	Meetings(limit int) ([]storage.Meeting, error)
	Meeting(id int64) (storage.Meeting, transcript.Transcript, []summarize.ActionItem, error)
}

// MutationSink receives posted DOM mutation records for a tab.
type MutationSink interface {
	Push(tabID int, mut speaker.Mutation) bool
}

// ChunkSink receives posted audio chunks for a tab.
type ChunkSink interface {
	Push(tabID int, chunk []byte) bool
}

func registerAPIRoutes(mux *http.ServeMux, manager SessionManager, store MeetingStore, mutations MutationSink, chunks ChunkSink) {
	mux.HandleFunc("POST /api/tabs/{id}/meeting", func(w http.ResponseWriter, r *http.Request) {
		tabID, ok := tabIDFromPath(w, r)
		if !ok {
			return
		}

		var body struct {
			URL string `json:"url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("decode meeting body: %v", err))
			return
		}

		manager.MeetingDetected(tabID, body.URL)
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST /api/tabs/{id}/record/start", func(w http.ResponseWriter, r *http.Request) {
		tabID, ok := tabIDFromPath(w, r)
		if !ok {
			return
		}

		if err := manager.StartRecording(tabID); err != nil {
			writeSessionError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST /api/tabs/{id}/record/stop", func(w http.ResponseWriter, r *http.Request) {
		tabID, ok := tabIDFromPath(w, r)
		if !ok {
			return
		}

		if err := manager.StopRecording(tabID); err != nil {
			writeSessionError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /api/tabs/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		tabID, ok := tabIDFromPath(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"recording": manager.Recording(tabID)})
	})

	mux.HandleFunc("DELETE /api/tabs/{id}", func(w http.ResponseWriter, r *http.Request) {
		tabID, ok := tabIDFromPath(w, r)
		if !ok {
			return
		}
		manager.TabClosed(tabID)
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST /api/tabs/{id}/mutations", func(w http.ResponseWriter, r *http.Request) {
		tabID, ok := tabIDFromPath(w, r)
		if !ok {
			return
		}

		var muts []speaker.Mutation
		if err := json.NewDecoder(r.Body).Decode(&muts); err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("decode mutations: %v", err))
			return
		}

		accepted := false
		for _, mut := range muts {
			if mutations.Push(tabID, mut) {
				accepted = true
			}
		}
		if !accepted && len(muts) > 0 {
			writeJSONError(w, http.StatusNotFound, "no tracker for tab")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST /api/tabs/{id}/chunks", func(w http.ResponseWriter, r *http.Request) {
		tabID, ok := tabIDFromPath(w, r)
		if !ok {
			return
		}

		chunk, err := io.ReadAll(io.LimitReader(r.Body, maxChunkBytes+1))
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("read chunk: %v", err))
			return
		}
		if len(chunk) > maxChunkBytes {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "chunk too large")
			return
		}

		if !chunks.Push(tabID, chunk) {
			writeJSONError(w, http.StatusConflict, "no active capture for tab")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /api/meetings", func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				writeJSONError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			limit = parsed
		}

		meetings, err := store.Meetings(limit)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("list meetings: %v", err))
			return
		}
		if meetings == nil {
			meetings = []storage.Meeting{}
		}
		writeJSON(w, http.StatusOK, meetings)
	})

	mux.HandleFunc("GET /api/meetings/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid meeting id")
			return
		}

		meeting, tr, items, err := store.Meeting(id)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, sql.ErrNoRows) {
				status = http.StatusNotFound
			}
			writeJSONError(w, status, fmt.Sprintf("get meeting: %v", err))
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"meeting":      meeting,
			"transcript":   tr,
			"action_items": items,
		})
	})
}

func tabIDFromPath(w http.ResponseWriter, r *http.Request) (int, bool) {
	tabID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || tabID < 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid tab id")
		return 0, false
	}
	return tabID, true
}

func writeSessionError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrNoSession):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrCredentialsMissing):
		status = http.StatusPreconditionFailed
	case errors.Is(err, session.ErrAlreadyRecording), errors.Is(err, session.ErrNotRecording):
		status = http.StatusConflict
	case errors.Is(err, capture.ErrCaptureUnavailable):
		status = http.StatusBadGateway
	}
	writeJSONError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
