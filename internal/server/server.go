package server

import (
	"log"
	"net/http"
)

// Handler assembles the control surface: websocket event stream, tab
// routes driving the session manager, ingest routes for mutation records
// and audio chunks, and the read API over saved meetings.
func Handler(hub *Hub, manager SessionManager, store MeetingStore, mutations MutationSink, chunks ChunkSink) http.Handler {
	mux := http.NewServeMux()
	registerWSRoute(mux, hub)
	registerAPIRoutes(mux, manager, store, mutations, chunks)
	return mux
}

func Serve(addr string, hub *Hub, manager SessionManager, store MeetingStore, mutations MutationSink, chunks ChunkSink) error {
	log.Printf("control surface at http://%s", addr)
	return http.ListenAndServe(addr, Handler(hub, manager, store, mutations, chunks))
}
