package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirved/tabscribe/internal/capture"
	"github.com/kirved/tabscribe/internal/config"
	"github.com/kirved/tabscribe/internal/export"
	"github.com/kirved/tabscribe/internal/llm"
	"github.com/kirved/tabscribe/internal/server"
	"github.com/kirved/tabscribe/internal/session"
	"github.com/kirved/tabscribe/internal/speaker"
	"github.com/kirved/tabscribe/internal/speech"
	"github.com/kirved/tabscribe/internal/storage"
	"github.com/kirved/tabscribe/internal/summarize"
)

// fanoutNotifier delivers pipeline results to the hub plus the export path.
// Export failures are logged, never surfaced to the session.
type fanoutNotifier struct {
	hub      *server.Hub
	store    *storage.Store
	reporter *export.Reporter
	syncer   *export.Syncer
}

func (n *fanoutNotifier) StatusUpdate(tabID int, message string) {
	n.hub.StatusUpdate(tabID, message)
}

func (n *fanoutNotifier) PipelineResult(res session.PipelineResult) {
	n.hub.PipelineResult(res)

	if _, err := n.store.SaveMeeting(res); err != nil {
		log.Printf("save meeting for tab %d failed: %v", res.TabID, err)
	}

	path, err := n.reporter.Write(res)
	if err != nil {
		log.Printf("write report for tab %d failed: %v", res.TabID, err)
		return
	}
	if n.syncer != nil {
		if err := n.syncer.Sync(path); err != nil {
			log.Printf("drive sync of %s failed: %v", path, err)
		}
	}
}

// tabSurface adapts the manager for the control surface, tearing down the
// tab's mutation feed alongside the session.
type tabSurface struct {
	*session.Manager
	trackers *speaker.Registry
}

func (s tabSurface) TabClosed(tabID int) {
	s.Manager.TabClosed(tabID)
	s.trackers.Remove(tabID)
}

func main() {
	configPath := flag.String("config", "tabscribe.yaml", "path to the config file")
	flag.Parse()

	log.Println("tabscribe: starting")

	cfg, warnings, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	for _, w := range warnings {
		log.Printf("warning: %s", w)
	}

	store, err := storage.NewStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("storage init failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := server.NewHub()
	reporter := export.NewReporter(cfg.ExportDir)

	var syncer *export.Syncer
	if cfg.GDriveFolderID != "" {
		syncer, err = export.NewSyncer(ctx, cfg.GoogleCredentialsFile, cfg.GDriveFolderID)
		if err != nil {
			log.Printf("warning: drive sync disabled: %v", err)
			syncer = nil
		}
	}

	transcriber := speech.NewClient(cfg.AssemblyAIKey,
		speech.WithPollInterval(cfg.ParsedPollInterval()),
		speech.WithMaxPolls(cfg.MaxPolls),
	)

	// Without a generation key the manager refuses to start recording, so a
	// nil summarizer is never reached.
	var summarizer session.Summarizer
	if cfg.GenerationKey != "" {
		generator, err := llm.NewClient(cfg.GenerationProvider, cfg.GenerationKey, cfg.GenerationModel)
		if err != nil {
			log.Fatalf("generation client init failed: %v", err)
		}
		summarizer = summarize.New(generator)
	}

	relay := capture.NewRelay()
	recorders := func(tabID int) session.Recorder {
		return capture.NewSession(relay, func(elapsed string) {
			hub.BroadcastRecordingTick(tabID, elapsed)
		})
	}

	trackers := speaker.NewRegistry()
	trackerFactory := func(tabID int, platform session.Platform) session.Tracker {
		feed := trackers.Register(tabID)
		return speaker.New(feed, speaker.ProfileFor(platform), func(ev speaker.Event) {
			hub.BroadcastSpeakerChanged(tabID, ev.Speaker)
		})
	}

	notifier := &fanoutNotifier{hub: hub, store: store, reporter: reporter, syncer: syncer}

	manager := session.NewManager(transcriber, summarizer, recorders, notifier, &cfg,
		session.WithAutoStart(cfg.AutoTranscribe),
		session.WithTrackerFactory(trackerFactory),
	)

	handler := server.Handler(hub, tabSurface{Manager: manager, trackers: trackers}, store, trackers, relay)

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: handler}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http server error: %v", err)
		}
	}()

	log.Printf("tabscribe: control surface on http://%s", cfg.ListenAddr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("tabscribe: shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("warning: http shutdown failed: %v", err)
	}
}
