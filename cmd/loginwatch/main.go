package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/linkrelay/loginwatch/internal/classifier"
	"github.com/linkrelay/loginwatch/internal/config"
	"github.com/linkrelay/loginwatch/internal/observe"
	"github.com/linkrelay/loginwatch/internal/run"
	"github.com/linkrelay/loginwatch/internal/runner"
	"github.com/linkrelay/loginwatch/internal/secret"
	"github.com/linkrelay/loginwatch/internal/webhook"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	envFile := flag.String("env-file", "", "Path to .env file (optional)")
	flag.Parse()

	// A .env file is a convenience for local runs; absence is not an error
	// unless one was named explicitly.
	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			log.Fatalf("Failed to load env file: %v", err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Instance.ID == "" || cfg.Instance.EncryptionKey == "" {
		log.Println("Instance ID or encryption key unset; webhook signatures will use a degenerate secret")
	}
	signingSecret := secret.Derive(cfg.Instance.ID, cfg.Instance.EncryptionKey)

	runID := uuid.NewString()
	log.Printf("Starting login watcher (run %s)", runID)

	store := run.NewStore(runID)
	cls := classifier.New()

	sinks := []runner.EventSink{
		webhook.NewSender(cfg.Webhook.URL, cfg.Instance.ID, signingSecret),
	}

	var broadcaster *observe.Broadcaster
	if cfg.Observe.Enabled {
		broadcaster = observe.NewBroadcaster(store, cfg.Observe.BroadcastThrottle)
		store.SetNotify(broadcaster.QueueState)
		sinks = append(sinks, eventBroadcaster{broadcaster})

		server := observe.NewServer(store, broadcaster, cfg.Observe.AuthToken)
		mux := http.NewServeMux()
		server.SetupRoutes(mux)
		go func() {
			if err := observe.ListenAndServe(cfg.Observe.Host, cfg.Observe.Port, mux); err != nil {
				log.Printf("Observe server error: %v", err)
			}
		}()
	}

	r := runner.New(cfg, cls, store, sinks...)
	result, err := r.Run(context.Background())
	if err != nil {
		log.Fatalf("Failed to run login subprocess: %v", err)
	}

	if broadcaster != nil {
		// State updates already flow via the store notify hook; the
		// dedicated message spares clients diffing snapshots.
		broadcaster.BroadcastOutcome(result.Outcome, result.ExitCode)
	}

	os.Exit(result.ExitCode)
}

// eventBroadcaster adapts the observe broadcaster to the runner's sink
// interface.
type eventBroadcaster struct {
	b *observe.Broadcaster
}

func (e eventBroadcaster) SendEvent(ev classifier.Event) {
	e.b.BroadcastEvent(ev)
}
