package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"agentrpg.ai/internal/behavior"
	"agentrpg.ai/internal/config"
	"agentrpg.ai/internal/llm"
	"agentrpg.ai/internal/session"
	"agentrpg.ai/internal/transcript"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to agent yaml (optional)")
		agentID    = flag.String("id", "", "agent id (default: agent_<random>)")
		name       = flag.String("name", "", "display name")
		color      = flag.String("color", "", "hex color, e.g. ff3300")
		mission    = flag.String("mission", "", "mission statement for reasoned behaviors")
		serverURL  = flag.String("server", "", "bridge websocket url")
		behaviorF  = flag.String("behavior", "", "scripted | reasoned | single_shot")
		simple     = flag.Bool("simple", false, "shorthand for -behavior scripted")
		reconnect  = flag.Bool("reconnect", false, "reconnect with backoff when the connection ends")
		transDir   = flag.String("transcript", "", "directory for zstd jsonl transcripts (empty disables)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[agent] ", log.LstdFlags|log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		logger.Printf("no .env loaded: %v", err)
	}

	cfg := config.Defaults()
	if *configPath != "" {
		c, err := config.Load(*configPath)
		if err != nil {
			logger.Fatalf("load config: %v", err)
		}
		cfg = c
	}
	cfg.ApplyEnv(os.Getenv)

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "id":
			cfg.AgentID = strings.TrimSpace(*agentID)
		case "name":
			cfg.Name = *name
		case "color":
			cfg.Color = *color
		case "mission":
			cfg.Mission = *mission
		case "server":
			cfg.ServerURL = *serverURL
		case "behavior":
			cfg.Behavior = *behaviorF
		case "transcript":
			cfg.TranscriptDir = *transDir
		}
	})
	if *simple {
		cfg.Behavior = config.BehaviorScripted
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}
	colorValue, _ := cfg.ColorValue()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	decider, err := newDecider(ctx, cfg)
	if err != nil {
		logger.Fatalf("decider: %v", err)
	}

	var opts []session.Option
	var rec *transcript.Recorder
	if cfg.TranscriptDir != "" {
		rec = transcript.NewRecorder(cfg.TranscriptDir)
		opts = append(opts, session.WithTranscript(rec))
	}

	s := session.New(session.Config{
		AgentID:   cfg.AgentID,
		Name:      cfg.Name,
		Color:     colorValue,
		ServerURL: cfg.ServerURL,
	}, decider, opts...)

	logger.Printf("agent=%s name=%s behavior=%s server=%s", cfg.AgentID, cfg.Name, cfg.Behavior, cfg.ServerURL)
	err = run(ctx, logger, s, *reconnect)
	if rec != nil {
		if cerr := rec.Close(); cerr != nil {
			logger.Printf("close transcript: %v", cerr)
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Printf("session ended: %v", err)
		os.Exit(1)
	}
	logger.Printf("bye (%d turns answered)", s.TurnsAnswered())
}

// run drives the session once, or forever with capped exponential backoff
// when reconnect is set.
func run(ctx context.Context, logger *log.Logger, s *session.Session, reconnect bool) error {
	backoff := 200 * time.Millisecond
	for {
		started := time.Now()
		err := s.Run(ctx)
		if !reconnect || ctx.Err() != nil {
			return err
		}
		if time.Since(started) > 5*time.Second {
			backoff = 200 * time.Millisecond
		}
		logger.Printf("disconnected (%v), retrying in %s", err, backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 5*time.Second {
			backoff *= 2
			if backoff > 5*time.Second {
				backoff = 5 * time.Second
			}
		}
	}
}

func newDecider(ctx context.Context, cfg config.Config) (behavior.Decider, error) {
	if cfg.Behavior == config.BehaviorScripted {
		return behavior.NewScripted(cfg.AgentID, cfg.Script), nil
	}
	backend, err := newBackend(ctx, cfg.Backend)
	if err != nil {
		return nil, err
	}
	switch cfg.Behavior {
	case config.BehaviorReasoned:
		return behavior.NewReasoned(behavior.ReasonedConfig{
			AgentID:      cfg.AgentID,
			Role:         cfg.Name,
			Mission:      cfg.Mission,
			HistoryLimit: cfg.HistoryLimit,
		}, backend), nil
	case config.BehaviorSingleShot:
		return behavior.NewSingleShot(cfg.AgentID, cfg.Mission, backend), nil
	}
	return nil, fmt.Errorf("unknown behavior %q", cfg.Behavior)
}

func newBackend(ctx context.Context, b config.Backend) (behavior.Backend, error) {
	switch b.Provider {
	case config.ProviderGemini:
		return llm.NewGemini(ctx, b.APIKey, b.BaseURL, b.Options())
	default:
		return llm.NewOpenAI(llm.NewOpenAIClient(b.APIKey, b.BaseURL, b.Timeout), b.Options()), nil
	}
}
