package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	config "github.com/eventsonar/backend/config/sonar"
	"github.com/eventsonar/backend/pkg/logger"
	"github.com/eventsonar/backend/sonar/capture"
	"github.com/eventsonar/backend/sonar/client"
	"github.com/eventsonar/backend/sonar/pipeline"
)

func main() {
	_ = godotenv.Load()

	voice := flag.Bool("voice", false, "record a voice query from the microphone")
	play := flag.Bool("play", false, "play the synthesized audio when available")
	list := flag.Bool("list", false, "list upcoming events and exit")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	log := logger.New(logger.Config{
		Level:  level,
		Output: os.Stderr,
	})

	cfg := config.MustLoad()
	ctx := logger.WithContext(context.Background(), log)

	api := client.New(cfg.GatewayURL, log)
	orch := pipeline.New(api, nil, log)

	if *list {
		if err := listEvents(ctx, api); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		return
	}

	var session pipeline.Session
	switch {
	case *voice:
		session = runVoice(ctx, cfg, orch, log)
	default:
		query := strings.TrimSpace(strings.Join(flag.Args(), " "))
		if query == "" {
			fmt.Fprintln(os.Stderr, "usage: sonar [-voice] [-play] [-list] [query...]")
			os.Exit(2)
		}
		session = orch.RunText(ctx, query)
	}

	printSession(session)

	if session.Stage == pipeline.StageFailed {
		os.Exit(1)
	}

	if *play && session.AudioURL != nil {
		player := capture.NewPlayer(log)
		if err := player.Play(api.ResolveAudioURL(*session.AudioURL)); err == nil {
			player.Wait()
		}
	}
}

func runVoice(ctx context.Context, cfg *config.Config, orch *pipeline.Orchestrator, log *slog.Logger) pipeline.Session {
	recorder := capture.NewRecorder(capture.NewFFmpegDevice(), cfg.MaxRecordDuration, log)
	defer recorder.Close()

	fmt.Printf("Recording... press Enter to stop (auto-stops after %s)\n", cfg.MaxRecordDuration)
	if err := recorder.Start(ctx); err != nil {
		return pipeline.Session{Stage: pipeline.StageFailed, Err: err}
	}

	waitForEnterOrCap(cfg)

	artifact, err := recorder.Stop(ctx)
	if err != nil {
		return pipeline.Session{Stage: pipeline.StageFailed, Err: err}
	}

	fmt.Println("Processing voice...")
	return orch.RunVoice(ctx, artifact.Data, artifact.MIME)
}

// waitForEnterOrCap returns on Enter; the recorder's own ceiling handles the
// no-input case, so a stuck read just means Stop picks up the auto-finalized
// artifact.
func waitForEnterOrCap(cfg *config.Config) {
	enter := make(chan struct{})
	go func() {
		buf := make([]byte, 1)
		os.Stdin.Read(buf)
		close(enter)
	}()

	select {
	case <-enter:
	case <-time.After(cfg.MaxRecordDuration):
	}
}

func listEvents(ctx context.Context, api *client.Client) error {
	events, err := api.ListEvents(ctx)
	if err != nil {
		return err
	}
	for _, ev := range events {
		fmt.Printf("%-28s %s @ %s\n", ev.Title, ev.DateTime, ev.Location)
	}
	return nil
}

func printSession(s pipeline.Session) {
	if s.Stage == pipeline.StageFailed {
		fmt.Fprintf(os.Stderr, "search failed: %v\n", s.Err)
		var apiErr *client.APIError
		if errors.As(s.Err, &apiErr) && apiErr.Timeout() {
			fmt.Fprintln(os.Stderr, "The backend may still be working on it. Wait a moment and retry.")
		} else {
			fmt.Fprintln(os.Stderr, "You can retry by re-running the command.")
		}
		return
	}

	if s.Transcript != "" {
		fmt.Printf("Heard: %q\n\n", s.Transcript)
	}

	if s.Summary != nil {
		fmt.Println(*s.Summary)
	} else if s.Details != nil {
		fmt.Println(s.Details.EventData.ExtractedContent)
	}

	if s.Details != nil && s.Details.EventData.URL != "" {
		fmt.Printf("\nEvent page: %s\n", s.Details.EventData.URL)
	}
	if s.AudioURL == nil {
		fmt.Println("\n(audio unavailable)")
	}
}
