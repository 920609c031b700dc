package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"reportd/internal/client"
	"reportd/internal/infra"
	"reportd/internal/status"
)

// watch starts one report generation job and follows it to a terminal
// state, printing every stage transition on the way.
func main() {
	_ = godotenv.Load()

	var (
		baseURL  = flag.String("base-url", envOr("PUBLIC_BASE_URL", "http://localhost:8080"), "api base url")
		targetID = flag.Int64("company", 0, "company id to generate a report for")
		interval = flag.Duration("poll-interval", 2*time.Second, "poll interval when demoted to polling")
		attempts = flag.Int("max-polls", 150, "poll attempts before giving up")
	)
	flag.Parse()

	logger := infra.NewLogger(envOr("APP_ENV", "development"), "watch")

	api, err := client.New(client.Options{BaseURL: *baseURL, Logger: &logger})
	if err != nil {
		logger.Fatal().Err(err).Msg("watch: bad client options")
	}

	done := make(chan int, 1)
	tracker, err := status.NewTracker(status.Options{
		Client:          api,
		PollInterval:    *interval,
		MaxPollAttempts: *attempts,
		Logger:          logger,
		OnComplete: func(resultReference string) {
			fmt.Printf("report ready: %s\n", resultReference)
			done <- 0
		},
		OnError: func(message string) {
			fmt.Fprintf(os.Stderr, "report failed: %s\n", message)
			done <- 1
		},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("watch: bad tracker options")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracker.StartGeneration(ctx, *targetID)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	var last status.State
	for {
		select {
		case code := <-done:
			os.Exit(code)
		case <-ctx.Done():
			tracker.Cancel()
			fmt.Fprintln(os.Stderr, "canceled")
			os.Exit(130)
		case <-ticker.C:
			s := tracker.Snapshot()
			if s.Stage != last.Stage || s.Progress != last.Progress {
				fmt.Printf("%-20s %3d%%  %s\n", s.Stage, s.Progress, s.StageDisplay)
				last = s
			}
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
