package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dataprof/dataprof/internal/executor"
	"github.com/dataprof/dataprof/internal/models"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: dataprof <profiler.toml> <profile.yaml>")
		os.Exit(1)
	}

	configPath := os.Args[1]
	profilePath := os.Args[2]

	// Setup context with manual signal handling
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	defer func() {
		signal.Stop(sigChan)
		cancel()
	}()

	go func() {
		sig := <-sigChan
		slog.Info("interrupt received, shutting down gracefully...", "signal", sig)
		cancel()
	}()

	rep, err := executor.RunFromConfig(ctx, configPath, profilePath)
	if err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}

	// Print summary
	counts := map[models.TaskStatus]int{}
	for _, r := range rep.Results {
		counts[r.Status]++
	}
	fmt.Printf("\nProfile: %s\n", rep.ProfileName)
	fmt.Printf("Run: %s\n", rep.RunID)
	fmt.Printf("Tasks: %d\n", len(rep.Results))
	fmt.Printf("Succeeded: %d\n", counts[models.StatusSuccess])
	fmt.Printf("Failed: %d\n", counts[models.StatusFailed])
	fmt.Printf("Timed out: %d\n", counts[models.StatusTimedOut])
	fmt.Printf("Skipped: %d\n", counts[models.StatusSkipped])
	fmt.Printf("Verdict: %s\n", rep.Verdict)
	fmt.Printf("Duration: %.2fs\n", rep.TotalDurationSec)

	if rep.Verdict != models.VerdictAllSucceeded {
		os.Exit(1)
	}
}
