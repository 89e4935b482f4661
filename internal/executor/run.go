package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dataprof/dataprof/internal/config"
	"github.com/dataprof/dataprof/internal/dataset"
	"github.com/dataprof/dataprof/internal/engine"
	"github.com/dataprof/dataprof/internal/engine/local"
	enginemodal "github.com/dataprof/dataprof/internal/engine/modal"
	"github.com/dataprof/dataprof/internal/history"
	"github.com/dataprof/dataprof/internal/models"
	"github.com/dataprof/dataprof/internal/profile"
	"github.com/dataprof/dataprof/internal/report"
	"github.com/dataprof/dataprof/internal/schema"
)

// RunFromConfig loads the runner config and a profile, executes the run and
// writes the report file. All profile authoring errors surface here, before
// any task runs.
func RunFromConfig(ctx context.Context, configPath, profilePath string) (models.ProfileReport, error) {
	var zero models.ProfileReport

	cfg, err := config.Load(configPath)
	if err != nil {
		return zero, fmt.Errorf("loading config: %w", err)
	}

	p, err := profile.LoadFile(profilePath)
	if err != nil {
		return zero, fmt.Errorf("loading profile: %w", err)
	}

	tasks, err := profile.Validate(p, schema.Default())
	if err != nil {
		return zero, fmt.Errorf("validating profile: %w", err)
	}

	ds, err := dataset.New(cfg.Dataset.Path, cfg.Dataset.Delimiter, cfg.Dataset.HasHeader, p.Settings.Rows, p.Settings.Columns)
	if err != nil {
		return zero, fmt.Errorf("opening dataset: %w", err)
	}

	eng, err := buildEngine(cfg)
	if err != nil {
		return zero, err
	}
	defer func() {
		// Cleanup must run even when the run context was cancelled.
		closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := eng.Close(closeCtx); err != nil {
			slog.Warn("closing engine", "error", err)
		}
	}()

	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.Open(cfg.History.Path)
		if err != nil {
			return zero, fmt.Errorf("opening history: %w", err)
		}
	}

	orch := NewOrchestrator(eng, store, cfg.History.CheckResults)
	rep, err := orch.Run(ctx, p.Name, tasks, ds, p.GlobalTimeout())
	if err != nil {
		return zero, err
	}
	if store != nil {
		slog.Info("history recorded",
			"run_id", rep.RunID,
			"records", len(store.TasksByRunID(rep.RunID)),
			"path", cfg.History.Path)
	}

	if cfg.ReportPath != "" {
		if err := report.Write(cfg.ReportPath, rep); err != nil {
			return rep, err
		}
		slog.Info("report written", "path", cfg.ReportPath)
	}
	return rep, nil
}

func buildEngine(cfg config.Config) (engine.Engine, error) {
	switch cfg.Engine.Type {
	case "local":
		return local.New(cfg.Engine.Binary, cfg.Engine.Args...), nil
	case "modal":
		eng, err := enginemodal.New(enginemodal.Config{
			AppName: cfg.Modal.AppName,
			Image:   cfg.Modal.Image,
			Binary:  cfg.Modal.Binary,
			CPUs:    cfg.Modal.CPUs,
			Memory:  cfg.Modal.Memory,
			Regions: cfg.Modal.Regions,
			Verbose: cfg.Modal.Verbose,
		})
		if err != nil {
			return nil, fmt.Errorf("creating modal engine: %w", err)
		}
		return eng, nil
	default:
		return nil, fmt.Errorf("unsupported engine type: %s", cfg.Engine.Type)
	}
}
