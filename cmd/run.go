package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"declutter/internal/config"
	"declutter/internal/logging"
	"declutter/internal/processor"
	"declutter/internal/runlock"
	"declutter/internal/tui"
)

// loadConfig reads the config file and environment, then applies the
// command line flags on top and configures logging.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Sort.Workers = flagWorkers
	}
	if flags.Changed("exclude") {
		cfg.Sort.Exclude = append(cfg.Sort.Exclude, flagExclude...)
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = flagLogLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = flagLogFormat
	}
	if flagNoProgress {
		cfg.Sort.Progress = config.ProgressNever
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logging.Configuration().SetOutput(cmd.ErrOrStderr())
	if err := logging.Configuration().Apply(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return nil, err
	}

	return cfg, nil
}

func showProgress(cfg *config.Config) bool {
	switch cfg.Sort.Progress {
	case config.ProgressAlways:
		return true
	case config.ProgressNever:
		return false
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// organize runs the processor over root. Dry runs skip the lock and the
// progress view.
func organize(cmd *cobra.Command, root string, dryRun bool) (*processor.Report, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := logrus.WithFields(logrus.Fields{"run_id": runID})

	if !dryRun {
		lock, err := runlock.Acquire(absRoot)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				log.WithError(err).Warning("Failed to release run lock")
			}
		}()
	}

	opts := processor.Options{
		Workers: cfg.Sort.Workers,
		Exclude: cfg.Sort.Exclude,
		DryRun:  dryRun,
		Logger:  log,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	log.WithFields(logrus.Fields{"root": absRoot, "workers": opts.Workers, "dry_run": dryRun}).Info("Starting run")

	var report *processor.Report
	if dryRun || !showProgress(cfg) {
		report, err = processor.Run(ctx, absRoot, opts, nil)
	} else {
		report, err = runWithProgress(ctx, absRoot, opts)
	}
	if err != nil {
		return nil, err
	}

	report.RunID = runID
	log.WithFields(logrus.Fields{
		"files":  report.Summary.Files,
		"failed": report.Summary.Failed,
	}).Info("Run finished")

	return report, nil
}

func runWithProgress(ctx context.Context, root string, opts processor.Options) (*processor.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make(chan processor.ProgressUpdate, 64)
	model := tui.NewModel(updates, cancel)
	program := tea.NewProgram(model)

	release := logging.Configuration().Hold()
	defer release()

	uiDone := make(chan struct{})
	go func() {
		defer close(uiDone)
		if _, err := program.Run(); err != nil {
			cancel()
		}
		// Keep the processor unblocked if the view exits early.
		for range updates {
		}
	}()

	report, err := processor.Run(ctx, root, opts, updates)
	close(updates)
	<-uiDone

	return report, err
}
