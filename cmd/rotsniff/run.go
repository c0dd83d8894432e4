package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/rotsniff/pkg/rotsniff/config"
	"github.com/jamesainslie/rotsniff/pkg/rotsniff/history"
	"github.com/jamesainslie/rotsniff/pkg/rotsniff/index"
	"github.com/jamesainslie/rotsniff/pkg/rotsniff/logging"
	"github.com/jamesainslie/rotsniff/pkg/rotsniff/output"
	"github.com/jamesainslie/rotsniff/pkg/rotsniff/reconcile"
	"github.com/jamesainslie/rotsniff/pkg/rotsniff/tuner"
	"github.com/jamesainslie/rotsniff/pkg/rotsniff/walker"
)

// commandRunner returns a cobra RunE for op. Append and verify take the
// directory to walk as their only argument.
func commandRunner(op reconcile.Op) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		root := ""
		if len(args) > 0 {
			root = args[0]
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runOperation(ctx, cmd.OutOrStdout(), cfg, op, root)
	}
}

// runOperation loads the index, runs op, saves the index when op mutated
// it, prints the summary and records the run.
func runOperation(ctx context.Context, out io.Writer, cfg *config.Config, op reconcile.Op, root string) error {
	log := logging.Get("cli")

	matcher, err := buildMatcher(cfg)
	if err != nil {
		return err
	}
	formatter, err := output.Get(cfg.Output)
	if err != nil {
		return err
	}

	idx, err := index.Load(cfg.DB)
	if err != nil {
		return fmt.Errorf("loading index: %w", err)
	}

	workers, res := tuner.Auto(cfg.Workers)
	log.Debug("resources",
		"cpus", res.CPUCores,
		"ram", humanize.IBytes(uint64(max(res.TotalRAM, 0))),
		"hash_workers", workers.Hash,
		"walk_workers", workers.Walk)

	opts := []reconcile.Option{
		reconcile.WithWorkers(workers.Hash),
		reconcile.WithSource(walker.New(
			walker.WithMatcher(matcher),
			walker.WithWorkers(workers.Walk),
		)),
	}
	if !output.IsStructured(formatter) {
		opts = append(opts, reconcile.WithNotifier(output.NewConsole(out, cfg.Verbose)))
	}
	r := reconcile.New(idx, opts...)

	var rep *reconcile.Report
	switch op {
	case reconcile.OpAppend:
		rep, err = r.Append(ctx, root)
	case reconcile.OpRemove:
		rep, err = r.Remove(ctx)
	case reconcile.OpUpdate:
		rep, err = r.Update(ctx)
	case reconcile.OpVerify:
		rep, err = r.Verify(ctx, root)
	default:
		return fmt.Errorf("unknown operation %q", op)
	}

	if err == nil && op != reconcile.OpVerify {
		if serr := idx.Save(cfg.DB); serr != nil {
			err = fmt.Errorf("saving index: %w", serr)
		}
	}

	if rep == nil {
		return err
	}

	recordHistory(cfg, rep, err)

	if !cfg.Quiet {
		if ferr := formatter.Format(out, output.FromReport(rep, cfg.DB, err)); ferr != nil && err == nil {
			err = fmt.Errorf("writing summary: %w", ferr)
		}
	}
	return err
}

// recordHistory appends the run to the history store. Failures are logged
// and never change the run's outcome.
func recordHistory(cfg *config.Config, rep *reconcile.Report, opErr error) {
	if !cfg.History.Enabled {
		return
	}
	log := logging.Get("history")

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		log.Warn("history unavailable", "path", cfg.History.Path, "err", err)
		return
	}
	defer store.Close()

	rec := history.FromReport(rep, cfg.DB, opErr)
	if err := store.Add(rec); err != nil {
		log.Warn("recording run failed", "err", err)
		return
	}
	log.Debug("recorded run", "id", rec.ID, "op", rec.Operation, "outcome", rec.Outcome)

	retention := time.Duration(cfg.History.RetentionDays) * 24 * time.Hour
	if n, err := store.Cleanup(retention); err != nil {
		log.Warn("history cleanup failed", "err", err)
	} else if n > 0 {
		log.Debug("pruned history", "removed", n)
	}
}
