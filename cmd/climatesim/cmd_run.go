package main

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/climate-net/internal/climate"
	"github.com/talgya/climate-net/internal/engine"
	"github.com/talgya/climate-net/internal/export"
	"github.com/talgya/climate-net/internal/persistence"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation",
		Long: `Run a simulation and write its results.

Round snapshots are streamed to <out>/<run-id>/rounds.jsonl.zst while the
run progresses; the shock log, network summary and per-agent performance
are written when it ends. With --db the results are also stored in a
SQLite database. Ctrl-C stops after the current round and still writes
what has been produced.

Examples:
  climatesim run
  climatesim run --rounds 50 --seed 7
  climatesim run --db results.db --out runs`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				cfg.Simulation.Seed, _ = cmd.Flags().GetInt64("seed")
			}
			if cmd.Flags().Changed("rounds") {
				cfg.Simulation.Rounds, _ = cmd.Flags().GetInt("rounds")
			}
			if cmd.Flags().Changed("out") {
				cfg.Simulation.ResultPath, _ = cmd.Flags().GetString("out")
			}
			dbPath, _ := cmd.Flags().GetString("db")
			noExport, _ := cmd.Flags().GetBool("no-export")

			sim, err := engine.NewSimulation(cfg)
			if err != nil {
				return err
			}

			var exp *export.Exporter
			if !noExport {
				exp = export.NewExporter(filepath.Join(cfg.Simulation.ResultPath, sim.RunID()))
				sim.AddObserver(exp)
				defer exp.Close()
			}

			sigCh := make(chan os.Signal, 1)
			notifySignals(sigCh)
			defer stopSignals(sigCh)
			go func() {
				if _, ok := <-sigCh; ok {
					slog.Info("interrupt received, stopping after current round")
					sim.Engine.Stop()
				}
			}()

			res, err := sim.Run(cfg.Simulation.Rounds)
			if err != nil {
				return fmt.Errorf("run failed: %w", err)
			}

			if exp != nil {
				if err := exp.WriteResults(res); err != nil {
					return fmt.Errorf("failed to export results: %w", err)
				}
				if err := exp.Close(); err != nil {
					return fmt.Errorf("failed to close exports: %w", err)
				}
			}
			if dbPath != "" {
				if err := saveToDB(dbPath, res); err != nil {
					return err
				}
			}

			printSummary(cmd, res, exp)
			return nil
		},
	}
	cmd.Flags().Int64("seed", 0, "Override simulation.random_seed")
	cmd.Flags().Int("rounds", 0, "Override simulation.rounds")
	cmd.Flags().String("out", "", "Override simulation.result_path")
	cmd.Flags().String("db", "", "Also store results in this SQLite database")
	cmd.Flags().Bool("no-export", false, "Skip writing compressed JSONL files")
	return cmd
}

func saveToDB(path string, res *engine.Results) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := persistence.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.SaveResults(res); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}
	return db.SaveLastRun(res)
}

func printSummary(cmd *cobra.Command, res *engine.Results, exp *export.Exporter) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s (seed %d): %d rounds\n", res.RunID, res.Seed, len(res.Rounds))
	if len(res.Rounds) == 0 {
		return
	}

	var trades, bankruptcies, failures int
	var production float64
	for _, r := range res.Rounds {
		trades += r.Total.Trades
		bankruptcies += r.Bankruptcies
		failures += r.ReplacementFailures
		production += r.Total.Production
	}
	last := res.Rounds[len(res.Rounds)-1]
	acute := 0
	for _, ev := range res.Shocks {
		if ev.Kind == climate.KindAcute {
			acute++
		}
	}

	fmt.Fprintf(out, "  agents:       %s (%s ever existed)\n", humanize.Comma(int64(last.Total.Population)), humanize.Comma(int64(len(res.Performance))))
	fmt.Fprintf(out, "  final wealth: %s\n", humanize.CommafWithDigits(last.Total.Wealth, 2))
	fmt.Fprintf(out, "  production:   %s units\n", humanize.CommafWithDigits(production, 1))
	fmt.Fprintf(out, "  trades:       %s\n", humanize.Comma(int64(trades)))
	fmt.Fprintf(out, "  shocks:       %d acute\n", acute)
	fmt.Fprintf(out, "  bankruptcies: %d (%d not replaced)\n", bankruptcies, failures)

	if exp != nil {
		var size int64
		filepath.WalkDir(exp.Dir(), func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if info, ierr := d.Info(); ierr == nil && !d.IsDir() {
				size += info.Size()
			}
			return nil
		})
		fmt.Fprintf(out, "  output:       %s (%s)\n", exp.Dir(), humanize.Bytes(uint64(size)))
	}
}
