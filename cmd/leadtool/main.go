// Command leadtool generates datasets, trains the lead classifier, scores
// lead files offline and probes a running server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/okian/leadscore/internal/adapters/repository"
	app "github.com/okian/leadscore/internal/app"
	"github.com/okian/leadscore/internal/domain/lead"
	"github.com/okian/leadscore/internal/domain/scoring"
	"github.com/okian/leadscore/internal/probe"
	"github.com/okian/leadscore/pkg/logger"
)

func main() {
	// Logs go to stderr so stdout carries only command output.
	if err := logger.InitWithWriter(os.Stderr); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		// cobra already printed the error
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "leadtool",
		Short:        "Offline tooling for the lead scoring service",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("log-level", "warn", "Log level: debug, info, warn, error")
	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		return logger.SetLevelString(level)
	}

	root.AddCommand(newGenerateCmd(), newTrainCmd(), newScoreCmd(), newProbeCmd())
	return root
}

type generateFlags struct {
	rows int
	seed int64
	out  string
}

func newGenerateCmd() *cobra.Command {
	var flags generateFlags
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic labeled lead dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if flags.rows <= 0 {
				return fmt.Errorf("--rows must be positive, got %d", flags.rows)
			}
			format, err := repository.FormatFromPath(flags.out)
			if err != nil {
				return err
			}
			rows := lead.Synthesize(flags.rows, flags.seed)
			if err := writeFile(flags.out, func(f *os.File) error {
				return repository.WriteUnscored(f, format, rows)
			}); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d leads to %s\n", len(rows), flags.out)
			return err
		},
	}
	f := cmd.Flags()
	f.IntVar(&flags.rows, "rows", 200, "Number of leads")
	f.Int64Var(&flags.seed, "seed", 42, "Random seed")
	f.StringVar(&flags.out, "out", "leads.csv", "Output file (.csv or .xlsx)")
	return cmd
}

type trainFlags struct {
	data    string
	out     string
	trees   int
	depth   int
	seed    int64
	workers int
}

func newTrainCmd() *cobra.Command {
	var flags trainFlags
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a random forest on a labeled dataset and save the artifact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := repository.LoadFile(ctx, flags.data)
			if err != nil {
				return err
			}
			rows, err := store.All(ctx)
			if err != nil {
				return err
			}
			trainer := scoring.NewForestTrainer(
				scoring.WithTrees(flags.trees),
				scoring.WithMaxDepth(flags.depth),
				scoring.WithSeed(flags.seed),
				scoring.WithWorkers(flags.workers),
			)
			model, report, err := trainer.Train(ctx, rows)
			if err != nil {
				return err
			}
			if err := scoring.SaveFile(flags.out, model); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.data, "data", "leads.csv", "Labeled dataset (.csv or .xlsx)")
	f.StringVar(&flags.out, "out", "model.json", "Model artifact path")
	f.IntVar(&flags.trees, "trees", 50, "Number of trees")
	f.IntVar(&flags.depth, "max-depth", 0, "Maximum tree depth, 0 for unlimited")
	f.Int64Var(&flags.seed, "seed", 42, "Random seed")
	f.IntVar(&flags.workers, "workers", 0, "Parallel tree builders, 0 for GOMAXPROCS")
	return cmd
}

type scoreFlags struct {
	data     string
	model    string
	out      string
	industry string
	role     string
	location string
	minScore float64
	sort     string
}

func newScoreCmd() *cobra.Command {
	var flags scoreFlags
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a lead file with a trained model and write the filtered result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			order, err := lead.ParseSortOrder(flags.sort)
			if err != nil {
				return err
			}
			format, err := repository.FormatFromPath(flags.out)
			if err != nil {
				return err
			}
			store, err := repository.LoadFile(ctx, flags.data)
			if err != nil {
				return err
			}
			model, err := scoring.LoadFile(flags.model)
			if err != nil {
				return err
			}
			// A scored file is not the training set, so its own vocabularies
			// would shift codes. Encode with the table saved at training time.
			svc, err := app.New(ctx,
				app.WithStore(store),
				app.WithModel(model),
				app.WithCodeTable(model.Codes),
			)
			if err != nil {
				return err
			}

			q := app.Query{
				Criteria: lead.Criteria{
					Industry: flags.industry,
					Role:     flags.role,
					Location: flags.location,
					MinScore: flags.minScore,
				},
				Sort: order,
			}
			data, err := svc.ExportLeads(ctx, q, format)
			if err != nil {
				return err
			}
			if err := writeFile(flags.out, func(f *os.File) error {
				_, err := f.Write(data)
				return err
			}); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", flags.out)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.data, "data", "leads.csv", "Lead file to score (.csv or .xlsx)")
	f.StringVar(&flags.model, "model", "model.json", "Model artifact path")
	f.StringVar(&flags.out, "out", "filtered_leads.csv", "Output file (.csv or .xlsx)")
	f.StringVar(&flags.industry, "industry", "", "Industry substring")
	f.StringVar(&flags.role, "role", "", "Role substring")
	f.StringVar(&flags.location, "location", "", "Location substring")
	f.Float64Var(&flags.minScore, "min-score", 0, "Minimum predicted score")
	f.StringVar(&flags.sort, "sort", "", "Order by score: none, desc or asc")
	return cmd
}

func newProbeCmd() *cobra.Command {
	cfg := probe.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check a running server's listing and export responses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := probe.Run(cmd.Context(), cfg)
			out := cmd.OutOrStdout()
			for _, r := range report.Results {
				status := "ok"
				if r.Error != nil {
					status = "FAIL: " + r.Error.Error()
				}
				_, _ = fmt.Fprintf(out, "%-28s %5d rows  %s\n", r.Case.Name, r.Rows, status)
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "%d cases passed against %d leads in %s\n", report.Cases, report.Leads, report.Duration)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "Base URL of the server")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "Concurrent requests")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-request timeout")
	f.Float64Var(&cfg.MinScore, "min-score", cfg.MinScore, "Threshold for the min_score cases")
	f.DurationVar(&cfg.Wait, "wait", cfg.Wait, "How long to wait for the server to become healthy")
	return cmd
}

// writeFile creates path and its parent directories and hands the file to fn.
func writeFile(path string, fn func(*os.File) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
