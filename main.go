package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type cliOptions struct {
	configPath string
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}
	root := &cobra.Command{
		Use:   "neff",
		Short: "Estimate the effective qubit count of a quantum processor",
		Long: `neff builds quantum phase estimation calibration circuits for a range of
qubit counts and analyzes the measured histograms to find n_eff, the largest
qubit count whose phase estimation accuracy still beats the theoretical gain.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "experiment config (YAML)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	root.AddCommand(
		newCircuitsCmd(opts),
		newSimulateCmd(opts),
		newAnalyzeCmd(opts),
		newRunCmd(opts),
	)
	return root
}

// setup loads the experiment config and the logger for a command.
func (o *cliOptions) setup(cmd *cobra.Command) (ExperimentConfig, zerolog.Logger, error) {
	cfg, err := LoadConfig(o.configPath)
	if err != nil {
		return cfg, zerolog.Nop(), err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	return cfg, newLogger(cfg.LogLevel, cfg.PrettyLogs, cmd.ErrOrStderr()), nil
}

func newCircuitsCmd(opts *cliOptions) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "circuits",
		Short: "Write the calibration circuits as QASM files plus an execution manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			plans, err := BuildCircuits(cfg.QubitCounts, cfg.Repetitions)
			if err != nil {
				return err
			}
			m, err := ExportCircuits(outDir, plans)
			if err != nil {
				return err
			}
			log.Info().
				Str("dir", outDir).
				Ints("qubit_counts", m.QubitCounts).
				Int("repetitions", m.Repetitions).
				Int("circuits", len(m.Circuits)).
				Msg("calibration circuits written")
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "circuits", "output directory")
	return cmd
}

func newSimulateCmd(opts *cliOptions) *cobra.Command {
	var (
		circuitsDir string
		outPath     string
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Execute exported circuits on the local noisy simulator and write a dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			plans, err := LoadCircuits(circuitsDir)
			if err != nil {
				return err
			}
			sim := &Simulator{Shots: cfg.Shots, Seed: cfg.Seed, Noise: cfg.Noise, Log: log}
			results, err := sim.Run(cmd.Context(), plans)
			if err != nil {
				return err
			}
			f := NewDatasetFile(results, cfg.Shots)
			if err := WriteDatasetFile(outPath, f); err != nil {
				return err
			}
			log.Info().Str("run_id", f.RunID).Str("out", outPath).Msg("dataset written")
			return nil
		},
	}
	cmd.Flags().StringVar(&circuitsDir, "circuits", "circuits", "directory written by the circuits command")
	cmd.Flags().StringVarP(&outPath, "out", "o", "dataset.json", "dataset file (.json, .yaml or .msgpack)")
	return cmd
}

func newAnalyzeCmd(opts *cliOptions) *cobra.Command {
	var display bool
	cmd := &cobra.Command{
		Use:   "analyze <dataset>",
		Short: "Compute n_eff from a dataset of measurement histograms",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			f, err := ReadDatasetFile(args[0])
			if err != nil {
				return err
			}
			a, err := EffectiveQubitCount(f.Results)
			if err != nil {
				return fmt.Errorf("analyze %s: %w", args[0], err)
			}
			log.Info().Str("run_id", f.RunID).Int("n_eff", a.NEff).Msg("analysis complete")
			return showAnalysis(cmd, a, display)
		},
	}
	cmd.Flags().BoolVarP(&display, "display", "d", false, "open the interactive chart")
	return cmd
}

func newRunCmd(opts *cliOptions) *cobra.Command {
	var (
		outPath string
		display bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build, simulate and analyze in one step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			plans, err := BuildCircuits(cfg.QubitCounts, cfg.Repetitions)
			if err != nil {
				return err
			}
			sim := &Simulator{Shots: cfg.Shots, Seed: cfg.Seed, Noise: cfg.Noise, Log: log}
			results, err := sim.Run(cmd.Context(), plans)
			if err != nil {
				return err
			}
			if outPath != "" {
				if err := WriteDatasetFile(outPath, NewDatasetFile(results, cfg.Shots)); err != nil {
					return err
				}
			}
			a, err := EffectiveQubitCount(results)
			if err != nil {
				return err
			}
			log.Info().Int("n_eff", a.NEff).Msg("analysis complete")
			return showAnalysis(cmd, a, display)
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "also write the simulated dataset here")
	cmd.Flags().BoolVarP(&display, "display", "d", false, "open the interactive chart")
	return cmd
}

func showAnalysis(cmd *cobra.Command, a *Analysis, display bool) error {
	if display {
		return runReport(a)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, plainChart(a, 72))
	fmt.Fprintln(out)
	fmt.Fprint(out, RenderSummary(a))
	return nil
}
