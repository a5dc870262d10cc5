package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/opt-statistics/backend/internal/diag"
	"github.com/opt-statistics/backend/internal/faction"
	"github.com/opt-statistics/backend/internal/log"
	"github.com/opt-statistics/backend/internal/models"
	"github.com/opt-statistics/backend/internal/parser"
	"github.com/spf13/cobra"
)

var errStrict = errors.New("diagnostics at warn level or above were recorded")

type options struct {
	json         bool
	strict       bool
	logLevel     string
	factionTable string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "optstats",
		Short:         "Aggregate OPT mission and FPS logs",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&opts.json, "json", false, "print the raw ingestion result as JSON")
	flags.BoolVar(&opts.strict, "strict", false, "exit non-zero when warnings were recorded")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "lowest diagnostic level printed to stderr")
	flags.StringVar(&opts.factionTable, "factions", "", "YAML faction table replacing the built-in one")

	rootCmd.AddCommand(missionCmd(opts), fpsCmd(opts))

	return rootCmd
}

func missionCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "mission <file>",
		Short: "Print the player scoreboard of a mission log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			factions := faction.Default()
			if opts.factionTable != "" {
				loaded, errLoad := faction.Load(opts.factionTable)
				if errLoad != nil {
					return errLoad
				}
				factions = loaded
			}

			return ingest(cmd, opts, parser.NewMissionParser(factions), args[0], writeScoreboard)
		},
	}
}

func fpsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "fps <file>",
		Short: "Print the per-player FPS summary of a performance log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ingest(cmd, opts, parser.NewPerformanceParser(), args[0], writeFPSSummary)
		},
	}
}

// ingest parses path with p, prints the result to stdout and the diagnostics to stderr.
func ingest(cmd *cobra.Command, opts *options, p parser.Parser, path string,
	write func(io.Writer, *models.IngestionResult) error,
) error {
	recorder := diag.NewRecorder(slog.LevelWarn)
	logger := diag.Tee(log.NewWriterLogger(cmd.ErrOrStderr(), log.Level(opts.logLevel)), recorder)

	result, errParse := p.Parse(path, logger, nil)
	if errParse != nil {
		return fmt.Errorf("ingesting %s: %w", path, errParse)
	}

	if opts.json {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if errEnc := enc.Encode(result); errEnc != nil {
			return errEnc
		}
	} else if errWrite := write(cmd.OutOrStdout(), result); errWrite != nil {
		return errWrite
	}

	if opts.strict {
		if n := recorder.CountAtLeast(slog.LevelWarn); n > 0 {
			return fmt.Errorf("%w: %d", errStrict, n)
		}
	}

	return nil
}
