// Package main is the entry point for pqnd, the phantom quantum node
// detector. It simulates a two-level open quantum system driven by a
// symbolic script and watches the trajectory for geometric collapse and
// spectral resonance signatures.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/foundups/pqn-detector/pkg/logger"
)

var (
	logLevel  string
	logPretty bool

	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pqnd",
	Short: "Phantom quantum node detector",
	Long: `pqnd evolves a driven, dissipative two-level quantum system under a
symbolic operator script and flags steps where the trajectory's local
geometry collapses or its coherence spectrum locks onto a resonance band.

Runs print events as JSON; the serve command exposes the same engine
over an HTTP API backed by a SQLite journal.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log = logger.New(logger.Config{
			Level:  logLevel,
			Pretty: logPretty,
		})
		logger.SetGlobalLogger(log)
	},
	SilenceUsage: true,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logPretty, "log-pretty", true, "human-readable log output")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(ensembleCmd)
	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
