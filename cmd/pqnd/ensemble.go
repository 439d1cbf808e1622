package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/foundups/pqn-detector/internal/detector"
	"github.com/foundups/pqn-detector/internal/ensemble"
)

var (
	ensScripts string
	ensSeeds   string
	ensWorkers int
	ensConfig  string
	ensSteps   int
)

var ensembleCmd = &cobra.Command{
	Use:   "ensemble",
	Short: "Run a script-by-seed sweep and print the aggregate summary",
	Long: `Runs every script with every seed on a worker pool and prints the
per-run flag counts plus sweep totals as JSON. Individual events are
discarded; use "run" or the HTTP API to inspect single trajectories.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		base := detector.DefaultConfig()
		if ensConfig != "" {
			data, err := os.ReadFile(ensConfig)
			if err != nil {
				return fmt.Errorf("failed to read config file: %w", err)
			}
			if err := json.Unmarshal(data, &base); err != nil {
				return fmt.Errorf("failed to parse config file: %w", err)
			}
		}
		if cmd.Flags().Changed("steps") {
			base.Steps = ensSteps
		}

		seeds, err := parseSeeds(ensSeeds)
		if err != nil {
			return err
		}

		spec := ensemble.Spec{
			Base:    base,
			Scripts: strings.Split(ensScripts, ","),
			Seeds:   seeds,
		}

		runner := ensemble.NewRunner(ensWorkers, log)
		summary, err := runner.Run(cmd.Context(), spec)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func parseSeeds(raw string) ([]int64, error) {
	var seeds []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		seed, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid seed %q: %w", part, err)
		}
		seeds = append(seeds, seed)
	}
	return seeds, nil
}

func init() {
	ensembleCmd.Flags().StringVar(&ensScripts, "scripts", "^&#.", "comma-separated symbol scripts")
	ensembleCmd.Flags().StringVar(&ensSeeds, "seeds", "1,2,3,4,5", "comma-separated seeds")
	ensembleCmd.Flags().IntVar(&ensWorkers, "workers", 4, "worker pool size")
	ensembleCmd.Flags().StringVar(&ensConfig, "config", "", "path to a JSON base config file")
	ensembleCmd.Flags().IntVar(&ensSteps, "steps", detector.DefaultConfig().Steps, "number of simulation steps per run")
}
