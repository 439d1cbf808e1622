package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/foundups/pqn-detector/internal/detector"
	"github.com/foundups/pqn-detector/internal/symbols"
)

const maxPrintedEvents = 1000

var (
	runScript string
	runRandom bool
	runConfig string
	runSteps  int
	runDt     float64
	runSeed   int64
	runGuard  bool
)

// runOutput is the JSON document printed to stdout after a run. Events
// are truncated to the first maxPrintedEvents; the counts are not.
type runOutput struct {
	Config     detector.Config  `json:"config"`
	Script     string           `json:"script"`
	Steps      int              `json:"steps"`
	Events     []detector.Event `json:"events"`
	EventCount int              `json:"event_count"`
	Truncated  bool             `json:"truncated,omitempty"`
	FlagCounts map[string]int   `json:"flag_counts"`
	ElapsedMs  float64          `json:"elapsed_ms"`
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a single detector run and print events as JSON",
	Long: `Executes one simulation run and prints the flagged events to stdout
as a JSON document. The script cycles through its symbols, one per step:

  ^  entangle drive    &  cohere drive
  #  dephasing burst   .  rest

With --random the script is ignored and symbols are drawn uniformly
from the alphabet using the run seed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRunConfig(cmd)
		if err != nil {
			return err
		}

		var src symbols.Source
		if runRandom {
			src = symbols.NewRandomSource(cfg.Seed, symbols.Alphabet)
		} else {
			src, err = symbols.NewScriptSource(runScript)
			if err != nil {
				return err
			}
		}

		drv, err := detector.New(cfg, log)
		if err != nil {
			return err
		}

		result, err := drv.Run(cmd.Context(), src)
		if err != nil {
			return err
		}

		out := runOutput{
			Config:     cfg,
			Script:     runScript,
			Steps:      result.Steps,
			Events:     result.Events,
			EventCount: len(result.Events),
			FlagCounts: result.FlagCounts,
			ElapsedMs:  float64(result.Elapsed.Microseconds()) / 1000,
		}
		if runRandom {
			out.Script = ""
		}
		if len(out.Events) > maxPrintedEvents {
			out.Events = out.Events[:maxPrintedEvents]
			out.Truncated = true
		}
		if out.Events == nil {
			out.Events = []detector.Event{}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

// loadRunConfig builds the run configuration from defaults, an optional
// config file, and explicit flag overrides, in that order.
func loadRunConfig(cmd *cobra.Command) (detector.Config, error) {
	cfg := detector.DefaultConfig()

	if runConfig != "" {
		data, err := os.ReadFile(runConfig)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if cmd.Flags().Changed("steps") {
		cfg.Steps = runSteps
	}
	if cmd.Flags().Changed("dt") {
		cfg.Dt = runDt
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = runSeed
	}
	if cmd.Flags().Changed("guardrail") {
		cfg.Guardrail = runGuard
	}
	return cfg, nil
}

func init() {
	runCmd.Flags().StringVar(&runScript, "script", "^&#.", "symbol script to cycle through")
	runCmd.Flags().BoolVar(&runRandom, "random", false, "draw symbols randomly instead of using the script")
	runCmd.Flags().StringVar(&runConfig, "config", "", "path to a JSON config file (defaults apply to omitted fields)")
	runCmd.Flags().IntVar(&runSteps, "steps", detector.DefaultConfig().Steps, "number of simulation steps")
	runCmd.Flags().Float64Var(&runDt, "dt", detector.DefaultConfig().Dt, "nominal time step in seconds")
	runCmd.Flags().Int64Var(&runSeed, "seed", detector.DefaultConfig().Seed, "noise and random-script seed")
	runCmd.Flags().BoolVar(&runGuard, "guardrail", false, "substitute cohere for entangle while paradox risk is active")
}
