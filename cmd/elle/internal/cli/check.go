package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hciniramy/elle/internal/anomaly"
	"github.com/hciniramy/elle/internal/checker"
	"github.com/hciniramy/elle/pkg/logging"
)

const (
	exitValid   = 0
	exitInvalid = 1
	exitUnknown = 2
	exitError   = 2
)

var (
	checkModels    []string
	checkAnomalies []string
	checkTimeoutMs int
	checkJSON      bool
	checkLogJSON   bool
)

var checkCmd = &cobra.Command{
	Use:   "check <history.json>",
	Short: "Analyze a history file for consistency anomalies",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().StringSliceVar(&checkModels, "model", []string{string(checker.StrictSerializable)},
		"consistency model(s) to check against (repeatable)")
	checkCmd.Flags().StringSliceVar(&checkAnomalies, "anomaly", nil,
		"additional anomaly tag(s) to treat as prohibited (repeatable)")
	checkCmd.Flags().IntVar(&checkTimeoutMs, "cycle-search-timeout-ms", 1000,
		"wall-clock budget per SCC per spec class, in milliseconds")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false,
		"print the analysis result as JSON instead of a text summary")
	checkCmd.Flags().BoolVar(&checkLogJSON, "log-json", false,
		"emit structured logs as JSON instead of the default text handler")
}

func runCheck(cmd *cobra.Command, args []string) error {
	log := logging.Default()
	if checkLogJSON {
		log = logging.New(logging.Config{Level: logging.LevelInfo, Service: "elle", JSON: true})
	}

	h, err := loadHistory(args[0])
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}

	opts := checker.DefaultOptions()
	opts.Logger = log
	opts.CycleSearchTimeout = time.Duration(checkTimeoutMs) * time.Millisecond
	if len(checkModels) > 0 {
		opts.ConsistencyModels = make([]checker.Model, len(checkModels))
		for i, m := range checkModels {
			opts.ConsistencyModels[i] = checker.Model(m)
		}
	}
	for _, a := range checkAnomalies {
		opts.Anomalies = append(opts.Anomalies, anomaly.Tag(a))
	}

	result, err := checker.Analyze(context.Background(), h, opts)
	if err != nil {
		return fmt.Errorf("analyzing history: %w", err)
	}

	if checkJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
	} else {
		printSummary(result)
	}

	os.Exit(exitCodeFor(result.Valid))
	return nil
}

func exitCodeFor(v checker.Valid) int {
	switch v {
	case checker.ValidTrue:
		return exitValid
	case checker.ValidFalse:
		return exitInvalid
	default:
		return exitUnknown
	}
}

func printSummary(result *checker.Result) {
	fmt.Printf("valid: %s\n", result.Valid)
	if len(result.AnomalyTypes) == 0 {
		fmt.Println("no anomalies found")
		return
	}
	fmt.Println("anomaly_types:")
	for _, tag := range result.AnomalyTypes {
		fmt.Printf("  %s (%d)\n", tag, len(result.Anomalies[tag]))
	}
	if len(result.ImpossibleModels) > 0 {
		fmt.Printf("impossible_models: %v\n", result.ImpossibleModels)
	}
}
