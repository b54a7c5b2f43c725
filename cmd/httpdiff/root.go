// Package main is the httpdiff CLI entrypoint: it reads a config file and
// optional user-data file, runs the comparison engine, and prints a JSON
// execution report. Grounded on the teacher's cli/cmd/root.go +
// cli/cmd/build.go for the overall cobra command shape (a root command with
// flag-bound options, delegating the real work to internal packages), swapped
// from "build a deployable binary" to "run a comparison and report".
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/BDNK1/httpdiff/analysis"
	"github.com/BDNK1/httpdiff/config"
	"github.com/BDNK1/httpdiff/httpclient"
	"github.com/BDNK1/httpdiff/runner"
	"github.com/BDNK1/httpdiff/userdata"
	"github.com/spf13/cobra"
)

var (
	userDataPath string
	envFilter    []string
	routeFilter  []string
	quiet        bool
)

var rootCmd = &cobra.Command{
	Use:   "httpdiff <config-file>",
	Short: "Compare HTTP responses across environments",
	Long: `httpdiff issues the same logical requests against every configured
environment, normalizes and compares the responses, and reports per-category
differences (status, headers, body).

Example:
  httpdiff config.yaml --users users.csv
  httpdiff config.yaml --env staging --env production --route health
`,
	Args: cobra.ExactArgs(1),
	RunE: runCompare,
}

func init() {
	rootCmd.Flags().StringVar(&userDataPath, "users", "", "Path to a CSV user-data file (one row per simulated user)")
	rootCmd.Flags().StringSliceVar(&envFilter, "env", nil, "Restrict the run to these environments (repeatable); default is all configured environments")
	rootCmd.Flags().StringSliceVar(&routeFilter, "route", nil, "Restrict the run to these routes (repeatable); default is all configured routes")
	rootCmd.Flags().BoolVar(&quiet, "quiet", false, "Suppress progress output on stderr")
}

func runCompare(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load(args[0])
	if err != nil {
		return err
	}

	var users []userdata.UserData
	if userDataPath != "" {
		users, err = userdata.Load(userDataPath)
		if err != nil {
			return err
		}
	} else {
		users = []userdata.UserData{userdata.New(nil, nil)}
	}

	client := httpclient.New(cfg.Global)

	var progress func(runner.ProgressSnapshot)
	if !quiet {
		progress = func(snap runner.ProgressSnapshot) {
			logger.Info("progress",
				"completed", snap.Completed,
				"total", snap.Total,
				"successful", snap.Successful,
				"failed", snap.Failed,
				"elapsed", time.Since(snap.StartTime).Round(time.Millisecond),
			)
		}
	}

	result, err := runner.Run(context.Background(), cfg, client, runner.Options{
		Environments:     envFilter,
		Routes:           routeFilter,
		Users:            users,
		ProgressCallback: progress,
		Logger:           logger,
	})
	if err != nil {
		return err
	}

	report := buildReport(result)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	// Exit 0 even when the comparison found differences or errors — a
	// completed run is a success regardless of what it found. Non-zero exit
	// is reserved for the config/I-O/argument failures already returned as
	// errors above, which cobra reports via main's os.Exit(1).
	return nil
}

// report is the top-level JSON document printed to stdout.
type report struct {
	RunID         string                  `json:"run_id"`
	Progress      runner.ProgressSnapshot `json:"progress"`
	Comparisons   []comparisonView        `json:"comparisons"`
	ExecutionErrs []runner.ExecutionError `json:"execution_errors"`
	ErrorAnalysis analysis.ErrorAnalysis  `json:"error_analysis"`
}

// comparisonView flattens diffengine.ComparisonResult into a
// JSON-marshalable shape (ComparisonResult.Differences' Payload field is
// `any`, which round-trips through encoding/json without a custom marshaler
// needed).
type comparisonView struct {
	RouteName       string         `json:"route_name"`
	UserContext     string         `json:"user_context"`
	IsIdentical     bool           `json:"is_identical"`
	HasErrors       bool           `json:"has_errors"`
	BaseEnvironment string         `json:"base_environment"`
	StatusCodes     map[string]int `json:"status_codes"`
	Differences     []differenceView `json:"differences,omitempty"`
}

type differenceView struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Payload     any    `json:"payload,omitempty"`
}

func buildReport(result *runner.ExecutionResult) report {
	views := make([]comparisonView, 0, len(result.Comparisons))
	for _, c := range result.Comparisons {
		diffs := make([]differenceView, 0, len(c.Differences))
		for _, d := range c.Differences {
			diffs = append(diffs, differenceView{
				Category:    string(d.Category),
				Description: d.Description,
				Payload:     d.Payload,
			})
		}
		views = append(views, comparisonView{
			RouteName:       c.RouteName,
			UserContext:     c.UserContext,
			IsIdentical:     c.IsIdentical,
			HasErrors:       c.HasErrors,
			BaseEnvironment: c.BaseEnvironment,
			StatusCodes:     c.StatusCodes,
			Differences:     diffs,
		})
	}

	return report{
		RunID:         result.RunID,
		Progress:      result.Progress,
		Comparisons:   views,
		ExecutionErrs: result.Errors,
		ErrorAnalysis: analysis.Analyze(result.Comparisons),
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
