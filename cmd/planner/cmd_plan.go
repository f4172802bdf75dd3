package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/warp/task-planner/api"
	"github.com/warp/task-planner/factory"
	"github.com/warp/task-planner/planning"
)

var (
	planSnapshot string
	planNow      string
	planDays     bool
	planStrict   bool
)

var errInfeasible = errors.New("some tasks could not be fully scheduled")

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Plan a snapshot file and print the result",
	Long: `Plan the tasks of a JSON or YAML snapshot document and print the plan as JSON.

The snapshot carries tasks, busy time, constraints and optionally the
planning instant and timezone, so the same file always yields the same plan.

Examples:
  # Plan a week, pinned to the "now" in the file
  planner plan --snapshot week.yaml

  # Override the planning instant and group by day
  planner plan --snapshot week.yaml --now 2025-03-10T07:00:00+01:00 --days

  # Exit with status 2 when a task doesn't fit (for scripts)
  planner plan --snapshot week.yaml --strict
`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planSnapshot, "snapshot", "s", "", "Snapshot file (JSON or YAML), - for stdin")
	planCmd.Flags().StringVar(&planNow, "now", "", "Planning instant (RFC 3339), overrides the snapshot")
	planCmd.Flags().BoolVar(&planDays, "days", false, "Group assignments by day")
	planCmd.Flags().BoolVar(&planStrict, "strict", false, "Exit with status 2 if any task is infeasible")
	_ = planCmd.MarkFlagRequired("snapshot")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	var data []byte
	var err error
	if planSnapshot == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(planSnapshot)
	}
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	snap, err := factory.ParseSnapshot(data, time.Now())
	if err != nil {
		return err
	}
	if planNow != "" {
		now, err := time.Parse(time.RFC3339, planNow)
		if err != nil {
			return fmt.Errorf("invalid --now: %w", err)
		}
		snap.Now = now
	}

	planner := &planning.Planner{Logger: logger}
	result, err := planner.Plan(snap)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if planDays {
		err = enc.Encode(api.NewDayDTOs(result, snap.Location))
	} else {
		err = enc.Encode(api.NewPlanDTO(result, snap.Location))
	}
	if err != nil {
		return err
	}

	if len(result.Infeasible) > 0 {
		logger.Warn().Int("infeasible", len(result.Infeasible)).Msg("plan incomplete")
		if planStrict {
			fmt.Fprintf(os.Stderr, "error: %v\n", errInfeasible)
			os.Exit(2)
		}
	}
	return nil
}
