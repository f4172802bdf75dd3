package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/warp/task-planner/api"
	"github.com/warp/task-planner/store/sqlite"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario [id]",
	Short: "Load a demo scenario into the database",
	Long: `Reset the database and load a demo scenario, then compute its plan.

WARNING: the database is wiped first.

Run without arguments to list the scenarios.
`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScenario,
}

func init() {
	rootCmd.AddCommand(scenarioCmd)
}

func runScenario(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if len(args) == 0 {
		for _, s := range api.Scenarios() {
			fmt.Fprintf(out, "%-14s %s\n", s.ID, s.Description)
		}
		return nil
	}

	if err := loadConfig(); err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	handler := api.NewHandler(store, logger)
	handler.Location = loc
	handler.HorizonDays = cfg.HorizonDays

	id := strings.TrimSpace(args[0])
	if err := handler.LoadScenarioByID(cmd.Context(), id); err != nil {
		return err
	}
	plan, err := handler.Replan(cmd.Context())
	if err != nil {
		return err
	}

	s := plan.Result.Summary()
	fmt.Fprintf(out, "Loaded %s: %d tasks, %s of %s hours scheduled, %d infeasible\n",
		id, s.Tasks, s.ScheduledHours, s.RequestedHours, s.Infeasible)
	return nil
}
