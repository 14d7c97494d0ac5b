package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/caltech-netlab/gym-acnportal/config"
	"github.com/caltech-netlab/gym-acnportal/core/gym"
	"github.com/caltech-netlab/gym-acnportal/core/model"
	"github.com/caltech-netlab/gym-acnportal/infra/logger"
)

var checkSchedule string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report the feasibility of a schedule at the start of the simulation",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		schedule, err := loadSchedule(checkSchedule)
		if err != nil {
			return err
		}
		_, err = checkFeasibility(cmd.OutOrStdout(), cfg, schedule)
		return err
	},
}

func init() {
	checkCmd.Flags().StringVarP(&checkSchedule, "schedule", "s", "", "schedule file (JSON or YAML) mapping station ids to pilots")
	_ = checkCmd.MarkFlagRequired("schedule")
	rootCmd.AddCommand(checkCmd)
}

// loadSchedule reads a station id to pilot list mapping. YAML being a JSON
// superset, one decoder serves both formats.
func loadSchedule(path string) (model.Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s model.Schedule
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse schedule: %w", err)
	}
	return s, nil
}

func checkFeasibility(w io.Writer, cfg *config.Config, schedule model.Schedule) (bool, error) {
	engine, err := cfg.EngineFactory(logger.New("simulator"))()
	if err != nil {
		return false, err
	}
	t := gym.NewTrainedInterface(engine, logger.New("check"))
	evse, err := t.IsFeasibleEVSE(schedule)
	if err != nil {
		return false, err
	}
	ok, err := t.IsFeasible(schedule, model.FeasibilityOptions{})
	if err != nil {
		return false, err
	}
	_, _ = fmt.Fprintf(w, "evse feasible: %t\n", evse)
	currents := t.CurrentConstraintCurrents(schedule)
	magnitudes := t.Magnitudes()
	for k, c := range cfg.Network.Constraints {
		if k < len(currents) && k < len(magnitudes) {
			_, _ = fmt.Fprintf(w, "constraint %s: %.2f / %.2f A\n", c.ID, currents[k], magnitudes[k])
		}
	}
	_, _ = fmt.Fprintf(w, "network feasible: %t\n", engine.Network().IsFeasible(schedule, model.FeasibilityOptions{}))
	_, _ = fmt.Fprintf(w, "feasible: %t\n", ok)
	return ok, nil
}
