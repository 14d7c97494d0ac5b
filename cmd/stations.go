package cmd

import (
	"fmt"
	"io"
	"math"

	"github.com/spf13/cobra"

	"github.com/caltech-netlab/gym-acnportal/config"
	"github.com/caltech-netlab/gym-acnportal/core/model"
)

var stationsCmd = &cobra.Command{
	Use:   "stations",
	Short: "List stations and their allowable pilot signals",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return listStations(cmd.OutOrStdout(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(stationsCmd)
}

func listStations(w io.Writer, cfg *config.Config) error {
	n, err := cfg.Network.Build()
	if err != nil {
		return err
	}
	for _, id := range n.StationIDs() {
		p, err := n.AllowablePilotSignals(id)
		if err != nil {
			return err
		}
		v, _ := n.Voltage(id)
		_, _ = fmt.Fprintf(w, "%s\t%.0fV\t%s\n", id, v, describePilots(p))
	}
	return nil
}

func describePilots(p model.PilotSignals) string {
	if p.Continuous {
		hi := p.MaxPilot()
		if math.IsInf(hi, 1) {
			return fmt.Sprintf("[%g, inf)", p.MinPilot())
		}
		return fmt.Sprintf("[%g, %g]", p.MinPilot(), hi)
	}
	return fmt.Sprintf("%v", p.Rates)
}
