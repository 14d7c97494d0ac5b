package cmd

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/caltech-netlab/gym-acnportal/app"
	"github.com/caltech-netlab/gym-acnportal/core/env"
	"github.com/caltech-netlab/gym-acnportal/core/metrics"
	"github.com/caltech-netlab/gym-acnportal/core/policy"
	"github.com/caltech-netlab/gym-acnportal/infra/logger"
	"github.com/caltech-netlab/gym-acnportal/pkg/export"
)

var (
	runPolicy      string
	runEpisodes    int
	runExport      string
	runMetricsAddr string
	runFollow      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive episodes with a baseline policy",
	RunE:  runEpisodesCmd,
}

func init() {
	runCmd.Flags().StringVarP(&runPolicy, "policy", "p", "max", "policy: zero, max or random")
	runCmd.Flags().IntVarP(&runEpisodes, "episodes", "n", 0, "number of episodes, 0 uses the configuration")
	runCmd.Flags().StringVar(&runExport, "export", "", "write the last episode's charging history to a .csv or .json file")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	runCmd.Flags().BoolVar(&runFollow, "follow", false, "print every step event")
	rootCmd.AddCommand(runCmd)
}

// historyEngine is implemented by engines recording their history.
type historyEngine interface {
	ChargingRates() mat.Matrix
	PilotSignals() mat.Matrix
}

func runEpisodesCmd(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := policy.New(runPolicy, rand.New(rand.NewSource(cfg.Simulation.Seed)))
	if err != nil {
		return err
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	if runMetricsAddr != "" {
		svc.SetPrometheusAddr(runMetricsAddr)
	}
	if runFollow {
		sub := svc.Bus.SubscribeBuffered(256)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for ev := range sub {
				printStep(cmd.OutOrStdout(), ev)
			}
		}()
		defer func() {
			svc.Bus.Unsubscribe(sub)
			<-done
		}()
	}

	episodes := runEpisodes
	if episodes <= 0 {
		episodes = cfg.Simulation.Episodes
	}
	sums, err := svc.Run(ctx, p, episodes)
	if err != nil {
		return err
	}
	for _, s := range sums {
		printSummary(cmd.OutOrStdout(), s)
	}
	if runExport != "" {
		return exportHistory(runExport, svc.Env)
	}
	return nil
}

func printStep(w io.Writer, ev metrics.StepEvent) {
	_, _ = fmt.Fprintf(w, "step %d t=%d reward=%.3f feasible=%t rate=%.1fA active=%d\n",
		ev.Step, ev.Iteration, ev.Reward, ev.Feasible, ev.ChargingRate, ev.ActiveStations)
}

func printSummary(w io.Writer, s metrics.EpisodeSummary) {
	status := "done"
	if s.Stalled {
		status = "stalled"
	}
	_, _ = fmt.Fprintf(w, "episode %s %s: steps=%d iterations=%d reward=%.3f infeasible=%d energy=%.3f/%.3f kWh\n",
		s.EpisodeID, status, s.Steps, s.Iterations, s.TotalReward, s.InfeasibleSteps, s.EnergyDelivered, s.EnergyRequested)
}

func exportHistory(path string, e *env.SimEnv) error {
	t := e.Interface()
	if t == nil {
		return fmt.Errorf("no episode to export")
	}
	eng, ok := e.Training().Engine().(historyEngine)
	if !ok {
		return fmt.Errorf("engine does not record its history")
	}
	h, err := export.NewHistory(t.StationIDs(), eng.ChargingRates(), eng.PilotSignals())
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = export.WriteJSON(f, h)
	default:
		err = export.WriteCSV(f, h)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
