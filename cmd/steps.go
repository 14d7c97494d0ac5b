package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/caltech-netlab/gym-acnportal/api/steps"
	"github.com/caltech-netlab/gym-acnportal/core/steplog"
	"github.com/caltech-netlab/gym-acnportal/infra/logger"
)

var (
	stepsEpisode    string
	stepsInfeasible bool
	stepsServe      string
	stepsToken      string
)

var stepsCmd = &cobra.Command{
	Use:   "steps",
	Short: "Query the step log or serve it over HTTP",
	RunE:  runSteps,
}

func init() {
	stepsCmd.Flags().StringVar(&stepsEpisode, "episode", "", "only records of this episode")
	stepsCmd.Flags().BoolVar(&stepsInfeasible, "infeasible", false, "only infeasible steps")
	stepsCmd.Flags().StringVar(&stepsServe, "serve", "", "serve GET /api/steps on this address instead of printing")
	stepsCmd.Flags().StringVar(&stepsToken, "token", "", "bearer token required by the HTTP API")
	rootCmd.AddCommand(stepsCmd)
}

func runSteps(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.StepLog.Enabled() {
		return fmt.Errorf("steplog.path is not configured")
	}
	store, err := steplog.NewJSONLStore(cfg.StepLog.Path)
	if err != nil {
		return err
	}
	if stepsServe != "" {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serveSteps(ctx, stepsServe, store)
	}
	q := steplog.Query{EpisodeID: stepsEpisode, InfeasibleOnly: stepsInfeasible}
	return printSteps(cmd.Context(), cmd.OutOrStdout(), store, q)
}

func printSteps(ctx context.Context, w io.Writer, store steplog.Store, q steplog.Query) error {
	if ctx == nil {
		ctx = context.Background()
	}
	recs, err := store.Query(ctx, q)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

func serveSteps(ctx context.Context, addr string, store steplog.Store) error {
	log := logger.New("steps-api")
	mux := http.NewServeMux()
	mux.Handle("/api/steps", steps.NewHandler(store, stepsToken))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("steps api shutdown: %v", err)
		}
		cancel()
	}()
	log.Infof("serving step log on %s/api/steps", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
