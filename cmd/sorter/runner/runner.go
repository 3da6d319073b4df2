/*
Copyright 2025 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/utils/clock"
	ctrl "sigs.k8s.io/controller-runtime"
	ctrlmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"

	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/internal/runnable"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/common/observability/logging"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/common/observability/profiling"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/config"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/machine"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/metrics"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/report"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/topology"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/version"
)

var setupLog = ctrl.Log.WithName("setup")

// envFlags maps environment variables to the run flags they soft-override. Flags given on the command line win.
var envFlags = map[string]string{
	"SORTER_CONFIG":         "config",
	"SORTER_DURATION":       "duration",
	"SORTER_TIME_SCALE":     "time-scale",
	"SORTER_STRICT_ROUTING": "strict-routing",
	"SORTER_METRICS_PORT":   "metrics-port",
}

// NewRunner initializes a new sorter Runner and returns its pointer.
func NewRunner() *Runner {
	return &Runner{
		opts:  config.NewOptions(),
		out:   os.Stdout,
		clock: clock.RealClock{},
	}
}

// Runner wires the command line to a sorting machine.
type Runner struct {
	opts  *config.Options
	out   io.Writer
	clock clock.WithTicker
}

// WithOutput redirects the human-readable reports, which go to stdout by default.
func (r *Runner) WithOutput(w io.Writer) *Runner {
	r.out = w
	return r
}

// WithClock replaces the clock shared by the run timer, the interim reports and every agent.
func (r *Runner) WithClock(clk clock.WithTicker) *Runner {
	r.clock = clk
	return r
}

// Command builds the root command with its run, validate and version subcommands.
func (r *Runner) Command() *cobra.Command {
	root := &cobra.Command{
		Use:          "sorter",
		Short:        "Simulates a present-sorting machine",
		Long:         "Feeds presents from hoppers over conveyor belts and turntables into sacks, reporting progress as it goes.",
		SilenceUsage: true,
	}
	root.SetOut(r.out)

	run := &cobra.Command{
		Use:   "run",
		Short: "Run a machine described by a topology file",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return bindEnvToFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.Run(cmd.Context())
		},
	}
	r.opts.AddFlags(run.Flags())

	validate := &cobra.Command{
		Use:   "validate FILE...",
		Short: "Check topology files without running them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.Validate(args...)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(r.out, version.Get())
			return err
		},
	}

	root.AddCommand(run, validate, versionCmd)
	return root
}

func bindEnvToFlags(fs *pflag.FlagSet) error {
	for env, name := range envFlags {
		v, ok := os.LookupEnv(env)
		if !ok || v == "" || fs.Changed(name) {
			continue
		}
		if err := fs.Set(name, v); err != nil {
			return fmt.Errorf("environment variable %s: %w", env, err)
		}
	}
	return nil
}

// Validate loads and checks every file, printing a summary line for each valid one. It returns every failure.
func (r *Runner) Validate(paths ...string) error {
	var errs []error
	for _, path := range paths {
		t, err := loadTopology(path)
		if err != nil {
			errs = append(errs, err)
			fmt.Fprintf(r.out, "%s: invalid\n%v\n", path, err)
			continue
		}
		fmt.Fprintf(r.out, "%s: ok (%s)\n", path, t.Summary())
	}
	return errors.Join(errs...)
}

func loadTopology(path string) (*topology.Topology, error) {
	t, err := topology.Load(path)
	if err != nil {
		return nil, err
	}
	if err := topology.Validate(t); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Run executes one simulation with the parsed options and blocks until the machine has shut down.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.opts.Complete(); err != nil {
		return err
	}
	if err := r.opts.Validate(); err != nil {
		setupLog.Error(err, "Failed to validate flags")
		return err
	}
	logging.InitLogging(&r.opts.ZapOptions)
	setupLog.Info("Sorter build", "commit-sha", version.CommitSHA, "build-ref", version.BuildRef)

	t, err := loadTopology(r.opts.ConfigFile)
	if err != nil {
		setupLog.Error(err, "Failed to load topology", "path", r.opts.ConfigFile)
		return err
	}
	setupLog.Info("Topology loaded", "summary", t.Summary())

	cfg, err := config.NewConfigFromEnv(setupLog, r.opts.ConfigOptions()...)
	if err != nil {
		setupLog.Error(err, "Failed to build machine configuration")
		return err
	}

	m, err := topology.Build(t, cfg, ctrl.Log.WithName("sorter"), machine.WithClock(r.clock))
	if err != nil {
		setupLog.Error(err, "Failed to build machine")
		return err
	}

	serveCtx, stopServing := context.WithCancel(ctx)
	defer stopServing()
	g, serveCtx := errgroup.WithContext(serveCtx)
	if r.opts.EnableMetrics {
		srv := r.metricsServer()
		g.Go(func() error {
			return runnable.HTTPServer("metrics", srv).Start(serveCtx)
		})
	}

	runErr := r.simulate(ctx, m, r.duration(t))
	stopServing()
	if err := g.Wait(); err != nil {
		setupLog.Error(err, "Metrics server failed")
		return errors.Join(runErr, err)
	}
	return runErr
}

func (r *Runner) duration(t *topology.Topology) time.Duration {
	if r.opts.Duration > 0 {
		return r.opts.Duration
	}
	return time.Duration(float64(t.Duration()) * r.opts.TimeScale)
}

func (r *Runner) metricsServer() *http.Server {
	metrics.Register()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(ctrlmetrics.Registry, promhttp.HandlerOpts{}))
	if r.opts.EnablePprof {
		setupLog.Info("Enabling pprof handlers")
		profiling.SetupPprofHandlers(mux)
	}
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", r.opts.MetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// simulate starts m, reports progress until the run duration elapses or ctx is cancelled, then times out the
// feeders and waits for every agent to drain.
func (r *Runner) simulate(ctx context.Context, m *machine.Machine, d time.Duration) error {
	log := setupLog.WithValues("runID", m.RunID())

	if err := report.Started(r.out, m.Snapshot()); err != nil {
		return err
	}
	// The machine gets its own context: a signal times the feeders out through RequestTimeout below, and the
	// routers still drain what is already on the belts.
	if err := m.Start(context.WithoutCancel(ctx)); err != nil {
		log.Error(err, "Failed to start machine")
		return err
	}

	reportCtx, stopReports := context.WithCancel(ctx)
	var reports wait.Group
	reports.StartWithContext(reportCtx, func(ctx context.Context) {
		r.interimReports(ctx, m, log)
	})

	timer := r.clock.NewTimer(d)
	select {
	case <-timer.C():
		log.Info("Run duration elapsed", "duration", d)
	case <-ctx.Done():
		timer.Stop()
		log.Info("Interrupted, stopping input early")
	case <-m.Done():
		timer.Stop()
		log.Info("Machine finished before the run duration elapsed")
	}
	stopReports()
	reports.Wait()

	m.RequestTimeout()
	if err := report.InputStopped(r.out, m.Snapshot()); err != nil {
		return err
	}
	if err := m.AwaitCompletion(context.Background()); err != nil {
		return err
	}
	if err := report.ShutdownComplete(r.out, m.Snapshot()); err != nil {
		return err
	}

	s := m.Snapshot()
	if s.Missing() != s.Dropped() {
		log.Error(nil, "Item accounting does not balance", "missing", s.Missing(), "dropped", s.Dropped())
	}
	return report.Final(r.out, s)
}

// interimReports prints a report every ReportInterval until ctx is done.
func (r *Runner) interimReports(ctx context.Context, m *machine.Machine, log logr.Logger) {
	ticker := r.clock.NewTicker(m.Config().ReportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if err := report.Interim(r.out, m.Snapshot()); err != nil {
				log.Error(err, "Failed to write interim report")
				return
			}
		}
	}
}
