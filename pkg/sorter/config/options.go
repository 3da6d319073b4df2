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

package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/spf13/pflag"
	uberzap "go.uber.org/zap"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/common/observability/logging"
)

const (
	DefaultMetricsPort  = 9090
	DefaultTimeScale    = 1.0
	ZapLogLevelFlagName = "zap-log-level"
)

// Options contains the command-line configuration for the sorter.
type Options struct {
	//
	// Simulation.
	//
	ConfigFile    string        // Path of the topology description.
	Duration      time.Duration // Overrides the topology's run duration when non-zero.
	TimeScale     float64       // Multiplies every simulated delay and the run duration.
	StrictRouting bool          // Drop items whose destination cannot be resolved instead of forwarding them.
	//
	// Diagnostics.
	//
	LogVerbosity  int         // Number for the log level verbosity.
	ZapOptions    zap.Options // Zap logging options.
	EnableMetrics bool        // Serve Prometheus metrics while the simulation runs.
	MetricsPort   int         // The metrics port.
	EnablePprof   bool        // Enables pprof handlers on the metrics server.

	// internal
	fs *pflag.FlagSet // FlagSet used in AddFlags() and consulted in Complete()
}

// NewOptions returns a new Options struct initialized with default values.
func NewOptions() *Options {
	return &Options{
		TimeScale:    DefaultTimeScale,
		LogVerbosity: logging.DEFAULT,
		ZapOptions:   zap.Options{Development: true},
		MetricsPort:  DefaultMetricsPort,
	}
}

// AddFlags binds the Options fields to command-line flags on the given FlagSet.
func (opts *Options) AddFlags(fs *pflag.FlagSet) {
	if fs == nil {
		fs = pflag.CommandLine
	}
	opts.fs = fs

	fs.StringVarP(&opts.ConfigFile, "config", "c", opts.ConfigFile,
		"Path of the topology description (legacy text format, or .yaml/.yml/.json).")
	fs.DurationVar(&opts.Duration, "duration", opts.Duration,
		"Overrides the run duration from the topology description when set.")
	fs.Float64Var(&opts.TimeScale, "time-scale", opts.TimeScale,
		"Multiplies every simulated delay and the run duration. 1 runs in real time.")
	fs.BoolVar(&opts.StrictRouting, "strict-routing", opts.StrictRouting,
		"Drop items whose destination cannot be resolved instead of forwarding them to the first output conveyor.")
	fs.BoolVar(&opts.EnableMetrics, "enable-metrics", opts.EnableMetrics,
		"Serve Prometheus metrics while the simulation runs.")
	fs.IntVar(&opts.MetricsPort, "metrics-port", opts.MetricsPort,
		"The metrics port.")
	fs.BoolVar(&opts.EnablePprof, "enable-pprof", opts.EnablePprof,
		"Enables pprof handlers on the metrics server.")
	fs.IntVarP(&opts.LogVerbosity, "v", "v", opts.LogVerbosity,
		"Number for the log level verbosity.")

	// Bind zap flags (zap expects a standard Go FlagSet; pflag.FlagSet is not compatible).
	gofs := flag.NewFlagSet("zap", flag.ExitOnError)
	opts.ZapOptions.BindFlags(gofs)
	fs.AddGoFlagSet(gofs)
}

// Complete performs post-processing of parsed command-line arguments.
func (opts *Options) Complete() error {
	if opts.fs == nil {
		return nil
	}
	// Derive the zap log level from the -v flag when --zap-log-level is not set explicitly.
	zapLogLevelFlag := opts.fs.Lookup(ZapLogLevelFlagName)
	if zapLogLevelFlag != nil && !zapLogLevelFlag.Changed {
		opts.ZapOptions.Level = uberzap.NewAtomicLevelAt(logging.LevelFromVerbosity(opts.LogVerbosity))
		zapLogLevelFlag.Changed = true
	}
	return nil
}

// Validate checks the Options for invalid or conflicting values.
func (opts *Options) Validate() error {
	if opts.ConfigFile == "" {
		return errors.New("flag \"config\" is required")
	}
	if opts.Duration < 0 {
		return fmt.Errorf("invalid value %v for flag %q: must be >= 0", opts.Duration, "duration")
	}
	if opts.TimeScale <= 0 {
		return fmt.Errorf("invalid value %v for flag %q: must be > 0", opts.TimeScale, "time-scale")
	}
	if opts.EnableMetrics && (opts.MetricsPort < 1 || opts.MetricsPort > 65535) {
		return fmt.Errorf("invalid value %d for flag %q: must be between 1 and 65535", opts.MetricsPort, "metrics-port")
	}
	if opts.EnablePprof && !opts.EnableMetrics {
		return fmt.Errorf("flag %q requires %q", "enable-pprof", "enable-metrics")
	}
	if opts.LogVerbosity < 0 {
		return fmt.Errorf("invalid value %d for flag %q: must be >= 0", opts.LogVerbosity, "v")
	}
	return nil
}

// ConfigOptions translates the command-line options into machine configuration options.
func (opts *Options) ConfigOptions() []ConfigOption {
	out := make([]ConfigOption, 0, 2)
	if opts.StrictRouting {
		out = append(out, WithStrictRouting(true))
	}
	if opts.TimeScale != DefaultTimeScale {
		out = append(out, WithTimeScale(opts.TimeScale))
	}
	return out
}
