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
	"testing"
	"time"

	"github.com/spf13/pflag"
	uberzap "go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewOptionsDefaults(t *testing.T) {
	opts := NewOptions()

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"ConfigFile", opts.ConfigFile, ""},
		{"Duration", opts.Duration, time.Duration(0)},
		{"TimeScale", opts.TimeScale, DefaultTimeScale},
		{"StrictRouting", opts.StrictRouting, false},
		{"EnableMetrics", opts.EnableMetrics, false},
		{"MetricsPort", opts.MetricsPort, DefaultMetricsPort},
		{"EnablePprof", opts.EnablePprof, false},
		{"LogVerbosity", opts.LogVerbosity, 2}, // logging.DEFAULT
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("NewOptions().%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestAddFlagsOverridesDefaults(t *testing.T) {
	opts := NewOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	opts.AddFlags(fs)

	args := []string{
		"--config", "machine.yaml",
		"--duration", "30s",
		"--time-scale", "0.1",
		"--strict-routing",
		"--enable-metrics",
		"--metrics-port", "9191",
		"--enable-pprof",
		"-v", "4",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Failed to parse flags: %v", err)
	}

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"ConfigFile", opts.ConfigFile, "machine.yaml"},
		{"Duration", opts.Duration, 30 * time.Second},
		{"TimeScale", opts.TimeScale, 0.1},
		{"StrictRouting", opts.StrictRouting, true},
		{"EnableMetrics", opts.EnableMetrics, true},
		{"MetricsPort", opts.MetricsPort, 9191},
		{"EnablePprof", opts.EnablePprof, true},
		{"LogVerbosity", opts.LogVerbosity, 4},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("after Parse, %s = %v, want %v", c.name, c.got, c.want)
		}
	}
	if err := opts.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestCompleteDerivesZapLevelFromVerbosity(t *testing.T) {
	opts := NewOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	opts.AddFlags(fs)
	if err := fs.Parse([]string{"--config", "x", "-v", "5"}); err != nil {
		t.Fatalf("Failed to parse flags: %v", err)
	}
	if err := opts.Complete(); err != nil {
		t.Fatalf("Complete() = %v", err)
	}

	lvl, ok := opts.ZapOptions.Level.(uberzap.AtomicLevel)
	if !ok {
		t.Fatalf("ZapOptions.Level has type %T, want zap.AtomicLevel", opts.ZapOptions.Level)
	}
	if lvl.Level() != zapcore.Level(-5) {
		t.Errorf("zap level = %v, want -5", lvl.Level())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Options)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Options) {}},
		{name: "missing config", mutate: func(o *Options) { o.ConfigFile = "" }, wantErr: true},
		{name: "negative duration", mutate: func(o *Options) { o.Duration = -time.Second }, wantErr: true},
		{name: "zero time scale", mutate: func(o *Options) { o.TimeScale = 0 }, wantErr: true},
		{name: "metrics port out of range", mutate: func(o *Options) {
			o.EnableMetrics = true
			o.MetricsPort = 70000
		}, wantErr: true},
		{name: "metrics port ignored when metrics disabled", mutate: func(o *Options) { o.MetricsPort = 0 }},
		{name: "pprof without metrics", mutate: func(o *Options) { o.EnablePprof = true }, wantErr: true},
		{name: "negative verbosity", mutate: func(o *Options) { o.LogVerbosity = -1 }, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts := NewOptions()
			opts.ConfigFile = "machine.txt"
			tc.mutate(opts)
			err := opts.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestConfigOptions(t *testing.T) {
	opts := NewOptions()
	if got := len(opts.ConfigOptions()); got != 0 {
		t.Errorf("default ConfigOptions() returned %d options, want 0", got)
	}

	opts.StrictRouting = true
	opts.TimeScale = 0.5
	cfg, err := NewConfig(opts.ConfigOptions()...)
	if err != nil {
		t.Fatalf("NewConfig() = %v", err)
	}
	if !cfg.StrictRouting || cfg.RotationUnit != 250*time.Millisecond {
		t.Errorf("unexpected config %+v", *cfg)
	}
}
