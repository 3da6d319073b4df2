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

// Package config holds the simulated timing configuration shared by every agent of the sorting machine, and the
// command-line options of the sorter binary.
package config

import (
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/common/util/env"
)

const (
	// defaultBaseFeedInterval is the pause after each deposit of a rate-1 feeder.
	defaultBaseFeedInterval = 1 * time.Second
	// defaultRotationUnit is the time a router needs to turn through 90 degrees.
	defaultRotationUnit = 500 * time.Millisecond
	// defaultMovementDelay is the time to move an item onto or off a router.
	defaultMovementDelay = 750 * time.Millisecond
	// defaultBinReplaceDelay is the time to swap a full bin for an empty one.
	defaultBinReplaceDelay = 100 * time.Millisecond
	// defaultReportInterval is the period of the interim report.
	defaultReportInterval = 10 * time.Second
)

// Environment variables consulted by NewConfigFromEnv.
const (
	EnvBaseFeedInterval = "SORTER_BASE_FEED_INTERVAL"
	EnvRotationUnit     = "SORTER_ROTATION_UNIT"
	EnvMovementDelay    = "SORTER_MOVEMENT_DELAY"
	EnvBinReplaceDelay  = "SORTER_BIN_REPLACE_DELAY"
	EnvReportInterval   = "SORTER_REPORT_INTERVAL"
	EnvStrictRouting    = "SORTER_STRICT_ROUTING"
)

// Config holds the timing and routing behaviour of a machine.
// A zero duration disables the corresponding simulated delay, which tests rely on.
type Config struct {
	// BaseFeedInterval is divided by a feeder's rate to obtain its pause between deposits.
	BaseFeedInterval time.Duration

	// RotationUnit is the cost of one 90 degree turn. Turning between ports of equal parity is free.
	RotationUnit time.Duration

	// MovementDelay is paid once when an item is pulled onto a router and once when it leaves.
	MovementDelay time.Duration

	// BinReplaceDelay is paid whenever a full bin container is replaced.
	BinReplaceDelay time.Duration

	// ReportInterval is the period of interim reports. It must be positive.
	ReportInterval time.Duration

	// TimeScale is the product of every factor applied with WithTimeScale. Reports divide elapsed time by it to
	// print simulated seconds.
	TimeScale float64

	// StrictRouting makes a router drop, rather than forward to its first output, an item whose destination it
	// cannot resolve.
	StrictRouting bool
}

// ConfigOption is a functional option for configuring a machine.
type ConfigOption func(*Config)

// NewConfig creates a new Config with the given options, applying defaults and validation.
func NewConfig(opts ...ConfigOption) (*Config, error) {
	c := &Config{
		BaseFeedInterval: defaultBaseFeedInterval,
		RotationUnit:     defaultRotationUnit,
		MovementDelay:    defaultMovementDelay,
		BinReplaceDelay:  defaultBinReplaceDelay,
		ReportInterval:   defaultReportInterval,
		TimeScale:        1,
	}

	for _, opt := range opts {
		opt(c)
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// NewConfigFromEnv creates a Config whose defaults are first overridden from the environment and then by opts.
func NewConfigFromEnv(logger logr.Logger, opts ...ConfigOption) (*Config, error) {
	envOpts := []ConfigOption{
		WithBaseFeedInterval(env.GetEnvDuration(EnvBaseFeedInterval, defaultBaseFeedInterval, logger)),
		WithRotationUnit(env.GetEnvDuration(EnvRotationUnit, defaultRotationUnit, logger)),
		WithMovementDelay(env.GetEnvDuration(EnvMovementDelay, defaultMovementDelay, logger)),
		WithBinReplaceDelay(env.GetEnvDuration(EnvBinReplaceDelay, defaultBinReplaceDelay, logger)),
		WithReportInterval(env.GetEnvDuration(EnvReportInterval, defaultReportInterval, logger)),
		WithStrictRouting(env.GetEnvBool(EnvStrictRouting, false, logger)),
	}
	return NewConfig(append(envOpts, opts...)...)
}

// WithBaseFeedInterval sets the pause of a rate-1 feeder.
func WithBaseFeedInterval(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.BaseFeedInterval = d
	}
}

// WithRotationUnit sets the cost of a 90 degree turn.
func WithRotationUnit(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.RotationUnit = d
	}
}

// WithMovementDelay sets the cost of moving an item on or off a router.
func WithMovementDelay(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.MovementDelay = d
	}
}

// WithBinReplaceDelay sets the cost of replacing a full bin.
func WithBinReplaceDelay(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.BinReplaceDelay = d
	}
}

// WithReportInterval sets the interim report period.
func WithReportInterval(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.ReportInterval = d
	}
}

// WithStrictRouting enables dropping items with unresolvable destinations.
func WithStrictRouting(strict bool) ConfigOption {
	return func(c *Config) {
		c.StrictRouting = strict
	}
}

// WithTimeScale multiplies every duration configured so far by factor. Apply it last.
func WithTimeScale(factor float64) ConfigOption {
	return func(c *Config) {
		scaled := c.Scaled(factor)
		*c = *scaled
	}
}

// Scaled returns a copy of c with every duration and the time scale multiplied by factor.
func (c *Config) Scaled(factor float64) *Config {
	scale := func(d time.Duration) time.Duration {
		return time.Duration(float64(d) * factor)
	}
	out := c.deepCopy()
	out.BaseFeedInterval = scale(c.BaseFeedInterval)
	out.RotationUnit = scale(c.RotationUnit)
	out.MovementDelay = scale(c.MovementDelay)
	out.BinReplaceDelay = scale(c.BinReplaceDelay)
	out.ReportInterval = scale(c.ReportInterval)
	out.TimeScale = c.TimeScale * factor
	return out
}

// FeedInterval returns the pause between deposits of a feeder running at rate.
func (c *Config) FeedInterval(rate int) time.Duration {
	if rate < 1 {
		rate = 1
	}
	return c.BaseFeedInterval / time.Duration(rate)
}

// validate checks the configuration for validity.
func (c *Config) validate() error {
	if c.BaseFeedInterval < 0 {
		return fmt.Errorf("BaseFeedInterval cannot be negative, but got %v", c.BaseFeedInterval)
	}
	if c.RotationUnit < 0 {
		return fmt.Errorf("RotationUnit cannot be negative, but got %v", c.RotationUnit)
	}
	if c.MovementDelay < 0 {
		return fmt.Errorf("MovementDelay cannot be negative, but got %v", c.MovementDelay)
	}
	if c.BinReplaceDelay < 0 {
		return fmt.Errorf("BinReplaceDelay cannot be negative, but got %v", c.BinReplaceDelay)
	}
	if c.TimeScale <= 0 {
		return fmt.Errorf("TimeScale must be positive, but got %v", c.TimeScale)
	}
	if c.ReportInterval <= 0 {
		return fmt.Errorf("ReportInterval must be positive, but got %v", c.ReportInterval)
	}
	return nil
}

// deepCopy creates a deep copy of the Config.
func (c *Config) deepCopy() *Config {
	if c == nil {
		return nil
	}
	out := *c
	return &out
}
