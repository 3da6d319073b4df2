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

package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	compbasemetrics "k8s.io/component-base/metrics"
	"sigs.k8s.io/controller-runtime/pkg/metrics"

	metricsutil "github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/common/util/metrics"
)

const component = "sorter"

// Destination kinds used as the "target" label of the router transfer counter.
const (
	TargetBin      = "bin"
	TargetConveyor = "conveyor"
	TargetDropped  = "dropped"
)

var (
	conveyorOccupancy = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Subsystem: component,
			Name:      "conveyor_occupancy",
			Help:      metricsutil.HelpMsgWithStability("Number of items currently resident on a conveyor.", compbasemetrics.ALPHA),
		},
		[]string{"conveyor"},
	)

	feederDepositedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: component,
			Name:      "feeder_deposited_total",
			Help:      metricsutil.HelpMsgWithStability("Count of items a feeder placed onto its conveyor.", compbasemetrics.ALPHA),
		},
		[]string{"feeder"},
	)

	feederWaitSeconds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: component,
			Name:      "feeder_wait_seconds_total",
			Help:      metricsutil.HelpMsgWithStability("Total time a feeder spent blocked waiting for a free conveyor slot.", compbasemetrics.ALPHA),
		},
		[]string{"feeder"},
	)

	binStoredCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: component,
			Name:      "bin_stored_total",
			Help:      metricsutil.HelpMsgWithStability("Count of items ever stored in a bin, across replacements.", compbasemetrics.ALPHA),
		},
		[]string{"bin"},
	)

	binReplacementsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: component,
			Name:      "bin_replacements_total",
			Help:      metricsutil.HelpMsgWithStability("Count of full bin containers swapped for empty ones.", compbasemetrics.ALPHA),
		},
		[]string{"bin"},
	)

	routerTransfersCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: component,
			Name:      "router_transfers_total",
			Help:      metricsutil.HelpMsgWithStability("Count of items a router moved off an input conveyor, by target kind.", compbasemetrics.ALPHA),
		},
		[]string{"router", "target"},
	)

	routerRotationsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: component,
			Name:      "router_rotations_total",
			Help:      metricsutil.HelpMsgWithStability("Count of 90 degree turns performed by a router.", compbasemetrics.ALPHA),
		},
		[]string{"router"},
	)

	routerPrunedInputsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: component,
			Name:      "router_pruned_inputs_total",
			Help:      metricsutil.HelpMsgWithStability("Count of input conveyors a router stopped serving because they can never deliver again.", compbasemetrics.ALPHA),
		},
		[]string{"router"},
	)

	routerUnresolvedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: component,
			Name:      "router_unresolved_destination_total",
			Help:      metricsutil.HelpMsgWithStability("Count of items whose destination had no matching output on the router.", compbasemetrics.ALPHA),
		},
		[]string{"router"},
	)

	routerIterationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Subsystem: component,
			Name:      "router_iteration_duration_seconds",
			Help:      metricsutil.HelpMsgWithStability("Simulated time a router spent on one transfer, including rotation and movement.", compbasemetrics.ALPHA),
			Buckets:   []float64{0.5, 1, 1.5, 2, 2.5, 3, 4, 5, 10},
		},
		[]string{"router"},
	)
)

var registerMetrics sync.Once

// Register all metrics.
func Register() {
	registerMetrics.Do(func() {
		metrics.Registry.MustRegister(conveyorOccupancy)
		metrics.Registry.MustRegister(feederDepositedCounter)
		metrics.Registry.MustRegister(feederWaitSeconds)
		metrics.Registry.MustRegister(binStoredCounter)
		metrics.Registry.MustRegister(binReplacementsCounter)
		metrics.Registry.MustRegister(routerTransfersCounter)
		metrics.Registry.MustRegister(routerRotationsCounter)
		metrics.Registry.MustRegister(routerPrunedInputsCounter)
		metrics.Registry.MustRegister(routerUnresolvedCounter)
		metrics.Registry.MustRegister(routerIterationDuration)
	})
}

// RecordConveyorOccupancy records the current number of items on a conveyor.
func RecordConveyorOccupancy(conveyorID, occupancy int) {
	conveyorOccupancy.WithLabelValues(strconv.Itoa(conveyorID)).Set(float64(occupancy))
}

// RecordFeederDeposit records one item placed onto a conveyor by a feeder.
func RecordFeederDeposit(feederID int) {
	feederDepositedCounter.WithLabelValues(strconv.Itoa(feederID)).Inc()
}

// RecordFeederWait records time a feeder spent blocked on insertion rights.
func RecordFeederWait(feederID int, waited time.Duration) {
	feederWaitSeconds.WithLabelValues(strconv.Itoa(feederID)).Add(waited.Seconds())
}

// RecordBinStored records one item stored in a bin.
func RecordBinStored(binID int) {
	binStoredCounter.WithLabelValues(strconv.Itoa(binID)).Inc()
}

// RecordBinReplacement records a full bin being swapped for an empty one.
func RecordBinReplacement(binID int) {
	binReplacementsCounter.WithLabelValues(strconv.Itoa(binID)).Inc()
}

// RecordRouterTransfer records one item leaving a router's input, labelled with where it went.
func RecordRouterTransfer(routerID, target string) {
	routerTransfersCounter.WithLabelValues(routerID, target).Inc()
}

// RecordRouterRotation records a 90 degree turn.
func RecordRouterRotation(routerID string) {
	routerRotationsCounter.WithLabelValues(routerID).Inc()
}

// RecordRouterPrunedInput records an input conveyor dropped from a router's active set.
func RecordRouterPrunedInput(routerID string) {
	routerPrunedInputsCounter.WithLabelValues(routerID).Inc()
}

// RecordRouterUnresolvedDestination records an item whose destination had no matching output.
func RecordRouterUnresolvedDestination(routerID string) {
	routerUnresolvedCounter.WithLabelValues(routerID).Inc()
}

// RecordRouterIteration records the simulated duration of one router transfer.
func RecordRouterIteration(routerID string, d time.Duration) {
	routerIterationDuration.WithLabelValues(routerID).Observe(d.Seconds())
}
