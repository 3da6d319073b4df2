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

// Package report renders the human-readable progress and summary of a run.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/machine"
)

// Started announces that the agents are running.
func Started(w io.Writer, s machine.Snapshot) error {
	_, err := fmt.Fprintf(w, "Machine %s will run with %d presents (run %s).\n*** Machine Started ***\n",
		s.Name, s.Loaded(), s.RunID)
	return err
}

// Interim writes the periodic progress report.
func Interim(w io.Writer, s machine.Snapshot) error {
	_, err := fmt.Fprintf(w, "\nInterim Report @ %ds:\n"+
		"%d presents remaining in hoppers;\n"+
		"%d presents sorted into sacks;\n"+
		"%d presents in the machine.\n\n",
		seconds(s.Simulated(s.Elapsed)), s.InFeeders(), s.InBins(), s.OnConveyors())
	return err
}

// InputStopped announces that feeders were timed out, s.Elapsed into the run.
func InputStopped(w io.Writer, s machine.Snapshot) error {
	_, err := fmt.Fprintf(w, "*** Input Stopped after %ds. ***\n", seconds(s.Simulated(s.Elapsed)))
	return err
}

// ShutdownComplete announces that every agent has finished, s.Elapsed into the run.
func ShutdownComplete(w io.Writer, s machine.Snapshot) error {
	_, err := fmt.Fprintf(w, "*** Machine completed shutdown after %ds. ***\n", seconds(s.Simulated(s.Elapsed)))
	return err
}

// Final writes the summary of a stopped machine.
func Final(w io.Writer, s machine.Snapshot) error {
	ew := &errWriter{w: w}
	ew.printf("\n\nFINAL REPORT\n\n")
	ew.printf("Configuration: %s\n", s.Name)
	ew.printf("Run ID: %s\n", s.RunID)
	ew.printf("Total Run Time %ds.\n", seconds(s.Simulated(s.Elapsed)))
	for _, f := range s.Feeders {
		ew.printf("Hopper %d deposited %d presents and waited %ds.\n", f.ID, f.Deposited, seconds(s.Simulated(f.WaitTime)))
	}
	ew.printf("\n\nOut of %d gifts deposited, %d are still on the machine, and %d made it into the sacks\n",
		s.Deposited(), s.OnConveyors(), s.InBins())
	if dropped := s.Dropped(); dropped > 0 {
		ew.printf("%d gifts had no route to their sack and were dropped.\n", dropped)
	}
	ew.printf("%d gifts went missing.\n", s.Missing())
	return ew.err
}

// errWriter keeps the first write error and skips every later write.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}
