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

package main

import (
	"os"

	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/cmd/sorter/runner"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/common/observability/logging"
)

func main() {
	// Delegate the logger before anything logs; the level is adjusted once flags are parsed.
	logging.InitSetupLogging()

	if err := runner.NewRunner().Command().ExecuteContext(ctrl.SetupSignalHandler()); err != nil {
		os.Exit(1)
	}
}
