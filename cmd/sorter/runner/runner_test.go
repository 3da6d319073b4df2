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
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/version"
)

const diamond = `name: diamond
durationSeconds: 20
conveyors:
- {id: 1, length: 2, destinations: [1, 2]}
- {id: 2, length: 1, destinations: [1]}
- {id: 3, length: 1, destinations: [2]}
feeders:
- id: 1
  conveyor: 1
  capacity: 8
  rate: 4
  items: ["0-3", "0-3", "4-6", "0-3", "4-6", "4-6", "0-3", "0-3"]
bins:
- {id: 1, capacity: 3, category: "0-3"}
- {id: 2, capacity: 3, category: "4-6"}
routers:
- id: A
  north: {kind: input, ref: 1}
  east: {kind: output, ref: 2}
  west: {kind: output, ref: 3}
- id: B
  north: {kind: input, ref: 2}
  south: {kind: input, ref: 3}
  east: {kind: bin, ref: 1}
  west: {kind: bin, ref: 2}
`

// dangling has a conveyor nothing consumes from.
const dangling = `name: dangling
durationSeconds: 5
conveyors:
- {id: 1, length: 1}
feeders:
- {id: 1, conveyor: 1, capacity: 1, rate: 1, items: ["0-3"]}
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRunner().WithOutput(&out).Command()
	cmd.SetArgs(args)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunCommand(t *testing.T) {
	path := writeFile(t, "diamond.yaml", diamond)

	out, err := execute(t, "run", "--config", path, "--time-scale", "0.001", "--duration", "1m")
	require.NoError(t, err)

	assert.Contains(t, out, "Machine diamond will run with 8 presents")
	assert.Contains(t, out, "*** Machine Started ***")
	assert.Contains(t, out, "*** Input Stopped after")
	assert.Contains(t, out, "*** Machine completed shutdown after")
	assert.Contains(t, out, "FINAL REPORT")
	assert.Contains(t, out, "Configuration: diamond\n")
	assert.Contains(t, out, "Hopper 1 deposited 8 presents")
	assert.Contains(t, out, "Out of 8 gifts deposited, 0 are still on the machine, and 8 made it into the sacks\n")
	assert.Contains(t, out, "0 gifts went missing.\n")
	assert.NotContains(t, out, "were dropped")
}

func TestRunCommandReportsSimulatedSeconds(t *testing.T) {
	path := writeFile(t, "diamond.yaml", diamond)

	// Router A alone spends several simulated seconds moving eight items, so none of these can round down to zero.
	out, err := execute(t, "run", "--config", path, "--time-scale", "0.01", "--duration", "1m")
	require.NoError(t, err)

	assert.Regexp(t, `\*\*\* Input Stopped after [1-9]\d*s\. \*\*\*`, out)
	assert.Regexp(t, `\*\*\* Machine completed shutdown after [1-9]\d*s\. \*\*\*`, out)
	assert.Regexp(t, `Total Run Time [1-9]\d*s\.`, out)
	assert.NotContains(t, out, "Total Run Time 0s.")
}

func TestRunCommandReadsEnvironment(t *testing.T) {
	path := writeFile(t, "diamond.yaml", diamond)
	t.Setenv("SORTER_CONFIG", path)
	t.Setenv("SORTER_TIME_SCALE", "0.001")
	t.Setenv("SORTER_DURATION", "1m")

	out, err := execute(t, "run")
	require.NoError(t, err)
	assert.Contains(t, out, "8 made it into the sacks")
}

func TestRunCommandRejectsBadInput(t *testing.T) {
	testCases := []struct {
		name string
		args func(t *testing.T) []string
	}{
		{
			name: "MissingConfig",
			args: func(*testing.T) []string { return []string{"run"} },
		},
		{
			name: "NonexistentConfig",
			args: func(t *testing.T) []string {
				return []string{"run", "--config", filepath.Join(t.TempDir(), "absent.yaml")}
			},
		},
		{
			name: "InvalidTopology",
			args: func(t *testing.T) []string {
				return []string{"run", "--config", writeFile(t, "dangling.yaml", dangling)}
			},
		},
		{
			name: "InvalidTimeScale",
			args: func(t *testing.T) []string {
				return []string{"run", "--config", writeFile(t, "diamond.yaml", diamond), "--time-scale", "0"}
			},
		},
		{
			name: "PositionalArgument",
			args: func(t *testing.T) []string { return []string{"run", "extra"} },
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := execute(t, tc.args(t)...)
			require.Error(t, err)
			assert.NotContains(t, out, "*** Machine Started ***")
		})
	}
}

func TestValidateCommand(t *testing.T) {
	good := writeFile(t, "diamond.yaml", diamond)
	bad := writeFile(t, "dangling.yaml", dangling)

	out, err := execute(t, "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, good+": ok (diamond: 3 conveyors, 1 feeders, 2 bins, 2 routers, 8 items, 20s)")

	out, err = execute(t, "validate", good, bad)
	require.Error(t, err)
	assert.Contains(t, out, good+": ok")
	assert.Contains(t, out, bad+": invalid")

	_, err = execute(t, "validate")
	require.Error(t, err, "validate needs at least one file")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version.Get()+"\n", out)
}

func TestMetricsServerHandlers(t *testing.T) {
	r := NewRunner()
	r.opts.EnableMetrics = true
	r.opts.EnablePprof = true
	r.opts.MetricsPort = 9191
	srv := r.metricsServer()
	assert.Equal(t, ":9191", srv.Addr)

	for _, path := range []string{"/metrics", "/debug/pprof/heap"} {
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
