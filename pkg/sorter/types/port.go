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

package types

import (
	"fmt"
	"strings"
)

// Port identifies one of the four compass-facing sides of a router.
// The numeric values matter: ports with equal parity share an alignment (North-South or East-West).
type Port int

const (
	North Port = iota
	East
	South
	West
)

// NumPorts is the number of ports on a router.
const NumPorts = 4

// AllPorts lists every port in numeric order.
var AllPorts = [NumPorts]Port{North, East, South, West}

// Valid reports whether p names one of the four ports.
func (p Port) Valid() bool {
	return p >= North && p <= West
}

// SameAlignment reports whether a router facing p is already aligned to move items through q.
func (p Port) SameAlignment(q Port) bool {
	return p%2 == q%2
}

func (p Port) String() string {
	switch p {
	case North:
		return "N"
	case East:
		return "E"
	case South:
		return "S"
	case West:
		return "W"
	default:
		return fmt.Sprintf("Port(%d)", int(p))
	}
}

// ParsePort accepts the single-letter ("N") or full ("north") name of a port, case-insensitively.
func ParsePort(s string) (Port, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "n", "north":
		return North, nil
	case "e", "east":
		return East, nil
	case "s", "south":
		return South, nil
	case "w", "west":
		return West, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPort, s)
}
