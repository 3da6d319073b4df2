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

package router

import (
	"fmt"

	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/bin"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/conveyor"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/types"
)

// ConnectionKind identifies what is attached to a router port.
type ConnectionKind int

const (
	// InputConveyor is a conveyor the router drains.
	InputConveyor ConnectionKind = iota
	// OutputConveyor is a conveyor the router feeds.
	OutputConveyor
	// OutputBin is a bin the router deposits into.
	OutputBin
)

func (k ConnectionKind) String() string {
	switch k {
	case InputConveyor:
		return "InputConveyor"
	case OutputConveyor:
		return "OutputConveyor"
	case OutputBin:
		return "OutputBin"
	default:
		return fmt.Sprintf("ConnectionKind(%d)", int(k))
	}
}

// Connection is what is attached to one router port. It is a closed variant: build it only with NewInputConveyor,
// NewOutputConveyor or NewOutputBin.
type Connection struct {
	kind     ConnectionKind
	conveyor *conveyor.Conveyor
	bin      *bin.Bin
}

// NewInputConveyor returns a connection the router takes items from.
func NewInputConveyor(c *conveyor.Conveyor) Connection {
	return Connection{kind: InputConveyor, conveyor: c}
}

// NewOutputConveyor returns a connection the router passes items on to.
func NewOutputConveyor(c *conveyor.Conveyor) Connection {
	return Connection{kind: OutputConveyor, conveyor: c}
}

// NewOutputBin returns a connection the router stores items into.
func NewOutputBin(b *bin.Bin) Connection {
	return Connection{kind: OutputBin, bin: b}
}

// Kind returns the connection variant.
func (c Connection) Kind() ConnectionKind { return c.kind }

// Conveyor returns the attached conveyor, or nil for an OutputBin.
func (c Connection) Conveyor() *conveyor.Conveyor { return c.conveyor }

// Bin returns the attached bin, or nil for a conveyor connection.
func (c Connection) Bin() *bin.Bin { return c.bin }

func (c Connection) String() string {
	switch c.kind {
	case InputConveyor, OutputConveyor:
		if c.conveyor == nil {
			return c.kind.String() + "(nil)"
		}
		return fmt.Sprintf("%s(%d)", c.kind, c.conveyor.ID())
	case OutputBin:
		if c.bin == nil {
			return c.kind.String() + "(nil)"
		}
		return fmt.Sprintf("%s(%d)", c.kind, c.bin.ID())
	default:
		return c.kind.String()
	}
}

func (c Connection) validate() error {
	switch c.kind {
	case InputConveyor, OutputConveyor:
		if c.conveyor == nil {
			return fmt.Errorf("%w: %s has no conveyor", types.ErrInvalidConnection, c.kind)
		}
	case OutputBin:
		if c.bin == nil {
			return fmt.Errorf("%w: %s has no bin", types.ErrInvalidConnection, c.kind)
		}
	default:
		return fmt.Errorf("%w: unknown kind %d", types.ErrInvalidConnection, int(c.kind))
	}
	return nil
}
