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

package topology

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/types"
)

// ErrMalformed wraps every syntax error in a topology description.
var ErrMalformed = errors.New("malformed topology description")

// Section headers of the legacy text format, in the order they appear.
const (
	headerBelts      = "BELTS"
	headerHoppers    = "HOPPERS"
	headerSacks      = "SACKS"
	headerTurntables = "TURNTABLES"
	headerPresents   = "PRESENTS"
	headerTimer      = "TIMER"
)

// Connection codes used on turntable lines.
var legacyKinds = map[string]EndpointKind{
	"ib": KindInput,
	"ob": KindOutput,
	"os": KindBin,
}

// ParseText reads the line-oriented format the machine was originally configured with:
//
//	BELTS 2
//	1 length 5 destinations 1 2
//	2 length 5 destinations 2
//	HOPPERS 1
//	1 belt 1 capacity 10 speed 1
//	SACKS 2
//	1 capacity 20 age 0-3
//	2 capacity 20 age 4-6
//	TURNTABLES 1
//	A N ib 1 E null S os 1 W os 2
//	PRESENTS 2
//	0-3
//	4-6
//	TIMER 30
//
// One PRESENTS block follows per hopper, in hopper order. Blank lines are ignored and lines before a section header
// are skipped.
func ParseText(r io.Reader) (*Topology, error) {
	p := &textParser{sc: bufio.NewScanner(r)}
	t := &Topology{}

	n, err := p.header(headerBelts)
	if err != nil {
		return nil, err
	}
	for range n {
		c, err := p.belt()
		if err != nil {
			return nil, err
		}
		t.Conveyors = append(t.Conveyors, c)
	}

	if n, err = p.header(headerHoppers); err != nil {
		return nil, err
	}
	for range n {
		f, err := p.hopper()
		if err != nil {
			return nil, err
		}
		t.Feeders = append(t.Feeders, f)
	}

	if n, err = p.header(headerSacks); err != nil {
		return nil, err
	}
	for range n {
		b, err := p.sack()
		if err != nil {
			return nil, err
		}
		t.Bins = append(t.Bins, b)
	}

	if n, err = p.header(headerTurntables); err != nil {
		return nil, err
	}
	for range n {
		rt, err := p.turntable()
		if err != nil {
			return nil, err
		}
		t.Routers = append(t.Routers, rt)
	}

	for i := range t.Feeders {
		if n, err = p.header(headerPresents); err != nil {
			return nil, fmt.Errorf("presents of hopper %d: %w", t.Feeders[i].ID, err)
		}
		for range n {
			fields, err := p.line()
			if err != nil {
				return nil, err
			}
			t.Feeders[i].Items = append(t.Feeders[i].Items, fields[0])
		}
	}

	if t.DurationSeconds, err = p.timer(); err != nil {
		return nil, err
	}
	return t, nil
}

type textParser struct {
	sc     *bufio.Scanner
	lineNo int
}

// line returns the fields of the next non-blank line.
func (p *textParser) line() ([]string, error) {
	for p.sc.Scan() {
		p.lineNo++
		if fields := strings.Fields(p.sc.Text()); len(fields) > 0 {
			return fields, nil
		}
	}
	if err := p.sc.Err(); err != nil {
		return nil, fmt.Errorf("reading line %d: %w", p.lineNo+1, err)
	}
	return nil, fmt.Errorf("%w: unexpected end of input after line %d", ErrMalformed, p.lineNo)
}

// seek skips lines until one starts with header and returns its fields.
func (p *textParser) seek(header string) ([]string, error) {
	for {
		fields, err := p.line()
		if err != nil {
			return nil, fmt.Errorf("looking for %s: %w", header, err)
		}
		if strings.EqualFold(fields[0], header) {
			return fields, nil
		}
	}
}

// header seeks a section header and returns the count that follows it, either on the same line or the next one.
func (p *textParser) header(header string) (int, error) {
	fields, err := p.seek(header)
	if err != nil {
		return 0, err
	}
	if len(fields) < 2 {
		if fields, err = p.line(); err != nil {
			return 0, err
		}
		return p.atoi(fields[0], header+" count")
	}
	return p.atoi(fields[1], header+" count")
}

// belt parses "<id> length <len> destinations <binId>...".
func (p *textParser) belt() (Conveyor, error) {
	fields, err := p.line()
	if err != nil {
		return Conveyor{}, err
	}
	if len(fields) < 4 {
		return Conveyor{}, p.errorf("belt line needs at least 4 fields, got %d", len(fields))
	}
	var c Conveyor
	if c.ID, err = p.atoi(fields[0], "belt id"); err != nil {
		return c, err
	}
	if err := p.keyword(fields[1], "length"); err != nil {
		return c, err
	}
	if c.Length, err = p.atoi(fields[2], "belt length"); err != nil {
		return c, err
	}
	if err := p.keyword(fields[3], "destinations"); err != nil {
		return c, err
	}
	for _, f := range fields[4:] {
		d, err := p.atoi(f, "belt destination")
		if err != nil {
			return c, err
		}
		c.Destinations = append(c.Destinations, d)
	}
	return c, nil
}

// hopper parses "<id> belt <beltId> capacity <cap> speed <rate>".
func (p *textParser) hopper() (Feeder, error) {
	fields, err := p.line()
	if err != nil {
		return Feeder{}, err
	}
	if len(fields) < 7 {
		return Feeder{}, p.errorf("hopper line needs 7 fields, got %d", len(fields))
	}
	var f Feeder
	if f.ID, err = p.atoi(fields[0], "hopper id"); err != nil {
		return f, err
	}
	for _, kv := range []struct {
		pos     int
		keyword string
		dst     *int
	}{
		{1, "belt", &f.Conveyor},
		{3, "capacity", &f.Capacity},
		{5, "speed", &f.Rate},
	} {
		if err := p.keyword(fields[kv.pos], kv.keyword); err != nil {
			return f, err
		}
		if *kv.dst, err = p.atoi(fields[kv.pos+1], "hopper "+kv.keyword); err != nil {
			return f, err
		}
	}
	return f, nil
}

// sack parses "<id> capacity <cap> age <category>".
func (p *textParser) sack() (Bin, error) {
	fields, err := p.line()
	if err != nil {
		return Bin{}, err
	}
	if len(fields) < 5 {
		return Bin{}, p.errorf("sack line needs 5 fields, got %d", len(fields))
	}
	var b Bin
	if b.ID, err = p.atoi(fields[0], "sack id"); err != nil {
		return b, err
	}
	if err := p.keyword(fields[1], "capacity"); err != nil {
		return b, err
	}
	if b.Capacity, err = p.atoi(fields[2], "sack capacity"); err != nil {
		return b, err
	}
	if err := p.keyword(fields[3], "age"); err != nil {
		return b, err
	}
	b.Category = fields[4]
	return b, nil
}

// turntable parses "<name> N <conn> E <conn> S <conn> W <conn>" where conn is "null" or "<ib|ob|os> <id>".
func (p *textParser) turntable() (Router, error) {
	fields, err := p.line()
	if err != nil {
		return Router{}, err
	}
	r := Router{ID: fields[0]}
	rest := fields[1:]
	for _, port := range types.AllPorts {
		if len(rest) < 2 {
			return r, p.errorf("turntable %s: missing connection for port %s", r.ID, port)
		}
		if err := p.keyword(rest[0], port.String()); err != nil {
			return r, err
		}
		code := strings.ToLower(rest[1])
		if code == "null" {
			rest = rest[2:]
			continue
		}
		kind, ok := legacyKinds[code]
		if !ok {
			return r, p.errorf("turntable %s port %s: unknown connection %q", r.ID, port, rest[1])
		}
		if len(rest) < 3 {
			return r, p.errorf("turntable %s port %s: missing reference", r.ID, port)
		}
		ref, err := p.atoi(rest[2], "connection reference")
		if err != nil {
			return r, err
		}
		r.SetEndpoint(port, &Endpoint{Kind: kind, Ref: ref})
		rest = rest[3:]
	}
	return r, nil
}

// timer seeks "TIMER ... <seconds>" and returns the last integer on the line.
func (p *textParser) timer() (int, error) {
	fields, err := p.seek(headerTimer)
	if err != nil {
		return 0, err
	}
	for i := len(fields) - 1; i > 0; i-- {
		if v, err := strconv.Atoi(fields[i]); err == nil {
			return v, nil
		}
	}
	return 0, p.errorf("%s line has no duration", headerTimer)
}

func (p *textParser) atoi(s, what string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, p.errorf("%s: %q is not an integer", what, s)
	}
	return v, nil
}

func (p *textParser) keyword(got, want string) error {
	if !strings.EqualFold(got, want) {
		return p.errorf("expected %q, got %q", want, got)
	}
	return nil
}

func (p *textParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrMalformed, p.lineNo, fmt.Sprintf(format, args...))
}
