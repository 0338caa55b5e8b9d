// Package restarts drives a chained-restart validation run: it splits the
// requested duration into legs, runs the simulator once per leg while chaining
// restart files between legs, then runs it once over the whole interval.
package restarts

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"restartcheck/internal/simconfig"
	"restartcheck/internal/simtime"
)

// wholeSuffix names the uninterrupted run's configuration, e.g. aetherwhole.json.
const wholeSuffix = "whole"

// Leg is one scheduled simulator invocation.
type Leg struct {
	simtime.Interval
	Config *simconfig.Document
}

// ConfigName is the file the leg's configuration is persisted as: aether2.json
// for leg 2 of aether.json, aetherwhole.json for the whole run.
func (l Leg) ConfigName(base string) string {
	if l.Index == 0 {
		return legFileName(base, wholeSuffix)
	}
	return legFileName(base, strconv.Itoa(l.Index))
}

// Plan is the full schedule derived from a base configuration.
type Plan struct {
	Base     *simconfig.Document
	Restarts int
	Minutes  int
	Legs     []Leg
	Whole    Leg
}

// NewPlan splits the base configuration's run into restarts+1 legs and builds
// the configuration for each leg and for the whole run.
func NewPlan(base *simconfig.Document, restarts, minutes int) (*Plan, error) {
	intervals, err := simtime.Split(base.StartTime(), minutes, restarts)
	if err != nil {
		return nil, err
	}

	p := &Plan{Base: base, Restarts: restarts, Minutes: minutes}
	for _, iv := range intervals {
		doc, err := base.WithInterval(iv)
		if err != nil {
			return nil, fmt.Errorf("failed to build configuration for leg %d: %w", iv.Index, err)
		}
		p.Legs = append(p.Legs, Leg{Interval: iv, Config: doc})
	}

	span, err := simtime.Span(intervals)
	if err != nil {
		return nil, err
	}
	wholeDoc, err := base.WithInterval(span)
	if err != nil {
		return nil, fmt.Errorf("failed to build whole-run configuration: %w", err)
	}
	p.Whole = Leg{Interval: span, Config: wholeDoc}

	return p, nil
}

// legFileName turns aether.json into aether<suffix>.json.
func legFileName(base, suffix string) string {
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + suffix + ext
}
