// Package debounce collapses repeated label detections into counted actions.
//
// A label is counted the first time it appears and again only once at least
// the debounce window has passed since the last time it was counted. Drops
// inside the window do not extend it, so a stick held for a long time counts
// once per window rather than once overall. Each label has its own timer.
package debounce

import (
	"github.com/banshee-data/rcintent/internal/classify"
)

// DefaultWindow is the debounce window in seconds.
const DefaultWindow = 0.60

// Event is one label detected in one frame.
type Event struct {
	Timestamp float64
	Label     classify.Label
}

// CountTable maps a label to the number of times it was counted.
type CountTable map[classify.Label]int

// Debouncer counts events fed to it in time-ascending order. It is not safe
// for concurrent use; each run owns its own instance.
type Debouncer struct {
	window   float64
	lastSeen map[classify.Label]float64
	counts   CountTable
	accepted bool
}

// New creates a Debouncer with the given window in seconds.
func New(window float64) *Debouncer {
	return &Debouncer{
		window:   window,
		lastSeen: make(map[classify.Label]float64),
		counts:   make(CountTable),
	}
}

// Window returns the debounce window in seconds.
func (d *Debouncer) Window() float64 {
	return d.window
}

// Add feeds one event and reports whether it was counted.
func (d *Debouncer) Add(ev Event) bool {
	prev, seen := d.lastSeen[ev.Label]
	if seen && ev.Timestamp-prev < d.window {
		d.accepted = false
		return false
	}
	d.counts[ev.Label]++
	d.lastSeen[ev.Label] = ev.Timestamp
	d.accepted = true
	return true
}

// Accepted reports whether the most recent Add counted its event.
func (d *Debouncer) Accepted() bool {
	return d.accepted
}

// Counts returns a copy of the current count table.
func (d *Debouncer) Counts() CountTable {
	out := make(CountTable, len(d.counts))
	for k, v := range d.counts {
		out[k] = v
	}
	return out
}

// Count debounces events in the given order and returns the final counts.
// events must already be sorted by timestamp; they are not re-sorted.
func Count(events []Event, window float64) CountTable {
	d := New(window)
	for _, ev := range events {
		d.Add(ev)
	}
	return d.counts
}

// Total returns the sum of all counts.
func (t CountTable) Total() int {
	n := 0
	for _, v := range t {
		n += v
	}
	return n
}
