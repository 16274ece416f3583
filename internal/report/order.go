// Package report orders and renders the final label counts.
package report

import (
	"sort"

	"github.com/banshee-data/rcintent/internal/classify"
	"github.com/banshee-data/rcintent/internal/debounce"
)

// PreferredOrder lists labels that are always reported first, in this order:
// commands, then axes, then headless mode.
var PreferredOrder = []classify.Label{
	classify.LabelTakeoff,
	classify.LabelLand,
	classify.LabelEmergencyStop,
	classify.LabelCalibrateGyro,
	classify.LabelForward,
	classify.LabelBack,
	classify.LabelLeft,
	classify.LabelRight,
	classify.LabelUp,
	classify.LabelDown,
	classify.LabelYawLeft,
	classify.LabelYawRight,
	classify.LabelHeadlessOn,
	classify.LabelHeadlessOff,
}

// Entry is one row of the report.
type Entry struct {
	Label classify.Label `json:"label"`
	Count int            `json:"count"`
}

// Order returns the labels present in counts: preferred labels first in
// PreferredOrder, then the rest lexicographically. Labels missing from counts
// are never reported.
func Order(counts debounce.CountTable) []Entry {
	entries := make([]Entry, 0, len(counts))
	printed := make(map[classify.Label]bool, len(PreferredOrder))

	for _, l := range PreferredOrder {
		if n, ok := counts[l]; ok {
			entries = append(entries, Entry{Label: l, Count: n})
			printed[l] = true
		}
	}

	rest := make([]classify.Label, 0, len(counts)-len(entries))
	for l := range counts {
		if !printed[l] {
			rest = append(rest, l)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })

	for _, l := range rest {
		entries = append(entries, Entry{Label: l, Count: counts[l]})
	}
	return entries
}
