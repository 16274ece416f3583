package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/rcintent/internal/classify"
	"github.com/banshee-data/rcintent/internal/pipeline"
)

// EventExport is one counted event.
type EventExport struct {
	Timestamp float64        `json:"t"`
	Label     classify.Label `json:"label"`
}

// Export is the JSON form of a run.
type Export struct {
	*pipeline.Result
	Report      []Entry       `json:"report"`
	DurationSec float64       `json:"duration_secs"`
	Events      []EventExport `json:"events,omitempty"`
}

// NewExport builds the export for res. Counted events are included when
// withEvents is set.
func NewExport(res *pipeline.Result, withEvents bool) *Export {
	out := &Export{
		Result:      res,
		Report:      Order(res.Counts),
		DurationSec: res.Duration(),
	}
	if withEvents {
		out.Events = make([]EventExport, 0, len(res.Events))
		for _, ev := range res.Events {
			out.Events = append(out.Events, EventExport{Timestamp: ev.Timestamp, Label: ev.Label})
		}
	}
	return out
}

// SaveJSON writes the export for res to path.
func SaveJSON(path string, res *pipeline.Result, withEvents bool) error {
	data, err := json.MarshalIndent(NewExport(res, withEvents), "", "  ")
	if err != nil {
		return fmt.Errorf("JSON marshal: %w", err)
	}
	if err := os.WriteFile(filepath.Clean(path), data, 0644); err != nil {
		return fmt.Errorf("write JSON: %w", err)
	}
	return nil
}
