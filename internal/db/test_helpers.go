package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/rcintent/internal/pipeline"
	"github.com/banshee-data/rcintent/internal/rcframe"
	"github.com/banshee-data/rcintent/internal/timeutil"
)

// setupTestDB creates a migrated database in a temp directory with a mock
// clock.
func setupTestDB(t *testing.T) (*DB, *timeutil.MockClock) {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	clock := timeutil.NewMockClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	db.SetClock(clock)
	return db, clock
}

// testResult decodes a short session: takeoff, forward, then neutral.
func testResult(t *testing.T) *pipeline.Result {
	t.Helper()
	var frames []rcframe.Frame
	add := func(ts float64, fn func(*rcframe.Controls)) {
		c := rcframe.NeutralControls()
		fn(&c)
		raw := rcframe.Encode(c)
		f, ok := rcframe.Decode(ts, raw[:])
		if !ok {
			t.Fatalf("encoded frame at %.2f does not decode", ts)
		}
		frames = append(frames, f)
	}
	add(10.0, func(c *rcframe.Controls) { c.Command = 0x01 })
	add(11.0, func(c *rcframe.Controls) { c.Pitch = 0xc0 })
	add(12.0, func(c *rcframe.Controls) {})

	opts := pipeline.DefaultOptions()
	res, err := pipeline.Replay(frames, opts)
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	res.Source = "session.pcap"
	return res
}
