package report

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/rcintent/internal/debounce"
)

func TestOrder(t *testing.T) {
	testCases := []struct {
		name   string
		counts debounce.CountTable
		want   []Entry
	}{
		{
			name:   "empty",
			counts: debounce.CountTable{},
			want:   []Entry{},
		},
		{
			name:   "takeoff before headless_off",
			counts: debounce.CountTable{"headless_off": 1, "takeoff": 1},
			want:   []Entry{{"takeoff", 1}, {"headless_off", 1}},
		},
		{
			name: "preferred list order",
			counts: debounce.CountTable{
				"yaw_right": 1, "yaw_left": 2, "down": 3, "up": 4, "right": 5,
				"left": 6, "back": 7, "forward": 8, "calibrate_gyro": 9,
				"emergency_stop": 10, "land": 11, "takeoff": 12,
				"headless_on": 13, "headless_off": 14,
			},
			want: []Entry{
				{"takeoff", 12}, {"land", 11}, {"emergency_stop", 10}, {"calibrate_gyro", 9},
				{"forward", 8}, {"back", 7}, {"left", 6}, {"right", 5}, {"up", 4}, {"down", 3},
				{"yaw_left", 2}, {"yaw_right", 1}, {"headless_on", 13}, {"headless_off", 14},
			},
		},
		{
			name: "unknown labels after preferred, lexicographic",
			counts: debounce.CountTable{
				"headless_0x00": 1, "cmd_0x1f": 2, "cmd_0x07": 3, "up": 4, "headless_off": 5,
			},
			want: []Entry{
				{"up", 4}, {"headless_off", 5},
				{"cmd_0x07", 3}, {"cmd_0x1f", 2}, {"headless_0x00", 1},
			},
		},
		{
			name:   "only unknown labels",
			counts: debounce.CountTable{"zeta": 1, "alpha": 1},
			want:   []Entry{{"alpha", 1}, {"zeta", 1}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Order(tc.counts)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Order() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOrder_NeverInventsZeroCounts(t *testing.T) {
	got := Order(debounce.CountTable{"land": 2})
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d: %v", len(got), got)
	}
	for _, e := range got {
		if e.Count == 0 {
			t.Errorf("zero count entry %q", e.Label)
		}
	}
}
