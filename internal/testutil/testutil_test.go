package testutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/banshee-data/rcintent/internal/capture"
)

func TestWriteDemoCapture(t *testing.T) {
	for _, name := range []string{"demo.pcap", "demo.pcapng"} {
		t.Run(name, func(t *testing.T) {
			path, n := WriteDemoCapture(t, t.TempDir(), name)
			if n == 0 {
				t.Fatal("no frames written")
			}

			matched := 0
			st, err := capture.WalkFile(context.Background(), path, false, capture.DefaultPort, func(float64, []byte) error {
				matched++
				return nil
			})
			if err != nil {
				t.Fatalf("WalkFile: %v", err)
			}
			if matched != n || st.Matched != n {
				t.Errorf("matched %d packets (stats %d), want %d", matched, st.Matched, n)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.Header().Set("Content-Type", "application/json")
	rec.WriteHeader(http.StatusCreated)
	rec.WriteString(`{"run_id":"abc"}`)

	AssertStatusCode(t, rec, http.StatusCreated)
	var got struct {
		ID string `json:"run_id"`
	}
	DecodeJSON(t, rec, &got)
	if got.ID != "abc" {
		t.Errorf("run_id = %q, want abc", got.ID)
	}
}
