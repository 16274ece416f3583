// Package testutil provides shared test fixtures: synthetic captures and
// HTTP assertions.
package testutil

import (
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/rcintent/internal/capture"
	"github.com/banshee-data/rcintent/internal/flight"
)

// CaptureStart is the capture time of the first frame in generated captures.
var CaptureStart = time.Date(2025, 5, 4, 14, 30, 0, 0, time.UTC)

// WriteDemoCapture writes the demo flight as a capture file named name in
// dir and returns its path and the number of frames written. Names ending
// in .pcapng produce pcapng, anything else classic pcap.
func WriteDemoCapture(t *testing.T, dir, name string) (string, int) {
	t.Helper()
	return WriteFlightCapture(t, dir, name, flight.DemoFlight())
}

// WriteFlightCapture writes segments as a capture file like WriteDemoCapture.
func WriteFlightCapture(t *testing.T, dir, name string, segments []flight.Segment) (string, int) {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create capture: %v", err)
	}
	defer f.Close()

	newWriter := capture.NewWriter
	if strings.HasSuffix(name, ".pcapng") {
		newWriter = capture.NewNgWriter
	}
	w, err := newWriter(f, capture.DefaultEndpoints())
	if err != nil {
		t.Fatalf("new capture writer: %v", err)
	}
	n, err := flight.NewGenerator(1).WriteCapture(w, CaptureStart, segments)
	if err != nil {
		t.Fatalf("write capture: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close capture writer: %v", err)
	}
	return path, n
}

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Errorf("status code = %d, want %d (body: %s)", rec.Code, want, rec.Body.String())
	}
}

// DecodeJSON unmarshals the recorded body into v and checks the content type.
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}
