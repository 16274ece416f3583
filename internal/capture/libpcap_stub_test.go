//go:build !pcap
// +build !pcap

package capture

import (
	"strings"
	"testing"
)

// TestNewReader_LibpcapStub tests the stub implementation returns an error
func TestNewReader_LibpcapStub(t *testing.T) {
	r, err := NewReader(true)
	if err == nil {
		t.Fatal("Expected error from stub implementation")
	}
	if r != nil {
		t.Errorf("Expected nil reader, got %T", r)
	}

	expectedMsg := "PCAP support not enabled"
	if !strings.HasPrefix(err.Error(), expectedMsg) {
		t.Errorf("Expected error message to start with '%s', got '%s'", expectedMsg, err.Error())
	}
}

func TestNewReader_PureGo(t *testing.T) {
	r, err := NewReader(false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := r.(*FileReader); !ok {
		t.Errorf("Expected *FileReader, got %T", r)
	}
	if err := r.SetBPFFilter("udp port 8800"); err != ErrFilterUnsupported {
		t.Errorf("SetBPFFilter() = %v, want ErrFilterUnsupported", err)
	}
}
