package version

import "testing"

func TestString(t *testing.T) {
	got := String("rc-decode")
	want := "rc-decode dev (git unknown, built unknown)"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
