package transport

import (
	"errors"
	"testing"
)

func TestParseDestination(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in string
		ok bool
	}{
		{in: "/X", ok: true},
		{in: "/X$cmd", ok: true},
		{in: "ndn:/publish-channel", ok: true},
		{in: "mock.uri", ok: true},
		{in: "https://hooks.example.com/t/1", ok: true},
		{in: ""},
		{in: "foo:\\bad.uri"},
		{in: "/with space"},
		{in: "/bad%zzescape"},
		{in: "/tab\tchar"},
	}
	for _, tt := range tests {
		d, err := ParseDestination(tt.in)
		if tt.ok {
			if err != nil {
				t.Fatalf("ParseDestination(%q) error: %v", tt.in, err)
			}
			if d.String() != tt.in {
				t.Fatalf("String() = %q, want %q", d.String(), tt.in)
			}
			continue
		}
		if !errors.Is(err, ErrBadDestination) {
			t.Fatalf("ParseDestination(%q) err = %v, want ErrBadDestination", tt.in, err)
		}
	}
}
