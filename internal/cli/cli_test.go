// Package cli provides unit tests for CLI utilities.
package cli

import (
	"sync"
	"testing"
)

// Init registers flags, which pflag only allows once per command.
var initOnce sync.Once

func TestJoinNonEmpty(t *testing.T) {
	tests := []struct {
		name     string
		parts    []string
		expected string
	}{
		{
			name:     "all parts present",
			parts:    []string{"Girona", "Catalonia", "Spain"},
			expected: "Girona, Catalonia, Spain",
		},
		{
			name:     "middle part missing",
			parts:    []string{"Girona", "", "Spain"},
			expected: "Girona, Spain",
		},
		{
			name:     "single part",
			parts:    []string{"Spain"},
			expected: "Spain",
		},
		{
			name:     "all empty",
			parts:    []string{"", "", ""},
			expected: "",
		},
		{
			name:     "no parts",
			parts:    nil,
			expected: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := joinNonEmpty(tc.parts...)
			if result != tc.expected {
				t.Errorf("joinNonEmpty(%v) = %q, want %q", tc.parts, result, tc.expected)
			}
		})
	}
}

func TestCommandsRegistered(t *testing.T) {
	initOnce.Do(Init)

	want := map[string]bool{
		"version": false,
		"serve":   false,
		"auth":    false,
		"athlete": false,
	}
	for _, cmd := range RootCmd.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, registered := range want {
		if !registered {
			t.Errorf("command %q is not registered", name)
		}
	}
}

func TestServeFlags(t *testing.T) {
	initOnce.Do(Init)

	for _, flag := range []string{"stdio", "host", "port", "base-url", "env"} {
		if serveCmd.Flags().Lookup(flag) == nil {
			t.Errorf("serve command is missing the --%s flag", flag)
		}
	}
}
