package sanitize

import (
	"errors"
	"strings"
	"testing"

	"github.com/aretw0/statelens/pkg/domain"
)

func TestInput_SizeLimit(t *testing.T) {
	// Default Limit is 4096
	limit := 4096

	tests := []struct {
		name      string
		inputSize int
		wantErr   bool
	}{
		{"Under Limit", limit - 1, false},
		{"Exact Limit", limit, false},
		{"Over Limit", limit + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := strings.Repeat("a", tt.inputSize)
			_, err := Input(input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Input() expected error for size %d, got nil", tt.inputSize)
				}
			} else {
				if err != nil {
					t.Errorf("Input() unexpected error: %v", err)
				}
			}
		})
	}
}

func TestInput_ControlChars(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Normal Text", "{type: go}", "{type: go}"},
		{"Safe Controls", "Line1\nLine2\tTabbed", "Line1\nLine2\tTabbed"},
		{"ANSI Code", "\x1b[31mgo\x1b[0m", "[31mgo[0m"}, // ESC removed
		{"Null Byte", "go\x00", "go"},                  // NULL removed
		{"Bell", "go\x07", "go"},                       // BEL removed
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Input(tt.input)
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestInput_EnvOverride(t *testing.T) {
	t.Setenv("STATELENS_MAX_INPUT_SIZE", "10")

	// Input len 11 -> Should fail
	_, err := Input("12345678901")
	if err == nil {
		t.Error("Expected error for input > 10 when env var is set")
	}

	// Input len 5 -> Should pass
	_, err = Input("12345")
	if err != nil {
		t.Error("Unexpected error for valid input")
	}
}

func TestEvent_InvalidUTF8(t *testing.T) {
	_, err := Event([]byte{0xff, 0xfe})
	if !errors.Is(err, domain.ErrInvalidEvent) {
		t.Fatalf("expected invalid event error, got %v", err)
	}
	if !errors.Is(err, ErrInvalidUTF8) {
		t.Errorf("expected the cause to be kept, got %v", err)
	}
}
