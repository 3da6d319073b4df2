package env

import (
	"testing"
	"time"

	"github.com/go-logr/logr/testr"

	logutil "github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/common/observability/logging"
)

func TestGetEnvDuration(t *testing.T) {
	logger := testr.New(t)

	tests := []struct {
		name       string
		key        string
		value      *string
		defaultVal time.Duration
		expected   time.Duration
	}{
		{
			name:       "env variable exists and is valid",
			key:        "TEST_SORTER_DURATION",
			value:      ptr("250ms"),
			defaultVal: time.Second,
			expected:   250 * time.Millisecond,
		},
		{
			name:       "env variable exists but is invalid",
			key:        "TEST_SORTER_DURATION",
			value:      ptr("soon"),
			defaultVal: time.Second,
			expected:   time.Second,
		},
		{
			name:       "env variable is blank",
			key:        "TEST_SORTER_DURATION",
			value:      ptr("  "),
			defaultVal: 3 * time.Second,
			expected:   3 * time.Second,
		},
		{
			name:       "env variable does not exist",
			key:        "TEST_SORTER_DURATION_MISSING",
			defaultVal: 5 * time.Second,
			expected:   5 * time.Second,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.value != nil {
				t.Setenv(tc.key, *tc.value)
			}
			result := GetEnvDuration(tc.key, tc.defaultVal, logger.V(logutil.VERBOSE))
			if result != tc.expected {
				t.Errorf("GetEnvDuration(%s, %v) = %v, expected %v", tc.key, tc.defaultVal, result, tc.expected)
			}
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	logger := testr.New(t)

	t.Setenv("TEST_SORTER_INT", "42")
	if got := GetEnvInt("TEST_SORTER_INT", 1, logger); got != 42 {
		t.Errorf("GetEnvInt() = %d, expected 42", got)
	}

	t.Setenv("TEST_SORTER_INT", "forty-two")
	if got := GetEnvInt("TEST_SORTER_INT", 1, logger); got != 1 {
		t.Errorf("GetEnvInt() = %d, expected the default 1", got)
	}
}

func TestGetEnvFloatAndBool(t *testing.T) {
	logger := testr.New(t)

	t.Setenv("TEST_SORTER_SCALE", "0.25")
	if got := GetEnvFloat("TEST_SORTER_SCALE", 1, logger); got != 0.25 {
		t.Errorf("GetEnvFloat() = %v, expected 0.25", got)
	}

	t.Setenv("TEST_SORTER_STRICT", "true")
	if got := GetEnvBool("TEST_SORTER_STRICT", false, logger); !got {
		t.Errorf("GetEnvBool() = %v, expected true", got)
	}
}

func TestGetEnvString(t *testing.T) {
	logger := testr.New(t)

	t.Setenv("TEST_SORTER_STRING", "north")
	if got := GetEnvString("TEST_SORTER_STRING", "south", logger); got != "north" {
		t.Errorf("GetEnvString() = %q, expected %q", got, "north")
	}
	if got := GetEnvString("TEST_SORTER_STRING_MISSING", "south", logger); got != "south" {
		t.Errorf("GetEnvString() = %q, expected %q", got, "south")
	}
}

func ptr(s string) *string { return &s }
