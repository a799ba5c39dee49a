package util

import "testing"

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		value        string
		defaultValue bool
		want         bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"YES", false, true},
		{"on", false, true},
		{"false", true, false},
		{"0", true, false},
		{"No", true, false},
		{"off", true, false},
		{" true ", false, true},
		{"bogus", true, true},
		{"bogus", false, false},
	}
	for _, tt := range tests {
		t.Setenv("ICPFLOW_TEST_BOOL", tt.value)
		if got := ParseBoolEnv("ICPFLOW_TEST_BOOL", tt.defaultValue); got != tt.want {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tt.value, tt.defaultValue, got, tt.want)
		}
	}
}

func TestParseBoolEnv_UnsetUsesDefault(t *testing.T) {
	if got := ParseBoolEnv("ICPFLOW_TEST_BOOL_UNSET", true); !got {
		t.Error("expected default true for unset variable")
	}
	if got := ParseBoolEnv("ICPFLOW_TEST_BOOL_UNSET", false); got {
		t.Error("expected default false for unset variable")
	}
}
