package config

import (
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestParseDurationExtended_DaysWeeksAndFallback(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"7d", 7 * 24 * time.Hour},
		{"1w", 7 * 24 * time.Hour},
		{"1w2d3h", (7*24 + 2*24 + 3) * time.Hour},
		{"1.5d", 36 * time.Hour},
		{"-2w", -14 * 24 * time.Hour},
		{"90m", 90 * time.Minute}, // Go fallback
	}

	for _, tc := range cases {
		got, err := parseDurationExtended(tc.in)
		if err != nil {
			t.Fatalf("parseDurationExtended(%q) unexpected error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("parseDurationExtended(%q)=%v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseDurationExtended_Invalid(t *testing.T) {
	bad := []string{"", "   ", "3x", "2d3x", "-"}
	for _, in := range bad {
		if _, err := parseDurationExtended(in); err == nil {
			t.Fatalf("parseDurationExtended(%q) expected error, got nil", in)
		}
	}
}

func TestDurationUnmarshalYAML(t *testing.T) {
	var doc struct {
		Timeout Duration `yaml:"timeout"`
	}
	if err := yaml.Unmarshal([]byte("timeout: 1d"), &doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Timeout.Std() != 24*time.Hour {
		t.Fatalf("timeout = %v", doc.Timeout.Std())
	}
	if err := yaml.Unmarshal([]byte("timeout: soon"), &doc); err == nil {
		t.Fatalf("expected error for invalid duration")
	}

	out, err := yaml.Marshal(struct {
		Timeout Duration `yaml:"timeout"`
	}{Timeout: Duration(90 * time.Second)})
	if err != nil {
		t.Fatalf("unexpected marshal error: %v", err)
	}
	if string(out) != "timeout: 1m30s\n" {
		t.Fatalf("marshal = %q", out)
	}
}
