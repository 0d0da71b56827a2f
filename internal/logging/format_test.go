package logging

import (
	"errors"
	"log/slog"
	"testing"
)

func TestFieldValue(t *testing.T) {
	cases := []struct {
		name  string
		value slog.Value
		want  string
	}{
		{"plain string", slog.StringValue("posture"), "posture"},
		{"spaced string", slog.StringValue("two words"), `"two words"`},
		{"empty string", slog.StringValue(""), `""`},
		{"angle", slog.Float64Value(109.87654), "109.877"},
		{"whole float", slog.Float64Value(30), "30"},
		{"percentage", slog.Float64Value(1.5), "1.5"},
		{"int", slog.Int64Value(42), "42"},
		{"error", slog.AnyValue(errors.New("bad=value")), `"bad=value"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := fieldValue(tc.value); got != tc.want {
				t.Fatalf("fieldValue = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestHeaderValueIsUnquoted(t *testing.T) {
	if got := headerValue(slog.StringValue("two words")); got != "two words" {
		t.Fatalf("headerValue = %q", got)
	}
	if got := headerValue(slog.Int64Value(7)); got != "7" {
		t.Fatalf("headerValue = %q", got)
	}
}
