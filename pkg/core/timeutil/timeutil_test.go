package timeutil_test

import (
	"testing"
	"time"

	"github.com/nalgeon/be"
	"github.com/rcarmo/sandsh/pkg/core/timeutil"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		out  string
	}{
		{"5", 5 * time.Second, "5s"},
		{"0.05", 50 * time.Millisecond, "0.05s"},
		{"1.5m", 90 * time.Second, "1.5m"},
		{"2h", 2 * time.Hour, "2h"},
		{"1d", 24 * time.Hour, "1d"},
		{"1h30m", 90 * time.Minute, "1h30m"},
		{" 10s ", 10 * time.Second, "10s"},
		{"infinity", timeutil.Infinite, "infinity"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			spec, err := timeutil.ParseDuration(tt.in)
			be.Err(t, err, nil)
			be.Equal(t, spec.Duration, tt.want)
			be.Equal(t, timeutil.FormatDuration(spec), tt.out)
		})
	}

	for _, bad := range []string{"", "1x", "m", "1..2", "-1", "1m x"} {
		_, err := timeutil.ParseDuration(bad)
		be.True(t, err != nil)
	}
}

func TestParseDurationOverflow(t *testing.T) {
	spec, err := timeutil.ParseDuration("99999999999d")
	be.Err(t, err, nil)
	be.Equal(t, spec.Duration, timeutil.Infinite)
}
