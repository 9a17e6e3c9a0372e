package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeValue(t *testing.T) {
	tests := []struct {
		raw  any
		want float64
	}{
		{"1,234", 1234},
		{"4.5%", 4.5},
		{" 12,345.67 ", 12345.67},
		{"-", 0},
		{" - ", 0},
		{"$1,200.50", 1200.50},
		{"NT$350", 350},
		{"0", 0},
		{3.25, 3.25},
		{42, 42},
		{int64(7), 7},
	}

	for _, tt := range tests {
		got := NormalizeValue(tt.raw)
		assert.Equal(t, tt.want, got, "NormalizeValue(%#v)", tt.raw)
	}
}

func TestNormalizeValueMissing(t *testing.T) {
	for _, raw := range []any{"", "n/a", "abc", "--", "inf", nil, true} {
		assert.True(t, math.IsNaN(NormalizeValue(raw)), "NormalizeValue(%#v) should be missing", raw)
	}
}

func TestNormalizeValuePlaceholderIsZeroNotMissing(t *testing.T) {
	v := NormalizeValue("-")
	assert.False(t, math.IsNaN(v))
	assert.Equal(t, 0.0, v)
}

func TestNormalizeValueIdempotent(t *testing.T) {
	for _, raw := range []string{"1,234", "4.5%", "-", "99", "0.05"} {
		once := NormalizeValue(raw)
		assert.Equal(t, once, NormalizeValue(once), "second pass over %q", raw)
	}
}
