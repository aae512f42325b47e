package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		page, size  int
		offset, lim int
	}{
		{1, 10, 0, 10},
		{3, 20, 40, 20},
		{0, 10, 0, 10},
		{-2, 5, 0, 5},
		{2, 0, 10, 10},
		{2, 101, 10, 10},
		{1, 100, 0, 100},
	}
	for _, tt := range tests {
		offset, limit := Calculate(tt.page, tt.size)
		assert.Equal(t, tt.offset, offset, "page=%d size=%d", tt.page, tt.size)
		assert.Equal(t, tt.lim, limit, "page=%d size=%d", tt.page, tt.size)
	}
}

func TestParseDefaults(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 7, ParseIntDefault("", 7))
	assert.Equal(t, 3, ParseIntDefault("3", 7))
	assert.Equal(t, 7, ParseIntDefault("three", 7))

	assert.True(t, ParseBoolDefault("true", false))
	assert.False(t, ParseBoolDefault("", false))
	assert.True(t, ParseBoolDefault("nope", true))
}

func TestTotalPages(t *testing.T) {
	t.Parallel()

	assert.EqualValues(t, 0, TotalPages(0, 10))
	assert.EqualValues(t, 1, TotalPages(10, 10))
	assert.EqualValues(t, 2, TotalPages(11, 10))
	assert.EqualValues(t, 0, TotalPages(5, 0))
}
