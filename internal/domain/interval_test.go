package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInterval(t *testing.T) {
	tests := []struct {
		in   string
		want Interval
	}{
		{"1d", Daily},
		{"d1", Daily},
		{"1wk", Weekly},
		{"w1", Weekly},
		{"1mo", Monthly},
	}
	for _, tt := range tests {
		got, err := ParseInterval(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseInterval("5m")
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestIntervalString(t *testing.T) {
	assert.Equal(t, "1d", Daily.String())
	assert.Equal(t, "1wk", Weekly.String())
	assert.Equal(t, "1mo", Monthly.String())
}

func TestNotFoundKinds(t *testing.T) {
	assert.True(t, errors.Is(ErrNoData, ErrNotFound))
	assert.True(t, errors.Is(ErrEmptyAfterCleaning, ErrNotFound))
	assert.False(t, errors.Is(ErrRateLimited, ErrNotFound))
}
