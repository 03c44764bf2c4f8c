package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-02", time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-02-15", time.Date(2024, time.February, 15, 0, 0, 0, 0, time.UTC)},
		{" 2024-02-15 ", time.Date(2024, time.February, 15, 0, 0, 0, 0, time.UTC)},
		{"2024-02-15T08:30:00Z", time.Date(2024, time.February, 15, 8, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := parseDate(tt.in)
		require.NoError(t, err, tt.in)
		assert.True(t, got.Equal(tt.want), "%s -> %s", tt.in, got)
	}

	for _, bad := range []string{"", "Feb 2024", "2024-13", "2024/02/01"} {
		_, err := parseDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestMatchOrigin(t *testing.T) {
	assert.True(t, matchOrigin("https://app.example.com", "https://app.example.com"))
	assert.True(t, matchOrigin("https://dash.example.com", "*.example.com"))
	assert.True(t, matchOrigin("http://example.com:8080", "*.example.com"))
	assert.False(t, matchOrigin("https://evil.com", "*.example.com"))
	assert.False(t, matchOrigin("https://notexample.com", "*.example.com"))
	assert.False(t, matchOrigin("https://app.example.com", "https://other.example.com"))
}
