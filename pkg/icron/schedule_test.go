package icron

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTriggerInfo(t *testing.T) {
	ref := time.Date(2026, 3, 10, 14, 20, 0, 0, time.UTC)

	tests := []struct {
		expr string
		next time.Time
	}{
		{"0 * * * *", time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)},
		{"30 2 * * *", time.Date(2026, 3, 11, 2, 30, 0, 0, time.UTC)},
		{"@daily", time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			info, err := GetTriggerInfo(tt.expr, ref)
			require.NoError(t, err)
			assert.Equal(t, tt.expr, info.Expression)
			assert.True(t, tt.next.Equal(info.Next), "next = %s", info.Next)
			assert.Equal(t, tt.next.Sub(ref), info.TimeUntilNext)
		})
	}
}

func TestGetTriggerInfo_Invalid(t *testing.T) {
	_, err := GetTriggerInfo("not a schedule", time.Now())
	assert.Error(t, err)

	// six-field expressions are rejected
	_, err = GetTriggerInfo("0 0 * * * *", time.Now())
	assert.Error(t, err)
}
