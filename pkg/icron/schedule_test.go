package icron

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTriggerInfo_Hourly(t *testing.T) {
	ref := time.Date(2025, 3, 14, 10, 20, 0, 0, time.UTC)

	info, err := GetTriggerInfo("@hourly", ref)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 3, 14, 11, 0, 0, 0, time.UTC), info.Next)
	assert.Equal(t, 40*time.Minute, info.TimeUntilNext)
	assert.Equal(t, time.Hour, info.Interval)
}

func TestGetTriggerInfo_EveryDescriptor(t *testing.T) {
	ref := time.Date(2025, 3, 14, 10, 20, 0, 0, time.UTC)

	info, err := GetTriggerInfo("@every 10m", ref)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Minute, info.Interval)
	assert.True(t, info.Next.After(ref))
	assert.Equal(t, info.Next.Add(info.Interval), info.Following)
}

func TestGetTriggerInfo_FiveFieldExpression(t *testing.T) {
	ref := time.Date(2025, 3, 14, 10, 20, 0, 0, time.UTC)

	info, err := GetTriggerInfo("30 * * * *", ref)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC), info.Next)
}

func TestGetTriggerInfo_InvalidExpression(t *testing.T) {
	_, err := GetTriggerInfo("not a schedule", time.Now())
	require.Error(t, err)
}
