package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClock(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()

	assert.False(t, now.Before(before))
	assert.GreaterOrEqual(t, clock.Since(before.Add(-time.Hour)), time.Hour)
}

func TestMockClock_Advance(t *testing.T) {
	start := time.Date(2020, time.December, 18, 6, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)
	assert.Equal(t, start, clock.Now())

	clock.Advance(90 * time.Second)
	assert.Equal(t, 90*time.Second, clock.Since(start))
	assert.Equal(t, start.Add(90*time.Second), clock.Now())
}
