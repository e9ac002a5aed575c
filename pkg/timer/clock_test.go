package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualClock(t *testing.T) {
	var c ManualClock
	assert.Equal(t, int64(0), c.NowNs())

	assert.Equal(t, int64(time.Millisecond), c.Advance(time.Millisecond))
	c.Set(42)
	assert.Equal(t, int64(42), c.NowNs())
}

func TestHostClockMonotonic(t *testing.T) {
	c := NewHostClock()
	a := c.NowNs()
	time.Sleep(time.Millisecond)
	b := c.NowNs()
	assert.GreaterOrEqual(t, a, int64(0))
	assert.Greater(t, b, a)
}
