package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSinceClampsNegative(t *testing.T) {
	now := time.Unix(1000, 0)
	future := time.Unix(2000, 0)

	assert.Equal(t, time.Duration(0), Since(now, future))
	assert.Equal(t, 1000*time.Second, Since(future, now))
}

func TestElapsedSeconds(t *testing.T) {
	now := time.Unix(100, 0)
	past := time.Unix(40, 0)
	assert.Equal(t, 60.0, Elapsed(now, past))
}

func TestClampDivisor(t *testing.T) {
	assert.Equal(t, 5.0, ClampDivisor(0, 5))
	assert.Equal(t, 5.0, ClampDivisor(-3, 5))
	assert.Equal(t, 2.0, ClampDivisor(2, 5))
}
