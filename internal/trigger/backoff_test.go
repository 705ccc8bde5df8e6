package trigger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff_GrowsThenCaps(t *testing.T) {
	b := newBackoff(time.Second, 10*time.Second)

	first := b.next()
	assert.GreaterOrEqual(t, first, 800*time.Millisecond)
	assert.LessOrEqual(t, first, 1200*time.Millisecond)

	second := b.next()
	assert.GreaterOrEqual(t, second, 1600*time.Millisecond)
	assert.LessOrEqual(t, second, 2400*time.Millisecond)

	var last time.Duration
	for i := 0; i < 10; i++ {
		last = b.next()
	}
	assert.LessOrEqual(t, last, 12*time.Second)
	assert.GreaterOrEqual(t, last, 8*time.Second)
}

func TestBackoff_ResetStartsOver(t *testing.T) {
	b := newBackoff(time.Second, 10*time.Second)
	for i := 0; i < 5; i++ {
		b.next()
	}
	b.reset()

	d := b.next()
	assert.LessOrEqual(t, d, 1200*time.Millisecond)
}
