package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStepClock_StartsAtEpoch(t *testing.T) {
	c := NewStepClock(time.Time{}, time.Second)
	assert.Equal(t, DefaultEpoch, c.Now())
}

func TestStepClock_Advances(t *testing.T) {
	c := NewStepClock(time.Time{}, time.Second)

	first := c.Now()
	second := c.Now()

	assert.Equal(t, time.Second, second.Sub(first))
	assert.Equal(t, DefaultEpoch.Add(2*time.Second), c.Peek())
}

func TestStepClock_Reset(t *testing.T) {
	c := NewStepClock(time.Time{}, time.Minute)
	c.Now()
	c.Now()
	c.Reset()

	assert.Equal(t, DefaultEpoch, c.Now())
}

func TestStepClock_ThreadSafe(t *testing.T) {
	c := NewStepClock(time.Time{}, time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Now()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, DefaultEpoch.Add(1000*time.Millisecond), c.Peek())
}
