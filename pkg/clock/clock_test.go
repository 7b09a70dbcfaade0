package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeAfterAdvancesAndRecords(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFake(start)

	fired := <-f.After(2 * time.Second)
	assert.Equal(t, start.Add(2*time.Second), fired)

	f.Advance(time.Minute)
	<-f.After(time.Second)

	assert.Equal(t, start.Add(63*time.Second), f.Now())
	assert.Equal(t, []time.Duration{2 * time.Second, time.Second}, f.Sleeps())
}
