package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCounter(t *testing.T) {
	var c Counter
	c.Inc()
	c.Add(4)
	assert.Equal(t, uint64(5), c.Load())
}

func TestTimer(t *testing.T) {
	timer := StartTimer()
	time.Sleep(2 * time.Millisecond)
	assert.GreaterOrEqual(t, timer.Duration(), 2*time.Millisecond)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Counter("newsletter_sent").Inc()
		}()
	}
	wg.Wait()

	r.Counter("newsletter_failed").Add(2)

	assert.Same(t, r.Counter("newsletter_sent"), r.Counter("newsletter_sent"))
	assert.Equal(t, map[string]uint64{"newsletter_sent": 50, "newsletter_failed": 2}, r.Snapshot())
}
