package metrics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResource(t *testing.T) {
	assert.Equal(t, "store", Resource("store"))
	assert.Equal(t, "product", Resource("product:blue-shirt"))
	assert.Equal(t, "reviews", Resource("reviews:p1:2"))
}

func TestCountersConcurrent(t *testing.T) {
	c := NewCounters()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Request("reviews:p1:1")
			c.Hit("store")
			c.Miss("store")
		}()
	}
	wg.Wait()
	c.Request("banner")

	s := c.Snapshot()
	assert.EqualValues(t, 51, s.Requests)
	assert.EqualValues(t, 50, s.ByResource["reviews"])
	assert.EqualValues(t, 1, s.ByResource["banner"])
	assert.InDelta(t, 0.5, s.HitRatio(), 1e-9)
}

func TestHitRatioEmpty(t *testing.T) {
	assert.Zero(t, Snapshot{}.HitRatio())
}
