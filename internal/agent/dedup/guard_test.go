package dedup

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuard_ExactlyOnce(t *testing.T) {
	g := NewGuard()

	assert.True(t, g.ShouldProcess("https://a.test"))
	for i := 0; i < 10; i++ {
		assert.False(t, g.ShouldProcess("https://a.test"))
	}
}

func TestGuard_IndependentURLs(t *testing.T) {
	g := NewGuard()

	assert.True(t, g.ShouldProcess("https://a.test"))
	assert.True(t, g.ShouldProcess("https://b.test"))
	assert.Equal(t, 2, g.Len())
}

func TestGuard_NewSessionStartsEmpty(t *testing.T) {
	g := NewGuard()
	assert.True(t, g.ShouldProcess("https://a.test"))

	// A restart is modeled by constructing a fresh guard: the same URL
	// passes again.
	g2 := NewGuard()
	assert.True(t, g2.ShouldProcess("https://a.test"))
}

func TestGuard_ConcurrentCallsAdmitExactlyOne(t *testing.T) {
	g := NewGuard()

	const n = 50
	var admitted int64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.ShouldProcess("https://a.test") {
				atomic.AddInt64(&admitted, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), admitted)
}
