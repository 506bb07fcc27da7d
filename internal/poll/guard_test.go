package poll

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTryEnterAdmitsExactlyOnce(t *testing.T) {
	guard := NewCompletionGuard()

	assert.True(t, guard.TryEnter("m1"))
	assert.False(t, guard.TryEnter("m1"))
	assert.False(t, guard.TryEnter("m1"))

	// Independent match ids have independent claims.
	assert.True(t, guard.TryEnter("m2"))
}

func TestTryEnterSingleWinnerUnderRace(t *testing.T) {
	guard := NewCompletionGuard()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if guard.TryEnter("race") {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.True(t, guard.Claimed("race"))
}

func TestResetReleasesClaim(t *testing.T) {
	guard := NewCompletionGuard()

	assert.True(t, guard.TryEnter("m1"))
	guard.Reset("m1")
	assert.False(t, guard.Claimed("m1"))
	assert.True(t, guard.TryEnter("m1"), "claim reusable after reset")

	// Resetting an unclaimed id is a no-op.
	guard.Reset("never-claimed")
}
