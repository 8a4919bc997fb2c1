package sessionlock_test

import (
	"sync"
	"testing"

	"github.com/soulweave/rose/internal/sessionlock"
	"github.com/stretchr/testify/assert"
)

func TestLocker_MutualExclusionPerKey(t *testing.T) {
	locker := sessionlock.New()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
	)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			locker.Lock("session-1")
			defer locker.Unlock("session-1")

			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen, "only one holder per key at a time")
}

func TestLocker_KeysAreIndependent(t *testing.T) {
	locker := sessionlock.New()
	locker.Lock("a")

	done := make(chan struct{})
	go func() {
		locker.Lock("b")
		locker.Unlock("b")
		close(done)
	}()

	<-done
	locker.Unlock("a")
}
