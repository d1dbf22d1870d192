package syncutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShardedMutexSerializesSameKey(t *testing.T) {
	var sm ShardedMutex
	var wg sync.WaitGroup
	counter := 0

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := sm.Lock("user-42")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()
	assert.Equal(t, 200, counter)
}

func TestShardedMutexStableShard(t *testing.T) {
	var sm ShardedMutex
	assert.Same(t, sm.shard("abc"), sm.shard("abc"))
}

func TestShardedMutexIndependentKeysDoNotDeadlock(t *testing.T) {
	var sm ShardedMutex
	unlockA := sm.Lock("aaaa")
	// a key on a different shard must be acquirable while the first is held
	for _, k := range []string{"bbbb", "cccc", "dddd", "eeee"} {
		if sm.shard(k) != sm.shard("aaaa") {
			unlockB := sm.Lock(k)
			unlockB()
			unlockA()
			return
		}
	}
	unlockA()
	t.Fatal("all probe keys collided with the same shard")
}
