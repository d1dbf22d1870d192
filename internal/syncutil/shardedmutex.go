package syncutil

import (
	"hash/fnv"
	"sync"
)

const shardCount = 256

// ShardedMutex serializes work per string key with a fixed pool of mutexes,
// so memory stays bounded no matter how many user IDs pass through. Keys
// that hash to the same shard occasionally contend with each other; for
// per-user scoring serialization that false sharing is acceptable.
type ShardedMutex struct {
	shards [shardCount]sync.Mutex
}

// Lock acquires the mutex for key and returns its unlock function.
func (s *ShardedMutex) Lock(key string) func() {
	mu := s.shard(key)
	mu.Lock()
	return mu.Unlock
}

func (s *ShardedMutex) shard(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &s.shards[h.Sum32()%shardCount]
}
