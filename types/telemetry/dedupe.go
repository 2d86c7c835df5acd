package telemetry

import (
	"fmt"

	"github.com/golang/groupcache/lru"
	"github.com/mitchellh/hashstructure/v2"
	"github.com/rotblauer/ftmsd/params"
)

// NewDedupeLRUFunc returns a filter-predicate closure over an LRU of
// event hashes. BLE stacks re-deliver notifications on reconnect;
// replayed events must not double-append raw samples.
func NewDedupeLRUFunc() func(Event) bool {
	var dedupeCache = lru.New(params.DefaultDedupeCacheSize)
	return func(e Event) bool {
		hash, err := hashstructure.Hash(e, hashstructure.FormatV2, nil)
		if err != nil {
			return false
		}
		key := fmt.Sprintf("%d", hash)
		_, ok := dedupeCache.Get(key)
		if ok {
			return false
		}
		dedupeCache.Add(key, true)
		return true
	}
}
