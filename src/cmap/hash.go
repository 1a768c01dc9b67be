package cmap

import "github.com/cespare/xxhash/v2"

// XXHash hashes a string key using xxhash. It is the default hasher for the
// maps in this package; it distributes keys well and is fast enough not to
// matter next to the lock contention it's meant to relieve.
func XXHash(s string) uint64 {
	return xxhash.Sum64String(s)
}

// SmallShardCount is a reasonable shard count for maps that are expected to
// hold at most a few thousand entries (e.g. one per source file in a repo).
const SmallShardCount = 1 << 5

// LargeShardCount is for maps expected to grow into the tens of thousands of
// entries, e.g. one per item in a large item graph.
const LargeShardCount = 1 << 8
