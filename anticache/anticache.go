// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package anticache implements the small bounded data structures that
// back the anti-DoS checks called out in spec.md: the short-ID bucket
// occupancy counter used by the compact-block reconstructor (§4.F) and a
// bounded "recently evicted" set consulted by the eviction engine (§4.D)
// for diagnostics.
package anticache

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/decred/dcrd/lru"
)

// Bucketer counts how many short IDs land in the same bucket while a
// compact block is being reconstructed, so InitFromCompact can bail out
// once any bucket exceeds the spec's overflow threshold rather than
// building an unbounded hash map under adversarial input.
type Bucketer struct {
	buckets map[uint64]int
	max     int
}

// NewBucketer creates a Bucketer that fails once any single bucket
// accrues more than max entries.
func NewBucketer(max int) *Bucketer {
	return &Bucketer{
		buckets: make(map[uint64]int),
		max:     max,
	}
}

// Add records an occurrence of bucket b and reports whether the bucket is
// now over the configured maximum.
func (bk *Bucketer) Add(b uint64) (overflowed bool) {
	bk.buckets[b]++
	return bk.buckets[b] > bk.max
}

// EvictedSet is a bounded LRU of recently evicted transaction ids, used
// purely for diagnostics — the eviction engine's admit/evict decision
// never consults it.
type EvictedSet struct {
	cache lru.Cache
}

// NewEvictedSet creates an EvictedSet holding up to capacity entries.
func NewEvictedSet(capacity int) *EvictedSet {
	return &EvictedSet{cache: lru.NewCache(uint(capacity))}
}

// Add records txid as recently evicted.
func (s *EvictedSet) Add(txid chainhash.Hash) {
	s.cache.Add(txid)
}

// WasRecentlyEvicted reports whether txid was evicted recently enough to
// still be tracked.
func (s *EvictedSet) WasRecentlyEvicted(txid chainhash.Hash) bool {
	return s.cache.Contains(txid)
}
