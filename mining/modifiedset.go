// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"github.com/chainrelay/mempool/mempool"
	"github.com/chainrelay/mempool/primitives"
)

// modifiedEntry tracks an in-mempool entry whose effective ancestor-
// package aggregates have shrunk because one or more of its ancestors
// already landed in the block under construction (spec.md §4.E's
// modified_tx auxiliary set).
type modifiedEntry struct {
	entry *mempool.Entry

	effSize      int64
	effFees      primitives.CAmount
	effSigOps    int64
	effAncestors int64

	removedAncestors map[mempool.TxId]bool
}

func newModifiedEntry(e *mempool.Entry) *modifiedEntry {
	return &modifiedEntry{
		entry:            e,
		effSize:          e.SizeWithAncestors,
		effFees:          e.ModFeesWithAncestors,
		effSigOps:        e.SigOpsWithAncestors,
		effAncestors:     e.CountWithAncestors,
		removedAncestors: make(map[mempool.TxId]bool),
	}
}

func (m *modifiedEntry) feeRate() float64 {
	if m.effSize <= 0 {
		return 0
	}
	return float64(m.effFees) / float64(m.effSize)
}

// removeAncestor subtracts ancestor's own contribution from m's effective
// package aggregates, idempotently (an ancestor is only subtracted once
// even if reachable through multiple paths).
func (m *modifiedEntry) removeAncestor(ancestor *mempool.Entry) {
	if m.removedAncestors[ancestor.TxId] {
		return
	}
	m.removedAncestors[ancestor.TxId] = true
	m.effSize -= ancestor.TxSize
	m.effFees = m.effFees.Add(-ancestor.ModFee())
	m.effSigOps -= ancestor.SigOpsCost
	m.effAncestors--
}

// modifiedSet is the modified_tx auxiliary ordered set. Selecting its best
// member is a linear scan rather than a tree, the same simplification
// scoreIndex documents for the pool's own ordered indices — block
// templates are assembled far less often than mempool entries are
// inserted, so the extra structure isn't warranted here either.
type modifiedSet struct {
	byTxID map[mempool.TxId]*modifiedEntry
}

func newModifiedSet() *modifiedSet {
	return &modifiedSet{byTxID: make(map[mempool.TxId]*modifiedEntry)}
}

func (s *modifiedSet) get(txid mempool.TxId) (*modifiedEntry, bool) {
	m, ok := s.byTxID[txid]
	return m, ok
}

func (s *modifiedSet) upsert(e *mempool.Entry) *modifiedEntry {
	if m, ok := s.byTxID[e.TxId]; ok {
		return m
	}
	m := newModifiedEntry(e)
	s.byTxID[e.TxId] = m
	return m
}

func (s *modifiedSet) delete(txid mempool.TxId) {
	delete(s.byTxID, txid)
}

// best returns the member with the highest effective fee-rate, tying on
// lower txid first (spec.md §4.E step 2).
func (s *modifiedSet) best() *modifiedEntry {
	var best *modifiedEntry
	for _, m := range s.byTxID {
		if best == nil {
			best = m
			continue
		}
		br, mr := best.feeRate(), m.feeRate()
		if mr > br || (mr == br && txIdLess(m.entry.TxId, best.entry.TxId)) {
			best = m
		}
	}
	return best
}

// txIdLess orders transaction ids lexicographically smallest-first —
// the "ties: lower txid first" rule of spec.md §4.E step 2.
func txIdLess(a, b mempool.TxId) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
