// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"fmt"

	"github.com/chainrelay/mempool/primitives"
)

// CheckInvariants is the invariant-verify mode of spec.md §7 "Sanity
// checking": an expensive walk of the full pool that checks index sizes,
// spend-map and parent/child link consistency and total_tx_size, and
// re-derives each non-dirty entry's descendant aggregates from scratch to
// compare them against the cached values. Ancestor aggregates and memory
// accounting are not checked. It returns the first mismatch found rather
// than panicking — callers (such as this package's tests) decide what to
// do with a non-nil error. It never mutates the pool.
func (p *Pool) CheckInvariants() error {
	p.lock.RLock()
	defer p.lock.RUnlock()

	if p.byDescendantScore.len() != len(p.byTxID) {
		return fmt.Errorf("sanity: by_descendant_score has %d entries, pool has %d",
			p.byDescendantScore.len(), len(p.byTxID))
	}
	if p.byAncestorScore.len() != len(p.byTxID) {
		return fmt.Errorf("sanity: by_ancestor_score has %d entries, pool has %d",
			p.byAncestorScore.len(), len(p.byTxID))
	}
	if p.byEntryTime.len() != len(p.byTxID) {
		return fmt.Errorf("sanity: by_entry_time has %d entries, pool has %d",
			p.byEntryTime.len(), len(p.byTxID))
	}

	var totalSize int64
	for txid, e := range p.byTxID {
		if e.TxId != txid {
			return fmt.Errorf("sanity: by_txid key %x maps to entry with TxId %x", txid, e.TxId)
		}
		totalSize += e.TxSize

		for _, in := range e.Tx.Inputs() {
			rec, ok := p.nextTx[in.PreviousOutPoint]
			if !ok || rec.entry != e {
				return fmt.Errorf("sanity: %x input %v missing/mismatched in next_tx", txid, in.PreviousOutPoint)
			}
		}

		for pid, parent := range e.Parents {
			if _, ok := p.byTxID[pid]; !ok {
				return fmt.Errorf("sanity: %x has parent %x not in pool", txid, pid)
			}
			if _, ok := parent.Children[txid]; !ok {
				return fmt.Errorf("sanity: %x->%x parent link not mirrored in child set", txid, pid)
			}
		}
		for cid, child := range e.Children {
			if _, ok := p.byTxID[cid]; !ok {
				return fmt.Errorf("sanity: %x has child %x not in pool", txid, cid)
			}
			if _, ok := child.Parents[txid]; !ok {
				return fmt.Errorf("sanity: %x->%x child link not mirrored in parent set", txid, cid)
			}
		}

		if e.IsDirty() {
			// Dirty entries are permitted to understate their descendant
			// aggregates (self-only); skip the exact recomputation check.
			continue
		}

		count, size, fees := p.recomputeDescendantAggregatesLocked(e)
		if count != e.CountWithDescendants || size != e.SizeWithDescendants || fees != e.FeesWithDescendants {
			return fmt.Errorf("sanity: %x descendant aggregates stale: have (%d,%d,%d) want (%d,%d,%d)",
				txid, e.CountWithDescendants, e.SizeWithDescendants, e.FeesWithDescendants,
				count, size, fees)
		}
	}

	if totalSize != p.totalTxSize {
		return fmt.Errorf("sanity: total_tx_size is %d, sum of entries is %d", p.totalTxSize, totalSize)
	}

	for op, rec := range p.nextTx {
		if _, ok := p.byTxID[rec.entry.TxId]; !ok {
			return fmt.Errorf("sanity: next_tx[%v] points at entry %x not in pool", op, rec.entry.TxId)
		}
	}

	return nil
}

// recomputeDescendantAggregatesLocked walks root's descendant closure
// from scratch, used by CheckInvariants to verify cached aggregates.
// Caller must hold at least a read lock.
func (p *Pool) recomputeDescendantAggregatesLocked(root *Entry) (count, size int64, fees primitives.CAmount) {
	visited := map[TxId]bool{root.TxId: true}
	frontier := []*Entry{root}
	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]
		count++
		size += cur.TxSize
		fees = fees.Add(cur.ModFee())
		for _, child := range cur.Children {
			if !visited[child.TxId] {
				visited[child.TxId] = true
				frontier = append(frontier, child)
			}
		}
	}
	return
}
