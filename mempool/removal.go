// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"time"

	"github.com/chainrelay/mempool/events"
	"github.com/chainrelay/mempool/wire"
)

// descendantClosureLocked returns root's full descendant closure
// (including root itself), via BFS over Children. Caller must hold the
// pool lock.
func (p *Pool) descendantClosureLocked(root *Entry) map[TxId]*Entry {
	closure := map[TxId]*Entry{root.TxId: root}
	frontier := []*Entry{root}
	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]
		for _, child := range cur.Children {
			if _, ok := closure[child.TxId]; !ok {
				closure[child.TxId] = child
				frontier = append(frontier, child)
			}
		}
	}
	return closure
}

// decrementAncestorsOutsideStageLocked walks e's full ancestor set via
// BFS over Parents, decrementing CountWithDescendants/
// SizeWithDescendants/FeesWithDescendants by e's own self values on every
// ancestor not itself being removed in this call (spec.md §4.C
// remove_recursive, invariant I3/P3) — mirroring the all-ancestors rollup
// AddUnchecked performs on admission. The walk continues through
// in-stage ancestors (they are not skipped, just not decremented) so a
// chain like A<-B<-C still reaches A when C is the entry being processed
// and B sits between them in the same removal. Caller must hold the pool
// lock.
func (p *Pool) decrementAncestorsOutsideStageLocked(e *Entry, stage map[TxId]*Entry) {
	visited := make(map[TxId]bool)
	frontier := make([]*Entry, 0, len(e.Parents))
	for _, parent := range e.Parents {
		frontier = append(frontier, parent)
	}
	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]
		if visited[cur.TxId] {
			continue
		}
		visited[cur.TxId] = true

		if _, removing := stage[cur.TxId]; !removing {
			cur.CountWithDescendants--
			cur.SizeWithDescendants -= e.TxSize
			cur.FeesWithDescendants = cur.FeesWithDescendants.Add(-e.ModFee())
			p.byDescendantScore.reindex(cur)
		}

		for _, parent := range cur.Parents {
			frontier = append(frontier, parent)
		}
	}
}

// removeStagedLocked erases every entry in stage from all indices, the
// spend map, and its neighbours' links, decrementing ancestor aggregates
// for ancestors left outside the stage. Caller must hold the pool lock.
// reason is used only for the emitted removal events.
func (p *Pool) removeStagedLocked(stage map[TxId]*Entry, reason events.RemovalReason) {
	for txid, e := range stage {
		// Decrement descendant aggregates of every ancestor outside the
		// removal set, however far up the chain it sits — not just e's
		// direct parents. In-stage links are never severed below, so
		// walking Parents from e always reaches the pool's true
		// ancestors regardless of stage iteration order.
		p.decrementAncestorsOutsideStageLocked(e, stage)

		// Sever links with neighbours outside the stage (neighbours
		// inside the stage are being removed too, no need to edit).
		for _, parent := range e.Parents {
			if _, removing := stage[parent.TxId]; !removing {
				delete(parent.Children, txid)
			}
		}
		for _, child := range e.Children {
			if _, removing := stage[child.TxId]; !removing {
				delete(child.Parents, txid)
			}
		}

		for _, in := range e.Tx.Inputs() {
			delete(p.nextTx, in.PreviousOutPoint)
		}

		delete(p.byTxID, txid)
		p.byEntryTime.remove(e)
		p.byDescendantScore.remove(e)
		p.byAncestorScore.remove(e)

		p.totalTxSize -= e.TxSize
		p.cachedInnerUsage -= e.DynamicMemoryUsage

		p.estimator.RemovedTx(txid)
		p.emit(events.KindTransactionRemoved, events.TransactionRemoved{
			TxId: txid, Reason: reason,
		})
	}
}

// RemoveRecursive computes txid's descendant closure and removes every
// member, per spec.md §4.C.
func (p *Pool) RemoveRecursive(txid TxId, reason events.RemovalReason) {
	p.lock.Lock()
	defer p.lock.Unlock()

	root, ok := p.byTxID[txid]
	if !ok {
		return
	}
	stage := p.descendantClosureLocked(root)
	p.removeStagedLocked(stage, reason)
}

// RemoveForBlock implements spec.md §4.C remove_for_block: it removes
// every block transaction that is present in the pool (each block tx's
// descendants must already be gone, since block-confirmed transactions
// are internally consistent — a descendant surviving is a programming
// error), then removes anything still in the pool that conflicts with a
// block transaction's inputs. It emits MempoolUpdatedForBlockConnect
// strictly before the caller is expected to emit BlockConnected.
func (p *Pool) RemoveForBlock(blockTxs []*wire.MsgTx, height int32) (
	removedInBlock, removedConflicts []TxId) {

	p.lock.Lock()
	defer p.lock.Unlock()

	// Snapshot entries for the fee estimator callback before mutating.
	var snapshot []*Entry
	for _, tx := range blockTxs {
		if e, ok := p.byTxID[tx.Hash()]; ok {
			snapshot = append(snapshot, e)
		}
	}

	// Walk the block back to front: block order puts parents before
	// children, so each in-pool child is removed before its parent.
	for i := len(blockTxs) - 1; i >= 0; i-- {
		txid := blockTxs[i].Hash()
		e, ok := p.byTxID[txid]
		if !ok {
			continue
		}
		if len(e.Children) > 0 {
			panicInvariant("RemoveForBlock: %x has descendants still in pool", txid)
		}
		p.removeStagedLocked(map[TxId]*Entry{txid: e}, events.ReasonBlock)
		removedInBlock = append(removedInBlock, txid)
	}

	for _, tx := range blockTxs {
		for _, in := range tx.Inputs() {
			rec, spent := p.nextTx[in.PreviousOutPoint]
			if !spent {
				continue
			}
			stage := p.descendantClosureLocked(rec.entry)
			for id := range stage {
				removedConflicts = append(removedConflicts, id)
			}
			p.removeStagedLocked(stage, events.ReasonConflict)
		}
	}

	p.estimator.ProcessBlock(height, snapshot, true)

	p.emit(events.KindMempoolUpdatedForBlockConnect, events.MempoolUpdatedForBlockConnect{
		RemovedInBlock:    removedInBlock,
		RemovedConflicted: removedConflicts,
	})

	return removedInBlock, removedConflicts
}

// RemoveConflicts removes, for every input of tx, whatever pool entry
// (and its descendant closure) currently spends that outpoint. Used by
// callers admitting a new transaction that double-spends an existing
// pool entry (spec.md §8 scenario 3).
func (p *Pool) RemoveConflicts(tx *wire.MsgTx) []TxId {
	p.lock.Lock()
	defer p.lock.Unlock()

	var removed []TxId
	for _, in := range tx.Inputs() {
		rec, spent := p.nextTx[in.PreviousOutPoint]
		if !spent {
			continue
		}
		stage := p.descendantClosureLocked(rec.entry)
		for id := range stage {
			removed = append(removed, id)
		}
		p.removeStagedLocked(stage, events.ReasonConflict)
	}
	return removed
}

// Expire iterates by_entry_time ascending and removes every entry older
// than cutoff, plus its descendant closure (spec.md §4.D expire).
func (p *Pool) Expire(cutoff time.Time) int {
	p.lock.Lock()
	defer p.lock.Unlock()

	stage := make(map[TxId]*Entry)
	for _, e := range p.byEntryTime.ascend() {
		if p.shutdownRequested {
			break
		}
		if !e.Time.Before(cutoff) {
			break
		}
		if _, already := stage[e.TxId]; already {
			continue
		}
		for id, member := range p.descendantClosureLocked(e) {
			stage[id] = member
		}
	}

	p.removeStagedLocked(stage, events.ReasonExpiry)
	return len(stage)
}
