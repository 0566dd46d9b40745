// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import "github.com/chainrelay/mempool/primitives"

// DefaultDescendantUpdateBudget is the budget UpdateFromBlockDisconnect
// uses when given none: the number of entries it visits while
// recomputing one reinstated entry's descendant aggregates before giving
// up and marking that entry dirty (spec.md §4.C).
const DefaultDescendantUpdateBudget = 100

// UpdateFromBlockDisconnect reconnects the supplied transactions' parent
// and child links against the current pool contents (a reorg can
// reintroduce transactions whose unconfirmed parents are now present
// again), then recomputes descendant aggregates for each with a bounded
// traversal budget. Any entry whose recomputation is cut short by the
// budget is marked dirty instead: its descendant aggregates become
// self-only until a later, unbounded recomputation clears the flag. This
// is a correctness-preserving approximation — every downstream decision
// that reads a dirty entry's aggregates sees conservative, smaller
// values, never larger ones.
func (p *Pool) UpdateFromBlockDisconnect(reinstatedTxIds []TxId, budget int) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if budget <= 0 {
		budget = DefaultDescendantUpdateBudget
	}

	for _, txid := range reinstatedTxIds {
		e, ok := p.byTxID[txid]
		if !ok {
			continue
		}
		p.relinkLocked(e)
	}

	for _, txid := range reinstatedTxIds {
		e, ok := p.byTxID[txid]
		if !ok {
			continue
		}
		p.updateForDescendantsLocked(e, budget)
	}
}

// relinkLocked recomputes e.Parents from scratch by scanning e.Tx's
// inputs against by_txid, and updates each (new) parent's Children set
// to match. Caller must hold the pool lock.
func (p *Pool) relinkLocked(e *Entry) {
	for _, oldParent := range e.Parents {
		delete(oldParent.Children, e.TxId)
	}
	e.Parents = make(map[TxId]*Entry)

	for _, in := range e.Tx.Inputs() {
		parent, ok := p.byTxID[in.PreviousOutPoint.Hash]
		if !ok {
			continue
		}
		e.Parents[parent.TxId] = parent
		parent.Children[e.TxId] = e
	}
}

// updateForDescendantsLocked recomputes e's CountWithDescendants,
// SizeWithDescendants, and FeesWithDescendants by walking e's descendant
// closure, stopping (and marking e dirty) if the traversal exceeds
// budget visits.
func (p *Pool) updateForDescendantsLocked(e *Entry, budget int) {
	visited := map[TxId]bool{e.TxId: true}
	frontier := []*Entry{e}

	var count, size int64
	var fees primitives.CAmount

	visits := 0
	overBudget := false
	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]

		visits++
		if visits > budget {
			overBudget = true
			break
		}

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

	if overBudget {
		e.markDirty()
		p.byDescendantScore.reindex(e)
		return
	}

	e.CountWithDescendants = count
	e.SizeWithDescendants = size
	e.FeesWithDescendants = fees
	e.clearDirty()
	p.byDescendantScore.reindex(e)
}
