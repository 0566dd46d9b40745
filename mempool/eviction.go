// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"math/rand"

	"github.com/chainrelay/mempool/anticache"
	"github.com/chainrelay/mempool/events"
	"github.com/chainrelay/mempool/primitives"
)

// sampleSkipDenominator implements the "skip 9/10" sampling throttle of
// spec.md §4.D step 2: each candidate is independently skipped with
// probability 9/10, i.e. admitted into consideration 1 time in 10.
const sampleSkipDenominator = 10

// maxConsecutiveFails bounds how many aborted candidates TrimToSize will
// tolerate before giving up for this call (spec.md §4.D step 3f).
const maxConsecutiveFails = 10

// IncomingCandidate describes the transaction TrimToSize is making room
// for: its paid fee rate, its total fee (the eviction budget), and the
// set of in-pool txids it protects because it spends one of their
// outputs (spec.md §4.D "protect set").
type IncomingCandidate struct {
	FeeRate  primitives.FeeRate
	Fee      primitives.CAmount
	Protect  map[TxId]bool
}

// TrimToSize implements spec.md §4.D trim_to_size. It evicts whole
// descendant-closure sub-forests from the worst (lowest descendant-score)
// end of the pool until the pool's total transaction size is at or below
// targetUsage, or gives up per the algorithm's fail/iteration budgets.
//
// incoming may be nil for the periodic "surplus trim" described in
// spec.md §4.D (no admission pressure, empty protect set); in that case
// referenceRate supplies the comparison benchmark
// (multiplier*min_relay_rate) in place of an incoming transaction's paid
// rate, and mustTrimAll is expected to be false.
//
// rng must be a seeded, non-cryptographic source — tests inject a fixed
// seed for determinism; production code seeds from time/entropy once at
// startup (spec.md §9 "Deterministic-yet-sampled eviction").
// recentlyEvicted, if non-nil, is populated with every txid this call
// evicts — pure diagnostics, per anticache.EvictedSet's contract; it is
// never consulted to make the admit/evict decision itself.
func (p *Pool) TrimToSize(targetUsage int64, incoming *IncomingCandidate,
	referenceRate primitives.FeeRate, reservedFees primitives.CAmount,
	mustTrimAll bool, rng *rand.Rand, recentlyEvicted *anticache.EvictedSet) (evicted []TxId, feesRemoved primitives.CAmount, ok bool) {

	p.lock.Lock()
	defer p.lock.Unlock()

	sizeToTrim := p.totalTxSize - targetUsage
	if sizeToTrim <= 0 {
		return nil, 0, true
	}

	protect := map[TxId]bool{}
	var budgetFee primitives.CAmount = -1 // -1 == unbounded (surplus trim)
	rate := referenceRate
	if incoming != nil {
		protect = incoming.Protect
		budgetFee = incoming.Fee
		rate = incoming.FeeRate
	}

	stage := make(map[TxId]*Entry)
	var usageRemoved int64
	var fails int
	var iterExtra int

	candidates := p.byDescendantScore.ascend()
	for _, h := range candidates {
		if p.shutdownRequested {
			break
		}
		if usageRemoved >= sizeToTrim {
			break
		}
		if fails > maxConsecutiveFails {
			break
		}

		// Sampling throttle: admit roughly 1 in sampleSkipDenominator.
		if rng.Intn(sampleSkipDenominator) != 0 {
			continue
		}

		if _, already := stage[h.TxId]; already {
			continue
		}

		remaining := sizeToTrim - usageRemoved
		scale := float64(remaining) / float64(sizeToTrim)
		if scale < 0 {
			scale = 0
		}
		thresholdRate := float64(rate.SatoshisPerKB) / 1000 * scale
		if h.descendantScore() >= thresholdRate && thresholdRate > 0 {
			break
		}

		closure, subtreeFee, subtreeSize, budgetExceeded, protectedHit, iters :=
			p.bfsClosureForEviction(h, stage, protect, budgetFee, fees(stage).Add(reservedFees), iterExtra, fails)

		iterExtra += iters

		if protectedHit || budgetExceeded {
			fails++
			continue
		}

		// Abort if the subtree's own aggregate fee-rate is at least as
		// good as what the incoming transaction is paying: evicting it
		// would be throwing away a perfectly competitive package.
		if subtreeSize > 0 {
			subtreeRate := float64(subtreeFee) / float64(subtreeSize)
			if incoming != nil && subtreeRate >= float64(rate.SatoshisPerKB)/1000 {
				fails++
				continue
			}
		}

		for id, e := range closure {
			stage[id] = e
		}
		feesRemoved = feesRemoved.Add(subtreeFee)
		usageRemoved += subtreeSize
	}

	reachedTarget := usageRemoved >= sizeToTrim

	ids := make([]TxId, 0, len(stage))
	for id := range stage {
		ids = append(ids, id)
		if recentlyEvicted != nil {
			recentlyEvicted.Add(id)
		}
	}
	p.removeStagedLocked(stage, events.ReasonSizeLimit)

	if mustTrimAll && !reachedTarget {
		return ids, feesRemoved, false
	}
	return ids, feesRemoved, true
}

// fees sums the ModFee of every entry currently staged, used to keep the
// cumulative-fee-budget check accurate without threading an extra
// accumulator through bfsClosureForEviction's signature.
func fees(stage map[TxId]*Entry) primitives.CAmount {
	var total primitives.CAmount
	for _, e := range stage {
		total = total.Add(e.ModFee())
	}
	return total
}

// bfsClosureForEviction walks candidate's descendant closure, aborting
// early if the closure touches the protect set, would push the
// cumulative evicted fee over budgetFee (when budgetFee >= 0), or spends
// more iterations than the current allowance
// (iterExtra + 10*(fails+1)). It never mutates the pool; the caller
// commits the returned closure.
func (p *Pool) bfsClosureForEviction(candidate *Entry, stage map[TxId]*Entry,
	protect map[TxId]bool, budgetFee primitives.CAmount, alreadyRemoved primitives.CAmount,
	iterExtra, fails int) (closure map[TxId]*Entry, subtreeFee primitives.CAmount,
	subtreeSize int64, budgetExceeded, protectedHit bool, iterations int) {

	closure = map[TxId]*Entry{candidate.TxId: candidate}
	frontier := []*Entry{candidate}
	allowance := iterExtra + 10*(fails+1)

	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]
		iterations++

		if iterations > allowance {
			// Out of iteration allowance: report an exceeded budget so the
			// caller aborts this candidate instead of committing a
			// partially explored closure.
			budgetExceeded = true
			return closure, subtreeFee, subtreeSize, budgetExceeded, protectedHit, iterations
		}
		if protect[cur.TxId] {
			protectedHit = true
			return closure, subtreeFee, subtreeSize, budgetExceeded, protectedHit, iterations
		}

		subtreeFee = subtreeFee.Add(cur.ModFee())
		subtreeSize += cur.TxSize

		if budgetFee >= 0 && alreadyRemoved.Add(subtreeFee) > budgetFee {
			budgetExceeded = true
			return closure, subtreeFee, subtreeSize, budgetExceeded, protectedHit, iterations
		}

		for _, child := range cur.Children {
			if _, ok := closure[child.TxId]; !ok {
				if _, staged := stage[child.TxId]; staged {
					continue
				}
				closure[child.TxId] = child
				frontier = append(frontier, child)
			}
		}
	}

	return closure, subtreeFee, subtreeSize, budgetExceeded, protectedHit, iterations
}
