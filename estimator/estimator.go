// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package estimator implements a fee-rate estimator that observes
// mempool admission and block confirmation events and buckets
// transactions by fee rate to learn, per confirmation target, which
// fee rate has historically been sufficient to confirm within that
// target. It satisfies mempool.FeeEstimator so a *Pool can drive it
// directly.
package estimator

import (
	"math"
	"sync"

	"github.com/btcsuite/btclog"

	"github.com/chainrelay/mempool/mempool"
	"github.com/chainrelay/mempool/primitives"
)

// log is the package-level logger, silent until UseLogger is called.
var log = btclog.Disabled

// UseLogger sets the package-wide logger.
func UseLogger(logger btclog.Logger) { log = logger }

const (
	// DefaultMaxConfirmations bounds how many confirmation buckets are
	// tracked; targets beyond this are not distinguished.
	DefaultMaxConfirmations = 25

	// DefaultFeeRateStep is the geometric ratio between adjacent fee-rate
	// buckets.
	DefaultFeeRateStep = 1.1

	// defaultDecay exponentially ages out old observations so the
	// estimator tracks recent mempool conditions rather than an
	// all-time average.
	defaultDecay = 0.998

	// minTrackedFeeRate is the lower edge of the lowest bucket, in
	// satoshis per kilobyte.
	minTrackedFeeRate = 1000

	// maxBuckets bounds the bucket slice so a maliciously large fee rate
	// can't grow memory usage without bound.
	maxBuckets = 300
)

// bucket tracks, for one fee-rate range, a decayed count of transactions
// seen and how many confirmed within each confirmation-target bucket.
type bucket struct {
	feeRate     float64 // upper edge, sat/kB
	txCount     float64
	confirmedBy [DefaultMaxConfirmations]float64
}

// tracked is the per-transaction bookkeeping kept between ProcessTransaction
// and either ProcessBlock (confirmed) or RemovedTx (evicted, never mined).
type tracked struct {
	bucketIndex int
	enteredAt   int32
}

// Estimator implements mempool.FeeEstimator. All state is protected by mu
// so concurrent ProcessTransaction/ProcessBlock/RemovedTx calls from the
// pool's notification path are safe.
type Estimator struct {
	mu sync.Mutex

	buckets []bucket
	seen    map[mempool.TxId]tracked
}

// New constructs an Estimator with a geometric bucket ladder starting at
// minTrackedFeeRate and growing by DefaultFeeRateStep until maxBuckets is
// reached.
func New() *Estimator {
	e := &Estimator{seen: make(map[mempool.TxId]tracked)}
	rate := float64(minTrackedFeeRate)
	for i := 0; i < maxBuckets; i++ {
		e.buckets = append(e.buckets, bucket{feeRate: rate})
		rate *= DefaultFeeRateStep
	}
	return e
}

func (e *Estimator) bucketFor(rate float64) int {
	for i, b := range e.buckets {
		if rate <= b.feeRate {
			return i
		}
	}
	return len(e.buckets) - 1
}

// ProcessTransaction records a transaction's fee rate and entry height so
// a later ProcessBlock call can learn how many confirmations it took.
// isCurrentEstimate is false for transactions re-added during a reorg or
// replaced by a conflicting spend — those do not represent a fresh
// fee-rate decision and are not tracked.
func (e *Estimator) ProcessTransaction(entry *mempool.Entry, isCurrentEstimate bool) {
	if !isCurrentEstimate {
		return
	}
	rate := primitives.NewFeeRate(entry.Fee, entry.TxSize)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.seen[entry.TxId] = tracked{
		bucketIndex: e.bucketFor(float64(rate.SatoshisPerKB)),
		enteredAt:   entry.HeightAtEntry,
	}
}

// ProcessBlock updates bucket statistics for every entry that was mined
// in this block and was previously tracked, then decays every bucket so
// older observations matter less than recent ones.
func (e *Estimator) ProcessBlock(height int32, entries []*mempool.Entry, isCurrentEstimate bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, entry := range entries {
		t, ok := e.seen[entry.TxId]
		if !ok {
			continue
		}
		delete(e.seen, entry.TxId)
		if !isCurrentEstimate {
			continue
		}
		confirmations := height - t.enteredAt
		if confirmations < 1 {
			confirmations = 1
		}
		if int(confirmations) > DefaultMaxConfirmations {
			confirmations = DefaultMaxConfirmations
		}
		b := &e.buckets[t.bucketIndex]
		b.txCount++
		for c := int(confirmations); c <= DefaultMaxConfirmations; c++ {
			b.confirmedBy[c-1]++
		}
	}

	for i := range e.buckets {
		e.buckets[i].txCount *= defaultDecay
		for c := range e.buckets[i].confirmedBy {
			e.buckets[i].confirmedBy[c] *= defaultDecay
		}
	}

	log.Debugf("estimator: processed block %d, %d transactions tracked", height, len(e.seen))
}

// RemovedTx drops a transaction's tracked entry without touching bucket
// statistics: an eviction or conflict-removal carries no confirmation
// information one way or the other.
func (e *Estimator) RemovedTx(txid mempool.TxId) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.seen, txid)
}

// ErrNotEnoughData is returned by EstimateFee when too few transactions
// have been observed at any bucket to produce a confident estimate.
var ErrNotEnoughData = estimatorError("not enough transactions observed for this confirmation target")

type estimatorError string

func (e estimatorError) Error() string { return "estimator: " + string(e) }

// minSuccessPct is the fraction of a bucket's transactions that must have
// confirmed within the target for that bucket's rate to be considered
// sufficient.
const minSuccessPct = 0.85

// minObservations is the decayed transaction count a bucket needs before
// its success percentage is trusted.
const minObservations = 0.1

// EstimateFee returns the lowest fee rate whose bucket has historically
// confirmed at least minSuccessPct of its transactions within confTarget
// blocks, scanning from the highest fee-rate bucket down so the result is
// the cheapest rate that still clears the bar.
func (e *Estimator) EstimateFee(confTarget int32) (primitives.FeeRate, error) {
	if confTarget < 1 {
		confTarget = 1
	}
	if int(confTarget) > DefaultMaxConfirmations {
		confTarget = DefaultMaxConfirmations
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	best := -1
	for i := len(e.buckets) - 1; i >= 0; i-- {
		b := e.buckets[i]
		if b.txCount < minObservations {
			continue
		}
		pct := b.confirmedBy[confTarget-1] / b.txCount
		if pct >= minSuccessPct {
			best = i
			continue
		}
		break
	}
	if best < 0 {
		return primitives.FeeRate{}, ErrNotEnoughData
	}
	return primitives.FeeRate{SatoshisPerKB: primitives.CAmount(math.Ceil(e.buckets[best].feeRate))}, nil
}
