// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package mempool implements the in-memory unconfirmed-transaction pool
// (spec.md §4.C), its eviction policy (§4.D), and the fee/weight
// primitives it shares with the block assembler. External validation
// (ValidateInputs) and chain storage remain out of scope — the pool
// trusts its caller to have already validated a transaction before
// calling AddUnchecked.
package mempool

import (
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btclog"

	"github.com/chainrelay/mempool/events"
	"github.com/chainrelay/mempool/primitives"
	"github.com/chainrelay/mempool/wire"
)

// Sentinel errors. CalculateAncestors wraps one of the four
// ancestor/descendant limit errors (with %w) when a transaction would
// exceed the corresponding limit.
var (
	ErrTxAlreadyInPool     = errors.New("mempool: transaction already in pool")
	ErrInputSpentInPool    = errors.New("mempool: input already spent by a pool transaction")
	ErrTooManyAncestors    = errors.New("mempool: exceeds ancestor count limit")
	ErrAncestorSizeLimit   = errors.New("mempool: exceeds ancestor size limit")
	ErrDescendantSizeLimit = errors.New("mempool: exceeds descendant size limit")
	ErrDescendantCountLimit = errors.New("mempool: exceeds descendant count limit")
	ErrNotInPool           = errors.New("mempool: transaction not in pool")
)

// log is the package-level logger, following the teacher's btclog
// convention of a package-scoped Logger variable that callers may
// override via UseLogger.
var log = btclog.Disabled

// UseLogger sets the package-wide logger.
func UseLogger(logger btclog.Logger) { log = logger }

// AncestorLimits bounds the BFS performed by CalculateAncestors.
type AncestorLimits struct {
	MaxCount          int64
	MaxSize           int64
	MaxDescendantCount int64
	MaxDescendantSize  int64
}

// DefaultAncestorLimits matches Bitcoin Core's default mempool policy.
func DefaultAncestorLimits() AncestorLimits {
	return AncestorLimits{
		MaxCount:           25,
		MaxSize:            101_000,
		MaxDescendantCount: 25,
		MaxDescendantSize:  101_000,
	}
}

// FeeEstimator is the callback surface spec.md §4.C describes for the
// (opaque) fee estimator collaborator.
type FeeEstimator interface {
	ProcessTransaction(e *Entry, isCurrentEstimate bool)
	ProcessBlock(height int32, entries []*Entry, isCurrentEstimate bool)
	RemovedTx(txid TxId)
}

type noopEstimator struct{}

func (noopEstimator) ProcessTransaction(*Entry, bool)        {}
func (noopEstimator) ProcessBlock(int32, []*Entry, bool)     {}
func (noopEstimator) RemovedTx(TxId)                         {}

// spendRecord is the value type of the pool's next_tx spend map.
type spendRecord struct {
	entry      *Entry
	inputIndex int
}

// priorityDelta is the persisted additive adjustment applied by
// Prioritise, surviving entry removal (spec.md §3 "Prioritisation map").
type priorityDelta struct {
	priority float64
	fee      primitives.CAmount
}

// Pool is the mempool index (spec.md §4.C). All exported mutating
// methods hold the pool's lock for their entire body and never suspend
// while holding it — see spec.md §5.
type Pool struct {
	lock poolLock

	byTxID map[TxId]*Entry

	byEntryTime       timeIndex
	byDescendantScore *scoreIndex
	byAncestorScore   *scoreIndex

	nextTx map[wire.OutPoint]spendRecord

	prioritisation map[TxId]priorityDelta

	totalTxSize      int64
	cachedInnerUsage int64

	queue     *events.Queue
	estimator FeeEstimator

	shutdownRequested bool
}

// New creates an empty Pool. queue may be nil, in which case events are
// dropped (useful in tests that only check index state).
func New(queue *events.Queue, estimator FeeEstimator) *Pool {
	if estimator == nil {
		estimator = noopEstimator{}
	}
	return &Pool{
		byTxID:            make(map[TxId]*Entry),
		byDescendantScore: newScoreIndex(descendantScoreLess),
		byAncestorScore:   newScoreIndex(ancestorScoreLess),
		nextTx:            make(map[wire.OutPoint]spendRecord),
		prioritisation:    make(map[TxId]priorityDelta),
		queue:             queue,
		estimator:         estimator,
	}
}

// RequestShutdown sets the cooperative cancellation flag long-running
// loops (expire, trim, the assembler) poll between iterations.
func (p *Pool) RequestShutdown() {
	p.lock.Lock()
	p.shutdownRequested = true
	p.lock.Unlock()
}

func (p *Pool) emit(kind events.Kind, data interface{}) {
	if p.queue == nil {
		return
	}
	p.queue.Enqueue(events.Event{Kind: kind, Data: data})
}

// Lookup returns the entry for txid, if present.
func (p *Pool) Lookup(txid TxId) (*Entry, bool) {
	p.lock.RLock()
	defer p.lock.RUnlock()
	e, ok := p.byTxID[txid]
	return e, ok
}

// Exists reports whether txid is in the pool.
func (p *Pool) Exists(txid TxId) bool {
	p.lock.RLock()
	defer p.lock.RUnlock()
	_, ok := p.byTxID[txid]
	return ok
}

// QueryHashes returns a snapshot of all txids currently in the pool.
func (p *Pool) QueryHashes() []TxId {
	p.lock.RLock()
	defer p.lock.RUnlock()
	out := make([]TxId, 0, len(p.byTxID))
	for id := range p.byTxID {
		out = append(out, id)
	}
	return out
}

// Size returns the number of entries in the pool.
func (p *Pool) Size() int {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return len(p.byTxID)
}

// DynamicMemoryUsage returns the cached sum of per-entry memory
// accounting (spec.md I5).
func (p *Pool) DynamicMemoryUsage() int64 {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.cachedInnerUsage
}

// TotalTxSize returns Σ e.TxSize (spec.md I5).
func (p *Pool) TotalTxSize() int64 {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.totalTxSize
}

// CalculateAncestors performs the BFS of spec.md §4.C over tx's inputs
// (for a transaction not yet in the pool) and returns the exact set of
// in-mempool ancestors, or an error if any of the supplied limits would
// be exceeded.
func (p *Pool) CalculateAncestors(tx *wire.MsgTx, selfSize int64,
	limits AncestorLimits) (map[TxId]*Entry, error) {

	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.calculateAncestorsLocked(tx, selfSize, limits)
}

func (p *Pool) calculateAncestorsLocked(tx *wire.MsgTx, selfSize int64,
	limits AncestorLimits) (map[TxId]*Entry, error) {

	ancestors := make(map[TxId]*Entry)
	var cumulativeSize int64

	// Seed the BFS frontier from the direct parents found by scanning
	// inputs against by_txid.
	frontier := make([]*Entry, 0, len(tx.Inputs()))
	seen := make(map[TxId]bool)
	for _, in := range tx.Inputs() {
		parent, ok := p.byTxID[in.PreviousOutPoint.Hash]
		if !ok || seen[parent.TxId] {
			continue
		}
		seen[parent.TxId] = true
		frontier = append(frontier, parent)
	}

	for len(frontier) > 0 {
		next := frontier[0]
		frontier = frontier[1:]

		if _, already := ancestors[next.TxId]; already {
			continue
		}

		if int64(len(ancestors))+1 > limits.MaxCount {
			return nil, fmt.Errorf("%w: %d", ErrTooManyAncestors, limits.MaxCount)
		}
		if next.SizeWithDescendants+selfSize > limits.MaxDescendantSize {
			return nil, fmt.Errorf("%w: ancestor %x", ErrDescendantSizeLimit, next.TxId)
		}
		if next.CountWithDescendants+1 > limits.MaxDescendantCount {
			return nil, fmt.Errorf("%w: ancestor %x", ErrDescendantCountLimit, next.TxId)
		}

		cumulativeSize += next.TxSize
		if cumulativeSize > limits.MaxSize {
			return nil, fmt.Errorf("%w: cumulative %d", ErrAncestorSizeLimit, cumulativeSize)
		}

		ancestors[next.TxId] = next
		for _, parent := range next.Parents {
			if !seen[parent.TxId] {
				seen[parent.TxId] = true
				frontier = append(frontier, parent)
			}
		}
	}

	return ancestors, nil
}

// AddUnchecked inserts entry into the pool. The caller must have already
// validated the transaction and computed (or obtained via
// CalculateAncestors) the exact set of in-mempool ancestors; violating
// either precondition is a programming error (spec.md §7).
func (p *Pool) AddUnchecked(tx *wire.MsgTx, fee primitives.CAmount,
	at time.Time, height int32, sigOpsCost int64,
	hadNoMempoolInputs bool, ancestors map[TxId]*Entry) (*Entry, error) {

	p.lock.Lock()

	txid := tx.Hash()
	if _, exists := p.byTxID[txid]; exists {
		p.lock.Unlock()
		panicInvariant("AddUnchecked: %x already in pool", txid)
	}

	for _, in := range tx.Inputs() {
		if _, spent := p.nextTx[in.PreviousOutPoint]; spent {
			p.lock.Unlock()
			panicInvariant("AddUnchecked: input %v already spent in pool",
				in.PreviousOutPoint)
		}
	}

	entry := newEntry(tx, fee, at, height, sigOpsCost, hadNoMempoolInputs)

	// Reapply any persisted prioritisation delta (spec.md §4.C
	// prioritise: "Persists after removal").
	if delta, ok := p.prioritisation[txid]; ok {
		entry.feeDelta = delta.fee
		entry.FeesWithDescendants = entry.ModFee()
		entry.ModFeesWithAncestors = entry.ModFee()
	}

	// Register spend map entries.
	for i, in := range tx.Inputs() {
		p.nextTx[in.PreviousOutPoint] = spendRecord{entry: entry, inputIndex: i}
	}

	// Direct parents are the subset of ancestors that this tx's inputs
	// spend directly.
	for _, in := range tx.Inputs() {
		if parent, ok := ancestors[in.PreviousOutPoint.Hash]; ok {
			entry.Parents[parent.TxId] = parent
			parent.Children[entry.TxId] = entry
		}
	}

	// Roll up ancestor aggregates onto entry, and bump every ancestor's
	// descendant aggregates by entry's self values.
	var ancSize, ancSigOps, ancCount int64
	var ancModFee primitives.CAmount
	for _, anc := range ancestors {
		ancSize += anc.TxSize
		ancSigOps += anc.SigOpsCost
		ancCount++
		ancModFee = ancModFee.Add(anc.ModFee())

		anc.CountWithDescendants++
		anc.SizeWithDescendants += entry.TxSize
		anc.FeesWithDescendants = anc.FeesWithDescendants.Add(entry.ModFee())
		p.byDescendantScore.reindex(anc)
	}
	entry.SizeWithAncestors += ancSize
	entry.SigOpsWithAncestors += ancSigOps
	entry.CountWithAncestors += ancCount
	entry.ModFeesWithAncestors = entry.ModFeesWithAncestors.Add(ancModFee)

	p.byTxID[txid] = entry
	p.byEntryTime.insert(entry)
	p.byDescendantScore.insert(entry)
	p.byAncestorScore.insert(entry)

	p.totalTxSize += entry.TxSize
	p.cachedInnerUsage += entry.DynamicMemoryUsage

	p.estimator.ProcessTransaction(entry, true)

	p.emit(events.KindTransactionAdded, events.TransactionAdded{
		TxId:               txid,
		Fee:                int64(entry.Fee),
		VSize:              entry.TxSize,
		ValidForEstimation: entry.HadNoMempoolInputsAtEntry,
	})

	p.lock.Unlock()
	return entry, nil
}

// Prioritise additively adjusts txid's priority and fee deltas. The
// adjustment persists in the pool's prioritisation map even after the
// entry is removed, and is reapplied if the same txid is re-added later.
func (p *Pool) Prioritise(txid TxId, deltaPriority float64, deltaFee primitives.CAmount) {
	p.lock.Lock()
	defer p.lock.Unlock()

	d := p.prioritisation[txid]
	d.priority += deltaPriority
	d.fee = d.fee.Add(deltaFee)
	p.prioritisation[txid] = d

	if e, ok := p.byTxID[txid]; ok {
		e.feeDelta = e.feeDelta.Add(deltaFee)

		// Both aggregates include the entry's own modified fee as a term
		// (FeesWithDescendants over self+descendants, ModFeesWithAncestors
		// over self+ancestors), so e's own feeDelta change must be applied
		// to e here before propagating outward.
		e.FeesWithDescendants = e.FeesWithDescendants.Add(deltaFee)
		e.ModFeesWithAncestors = e.ModFeesWithAncestors.Add(deltaFee)
		p.byAncestorScore.reindex(e)
		p.byDescendantScore.reindex(e)

		// The delta also shifts every ancestor's FeesWithDescendants and
		// every descendant's ModFeesWithAncestors (spec.md §3, §4.C) —
		// both aggregates roll up modified fee, not raw fee. Re-rank the
		// score index each touched entry lives in.
		for _, anc := range p.ancestorsLocked(e) {
			anc.FeesWithDescendants = anc.FeesWithDescendants.Add(deltaFee)
			p.byDescendantScore.reindex(anc)
		}
		for _, desc := range p.descendantsLocked(e) {
			desc.ModFeesWithAncestors = desc.ModFeesWithAncestors.Add(deltaFee)
			p.byAncestorScore.reindex(desc)
		}
	}
}

// ApplyDeltas additively combines txid's persisted prioritisation deltas
// into priority and fee.
func (p *Pool) ApplyDeltas(txid TxId, priority *float64, fee *primitives.CAmount) {
	p.lock.RLock()
	defer p.lock.RUnlock()
	if d, ok := p.prioritisation[txid]; ok {
		*priority += d.priority
		*fee = fee.Add(d.fee)
	}
}

// panicInvariant logs at Critical and panics — the assertion-failure
// path spec.md §7 mandates for AddUnchecked precondition violations and
// other conditions that should be unreachable given a correct caller.
func panicInvariant(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Criticalf("mempool invariant violated: %s", msg)
	panic("mempool: " + msg)
}
