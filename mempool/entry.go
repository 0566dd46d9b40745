// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"time"

	"github.com/chainrelay/mempool/primitives"
	"github.com/chainrelay/mempool/wire"
)

// TxId aliases the transaction identifier type used throughout the pool.
type TxId = wire.TxId

// Entry is a mempool record plus its aggregate ancestor/descendant
// statistics (spec.md §3, MempoolEntry). A *Entry is used as the stable
// handle referenced by the pool's auxiliary indices and by other entries'
// Parents/Children sets; it stays valid for as long as the entry remains
// in the pool.
type Entry struct {
	Tx     *wire.MsgTx
	TxId   TxId

	Fee                       primitives.CAmount
	Time                      time.Time
	HeightAtEntry             int32
	SigOpsCost                int64
	TxSize                    int64 // virtual size, in bytes
	ModifiedSize              int64
	DynamicMemoryUsage        int64
	HadNoMempoolInputsAtEntry bool

	// feeDelta is the accumulated prioritisation fee delta (spec.md §4.C
	// prioritise). It survives entry removal via the pool's separate
	// prioritisation map and is reapplied by AddUnchecked.
	feeDelta primitives.CAmount

	// dirty indicates the descendant aggregates below are stale. While
	// dirty, callers must treat them as equal to the self-only values
	// (spec.md §3 "Lifecycle", "Dirty entry" in the glossary).
	dirty bool

	CountWithDescendants int64
	SizeWithDescendants  int64
	FeesWithDescendants  primitives.CAmount

	SizeWithAncestors    int64
	ModFeesWithAncestors primitives.CAmount
	SigOpsWithAncestors  int64
	CountWithAncestors   int64

	Parents  map[TxId]*Entry
	Children map[TxId]*Entry
}

// newEntry constructs an Entry in its as-just-admitted state: self-only
// aggregates, no parents/children yet.
func newEntry(tx *wire.MsgTx, fee primitives.CAmount, at time.Time,
	height int32, sigOpsCost int64, hadNoMempoolInputs bool) *Entry {

	vsize := primitives.VSize(tx.Weight())

	e := &Entry{
		Tx:                        tx,
		TxId:                      tx.Hash(),
		Fee:                       fee,
		Time:                      at,
		HeightAtEntry:             height,
		SigOpsCost:                sigOpsCost,
		TxSize:                    vsize,
		ModifiedSize:              vsize,
		HadNoMempoolInputsAtEntry: hadNoMempoolInputs,
		Parents:                   make(map[TxId]*Entry),
		Children:                  make(map[TxId]*Entry),

		CountWithDescendants: 1,
		SizeWithDescendants:  vsize,
		FeesWithDescendants:  fee,

		SizeWithAncestors:    vsize,
		ModFeesWithAncestors: fee,
		SigOpsWithAncestors:  sigOpsCost,
		CountWithAncestors:   1,
	}
	e.DynamicMemoryUsage = e.estimateMemUsage()
	return e
}

// ModFee returns the entry's fee plus any accumulated prioritisation
// delta — the "modified fee" used wherever the spec says so (ancestor
// scoring, block assembler).
func (e *Entry) ModFee() primitives.CAmount {
	return e.Fee.Add(e.feeDelta)
}

// IsDirty reports whether descendant aggregates are stale.
func (e *Entry) IsDirty() bool { return e.dirty }

// markDirty resets the descendant aggregates to self-only values and sets
// the dirty flag, per the glossary's "Dirty entry" definition.
func (e *Entry) markDirty() {
	e.dirty = true
	e.CountWithDescendants = 1
	e.SizeWithDescendants = e.TxSize
	e.FeesWithDescendants = e.ModFee()
}

// clearDirty marks the entry's descendant aggregates as freshly
// recomputed and no longer stale. Callers must have just recomputed
// CountWithDescendants/SizeWithDescendants/FeesWithDescendants.
func (e *Entry) clearDirty() { e.dirty = false }

// selfFeeRate returns fee/size using the entry's own fee and size only.
func (e *Entry) selfFeeRate() float64 {
	if e.TxSize == 0 {
		return 0
	}
	return float64(e.ModFee()) / float64(e.TxSize)
}

// descendantFeeRate returns fees_with_descendants/size_with_descendants.
func (e *Entry) descendantFeeRate() float64 {
	if e.SizeWithDescendants == 0 {
		return 0
	}
	return float64(e.FeesWithDescendants) / float64(e.SizeWithDescendants)
}

// ancestorFeeRate returns mod_fees_with_ancestors/size_with_ancestors —
// the "Ancestor fee-rate" of the glossary, used for package selection.
func (e *Entry) ancestorFeeRate() float64 {
	if e.SizeWithAncestors == 0 {
		return 0
	}
	return float64(e.ModFeesWithAncestors) / float64(e.SizeWithAncestors)
}

// AncestorFeeRate exposes ancestorFeeRate (mod_fees_with_ancestors over
// size_with_ancestors) to collaborators outside the package, such as the
// block assembler's package-selection comparisons.
func (e *Entry) AncestorFeeRate() float64 { return e.ancestorFeeRate() }

// descendantScore is the sort key for by_descendant_score: descending
// max(fee/size, fees_with_descendants/size_with_descendants).
func (e *Entry) descendantScore() float64 {
	self, desc := e.selfFeeRate(), e.descendantFeeRate()
	if self > desc {
		return self
	}
	return desc
}

// ancestorScore is the sort key for by_ancestor_score: descending
// min(fee/size, mod_fees_with_ancestors/size_with_ancestors).
func (e *Entry) ancestorScore() float64 {
	self, anc := e.selfFeeRate(), e.ancestorFeeRate()
	if self < anc {
		return self
	}
	return anc
}

// estimateMemUsage is a coarse dynamic-memory accounting figure: the
// transaction's total size plus a fixed per-entry bookkeeping overhead,
// plus the parent/child map buckets. It is a stand-in for the teacher's
// reflect-based dynamicMemUsage (mempool/memusage.go) — reflection over
// the entry graph would double count shared *Entry pointers, so this
// core tracks a simple additive estimate instead.
func (e *Entry) estimateMemUsage() int64 {
	const perEntryOverhead = 300
	const perLinkOverhead = 48
	return int64(e.Tx.TotalSize()) + perEntryOverhead +
		int64(len(e.Parents)+len(e.Children))*perLinkOverhead
}
