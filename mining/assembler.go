// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"fmt"
	"sort"
	"time"

	"github.com/chainrelay/mempool/mempool"
	"github.com/chainrelay/mempool/primitives"
	"github.com/chainrelay/mempool/wire"
)

// BlockTemplate is the output of CreateBlockTemplate: an ordered
// transaction list (index 0 is always the coinbase) plus the per-tx fee
// and sig-ops-cost bookkeeping spec.md §4.E requires alongside the header.
type BlockTemplate struct {
	Header       wire.BlockHeader
	Transactions []*wire.MsgTx
	Fees         []primitives.CAmount
	SigOpsCosts  []int64
	Height       int32
}

// Assembler runs the package-selection algorithm of spec.md §4.E against
// a single mempool.Pool.
type Assembler struct {
	pool *mempool.Pool
	cfg  Config
}

// New creates an Assembler bound to pool under cfg.
func New(pool *mempool.Pool, cfg Config) *Assembler {
	return &Assembler{pool: pool, cfg: cfg}
}

// CoinbaseParams supplies everything CreateBlockTemplate needs to
// finalise the coinbase transaction that spec.md §4.E describes.
type CoinbaseParams struct {
	Height              int32
	ExtraNonce          uint64
	Script              []byte
	Subsidy             primitives.CAmount
	WitnessCommitment   []byte // 32-byte witness merkle root the commitment is hashed from; nil if not required
	PrevBlockHash       wire.TxId
	Timestamp           time.Time
	Bits                uint32
}

// CreateBlockTemplate implements spec.md §4.E create_block_template. The
// caller holds chain_lock for the duration (spec.md §5: "the block
// assembler holds both for the entirety of create_block_template");
// acquiring it is outside this package's scope since chain state isn't
// modelled here.
func (a *Assembler) CreateBlockTemplate(cb CoinbaseParams) (*BlockTemplate, error) {
	base := a.pool.AncestorScoreDescending()
	modified := newModifiedSet()
	inBlock := make(map[mempool.TxId]bool)
	failed := make(map[mempool.TxId]bool)

	var selected []*mempool.Entry
	var currentWeight, currentSigOps, currentSize int64
	failStreak := 0
	baseIdx := 0
	maxWeight := a.cfg.MaxWeight - coinbaseReservedWeight
	now := time.Now()

	peekBase := func() *mempool.Entry {
		for baseIdx < len(base) {
			e := base[baseIdx]
			if inBlock[e.TxId] || failed[e.TxId] {
				baseIdx++
				continue
			}
			if _, isModified := modified.get(e.TxId); isModified {
				baseIdx++
				continue
			}
			if a.cfg.OnlyOlderTransactions && e.Time.After(now.Add(-onlyOlderCutoff*time.Second)) {
				baseIdx++
				continue
			}
			return e
		}
		return nil
	}

selection:
	for {
		if a.pool.IsShutdownRequested() {
			break
		}

		baseCandidate := peekBase()
		modBest := modified.best()

		var chosen *mempool.Entry
		var chosenMod *modifiedEntry
		var fromBase bool

		switch {
		case baseCandidate == nil && modBest == nil:
			break selection
		case baseCandidate == nil:
			chosen, chosenMod = modBest.entry, modBest
		case modBest == nil:
			chosen, fromBase = baseCandidate, true
		default:
			baseRate := baseCandidate.AncestorFeeRate()
			modRate := modBest.feeRate()
			switch {
			case baseRate > modRate:
				chosen, fromBase = baseCandidate, true
			case modRate > baseRate:
				chosen, chosenMod = modBest.entry, modBest
			case txIdLess(baseCandidate.TxId, modBest.entry.TxId):
				chosen, fromBase = baseCandidate, true
			default:
				chosen, chosenMod = modBest.entry, modBest
			}
		}

		var pkgSize, pkgSigOps int64
		var pkgFees primitives.CAmount
		if chosenMod != nil {
			pkgSize, pkgFees, pkgSigOps = chosenMod.effSize, chosenMod.effFees, chosenMod.effSigOps
		} else {
			pkgSize, pkgFees, pkgSigOps = chosen.SizeWithAncestors, chosen.ModFeesWithAncestors, chosen.SigOpsWithAncestors
		}

		// Step 4: below the global minimum fee-rate, and every entry
		// behind this one in the base iteration is no better — stop.
		if pkgFees < a.cfg.MinFeeRate.FeeForSize(pkgSize) {
			break
		}

		// Step 5: package limit tests.
		if currentWeight+4*pkgSize >= maxWeight || currentSigOps+pkgSigOps >= MaxBlockSigOpsCost {
			if chosenMod != nil {
				modified.delete(chosen.TxId)
			}
			failed[chosen.TxId] = true
			failStreak++
			if fromBase {
				baseIdx++
			}
			if failStreak > maxConsecutiveFailures && currentWeight > maxWeight-nearFullWeightMargin {
				break
			}
			continue
		}

		// Step 6: expand to the full ancestor package and validate.
		ancestors := a.pool.EntryAncestors(chosen)
		members := make([]*mempool.Entry, 0, len(ancestors)+1)
		for _, anc := range ancestors {
			if !inBlock[anc.TxId] {
				members = append(members, anc)
			}
		}
		members = append(members, chosen)

		rejectPackage := false
		var pkgSerSize int64
		for _, m := range members {
			if a.cfg.IsFinal != nil && !a.cfg.IsFinal(m.Tx) {
				rejectPackage = true
				break
			}
			if !a.cfg.IncludeWitnessTx && m.Tx.HasWitness() {
				rejectPackage = true
				break
			}
			pkgSerSize += m.Tx.TotalSize()
		}
		// Cumulative serialized-size bound, applied when MaxSize is set.
		if a.cfg.MaxSize > 0 && currentSize+pkgSerSize >= a.cfg.MaxSize {
			rejectPackage = true
		}
		if rejectPackage {
			if chosenMod != nil {
				modified.delete(chosen.TxId)
			}
			failed[chosen.TxId] = true
			failStreak++
			if fromBase {
				baseIdx++
			}
			continue
		}

		// Step 7: valid topological order is ancestor-count ascending.
		sort.Slice(members, func(i, j int) bool {
			if members[i].CountWithAncestors != members[j].CountWithAncestors {
				return members[i].CountWithAncestors < members[j].CountWithAncestors
			}
			return txIdLess(members[i].TxId, members[j].TxId)
		})

		for _, m := range members {
			selected = append(selected, m)
			currentWeight += 4 * m.TxSize
			currentSigOps += m.SigOpsCost
			currentSize += m.Tx.TotalSize()
			inBlock[m.TxId] = true
			modified.delete(m.TxId)
		}
		failStreak = 0
		if fromBase {
			baseIdx++
		}

		// Step 8: update_packages_for_added.
		for _, m := range members {
			for _, d := range a.pool.EntryDescendants(m) {
				if inBlock[d.TxId] {
					continue
				}
				me := modified.upsert(d)
				me.removeAncestor(m)
			}
		}
	}

	return a.finalise(cb, selected)
}

// finalise builds the coinbase transaction, assembles the final
// transaction list and header, and returns the completed template.
func (a *Assembler) finalise(cb CoinbaseParams, selected []*mempool.Entry) (*BlockTemplate, error) {
	var totalFees primitives.CAmount
	txs := make([]*wire.MsgTx, 0, len(selected)+1)
	fees := make([]primitives.CAmount, 0, len(selected)+1)
	sigops := make([]int64, 0, len(selected)+1)

	for _, e := range selected {
		totalFees = totalFees.Add(e.ModFee())
	}

	coinbase, err := buildCoinbase(cb, totalFees)
	if err != nil {
		return nil, fmt.Errorf("mining: coinbase assembly: %w", err)
	}
	txs = append(txs, coinbase)
	fees = append(fees, 0)
	sigops = append(sigops, 0)

	for _, e := range selected {
		txs = append(txs, e.Tx)
		fees = append(fees, e.ModFee())
		sigops = append(sigops, e.SigOpsCost)
	}

	header := wire.BlockHeader{
		Version:    a.cfg.BlockVersion,
		PrevBlock:  cb.PrevBlockHash,
		Timestamp:  cb.Timestamp,
		Bits:       cb.Bits,
	}
	header.MerkleRoot = merkleRoot(txIds(txs))

	return &BlockTemplate{
		Header:       header,
		Transactions: txs,
		Fees:         fees,
		SigOpsCosts:  sigops,
		Height:       cb.Height,
	}, nil
}

func txIds(txs []*wire.MsgTx) []wire.TxId {
	out := make([]wire.TxId, len(txs))
	for i, tx := range txs {
		out[i] = tx.Hash()
	}
	return out
}

// RemoveRecentTransactions implements spec.md §4.E remove_recent_
// transactions: rebuilds a template's transaction list minus any entry
// (and its descendants within the template) newer than cutoff, then
// reconciles the header merkle root and the returned weight/sigops/fees
// totals.
func RemoveRecentTransactions(tpl *BlockTemplate, pool *mempool.Pool, cutoff time.Time) (
	weight, sigOps int64, totalFees primitives.CAmount) {

	keep := make([]*wire.MsgTx, 0, len(tpl.Transactions))
	keepFees := make([]primitives.CAmount, 0, len(tpl.Transactions))
	keepSigOps := make([]int64, 0, len(tpl.Transactions))

	removed := make(map[wire.TxId]bool)
	// index 0 is always the coinbase; it is never subject to removal.
	keep = append(keep, tpl.Transactions[0])
	keepFees = append(keepFees, tpl.Fees[0])
	keepSigOps = append(keepSigOps, tpl.SigOpsCosts[0])

	for i := 1; i < len(tpl.Transactions); i++ {
		tx := tpl.Transactions[i]
		txid := tx.Hash()

		tooNew := false
		if e, ok := pool.Lookup(txid); ok {
			tooNew = !e.Time.Before(cutoff)
		}
		descendsRemoved := false
		for _, in := range tx.Inputs() {
			if removed[in.PreviousOutPoint.Hash] {
				descendsRemoved = true
				break
			}
		}

		if tooNew || descendsRemoved {
			removed[txid] = true
			continue
		}

		keep = append(keep, tx)
		keepFees = append(keepFees, tpl.Fees[i])
		keepSigOps = append(keepSigOps, tpl.SigOpsCosts[i])
		weight += 4 * primitives.VSize(tx.Weight())
		sigOps += tpl.SigOpsCosts[i]
		totalFees = totalFees.Add(tpl.Fees[i])
	}

	tpl.Transactions = keep
	tpl.Fees = keepFees
	tpl.SigOpsCosts = keepSigOps
	tpl.Header.MerkleRoot = merkleRoot(txIds(keep))

	return weight, sigOps, totalFees
}
