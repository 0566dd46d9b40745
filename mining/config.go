// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package mining implements the block assembler of spec.md §4.E: a
// package-selection algorithm over a mempool's by_ancestor_score index
// that greedily fills a block template under weight and sig-ops-cost
// budgets, plus coinbase finalisation and witness-commitment assembly.
package mining

import (
	"github.com/chainrelay/mempool/primitives"
	"github.com/chainrelay/mempool/wire"
)

const (
	// DefaultBlockMaxWeight is the template weight budget DefaultConfig
	// uses: the full 4,000,000-unit consensus block weight limit.
	DefaultBlockMaxWeight = 4_000_000

	// MaxBlockSigOpsCost bounds the cumulative weighted sig-ops cost a
	// template may spend, per spec.md §4.E step 5.
	MaxBlockSigOpsCost = 80_000

	// maxConsecutiveFailures is the spec's "counter > 1000" give-up
	// threshold (spec.md §4.E step 5).
	maxConsecutiveFailures = 1000

	// nearFullWeightMargin is the "within 4000 weight of full" margin
	// from the same step.
	nearFullWeightMargin = 4000

	// onlyOlderCutoff is the age a transaction must clear to be
	// considered when Config.OnlyOlderTransactions is set.
	onlyOlderCutoff = 10 // seconds

	// coinbaseMaxScriptSigBytes bounds the coinbase scriptSig per
	// spec.md §4.E "Coinbase finalisation".
	coinbaseMaxScriptSigBytes = 100

	// coinbaseReservedWeight is a fixed allowance subtracted from
	// max_weight before package selection starts, approximating the
	// weight the finalised coinbase transaction and block header will
	// consume. Real header+coinbase weight depends on the coinbase
	// script and witness-commitment output chosen at finalisation time;
	// this core reserves a fixed budget up front rather than doing a
	// two-pass fit, a simplification recorded in DESIGN.md.
	coinbaseReservedWeight = 2000
)

// Config bounds and parameterises CreateBlockTemplate, matching the
// external interface table of spec.md §6.
type Config struct {
	MaxWeight             int64
	MaxSize               int64
	MinFeeRate            primitives.FeeRate
	OnlyOlderTransactions bool
	IncludeWitnessTx      bool
	BlockVersion          int32

	// IsFinal, if set, gates package expansion (spec.md §4.E step 6's
	// transaction_finality check). Chain-height/MTP-aware locktime
	// evaluation needs chain state this core's scope excludes (spec.md
	// Non-goals: "transaction validation"); callers that track chain
	// state inject the predicate here. A nil IsFinal accepts everything.
	IsFinal func(tx *wire.MsgTx) bool
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxWeight:        DefaultBlockMaxWeight,
		MaxSize:          DefaultBlockMaxWeight / 4,
		MinFeeRate:       primitives.FeeRate{},
		IncludeWitnessTx: true,
	}
}
