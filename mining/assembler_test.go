// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chainrelay/mempool/mempool"
	"github.com/chainrelay/mempool/primitives"
	"github.com/chainrelay/mempool/wire"
)

func buildTx(parent wire.TxId, index uint32, value int64, uniquer byte) *wire.MsgTx {
	return &wire.MsgTx{
		Version: 1,
		TxIn: []*wire.TxIn{{
			PreviousOutPoint: wire.OutPoint{Hash: parent, Index: index},
			SignatureScript:  []byte{0x51, uniquer},
			Sequence:         0xffffffff,
		}},
		TxOut: []*wire.TxOut{{
			Value:    value,
			PkScript: []byte{0x76, 0xa9, uniquer},
		}},
	}
}

func addTx(t *testing.T, pool *mempool.Pool, tx *wire.MsgTx, fee primitives.CAmount) *mempool.Entry {
	t.Helper()
	limits := mempool.DefaultAncestorLimits()
	ancestors, err := pool.CalculateAncestors(tx, primitives.VSize(tx.Weight()), limits)
	require.NoError(t, err)
	e, err := pool.AddUnchecked(tx, fee, time.Now(), 100, 0, true, ancestors)
	require.NoError(t, err)
	return e
}

func TestCreateBlockTemplateOrdersByAncestorScoreAndIncludesCoinbase(t *testing.T) {
	pool := mempool.New(nil, nil)

	txLow := buildTx(wire.TxId{}, 0, 100_000, 1)
	addTx(t, pool, txLow, 1000)

	txHigh := buildTx(wire.TxId{}, 1, 100_000, 2)
	addTx(t, pool, txHigh, 10_000)

	asm := New(pool, DefaultConfig())
	tpl, err := asm.CreateBlockTemplate(CoinbaseParams{
		Height:     101,
		ExtraNonce: 1,
		Script:     []byte{0x51},
		Subsidy:    5_000_000_000,
		Timestamp:  time.Now(),
		Bits:       0x1d00ffff,
	})
	require.NoError(t, err)

	require.Len(t, tpl.Transactions, 3)
	require.True(t, tpl.Transactions[0].IsCoinBase())
	require.Equal(t, txHigh.Hash(), tpl.Transactions[1].Hash())
	require.Equal(t, txLow.Hash(), tpl.Transactions[2].Hash())
	require.Equal(t, primitives.CAmount(0), tpl.Fees[0])
	require.Equal(t, primitives.CAmount(10_000), tpl.Fees[1])
}

func TestCreateBlockTemplateIncludesParentBeforeChild(t *testing.T) {
	pool := mempool.New(nil, nil)

	parentTx := buildTx(wire.TxId{}, 0, 100_000, 1)
	addTx(t, pool, parentTx, 1000)

	childTx := buildTx(parentTx.Hash(), 0, 90_000, 2)
	addTx(t, pool, childTx, 1000)

	asm := New(pool, DefaultConfig())
	tpl, err := asm.CreateBlockTemplate(CoinbaseParams{
		Height:    101,
		Script:    []byte{0x51},
		Subsidy:   5_000_000_000,
		Timestamp: time.Now(),
		Bits:      0x1d00ffff,
	})
	require.NoError(t, err)
	require.Len(t, tpl.Transactions, 3)

	parentIdx, childIdx := -1, -1
	for i, tx := range tpl.Transactions {
		if tx.Hash() == parentTx.Hash() {
			parentIdx = i
		}
		if tx.Hash() == childTx.Hash() {
			childIdx = i
		}
	}
	require.NotEqual(t, -1, parentIdx)
	require.NotEqual(t, -1, childIdx)
	require.Less(t, parentIdx, childIdx)
}

func TestCreateBlockTemplateRespectsMinFeeRate(t *testing.T) {
	pool := mempool.New(nil, nil)

	cheapTx := buildTx(wire.TxId{}, 0, 100_000, 1)
	addTx(t, pool, cheapTx, 1)

	cfg := DefaultConfig()
	cfg.MinFeeRate = primitives.NewFeeRate(1_000_000, 1000)

	asm := New(pool, cfg)
	tpl, err := asm.CreateBlockTemplate(CoinbaseParams{
		Height:    101,
		Script:    []byte{0x51},
		Subsidy:   5_000_000_000,
		Timestamp: time.Now(),
		Bits:      0x1d00ffff,
	})
	require.NoError(t, err)
	require.Len(t, tpl.Transactions, 1) // coinbase only
}
