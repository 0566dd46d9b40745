// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package compactblock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chainrelay/mempool/wire"
)

func sampleTx(uniquer byte) *wire.MsgTx {
	return &wire.MsgTx{
		Version: 1,
		TxIn: []*wire.TxIn{{
			PreviousOutPoint: wire.OutPoint{Hash: wire.TxId{uniquer}, Index: 0},
			SignatureScript:  []byte{0x51, uniquer},
			Sequence:         0xffffffff,
		}},
		TxOut: []*wire.TxOut{{Value: 1000, PkScript: []byte{0x76, 0xa9, uniquer}}},
	}
}

func buildCompactBlock(t *testing.T, header wire.BlockHeader, nonce uint64, txs []*wire.MsgTx) *CompactBlock {
	t.Helper()

	leaves := make([]wire.TxId, len(txs))
	for i, tx := range txs {
		leaves[i] = tx.Hash()
	}
	header.MerkleRoot = computeMerkleRoot(leaves)
	key := deriveKey(&header, nonce)

	cb := &CompactBlock{Header: header, Nonce: nonce}
	// First tx (coinbase) is always prefilled at absolute index 0.
	cb.Prefilled = append(cb.Prefilled, PrefilledTx{Skip: 0, Tx: txs[0]})
	for _, tx := range txs[1:] {
		cb.ShortIDs = append(cb.ShortIDs, shortID(key, tx.Hash()))
	}
	return cb
}

func testHeader() wire.BlockHeader {
	return wire.BlockHeader{
		Version:   1,
		PrevBlock: wire.TxId{0x01},
		Timestamp: time.Unix(1_700_000_000, 0).UTC(),
		Bits:      0x1d00ffff,
	}
}

func TestInitFromCompactAndFillBlockRoundTrip(t *testing.T) {
	coinbase := sampleTx(0)
	tx1 := sampleTx(1)
	tx2 := sampleTx(2)
	txs := []*wire.MsgTx{coinbase, tx1, tx2}

	header := testHeader()
	cb := buildCompactBlock(t, header, 42, txs)

	snapshot := map[wire.TxId]*wire.MsgTx{
		tx1.Hash(): tx1,
		tx2.Hash(): tx2,
	}

	r := New()
	status, missing, err := r.InitFromCompact(cb, snapshot)
	require.NoError(t, err)
	require.Equal(t, StatusOk, status)
	require.Empty(t, missing)

	block, status, err := r.FillBlock(nil)
	require.NoError(t, err)
	require.Equal(t, StatusOk, status)
	require.Len(t, block.Vtx, 3)
	require.Equal(t, coinbase.Hash(), block.Vtx[0].Hash())
	require.Equal(t, tx1.Hash(), block.Vtx[1].Hash())
	require.Equal(t, tx2.Hash(), block.Vtx[2].Hash())
}

func TestInitFromCompactReportsMissingAndFillBlockCompletes(t *testing.T) {
	coinbase := sampleTx(0)
	tx1 := sampleTx(1)
	tx2 := sampleTx(2)
	txs := []*wire.MsgTx{coinbase, tx1, tx2}

	header := testHeader()
	cb := buildCompactBlock(t, header, 7, txs)

	// Only tx1 is in the local mempool; tx2 must be requested explicitly.
	snapshot := map[wire.TxId]*wire.MsgTx{tx1.Hash(): tx1}

	r := New()
	status, missing, err := r.InitFromCompact(cb, snapshot)
	require.NoError(t, err)
	require.Equal(t, StatusOk, status)
	require.Equal(t, []int{2}, missing)

	block, status, err := r.FillBlock([]*wire.MsgTx{tx2})
	require.NoError(t, err)
	require.Equal(t, StatusOk, status)
	require.Equal(t, tx2.Hash(), block.Vtx[2].Hash())
}

func TestInitFromCompactRejectsNullHeader(t *testing.T) {
	r := New()
	status, _, err := r.InitFromCompact(&CompactBlock{ShortIDs: []uint64{1}}, nil)
	require.Error(t, err)
	require.Equal(t, StatusInvalid, status)
}

func TestInitFromCompactDetectsBucketOverflow(t *testing.T) {
	header := testHeader()
	cb := &CompactBlock{Header: header, Nonce: 1}
	cb.Prefilled = []PrefilledTx{{Skip: 0, Tx: sampleTx(0)}}
	for i := 0; i < shortIDBucketMax+2; i++ {
		cb.ShortIDs = append(cb.ShortIDs, 0xdead)
	}

	r := New()
	status, _, err := r.InitFromCompact(cb, nil)
	require.NoError(t, err)
	require.Equal(t, StatusFailed, status)
}
