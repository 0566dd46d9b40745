// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package estimator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chainrelay/mempool/mempool"
	"github.com/chainrelay/mempool/primitives"
	"github.com/chainrelay/mempool/wire"
)

func entryAt(txid byte, feeRate primitives.CAmount, height int32) *mempool.Entry {
	tx := &wire.MsgTx{
		Version: 1,
		TxIn: []*wire.TxIn{{
			PreviousOutPoint: wire.OutPoint{Hash: wire.TxId{txid}, Index: 0},
			SignatureScript:  []byte{0x51},
			Sequence:         0xffffffff,
		}},
		TxOut: []*wire.TxOut{{Value: 1000, PkScript: []byte{0x51}}},
	}
	size := primitives.VSize(tx.Weight())
	fee := (feeRate * primitives.CAmount(size)) / 1000
	return &mempool.Entry{
		Tx:            tx,
		TxId:          tx.Hash(),
		Fee:           fee,
		TxSize:        size,
		HeightAtEntry: height,
	}
}

func TestProcessTransactionThenBlockRaisesSuccessRate(t *testing.T) {
	e := New()

	for i := 0; i < 20; i++ {
		entry := entryAt(byte(i+1), 50_000, 100)
		e.ProcessTransaction(entry, true)
		e.ProcessBlock(101, []*mempool.Entry{entry}, true)
	}

	rate, err := e.EstimateFee(2)
	require.NoError(t, err)
	require.Greater(t, int64(rate.SatoshisPerKB), int64(0))
}

func TestEstimateFeeErrorsWithoutData(t *testing.T) {
	e := New()
	_, err := e.EstimateFee(2)
	require.ErrorIs(t, err, ErrNotEnoughData)
}

func TestRemovedTxDoesNotAffectSuccessStatistics(t *testing.T) {
	e := New()
	entry := entryAt(1, 50_000, 100)
	e.ProcessTransaction(entry, true)
	e.RemovedTx(entry.TxId)

	e.mu.Lock()
	_, stillTracked := e.seen[entry.TxId]
	e.mu.Unlock()
	require.False(t, stillTracked)
}

func TestSaveAndLoadRoundTripsBucketState(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)
	defer store.Close()

	e := New()
	for i := 0; i < 10; i++ {
		entry := entryAt(byte(i+1), 80_000, 200)
		e.ProcessTransaction(entry, true)
		e.ProcessBlock(203, []*mempool.Entry{entry}, true)
	}

	require.NoError(t, store.Save(e))

	reloaded := New()
	require.NoError(t, store.Load(reloaded))

	rate, err := reloaded.EstimateFee(4)
	require.NoError(t, err)
	require.Greater(t, int64(rate.SatoshisPerKB), int64(0))
}

func TestLoadIgnoresFutureVersionSnapshot(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)
	defer store.Close()

	e := New()
	require.NoError(t, store.Save(e))

	// Corrupt the stored version_required to simulate a snapshot written
	// by a newer, incompatible client.
	raw, closer, err := store.db.Get(feeEstimatesKey)
	require.NoError(t, err)
	buf := make([]byte, len(raw))
	copy(buf, raw)
	closer.Close()

	buf[0] = 0xff
	require.NoError(t, store.db.Set(feeEstimatesKey, buf, nil))

	reloaded := New()
	require.NoError(t, store.Load(reloaded))
	_, err = reloaded.EstimateFee(2)
	require.ErrorIs(t, err, ErrNotEnoughData)
}
