// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleTx(withWitness bool) *MsgTx {
	tx := &MsgTx{
		Version: 1,
		TxIn: []*TxIn{{
			PreviousOutPoint: OutPoint{Hash: TxId{0x01}, Index: 0},
			SignatureScript:  []byte{0x51},
			Sequence:         0xffffffff,
		}},
		TxOut: []*TxOut{{
			Value:    50000,
			PkScript: []byte{0x76, 0xa9},
		}},
		LockTime: 0,
	}
	if withWitness {
		tx.TxIn[0].Witness = [][]byte{{0x30, 0x44}, {0x02, 0x01}}
	}
	return tx
}

func TestMsgTxSerializeRoundTrip(t *testing.T) {
	for _, withWitness := range []bool{false, true} {
		tx := sampleTx(withWitness)

		var buf bytes.Buffer
		require.NoError(t, tx.Serialize(&buf))

		var decoded MsgTx
		require.NoError(t, decoded.Deserialize(bytes.NewReader(buf.Bytes())))

		require.Equal(t, tx.Hash(), decoded.Hash())
		require.Equal(t, withWitness, decoded.HasWitness())
	}
}

func TestMsgTxBaseSizeExcludesWitness(t *testing.T) {
	plain := sampleTx(false)
	withWit := sampleTx(true)

	require.Equal(t, plain.BaseSize(), withWit.BaseSize())
	require.Greater(t, withWit.TotalSize(), withWit.BaseSize())
	require.Equal(t, plain.TotalSize(), plain.BaseSize())
}

func TestMsgTxWeight(t *testing.T) {
	tx := sampleTx(true)
	base := tx.BaseSize()
	total := tx.TotalSize()

	require.Equal(t, base*4+(total-base), tx.Weight())
}

func TestMsgTxIsCoinBase(t *testing.T) {
	tx := sampleTx(false)
	require.False(t, tx.IsCoinBase())

	tx.TxIn[0].PreviousOutPoint = OutPoint{Index: ^uint32(0)}
	require.True(t, tx.IsCoinBase())
}
