// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"github.com/chainrelay/mempool/wire"
)

// buildTx constructs a single-input, single-output transaction spending
// parent (the zero hash for a tx with no in-mempool parent), tagged with
// uniquer so otherwise-identical inputs still hash to distinct txids.
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
