// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/chainrelay/mempool/wire"
)

// merkleRoot computes the standard Bitcoin merkle root over leaf, pairing
// adjacent hashes and duplicating the last one at each level when the
// level's length is odd.
func merkleRoot(leaves []wire.TxId) wire.TxId {
	if len(leaves) == 0 {
		return wire.TxId{}
	}
	level := make([]wire.TxId, len(leaves))
	copy(level, leaves)

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]wire.TxId, len(level)/2)
		for i := 0; i < len(next); i++ {
			var buf [64]byte
			copy(buf[:32], level[2*i][:])
			copy(buf[32:], level[2*i+1][:])
			next[i] = chainhash.DoubleHashH(buf[:])
		}
		level = next
	}
	return level[0]
}
