// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/chainrelay/mempool/primitives"
	"github.com/chainrelay/mempool/wire"
)

// witnessCommitmentHeader is the BIP141 magic prefix that marks a
// coinbase output as carrying the witness commitment.
var witnessCommitmentHeader = []byte{0x6a, 0x24, 0xaa, 0x21, 0xa9, 0xed}

// scriptNum encodes n using Bitcoin's minimal little-endian CScriptNum
// representation: magnitude bytes, smallest length that round-trips,
// with a sign byte appended only when the high bit of the last magnitude
// byte would otherwise be mistaken for the sign.
func scriptNum(n int64) []byte {
	if n == 0 {
		return nil
	}
	neg := n < 0
	abs := n
	if neg {
		abs = -abs
	}

	var out []byte
	for abs > 0 {
		out = append(out, byte(abs&0xff))
		abs >>= 8
	}
	if out[len(out)-1]&0x80 != 0 {
		if neg {
			out = append(out, 0x80)
		} else {
			out = append(out, 0x00)
		}
	} else if neg {
		out[len(out)-1] |= 0x80
	}
	return out
}

// pushData prefixes data with a single-byte direct-push opcode, valid
// only for data up to 75 bytes — sufficient for the small height/
// extra-nonce pushes the coinbase scriptSig needs.
func pushData(data []byte) []byte {
	if len(data) == 0 {
		return []byte{0x00}
	}
	return append([]byte{byte(len(data))}, data...)
}

// buildCoinbase assembles the coinbase transaction described in spec.md
// §4.E "Coinbase finalisation".
func buildCoinbase(cb CoinbaseParams, fees primitives.CAmount) (*wire.MsgTx, error) {
	scriptSig := append(pushData(scriptNum(int64(cb.Height))), pushData(scriptNum(int64(cb.ExtraNonce)))...)
	if len(scriptSig) > coinbaseMaxScriptSigBytes {
		return nil, fmt.Errorf("mining: coinbase scriptSig prefix exceeds %d bytes", coinbaseMaxScriptSigBytes)
	}

	tx := &wire.MsgTx{
		Version: 1,
		TxIn: []*wire.TxIn{{
			PreviousOutPoint: wire.OutPoint{Hash: wire.TxId{}, Index: ^uint32(0)},
			SignatureScript:  scriptSig,
			Sequence:         0xffffffff,
		}},
		TxOut: []*wire.TxOut{{
			Value:    int64(cb.Subsidy.Add(fees)),
			PkScript: cb.Script,
		}},
	}

	if cb.WitnessCommitment != nil {
		commitment := computeWitnessCommitment(cb.WitnessCommitment)
		script := make([]byte, 0, len(witnessCommitmentHeader)+len(commitment))
		script = append(script, witnessCommitmentHeader...)
		script = append(script, commitment[:]...)
		tx.TxOut = append(tx.TxOut, &wire.TxOut{Value: 0, PkScript: script})
	}

	return tx, nil
}

// computeWitnessCommitment hashes the caller-supplied witness merkle root
// together with the (all-zero) witness reserved value, per BIP141.
func computeWitnessCommitment(witnessRoot []byte) chainhash.Hash {
	var reserved [32]byte
	payload := make([]byte, 0, 64)
	payload = append(payload, witnessRoot...)
	payload = append(payload, reserved[:]...)
	return chainhash.DoubleHashH(payload)
}
