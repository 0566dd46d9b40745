// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package compactblock implements the compact-block reconstructor of
// spec.md §4.F/§6: short-ID derivation, init_from_compact, and
// fill_block, working against a caller-supplied mempool snapshot rather
// than a live pool (the reconstructor only ever reads; it never mutates
// mempool state).
package compactblock

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/aead/siphash"

	"github.com/chainrelay/mempool/wire"
)

// shortIDMask keeps the low 48 bits of a SipHash-2-4 output, per spec.md
// §4.F's short_id derivation.
const shortIDMask = 0x0000_FFFF_FFFF_FFFF

// deriveKey computes the 16-byte SipHash key k = SHA256(header || nonce),
// truncated to its first 16 bytes (k0 || k1 little-endian), per spec.md
// §4.F.
func deriveKey(header *wire.BlockHeader, nonce uint64) [16]byte {
	buf := make([]byte, 0, wire.BlockHeaderLen+8)
	buf = append(buf, header.Bytes()...)
	var nonceBytes [8]byte
	binary.LittleEndian.PutUint64(nonceBytes[:], nonce)
	buf = append(buf, nonceBytes[:]...)

	digest := sha256.Sum256(buf)
	var key [16]byte
	copy(key[:], digest[:16])
	return key
}

// shortID computes SipHash-2-4(k0, k1, txid) & 0x0000_FFFF_FFFF_FFFF.
func shortID(key [16]byte, txid wire.TxId) uint64 {
	return siphash.Sum64(txid[:], &key) & shortIDMask
}
