// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"encoding/binary"
	"io"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// BlockHeaderLen is the fixed 80-byte serialized size of a BlockHeader.
const BlockHeaderLen = 80

// BlockHeader is the fixed-size header prepended to every block: the
// piece that proof-of-work is computed over. PoW/header validation is out
// of scope for this core (spec.md §1); only serialization is needed here,
// to feed the compact-block short-ID key derivation (spec.md §4.F).
type BlockHeader struct {
	Version    int32
	PrevBlock  chainhash.Hash
	MerkleRoot chainhash.Hash
	Timestamp  time.Time
	Bits       uint32
	Nonce      uint32
}

// Serialize writes the canonical 80-byte encoding of h to w.
func (h *BlockHeader) Serialize(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, h.Version); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, h.PrevBlock); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, h.MerkleRoot); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(h.Timestamp.Unix())); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, h.Bits); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, h.Nonce)
}

// Deserialize reads an 80-byte header from r.
func (h *BlockHeader) Deserialize(r io.Reader) error {
	if err := binary.Read(r, binary.LittleEndian, &h.Version); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &h.PrevBlock); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &h.MerkleRoot); err != nil {
		return err
	}
	var ts uint32
	if err := binary.Read(r, binary.LittleEndian, &ts); err != nil {
		return err
	}
	h.Timestamp = time.Unix(int64(ts), 0).UTC()
	if err := binary.Read(r, binary.LittleEndian, &h.Bits); err != nil {
		return err
	}
	return binary.Read(r, binary.LittleEndian, &h.Nonce)
}

// Bytes returns the 80-byte canonical serialization of h.
func (h *BlockHeader) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(BlockHeaderLen)
	_ = h.Serialize(&buf)
	return buf.Bytes()
}

// BlockHash returns the double-SHA256 of the serialized header.
func (h *BlockHeader) BlockHash() chainhash.Hash {
	return chainhash.DoubleHashH(h.Bytes())
}

// IsNull reports whether h's version, previous block, merkle root, bits
// and nonce are all zero (the timestamp is not examined) — used by the compact-block
// reconstructor to reject a degenerate message (spec.md §4.F step 1).
func (h *BlockHeader) IsNull() bool {
	return h.PrevBlock == chainhash.Hash{} && h.MerkleRoot == chainhash.Hash{} &&
		h.Bits == 0 && h.Nonce == 0 && h.Version == 0
}

// MsgBlock is a full block: a header plus its ordered transaction list.
type MsgBlock struct {
	Header BlockHeader
	Vtx    []*MsgTx
}
