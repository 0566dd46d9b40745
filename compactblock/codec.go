// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package compactblock

import (
	"encoding/binary"
	"io"

	"github.com/chainrelay/mempool/wire"
)

// Serialize writes cb in the bit-exact wire format of spec.md §6:
// header, nonce, short ids (6 bytes each), then prefilled transactions
// each tagged with their differential skip index.
func (cb *CompactBlock) Serialize(w io.Writer) error {
	if err := cb.Header.Serialize(w); err != nil {
		return err
	}
	var nonceBuf [8]byte
	binary.LittleEndian.PutUint64(nonceBuf[:], cb.Nonce)
	if _, err := w.Write(nonceBuf[:]); err != nil {
		return err
	}

	if err := wire.WriteVarInt(w, uint64(len(cb.ShortIDs))); err != nil {
		return err
	}
	for _, sid := range cb.ShortIDs {
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], sid)
		if _, err := w.Write(buf[:6]); err != nil {
			return err
		}
	}

	if err := wire.WriteVarInt(w, uint64(len(cb.Prefilled))); err != nil {
		return err
	}
	for _, p := range cb.Prefilled {
		if err := wire.WriteVarInt(w, uint64(p.Skip)); err != nil {
			return err
		}
		if err := p.Tx.Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

// Deserialize reads a CompactBlock using the same layout Serialize
// writes.
func (cb *CompactBlock) Deserialize(r io.Reader) error {
	if err := cb.Header.Deserialize(r); err != nil {
		return err
	}
	var nonceBuf [8]byte
	if _, err := io.ReadFull(r, nonceBuf[:]); err != nil {
		return err
	}
	cb.Nonce = binary.LittleEndian.Uint64(nonceBuf[:])

	shortCount, err := wire.ReadVarInt(r)
	if err != nil {
		return err
	}
	cb.ShortIDs = make([]uint64, shortCount)
	for i := range cb.ShortIDs {
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:6]); err != nil {
			return err
		}
		cb.ShortIDs[i] = binary.LittleEndian.Uint64(buf[:])
	}

	prefilledCount, err := wire.ReadVarInt(r)
	if err != nil {
		return err
	}
	cb.Prefilled = make([]PrefilledTx, prefilledCount)
	for i := range cb.Prefilled {
		skip, err := wire.ReadVarInt(r)
		if err != nil {
			return err
		}
		tx := &wire.MsgTx{}
		if err := tx.Deserialize(r); err != nil {
			return err
		}
		cb.Prefilled[i] = PrefilledTx{Skip: uint16(skip), Tx: tx}
	}
	return nil
}
