// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wire implements the transaction, block header, and block types
// the mempool core treats as "the Transaction" and "the Block" contracts
// from spec.md §3, along with their canonical binary serialization. It
// does not implement peer-to-peer message framing — only the payload
// encodings needed to compute sizes/weights and to build the compact-block
// wire format in package compactblock.
package wire

import (
	"encoding/binary"
	"errors"
	"io"
)

// ErrMalformedVarInt is returned when a compact-size varint uses more bytes
// than necessary for its value. A varint cut short by the end of the input
// yields the underlying io error instead.
var ErrMalformedVarInt = errors.New("wire: malformed compact-size varint")

// ReadVarInt reads a variable-length integer using Bitcoin's compact-size
// encoding and returns it as a uint64.
func ReadVarInt(r io.Reader) (uint64, error) {
	var prefix [1]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return 0, err
	}

	switch prefix[0] {
	case 0xff:
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		v := binary.LittleEndian.Uint64(buf[:])
		if v <= 0xffffffff {
			return 0, ErrMalformedVarInt
		}
		return v, nil
	case 0xfe:
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		v := uint64(binary.LittleEndian.Uint32(buf[:]))
		if v <= 0xffff {
			return 0, ErrMalformedVarInt
		}
		return v, nil
	case 0xfd:
		var buf [2]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		v := uint64(binary.LittleEndian.Uint16(buf[:]))
		if v < 0xfd {
			return 0, ErrMalformedVarInt
		}
		return v, nil
	default:
		return uint64(prefix[0]), nil
	}
}

// WriteVarInt writes val to w using Bitcoin's compact-size encoding.
func WriteVarInt(w io.Writer, val uint64) error {
	if val < 0xfd {
		_, err := w.Write([]byte{byte(val)})
		return err
	}
	if val <= 0xffff {
		buf := make([]byte, 3)
		buf[0] = 0xfd
		binary.LittleEndian.PutUint16(buf[1:], uint16(val))
		_, err := w.Write(buf)
		return err
	}
	if val <= 0xffffffff {
		buf := make([]byte, 5)
		buf[0] = 0xfe
		binary.LittleEndian.PutUint32(buf[1:], uint32(val))
		_, err := w.Write(buf)
		return err
	}
	buf := make([]byte, 9)
	buf[0] = 0xff
	binary.LittleEndian.PutUint64(buf[1:], val)
	_, err := w.Write(buf)
	return err
}

// VarIntSerializeSize returns the number of bytes val would occupy when
// encoded via WriteVarInt.
func VarIntSerializeSize(val uint64) int {
	switch {
	case val < 0xfd:
		return 1
	case val <= 0xffff:
		return 3
	case val <= 0xffffffff:
		return 5
	default:
		return 9
	}
}

// readVarBytes reads a varint-prefixed byte slice.
func readVarBytes(r io.Reader, maxAllowed uint64, fieldName string) ([]byte, error) {
	n, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	if n > maxAllowed {
		return nil, errors.New("wire: " + fieldName + " exceeds max allowed size")
	}
	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// writeVarBytes writes a varint-prefixed byte slice.
func writeVarBytes(w io.Writer, b []byte) error {
	if err := WriteVarInt(w, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}
