// Copyright 2024 Kelvin Clement Mwinuka
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package buffer implements the binary codec used to exchange payloads with
// extensions. A Buffer has a fixed capacity chosen at construction, a write
// cursor (its length) and an independent read cursor. All fixed-width values
// are little-endian with no padding.
//
// Writes never exceed the capacity and reads never go past the written length:
// a call that would do so fails with *OverflowError or *TruncatedReadError and
// leaves both cursors where they were.
package buffer

import (
	"encoding/binary"
	"math"
)

// CountMask caps record counts read with ReadCount. A corrupt count can never
// describe more than 65535 records, which bounds the allocation made for it.
const CountMask = 0xFFFF

// MaxVarIntLen is the longest encoding of a 64-bit varint.
const MaxVarIntLen = binary.MaxVarintLen64

type Buffer struct {
	data     []byte // Written bytes. len(data) is the write cursor.
	capacity int    // Upper bound for len(data).
	rpos     int    // Read cursor.
	shared   bool   // data aliases another buffer's bytes.
}

// New returns an empty buffer that accepts at most capacity bytes.
// Memory is allocated as bytes are written.
func New(capacity int) *Buffer {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer{
		data:     make([]byte, 0, min(capacity, 64)),
		capacity: capacity,
	}
}

// FromBytes wraps a copy of p in a full buffer ready to be read.
func FromBytes(p []byte) *Buffer {
	data := make([]byte, len(p))
	copy(data, p)
	return &Buffer{data: data, capacity: len(p)}
}

// Len returns the number of bytes written.
func (b *Buffer) Len() int { return len(b.data) }

// Cap returns the capacity fixed at construction.
func (b *Buffer) Cap() int { return b.capacity }

// Available returns the number of bytes that can still be written.
func (b *Buffer) Available() int { return b.capacity - len(b.data) }

// Unread returns the number of written bytes past the read cursor.
func (b *Buffer) Unread() int { return len(b.data) - b.rpos }

// Bytes returns the written bytes. The slice aliases the buffer.
func (b *Buffer) Bytes() []byte { return b.data }

// Rewind moves the read cursor back to the start.
func (b *Buffer) Rewind() { b.rpos = 0 }

// Reset discards all written bytes.
func (b *Buffer) Reset() {
	if b.shared {
		b.data = nil
		b.shared = false
	} else {
		b.data = b.data[:0]
	}
	b.rpos = 0
}

// Clone returns a buffer over the same bytes with its own cursors and the read
// cursor at the start. Writes to either buffer never show up in the other.
func (b *Buffer) Clone() *Buffer {
	b.shared = true
	return &Buffer{
		data:     b.data[:len(b.data):len(b.data)],
		capacity: b.capacity,
		shared:   true,
	}
}

func (b *Buffer) reserve(op string, n int) error {
	if n > b.Available() {
		return &OverflowError{Op: op, Need: n, Available: b.Available()}
	}
	return nil
}

func (b *Buffer) take(op string, n int) ([]byte, error) {
	if n < 0 || n > b.Unread() {
		return nil, &TruncatedReadError{Op: op, Need: n, Unread: b.Unread()}
	}
	p := b.data[b.rpos : b.rpos+n]
	b.rpos += n
	return p, nil
}

func (b *Buffer) WriteBytes(p []byte) error {
	if err := b.reserve("write bytes", len(p)); err != nil {
		return err
	}
	b.data = append(b.data, p...)
	return nil
}

// ReadBytes returns the next n bytes. The slice aliases the buffer.
func (b *Buffer) ReadBytes(n int) ([]byte, error) {
	return b.take("read bytes", n)
}

func (b *Buffer) WriteUint8(v uint8) error {
	if err := b.reserve("write uint8", 1); err != nil {
		return err
	}
	b.data = append(b.data, v)
	return nil
}

func (b *Buffer) ReadUint8() (uint8, error) {
	p, err := b.take("read uint8", 1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

func (b *Buffer) WriteInt8(v int8) error { return b.WriteUint8(uint8(v)) }

func (b *Buffer) ReadInt8() (int8, error) {
	v, err := b.ReadUint8()
	return int8(v), err
}

// WriteBool writes a single byte, 1 for true and 0 for false.
func (b *Buffer) WriteBool(v bool) error {
	if v {
		return b.WriteUint8(1)
	}
	return b.WriteUint8(0)
}

// ReadBool treats any non-zero byte as true.
func (b *Buffer) ReadBool() (bool, error) {
	v, err := b.ReadUint8()
	return v != 0, err
}

func (b *Buffer) WriteUint16(v uint16) error {
	if err := b.reserve("write uint16", 2); err != nil {
		return err
	}
	b.data = binary.LittleEndian.AppendUint16(b.data, v)
	return nil
}

func (b *Buffer) ReadUint16() (uint16, error) {
	p, err := b.take("read uint16", 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(p), nil
}

func (b *Buffer) WriteInt16(v int16) error { return b.WriteUint16(uint16(v)) }

func (b *Buffer) ReadInt16() (int16, error) {
	v, err := b.ReadUint16()
	return int16(v), err
}

func (b *Buffer) WriteUint32(v uint32) error {
	if err := b.reserve("write uint32", 4); err != nil {
		return err
	}
	b.data = binary.LittleEndian.AppendUint32(b.data, v)
	return nil
}

func (b *Buffer) ReadUint32() (uint32, error) {
	p, err := b.take("read uint32", 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(p), nil
}

func (b *Buffer) WriteInt32(v int32) error { return b.WriteUint32(uint32(v)) }

func (b *Buffer) ReadInt32() (int32, error) {
	v, err := b.ReadUint32()
	return int32(v), err
}

func (b *Buffer) WriteUint64(v uint64) error {
	if err := b.reserve("write uint64", 8); err != nil {
		return err
	}
	b.data = binary.LittleEndian.AppendUint64(b.data, v)
	return nil
}

func (b *Buffer) ReadUint64() (uint64, error) {
	p, err := b.take("read uint64", 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(p), nil
}

func (b *Buffer) WriteInt64(v int64) error { return b.WriteUint64(uint64(v)) }

func (b *Buffer) ReadInt64() (int64, error) {
	v, err := b.ReadUint64()
	return int64(v), err
}

func (b *Buffer) WriteFloat32(v float32) error { return b.WriteUint32(math.Float32bits(v)) }

func (b *Buffer) ReadFloat32() (float32, error) {
	v, err := b.ReadUint32()
	return math.Float32frombits(v), err
}

func (b *Buffer) WriteFloat64(v float64) error { return b.WriteUint64(math.Float64bits(v)) }

func (b *Buffer) ReadFloat64() (float64, error) {
	v, err := b.ReadUint64()
	return math.Float64frombits(v), err
}

// WriteString writes a uint32 length prefix followed by the raw bytes of s.
func (b *Buffer) WriteString(s string) error {
	if uint64(len(s)) > math.MaxUint32 {
		return &OverflowError{Op: "write string", Need: len(s), Available: b.Available()}
	}
	if err := b.reserve("write string", 4+len(s)); err != nil {
		return err
	}
	b.data = binary.LittleEndian.AppendUint32(b.data, uint32(len(s)))
	b.data = append(b.data, s...)
	return nil
}

// ReadString reads a length-prefixed string. A declared length longer than the
// unread bytes fails without consuming the prefix.
func (b *Buffer) ReadString() (string, error) {
	start := b.rpos
	n, err := b.ReadUint32()
	if err != nil {
		return "", err
	}
	if uint64(n) > uint64(b.Unread()) {
		unread := b.Unread()
		b.rpos = start
		return "", &TruncatedReadError{Op: "read string", Need: int(min(uint64(n), math.MaxInt32)), Unread: unread}
	}
	p, _ := b.take("read string", int(n))
	return string(p), nil
}

func varIntLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// WriteVarInt writes v as an unsigned LEB128 varint.
func (b *Buffer) WriteVarInt(v uint64) error {
	if err := b.reserve("write varint", varIntLen(v)); err != nil {
		return err
	}
	b.data = binary.AppendUvarint(b.data, v)
	return nil
}

func (b *Buffer) ReadVarInt() (uint64, error) {
	v, n := binary.Uvarint(b.data[b.rpos:])
	switch {
	case n == 0:
		return 0, &TruncatedReadError{Op: "read varint", Need: b.Unread() + 1, Unread: b.Unread()}
	case n < 0:
		return 0, ErrMalformedVarInt
	}
	b.rpos += n
	return v, nil
}

// WriteCount writes a record count. Counts above CountMask are rejected because
// ReadCount could not recover them.
func (b *Buffer) WriteCount(n int) error {
	if n < 0 || n > CountMask {
		return ErrCountTooLarge
	}
	return b.WriteVarInt(uint64(n))
}

// ReadCount reads a varint and keeps only its low 16 bits. The mask is part of
// the wire contract for count fields, not a range check.
func (b *Buffer) ReadCount() (int, error) {
	v, err := b.ReadVarInt()
	if err != nil {
		return 0, err
	}
	return int(v & CountMask), nil
}
