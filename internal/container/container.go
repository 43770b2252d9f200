// Package container implements the two black-box containers the ELF32
// writer is built on: a growable byte stream (the "saa" of spec.md
// §4.1) and a sparse integer map (the "raa"). Neither container knows
// anything about ELF, sections, or symbols.
package container

import (
	"bytes"
	"encoding/binary"
	"io"
)

// ByteStream is an append-only byte buffer that also supports writing
// fixed-size records, matching saa_wbytes/saa_wstruct/saa_fpwrite from
// the reference implementation. It has no rewind or record-reading
// counterpart of saa_rewind/saa_rstruct.
type ByteStream struct {
	buf bytes.Buffer
}

// NewByteStream returns an empty stream.
func NewByteStream() *ByteStream {
	return &ByteStream{}
}

// Append writes raw bytes to the end of the stream.
func (s *ByteStream) Append(p []byte) {
	s.buf.Write(p)
}

// AppendZeros appends n zero bytes.
func (s *ByteStream) AppendZeros(n int) {
	if n <= 0 {
		return
	}
	var zeros [64]byte
	for n > 0 {
		k := n
		if k > len(zeros) {
			k = len(zeros)
		}
		s.buf.Write(zeros[:k])
		n -= k
	}
}

// AppendStruct little-endian-encodes v and appends it, for use with
// fixed-size record types (mirroring saa_wstruct).
func (s *ByteStream) AppendStruct(v interface{}) error {
	return binary.Write(&s.buf, binary.LittleEndian, v)
}

// Len returns the number of bytes written so far.
func (s *ByteStream) Len() int {
	return s.buf.Len()
}

// Bytes returns the accumulated bytes. The caller must not mutate them.
func (s *ByteStream) Bytes() []byte {
	return s.buf.Bytes()
}

// WriteTo streams the buffer's contents to w (saa_fpwrite).
func (s *ByteStream) WriteTo(w io.Writer) (int64, error) {
	return s.buf.WriteTo(w)
}

// SparseInts is a sparse int->int map with a zero default read,
// matching raa_write/raa_read.
type SparseInts struct {
	m map[int]int
}

// NewSparseInts returns an empty map.
func NewSparseInts() *SparseInts {
	return &SparseInts{m: make(map[int]int)}
}

// Write records value at key.
func (a *SparseInts) Write(key, value int) {
	a.m[key] = value
}

// Read returns the value written at key, or 0 if none was written.
func (a *SparseInts) Read(key int) int {
	return a.m[key]
}
