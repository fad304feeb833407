// Copyright (c) 2025 Fraunhofer AISEC
// Fraunhofer-Gesellschaft zur Foerderung der angewandten Forschung e.V.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package codec provides a bounds-checked little-endian binary reader
// for the fixed-layout evidence structures (SGX quotes, SEV-SNP
// attestation reports, OE headers) this module parses, and PEM/DER
// certificate chain splitting helpers.
package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/openattest/ccverify/errs"
)

// Reader reads little-endian fields out of a byte slice, tracking an
// offset and returning errs.MalformedEvidence on any out-of-bounds
// access instead of panicking.
type Reader struct {
	buf []byte
	off int
}

// NewReader wraps buf for sequential little-endian reads starting at
// offset 0.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Offset returns the reader's current position.
func (r *Reader) Offset() int {
	return r.off
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

// Seek moves the reader to an absolute offset. It fails if the offset
// is out of range.
func (r *Reader) Seek(off int) error {
	if off < 0 || off > len(r.buf) {
		return &errs.MalformedEvidence{Reason: fmt.Sprintf("seek offset %v out of range [0,%v]", off, len(r.buf))}
	}
	r.off = off
	return nil
}

// Bytes reads n raw bytes and advances the offset.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.buf) {
		return nil, &errs.MalformedEvidence{Reason: fmt.Sprintf("need %v bytes at offset %v, have %v", n, r.off, len(r.buf)-r.off)}
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

// FixedArray reads exactly len(dst) bytes into dst.
func (r *Reader) FixedArray(dst []byte) error {
	b, err := r.Bytes(len(dst))
	if err != nil {
		return err
	}
	copy(dst, b)
	return nil
}

// Uint16 reads a little-endian uint16.
func (r *Reader) Uint16() (uint16, error) {
	b, err := r.Bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// Uint32 reads a little-endian uint32.
func (r *Reader) Uint32() (uint32, error) {
	b, err := r.Bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Uint64 reads a little-endian uint64.
func (r *Reader) Uint64() (uint64, error) {
	b, err := r.Bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// Byte reads a single byte.
func (r *Reader) Byte() (byte, error) {
	b, err := r.Bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Skip advances the offset by n bytes without returning them.
func (r *Reader) Skip(n int) error {
	_, err := r.Bytes(n)
	return err
}
