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

package oeverify

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func buildHeader(t *testing.T, version uint32, formatID [16]byte, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, version)
	buf.Write(formatID[:])
	binary.Write(&buf, binary.LittleEndian, uint32(len(payload)))
	buf.Write(payload)
	return buf.Bytes()
}

func TestUnwrapRawQuotePassthrough(t *testing.T) {
	raw := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}

	out, err := Unwrap(raw)
	if err != nil {
		t.Fatalf("Unwrap() error = %v", err)
	}
	if !bytes.Equal(out, raw) {
		t.Errorf("Unwrap() = %x, want %x unchanged", out, raw)
	}
}

func TestUnwrapHeader(t *testing.T) {
	payload := []byte("a fake dcap quote")
	raw := buildHeader(t, headerVersion, formatUUIDSgxEcdsa, payload)

	out, err := Unwrap(raw)
	if err != nil {
		t.Fatalf("Unwrap() error = %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Errorf("Unwrap() = %x, want %x", out, payload)
	}
}

func TestUnwrapWrongVersion(t *testing.T) {
	raw := buildHeader(t, 99, formatUUIDSgxEcdsa, []byte("quote"))

	// looksLikeHeader rejects on version mismatch, so this is treated
	// as raw evidence and returned unchanged rather than erroring.
	out, err := Unwrap(raw)
	if err != nil {
		t.Fatalf("Unwrap() error = %v", err)
	}
	if !bytes.Equal(out, raw) {
		t.Errorf("Unwrap() = %x, want unchanged input", out)
	}
}

func TestUnwrapWrongFormatUUID(t *testing.T) {
	var wrongUUID [16]byte
	copy(wrongUUID[:], bytes.Repeat([]byte{0x42}, 16))
	raw := buildHeader(t, headerVersion, wrongUUID, []byte("quote"))

	out, err := Unwrap(raw)
	if err != nil {
		t.Fatalf("Unwrap() error = %v", err)
	}
	if !bytes.Equal(out, raw) {
		t.Errorf("Unwrap() = %x, want unchanged input for non-SGX format UUID", out)
	}
}

func TestUnwrapTruncatedDataSize(t *testing.T) {
	raw := buildHeader(t, headerVersion, formatUUIDSgxEcdsa, []byte("quote"))
	// Declare a data size larger than what actually follows the header.
	binary.LittleEndian.PutUint32(raw[20:24], 9999)

	if _, err := Unwrap(raw); err == nil {
		t.Fatal("expected error for data size exceeding remaining buffer")
	}
}
