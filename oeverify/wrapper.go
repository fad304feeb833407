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

// Package oeverify unwraps Open Enclave's oe_attestation_header_t and
// oe_endorsements_t envelopes around an SGX DCAP quote, reconstructing
// the raw quote and sgx_ql_qve_collateral_t-equivalent collateral so
// sgxverify can run unchanged.
package oeverify

import (
	"github.com/openattest/ccverify/codec"
	"github.com/openattest/ccverify/errs"
)

// formatUUIDSgxEcdsa is OE_FORMAT_UUID_SGX_ECDSA, the format
// identifier for a DCAP/ECDSA SGX quote wrapped in an OE header.
var formatUUIDSgxEcdsa = [16]byte{
	0xa3, 0xa2, 0x1e, 0x87, 0x1b, 0x4d, 0x40, 0x14,
	0xb7, 0x0a, 0xa1, 0x25, 0xd2, 0xfb, 0xcd, 0x8c,
}

const headerVersion = 3

// Header is oe_attestation_header_t.
type Header struct {
	Version  uint32
	FormatID [16]byte
	DataSize uint32
}

// Unwrap detects whether evidence is a raw SGX quote or an
// oe_attestation_header_t wrapper; if wrapped, it validates the
// header version and format UUID and returns the enclosed quote.
// Unwrapped evidence is returned unchanged.
func Unwrap(evidence []byte) ([]byte, error) {
	if !looksLikeHeader(evidence) {
		return evidence, nil
	}

	r := codec.NewReader(evidence)
	var h Header
	var err error
	if h.Version, err = r.Uint32(); err != nil {
		return nil, err
	}
	if err = r.FixedArray(h.FormatID[:]); err != nil {
		return nil, err
	}
	if h.DataSize, err = r.Uint32(); err != nil {
		return nil, err
	}

	if h.Version != headerVersion {
		return nil, &errs.UnsupportedVersion{Got: h.Version}
	}
	if h.FormatID != formatUUIDSgxEcdsa {
		return nil, &errs.UnsupportedVersion{Got: 0}
	}

	data, err := r.Bytes(int(h.DataSize))
	if err != nil {
		return nil, err
	}
	return data, nil
}

// looksLikeHeader reports whether evidence begins with an
// oe_attestation_header_t: version field equal to 3 followed
// immediately by the SGX ECDSA format UUID.
func looksLikeHeader(evidence []byte) bool {
	if len(evidence) < 4+16+4 {
		return false
	}
	r := codec.NewReader(evidence)
	version, err := r.Uint32()
	if err != nil || version != headerVersion {
		return false
	}
	var uuid [16]byte
	if err := r.FixedArray(uuid[:]); err != nil {
		return false
	}
	return uuid == formatUUIDSgxEcdsa
}
