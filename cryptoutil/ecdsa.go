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

package cryptoutil

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/openattest/ccverify/errs"
)

// ByteOrder selects how the r, s components of a raw ECDSA signature
// are laid out.
type ByteOrder int

const (
	// BigEndian is IEEE P1363's native order (used by SGX's raw
	// 64-byte signatures).
	BigEndian ByteOrder = iota
	// LittleEndian is AMD SEV-SNP's report signature order.
	LittleEndian
)

// VerifyECDSASignature verifies a raw (non-DER) P1363-style ECDSA
// signature consisting of concatenated r and s values, each half the
// signature's total length, in the given byte order.
func VerifyECDSASignature(pub *ecdsa.PublicKey, hash, sig []byte, order ByteOrder) error {
	if len(sig)%2 != 0 || len(sig) == 0 {
		return &errs.MalformedEvidence{Reason: "ECDSA signature has odd or zero length"}
	}
	half := len(sig) / 2
	rBytes := sig[:half]
	sBytes := sig[half:]

	if order == LittleEndian {
		rBytes = reversed(rBytes)
		sBytes = reversed(sBytes)
	}

	r := new(big.Int).SetBytes(trimLeadingZeros(rBytes))
	s := new(big.Int).SetBytes(trimLeadingZeros(sBytes))

	if !ecdsa.Verify(pub, hash, r, s) {
		return &errs.SignatureInvalid{Which: "ecdsa"}
	}
	return nil
}

func reversed(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

func trimLeadingZeros(b []byte) []byte {
	i := 0
	for i < len(b)-1 && b[i] == 0 {
		i++
	}
	return b[i:]
}
