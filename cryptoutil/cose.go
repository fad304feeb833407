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
	"crypto"

	"github.com/veraison/go-cose"

	"github.com/openattest/ccverify/errs"
)

// COSESign1Header is the subset of a COSE_Sign1 protected header this
// module cares about: the standard alg/content-type/x5chain labels
// (1, 3, 33) plus the non-standard "iss"/"feed" string-keyed headers
// used by Azure UVM endorsements.
type COSESign1Header struct {
	Algorithm   cose.Algorithm
	ContentType string
	X5Chain     [][]byte
	Issuer      string
	Feed        string
}

// ParseSign1 decodes a COSE_Sign1 structure (CBOR tag 18) and returns
// its message along with the extracted header fields.
func ParseSign1(raw []byte) (*cose.Sign1Message, COSESign1Header, error) {
	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(raw); err != nil {
		return nil, COSESign1Header{}, &errs.COSEDecodeError{Reason: err.Error()}
	}

	hdr := COSESign1Header{}

	if v, ok := msg.Headers.Protected[cose.HeaderLabelAlgorithm]; ok {
		switch alg := v.(type) {
		case cose.Algorithm:
			hdr.Algorithm = alg
		case int64:
			hdr.Algorithm = cose.Algorithm(alg)
		}
	}
	if v, ok := msg.Headers.Protected[cose.HeaderLabelContentType]; ok {
		if s, ok := v.(string); ok {
			hdr.ContentType = s
		}
	}
	if v, ok := msg.Headers.Protected[cose.HeaderLabelX5Chain]; ok {
		hdr.X5Chain = decodeX5Chain(v)
	}
	if v, ok := msg.Headers.Protected["iss"]; ok {
		if s, ok := v.(string); ok {
			hdr.Issuer = s
		}
	}
	if v, ok := msg.Headers.Protected["feed"]; ok {
		if s, ok := v.(string); ok {
			hdr.Feed = s
		}
	}

	if hdr.X5Chain == nil {
		return nil, COSESign1Header{}, &errs.COSEDecodeError{Reason: "x5chain header missing"}
	}
	if hdr.Issuer == "" {
		return nil, COSESign1Header{}, &errs.COSEDecodeError{Reason: "iss header missing"}
	}

	return &msg, hdr, nil
}

func decodeX5Chain(v interface{}) [][]byte {
	switch x := v.(type) {
	case []byte:
		return [][]byte{x}
	case [][]byte:
		return x
	case []interface{}:
		out := make([][]byte, 0, len(x))
		for _, item := range x {
			if b, ok := item.([]byte); ok {
				out = append(out, b)
			}
		}
		return out
	default:
		return nil
	}
}

// VerifySign1RSA verifies a COSE_Sign1 message against an RSA public
// key and returns the verified payload.
func VerifySign1RSA(msg *cose.Sign1Message, pub crypto.PublicKey, alg cose.Algorithm) ([]byte, error) {
	verifier, err := cose.NewVerifier(alg, pub)
	if err != nil {
		return nil, &errs.COSESignatureInvalid{Reason: err.Error()}
	}
	if err := msg.Verify(nil, verifier); err != nil {
		return nil, &errs.COSESignatureInvalid{Reason: err.Error()}
	}
	return msg.Payload, nil
}

// IsRSAAlgorithm reports whether alg is an RSA signature algorithm:
// RSASSA-PSS (PS256/PS384/PS512) or the RFC 8812 RSASSA-PKCS1-v1_5
// algorithms (RS256/RS384/RS512) used by Azure UVM endorsements, as
// opposed to an OKP/EdDSA or ECDSA algorithm.
func IsRSAAlgorithm(alg cose.Algorithm) bool {
	switch alg {
	case cose.AlgorithmPS256, cose.AlgorithmPS384, cose.AlgorithmPS512:
		return true
	}
	// RFC 8812 RS256/RS384/RS512 are registered as -257/-258/-259 and
	// may not have named constants in every go-cose release.
	switch int64(alg) {
	case -257, -258, -259:
		return true
	}
	return false
}
