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
	"crypto/rsa"

	"github.com/openattest/ccverify/errs"
)

// RSAScheme selects the RSA padding scheme for signature verification.
type RSAScheme int

const (
	RSAPKCS1v15 RSAScheme = iota
	RSAPSS
)

// VerifyRSASignature verifies an RSA signature over hash (already
// hashed with hashAlg) using the given padding scheme. PSS verification
// uses the salt length encoded in the signature, matching the
// teacher's ConvertHash handling of variable PSS salt lengths.
func VerifyRSASignature(pub *rsa.PublicKey, hashAlg crypto.Hash, hash, sig []byte, scheme RSAScheme) error {
	var err error
	switch scheme {
	case RSAPSS:
		err = rsa.VerifyPSS(pub, hashAlg, hash, sig, &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthAuto, Hash: hashAlg})
	default:
		err = rsa.VerifyPKCS1v15(pub, hashAlg, hash, sig)
	}
	if err != nil {
		return &errs.SignatureInvalid{Which: "rsa"}
	}
	return nil
}
