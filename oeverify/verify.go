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
	"crypto/x509"

	"github.com/openattest/ccverify/claims"
	"github.com/openattest/ccverify/cryptoutil"
	"github.com/openattest/ccverify/sgxverify"
)

// Verify unwraps OE evidence/endorsements and delegates to
// sgxverify.Verify, so an OE-wrapped quote is held to exactly the
// same verification algorithm as a raw DCAP quote.
func Verify(evidence, endorsements []byte, rootCA *x509.Certificate, opts cryptoutil.ChainOptions) (*claims.SgxClaims, error) {
	quote, err := Unwrap(evidence)
	if err != nil {
		return nil, err
	}

	coll, err := ParseEndorsements(endorsements)
	if err != nil {
		return nil, err
	}

	return sgxverify.Verify(quote, coll, rootCA, opts)
}
