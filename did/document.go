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

package did

import (
	"crypto/rsa"
	"crypto/x509"

	jose "gopkg.in/square/go-jose.v2"

	"github.com/openattest/ccverify/errs"
)

// VerificationMethod is a single entry of a resolved DID document's
// verificationMethod array.
type VerificationMethod struct {
	ID           string
	Type         string
	Controller   string
	PublicKeyJwk *jose.JSONWebKey
}

// Document is a did:x509 resolution result: a synthetic DID document
// with exactly one verification method, derived from the chain's leaf
// certificate.
type Document struct {
	ID                  string
	VerificationMethod  []VerificationMethod
	AssertionMethod     []string
}

// Resolve validates didStr against chain (leaf first, root last) and
// returns a synthetic DID document whose sole verification method
// exposes the leaf certificate's public key as a JWK. This mirrors
// did:x509 resolution as implemented by Microsoft's RAVL library: the
// DID's embedded fingerprint must match some certificate in the
// chain, and any policy constraints (eku, etc.) are checked against
// the leaf.
func Resolve(chain []*x509.Certificate, didStr string) (*Document, error) {
	if len(chain) == 0 {
		return nil, &errs.DIDResolutionFailed{DID: didStr, Reason: "empty certificate chain"}
	}

	d, err := Parse(didStr)
	if err != nil {
		return nil, err
	}
	if _, err := d.MatchesChainCert(chain); err != nil {
		return nil, err
	}

	leaf := chain[0]
	if err := d.CheckPolicies(leaf); err != nil {
		return nil, err
	}

	rsaPub, ok := leaf.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, &errs.DIDResolutionFailed{DID: didStr, Reason: "leaf certificate key is not RSA"}
	}

	vmID := didStr + "#key-1"
	return &Document{
		ID: didStr,
		VerificationMethod: []VerificationMethod{
			{
				ID:         vmID,
				Type:       "JsonWebKey2020",
				Controller: didStr,
				PublicKeyJwk: &jose.JSONWebKey{
					Key:   rsaPub,
					KeyID: vmID,
				},
			},
		},
		AssertionMethod: []string{vmID},
	}, nil
}
