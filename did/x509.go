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

// Package did resolves did:x509 identifiers against an X.509
// certificate chain, as used by Azure UVM endorsements to bind a
// COSE_Sign1 signer to a specific certificate issuance chain.
package did

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/asn1"
	"encoding/base64"
	"strings"

	"github.com/openattest/ccverify/errs"
)

// Policy is one "name:value" constraint following the hash component
// of a did:x509 identifier, e.g. "eku:1.3.6.1.4.1.311.76.59.1.2".
type Policy struct {
	Name  string
	Value string
}

// DID is a parsed did:x509 identifier.
type DID struct {
	Raw      string
	Version  string
	HashAlg  string
	HashB64  string
	Policies []Policy
}

// Parse decodes a did:x509 identifier of the form
// "did:x509:0:sha256:<fingerprint>::policy:value(:policy:value)*".
func Parse(s string) (*DID, error) {
	if !strings.HasPrefix(s, "did:x509:") {
		return nil, &errs.DIDResolutionFailed{DID: s, Reason: "not a did:x509 identifier"}
	}
	parts := strings.Split(strings.TrimPrefix(s, "did:x509:"), ":")
	if len(parts) < 3 {
		return nil, &errs.DIDResolutionFailed{DID: s, Reason: "malformed did:x509 identifier"}
	}

	d := &DID{Raw: s, Version: parts[0], HashAlg: parts[1], HashB64: parts[2]}

	rest := parts[3:]
	// The "::" separating the fingerprint from the policies splits into
	// an empty field; skip it so policies pair up as name:value.
	if len(rest) > 0 && rest[0] == "" {
		rest = rest[1:]
	}
	for i := 0; i+1 < len(rest); i += 2 {
		d.Policies = append(d.Policies, Policy{Name: rest[i], Value: rest[i+1]})
	}
	return d, nil
}

// MatchesChainCert reports whether any certificate in chain hashes,
// under the DID's declared hash algorithm, to the DID's fingerprint.
func (d *DID) MatchesChainCert(chain []*x509.Certificate) (*x509.Certificate, error) {
	if d.HashAlg != "sha256" {
		return nil, &errs.DIDResolutionFailed{DID: d.Raw, Reason: "unsupported did:x509 hash algorithm " + d.HashAlg}
	}
	for _, cert := range chain {
		sum := sha256.Sum256(cert.Raw)
		if base64.RawURLEncoding.EncodeToString(sum[:]) == d.HashB64 {
			return cert, nil
		}
	}
	return nil, &errs.DIDResolutionFailed{DID: d.Raw, Reason: "no certificate in chain matches did:x509 fingerprint"}
}

// CheckPolicies validates each of the DID's policy constraints against
// the chain's leaf certificate. Only the "eku" policy (extended key
// usage OID) is implemented, matching the only policy type used by
// Azure UVM endorsements.
func (d *DID) CheckPolicies(leaf *x509.Certificate) error {
	for _, p := range d.Policies {
		switch p.Name {
		case "eku":
			if !hasEKU(leaf, p.Value) {
				return &errs.DIDResolutionFailed{DID: d.Raw, Reason: "leaf certificate missing required EKU " + p.Value}
			}
		default:
			return &errs.DIDResolutionFailed{DID: d.Raw, Reason: "unsupported did:x509 policy " + p.Name}
		}
	}
	return nil
}

func hasEKU(cert *x509.Certificate, oidStr string) bool {
	oid, err := parseOID(oidStr)
	if err != nil {
		return false
	}
	for _, ext := range cert.UnknownExtKeyUsage {
		if ext.Equal(oid) {
			return true
		}
	}
	return false
}

func parseOID(s string) (asn1.ObjectIdentifier, error) {
	var oid asn1.ObjectIdentifier
	for _, part := range strings.Split(s, ".") {
		n := 0
		for _, c := range part {
			if c < '0' || c > '9' {
				return nil, &errs.DIDResolutionFailed{Reason: "invalid OID component"}
			}
			n = n*10 + int(c-'0')
		}
		oid = append(oid, n)
	}
	return oid, nil
}
