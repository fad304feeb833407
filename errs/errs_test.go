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

package errs

import (
	"errors"
	"testing"
)

func TestErrorStrings(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "MalformedEvidence",
			err:  &MalformedEvidence{Reason: "truncated quote"},
			want: "malformed evidence: truncated quote",
		},
		{
			name: "UnsupportedVersion",
			err:  &UnsupportedVersion{Got: 5},
			want: "unsupported version: 5",
		},
		{
			name: "CollateralFetchFailed",
			err:  &CollateralFetchFailed{URL: "https://example.com", Status: 503},
			want: "failed to fetch collateral from https://example.com: status 503",
		},
		{
			name: "CertChainInvalid",
			err:  &CertChainInvalid{Reason: "expired", Depth: 1},
			want: "certificate chain invalid at depth 1: expired",
		},
		{
			name: "CRLMissing",
			err:  &CRLMissing{Issuer: "Intel SGX Root CA"},
			want: "missing CRL for issuer Intel SGX Root CA",
		},
		{
			name: "SignatureInvalid",
			err:  &SignatureInvalid{Which: "quote"},
			want: "signature invalid: quote",
		},
		{
			name: "PublicKeyMismatch",
			err:  &PublicKeyMismatch{Which: "qe_report"},
			want: "public key mismatch: qe_report",
		},
		{
			name: "TCBParseError",
			err:  &TCBParseError{Reason: "bad JSON"},
			want: "failed to parse TCB info: bad JSON",
		},
		{
			name: "NoMatchingTCBLevel",
			err:  &NoMatchingTCBLevel{},
			want: "no matching TCB level found",
		},
		{
			name: "QEIdentityMismatch",
			err:  &QEIdentityMismatch{Field: "mrsigner"},
			want: "QE identity mismatch: mrsigner",
		},
		{
			name: "COSEDecodeError",
			err:  &COSEDecodeError{Reason: "bad CBOR"},
			want: "failed to decode COSE_Sign1 structure: bad CBOR",
		},
		{
			name: "COSESignatureInvalid",
			err:  &COSESignatureInvalid{Reason: "rsa verify failed"},
			want: "COSE_Sign1 signature invalid: rsa verify failed",
		},
		{
			name: "DIDResolutionFailed",
			err:  &DIDResolutionFailed{DID: "did:x509:0:sha256:abc", Reason: "no matching cert"},
			want: "failed to resolve DID did:x509:0:sha256:abc: no matching cert",
		},
		{
			name: "MeasurementMismatch",
			err:  &MeasurementMismatch{Expected: "aa", Got: "bb"},
			want: "measurement mismatch: expected aa, got bb",
		},
		{
			name: "UnknownRootOfTrust",
			err:  &UnknownRootOfTrust{DID: "did:x509:0:sha256:abc", Feed: "ContainerPlat-AMD-UVM", SVN: "1"},
			want: "unknown UVM root of trust: did=did:x509:0:sha256:abc feed=ContainerPlat-AMD-UVM svn=1",
		},
		{
			name: "Timeout",
			err:  &Timeout{Operation: "fetch TCB info"},
			want: "timeout waiting for fetch TCB info",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorsAsDistinguishesKinds(t *testing.T) {
	var err error = &CRLMissing{Issuer: "AMD ASK"}

	var crlMissing *CRLMissing
	if !errors.As(err, &crlMissing) {
		t.Fatal("expected errors.As to match *CRLMissing")
	}
	if crlMissing.Issuer != "AMD ASK" {
		t.Errorf("Issuer = %q, want AMD ASK", crlMissing.Issuer)
	}

	var mismatch *MeasurementMismatch
	if errors.As(err, &mismatch) {
		t.Fatal("expected errors.As not to match *MeasurementMismatch")
	}
}
