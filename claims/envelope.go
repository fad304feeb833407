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

// Package claims defines the wire-level attestation envelope, the
// verification options accepted by every verifier package, and the
// per-source claims sum type populated once evidence has been verified.
package claims

import "time"

// Source identifies which attestation technology produced the evidence
// carried in an Envelope.
type Source string

const (
	SourceSGX          Source = "SGX"
	SourceSevSnp       Source = "SEV_SNP"
	SourceOpenEnclave  Source = "OPEN_ENCLAVE"
	SourceACI          Source = "ACI"
)

// Envelope is the immutable, caller-supplied attestation request. It is
// tagged for both JSON (base64 byte slices) and CBOR (raw bytes)
// transport, matching the dual-tagging convention used throughout this
// module's wire types.
type Envelope struct {
	Source           Source `json:"source" cbor:"0,keyasint"`
	Evidence         []byte `json:"evidence" cbor:"1,keyasint"`
	Endorsements     []byte `json:"endorsements,omitempty" cbor:"2,keyasint,omitempty"`
	UvmEndorsements  []byte `json:"uvm_endorsements,omitempty" cbor:"3,keyasint,omitempty"`
}

// Options controls verification behavior. The zero value performs a
// strict, fully online verification using the process-wide trust
// anchors and the current time.
type Options struct {
	// VerificationTime overrides the current time used for certificate
	// validity and CRL freshness checks. Ignored if IgnoreTime is set.
	VerificationTime time.Time `json:"verification_time,omitempty" cbor:"0,keyasint,omitempty"`

	// IgnoreTime disables certificate validity/CRL freshness checks
	// entirely. Used for verifying evidence against historical
	// endorsements.
	IgnoreTime bool `json:"ignore_time,omitempty" cbor:"1,keyasint,omitempty"`

	// RootCACertificate overrides the process-wide trust anchor for the
	// evidence's platform (PEM encoded).
	RootCACertificate []byte `json:"root_ca_certificate,omitempty" cbor:"2,keyasint,omitempty"`

	// FreshEndorsements forces a network fetch of collateral even if
	// the caller supplied Endorsements in the envelope.
	FreshEndorsements bool `json:"fresh_endorsements,omitempty" cbor:"3,keyasint,omitempty"`

	// FreshRootCACertificate forces a network fetch of the platform
	// root certificate chain rather than using the built-in constant.
	FreshRootCACertificate bool `json:"fresh_root_ca_certificate,omitempty" cbor:"4,keyasint,omitempty"`

	// Partial makes a failed request's Result carry the claims that
	// verification returned alongside the error. The verifier packages
	// return no claims on error, so those claims are always empty.
	Partial bool `json:"partial,omitempty" cbor:"5,keyasint,omitempty"`

	// Verbosity controls diagnostic log output only; it never changes
	// verification outcome.
	Verbosity int `json:"verbosity,omitempty" cbor:"6,keyasint,omitempty"`
}

// Now returns the time to use for validity checks. Callers must check
// IgnoreTime separately; when set, certificate/CRL validity checks are
// skipped entirely rather than performed against a synthetic time.
func (o Options) Now() time.Time {
	if !o.VerificationTime.IsZero() {
		return o.VerificationTime
	}
	return time.Now()
}
