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

package collateral

import (
	"encoding/json"

	"github.com/openattest/ccverify/errs"
)

// SgxBundle is the JSON serialization of an Envelope's raw
// Endorsements field for SGX (non-OE-wrapped) evidence: the structured
// PCS collateral flattened into a single blob, mirroring the way
// oe_endorsements_t flattens the same four documents for OE evidence.
type SgxBundle struct {
	TcbInfo                  []byte `json:"tcb_info"`
	TcbInfoIssuerCert        []byte `json:"tcb_info_issuer_cert"`
	TcbInfoIssuerRootCert    []byte `json:"tcb_info_issuer_root_cert"`
	QeIdentity               []byte `json:"qe_identity"`
	QeIdentityIssuerCert     []byte `json:"qe_identity_issuer_cert"`
	QeIdentityIssuerRootCert []byte `json:"qe_identity_issuer_root_cert"`
	PckCrl                   []byte `json:"pck_crl"`
	RootCrl                  []byte `json:"root_crl"`
}

// MarshalSgxBundle serializes fetched Intel collateral into an
// Envelope's Endorsements field.
func MarshalSgxBundle(b *SgxBundle) ([]byte, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, &errs.CollateralFetchFailed{URL: "sgx bundle marshal"}
	}
	return data, nil
}

// UnmarshalSgxBundle parses an Envelope's Endorsements field for SGX
// evidence.
func UnmarshalSgxBundle(raw []byte) (*SgxBundle, error) {
	var b SgxBundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, &errs.MalformedEvidence{Reason: "invalid SGX endorsements bundle: " + err.Error()}
	}
	return &b, nil
}

// AmdBundle is the JSON serialization of an Envelope's raw
// Endorsements field for SEV-SNP evidence: the VCEK/ASK/ARK
// certificate chain, PEM or DER encoded.
type AmdBundle struct {
	Vcek []byte `json:"vcek"`
	Ask  []byte `json:"ask"`
	Ark  []byte `json:"ark"`
	Crl  []byte `json:"crl"`
}

// MarshalAmdBundle serializes fetched AMD collateral into an
// Envelope's Endorsements field.
func MarshalAmdBundle(b *AmdBundle) ([]byte, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, &errs.CollateralFetchFailed{URL: "amd bundle marshal"}
	}
	return data, nil
}

// UnmarshalAmdBundle parses an Envelope's Endorsements field for
// SEV-SNP evidence.
func UnmarshalAmdBundle(raw []byte) (*AmdBundle, error) {
	var b AmdBundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, &errs.MalformedEvidence{Reason: "invalid AMD endorsements bundle: " + err.Error()}
	}
	return &b, nil
}
