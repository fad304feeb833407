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

package claims

// TCBLevel describes the verified status of one matched TCB info level.
type TCBLevel struct {
	Status string `json:"status" cbor:"0,keyasint"`
	Date   string `json:"tcb_date,omitempty" cbor:"1,keyasint,omitempty"`
}

// SgxClaims holds the claims extracted from a verified SGX quote.
type SgxClaims struct {
	MrSigner   []byte   `json:"mr_signer" cbor:"0,keyasint"`
	MrEnclave  []byte   `json:"mr_enclave" cbor:"1,keyasint"`
	IsvProdID  uint16   `json:"isv_prod_id" cbor:"2,keyasint"`
	IsvSvn     uint16   `json:"isv_svn" cbor:"3,keyasint"`
	Attributes []byte   `json:"attributes" cbor:"4,keyasint"`
	ReportData []byte   `json:"report_data" cbor:"5,keyasint"`
	Fmspc      string   `json:"fmspc" cbor:"6,keyasint"`
	TCB        TCBLevel `json:"tcb_level" cbor:"7,keyasint"`
}

// SevSnpClaims holds the claims extracted from a verified SEV-SNP
// attestation report.
type SevSnpClaims struct {
	GuestSvn        uint32 `json:"guest_svn" cbor:"0,keyasint"`
	Policy          uint64 `json:"policy" cbor:"1,keyasint"`
	PlatformVersion uint64 `json:"platform_version" cbor:"2,keyasint"`
	ChipID          []byte `json:"chip_id" cbor:"3,keyasint"`
	ReportedTcb     uint64 `json:"reported_tcb" cbor:"4,keyasint"`
	LaunchTcb       uint64 `json:"launch_tcb" cbor:"5,keyasint"`
	Measurement     []byte `json:"measurement" cbor:"6,keyasint"`
	ReportData      []byte `json:"report_data" cbor:"7,keyasint"`
}

// AciClaims holds the claims extracted from a verified ACI/UVM
// attestation: the underlying SEV-SNP claims plus the UVM endorsement
// fields.
type AciClaims struct {
	SevSnpClaims

	DID                string `json:"did" cbor:"8,keyasint"`
	Feed               string `json:"feed" cbor:"9,keyasint"`
	Svn                string `json:"svn" cbor:"10,keyasint"`
	LaunchMeasurement  string `json:"launch_measurement" cbor:"11,keyasint"`
}

// Claims is the verified-claims sum type returned by the orchestrator.
// Exactly one of the fields is non-nil, matching the Source of the
// Envelope that produced it.
type Claims struct {
	Sgx         *SgxClaims    `json:"sgx,omitempty" cbor:"0,keyasint,omitempty"`
	SevSnp      *SevSnpClaims `json:"sev_snp,omitempty" cbor:"1,keyasint,omitempty"`
	OpenEnclave *SgxClaims    `json:"open_enclave,omitempty" cbor:"2,keyasint,omitempty"`
	Aci         *AciClaims    `json:"aci,omitempty" cbor:"3,keyasint,omitempty"`
}
