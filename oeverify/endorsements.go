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

	"github.com/openattest/ccverify/codec"
	"github.com/openattest/ccverify/errs"
	"github.com/openattest/ccverify/sgxverify"
)

const enclaveTypeSGX = 2

// endorsementSlot indexes the fixed slot order of an
// oe_endorsements_t offset table.
type endorsementSlot int

const (
	slotVersion endorsementSlot = iota
	slotTcbInfo
	slotTcbInfoIssuerChain
	slotPckCrl
	slotRootCaCrl
	slotPckCrlIssuerChain
	slotQeIDInfo
	slotQeIDIssuerChain
	slotCreationDatetime
	numSlots
)

// ParseEndorsements reassembles an sgx_ql_qve_collateral_t-equivalent
// collateral bundle from an oe_endorsements_t blob: a fixed-size
// header, an offset table with one (offset, size) pair per slot in
// slotVersion..slotCreationDatetime order, followed by the payload.
func ParseEndorsements(raw []byte) (*sgxverify.Collateral, error) {
	r := codec.NewReader(raw)

	version, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	enclaveType, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	if _, err := r.Uint32(); err != nil { // buffer_size, unused
		return nil, err
	}
	if enclaveType != enclaveTypeSGX {
		return nil, &errs.UnsupportedVersion{Got: enclaveType}
	}
	if version != 1 {
		return nil, &errs.UnsupportedVersion{Got: version}
	}

	numElements, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	if int(numElements) != int(numSlots) {
		return nil, &errs.MalformedEvidence{Reason: "oe_endorsements_t element count does not match expected slot layout"}
	}

	offsets := make([]uint32, numElements)
	sizes := make([]uint32, numElements)
	for i := range offsets {
		if offsets[i], err = r.Uint32(); err != nil {
			return nil, err
		}
		if sizes[i], err = r.Uint32(); err != nil {
			return nil, err
		}
	}

	slot := func(s endorsementSlot) ([]byte, error) {
		off, size := int(offsets[s]), int(sizes[s])
		if off < 0 || off+size > len(raw) {
			return nil, &errs.MalformedEvidence{Reason: "oe_endorsements_t slot out of range"}
		}
		return raw[off : off+size], nil
	}

	tcbInfo, err := slot(slotTcbInfo)
	if err != nil {
		return nil, err
	}
	tcbInfoIssuerChainRaw, err := slot(slotTcbInfoIssuerChain)
	if err != nil {
		return nil, err
	}
	qeIDInfo, err := slot(slotQeIDInfo)
	if err != nil {
		return nil, err
	}
	qeIDIssuerChainRaw, err := slot(slotQeIDIssuerChain)
	if err != nil {
		return nil, err
	}
	pckCrlRaw, err := slot(slotPckCrl)
	if err != nil {
		return nil, err
	}
	rootCrlRaw, err := slot(slotRootCaCrl)
	if err != nil {
		return nil, err
	}

	pckCrl, err := codec.SplitCRL(pckCrlRaw)
	if err != nil {
		return nil, err
	}
	var rootCrl *x509.RevocationList
	if len(rootCrlRaw) > 0 {
		if rootCrl, err = codec.SplitCRL(rootCrlRaw); err != nil {
			return nil, err
		}
	}

	tcbInfoChain, err := collateralIssuer(tcbInfoIssuerChainRaw)
	if err != nil {
		return nil, err
	}
	qeIDChain, err := collateralIssuer(qeIDIssuerChainRaw)
	if err != nil {
		return nil, err
	}

	return &sgxverify.Collateral{
		TcbInfo:         tcbInfo,
		TcbInfoChain:    tcbInfoChain,
		QeIdentity:      qeIDInfo,
		QeIdentityChain: qeIDChain,
		PckCrl:          pckCrl,
		RootCrl:         rootCrl,
	}, nil
}

// collateralIssuer splits an oe_endorsements_t issuer chain slot (the
// signing certificate followed by its issuing CA, as Intel's own PCS
// issuer chain headers are laid out) into an sgxverify.CollateralIssuer.
func collateralIssuer(raw []byte) (*sgxverify.CollateralIssuer, error) {
	certs, err := codec.SplitChain(raw)
	if err != nil {
		return nil, err
	}
	return &sgxverify.CollateralIssuer{
		Cert: certs[0],
		CA:   certs[len(certs)-1],
	}, nil
}
