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

package sgxverify

import (
	"crypto/x509"
	"encoding/asn1"
	"fmt"

	"github.com/openattest/ccverify/errs"
)

// sgxExtensionOID is the PCK certificate's SGX Extension, OID
// 1.2.840.113741.1.13.1, always the sixth extension (index 5) on a
// DCAP-issued PCK leaf certificate.
var sgxExtensionOID = asn1.ObjectIdentifier{1, 2, 840, 113741, 1, 13, 1}

// PPID, TCB, PCEID, FMSPC, SGXTYPE, PlatformInstanceId, Configuration
// are the ASN.1 sequences nested in the SGX Extension.
type ppid struct {
	Id    asn1.ObjectIdentifier
	Value []byte
}

type tcbComp struct {
	Svn   asn1.ObjectIdentifier
	Value int
}

type tcb struct {
	Id    asn1.ObjectIdentifier
	Value struct {
		Comp01, Comp02, Comp03, Comp04 tcbComp
		Comp05, Comp06, Comp07, Comp08 tcbComp
		Comp09, Comp10, Comp11, Comp12 tcbComp
		Comp13, Comp14, Comp15, Comp16 tcbComp
		PceSvn                         tcbComp
		CpuSvn                         struct {
			Svn   asn1.ObjectIdentifier
			Value []byte
		}
	}
}

type pceid struct {
	Id    asn1.ObjectIdentifier
	Value []byte
}

type fmspc struct {
	Id    asn1.ObjectIdentifier
	Value []byte
}

type sgxtype struct {
	Id    asn1.ObjectIdentifier
	Value asn1.Enumerated
}

type platformInstanceID struct {
	Id    asn1.ObjectIdentifier
	Value []byte
}

// PCKExtensions is the decoded content of a PCK certificate's SGX
// Extension: PPID, per-component TCB SVNs, CPUSVN, PCE ID, FMSPC, and
// platform type.
type PCKExtensions struct {
	PPID    []byte
	CpuSvn  []byte
	PceSvn  int
	TcbComp [16]int
	PceID   []byte
	Fmspc   string
	SgxType int

	// PlatformInstanceID is present only on PCK certificates issued by
	// the Platform CA (multi-package platforms); its absence
	// identifies a Processor CA certificate (single-package).
	PlatformInstanceID []byte
}

// CaType returns "platform" or "processor" depending on whether the
// certificate this extension was parsed from carries a
// PlatformInstanceId field.
func (p *PCKExtensions) CaType() string {
	if len(p.PlatformInstanceID) > 0 {
		return "platform"
	}
	return "processor"
}

// ParsePCKExtensions decodes a PCK leaf certificate's SGX Extension.
func ParsePCKExtensions(cert *x509.Certificate) (*PCKExtensions, error) {
	var raw []byte
	for _, ext := range cert.Extensions {
		if ext.Id.Equal(sgxExtensionOID) {
			raw = ext.Value
			break
		}
	}
	if raw == nil {
		return nil, &errs.MalformedEvidence{Reason: "PCK certificate has no SGX Extension"}
	}

	var p ppid
	rest, err := asn1.Unmarshal(raw, &p)
	if err != nil {
		return nil, &errs.MalformedEvidence{Reason: fmt.Sprintf("invalid SGX Extension PPID: %v", err)}
	}

	var t tcb
	rest, err = asn1.Unmarshal(rest, &t)
	if err != nil {
		return nil, &errs.MalformedEvidence{Reason: fmt.Sprintf("invalid SGX Extension TCB: %v", err)}
	}

	var pce pceid
	rest, err = asn1.Unmarshal(rest, &pce)
	if err != nil {
		return nil, &errs.MalformedEvidence{Reason: fmt.Sprintf("invalid SGX Extension PCEID: %v", err)}
	}

	var f fmspc
	rest, err = asn1.Unmarshal(rest, &f)
	if err != nil {
		return nil, &errs.MalformedEvidence{Reason: fmt.Sprintf("invalid SGX Extension FMSPC: %v", err)}
	}

	var st sgxtype
	rest, err = asn1.Unmarshal(rest, &st)
	if err != nil {
		return nil, &errs.MalformedEvidence{Reason: fmt.Sprintf("invalid SGX Extension SGXTYPE: %v", err)}
	}

	// PlatformInstanceId is optional and only present on Platform CA
	// (multi-package) PCK certificates; a Processor CA certificate's
	// extension sequence simply ends here.
	var pi platformInstanceID
	if len(rest) > 0 {
		if _, err := asn1.Unmarshal(rest, &pi); err != nil {
			return nil, &errs.MalformedEvidence{Reason: fmt.Sprintf("invalid SGX Extension PlatformInstanceId: %v", err)}
		}
	}

	comps := [16]tcbComp{
		t.Value.Comp01, t.Value.Comp02, t.Value.Comp03, t.Value.Comp04,
		t.Value.Comp05, t.Value.Comp06, t.Value.Comp07, t.Value.Comp08,
		t.Value.Comp09, t.Value.Comp10, t.Value.Comp11, t.Value.Comp12,
		t.Value.Comp13, t.Value.Comp14, t.Value.Comp15, t.Value.Comp16,
	}
	var out PCKExtensions
	for i, c := range comps {
		out.TcbComp[i] = c.Value
	}
	out.PPID = p.Value
	out.CpuSvn = t.Value.CpuSvn.Value
	out.PceSvn = t.Value.PceSvn.Value
	out.PceID = pce.Value
	out.Fmspc = fmt.Sprintf("%x", f.Value)
	out.SgxType = int(st.Value)
	out.PlatformInstanceID = pi.Value

	return &out, nil
}
