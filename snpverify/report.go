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

// Package snpverify verifies AMD SEV-SNP attestation reports: the
// VCEK certificate chain up to the ARK, the VCEK's TCB extensions
// against the report's reported TCB, and the ECDSA P-384 report
// signature.
package snpverify

import (
	"github.com/openattest/ccverify/codec"
	"github.com/openattest/ccverify/errs"
)

// SignatureOffset marks the signed region of the report: bytes
// [0, SignatureOffset) are hashed and verified against
// SignatureR/SignatureS, per AMD SEV-SNP ABI table 21.
const (
	SignatureOffset = 0x2A0

	EcdsaP384WithSha384 = 1

	// VersionSupported is the only report version this package knows
	// how to interpret the fixed-offset layout of.
	VersionSupported = 2
)

// Report is AMD SEV-SNP's ABI table 21 attestation report.
type Report struct {
	Version         uint32
	GuestSvn        uint32
	Policy          uint64
	FamilyID        [16]byte
	ImageID         [16]byte
	Vmpl            uint32
	SignatureAlgo   uint32
	CurrentTcb      uint64
	PlatformInfo    uint64
	AuthorKeyEn     uint32
	Reserved1       uint32
	ReportData      [64]byte
	Measurement     [48]byte
	HostData        [32]byte
	IDKeyDigest     [48]byte
	AuthorKeyDigest [48]byte
	ReportID        [32]byte
	ReportIDMa      [32]byte
	ReportedTcb     uint64
	Reserved2       [24]byte
	ChipID          [64]byte
	CommittedTcb    uint64
	CurrentBuild    uint8
	CurrentMinor    uint8
	CurrentMajor    uint8
	Reserved3a      uint8
	CommittedBuild  uint8
	CommittedMinor  uint8
	CommittedMajor  uint8
	Reserved3b      uint8
	LaunchTcb       uint64
	Reserved3c      [168]byte

	SignatureR [72]byte
	SignatureS [72]byte
	Reserved4  [368]byte
}

// DecodeReport parses the little-endian SEV-SNP attestation report.
func DecodeReport(raw []byte) (*Report, error) {
	if len(raw) < SignatureOffset+144 {
		return nil, &errs.MalformedEvidence{Reason: "SEV-SNP report shorter than minimum size"}
	}
	r := codec.NewReader(raw)

	var rep Report
	var err error

	if rep.Version, err = r.Uint32(); err != nil {
		return nil, err
	}
	if rep.GuestSvn, err = r.Uint32(); err != nil {
		return nil, err
	}
	if rep.Policy, err = r.Uint64(); err != nil {
		return nil, err
	}
	if err = r.FixedArray(rep.FamilyID[:]); err != nil {
		return nil, err
	}
	if err = r.FixedArray(rep.ImageID[:]); err != nil {
		return nil, err
	}
	if rep.Vmpl, err = r.Uint32(); err != nil {
		return nil, err
	}
	if rep.SignatureAlgo, err = r.Uint32(); err != nil {
		return nil, err
	}
	if rep.CurrentTcb, err = r.Uint64(); err != nil {
		return nil, err
	}
	if rep.PlatformInfo, err = r.Uint64(); err != nil {
		return nil, err
	}
	if rep.AuthorKeyEn, err = r.Uint32(); err != nil {
		return nil, err
	}
	if rep.Reserved1, err = r.Uint32(); err != nil {
		return nil, err
	}
	if err = r.FixedArray(rep.ReportData[:]); err != nil {
		return nil, err
	}
	if err = r.FixedArray(rep.Measurement[:]); err != nil {
		return nil, err
	}
	if err = r.FixedArray(rep.HostData[:]); err != nil {
		return nil, err
	}
	if err = r.FixedArray(rep.IDKeyDigest[:]); err != nil {
		return nil, err
	}
	if err = r.FixedArray(rep.AuthorKeyDigest[:]); err != nil {
		return nil, err
	}
	if err = r.FixedArray(rep.ReportID[:]); err != nil {
		return nil, err
	}
	if err = r.FixedArray(rep.ReportIDMa[:]); err != nil {
		return nil, err
	}
	if rep.ReportedTcb, err = r.Uint64(); err != nil {
		return nil, err
	}
	if err = r.FixedArray(rep.Reserved2[:]); err != nil {
		return nil, err
	}
	if err = r.FixedArray(rep.ChipID[:]); err != nil {
		return nil, err
	}
	if rep.CommittedTcb, err = r.Uint64(); err != nil {
		return nil, err
	}
	if rep.CurrentBuild, err = r.Byte(); err != nil {
		return nil, err
	}
	if rep.CurrentMinor, err = r.Byte(); err != nil {
		return nil, err
	}
	if rep.CurrentMajor, err = r.Byte(); err != nil {
		return nil, err
	}
	if rep.Reserved3a, err = r.Byte(); err != nil {
		return nil, err
	}
	if rep.CommittedBuild, err = r.Byte(); err != nil {
		return nil, err
	}
	if rep.CommittedMinor, err = r.Byte(); err != nil {
		return nil, err
	}
	if rep.CommittedMajor, err = r.Byte(); err != nil {
		return nil, err
	}
	if rep.Reserved3b, err = r.Byte(); err != nil {
		return nil, err
	}
	if rep.LaunchTcb, err = r.Uint64(); err != nil {
		return nil, err
	}
	if err = r.FixedArray(rep.Reserved3c[:]); err != nil {
		return nil, err
	}
	if err = r.FixedArray(rep.SignatureR[:]); err != nil {
		return nil, err
	}
	if err = r.FixedArray(rep.SignatureS[:]); err != nil {
		return nil, err
	}
	if r.Remaining() > 0 {
		if err = r.FixedArray(rep.Reserved4[:min(len(rep.Reserved4), r.Remaining())]); err != nil {
			return nil, err
		}
	}

	return &rep, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
