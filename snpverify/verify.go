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

package snpverify

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/sha512"
	"crypto/x509"

	"github.com/google/go-sev-guest/kds"
	"github.com/sirupsen/logrus"

	"github.com/openattest/ccverify/claims"
	"github.com/openattest/ccverify/cryptoutil"
	"github.com/openattest/ccverify/errs"
)

var log = logrus.WithField("service", "snpverify")

// Collateral is the AMD KDS collateral needed to verify a report's
// VCEK certificate chain: the VCEK leaf and its ASK/ARK issuers.
type Collateral struct {
	Vcek *x509.Certificate
	Ask  *x509.Certificate
	Ark  *x509.Certificate
	// Crl is the VCEK issuer's (ASK's) revocation list, used to check
	// that the VCEK itself has not been revoked.
	Crl *x509.RevocationList
}

// Verify runs the SEV-SNP attestation report verification algorithm:
// it checks the report signature against the VCEK, walks the VCEK
// certificate chain up to the ARK, checks the VCEK's TCB extensions
// against the reported TCB and chip ID, and returns the report body
// as claims.
func Verify(evidence []byte, coll *Collateral, rootCA *x509.Certificate, opts cryptoutil.ChainOptions) (*claims.SevSnpClaims, error) {
	report, err := DecodeReport(evidence)
	if err != nil {
		return nil, err
	}

	if report.Version != VersionSupported {
		return nil, &errs.UnsupportedVersion{Got: report.Version}
	}
	if report.SignatureAlgo != EcdsaP384WithSha384 {
		return nil, &errs.UnsupportedVersion{Got: report.SignatureAlgo}
	}

	if err := verifyExtensions(coll.Vcek, report); err != nil {
		return nil, err
	}

	pub, ok := coll.Vcek.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, &errs.PublicKeyMismatch{Which: "vcek"}
	}

	digest := sha512.Sum384(evidence[:SignatureOffset])
	sig := append(append([]byte{}, report.SignatureR[:]...), report.SignatureS[:]...)
	if err := cryptoutil.VerifyECDSASignature(pub, digest[:], sig, cryptoutil.LittleEndian); err != nil {
		return nil, &errs.SignatureInvalid{Which: "snp_report"}
	}

	chainOpts := opts
	if chainOpts.CRLMode != cryptoutil.CRLCheckNone {
		crls := map[string]*x509.RevocationList{}
		if coll.Crl != nil {
			crls[string(coll.Ask.RawSubject)] = coll.Crl
		}
		chainOpts.CRLs = crls
	}
	if err := cryptoutil.VerifyChain([]*x509.Certificate{coll.Vcek, coll.Ask}, []*x509.Certificate{rootCA}, chainOpts); err != nil {
		return nil, err
	}
	if !bytes.Equal(coll.Ark.Raw, rootCA.Raw) {
		return nil, &errs.CertChainInvalid{Reason: "VCEK chain's ARK does not match trust anchor", Depth: 2}
	}
	// The configured trust anchor is checked against the chain above,
	// but trust anchors are loaded from a configurable path or request
	// override; pin the ARK itself against AMD's published Milan root
	// key so a caller-supplied anchor can never substitute a different
	// issuer for the real platform root.
	if err := cryptoutil.CheckAMDMilanRootPin(coll.Ark); err != nil {
		return nil, err
	}

	return &claims.SevSnpClaims{
		GuestSvn:        report.GuestSvn,
		Policy:          report.Policy,
		PlatformVersion: report.CurrentTcb,
		ChipID:          report.ChipID[:],
		ReportedTcb:     report.ReportedTcb,
		LaunchTcb:       report.LaunchTcb,
		Measurement:     report.Measurement[:],
		ReportData:      report.ReportData[:],
	}, nil
}

// verifyExtensions checks that the VCEK's KDS-defined x509v3
// extensions (bootloader, TEE, SNP, and microcode security patch
// levels, plus chip ID) match the report's reported TCB and chip ID.
func verifyExtensions(vcek *x509.Certificate, report *Report) error {
	ext, err := kds.VcekCertificateExtensions(vcek)
	if err != nil {
		return &errs.TCBParseError{Reason: err.Error()}
	}
	parts := kds.DecomposeTCBVersion(ext.TCBVersion)

	reported := kds.DecomposeTCBVersion(kds.TCBVersion(report.ReportedTcb))
	if parts.BlSpl != reported.BlSpl {
		return &errs.MeasurementMismatch{Expected: "bootloader spl", Got: "vcek extension mismatch"}
	}
	if parts.TeeSpl != reported.TeeSpl {
		return &errs.MeasurementMismatch{Expected: "tee spl", Got: "vcek extension mismatch"}
	}
	if parts.SnpSpl != reported.SnpSpl {
		return &errs.MeasurementMismatch{Expected: "snp spl", Got: "vcek extension mismatch"}
	}
	if parts.UcodeSpl != reported.UcodeSpl {
		return &errs.MeasurementMismatch{Expected: "ucode spl", Got: "vcek extension mismatch"}
	}
	if !bytes.Equal(ext.HWID[:], report.ChipID[:]) {
		return &errs.MeasurementMismatch{Expected: "chip id", Got: "vcek extension mismatch"}
	}
	log.Trace("VCEK extensions match reported TCB and chip ID")
	return nil
}
