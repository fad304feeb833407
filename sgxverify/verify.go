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
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"crypto/x509"
	"math/big"

	"github.com/sirupsen/logrus"

	"github.com/openattest/ccverify/claims"
	"github.com/openattest/ccverify/cryptoutil"
	"github.com/openattest/ccverify/errs"
)

var log = logrus.WithField("service", "sgxverify")

// CollateralIssuer is the signing certificate for a piece of Intel PCS
// collateral (the TCB info or QE identity document) and the CA that
// issued it.
type CollateralIssuer struct {
	Cert *x509.Certificate
	CA   *x509.Certificate
}

// Collateral is the Intel PCS collateral needed to verify a quote's
// PCK certificate chain and TCB status: the platform TCB info and QE
// identity documents, the certificates that signed them, and the PCK
// revocation list.
type Collateral struct {
	TcbInfo         []byte
	TcbInfoChain    *CollateralIssuer
	QeIdentity      []byte
	QeIdentityChain *CollateralIssuer
	PckCrl          *x509.RevocationList
	RootCrl         *x509.RevocationList
}

// Verify runs the DCAP/ECDSA quote verification algorithm: it checks
// the QE report's self-signature, links the embedded attestation key
// to that QE report, verifies the quote signature with the
// attestation key, walks the PCK certificate chain up to root,
// matches the PCK's TCB level and the QE's own TCB level, and returns
// the enclave report body as claims.
func Verify(evidence []byte, coll *Collateral, rootCA *x509.Certificate, opts cryptoutil.ChainOptions) (*claims.SgxClaims, error) {
	quote, err := DecodeQuote(evidence)
	if err != nil {
		return nil, err
	}

	if quote.Header.AttestationKeyType != AttestationKeyP256 {
		return nil, &errs.UnsupportedVersion{Got: uint32(quote.Header.AttestationKeyType)}
	}

	pckChain, err := ParsePCKChain(quote.Signature.QECertDataType, quote.Signature.QECertData)
	if err != nil {
		return nil, err
	}

	akPub, err := attestationKeyToECDSA(quote.Signature.AttestationKey)
	if err != nil {
		return nil, err
	}

	// 1. Verify the quote signature over header||body with the
	// embedded, as-yet-unauthenticated attestation key.
	headerAndBody := encodeHeaderAndBody(evidence)
	digest := sha256.Sum256(headerAndBody)
	if err := cryptoutil.VerifyECDSASignature(akPub, digest[:], quote.Signature.ISVEnclaveReportSignature[:], cryptoutil.BigEndian); err != nil {
		return nil, &errs.SignatureInvalid{Which: "quote"}
	}

	// 2. Verify the QE self-report's signature with the PCK public key.
	pckPub, ok := pckChain.PCK.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, &errs.PublicKeyMismatch{Which: "pck"}
	}
	qeDigest := sha256.Sum256(encodeReportBody(&quote.Signature.QEReport))
	if err := cryptoutil.VerifyECDSASignature(pckPub, qeDigest[:], quote.Signature.QEReportSignature[:], cryptoutil.BigEndian); err != nil {
		return nil, &errs.SignatureInvalid{Which: "qe_report"}
	}

	// 3. Bind the attestation key to the QE report: the QE report's
	// ReportData must be SHA256(attestation key || QE auth data),
	// zero-padded to 64 bytes.
	linkHash := sha256.Sum256(append(append([]byte{}, quote.Signature.AttestationKey[:]...), quote.Signature.QEAuthData...))
	expected := make([]byte, 64)
	copy(expected, linkHash[:])
	if !bytes.Equal(quote.Signature.QEReport.ReportData[:], expected) {
		return nil, &errs.SignatureInvalid{Which: "qe_attestation_key_binding"}
	}

	// 4. Verify the PCK certificate chain up to the trust anchor.
	chainOpts := opts
	if chainOpts.CRLMode != cryptoutil.CRLCheckNone {
		crls := map[string]*x509.RevocationList{}
		if coll.PckCrl != nil {
			crls[string(pckChain.Intermediate.RawSubject)] = coll.PckCrl
		}
		if coll.RootCrl != nil {
			crls[string(pckChain.Root.RawSubject)] = coll.RootCrl
		}
		chainOpts.CRLs = crls
	}
	if err := cryptoutil.VerifyChain([]*x509.Certificate{pckChain.PCK, pckChain.Intermediate}, []*x509.Certificate{rootCA}, chainOpts); err != nil {
		return nil, err
	}
	if !bytes.Equal(pckChain.Root.Raw, rootCA.Raw) {
		return nil, &errs.CertChainInvalid{Reason: "quote's embedded root CA does not match trust anchor", Depth: 2}
	}
	// As with the SEV-SNP root, pin the configured trust anchor against
	// Intel's published SGX Provisioning Certification root key,
	// independent of whether it came from a configured path or a
	// per-request override.
	if err := cryptoutil.CheckIntelSGXRootPin(rootCA); err != nil {
		return nil, err
	}

	// 5. Parse PCK extensions (FMSPC, TCB components) and match the
	// platform's TCB level.
	pckExt, err := ParsePCKExtensions(pckChain.PCK)
	if err != nil {
		return nil, err
	}
	tcbInfo, err := ParseTcbInfo(coll.TcbInfo)
	if err != nil {
		return nil, err
	}
	if err := verifyCollateralSignature(coll.TcbInfo, tcbInfo.Signature, tcbInfoJSONKey, coll.TcbInfoChain, rootCA); err != nil {
		return nil, err
	}
	if tcbInfo.TcbInfo.Fmspc != pckExt.Fmspc {
		return nil, &errs.QEIdentityMismatch{Field: "fmspc"}
	}
	tcbLevel, err := MatchTcbLevel(&tcbInfo.TcbInfo, pckExt)
	if err != nil {
		return nil, err
	}

	// 6. Match the QE's own TCB level against the QE identity document.
	qeIdentity, err := ParseQeIdentity(coll.QeIdentity)
	if err != nil {
		return nil, err
	}
	if err := verifyCollateralSignature(coll.QeIdentity, qeIdentity.Signature, qeIdentityJSONKey, coll.QeIdentityChain, rootCA); err != nil {
		return nil, err
	}
	if _, err := MatchQeTcbLevel(&qeIdentity.EnclaveIdentity, quote.Signature.QEReport.IsvSvn); err != nil {
		return nil, err
	}
	if err := matchQeIdentity(&quote.Signature.QEReport, &qeIdentity.EnclaveIdentity); err != nil {
		return nil, err
	}

	return &claims.SgxClaims{
		MrSigner:   quote.Body.MrSigner[:],
		MrEnclave:  quote.Body.MrEnclave[:],
		IsvProdID:  quote.Body.IsvProdID,
		IsvSvn:     quote.Body.IsvSvn,
		Attributes: quote.Body.Attributes[:],
		ReportData: quote.Body.ReportData[:],
		Fmspc:      pckExt.Fmspc,
		TCB: claims.TCBLevel{
			Status: tcbLevel.TcbStatus,
			Date:   tcbLevel.TcbDate.String(),
		},
	}, nil
}

func attestationKeyToECDSA(key [64]byte) (*ecdsa.PublicKey, error) {
	x := new(big.Int).SetBytes(key[:32])
	y := new(big.Int).SetBytes(key[32:])
	if x.Sign() == 0 || y.Sign() == 0 {
		return nil, &errs.PublicKeyMismatch{Which: "attestation_key"}
	}
	return &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}, nil
}

// encodeHeaderAndBody re-serializes the header and report body exactly
// as they appear in the wire format, since the signed digest covers
// those raw bytes rather than a re-encoded struct.
func encodeHeaderAndBody(evidence []byte) []byte {
	return evidence[:QuoteHeaderSize+QuoteBodySize]
}

func encodeReportBody(b *EnclaveReportBody) []byte {
	buf := make([]byte, 0, QuoteBodySize)
	buf = append(buf, b.CPUSVN[:]...)
	buf = append(buf, u32le(b.MiscSelect)...)
	buf = append(buf, b.Reserved1[:]...)
	buf = append(buf, b.Attributes[:]...)
	buf = append(buf, b.MrEnclave[:]...)
	buf = append(buf, b.Reserved2[:]...)
	buf = append(buf, b.MrSigner[:]...)
	buf = append(buf, b.Reserved3[:]...)
	buf = append(buf, u16le(b.IsvProdID)...)
	buf = append(buf, u16le(b.IsvSvn)...)
	buf = append(buf, b.Reserved4[:]...)
	buf = append(buf, b.ReportData[:]...)
	return buf
}

func u32le(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func u16le(v uint16) []byte {
	return []byte{byte(v), byte(v >> 8)}
}
