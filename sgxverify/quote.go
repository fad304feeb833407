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

// Package sgxverify verifies Intel SGX DCAP/ECDSA quotes: the quote's
// signature chain up to the Intel SGX Root CA, the quoting enclave's
// identity and TCB level, and the enclave report body against caller
// supplied reference values.
package sgxverify

import (
	"github.com/openattest/ccverify/codec"
	"github.com/openattest/ccverify/errs"
)

// QuoteHeader is table 3 of Intel's ECDSA QuoteLibReference: the first
// 48 bytes of every DCAP quote.
type QuoteHeader struct {
	Version            uint16
	AttestationKeyType uint16
	TeeType            uint32
	QESVN              uint16
	PCESVN              uint16
	QEVendorID          [16]byte
	UserData            [20]byte
}

// EnclaveReportBody is table 5: the 384-byte SGX enclave report,
// embedded both as the quote body and as the QE's own self-report.
type EnclaveReportBody struct {
	CPUSVN     [16]byte
	MiscSelect uint32
	Reserved1  [28]byte
	Attributes [16]byte
	MrEnclave  [32]byte
	Reserved2  [32]byte
	MrSigner   [32]byte
	Reserved3  [96]byte
	IsvProdID  uint16
	IsvSvn     uint16
	Reserved4  [60]byte
	ReportData [64]byte
}

// SignatureData is table 4: the variable-length ECDSA-256
// quote signature structure.
type SignatureData struct {
	ISVEnclaveReportSignature [64]byte
	AttestationKey            [64]byte
	QEReport                  EnclaveReportBody
	QEReportSignature         [64]byte
	QEAuthData                []byte
	QECertDataType            uint16
	QECertData                []byte
}

const (
	SgxQuoteType     = 0x0
	QuoteHeaderSize  = 48
	QuoteBodySize    = 384
	QuoteMinSize     = 1020
	AttestationKeyP256 = 2
	QECertDataTypePckChain = 5
)

// Quote is a fully decoded SGX DCAP quote.
type Quote struct {
	Header    QuoteHeader
	Body      EnclaveReportBody
	Signature SignatureData
}

// DecodeQuote parses the little-endian DCAP quote wire format.
func DecodeQuote(raw []byte) (*Quote, error) {
	if len(raw) < QuoteMinSize {
		return nil, &errs.MalformedEvidence{Reason: "quote shorter than minimum SGX quote size"}
	}
	r := codec.NewReader(raw)

	var header QuoteHeader
	if err := readHeader(r, &header); err != nil {
		return nil, err
	}
	if header.TeeType != SgxQuoteType {
		return nil, &errs.UnsupportedVersion{Got: header.TeeType}
	}

	var body EnclaveReportBody
	if err := readReportBody(r, &body); err != nil {
		return nil, err
	}

	sigLen, err := r.Uint32()
	if err != nil {
		return nil, err
	}

	var sig SignatureData
	if err := readSignatureData(r, &sig, int(sigLen)); err != nil {
		return nil, err
	}

	return &Quote{Header: header, Body: body, Signature: sig}, nil
}

func readHeader(r *codec.Reader, h *QuoteHeader) error {
	var err error
	if h.Version, err = r.Uint16(); err != nil {
		return err
	}
	if h.AttestationKeyType, err = r.Uint16(); err != nil {
		return err
	}
	if h.TeeType, err = r.Uint32(); err != nil {
		return err
	}
	if h.QESVN, err = r.Uint16(); err != nil {
		return err
	}
	if h.PCESVN, err = r.Uint16(); err != nil {
		return err
	}
	if err = r.FixedArray(h.QEVendorID[:]); err != nil {
		return err
	}
	return r.FixedArray(h.UserData[:])
}

func readReportBody(r *codec.Reader, b *EnclaveReportBody) error {
	var err error
	if err = r.FixedArray(b.CPUSVN[:]); err != nil {
		return err
	}
	if b.MiscSelect, err = r.Uint32(); err != nil {
		return err
	}
	if err = r.FixedArray(b.Reserved1[:]); err != nil {
		return err
	}
	if err = r.FixedArray(b.Attributes[:]); err != nil {
		return err
	}
	if err = r.FixedArray(b.MrEnclave[:]); err != nil {
		return err
	}
	if err = r.FixedArray(b.Reserved2[:]); err != nil {
		return err
	}
	if err = r.FixedArray(b.MrSigner[:]); err != nil {
		return err
	}
	if err = r.FixedArray(b.Reserved3[:]); err != nil {
		return err
	}
	if b.IsvProdID, err = r.Uint16(); err != nil {
		return err
	}
	if b.IsvSvn, err = r.Uint16(); err != nil {
		return err
	}
	if err = r.FixedArray(b.Reserved4[:]); err != nil {
		return err
	}
	return r.FixedArray(b.ReportData[:])
}

func readSignatureData(r *codec.Reader, s *SignatureData, declaredLen int) error {
	start := r.Offset()
	var err error
	if err = r.FixedArray(s.ISVEnclaveReportSignature[:]); err != nil {
		return err
	}
	if err = r.FixedArray(s.AttestationKey[:]); err != nil {
		return err
	}
	if err = readReportBody(r, &s.QEReport); err != nil {
		return err
	}
	if err = r.FixedArray(s.QEReportSignature[:]); err != nil {
		return err
	}

	authLen, err := r.Uint16()
	if err != nil {
		return err
	}
	if s.QEAuthData, err = r.Bytes(int(authLen)); err != nil {
		return err
	}

	if s.QECertDataType, err = r.Uint16(); err != nil {
		return err
	}
	certLen, err := r.Uint32()
	if err != nil {
		return err
	}
	if s.QECertData, err = r.Bytes(int(certLen)); err != nil {
		return err
	}

	if declaredLen != 0 && r.Offset()-start != declaredLen {
		return &errs.MalformedEvidence{Reason: "quote signature data length does not match declared length"}
	}
	return nil
}
