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
	"crypto/sha256"
	"crypto/x509"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/openattest/ccverify/cryptoutil"
	"github.com/openattest/ccverify/errs"
)

// sgxFlagsDebug is SGX_FLAGS_DEBUG: an enclave built with this
// attributes bit set runs with debug instructions enabled and must
// never be trusted as a quoting enclave.
const sgxFlagsDebug = 0x0000000000000002

// tcbInfoJSONKey and qeIdentityJSONKey name the top-level JSON property
// whose raw bytes are the signed body of each collateral document.
const (
	tcbInfoJSONKey    = "tcbInfo"
	qeIdentityJSONKey = "enclaveIdentity"
)

// TcbInfo is Intel PCS's signed SGX TCB info document.
type TcbInfo struct {
	TcbInfo   TcbInfoBody `json:"tcbInfo"`
	Signature string      `json:"signature"`
}

type TcbInfoBody struct {
	ID                      string     `json:"id"`
	Version                 uint32     `json:"version"`
	IssueDate               time.Time  `json:"issueDate"`
	NextUpdate              time.Time  `json:"nextUpdate"`
	Fmspc                   string     `json:"fmspc"`
	PceID                   string     `json:"pceId"`
	TcbType                 uint32     `json:"tcbType"`
	TcbEvaluationDataNumber uint32     `json:"tcbEvaluationDataNumber"`
	TcbLevels               []TcbLevel `json:"tcbLevels"`
}

type TcbLevel struct {
	Tcb struct {
		SgxTcbComponents []TcbComponent `json:"sgxTcbComponents"`
		PceSvn           uint32         `json:"pceSvn"`
	} `json:"tcb"`
	TcbStatus   string    `json:"tcbStatus"`
	TcbDate     time.Time `json:"tcbDate"`
	AdvisoryIDs []string  `json:"advisoryIDs"`
}

type TcbComponent struct {
	Svn      byte   `json:"svn"`
	Category string `json:"category"`
	Type     string `json:"type"`
}

// QeIdentity is Intel PCS's signed quoting enclave identity document.
type QeIdentity struct {
	EnclaveIdentity QeIdentityBody `json:"enclaveIdentity"`
	Signature       string         `json:"signature"`
}

type QeIdentityBody struct {
	ID                      string              `json:"id"`
	Version                 uint32              `json:"version"`
	IssueDate               time.Time           `json:"issueDate"`
	NextUpdate              time.Time           `json:"nextUpdate"`
	TcbEvaluationDataNumber uint32              `json:"tcbEvaluationDataNumber"`
	MiscSelect              string              `json:"miscselect"`
	MiscSelectMask          string              `json:"miscselectMask"`
	Attributes              string              `json:"attributes"`
	AttributesMask          string              `json:"attributesMask"`
	MrSigner                string              `json:"mrsigner"`
	IsvProdID               uint32              `json:"isvprodid"`
	TcbLevels               []QeIdentityTcbLevel `json:"tcbLevels"`
}

type QeIdentityTcbLevel struct {
	Tcb struct {
		Isvsvn uint32 `json:"isvsvn"`
	} `json:"tcb"`
	TcbDate     time.Time `json:"tcbDate"`
	TcbStatus   string    `json:"tcbStatus"`
	AdvisoryIDs []string  `json:"advisoryIDs"`
}

// ParseTcbInfo decodes a TCB info document in its native JSON form.
func ParseTcbInfo(raw []byte) (*TcbInfo, error) {
	var info TcbInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, &errs.TCBParseError{Reason: err.Error()}
	}
	return &info, nil
}

// ParseQeIdentity decodes a quoting enclave identity document.
func ParseQeIdentity(raw []byte) (*QeIdentity, error) {
	var id QeIdentity
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil, &errs.TCBParseError{Reason: err.Error()}
	}
	return &id, nil
}

// MatchTcbLevel finds the first TCB level (levels are stored in
// descending order of trustworthiness) whose SGX TCB components and
// PCE SVN are all less than or equal to the PCK certificate's
// corresponding values.
func MatchTcbLevel(info *TcbInfoBody, pck *PCKExtensions) (*TcbLevel, error) {
	for i := range info.TcbLevels {
		level := &info.TcbLevels[i]
		if len(level.Tcb.SgxTcbComponents) > 16 {
			continue
		}
		ok := true
		for j, comp := range level.Tcb.SgxTcbComponents {
			if int(comp.Svn) > pck.TcbComp[j] {
				ok = false
				break
			}
		}
		if ok && int(level.Tcb.PceSvn) > pck.PceSvn {
			ok = false
		}
		if ok {
			return level, nil
		}
	}
	return nil, &errs.NoMatchingTCBLevel{}
}

// MatchQeTcbLevel finds the first QE identity TCB level whose ISV SVN
// is less than or equal to the quoting enclave report's ISV SVN.
func MatchQeTcbLevel(id *QeIdentityBody, qeIsvSvn uint16) (*QeIdentityTcbLevel, error) {
	for i := range id.TcbLevels {
		level := &id.TcbLevels[i]
		if level.Tcb.Isvsvn <= uint32(qeIsvSvn) {
			return level, nil
		}
	}
	return nil, &errs.NoMatchingTCBLevel{}
}

// matchQeIdentity checks the quoting enclave's self-report against the
// QE identity document: MRSIGNER and ISV product ID must match
// exactly, MISCSELECT and ATTRIBUTES must match under their
// respective masks, and the QE must not have its DEBUG attribute set.
func matchQeIdentity(qe *EnclaveReportBody, id *QeIdentityBody) error {
	wantMrSigner, err := hex.DecodeString(id.MrSigner)
	if err != nil || !bytes.Equal(qe.MrSigner[:], wantMrSigner) {
		return &errs.QEIdentityMismatch{Field: "mrsigner"}
	}
	if uint32(qe.IsvProdID) != id.IsvProdID {
		return &errs.QEIdentityMismatch{Field: "isvprodid"}
	}

	miscSelect, err := hexToUint32(id.MiscSelect)
	if err != nil {
		return &errs.TCBParseError{Reason: err.Error()}
	}
	miscSelectMask, err := hexToUint32(id.MiscSelectMask)
	if err != nil {
		return &errs.TCBParseError{Reason: err.Error()}
	}
	if qe.MiscSelect&miscSelectMask != miscSelect&miscSelectMask {
		return &errs.QEIdentityMismatch{Field: "miscselect"}
	}

	attributes, err := hexToBytes16(id.Attributes)
	if err != nil {
		return &errs.TCBParseError{Reason: err.Error()}
	}
	attributesMask, err := hexToBytes16(id.AttributesMask)
	if err != nil {
		return &errs.TCBParseError{Reason: err.Error()}
	}
	for i := range attributes {
		if qe.Attributes[i]&attributesMask[i] != attributes[i]&attributesMask[i] {
			return &errs.QEIdentityMismatch{Field: "attributes"}
		}
	}

	if binary.LittleEndian.Uint64(qe.Attributes[:8])&sgxFlagsDebug != 0 {
		return &errs.QEIdentityMismatch{Field: "debug"}
	}

	return nil
}

func hexToUint32(s string) (uint32, error) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 4 {
		return 0, fmt.Errorf("invalid 4-byte hex value %q", s)
	}
	return binary.LittleEndian.Uint32(b), nil
}

func hexToBytes16(s string) ([16]byte, error) {
	var out [16]byte
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 16 {
		return out, fmt.Errorf("invalid 16-byte hex value %q", s)
	}
	copy(out[:], b)
	return out, nil
}

// verifyCollateralSignature checks that a PCS collateral document (TCB
// info or QE identity) was signed by Intel's TCB signing certificate,
// and that certificate chains to the platform's trust anchor. The
// signature covers the raw bytes of the document's top-level jsonKey
// value, not the document as a whole.
func verifyCollateralSignature(raw []byte, signatureHex, jsonKey string, chain *CollateralIssuer, rootCA *x509.Certificate) error {
	if chain == nil || chain.Cert == nil || chain.CA == nil {
		return &errs.CertChainInvalid{Reason: fmt.Sprintf("missing issuer chain for %v", jsonKey), Depth: 0}
	}
	if err := cryptoutil.CheckCN(chain.Cert, cnTCBSigning); err != nil {
		return err
	}
	if err := cryptoutil.VerifyChain([]*x509.Certificate{chain.Cert}, []*x509.Certificate{chain.CA}, cryptoutil.ChainOptions{}); err != nil {
		return err
	}
	if !bytes.Equal(chain.CA.Raw, rootCA.Raw) {
		return &errs.CertChainInvalid{Reason: fmt.Sprintf("%v issuer chain root does not match trust anchor", jsonKey), Depth: 1}
	}

	tbs, err := extractTbsArea(raw, jsonKey)
	if err != nil {
		return &errs.SignatureInvalid{Which: jsonKey}
	}
	digest := sha256.Sum256(tbs)

	sig, err := hex.DecodeString(signatureHex)
	if err != nil {
		return &errs.SignatureInvalid{Which: jsonKey}
	}

	pub, ok := chain.Cert.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return &errs.PublicKeyMismatch{Which: jsonKey}
	}
	if err := cryptoutil.VerifyECDSASignature(pub, digest[:], sig, cryptoutil.BigEndian); err != nil {
		return &errs.SignatureInvalid{Which: jsonKey}
	}
	return nil
}

// extractTbsArea pulls the exact raw bytes of a top-level JSON property
// out of a collateral document, which is what the document's signature
// actually covers rather than the document as a whole.
func extractTbsArea(elem []byte, key string) ([]byte, error) {
	var rawMsg map[string]json.RawMessage
	if err := json.Unmarshal(elem, &rawMsg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal collateral element: %w", err)
	}
	tbs, ok := rawMsg[key]
	if !ok {
		return nil, fmt.Errorf("collateral element has no %q property", key)
	}
	return tbs, nil
}
