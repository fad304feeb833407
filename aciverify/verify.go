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

// Package aciverify verifies Azure ACI/UVM endorsements: a
// COSE_Sign1-signed claim binding a confidential container platform's
// measured launch to a did:x509-resolved signer, layered on top of an
// already-verified SEV-SNP attestation report.
package aciverify

import (
	"crypto/x509"
	"encoding/hex"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/openattest/ccverify/claims"
	"github.com/openattest/ccverify/cryptoutil"
	"github.com/openattest/ccverify/did"
	"github.com/openattest/ccverify/errs"
	"github.com/openattest/ccverify/snpverify"
)

var log = logrus.WithField("service", "aciverify")

// payload is the JSON claims body signed by a UVM endorsement's
// COSE_Sign1 envelope.
type payload struct {
	GuestSvn          string `json:"x-ms-sevsnpvm-guestsvn"`
	LaunchMeasurement string `json:"x-ms-sevsnpvm-launchmeasurement"`
}

// Verify runs the ACI/UVM endorsement verification algorithm: it
// verifies the underlying SEV-SNP report (§4.5), resolves the
// COSE_Sign1 signer's did:x509 identity against its own x5chain,
// verifies the signature, checks that the signed launch measurement
// matches the SEV-SNP report's measurement, and matches the resulting
// (did, feed, svn) triple against the built-in roots of trust.
func Verify(evidence, uvmEndorsements []byte, coll *snpverify.Collateral, rootCA *x509.Certificate, opts cryptoutil.ChainOptions) (*claims.AciClaims, error) {
	snpClaims, err := snpverify.Verify(evidence, coll, rootCA, opts)
	if err != nil {
		return nil, err
	}

	msg, hdr, err := cryptoutil.ParseSign1(uvmEndorsements)
	if err != nil {
		return nil, err
	}

	if hdr.ContentType != "" && hdr.ContentType != "application/json" {
		return nil, &errs.COSEDecodeError{Reason: "unexpected UVM endorsements content type " + hdr.ContentType}
	}
	if !cryptoutil.IsRSAAlgorithm(hdr.Algorithm) {
		return nil, &errs.COSEDecodeError{Reason: "UVM endorsements signed with unsupported non-RSA algorithm"}
	}

	chain := make([]*x509.Certificate, 0, len(hdr.X5Chain))
	for _, der := range hdr.X5Chain {
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, &errs.MalformedEvidence{Reason: "invalid x5chain certificate: " + err.Error()}
		}
		chain = append(chain, cert)
	}

	doc, err := did.Resolve(chain, hdr.Issuer)
	if err != nil {
		return nil, err
	}
	if len(doc.VerificationMethod) == 0 {
		return nil, &errs.DIDResolutionFailed{DID: hdr.Issuer, Reason: "resolved DID document has no verification method"}
	}
	vm := doc.VerificationMethod[0]
	if vm.Controller != hdr.Issuer {
		return nil, &errs.DIDResolutionFailed{DID: hdr.Issuer, Reason: "verification method controller does not match issuer"}
	}

	rawPayload, err := cryptoutil.VerifySign1RSA(msg, vm.PublicKeyJwk.Key, hdr.Algorithm)
	if err != nil {
		return nil, err
	}

	var p payload
	if err := json.Unmarshal(rawPayload, &p); err != nil {
		return nil, &errs.COSEDecodeError{Reason: "invalid UVM endorsements payload JSON: " + err.Error()}
	}

	measurementHex := hex.EncodeToString(snpClaims.Measurement)
	if p.LaunchMeasurement != measurementHex {
		return nil, &errs.MeasurementMismatch{Expected: p.LaunchMeasurement, Got: measurementHex}
	}

	if !matchesRootOfTrust(hdr.Issuer, hdr.Feed, p.GuestSvn) {
		return nil, &errs.UnknownRootOfTrust{DID: hdr.Issuer, Feed: hdr.Feed, SVN: p.GuestSvn}
	}
	log.Debugf("UVM endorsement %v/%v matched built-in root of trust", hdr.Issuer, hdr.Feed)

	return &claims.AciClaims{
		SevSnpClaims:      *snpClaims,
		DID:               hdr.Issuer,
		Feed:              hdr.Feed,
		Svn:               p.GuestSvn,
		LaunchMeasurement: p.LaunchMeasurement,
	}, nil
}
