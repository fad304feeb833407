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

package codec

import (
	"bytes"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/openattest/ccverify/errs"
)

// SplitChain splits a certificate chain blob into individual DER
// certificates, leaf first. The blob may be PEM (one or more
// "-----BEGIN CERTIFICATE-----" blocks) or a concatenation of raw DER
// certificates; the encoding is probed by the leading byte, per the
// same PEM-or-DER tolerance applied to CRLs.
func SplitChain(data []byte) ([]*x509.Certificate, error) {
	if len(data) == 0 {
		return nil, &errs.MalformedEvidence{Reason: "empty certificate chain"}
	}
	if looksLikePEM(data) {
		return splitPEMChain(data)
	}
	return splitDERChain(data)
}

func looksLikePEM(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	return bytes.HasPrefix(trimmed, []byte("-----BEGIN"))
}

func splitPEMChain(data []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, &errs.MalformedEvidence{Reason: fmt.Sprintf("invalid PEM certificate: %v", err)}
		}
		certs = append(certs, cert)
	}
	if len(certs) == 0 {
		return nil, &errs.MalformedEvidence{Reason: "no CERTIFICATE blocks found in PEM input"}
	}
	return certs, nil
}

// splitDERChain parses a concatenation of raw DER certificates by
// repeatedly consuming one ASN.1 SEQUENCE at a time.
func splitDERChain(data []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	rest := data
	for len(rest) > 0 {
		cert, err := x509.ParseCertificate(rest)
		if err == nil {
			certs = append(certs, cert)
			break
		}
		// x509.ParseCertificate requires the slice to contain exactly
		// one certificate with no trailing data; fall back to parsing
		// certificates one at a time via ParseCertificates, which
		// tolerates a concatenation of full DER structures.
		all, aerr := x509.ParseCertificates(rest)
		if aerr != nil {
			return nil, &errs.MalformedEvidence{Reason: fmt.Sprintf("invalid DER certificate chain: %v", aerr)}
		}
		certs = append(certs, all...)
		break
	}
	if len(certs) == 0 {
		return nil, &errs.MalformedEvidence{Reason: "no certificates found in DER input"}
	}
	return certs, nil
}

// SplitCRL parses a single certificate revocation list encoded as
// either PEM ("-----BEGIN X509 CRL-----") or raw DER, per the Open
// Question resolving CRL encoding ambiguity.
func SplitCRL(data []byte) (*x509.RevocationList, error) {
	if len(data) == 0 {
		return nil, &errs.MalformedEvidence{Reason: "empty CRL"}
	}
	input := data
	if looksLikePEM(data) {
		block, _ := pem.Decode(data)
		if block == nil {
			return nil, &errs.MalformedEvidence{Reason: "invalid PEM CRL"}
		}
		input = block.Bytes
	}
	crl, err := x509.ParseRevocationList(input)
	if err != nil {
		return nil, &errs.MalformedEvidence{Reason: fmt.Sprintf("invalid CRL: %v", err)}
	}
	return crl, nil
}
