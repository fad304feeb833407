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

	"github.com/openattest/ccverify/codec"
	"github.com/openattest/ccverify/cryptoutil"
	"github.com/openattest/ccverify/errs"
)

const (
	cnPCKCert     = "Intel SGX PCK Certificate"
	cnPlatformCA  = "Intel SGX PCK Platform CA"
	cnProcessorCA = "Intel SGX PCK Processor CA"
	cnRootCert    = "Intel SGX Root CA"
	cnTCBSigning  = "Intel SGX TCB Signing"
)

// Certificates is the PCK leaf certificate and its issuer chain, as
// embedded in QECertData for QECertDataType 5.
type Certificates struct {
	PCK          *x509.Certificate
	Intermediate *x509.Certificate
	Root         *x509.Certificate
}

// ParsePCKChain splits QECertData (type 5: a concatenated PEM chain of
// PCK leaf, intermediate CA, and root CA) into its three certificates.
func ParsePCKChain(certDataType uint16, certData []byte) (*Certificates, error) {
	if certDataType != QECertDataTypePckChain {
		return nil, &errs.UnsupportedVersion{Got: uint32(certDataType)}
	}
	certs, err := codec.SplitChain(certData)
	if err != nil {
		return nil, err
	}

	var out Certificates
	for _, c := range certs {
		switch c.Subject.CommonName {
		case cnPCKCert:
			out.PCK = c
		case cnPlatformCA, cnProcessorCA:
			out.Intermediate = c
		case cnRootCert:
			out.Root = c
		}
	}
	if out.PCK == nil || out.Intermediate == nil || out.Root == nil {
		return nil, &errs.CertChainInvalid{Reason: "QE certificate data missing PCK, intermediate, or root certificate", Depth: 0}
	}
	// The switch above assigns roles by CN already; re-assert them
	// explicitly so a future reclassification can't silently widen
	// which CNs are accepted for each role without touching this check.
	if err := cryptoutil.CheckCN(out.PCK, cnPCKCert); err != nil {
		return nil, err
	}
	if err := cryptoutil.CheckCN(out.Root, cnRootCert); err != nil {
		return nil, err
	}
	if cryptoutil.CheckCN(out.Intermediate, cnPlatformCA) != nil && cryptoutil.CheckCN(out.Intermediate, cnProcessorCA) != nil {
		return nil, &errs.CertChainInvalid{Reason: "intermediate certificate has unexpected CN " + out.Intermediate.Subject.CommonName, Depth: 1}
	}
	return &out, nil
}
