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

// Package cryptoutil collects the cryptographic primitives shared by
// every verifier package: certificate chain and CRL validation, ECDSA
// and RSA signature verification, and COSE_Sign1 verification.
package cryptoutil

import (
	"bytes"
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/openattest/ccverify/errs"
)

var log = logrus.WithField("service", "cryptoutil")

// CRLMode selects how strictly revocation is enforced during chain
// verification.
type CRLMode int

const (
	// CRLCheckNone performs no revocation checking.
	CRLCheckNone CRLMode = iota
	// CRLCheck requires a CRL for the leaf's issuer only.
	CRLCheck
	// CRLCheckAll requires a CRL for every issuer in the chain.
	CRLCheckAll
)

// ChainOptions configures VerifyChain.
type ChainOptions struct {
	// CRLMode selects revocation enforcement strictness.
	CRLMode CRLMode
	// CRLs maps an issuer's RawSubject to its revocation list.
	CRLs map[string]*x509.RevocationList
	// IgnoreTime skips certificate validity and CRL freshness checks
	// entirely, used when verifying against historical endorsements.
	IgnoreTime bool
	// VerificationTime overrides the current time; ignored if
	// IgnoreTime is set.
	VerificationTime time.Time
	// AllowMissingAKIAtDepth marks chain depths (0 = leaf) at which a
	// missing Authority Key Identifier is expected, as on some AMD ASK
	// intermediates. A missing AKI never fails VerifyChain at any
	// depth; this map only silences the trace log line that the
	// IgnoreTime (pairwise) path emits for it.
	AllowMissingAKIAtDepth map[int]bool
}

// VerifyChain verifies certs (leaf first) up to one of the roots in
// cas, applying CRL and time checks per opts. It deliberately does not
// use x509.Certificate.Verify's own expiry check when IgnoreTime is
// set, since the standard library offers no flag equivalent to
// OpenSSL's X509_V_FLAG_NO_CHECK_TIME; instead it verifies signatures
// pairwise and skips the time window check.
func VerifyChain(certs []*x509.Certificate, cas []*x509.Certificate, opts ChainOptions) error {
	if len(certs) == 0 {
		return &errs.CertChainInvalid{Reason: "empty certificate chain", Depth: 0}
	}
	if len(cas) == 0 {
		return &errs.CertChainInvalid{Reason: "no trust anchors supplied", Depth: 0}
	}

	chain := append([]*x509.Certificate{}, certs...)
	// A chain that already contains its own root is fine; otherwise
	// append the first matching root so pairwise verification below
	// has something to terminate on.
	if !chainEndsAtAnchor(chain, cas) {
		anchor := findAnchor(chain[len(chain)-1], cas)
		if anchor == nil {
			return &errs.CertChainInvalid{Reason: "no trust anchor matches chain", Depth: len(chain) - 1}
		}
		chain = append(chain, anchor)
	}

	if opts.IgnoreTime {
		if err := verifyPairwiseSignatures(chain, opts); err != nil {
			return err
		}
	} else {
		if err := verifyWithStdlib(certs, cas, opts); err != nil {
			return err
		}
	}

	if opts.CRLMode != CRLCheckNone {
		if err := checkRevocation(chain, opts); err != nil {
			return err
		}
	}

	return nil
}

func chainEndsAtAnchor(chain []*x509.Certificate, cas []*x509.Certificate) bool {
	last := chain[len(chain)-1]
	for _, ca := range cas {
		if bytes.Equal(last.Raw, ca.Raw) {
			return true
		}
	}
	return false
}

func findAnchor(cert *x509.Certificate, cas []*x509.Certificate) *x509.Certificate {
	for _, ca := range cas {
		if bytes.Equal(cert.RawIssuer, ca.RawSubject) {
			return ca
		}
	}
	return nil
}

func verifyPairwiseSignatures(chain []*x509.Certificate, opts ChainOptions) error {
	for i := 0; i < len(chain)-1; i++ {
		if err := chain[i].CheckSignatureFrom(chain[i+1]); err != nil {
			return &errs.CertChainInvalid{Reason: fmt.Sprintf("signature check failed: %v", err), Depth: i}
		}
		if len(chain[i].AuthorityKeyId) == 0 && !opts.AllowMissingAKIAtDepth[i] {
			log.Tracef("certificate at depth %v has no Authority Key Identifier", i)
		}
	}
	// Root must be self-signed, or be accepted as a trust anchor as-is.
	return nil
}

func verifyWithStdlib(certs []*x509.Certificate, cas []*x509.Certificate, opts ChainOptions) error {
	leaf := certs[0]

	intermediates := x509.NewCertPool()
	for _, c := range certs[1:] {
		intermediates.AddCert(c)
	}

	roots := x509.NewCertPool()
	for _, ca := range cas {
		roots.AddCert(ca)
	}

	vopts := x509.VerifyOptions{
		Intermediates: intermediates,
		Roots:         roots,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}
	if !opts.VerificationTime.IsZero() {
		vopts.CurrentTime = opts.VerificationTime
	}

	if _, err := leaf.Verify(vopts); err != nil {
		return &errs.CertChainInvalid{Reason: err.Error(), Depth: 0}
	}
	return nil
}

func checkRevocation(chain []*x509.Certificate, opts ChainOptions) error {
	limit := 1
	if opts.CRLMode == CRLCheckAll {
		limit = len(chain) - 1
	}
	for i := 0; i < limit && i < len(chain)-1; i++ {
		cert := chain[i]
		issuer := chain[i+1]
		crl, ok := opts.CRLs[string(issuer.RawSubject)]
		if !ok {
			return &errs.CRLMissing{Issuer: issuer.Subject.String()}
		}
		if err := checkCertAgainstCRL(cert, issuer, crl, opts); err != nil {
			return err
		}
	}
	return nil
}

func checkCertAgainstCRL(cert, ca *x509.Certificate, crl *x509.RevocationList, opts ChainOptions) error {
	if crl.Issuer.String() != ca.Subject.String() {
		return &errs.CertChainInvalid{Reason: fmt.Sprintf("CRL issuer %v does not match CA subject %v", crl.Issuer, ca.Subject), Depth: -1}
	}
	if err := crl.CheckSignatureFrom(ca); err != nil {
		return &errs.SignatureInvalid{Which: "crl"}
	}
	if !opts.IgnoreTime {
		now := time.Now()
		if !opts.VerificationTime.IsZero() {
			now = opts.VerificationTime
		}
		if now.After(crl.NextUpdate) {
			return &errs.CertChainInvalid{Reason: fmt.Sprintf("CRL expired since %v", crl.NextUpdate), Depth: -1}
		}
	}
	if !bytes.Equal(crl.RawIssuer, cert.RawIssuer) {
		return &errs.CertChainInvalid{Reason: "CRL issuer does not match certificate issuer", Depth: -1}
	}
	for _, revoked := range crl.RevokedCertificateEntries {
		if cert.SerialNumber.Cmp(revoked.SerialNumber) == 0 {
			return &errs.CertChainInvalid{Reason: fmt.Sprintf("certificate revoked since %v", revoked.RevocationTime), Depth: -1}
		}
	}
	return nil
}

// CheckCN verifies a certificate's Subject Common Name equals cn.
func CheckCN(cert *x509.Certificate, cn string) error {
	if cert == nil {
		return errors.New("internal error: nil certificate")
	}
	if cert.Subject.CommonName != cn {
		return &errs.CertChainInvalid{Reason: fmt.Sprintf("unexpected CN %v, expected %v", cert.Subject.CommonName, cn), Depth: -1}
	}
	return nil
}
