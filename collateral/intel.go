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

package collateral

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net/url"

	"github.com/google/go-tdx-guest/pcs"

	"github.com/openattest/ccverify/errs"
)

// IntelCollateral bundles the Intel PCS documents and issuer chains
// needed to verify an SGX quote's PCK certificate and TCB status.
type IntelCollateral struct {
	TcbInfo                    []byte
	TcbInfoIntermediateCert    *x509.Certificate
	TcbInfoRootCert            *x509.Certificate
	QeIdentity                 []byte
	QeIdentityIntermediateCert *x509.Certificate
	QeIdentityRootCert         *x509.Certificate
	PckCrl                     *x509.RevocationList
	PckCrlIntermediateCert     *x509.Certificate
	PckCrlRootCert             *x509.Certificate
	RootCaCrl                  *x509.RevocationList
}

const sgxTcbInfoURLFmt = "https://api.trustedservices.intel.com/sgx/certification/v4/tcb?fmspc=%v"
const sgxQeIdentityURL = "https://api.trustedservices.intel.com/sgx/certification/v4/qe/identity"

// FetchIntelCollateral retrieves TCB info, QE identity, and the PCK CRL
// for the given FMSPC and CA type ("platform" or "processor") from
// Intel's Provisioning Certification Service.
func (c *Client) FetchIntelCollateral(ctx context.Context, fmspc, caType string) (*IntelCollateral, error) {
	tcbInfo, interTcb, rootTcb, err := c.fetchTcbInfo(ctx, fmspc)
	if err != nil {
		return nil, err
	}

	qeIdentity, interQe, rootQe, err := c.fetchQeIdentity(ctx)
	if err != nil {
		return nil, err
	}

	pckCrl, interPck, rootPck, err := c.fetchPckCrl(ctx, caType)
	if err != nil {
		return nil, err
	}

	rootCrl, err := c.fetchRootCrl(ctx, rootQe.CRLDistributionPoints)
	if err != nil {
		return nil, err
	}

	return &IntelCollateral{
		TcbInfo:                    tcbInfo,
		TcbInfoIntermediateCert:    interTcb,
		TcbInfoRootCert:            rootTcb,
		QeIdentity:                 qeIdentity,
		QeIdentityIntermediateCert: interQe,
		QeIdentityRootCert:         rootQe,
		PckCrl:                     pckCrl,
		PckCrlIntermediateCert:     interPck,
		PckCrlRootCert:             rootPck,
		RootCaCrl:                  rootCrl,
	}, nil
}

// fetchRootCrl retrieves the Intel SGX Root CA's own CRL from the
// distribution points listed on the QE identity issuer chain's root
// certificate, trying each in turn.
func (c *Client) fetchRootCrl(ctx context.Context, urls []string) (*x509.RevocationList, error) {
	if len(urls) == 0 {
		return nil, &errs.CRLMissing{Issuer: "Intel SGX Root CA"}
	}
	var lastErr error
	for _, u := range urls {
		resp, err := c.FetchOne(ctx, u)
		if err != nil {
			lastErr = err
			continue
		}
		crl, err := x509.ParseRevocationList(resp.Body)
		if err != nil {
			lastErr = &errs.MalformedEvidence{Reason: "invalid root CA CRL: " + err.Error()}
			continue
		}
		return crl, nil
	}
	return nil, lastErr
}

func (c *Client) fetchTcbInfo(ctx context.Context, fmspc string) ([]byte, *x509.Certificate, *x509.Certificate, error) {
	tcbInfoURL := fmt.Sprintf(sgxTcbInfoURLFmt, fmspc)
	resp, err := c.FetchOne(ctx, tcbInfoURL)
	if err != nil {
		return nil, nil, nil, err
	}
	inter, root, err := extractChainFromHeader(resp.Header, pcs.TcbInfoIssuerChainPhrase)
	if err != nil {
		return nil, nil, nil, &errs.TCBParseError{Reason: err.Error()}
	}
	return resp.Body, inter, root, nil
}

func (c *Client) fetchQeIdentity(ctx context.Context) ([]byte, *x509.Certificate, *x509.Certificate, error) {
	resp, err := c.FetchOne(ctx, sgxQeIdentityURL)
	if err != nil {
		return nil, nil, nil, err
	}
	inter, root, err := extractChainFromHeader(resp.Header, pcs.SgxQeIdentityIssuerChainPhrase)
	if err != nil {
		return nil, nil, nil, &errs.QEIdentityMismatch{Field: "issuer_chain"}
	}
	return resp.Body, inter, root, nil
}

func (c *Client) fetchPckCrl(ctx context.Context, caType string) (*x509.RevocationList, *x509.Certificate, *x509.Certificate, error) {
	pckCrlURL := pcs.PckCrlURL(caType)
	resp, err := c.FetchOne(ctx, pckCrlURL)
	if err != nil {
		return nil, nil, nil, err
	}
	inter, root, err := extractChainFromHeader(resp.Header, pcs.SgxPckCrlIssuerChainPhrase)
	if err != nil {
		return nil, nil, nil, &errs.CRLMissing{Issuer: caType}
	}
	crl, err := x509.ParseRevocationList(resp.Body)
	if err != nil {
		return nil, nil, nil, &errs.MalformedEvidence{Reason: "invalid PCK CRL: " + err.Error()}
	}
	return crl, inter, root, nil
}

// extractChainFromHeader decodes the two-certificate PEM issuer chain
// Intel's PCS returns in a response header, URL-escaped.
func extractChainFromHeader(header map[string][]string, phrase string) (*x509.Certificate, *x509.Certificate, error) {
	h, ok := header[phrase]
	if !ok || len(h) != 1 {
		return nil, nil, fmt.Errorf("missing or malformed issuer chain header %v", phrase)
	}

	chain, err := url.QueryUnescape(h[0])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode issuer chain: %w", err)
	}

	block, rem := pem.Decode([]byte(chain))
	if block == nil {
		return nil, nil, fmt.Errorf("failed to decode PEM certificate from %v", phrase)
	}
	intermediate, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse intermediate certificate: %w", err)
	}

	block, rem = pem.Decode(rem)
	if block == nil {
		return nil, nil, fmt.Errorf("failed to decode root PEM certificate from %v", phrase)
	}
	root, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse root certificate: %w", err)
	}

	return intermediate, root, nil
}
