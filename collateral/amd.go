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
	"fmt"

	"github.com/google/go-sev-guest/abi"
	"github.com/google/go-sev-guest/kds"

	"github.com/openattest/ccverify/errs"
)

// AmdCollateral bundles the VCEK leaf certificate, its issuing chain
// (ASK, ARK), and the ASK's VCEK revocation list, all fetched from
// AMD's Key Distribution Service.
type AmdCollateral struct {
	Vcek *x509.Certificate
	Ask  *x509.Certificate
	Ark  *x509.Certificate
	Crl  *x509.RevocationList
}

// vcekCrlURLFmt mirrors kds.ProductCertChainURL's "cert_chain" suffix
// with "crl"; the go-sev-guest kds package has no exported helper for
// this endpoint.
const vcekCrlURLFmt = "https://kdsintf.amd.com/vcek/v1/%v/crl"

// FetchAmdCollateral retrieves the VCEK certificate for the given
// product, chip ID, and reported TCB version, along with the
// product's ASK/ARK issuer chain and the ASK's VCEK CRL.
func (c *Client) FetchAmdCollateral(ctx context.Context, product string, hwid []byte, tcb kds.TCBVersion) (*AmdCollateral, error) {
	vcekURL := kds.VCEKCertURL(product, hwid, tcb)
	vcekResp, err := c.FetchOne(ctx, vcekURL)
	if err != nil {
		return nil, err
	}
	vcek, err := x509.ParseCertificate(vcekResp.Body)
	if err != nil {
		return nil, &errs.MalformedEvidence{Reason: "invalid VCEK certificate: " + err.Error()}
	}

	chainURL := kds.ProductCertChainURL(abi.VcekReportSigner, product)
	chainResp, err := c.FetchOne(ctx, chainURL)
	if err != nil {
		return nil, err
	}
	askDer, arkDer, err := kds.ParseProductCertChain(chainResp.Body)
	if err != nil {
		return nil, &errs.CertChainInvalid{Reason: err.Error(), Depth: 1}
	}
	ask, err := x509.ParseCertificate(askDer)
	if err != nil {
		return nil, &errs.CertChainInvalid{Reason: "invalid ASK: " + err.Error(), Depth: 1}
	}
	ark, err := x509.ParseCertificate(arkDer)
	if err != nil {
		return nil, &errs.CertChainInvalid{Reason: "invalid ARK: " + err.Error(), Depth: 2}
	}

	crl, err := c.fetchVcekCrl(ctx, product)
	if err != nil {
		return nil, err
	}

	return &AmdCollateral{Vcek: vcek, Ask: ask, Ark: ark, Crl: crl}, nil
}

// fetchVcekCrl retrieves the product's VCEK revocation list, issued by
// the ASK.
func (c *Client) fetchVcekCrl(ctx context.Context, product string) (*x509.RevocationList, error) {
	resp, err := c.FetchOne(ctx, fmt.Sprintf(vcekCrlURLFmt, product))
	if err != nil {
		return nil, err
	}
	crl, err := x509.ParseRevocationList(resp.Body)
	if err != nil {
		return nil, &errs.MalformedEvidence{Reason: "invalid VCEK CRL: " + err.Error()}
	}
	return crl, nil
}

// VcekExtensions extracts the TCB and product fields embedded in a
// VCEK certificate's KDS-defined x509v3 extensions.
func VcekExtensions(cert *x509.Certificate) (*kds.Extensions, error) {
	exts, err := kds.VcekCertificateExtensions(cert)
	if err != nil {
		return nil, &errs.TCBParseError{Reason: err.Error()}
	}
	return exts, nil
}
