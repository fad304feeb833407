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

package orchestrator

import (
	"context"
	"crypto/x509"

	"github.com/google/go-sev-guest/kds"

	"github.com/openattest/ccverify/aciverify"
	"github.com/openattest/ccverify/claims"
	"github.com/openattest/ccverify/codec"
	"github.com/openattest/ccverify/collateral"
	"github.com/openattest/ccverify/errs"
	"github.com/openattest/ccverify/oeverify"
	"github.com/openattest/ccverify/sgxverify"
	"github.com/openattest/ccverify/snpverify"
)

// defaultAmdProduct is used when fresh AMD KDS collateral is requested
// without the SEV-SNP report itself carrying a product name; "Milan"
// is the most common SEV-SNP generation in the field.
const defaultAmdProduct = "Milan"

// Verify dispatches env to the verifier package matching its Source,
// mirroring the teacher's switch over measurement type in
// verifier.Verify.
func Verify(ctx context.Context, env claims.Envelope, opts claims.Options, rootCA *x509.Certificate) (claims.Claims, error) {
	chainOpts := chainOptions(opts)

	switch env.Source {
	case claims.SourceSGX:
		coll, err := sgxCollateral(ctx, env, opts)
		if err != nil {
			return claims.Claims{}, err
		}
		c, err := sgxverify.Verify(env.Evidence, coll, rootCA, chainOpts)
		if err != nil {
			return claims.Claims{}, err
		}
		return claims.Claims{Sgx: c}, nil

	case claims.SourceSevSnp:
		coll, err := amdCollateral(ctx, env, opts)
		if err != nil {
			return claims.Claims{}, err
		}
		c, err := snpverify.Verify(env.Evidence, coll, rootCA, chainOpts)
		if err != nil {
			return claims.Claims{}, err
		}
		return claims.Claims{SevSnp: c}, nil

	case claims.SourceOpenEnclave:
		c, err := oeverify.Verify(env.Evidence, env.Endorsements, rootCA, chainOpts)
		if err != nil {
			return claims.Claims{}, err
		}
		return claims.Claims{OpenEnclave: c}, nil

	case claims.SourceACI:
		coll, err := amdCollateral(ctx, env, opts)
		if err != nil {
			return claims.Claims{}, err
		}
		c, err := aciverify.Verify(env.Evidence, env.UvmEndorsements, coll, rootCA, chainOpts)
		if err != nil {
			return claims.Claims{}, err
		}
		return claims.Claims{Aci: c}, nil

	default:
		return claims.Claims{}, &errs.MalformedEvidence{Reason: "unknown attestation source " + string(env.Source)}
	}
}

// sgxCollateral builds an sgxverify.Collateral either from the
// envelope's supplied endorsements bundle, or by fetching it fresh
// from the Intel PCS when the envelope carries none or
// Options.FreshEndorsements is set.
func sgxCollateral(ctx context.Context, env claims.Envelope, opts claims.Options) (*sgxverify.Collateral, error) {
	if len(env.Endorsements) > 0 && !opts.FreshEndorsements {
		bundle, err := collateral.UnmarshalSgxBundle(env.Endorsements)
		if err != nil {
			return nil, err
		}
		return sgxCollateralFromBundle(bundle)
	}

	quote, err := sgxverify.DecodeQuote(env.Evidence)
	if err != nil {
		return nil, err
	}
	pckChain, err := sgxverify.ParsePCKChain(quote.Signature.QECertDataType, quote.Signature.QECertData)
	if err != nil {
		return nil, err
	}
	ext, err := sgxverify.ParsePCKExtensions(pckChain.PCK)
	if err != nil {
		return nil, err
	}
	caType := ext.CaType()

	client := &collateral.Client{}
	ic, err := client.FetchIntelCollateral(ctx, ext.Fmspc, caType)
	if err != nil {
		return nil, err
	}

	return &sgxverify.Collateral{
		TcbInfo: ic.TcbInfo,
		TcbInfoChain: &sgxverify.CollateralIssuer{
			Cert: ic.TcbInfoIntermediateCert,
			CA:   ic.TcbInfoRootCert,
		},
		QeIdentity: ic.QeIdentity,
		QeIdentityChain: &sgxverify.CollateralIssuer{
			Cert: ic.QeIdentityIntermediateCert,
			CA:   ic.QeIdentityRootCert,
		},
		PckCrl:  ic.PckCrl,
		RootCrl: ic.RootCaCrl,
	}, nil
}

func sgxCollateralFromBundle(b *collateral.SgxBundle) (*sgxverify.Collateral, error) {
	pckCrl, err := codec.SplitCRL(b.PckCrl)
	if err != nil {
		return nil, err
	}
	rootCrl, err := codec.SplitCRL(b.RootCrl)
	if err != nil {
		return nil, err
	}
	tcbInfoCert, err := parseOneCert(b.TcbInfoIssuerCert)
	if err != nil {
		return nil, err
	}
	tcbInfoRoot, err := parseOneCert(b.TcbInfoIssuerRootCert)
	if err != nil {
		return nil, err
	}
	qeIdentityCert, err := parseOneCert(b.QeIdentityIssuerCert)
	if err != nil {
		return nil, err
	}
	qeIdentityRoot, err := parseOneCert(b.QeIdentityIssuerRootCert)
	if err != nil {
		return nil, err
	}
	return &sgxverify.Collateral{
		TcbInfo:         b.TcbInfo,
		TcbInfoChain:    &sgxverify.CollateralIssuer{Cert: tcbInfoCert, CA: tcbInfoRoot},
		QeIdentity:      b.QeIdentity,
		QeIdentityChain: &sgxverify.CollateralIssuer{Cert: qeIdentityCert, CA: qeIdentityRoot},
		PckCrl:          pckCrl,
		RootCrl:         rootCrl,
	}, nil
}

// amdCollateral builds an snpverify.Collateral either from the
// envelope's supplied endorsements bundle, or by fetching the VCEK/ASK/ARK
// chain fresh from the AMD KDS.
func amdCollateral(ctx context.Context, env claims.Envelope, opts claims.Options) (*snpverify.Collateral, error) {
	if len(env.Endorsements) > 0 && !opts.FreshEndorsements {
		bundle, err := collateral.UnmarshalAmdBundle(env.Endorsements)
		if err != nil {
			return nil, err
		}
		vcek, err := parseOneCert(bundle.Vcek)
		if err != nil {
			return nil, err
		}
		ask, err := parseOneCert(bundle.Ask)
		if err != nil {
			return nil, err
		}
		ark, err := parseOneCert(bundle.Ark)
		if err != nil {
			return nil, err
		}
		crl, err := codec.SplitCRL(bundle.Crl)
		if err != nil {
			return nil, err
		}
		return &snpverify.Collateral{Vcek: vcek, Ask: ask, Ark: ark, Crl: crl}, nil
	}

	report, err := snpverify.DecodeReport(env.Evidence)
	if err != nil {
		return nil, err
	}

	client := &collateral.Client{}
	ac, err := client.FetchAmdCollateral(ctx, defaultAmdProduct, report.ChipID[:], kds.TCBVersion(report.ReportedTcb))
	if err != nil {
		return nil, err
	}
	return &snpverify.Collateral{Vcek: ac.Vcek, Ask: ac.Ask, Ark: ac.Ark, Crl: ac.Crl}, nil
}

func parseOneCert(data []byte) (*x509.Certificate, error) {
	certs, err := codec.SplitChain(data)
	if err != nil {
		return nil, err
	}
	return certs[0], nil
}
