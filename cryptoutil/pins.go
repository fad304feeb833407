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

package cryptoutil

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"

	"github.com/openattest/ccverify/errs"
)

// IntelSGXRootPublicKeyPEM is Intel's SGX Provisioning Certification
// root public key. It is pinned independently of whatever trust
// anchor a caller supplies, so an Options.RootCACertificate override
// can never substitute a different issuer for the real Intel root.
const IntelSGXRootPublicKeyPEM = `-----BEGIN PUBLIC KEY-----
MFkwEwYHKoZIzj0CAQYIKoZIzj0DAQcDQgAEC6nEwMDIYZOj/iPWsCzaEKi71OiO
SLRFhWGjbnBVJfVnkY4u3IjkDYYL0MxO4mqsyYjlBalTVYxFP2sJBK5zlA==
-----END PUBLIC KEY-----
`

// AMDMilanRootPublicKeyPEM is AMD's Milan SEV-SNP root signing key
// (from https://developer.amd.com/sev/), pinned the same way.
const AMDMilanRootPublicKeyPEM = `-----BEGIN PUBLIC KEY-----
MIICIjANBgkqhkiG9w0BAQEFAAOCAg8AMIICCgKCAgEA0Ld52RJOdeiJlqK2JdsV
mD7FktuotWwX1fNgW41XY9Xz1HEhSUmhLz9Cu9DHRlvgJSNxbeYYsnJfvyjx1MfU
0V5tkKiU1EesNFta1kTA0szNisdYc9isqk7mXT5+KfGRbfc4V/9zRIcE8jlHN61S
1ju8X93+6dxDUrG2SzxqJ4BhqyYmUDruPXJSX4vUc01P7j98MpqOS95rORdGHeI5
2Naz5m2B+O+vjsC060d37jY9LFeuOP4Meri8qgfi2S5kKqg/aF6aPtuAZQVR7u3K
FYXP59XmJgtcog05gmI0T/OitLhuzVvpZcLph0odh/1IPXqx3+MnjD97A7fXpqGd
/y8KxX7jksTEzAOgbKAeam3lm+3yKIcTYMlsRMXPcjNbIvmsBykD//xSniusuHBk
gnlENEWx1UcbQQrs+gVDkuVPhsnzIRNgYvM48Y+7LGiJYnrmE8xcrexekBxrva2V
9TJQqnN3Q53kt5viQi3+gCfmkwC0F0tirIZbLkXPrPwzZ0M9eNxhIySb2npJfgnq
z55I0u33wh4r0ZNQeTGfw03MBUtyuzGesGkcw+loqMaq1qR4tjGbPYxCvpCq7+Og
pCCoMNit2uLo9M18fHz10lOMT8nWAUvRZFzteXCm+7PHdYPlmQwUw3LvenJ/ILXo
QPHfbkH0CyPfhl1jWhJFZasCAwEAAQ==
-----END PUBLIC KEY-----
`

var (
	intelSGXRootPublicKey crypto.PublicKey
	amdMilanRootPublicKey crypto.PublicKey
)

func init() {
	intelSGXRootPublicKey = mustParsePublicKeyPEM(IntelSGXRootPublicKeyPEM)
	amdMilanRootPublicKey = mustParsePublicKeyPEM(AMDMilanRootPublicKeyPEM)
}

func mustParsePublicKeyPEM(pemStr string) crypto.PublicKey {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		panic("cryptoutil: failed to decode pinned root public key PEM block")
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		panic("cryptoutil: failed to parse pinned root public key: " + err.Error())
	}
	return key
}

// CheckRootPublicKeyPin verifies that cert's public key equals the
// pinned reference key, regardless of how cert was obtained (a
// filesystem-configured trust anchor or a per-request override). This
// is independent of, and in addition to, the certificate chain
// verification against that same trust anchor: it stops a caller from
// substituting a different, but still internally self-consistent,
// root for the real platform root.
func CheckRootPublicKeyPin(cert *x509.Certificate, pinned crypto.PublicKey, which string) error {
	equal, ok := cert.PublicKey.(interface{ Equal(crypto.PublicKey) bool })
	if !ok {
		return &errs.PublicKeyMismatch{Which: which}
	}
	if !equal.Equal(pinned) {
		return &errs.PublicKeyMismatch{Which: which}
	}
	return nil
}

// CheckIntelSGXRootPin verifies cert's public key against the pinned
// Intel SGX Provisioning Certification root key.
func CheckIntelSGXRootPin(cert *x509.Certificate) error {
	return CheckRootPublicKeyPin(cert, intelSGXRootPublicKey, "sgx_root")
}

// CheckAMDMilanRootPin verifies cert's public key against the pinned
// AMD Milan root signing key.
func CheckAMDMilanRootPin(cert *x509.Certificate) error {
	return CheckRootPublicKeyPin(cert, amdMilanRootPublicKey, "snp_root")
}
