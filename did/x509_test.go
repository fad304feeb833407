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

package did

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/base64"
	"math/big"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	d, err := Parse("did:x509:0:sha256:abc123::eku:1.3.6.1.4.1.311.76.59.1.2")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if d.Version != "0" {
		t.Errorf("Version = %v, want 0", d.Version)
	}
	if d.HashAlg != "sha256" {
		t.Errorf("HashAlg = %v, want sha256", d.HashAlg)
	}
	if d.HashB64 != "abc123" {
		t.Errorf("HashB64 = %v, want abc123", d.HashB64)
	}
	if len(d.Policies) != 1 || d.Policies[0].Name != "eku" || d.Policies[0].Value != "1.3.6.1.4.1.311.76.59.1.2" {
		t.Errorf("Policies = %+v", d.Policies)
	}
}

func TestParseNoPolicies(t *testing.T) {
	d, err := Parse("did:x509:0:sha256:abc123")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(d.Policies) != 0 {
		t.Errorf("Policies = %+v, want none", d.Policies)
	}
}

func TestParseInvalid(t *testing.T) {
	if _, err := Parse("not-a-did"); err == nil {
		t.Fatal("expected error for non-did:x509 identifier")
	}
	if _, err := Parse("did:x509:0"); err == nil {
		t.Fatal("expected error for malformed did:x509 identifier")
	}
}

func selfSignedRSACert(t *testing.T, serial int64, ekus []asn1.ObjectIdentifier) *x509.Certificate {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:       big.NewInt(serial),
		Subject:            pkix.Name{CommonName: "test"},
		NotBefore:          time.Now().Add(-time.Hour),
		NotAfter:           time.Now().Add(time.Hour),
		UnknownExtKeyUsage: ekus,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("failed to create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("failed to parse certificate: %v", err)
	}
	return cert
}

func fingerprint(cert *x509.Certificate) string {
	sum := sha256.Sum256(cert.Raw)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func TestMatchesChainCert(t *testing.T) {
	cert := selfSignedRSACert(t, 1, nil)
	d := &DID{Raw: "did:x509:0:sha256:" + fingerprint(cert), HashAlg: "sha256", HashB64: fingerprint(cert)}

	matched, err := d.MatchesChainCert([]*x509.Certificate{cert})
	if err != nil {
		t.Fatalf("MatchesChainCert() error = %v", err)
	}
	if matched != cert {
		t.Error("expected matched certificate to be the input certificate")
	}
}

func TestMatchesChainCertNoMatch(t *testing.T) {
	cert := selfSignedRSACert(t, 1, nil)
	d := &DID{Raw: "did:x509:0:sha256:deadbeef", HashAlg: "sha256", HashB64: "deadbeef"}

	if _, err := d.MatchesChainCert([]*x509.Certificate{cert}); err == nil {
		t.Fatal("expected error when no certificate matches")
	}
}

func TestMatchesChainCertUnsupportedHashAlg(t *testing.T) {
	cert := selfSignedRSACert(t, 1, nil)
	d := &DID{Raw: "did:x509:0:sha384:abc", HashAlg: "sha384", HashB64: "abc"}

	if _, err := d.MatchesChainCert([]*x509.Certificate{cert}); err == nil {
		t.Fatal("expected error for unsupported hash algorithm")
	}
}

func TestCheckPoliciesEKU(t *testing.T) {
	oid := asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 311, 76, 59, 1, 2}
	cert := selfSignedRSACert(t, 1, []asn1.ObjectIdentifier{oid})
	d := &DID{Raw: "did:x509:0:sha256:abc", Policies: []Policy{{Name: "eku", Value: "1.3.6.1.4.1.311.76.59.1.2"}}}

	if err := d.CheckPolicies(cert); err != nil {
		t.Fatalf("CheckPolicies() error = %v", err)
	}
}

func TestCheckPoliciesEKUMissing(t *testing.T) {
	cert := selfSignedRSACert(t, 1, nil)
	d := &DID{Raw: "did:x509:0:sha256:abc", Policies: []Policy{{Name: "eku", Value: "1.3.6.1.4.1.311.76.59.1.2"}}}

	if err := d.CheckPolicies(cert); err == nil {
		t.Fatal("expected error for missing EKU")
	}
}

func TestCheckPoliciesUnsupported(t *testing.T) {
	cert := selfSignedRSACert(t, 1, nil)
	d := &DID{Raw: "did:x509:0:sha256:abc", Policies: []Policy{{Name: "san", Value: "example.com"}}}

	if err := d.CheckPolicies(cert); err == nil {
		t.Fatal("expected error for unsupported policy type")
	}
}
