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
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"
)

type testChain struct {
	root     *x509.Certificate
	rootKey  *ecdsa.PrivateKey
	leaf     *x509.Certificate
	leafKey  *ecdsa.PrivateKey
}

func buildTestChain(t *testing.T) testChain {
	t.Helper()

	rootKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate root key: %v", err)
	}
	rootTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Test Root CA"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		SubjectKeyId:          []byte{0xaa},
	}
	rootDER, err := x509.CreateCertificate(rand.Reader, rootTmpl, rootTmpl, &rootKey.PublicKey, rootKey)
	if err != nil {
		t.Fatalf("failed to create root cert: %v", err)
	}
	root, err := x509.ParseCertificate(rootDER)
	if err != nil {
		t.Fatalf("failed to parse root cert: %v", err)
	}

	leafKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate leaf key: %v", err)
	}
	leafTmpl := &x509.Certificate{
		SerialNumber:   big.NewInt(2),
		Subject:        pkix.Name{CommonName: "Test Leaf"},
		NotBefore:      time.Now().Add(-time.Hour),
		NotAfter:       time.Now().Add(time.Hour),
		AuthorityKeyId: root.SubjectKeyId,
	}
	leafDER, err := x509.CreateCertificate(rand.Reader, leafTmpl, root, &leafKey.PublicKey, rootKey)
	if err != nil {
		t.Fatalf("failed to create leaf cert: %v", err)
	}
	leaf, err := x509.ParseCertificate(leafDER)
	if err != nil {
		t.Fatalf("failed to parse leaf cert: %v", err)
	}

	return testChain{root: root, rootKey: rootKey, leaf: leaf, leafKey: leafKey}
}

func TestVerifyChainSuccess(t *testing.T) {
	tc := buildTestChain(t)

	err := VerifyChain([]*x509.Certificate{tc.leaf}, []*x509.Certificate{tc.root}, ChainOptions{})
	if err != nil {
		t.Fatalf("VerifyChain() error = %v", err)
	}
}

func TestVerifyChainNoMatchingAnchor(t *testing.T) {
	tc := buildTestChain(t)
	other := buildTestChain(t)

	err := VerifyChain([]*x509.Certificate{tc.leaf}, []*x509.Certificate{other.root}, ChainOptions{})
	if err == nil {
		t.Fatal("expected error for non-matching anchor")
	}
}

func TestVerifyChainEmptyInputs(t *testing.T) {
	tc := buildTestChain(t)

	if err := VerifyChain(nil, []*x509.Certificate{tc.root}, ChainOptions{}); err == nil {
		t.Fatal("expected error for empty cert chain")
	}
	if err := VerifyChain([]*x509.Certificate{tc.leaf}, nil, ChainOptions{}); err == nil {
		t.Fatal("expected error for empty trust anchors")
	}
}

func TestVerifyChainIgnoreTimeExpiredLeaf(t *testing.T) {
	tc := buildTestChain(t)

	// Verifying against a verification time far past NotAfter would fail
	// the stdlib path; IgnoreTime skips the window check entirely and
	// falls back to pairwise signature verification only.
	opts := ChainOptions{IgnoreTime: true, VerificationTime: time.Now().Add(48 * time.Hour)}
	if err := VerifyChain([]*x509.Certificate{tc.leaf}, []*x509.Certificate{tc.root}, opts); err != nil {
		t.Fatalf("VerifyChain() error = %v", err)
	}
}

func TestVerifyChainRevokedCertificate(t *testing.T) {
	tc := buildTestChain(t)

	crlDER, err := x509.CreateRevocationList(rand.Reader, &x509.RevocationList{
		Number:     big.NewInt(1),
		ThisUpdate: time.Now().Add(-time.Hour),
		NextUpdate: time.Now().Add(time.Hour),
		RevokedCertificateEntries: []x509.RevocationListEntry{
			{SerialNumber: tc.leaf.SerialNumber, RevocationTime: time.Now().Add(-time.Minute)},
		},
	}, tc.root, tc.rootKey)
	if err != nil {
		t.Fatalf("failed to create CRL: %v", err)
	}
	crl, err := x509.ParseRevocationList(crlDER)
	if err != nil {
		t.Fatalf("failed to parse CRL: %v", err)
	}

	opts := ChainOptions{
		CRLMode: CRLCheck,
		CRLs:    map[string]*x509.RevocationList{string(tc.root.RawSubject): crl},
	}
	if err := VerifyChain([]*x509.Certificate{tc.leaf}, []*x509.Certificate{tc.root}, opts); err == nil {
		t.Fatal("expected error for revoked certificate")
	}
}

func TestVerifyChainMissingCRL(t *testing.T) {
	tc := buildTestChain(t)

	opts := ChainOptions{CRLMode: CRLCheck}
	if err := VerifyChain([]*x509.Certificate{tc.leaf}, []*x509.Certificate{tc.root}, opts); err == nil {
		t.Fatal("expected error for missing CRL")
	}
}

func TestCheckCN(t *testing.T) {
	tc := buildTestChain(t)

	if err := CheckCN(tc.leaf, "Test Leaf"); err != nil {
		t.Errorf("CheckCN() error = %v", err)
	}
	if err := CheckCN(tc.leaf, "Wrong CN"); err == nil {
		t.Error("expected error for mismatched CN")
	}
}
