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
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"
)

func namedCert(t *testing.T, serial int64, cn string) []byte {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(serial),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("failed to create certificate: %v", err)
	}
	return der
}

func pemBlock(der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

func TestParsePCKChainProcessor(t *testing.T) {
	var data []byte
	data = append(data, pemBlock(namedCert(t, 1, cnPCKCert))...)
	data = append(data, pemBlock(namedCert(t, 2, cnProcessorCA))...)
	data = append(data, pemBlock(namedCert(t, 3, cnRootCert))...)

	certs, err := ParsePCKChain(QECertDataTypePckChain, data)
	if err != nil {
		t.Fatalf("ParsePCKChain() error = %v", err)
	}
	if certs.PCK == nil || certs.Intermediate == nil || certs.Root == nil {
		t.Fatalf("ParsePCKChain() = %+v, missing certificate", certs)
	}
}

func TestParsePCKChainPlatform(t *testing.T) {
	var data []byte
	data = append(data, pemBlock(namedCert(t, 1, cnPCKCert))...)
	data = append(data, pemBlock(namedCert(t, 2, cnPlatformCA))...)
	data = append(data, pemBlock(namedCert(t, 3, cnRootCert))...)

	certs, err := ParsePCKChain(QECertDataTypePckChain, data)
	if err != nil {
		t.Fatalf("ParsePCKChain() error = %v", err)
	}
	if certs.PCK == nil || certs.Intermediate == nil || certs.Root == nil {
		t.Fatalf("ParsePCKChain() = %+v, missing certificate", certs)
	}
}

func TestParsePCKChainWrongCertDataType(t *testing.T) {
	if _, err := ParsePCKChain(0xffff, nil); err == nil {
		t.Fatal("expected error for unsupported cert data type")
	}
}

func TestParsePCKChainMissingCertificate(t *testing.T) {
	data := pemBlock(namedCert(t, 1, cnPCKCert))
	if _, err := ParsePCKChain(QECertDataTypePckChain, data); err == nil {
		t.Fatal("expected error when chain is missing intermediate/root")
	}
}
