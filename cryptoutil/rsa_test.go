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
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"testing"
)

func TestVerifyRSASignaturePKCS1v15(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	hash := sha256.Sum256([]byte("uvm endorsement payload"))
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, hash[:])
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}

	if err := VerifyRSASignature(&key.PublicKey, crypto.SHA256, hash[:], sig, RSAPKCS1v15); err != nil {
		t.Fatalf("VerifyRSASignature() error = %v", err)
	}
}

func TestVerifyRSASignaturePSS(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	hash := sha256.Sum256([]byte("uvm endorsement payload"))
	sig, err := rsa.SignPSS(rand.Reader, key, crypto.SHA256, hash[:], nil)
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}

	if err := VerifyRSASignature(&key.PublicKey, crypto.SHA256, hash[:], sig, RSAPSS); err != nil {
		t.Fatalf("VerifyRSASignature() error = %v", err)
	}
}

func TestVerifyRSASignatureTampered(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	hash := sha256.Sum256([]byte("uvm endorsement payload"))
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, hash[:])
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}
	sig[0] ^= 0xff

	if err := VerifyRSASignature(&key.PublicKey, crypto.SHA256, hash[:], sig, RSAPKCS1v15); err == nil {
		t.Fatal("expected error for tampered signature")
	}
}
