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
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/openattest/ccverify/claims"
)

func selfSignedRootPEM(t *testing.T) []byte {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "Test Root"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("failed to create certificate: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

func awaitTerminal(t *testing.T, o *Orchestrator, id RequestID) (*Result, State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		result, state, err := o.Result(id)
		if err != nil {
			t.Fatalf("Result() error = %v", err)
		}
		if state == StateComplete || state == StateFailed {
			return result, state
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("request did not reach a terminal state in time")
	return nil, ""
}

func TestResultUnknownRequest(t *testing.T) {
	o := New(Config{})
	if _, _, err := o.Result(RequestID{}); err == nil {
		t.Fatal("expected error for unknown request id")
	}
}

func TestSubmitNoRootCAConfigured(t *testing.T) {
	o := New(Config{})
	env := claims.Envelope{Source: claims.SourceSGX, Evidence: []byte("evidence")}

	id, err := o.Submit(context.Background(), env, claims.Options{})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	result, state := awaitTerminal(t, o, id)
	if state != StateFailed {
		t.Errorf("state = %v, want Failed", state)
	}
	if result.Err == nil {
		t.Error("expected error for missing root CA configuration")
	}
}

func TestSubmitUnknownSource(t *testing.T) {
	o := New(Config{})
	env := claims.Envelope{Source: claims.Source("bogus"), Evidence: []byte("evidence")}
	opts := claims.Options{RootCACertificate: selfSignedRootPEM(t)}

	id, err := o.Submit(context.Background(), env, opts)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	result, state := awaitTerminal(t, o, id)
	if state != StateFailed {
		t.Errorf("state = %v, want Failed", state)
	}
	if result.Err == nil {
		t.Error("expected error for unknown attestation source")
	}
}

func TestSubmitInvalidRootCAOverride(t *testing.T) {
	o := New(Config{})
	env := claims.Envelope{Source: claims.SourceSGX, Evidence: []byte("evidence")}
	opts := claims.Options{RootCACertificate: []byte("not a real cert")}

	id, err := o.Submit(context.Background(), env, opts)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	result, state := awaitTerminal(t, o, id)
	if state != StateFailed {
		t.Errorf("state = %v, want Failed", state)
	}
	if result.Err == nil {
		t.Error("expected error for invalid root CA override")
	}
}

func TestEraseRemovesRequest(t *testing.T) {
	o := New(Config{})
	env := claims.Envelope{Source: claims.SourceSGX, Evidence: []byte("evidence")}

	id, err := o.Submit(context.Background(), env, claims.Options{})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	awaitTerminal(t, o, id)

	o.Erase(id)

	if _, _, err := o.Result(id); err == nil {
		t.Fatal("expected error for erased request id")
	}
}

func TestSubmitPartialResultsOnError(t *testing.T) {
	o := New(Config{})
	env := claims.Envelope{Source: claims.SourceSGX, Evidence: []byte("evidence")}
	opts := claims.Options{Partial: true}

	id, err := o.Submit(context.Background(), env, opts)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	result, state := awaitTerminal(t, o, id)
	if state != StateFailed {
		t.Errorf("state = %v, want Failed", state)
	}
	if result.Err == nil {
		t.Error("expected error for missing root CA configuration")
	}
}
