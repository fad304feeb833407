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

package claims

import (
	"bytes"
	"testing"
)

func TestEnvelopeCBORRoundTrip(t *testing.T) {
	want := Envelope{
		Source:          SourceSevSnp,
		Evidence:        []byte{0x01, 0x02, 0x03},
		Endorsements:    []byte{0x04, 0x05},
		UvmEndorsements: []byte{0x06},
	}

	raw, err := want.MarshalCBOR()
	if err != nil {
		t.Fatalf("MarshalCBOR() error = %v", err)
	}

	got, err := UnmarshalEnvelopeCBOR(raw)
	if err != nil {
		t.Fatalf("UnmarshalEnvelopeCBOR() error = %v", err)
	}

	if got.Source != want.Source {
		t.Errorf("Source = %v, want %v", got.Source, want.Source)
	}
	if !bytes.Equal(got.Evidence, want.Evidence) {
		t.Errorf("Evidence = %x, want %x", got.Evidence, want.Evidence)
	}
	if !bytes.Equal(got.Endorsements, want.Endorsements) {
		t.Errorf("Endorsements = %x, want %x", got.Endorsements, want.Endorsements)
	}
	if !bytes.Equal(got.UvmEndorsements, want.UvmEndorsements) {
		t.Errorf("UvmEndorsements = %x, want %x", got.UvmEndorsements, want.UvmEndorsements)
	}
}

func TestEnvelopeCBOROmitsEmptyFields(t *testing.T) {
	env := Envelope{Source: SourceSGX, Evidence: []byte{0xaa}}

	raw, err := env.MarshalCBOR()
	if err != nil {
		t.Fatalf("MarshalCBOR() error = %v", err)
	}

	// A minimal envelope with no endorsements should encode to a short
	// map with only the two required keys, not four.
	if len(raw) == 0 {
		t.Fatal("MarshalCBOR() produced empty output")
	}

	got, err := UnmarshalEnvelopeCBOR(raw)
	if err != nil {
		t.Fatalf("UnmarshalEnvelopeCBOR() error = %v", err)
	}
	if got.Endorsements != nil {
		t.Errorf("Endorsements = %x, want nil", got.Endorsements)
	}
	if got.UvmEndorsements != nil {
		t.Errorf("UvmEndorsements = %x, want nil", got.UvmEndorsements)
	}
}

func TestUnmarshalEnvelopeCBORInvalid(t *testing.T) {
	if _, err := UnmarshalEnvelopeCBOR([]byte{0xff, 0xff}); err == nil {
		t.Fatal("expected error for malformed CBOR input")
	}
}

func TestClaimsCBORRoundTrip(t *testing.T) {
	want := Claims{
		SevSnp: &SevSnpClaims{
			GuestSvn:    5,
			Measurement: []byte{0xee, 0xee},
		},
	}

	raw, err := want.MarshalCBOR()
	if err != nil {
		t.Fatalf("MarshalCBOR() error = %v", err)
	}

	got, err := UnmarshalClaimsCBOR(raw)
	if err != nil {
		t.Fatalf("UnmarshalClaimsCBOR() error = %v", err)
	}
	if got.SevSnp == nil {
		t.Fatal("SevSnp = nil, want populated claims")
	}
	if got.SevSnp.GuestSvn != want.SevSnp.GuestSvn {
		t.Errorf("GuestSvn = %v, want %v", got.SevSnp.GuestSvn, want.SevSnp.GuestSvn)
	}
	if got.Sgx != nil {
		t.Errorf("Sgx = %+v, want nil", got.Sgx)
	}
}
