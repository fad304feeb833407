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

import "github.com/fxamacker/cbor/v2"

// MarshalCBOR encodes an Envelope using its integer-keyed cbor tags,
// the compact wire form used when evidence is exchanged over
// bandwidth-constrained channels (CoAP, UVM attestation agents)
// instead of JSON.
func (e Envelope) MarshalCBOR() ([]byte, error) {
	type envelopeAlias Envelope
	return cbor.Marshal(envelopeAlias(e))
}

// UnmarshalEnvelopeCBOR decodes a CBOR-encoded Envelope.
func UnmarshalEnvelopeCBOR(data []byte) (Envelope, error) {
	var e Envelope
	if err := cbor.Unmarshal(data, &e); err != nil {
		return Envelope{}, err
	}
	return e, nil
}

// MarshalCBOR encodes Claims using its integer-keyed cbor tags.
func (c Claims) MarshalCBOR() ([]byte, error) {
	type claimsAlias Claims
	return cbor.Marshal(claimsAlias(c))
}

// UnmarshalClaimsCBOR decodes CBOR-encoded Claims.
func UnmarshalClaimsCBOR(data []byte) (Claims, error) {
	var c Claims
	if err := cbor.Unmarshal(data, &c); err != nil {
		return Claims{}, err
	}
	return c, nil
}
