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

package aciverify

// RootOfTrust is one built-in entry Azure UVM endorsements are
// checked against: the issuing DID, the container platform feed that
// DID is trusted for, and the minimum guest SVN required.
type RootOfTrust struct {
	DID  string
	Feed string
	Svn  string
}

// builtinRootsOfTrust are the UVM roots of trust Azure publishes for
// its confidential container platforms: AKS and ACI/ConfAKS.
var builtinRootsOfTrust = []RootOfTrust{
	{
		DID:  "did:x509:0:sha256:I__iuL25oXEVFdTP_aBLx_eT1RPHbCQ_ECBQfYZpt9s::eku:1.3.6.1.4.1.311.76.59.1.2",
		Feed: "ContainerPlat-AMD-UVM",
		Svn:  "0",
	},
	{
		DID:  "did:x509:0:sha256:I__iuL25oXEVFdTP_aBLx_eT1RPHbCQ_ECBQfYZpt9s::eku:1.3.6.1.4.1.311.76.59.1.5",
		Feed: "ConfAKS-AMD-UVM",
		Svn:  "0",
	},
}

// matchesRootOfTrust reports whether (did, feed, svn) satisfies one of
// the built-in roots of trust: an exact DID and feed match, with svn
// at least the root's minimum.
func matchesRootOfTrust(did, feed, svn string) bool {
	for _, r := range builtinRootsOfTrust {
		if r.DID != did || r.Feed != feed {
			continue
		}
		if compareSvn(svn, r.Svn) >= 0 {
			return true
		}
	}
	return false
}

// compareSvn compares two decimal SVN strings numerically, falling
// back to a string comparison if either fails to parse (both the
// current built-in entries are "0").
func compareSvn(a, b string) int {
	an, aok := parseDecimal(a)
	bn, bok := parseDecimal(b)
	if !aok || !bok {
		if a == b {
			return 0
		}
		if a > b {
			return 1
		}
		return -1
	}
	switch {
	case an > bn:
		return 1
	case an < bn:
		return -1
	default:
		return 0
	}
}

func parseDecimal(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
