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

// Package orchestrator dispatches attestation envelopes to the
// matching verifier package and tracks in-flight requests through an
// asynchronous submit/result/erase state machine.
package orchestrator

import (
	"context"
	"crypto/x509"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/openattest/ccverify/claims"
	"github.com/openattest/ccverify/cryptoutil"
	"github.com/openattest/ccverify/errs"
	"github.com/openattest/ccverify/internal"
)

var log = logrus.WithField("service", "orchestrator")

// errUnknownRequest indicates Result or Erase was called with a
// RequestID that was never submitted, or was already erased.
type errUnknownRequest struct {
	id RequestID
}

func (e *errUnknownRequest) Error() string {
	return fmt.Sprintf("unknown request id %v", e.id)
}

// State is a request's position in the
// Submitted -> FetchingEndorsements -> Verifying -> {Complete|Failed}
// state machine.
type State string

const (
	StateSubmitted            State = "Submitted"
	StateFetchingEndorsements State = "FetchingEndorsements"
	StateVerifying            State = "Verifying"
	StateComplete             State = "Complete"
	StateFailed               State = "Failed"
)

// RequestID identifies a submitted verification request.
type RequestID uuid.UUID

func (r RequestID) String() string {
	return uuid.UUID(r).String()
}

// Result is the outcome of a completed or in-progress verification
// request.
type Result struct {
	Claims claims.Claims
	Err    error
}

// Config holds the process-wide trust anchors verification is checked
// against. Root CAs are loaded from the filesystem at startup rather
// than compiled in, following the teacher's own "read trusted root CAs
// from configured paths" idiom in cmc.NewCmc.
type Config struct {
	// RootCAs maps an evidence Source to the root CA certificate(s)
	// trusted for that platform.
	RootCAs map[claims.Source][]*x509.Certificate
}

type request struct {
	state  State
	result *Result
	cancel context.CancelFunc
}

// Orchestrator tracks in-flight and completed verification requests in
// a mutex-guarded table, matching the requirement that the request
// table itself never be accessed without the lock held.
type Orchestrator struct {
	cfg Config

	mu       sync.Mutex
	requests map[RequestID]*request
}

// New constructs an Orchestrator using the given Config for default
// trust anchors.
func New(cfg Config) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		requests: make(map[RequestID]*request),
	}
}

// Submit starts verifying env in a background goroutine and returns
// immediately with a RequestID that Result/Erase can use to track it.
func (o *Orchestrator) Submit(ctx context.Context, env claims.Envelope, opts claims.Options) (RequestID, error) {
	id := RequestID(uuid.New())
	ctx, cancel := context.WithCancel(ctx)

	o.mu.Lock()
	o.requests[id] = &request{state: StateSubmitted, cancel: cancel}
	o.mu.Unlock()

	go o.run(ctx, id, env, opts)

	return id, nil
}

// Result returns the current state and, once available, the claims or
// error of a submitted request. It never blocks.
func (o *Orchestrator) Result(id RequestID) (*Result, State, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	req, ok := o.requests[id]
	if !ok {
		return nil, "", &errUnknownRequest{id: id}
	}
	return req.result, req.state, nil
}

// Erase cancels a request's context, if still running, and removes its
// entry from the table.
func (o *Orchestrator) Erase(id RequestID) {
	o.mu.Lock()
	req, ok := o.requests[id]
	if ok {
		delete(o.requests, id)
	}
	o.mu.Unlock()

	if ok && req.cancel != nil {
		req.cancel()
	}
}

func (o *Orchestrator) setState(id RequestID, state State) {
	o.mu.Lock()
	if req, ok := o.requests[id]; ok {
		req.state = state
	}
	o.mu.Unlock()
}

func (o *Orchestrator) finish(id RequestID, result *Result) {
	o.mu.Lock()
	if req, ok := o.requests[id]; ok {
		req.result = result
		if result.Err != nil {
			req.state = StateFailed
		} else {
			req.state = StateComplete
		}
	}
	o.mu.Unlock()
}

// run performs the actual dispatch-by-source verification, matching
// the teacher's verifier.Verify switch over measurement type.
func (o *Orchestrator) run(ctx context.Context, id RequestID, env claims.Envelope, opts claims.Options) {
	o.setState(id, StateFetchingEndorsements)

	rootCA, err := o.rootCA(env.Source, opts)
	if err != nil {
		o.finish(id, &Result{Err: err})
		return
	}

	o.setState(id, StateVerifying)

	result, err := Verify(ctx, env, opts, rootCA)
	if err != nil {
		if opts.Partial {
			o.finish(id, &Result{Claims: result, Err: err})
			return
		}
		o.finish(id, &Result{Err: err})
		return
	}

	o.finish(id, &Result{Claims: result})
}

// rootCA resolves the trust anchor for env's source: an
// Options-supplied override takes precedence over the Config default.
func (o *Orchestrator) rootCA(source claims.Source, opts claims.Options) (*x509.Certificate, error) {
	if len(opts.RootCACertificate) > 0 {
		cert, err := internal.ParseCert(opts.RootCACertificate)
		if err != nil {
			return nil, &errs.CertChainInvalid{Reason: "invalid root CA override: " + err.Error()}
		}
		return cert, nil
	}

	cas := o.cfg.RootCAs[source]
	if len(cas) == 0 {
		return nil, &errs.CertChainInvalid{Reason: "no root CA configured for source " + string(source)}
	}
	return cas[0], nil
}

// chainOptions derives cryptoutil.ChainOptions from claims.Options.
// CRLMode is always CRLCheckAll: every certificate chain verified by
// this package enforces revocation at every depth, not just the leaf
// against its immediate issuer. The per-request CRLs map itself is
// filled in by the verifier packages, which are the ones holding the
// parsed issuer certificates the CRL map must be keyed by.
func chainOptions(opts claims.Options) cryptoutil.ChainOptions {
	return cryptoutil.ChainOptions{
		CRLMode:          cryptoutil.CRLCheckAll,
		IgnoreTime:       opts.IgnoreTime,
		VerificationTime: opts.VerificationTime,
	}
}
