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

package collateral

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestFetchOneSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Test", "1")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	c := &Client{}
	resp, err := c.FetchOne(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FetchOne() error = %v", err)
	}
	if string(resp.Body) != "hello" {
		t.Errorf("Body = %q, want %q", resp.Body, "hello")
	}
	if resp.Status != http.StatusOK {
		t.Errorf("Status = %v, want 200", resp.Status)
	}
}

func TestFetchOneNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := &Client{}
	if _, err := c.FetchOne(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestFetchOneRetriesOn429(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := &Client{MaxRetries: 5}
	resp, err := c.FetchOne(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FetchOne() error = %v", err)
	}
	if string(resp.Body) != "ok" {
		t.Errorf("Body = %q, want %q", resp.Body, "ok")
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %v, want 3", got)
	}
}

func TestFetchOneExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := &Client{MaxRetries: 1}
	if _, err := c.FetchOne(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}

func TestRetryAfterParsesSeconds(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", "3")
	if got := retryAfter(h); got != 3*time.Second {
		t.Errorf("retryAfter() = %v, want 3s", got)
	}
}

func TestRetryAfterDefaultsWithoutHeader(t *testing.T) {
	if got := retryAfter(http.Header{}); got != time.Second {
		t.Errorf("retryAfter() = %v, want 1s", got)
	}
}
