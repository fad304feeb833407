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

// Package collateral fetches endorsement collateral (TCB info, QE
// identity, CRLs, VCEK/ASK/ARK certificates) over HTTP, with retry on
// 429 honoring Retry-After, and exposes both a synchronous batch API
// and an asynchronous tracker.
package collateral

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/openattest/ccverify/errs"
)

var log = logrus.WithField("service", "collateral")

// Response is the result of fetching a single URL.
type Response struct {
	URL    string
	Status int
	Body   []byte
	Header http.Header
}

// Client fetches collateral over HTTP. The zero value uses
// http.DefaultClient and sensible retry defaults.
type Client struct {
	HTTPClient *http.Client
	MaxRetries int
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) maxRetries() int {
	if c.MaxRetries > 0 {
		return c.MaxRetries
	}
	return 5
}

// FetchOne retrieves a single URL, retrying on HTTP 429 by honoring the
// Retry-After header (seconds, per RFC 9110), up to MaxRetries times
// (MaxRetries+1 attempts in all). Any other non-2xx status is returned immediately as
// errs.CollateralFetchFailed.
func (c *Client) FetchOne(ctx context.Context, url string) (*Response, error) {
	client := c.httpClient()

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, &errs.CollateralFetchFailed{URL: url, Status: 0}
		}

		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &errs.Timeout{Operation: "fetch " + url}
			}
			return nil, &errs.CollateralFetchFailed{URL: url, Status: 0}
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if readErr != nil {
				return nil, &errs.CollateralFetchFailed{URL: url, Status: resp.StatusCode}
			}
			return &Response{URL: url, Status: resp.StatusCode, Body: body, Header: resp.Header}, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < c.maxRetries() {
			wait := retryAfter(resp.Header)
			log.Debugf("got 429 from %v, retrying after %v", url, wait)
			select {
			case <-time.After(wait):
				continue
			case <-ctx.Done():
				return nil, &errs.Timeout{Operation: "fetch " + url}
			}
		}

		return nil, &errs.CollateralFetchFailed{URL: url, Status: resp.StatusCode}
	}
}

func retryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return time.Second
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d > 0 {
			return d
		}
	}
	return time.Second
}

// FetchAll retrieves every URL in urls concurrently and returns
// responses in the same order as the request batch, regardless of
// completion order. It fails all-or-nothing: the first error
// encountered (after that URL's own retries are exhausted) is
// returned, cancelling any in-flight fetches.
func (c *Client) FetchAll(ctx context.Context, urls []string) ([]*Response, error) {
	t := c.NewTracker(ctx, urls)
	return t.Wait()
}
