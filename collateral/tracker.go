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
	"sync"
)

// Tracker runs a batch of fetches in the background, one goroutine per
// URL, and lets the caller poll for completion instead of blocking.
// This is the task-per-batch-plus-channel realization of an async
// HTTP tracker.
type Tracker struct {
	done chan struct{}

	mu      sync.Mutex
	results []*Response
	err     error
	cancel  context.CancelFunc
}

// NewTracker starts fetching every URL in urls concurrently and
// returns immediately.
func (c *Client) NewTracker(ctx context.Context, urls []string) *Tracker {
	ctx, cancel := context.WithCancel(ctx)
	t := &Tracker{
		done:    make(chan struct{}),
		results: make([]*Response, len(urls)),
		cancel:  cancel,
	}

	go func() {
		defer close(t.done)
		defer cancel()

		var wg sync.WaitGroup
		errCh := make(chan error, len(urls))

		for i, u := range urls {
			wg.Add(1)
			go func(i int, u string) {
				defer wg.Done()
				resp, err := c.FetchOne(ctx, u)
				if err != nil {
					select {
					case errCh <- err:
					default:
					}
					cancel()
					return
				}
				t.mu.Lock()
				t.results[i] = resp
				t.mu.Unlock()
			}(i, u)
		}

		wg.Wait()
		close(errCh)
		for err := range errCh {
			if t.err == nil {
				t.err = err
			}
		}
	}()

	return t
}

// Done returns a channel that is closed once every fetch has completed
// or the batch has failed.
func (t *Tracker) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the batch completes and returns the index-ordered
// results, or the first error encountered.
func (t *Tracker) Wait() ([]*Response, error) {
	<-t.done
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return nil, t.err
	}
	return t.results, nil
}

// Results returns the current, possibly partial, index-ordered
// results without blocking.
func (t *Tracker) Results() []*Response {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Response, len(t.results))
	copy(out, t.results)
	return out
}

// Cancel aborts any in-flight fetches in this batch.
func (t *Tracker) Cancel() {
	t.cancel()
}
