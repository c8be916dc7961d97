// Copyright 2025 Tom Barlow
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

// Package gather implements the concurrency and retry core: a bounded,
// rate-limited, retrying "gather" over a set of specs, both async-style
// (Limited) and a synchronous worker-pool variant (LimitedSync).
package gather

import (
	"context"
	"math/rand"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	kasherrors "github.com/kashrun/kash/pkg/errors"
)

// Spec is a unit of work: a callable that produces a T or an error. This
// is the Go equivalent of "callable or coroutine" — a bare already-computed
// value is never accepted, since retrying it would just replay the same
// result.
type Spec[T any] func(ctx context.Context) (T, error)

const (
	DefaultMaxConcurrent = 5
	DefaultMaxRPS        = 5.0
)

// RetrySettings configures per-task and global retry budgets.
type RetrySettings struct {
	MaxTaskRetries  int
	MaxTotalRetries int // 0 means unbounded
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	BackoffFactor   float64
	IsRetriable     func(error) bool
}

// DefaultRetrySettings mirrors the reference implementation's
// DEFAULT_RETRIES: three attempts, one-second initial backoff doubling up
// to a minute.
var DefaultRetrySettings = RetrySettings{
	MaxTaskRetries: 3,
	InitialBackoff: time.Second,
	MaxBackoff:     60 * time.Second,
	BackoffFactor:  2.0,
	IsRetriable:    IsRetriable,
}

// NoRetries disables retrying entirely; failures propagate immediately.
var NoRetries = RetrySettings{}

func (r RetrySettings) normalized() RetrySettings {
	if r.BackoffFactor == 0 {
		r.BackoffFactor = 2.0
	}
	if r.InitialBackoff == 0 {
		r.InitialBackoff = time.Second
	}
	if r.MaxBackoff == 0 {
		r.MaxBackoff = 60 * time.Second
	}
	if r.IsRetriable == nil {
		r.IsRetriable = IsRetriable
	}
	return r
}

// retriableIndicators is the exact substring list from the reference
// implementation's default_is_retriable.
var retriableIndicators = []string{
	"rate limit",
	"too many requests",
	"429",
	"quota exceeded",
	"throttled",
	"rate_limit_error",
	"ratelimiterror",
}

// IsRetriable reports whether err's message matches a known rate-limit
// pattern, case-insensitively.
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	for _, ind := range retriableIndicators {
		if strings.Contains(s, ind) {
			return true
		}
	}
	return false
}

// RetryAfter is an optional error interface a provider error can implement
// to report a server-suggested retry delay.
type RetryAfter interface {
	RetryAfter() time.Duration
}

func calculateBackoff(attempt int, err error, cfg RetrySettings) time.Duration {
	if ra, ok := err.(RetryAfter); ok {
		if d := ra.RetryAfter(); d > 0 {
			return min(d, cfg.MaxBackoff)
		}
	}

	exp := float64(cfg.InitialBackoff) * pow(cfg.BackoffFactor, attempt)
	jitter := 1 + (rand.Float64()-0.5)*0.5 // ± 25%, per api_retries.py
	backoff := time.Duration(exp * jitter)
	return min(backoff, cfg.MaxBackoff)
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}

// Options configures Limited and LimitedSync.
type Options struct {
	MaxConcurrent   int
	MaxRPS          float64
	Retry           RetrySettings
	ReturnErrors    bool // if true, per-spec errors are reported in Result rather than aborting the whole gather
	Status          ProgressTracker
	Labeler         func(i int, spec any) string
}

// Result pairs a spec's output position with its value or error.
type Result[T any] struct {
	Value T
	Err   error
}

func (o Options) normalized() Options {
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = DefaultMaxConcurrent
	}
	if o.MaxRPS <= 0 {
		o.MaxRPS = DefaultMaxRPS
	}
	o.Retry = o.Retry.normalized()
	return o
}

// Limited runs specs with bounded concurrency (golang.org/x/sync/semaphore)
// and a leaky-bucket rate limit (golang.org/x/time/rate), retrying
// individually-failing specs up to Retry.MaxTaskRetries, honoring a shared
// Retry.MaxTotalRetries budget across the whole batch. Results are written
// into a pre-sized slice indexed by input position, so result[i] always
// corresponds to specs[i] regardless of completion order.
func Limited[T any](ctx context.Context, specs []Spec[T], opts Options) ([]Result[T], error) {
	opts = opts.normalized()

	sem := semaphore.NewWeighted(int64(opts.MaxConcurrent))
	limiter := rate.NewLimiter(rate.Limit(opts.MaxRPS), max(1, int(opts.MaxRPS)))

	var totalRetries atomic.Int64
	results := make([]Result[T], len(specs))

	g, gctx := errgroup.WithContext(ctx)

	for i, spec := range specs {
		i, spec := i, spec
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				results[i] = Result[T]{Err: err}
				return errIf(!opts.ReturnErrors, err)
			}
			defer sem.Release(1)

			if err := limiter.Wait(gctx); err != nil {
				results[i] = Result[T]{Err: err}
				return errIf(!opts.ReturnErrors, err)
			}

			var taskID TaskID
			if opts.Status != nil {
				label := labelFor(opts.Labeler, i, spec)
				taskID = opts.Status.Add(label)
			}

			val, err := runWithRetry(gctx, spec, opts.Retry, &totalRetries)
			results[i] = Result[T]{Value: val, Err: err}

			if opts.Status != nil {
				if err != nil {
					opts.Status.Finish(taskID, TaskStateFailed, err.Error())
				} else {
					opts.Status.Finish(taskID, TaskStateDone, "")
				}
			}

			return errIf(!opts.ReturnErrors, err)
		})
	}

	if err := g.Wait(); err != nil && !opts.ReturnErrors {
		return results, err
	}
	return results, nil
}

func errIf(cond bool, err error) error {
	if cond {
		return err
	}
	return nil
}

func labelFor(labeler func(int, any) string, i int, spec any) string {
	if labeler != nil {
		return labeler(i, spec)
	}
	return ""
}

func runWithRetry[T any](ctx context.Context, spec Spec[T], cfg RetrySettings, total *atomic.Int64) (T, error) {
	start := time.Now()
	var attempt int
	for {
		val, err := spec(ctx)
		if err == nil {
			return val, nil
		}
		if !cfg.IsRetriable(err) {
			return val, err
		}
		if attempt >= cfg.MaxTaskRetries {
			return val, &kasherrors.RetryExhaustedException{Original: err, Attempts: attempt + 1, Elapsed: time.Since(start)}
		}
		if cfg.MaxTotalRetries > 0 {
			if total.Add(1) > int64(cfg.MaxTotalRetries) {
				return val, &kasherrors.RetryExhaustedException{Original: err, Attempts: attempt + 1, Elapsed: time.Since(start)}
			}
		}

		backoff := calculateBackoff(attempt, err, cfg)
		select {
		case <-ctx.Done():
			return val, ctx.Err()
		case <-time.After(backoff):
		}
		attempt++
	}
}

// LimitedSync is the synchronous analogue of Limited: each fn runs on a
// worker drawn from a bounded pool (errgroup.Group with SetLimit).
func LimitedSync[T any](ctx context.Context, fns []func() (T, error), opts Options) ([]Result[T], error) {
	specs := make([]Spec[T], len(fns))
	for i, fn := range fns {
		fn := fn
		specs[i] = func(ctx context.Context) (T, error) { return fn() }
	}
	return Limited(ctx, specs, opts)
}
