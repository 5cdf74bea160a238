// SPDX-FileCopyrightText: The wgarchive authors
//
// SPDX-License-Identifier: MIT

// Package series assembles per-day archive pages into one gap-aware time
// series.
package series

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"github.com/askelund/wgarchive/internal/archive"
	"github.com/askelund/wgarchive/internal/logger"
	"github.com/askelund/wgarchive/internal/model"
	"github.com/askelund/wgarchive/internal/session"
	"github.com/askelund/wgarchive/internal/spot"
	"github.com/askelund/wgarchive/internal/timeseries"
)

const (
	// DefaultWorkers bounds how many day fetches run concurrently
	DefaultWorkers = 4
	// DefaultAttempts is how often a day is tried before it is recorded as failed
	DefaultAttempts = 3
	// DefaultBackoff is the initial delay between attempts; it doubles per retry
	DefaultBackoff = 250 * time.Millisecond
)

// Fetcher fetches one calendar day of observations. Satisfied by
// *archive.Pager.
type Fetcher interface {
	FetchDay(ctx context.Context, sess session.Session, sp spot.Spot, m model.Model,
		day time.Time) (*archive.Page, error)
}

// ReauthFunc produces a fresh session through whichever credential path the
// caller originally used.
type ReauthFunc func(ctx context.Context) (session.Session, error)

// Result is a completed range fetch. A non-empty FailedDays list marks a
// partial series: a success outcome carrying warnings, distinct from a hard
// failure.
type Result struct {
	Series      timeseries.Series
	Spot        spot.Spot
	Model       model.Model
	Range       timeseries.DateRange
	FailedDays  []time.Time
	SkippedRows int
}

// Partial reports whether one or more requested days could not be fetched
func (r *Result) Partial() bool {
	return len(r.FailedDays) > 0
}

// Assembler drives the Fetcher across a date range and merges the pages
type Assembler struct {
	fetcher  Fetcher
	logger   *logger.Logger
	workers  int
	attempts int
	backoff  time.Duration
	breaker  *gobreaker.CircuitBreaker
}

// Option configures an Assembler
type Option func(*Assembler)

// WithWorkers sets the bounded concurrency for day fetches
func WithWorkers(workers int) Option {
	return func(a *Assembler) {
		if workers > 0 {
			a.workers = workers
		}
	}
}

// WithAttempts sets the per-day attempt budget for transient failures
func WithAttempts(attempts int) Option {
	return func(a *Assembler) {
		if attempts > 0 {
			a.attempts = attempts
		}
	}
}

// WithBackoff sets the initial retry backoff
func WithBackoff(backoff time.Duration) Option {
	return func(a *Assembler) {
		if backoff > 0 {
			a.backoff = backoff
		}
	}
}

// New returns a new Assembler
func New(fetcher Fetcher, log *logger.Logger, options ...Option) *Assembler {
	a := &Assembler{
		fetcher:  fetcher,
		logger:   log,
		workers:  DefaultWorkers,
		attempts: DefaultAttempts,
		backoff:  DefaultBackoff,
	}
	for _, option := range options {
		option(a)
	}
	a.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "archive",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		Timeout: 30 * time.Second,
	})
	return a
}

// FetchRange decomposes the range into its calendar days, fetches each day
// with bounded concurrency and merges the pages into one ordered,
// de-duplicated series.
//
// Session expiry triggers at most one re-authentication per call, no matter
// how many in-flight fetches observe it; a second expiry after the refresh
// aborts the whole range. Transient failures are retried per day and days
// that stay unreachable are recorded in the result instead of failing the
// range. A cancelled context aborts with the cancellation error and no
// partial result.
func (a *Assembler) FetchRange(ctx context.Context, sess session.Session, sp spot.Spot,
	m model.Model, dateRange timeseries.DateRange, reauth ReauthFunc,
) (*Result, error) {
	days := dateRange.Days()
	holder := newSessionHolder(sess, reauth)

	type fetched struct {
		page *archive.Page
		seq  int
	}
	var (
		mu         sync.Mutex
		pages      []fetched
		failedDays []time.Time
		skipped    int
		seq        int
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(a.workers)
	for _, day := range days {
		group.Go(func() error {
			page, err := a.fetchDay(groupCtx, holder, sp, m, day)
			if err != nil {
				if isFatal(err) {
					return err
				}
				a.logger.Warn("giving up on day", "day", day.Format(time.DateOnly), logger.Err(err))
				mu.Lock()
				failedDays = append(failedDays, day)
				mu.Unlock()
				return nil
			}
			mu.Lock()
			seq++
			pages = append(pages, fetched{page: page, seq: seq})
			skipped += page.Skipped
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Merge in fetch-completion order so that on boundary duplicates the
	// later-fetched observation wins
	sort.Slice(pages, func(i, j int) bool { return pages[i].seq < pages[j].seq })
	var observations []timeseries.Observation
	for _, f := range pages {
		observations = append(observations, f.page.Observations...)
	}
	if len(observations) == 0 {
		return nil, fmt.Errorf("%w: %s", archive.ErrNoData, dateRange)
	}

	sort.Slice(failedDays, func(i, j int) bool { return failedDays[i].Before(failedDays[j]) })
	return &Result{
		Series:      timeseries.Merge(observations),
		Spot:        sp,
		Model:       m,
		Range:       dateRange,
		FailedDays:  failedDays,
		SkippedRows: skipped,
	}, nil
}

// fetchDay runs the attempt loop for one calendar day
func (a *Assembler) fetchDay(ctx context.Context, holder *sessionHolder, sp spot.Spot,
	m model.Model, day time.Time,
) (*archive.Page, error) {
	backoff := a.backoff
	attempt := 1
	for {
		sess := holder.current()
		page, err := a.fetchOnce(ctx, sess, sp, m, day)
		switch {
		case err == nil:
			return page, nil
		case errors.Is(err, archive.ErrSessionExpired):
			// one shared refresh for the whole range; a second expiry
			// aborts via the holder
			if _, rerr := holder.refresh(ctx, sess); rerr != nil {
				return nil, rerr
			}
			continue
		case errors.Is(err, archive.ErrParseFailure):
			// format drift will not heal on retry
			return nil, err
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			if attempt >= a.attempts {
				return nil, err
			}
			a.logger.Debug("retrying day after transient failure",
				"day", day.Format(time.DateOnly), "attempt", attempt, logger.Err(err))
			if serr := sleepContext(ctx, backoff); serr != nil {
				return nil, serr
			}
			backoff *= 2
			attempt++
		}
	}
}

// fetchOnce performs a single day fetch through the circuit breaker. Only
// transport failures count against the breaker; auth and parse outcomes pass
// through it untouched.
func (a *Assembler) fetchOnce(ctx context.Context, sess session.Session, sp spot.Spot,
	m model.Model, day time.Time,
) (*archive.Page, error) {
	type outcome struct {
		page *archive.Page
		err  error
	}
	result, err := a.breaker.Execute(func() (any, error) {
		page, err := a.fetcher.FetchDay(ctx, sess, sp, m, day)
		if err != nil && errors.Is(err, archive.ErrUnreachable) {
			return nil, err
		}
		return outcome{page: page, err: err}, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %s", archive.ErrUnreachable, err)
		}
		return nil, err
	}
	o := result.(outcome)
	return o.page, o.err
}

// isFatal reports whether a day-level error must abort the whole range
func isFatal(err error) bool {
	return errors.Is(err, archive.ErrSessionExpired) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
