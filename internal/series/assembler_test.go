// SPDX-FileCopyrightText: The wgarchive authors
//
// SPDX-License-Identifier: MIT

package series

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/askelund/wgarchive/internal/archive"
	"github.com/askelund/wgarchive/internal/logger"
	"github.com/askelund/wgarchive/internal/model"
	"github.com/askelund/wgarchive/internal/session"
	"github.com/askelund/wgarchive/internal/spot"
	"github.com/askelund/wgarchive/internal/timeseries"
)

var (
	testSpot  = spot.Spot{ID: 48743, Name: "Tarifa", Country: "Spain"}
	testModel = model.Default()
)

// fakeFetcher satisfies the Fetcher interface with a per-test function
type fakeFetcher struct {
	fn    func(sess session.Session, day time.Time) (*archive.Page, error)
	calls atomic.Int64
}

func (f *fakeFetcher) FetchDay(_ context.Context, sess session.Session, _ spot.Spot,
	_ model.Model, day time.Time,
) (*archive.Page, error) {
	f.calls.Add(1)
	return f.fn(sess, day)
}

func fullPage(day time.Time) *archive.Page {
	page := &archive.Page{Day: day}
	for hour := 0; hour < 24; hour += 2 {
		page.Observations = append(page.Observations, timeseries.Observation{
			Time:      day.Add(time.Duration(hour) * time.Hour),
			WindSpeed: timeseries.Some(10),
		})
		page.Rows++
	}
	return page
}

func mustRange(t *testing.T, from, to string) timeseries.DateRange {
	t.Helper()
	r, err := timeseries.ParseRange(from, to)
	if err != nil {
		t.Fatalf("failed to parse range: %s", err)
	}
	return r
}

func testAssembler(fetcher Fetcher, options ...Option) *Assembler {
	options = append([]Option{WithBackoff(time.Millisecond)}, options...)
	return New(fetcher, logger.NewLogger(slog.LevelError, io.Discard), options...)
}

func noReauth(t *testing.T) ReauthFunc {
	return func(context.Context) (session.Session, error) {
		t.Fatal("no re-authentication expected")
		return session.Session{}, nil
	}
}

func TestAssembler_FetchRange(t *testing.T) {
	sess := session.New("348211", "digest")

	t.Run("series is strictly increasing and covers all days", func(t *testing.T) {
		fetcher := &fakeFetcher{fn: func(_ session.Session, day time.Time) (*archive.Page, error) {
			return fullPage(day), nil
		}}
		assembler := testAssembler(fetcher)
		result, err := assembler.FetchRange(t.Context(), sess, testSpot, testModel,
			mustRange(t, "2024-05-01", "2024-05-05"), noReauth(t))
		if err != nil {
			t.Fatalf("failed to fetch range: %s", err)
		}
		if result.Partial() {
			t.Errorf("expected a full series, got failed days: %v", result.FailedDays)
		}
		if len(result.Series) != 5*12 {
			t.Errorf("expected 60 observations, got %d", len(result.Series))
		}
		for i := 1; i < len(result.Series); i++ {
			if !result.Series[i-1].Time.Before(result.Series[i].Time) {
				t.Fatalf("expected strictly increasing timestamps, got %s then %s",
					result.Series[i-1].Time, result.Series[i].Time)
			}
		}
	})
	t.Run("a bad day yields a partial series, not a failure", func(t *testing.T) {
		badDay := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)
		fetcher := &fakeFetcher{fn: func(_ session.Session, day time.Time) (*archive.Page, error) {
			if day.Equal(badDay) {
				return nil, archive.ErrUnreachable
			}
			return fullPage(day), nil
		}}
		assembler := testAssembler(fetcher, WithAttempts(2))
		result, err := assembler.FetchRange(t.Context(), sess, testSpot, testModel,
			mustRange(t, "2024-05-01", "2024-05-05"), noReauth(t))
		if err != nil {
			t.Fatalf("expected partial success, got %s", err)
		}
		if !result.Partial() || len(result.FailedDays) != 1 || !result.FailedDays[0].Equal(badDay) {
			t.Errorf("expected exactly the bad day to be recorded, got %v", result.FailedDays)
		}
		if len(result.Series) != 4*12 {
			t.Errorf("expected 48 observations from the remaining days, got %d", len(result.Series))
		}
	})
	t.Run("transient failures are retried before the day fails", func(t *testing.T) {
		var failures atomic.Int64
		fetcher := &fakeFetcher{fn: func(_ session.Session, day time.Time) (*archive.Page, error) {
			if failures.Add(1) <= 2 {
				return nil, archive.ErrUnreachable
			}
			return fullPage(day), nil
		}}
		assembler := testAssembler(fetcher, WithAttempts(3))
		result, err := assembler.FetchRange(t.Context(), sess, testSpot, testModel,
			mustRange(t, "2024-05-01", "2024-05-01"), noReauth(t))
		if err != nil {
			t.Fatalf("expected retries to recover the day, got %s", err)
		}
		if result.Partial() {
			t.Errorf("expected no failed days, got %v", result.FailedDays)
		}
		if fetcher.calls.Load() != 3 {
			t.Errorf("expected 3 attempts, got %d", fetcher.calls.Load())
		}
	})
	t.Run("re-authentication happens at most once per range", func(t *testing.T) {
		var reauths atomic.Int64
		fetcher := &fakeFetcher{fn: func(s session.Session, day time.Time) (*archive.Page, error) {
			if s.AuthToken == "348211" {
				return nil, archive.ErrSessionExpired
			}
			return fullPage(day), nil
		}}
		assembler := testAssembler(fetcher)
		reauth := func(context.Context) (session.Session, error) {
			reauths.Add(1)
			return session.New("999999", "freshdigest"), nil
		}
		result, err := assembler.FetchRange(t.Context(), sess, testSpot, testModel,
			mustRange(t, "2024-05-01", "2024-05-10"), reauth)
		if err != nil {
			t.Fatalf("expected range to recover after re-authentication, got %s", err)
		}
		if reauths.Load() != 1 {
			t.Errorf("expected exactly one re-authentication, got %d", reauths.Load())
		}
		if result.Partial() {
			t.Errorf("expected all days to succeed after refresh, got %v", result.FailedDays)
		}
	})
	t.Run("a second expiry after re-authentication is fatal", func(t *testing.T) {
		fetcher := &fakeFetcher{fn: func(session.Session, time.Time) (*archive.Page, error) {
			return nil, archive.ErrSessionExpired
		}}
		assembler := testAssembler(fetcher)
		reauth := func(context.Context) (session.Session, error) {
			return session.New("999999", "freshdigest"), nil
		}
		_, err := assembler.FetchRange(t.Context(), sess, testSpot, testModel,
			mustRange(t, "2024-05-01", "2024-05-03"), reauth)
		if !errors.Is(err, archive.ErrSessionExpired) {
			t.Errorf("expected ErrSessionExpired, got %v", err)
		}
	})
	t.Run("failed re-authentication is fatal", func(t *testing.T) {
		fetcher := &fakeFetcher{fn: func(session.Session, time.Time) (*archive.Page, error) {
			return nil, archive.ErrSessionExpired
		}}
		assembler := testAssembler(fetcher)
		reauth := func(context.Context) (session.Session, error) {
			return session.Session{}, errors.New("login blocked")
		}
		_, err := assembler.FetchRange(t.Context(), sess, testSpot, testModel,
			mustRange(t, "2024-05-01", "2024-05-03"), reauth)
		if !errors.Is(err, archive.ErrSessionExpired) {
			t.Errorf("expected ErrSessionExpired, got %v", err)
		}
	})
	t.Run("a range with nothing but failures returns ErrNoData", func(t *testing.T) {
		fetcher := &fakeFetcher{fn: func(session.Session, time.Time) (*archive.Page, error) {
			return nil, archive.ErrParseFailure
		}}
		assembler := testAssembler(fetcher)
		_, err := assembler.FetchRange(t.Context(), sess, testSpot, testModel,
			mustRange(t, "2024-05-01", "2024-05-03"), noReauth(t))
		if !errors.Is(err, archive.ErrNoData) {
			t.Errorf("expected ErrNoData, got %v", err)
		}
	})
	t.Run("a range of empty days returns ErrNoData", func(t *testing.T) {
		fetcher := &fakeFetcher{fn: func(_ session.Session, day time.Time) (*archive.Page, error) {
			return &archive.Page{Day: day}, nil
		}}
		assembler := testAssembler(fetcher)
		_, err := assembler.FetchRange(t.Context(), sess, testSpot, testModel,
			mustRange(t, "2024-05-01", "2024-05-03"), noReauth(t))
		if !errors.Is(err, archive.ErrNoData) {
			t.Errorf("expected ErrNoData, got %v", err)
		}
	})
	t.Run("cancellation aborts without a partial result", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		var once sync.Once
		fetcher := &fakeFetcher{fn: func(_ session.Session, day time.Time) (*archive.Page, error) {
			once.Do(cancel)
			return nil, ctx.Err()
		}}
		assembler := testAssembler(fetcher)
		result, err := assembler.FetchRange(ctx, sess, testSpot, testModel,
			mustRange(t, "2024-05-01", "2024-05-10"), noReauth(t))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if result != nil {
			t.Error("expected no partial result on cancellation")
		}
	})
	t.Run("boundary duplicates keep the later-fetched observation", func(t *testing.T) {
		boundary := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
		fetcher := &fakeFetcher{fn: func(_ session.Session, day time.Time) (*archive.Page, error) {
			value := 10.0
			if day.Equal(boundary) {
				value = 22.0
			}
			return &archive.Page{Day: day, Rows: 1, Observations: []timeseries.Observation{
				{Time: boundary, WindSpeed: timeseries.Some(value)},
			}}, nil
		}}
		// a single worker fetches the days in ascending order, so the second
		// day's copy of the boundary instant is the later-fetched one
		assembler := testAssembler(fetcher, WithWorkers(1))
		result, err := assembler.FetchRange(t.Context(), sess, testSpot, testModel,
			mustRange(t, "2024-05-01", "2024-05-02"), noReauth(t))
		if err != nil {
			t.Fatalf("failed to fetch range: %s", err)
		}
		if len(result.Series) != 1 {
			t.Fatalf("expected the duplicate instant to collapse, got %d observations", len(result.Series))
		}
		if result.Series[0].WindSpeed.Value != 22.0 {
			t.Errorf("expected the later-fetched observation to win, got %+v", result.Series[0].WindSpeed)
		}
	})
}
