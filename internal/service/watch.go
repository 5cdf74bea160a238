// SPDX-FileCopyrightText: The wgarchive authors
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/askelund/wgarchive/internal/logger"
	"github.com/askelund/wgarchive/internal/model"
	"github.com/askelund/wgarchive/internal/session"
	"github.com/askelund/wgarchive/internal/spot"
	"github.com/askelund/wgarchive/internal/timeseries"
)

// Watch keeps the session alive and periodically re-fetches the current
// day's observations for the given spot, emitting each snapshot as a JSON
// document to out. It blocks until the context is cancelled.
func (s *Service) Watch(ctx context.Context, sp spot.Spot, m model.Model, out io.Writer) error {
	refresh := func(jobCtx context.Context) {
		s.refreshCurrentDay(jobCtx, sp, m, out)
	}
	keepAlive := func(jobCtx context.Context) {
		s.keepSessionAlive(jobCtx)
	}

	if err := s.createScheduledJob(ctx, s.config.Intervals.Watch, refresh,
		"archive_refresh_job"); err != nil {
		return err
	}
	if err := s.createScheduledJob(ctx, s.config.Intervals.KeepAlive, keepAlive,
		"session_keepalive_job"); err != nil {
		return err
	}
	s.scheduler.Start()

	// Emit a first snapshot right away so the watcher does not sit silent
	// for a full interval.
	refresh(ctx)

	<-ctx.Done()
	return s.scheduler.Shutdown()
}

func (s *Service) createScheduledJob(ctx context.Context, interval time.Duration,
	task func(context.Context), jobName string,
) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithContext(ctx),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName(jobName),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", jobName, err)
	}
	return nil
}

// refreshCurrentDay re-fetches today's observations and writes the export
// document. Failures are logged, never fatal; the next tick retries.
func (s *Service) refreshCurrentDay(ctx context.Context, sp spot.Spot, m model.Model, out io.Writer) {
	result, err := s.Fetch(ctx, sp, m, currentDay())
	if err != nil {
		s.logger.Error("watch refresh failed", logger.Err(err))
		return
	}
	if err = json.NewEncoder(out).Encode(s.Export(result, false)); err != nil {
		s.logger.Error("failed to encode watch snapshot", logger.Err(err))
	}
}

// keepSessionAlive probes the cached session so idle watches do not let it
// lapse unnoticed. An invalid session is dropped; the next fetch re-logs-in.
func (s *Service) keepSessionAlive(ctx context.Context) {
	s.sessLock.RLock()
	sess := s.sess
	s.sessLock.RUnlock()
	if !sess.Valid() {
		return
	}
	ok, err := s.auth.Validate(ctx, sess)
	if err != nil {
		s.logger.Warn("session keepalive probe failed", logger.Err(err))
		return
	}
	if !ok {
		s.logger.Info("session lapsed during watch, dropping cached copy")
		s.auth.Invalidate(sess)
		s.sessLock.Lock()
		s.sess = session.Session{}
		s.sessLock.Unlock()
	}
}

// currentDay returns the UTC day the refresh job re-fetches.
func currentDay() timeseries.DateRange {
	day := timeseries.Day(time.Now().UTC())
	dateRange, err := timeseries.NewRange(day, day)
	if err != nil {
		// Unreachable for a single valid day.
		return timeseries.DateRange{Start: day, End: day}
	}
	return dateRange
}
