// SPDX-FileCopyrightText: The wgarchive authors
//
// SPDX-License-Identifier: MIT

// Package service wires the authentication, search and archive layers into
// the operations the command line front-end exposes.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/go-co-op/gocron/v2"

	"github.com/askelund/wgarchive/internal/almanac"
	"github.com/askelund/wgarchive/internal/archive"
	"github.com/askelund/wgarchive/internal/auth"
	"github.com/askelund/wgarchive/internal/config"
	"github.com/askelund/wgarchive/internal/http"
	"github.com/askelund/wgarchive/internal/logger"
	"github.com/askelund/wgarchive/internal/model"
	"github.com/askelund/wgarchive/internal/series"
	"github.com/askelund/wgarchive/internal/session"
	"github.com/askelund/wgarchive/internal/spot"
	"github.com/askelund/wgarchive/internal/timeseries"
	"github.com/askelund/wgarchive/internal/vault"
)

// ErrNoSession indicates that no stored session exists and no credentials
// are available to establish one.
var ErrNoSession = errors.New("no session available, log in first")

// Credentials is an email/password pair used for automatic login and
// re-authentication. Both fields may be empty when the operator works with
// a token-only session.
type Credentials struct {
	Email    string
	Password string
}

// Document is the JSON export emitted for a fetched range.
type Document struct {
	Spot    spot.Spot         `json:"spot"`
	Model   model.Model       `json:"model"`
	Range   string            `json:"range"`
	Series  timeseries.Series `json:"series"`
	Almanac []almanac.Day     `json:"almanac,omitempty"`
}

// Service owns the shared session state and the wired clients.
type Service struct {
	config    *config.Config
	logger    *logger.Logger
	creds     Credentials
	vault     vault.Vault
	auth      *auth.Client
	spots     *spot.Directory
	assembler *series.Assembler
	scheduler gocron.Scheduler

	sessLock sync.RWMutex
	sess     session.Session
}

// New wires up a Service from the configuration. The keyring vault is used
// unless disabled, in which case sessions only live for the process lifetime.
func New(conf *config.Config, log *logger.Logger, creds Credentials) (*Service, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	var store vault.Vault = vault.NewKeyring()
	if conf.Vault.DisableKeyring {
		store = vault.NewMemory()
	}

	httpClient := http.New(log)
	pager := archive.New(conf.BaseURL, conf.Archive.StepHours, httpClient, log,
		archive.WithTimeout(conf.Archive.Timeout))

	return &Service{
		config:    conf,
		logger:    log,
		creds:     creds,
		vault:     store,
		auth:      auth.New(conf.BaseURL, httpClient, log, store),
		spots:     spot.New(conf.BaseURL, httpClient, log),
		scheduler: scheduler,
		assembler: series.New(pager, log,
			series.WithWorkers(conf.Archive.Workers),
			series.WithAttempts(conf.Archive.Attempts),
			series.WithBackoff(conf.Archive.Backoff)),
	}, nil
}

// Login performs a password login and persists the resulting session.
func (s *Service) Login(ctx context.Context, email, password string) error {
	sess, err := s.auth.LoginWithPassword(ctx, email, password)
	if err != nil {
		return err
	}
	s.storeSession(sess)
	if err = s.vault.SaveUsername(email); err != nil {
		s.logger.Warn("failed to persist username", logger.Err(err))
	}
	return nil
}

// LoginTokens adopts an operator-supplied token pair and persists it.
// Validity is established lazily on first use.
func (s *Service) LoginTokens(authToken, loginDigest string) error {
	sess, err := s.auth.LoginWithTokens(authToken, loginDigest)
	if err != nil {
		return err
	}
	s.storeSession(sess)
	return nil
}

// Logout drops the cached session from the vault and from memory.
func (s *Service) Logout() error {
	s.sessLock.Lock()
	s.sess = session.Session{}
	s.sessLock.Unlock()
	err := s.vault.Clear()
	if errors.Is(err, vault.ErrNotFound) {
		return nil
	}
	return err
}

// Session returns a usable session, in order of preference: the in-memory
// one, the vault copy, a fresh password login. Stored sessions are probed
// before use so an expired vault entry does not surface as a mid-fetch
// failure.
func (s *Service) Session(ctx context.Context) (session.Session, error) {
	s.sessLock.RLock()
	sess := s.sess
	s.sessLock.RUnlock()
	if sess.Valid() {
		return sess, nil
	}

	sess, err := s.vault.Load()
	if err == nil && sess.Valid() {
		ok, err := s.auth.Validate(ctx, sess)
		if err != nil {
			return session.Session{}, err
		}
		if ok {
			s.sessLock.Lock()
			s.sess = sess
			s.sessLock.Unlock()
			return sess, nil
		}
		s.logger.Info("stored session expired, logging in again")
		s.auth.Invalidate(sess)
	} else if err != nil && !errors.Is(err, vault.ErrNotFound) {
		s.logger.Warn("failed to load stored session", logger.Err(err))
	}

	return s.reauth(ctx)
}

// Search resolves a free-text query to spots, establishing a session first.
func (s *Service) Search(ctx context.Context, query string) ([]spot.Spot, error) {
	sess, err := s.Session(ctx)
	if err != nil {
		return nil, err
	}
	return s.spots.Search(ctx, sess, query)
}

// Fetch acquires the archive series for the spot, model and range.
func (s *Service) Fetch(ctx context.Context, sp spot.Spot, m model.Model,
	dateRange timeseries.DateRange,
) (*series.Result, error) {
	sess, err := s.Session(ctx)
	if err != nil {
		return nil, err
	}
	result, err := s.assembler.FetchRange(ctx, sess, sp, m, dateRange, s.reauth)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Export builds the JSON document for a fetch result, optionally annotated
// with sunrise, sunset and moon phase per day.
func (s *Service) Export(result *series.Result, withAlmanac bool) Document {
	doc := Document{
		Spot:   result.Spot,
		Model:  result.Model,
		Range:  result.Range.String(),
		Series: result.Series,
	}
	if withAlmanac {
		annotations := almanac.For(result.Spot, result.Range)
		doc.Almanac = make([]almanac.Day, 0, len(annotations))
		for _, day := range annotations {
			doc.Almanac = append(doc.Almanac, day)
		}
		sort.Slice(doc.Almanac, func(i, j int) bool {
			return doc.Almanac[i].Date.Before(doc.Almanac[j].Date)
		})
	}
	return doc
}

// reauth performs a password login with the stored credentials. It backs the
// assembler's mid-fetch re-authentication and the vault-miss path of
// Session.
func (s *Service) reauth(ctx context.Context) (session.Session, error) {
	email, password := s.credentials()
	if email == "" || password == "" {
		return session.Session{}, ErrNoSession
	}
	sess, err := s.auth.LoginWithPassword(ctx, email, password)
	if err != nil {
		return session.Session{}, err
	}
	s.storeSession(sess)
	return sess, nil
}

func (s *Service) credentials() (string, string) {
	if s.creds.Email != "" && s.creds.Password != "" {
		return s.creds.Email, s.creds.Password
	}
	if s.creds.Password == "" {
		return "", ""
	}
	// Password given without email: fall back to the persisted username.
	email, err := s.vault.LoadUsername()
	if err != nil {
		return "", ""
	}
	return email, s.creds.Password
}

func (s *Service) storeSession(sess session.Session) {
	s.sessLock.Lock()
	s.sess = sess
	s.sessLock.Unlock()
	if err := s.vault.Save(sess); err != nil {
		s.logger.Warn("failed to persist session", logger.Err(err))
	}
}
