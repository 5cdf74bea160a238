// SPDX-FileCopyrightText: The wgarchive authors
//
// SPDX-License-Identifier: MIT

// Package main implements the wgarchive command line client.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/askelund/wgarchive/internal/config"
	"github.com/askelund/wgarchive/internal/logger"
	"github.com/askelund/wgarchive/internal/model"
	"github.com/askelund/wgarchive/internal/presenter"
	"github.com/askelund/wgarchive/internal/service"
	"github.com/askelund/wgarchive/internal/spot"
	"github.com/askelund/wgarchive/internal/timeseries"
)

const (
	envEmail    = "WGARCHIVE_EMAIL"
	envPassword = "WGARCHIVE_PASSWORD"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGABRT,
		os.Interrupt)
	defer cancel()

	// Bootstrap logger until the configured level is known
	log := logger.New(slog.LevelError)

	confPath := flag.String("config", "", "path to the config file")
	searchQuery := flag.String("search", "", "search for spots matching the query")
	listModels := flag.Bool("models", false, "list the supported weather models")
	spotID := flag.Int("spot", 0, "spot ID to fetch archive data for")
	modelID := flag.Int("model", model.Default().ID, "weather model ID")
	fromDate := flag.String("from", "", "range start (YYYY-MM-DD or YYYY-MM)")
	toDate := flag.String("to", "", "range end (YYYY-MM-DD or YYYY-MM), defaults to -from")
	doLogin := flag.Bool("login", false, "log in with "+envEmail+"/"+envPassword+" and store the session")
	tokens := flag.String("tokens", "", "adopt a session token pair (id_user:login_md5)")
	doLogout := flag.Bool("logout", false, "drop the stored session")
	watch := flag.Bool("watch", false, "keep running and re-fetch the current day periodically")
	withAlmanac := flag.Bool("almanac", false, "annotate the export with sunrise, sunset and moon phase")
	showVersion := flag.Bool("version", false, "print version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("wgarchive %s (commit %s, built %s)\n", version, commit, date)
		return
	}

	conf, err := loadConfig(*confPath)
	if err != nil {
		log.Error("failed to load config", logger.Err(err))
		os.Exit(1)
	}
	log = logger.New(conf.LogLevel)

	// Credentials come from the environment or an optional .env file, never
	// from flags, so they stay out of shell history.
	if err = godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Debug("no .env file loaded", logger.Err(err))
	}
	creds := service.Credentials{
		Email:    os.Getenv(envEmail),
		Password: os.Getenv(envPassword),
	}

	serv, err := service.New(conf, log, creds)
	if err != nil {
		log.Error("failed to initialize service", logger.Err(err))
		os.Exit(1)
	}

	if err = run(ctx, serv, log, creds, options{
		search:      *searchQuery,
		listModels:  *listModels,
		spotID:      *spotID,
		modelID:     *modelID,
		from:        *fromDate,
		to:          *toDate,
		login:       *doLogin,
		tokens:      *tokens,
		logout:      *doLogout,
		watch:       *watch,
		withAlmanac: *withAlmanac,
	}); err != nil {
		log.Error("command failed", logger.Err(err))
		os.Exit(1)
	}
}

type options struct {
	search      string
	listModels  bool
	spotID      int
	modelID     int
	from        string
	to          string
	login       bool
	tokens      string
	logout      bool
	watch       bool
	withAlmanac bool
}

func run(ctx context.Context, serv *service.Service, log *logger.Logger,
	creds service.Credentials, opts options,
) error {
	switch {
	case opts.logout:
		if err := serv.Logout(); err != nil {
			return fmt.Errorf("failed to drop stored session: %w", err)
		}
		fmt.Fprintln(os.Stderr, "stored session dropped")
		return nil
	case opts.login:
		if creds.Email == "" || creds.Password == "" {
			return fmt.Errorf("set %s and %s to log in", envEmail, envPassword)
		}
		if err := serv.Login(ctx, creds.Email, creds.Password); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "logged in, session stored")
		return nil
	case opts.tokens != "":
		authToken, loginDigest, found := strings.Cut(opts.tokens, ":")
		if !found {
			return fmt.Errorf("invalid token pair, expected id_user:login_md5")
		}
		if err := serv.LoginTokens(authToken, loginDigest); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "token session stored")
		return nil
	case opts.listModels:
		fmt.Print(presenter.ModelTable(model.All()))
		return nil
	case opts.search != "":
		spots, err := serv.Search(ctx, opts.search)
		if err != nil {
			return err
		}
		fmt.Print(presenter.SpotTable(spots))
		return nil
	}

	// Everything below fetches archive data and needs a spot and model.
	if opts.spotID == 0 {
		flag.Usage()
		return fmt.Errorf("no spot given, use -search to find one and -spot to select it")
	}
	m, ok := model.ByID(opts.modelID)
	if !ok {
		return fmt.Errorf("unknown model ID %d, see -models", opts.modelID)
	}
	sp := spot.Spot{ID: opts.spotID}

	if opts.watch {
		log.Info("starting watch", "spot", sp.ID, "model", m.Label)
		return serv.Watch(ctx, sp, m, os.Stdout)
	}

	if opts.from == "" {
		return fmt.Errorf("no range given, use -from (and optionally -to)")
	}
	to := opts.to
	if to == "" {
		to = opts.from
	}
	dateRange, err := timeseries.ParseRange(opts.from, to)
	if err != nil {
		return err
	}

	result, err := serv.Fetch(ctx, sp, m, dateRange)
	if err != nil {
		return err
	}
	fmt.Fprint(os.Stderr, presenter.Summary(result))

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(serv.Export(result, opts.withAlmanac))
}

func loadConfig(confPath string) (*config.Config, error) {
	if confPath != "" {
		return config.NewFromFile(filepath.Dir(confPath), filepath.Base(confPath))
	}
	return config.New()
}
