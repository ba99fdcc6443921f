package main

import (
	"context"
	"expvar"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/gablilli/selfhosted-classeviva/apps/api/echo"
	"github.com/gablilli/selfhosted-classeviva/core"
	"github.com/gablilli/selfhosted-classeviva/core/grade"
	"github.com/gablilli/selfhosted-classeviva/core/session"
	"github.com/gablilli/selfhosted-classeviva/services/classeviva"
	logsvc "github.com/gablilli/selfhosted-classeviva/services/logger"
	"github.com/gablilli/selfhosted-classeviva/storage/database"
	inmemdb "github.com/gablilli/selfhosted-classeviva/storage/database/inmem"
	sqlxrepos "github.com/gablilli/selfhosted-classeviva/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	zapLogger, err := logsvc.NewZapLogger("API", conf.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setting up logger: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()
	logger := logsvc.NewRollbarLogger(zapLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")

	dbZap, err := logsvc.NewZapLogger("DB", conf.Debug)
	if err != nil {
		logger.Fatal("setting up db logger", err)
	}
	defer dbZap.Sync()
	dbLogger := logsvc.NewRollbarLogger(dbZap, conf)
	dbLogger.Enable(!conf.Debug && conf.RollbarToken != "")

	// set up DB
	usrRepo, gradeRepo, closer, err := setUpRepos(conf, dbLogger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = closer.Close(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	// set up services
	cvClient, err := classeviva.NewClient(conf.Upstream, nil)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up upstream client: %v", err), err)
	}
	tokens := session.NewTokenIssuer(conf.SecretKey, conf.AppName, conf.Server.JWTExpirationDelta)
	sessionSvc := session.NewService(cvClient.Authenticators(), usrRepo, tokens, logger, conf)
	gradeSvc := grade.NewService(cvClient.Fetchers(), gradeRepo, grade.NewSource(conf.Synthetic), logger, conf)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("upstream").Set(conf.Upstream.BaseURL)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			SessionSvc: sessionSvc,
			GradeSvc:   gradeSvc,
			Tokens:     tokens,
			Validate:   validate,
			Translator: translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// setUpRepos uses postgres when a database is configured, and in-memory storage otherwise.
func setUpRepos(conf *core.Config, logger core.Logger) (session.Repository, grade.Repository, io.Closer, error) {
	if !conf.Database.Configured() {
		logger.Warn("no database configured, caching in memory")
		db := inmemdb.NewDB()
		return inmemdb.NewUserRepository(db), inmemdb.NewGradeRepository(db), nopCloser{}, nil
	}

	db, err := database.Open(context.Background(), conf)
	if err != nil {
		return nil, nil, nil, err
	}
	if err = database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}
	return sqlxrepos.NewUserRepository(db), sqlxrepos.NewGradeRepository(db), db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
