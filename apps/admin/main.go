package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

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
	os.Exit(run())
}

func run() int {
	conf := core.NewConfig()

	zapLogger, err := logsvc.NewZapLogger("ADMIN", conf.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setting up logger: %v\n", err)
		return 1
	}
	defer zapLogger.Sync()
	logger := logsvc.NewRollbarLogger(zapLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")

	ctx := context.Background()

	// set up DB
	var (
		sqlDB     *sql.DB
		usrRepo   session.Repository
		gradeRepo grade.Repository
	)
	if conf.Database.Configured() {
		db, err := database.Open(ctx, conf)
		if err != nil {
			logger.Error(fmt.Sprintf("setting up database: %v", err), err)
			return 1
		}
		defer db.Close()
		sqlDB = db.DB
		usrRepo, gradeRepo = sqlxrepos.NewUserRepository(db), sqlxrepos.NewGradeRepository(db)
	} else {
		logger.Warn("no database configured, nothing will outlive this command")
		mem := inmemdb.NewDB()
		usrRepo, gradeRepo = inmemdb.NewUserRepository(mem), inmemdb.NewGradeRepository(mem)
	}

	// set up services
	cvClient, err := classeviva.NewClient(conf.Upstream, nil)
	if err != nil {
		logger.Error(fmt.Sprintf("setting up upstream client: %v", err), err)
		return 1
	}
	tokens := session.NewTokenIssuer(conf.SecretKey, conf.AppName, conf.Server.JWTExpirationDelta)
	sessionSvc := session.NewService(cvClient.Authenticators(), usrRepo, tokens, logger, conf)
	gradeSvc := grade.NewService(cvClient.Fetchers(), gradeRepo, grade.NewSource(conf.Synthetic), logger, conf)

	// start CLI
	cli := newCommandLine(sqlDB, sessionSvc, gradeSvc, os.Stdout)
	if err = cli.run(ctx, os.Args); err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		return 1
	}
	return 0
}
