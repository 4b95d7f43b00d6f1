package main

import (
	"context"
	"log"
	"os"

	"github.com/trezcool/registrar/core"
	"github.com/trezcool/registrar/core/catalog"
	"github.com/trezcool/registrar/core/enrollment"
	emailsvc "github.com/trezcool/registrar/services/email"
	logsvc "github.com/trezcool/registrar/services/logger"
	"github.com/trezcool/registrar/storage/database"
	sqlxrepos "github.com/trezcool/registrar/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	if err := conf.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	z, err := logsvc.NewZap(conf)
	if err != nil {
		log.Fatalf("setting up zap: %v", err)
	}
	logger := logsvc.NewZapLogger(z.Named("admin"))
	defer func() { _ = logger.Sync() }()

	// set up DB
	if err = database.CreateIfNotExist(conf); err != nil {
		logger.Fatal("creating database", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer db.Close()

	// the catalog and ledger commands need an up to date schema
	if len(os.Args) > 1 && os.Args[1] != "migrate" {
		if err = database.Migrate(context.Background(), db.DB, conf.Database.Engine); err != nil {
			logger.Fatal("migrating database", err)
		}
	}

	// set up services; operators get no mails
	validate, _ := core.NewValidator()
	catalogSvc := catalog.NewService(sqlxrepos.NewOfferingRepository(db), validate, logger)
	enrSvc := enrollment.NewService(
		sqlxrepos.NewEnrollmentRepository(db),
		catalogSvc,
		emailsvc.NewConsoleService(logger, conf),
		logger,
		conf,
	)

	// start CLI
	cli := commandLine{
		conf:       conf,
		db:         db,
		catalogSvc: catalogSvc,
		enrSvc:     enrSvc,
		out:        os.Stdout,
		outFd:      int(os.Stdout.Fd()),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		_ = logger.Sync()
		_ = db.Close()
		os.Exit(1)
	}
}
