package main

import (
	"context"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/peakform/funnel/core"
	"github.com/peakform/funnel/core/funnel"
	"github.com/peakform/funnel/core/tenant"
	"github.com/peakform/funnel/storage/database"
	dummydb "github.com/peakform/funnel/storage/database/dummy"
	mongodb "github.com/peakform/funnel/storage/database/mongo"
	sqlxrepos "github.com/peakform/funnel/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	cli, cleanup, err := newCommandLine(core.Conf)
	errAndDie(err)
	defer cleanup()

	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func newCommandLine(conf *core.Config) (*commandLine, func(), error) {
	noop := func() {}

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	funnel.RegisterValidators(validate, translator)

	cli := &commandLine{
		conf:       conf,
		validate:   validate,
		translator: translator,
	}

	switch conf.Database.Engine {
	case "postgres":
		db, err := database.Open(conf)
		if err != nil {
			return nil, noop, err
		}
		if err = database.Ping(db); err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		xdb := sqlx.NewDb(db, "postgres")
		cli.db = db
		cli.funnelSvc = funnel.NewService(sqlxrepos.NewFunnelRepository(xdb))
		cli.tenantSvc = tenant.NewService(sqlxrepos.NewTenantRepository(xdb))
		return cli, func() { _ = db.Close() }, nil

	case "mongo":
		db, err := mongodb.Open(conf)
		if err != nil {
			return nil, noop, err
		}
		cli.funnelSvc = funnel.NewService(mongodb.NewFunnelRepository(db))
		cli.tenantSvc = tenant.NewService(mongodb.NewTenantRepository(db))
		return cli, func() { _ = db.Close(context.Background()) }, nil

	default: // in-memory; DEV|TEST only
		db, err := dummydb.Open()
		if err != nil {
			return nil, noop, err
		}
		cli.funnelSvc = funnel.NewService(dummydb.NewFunnelRepository(db))
		cli.tenantSvc = tenant.NewService(dummydb.NewTenantRepository(db))
		return cli, noop, nil
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
