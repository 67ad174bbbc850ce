package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/peakform/funnel/apps/api/echo"
	"github.com/peakform/funnel/core"
	"github.com/peakform/funnel/core/funnel"
	"github.com/peakform/funnel/core/session"
	"github.com/peakform/funnel/core/tenant"
	emailsvc "github.com/peakform/funnel/services/email"
	dummyenroll "github.com/peakform/funnel/services/enrollment/dummy"
	restenroll "github.com/peakform/funnel/services/enrollment/rest"
	logsvc "github.com/peakform/funnel/services/logger"
	"github.com/peakform/funnel/storage/database"
	dummydb "github.com/peakform/funnel/storage/database/dummy"
	mongodb "github.com/peakform/funnel/storage/database/mongo"
	sqlxrepos "github.com/peakform/funnel/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.Conf

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up repositories
	repos, cleanup, err := setUpRepos(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}
	defer cleanup()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	var enrollSvc core.EnrollmentService
	if conf.Enrollment.BaseURL != "" {
		enrollSvc = restenroll.NewService(logger)
	} else {
		enrollSvc = dummyenroll.NewService()
	}

	funnelSvc := funnel.NewService(repos.funnel)
	sessionSvc := session.NewService(repos.session, funnelSvc, enrollSvc, mailSvc, logger)
	tenantSvc := tenant.NewService(repos.tenant)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	funnel.RegisterValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddr, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Logger:     logger,
			FunnelSvc:  funnelSvc,
			SessionSvc: sessionSvc,
			TenantSvc:  tenantSvc,
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
	case err := <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

type appRepos struct {
	funnel  funnel.Repository
	session session.Repository
	tenant  tenant.Repository
}

func setUpRepos(conf *core.Config) (appRepos, func(), error) {
	noop := func() {}

	switch conf.Database.Engine {
	case "postgres":
		if err := database.CreateIfNotExist(conf); err != nil {
			return appRepos{}, noop, err
		}
		db, err := database.Open(conf)
		if err != nil {
			return appRepos{}, noop, err
		}
		if err = database.Migrate(db); err != nil {
			_ = db.Close()
			return appRepos{}, noop, err
		}
		xdb := sqlx.NewDb(db, "postgres")
		return appRepos{
			funnel:  sqlxrepos.NewFunnelRepository(xdb),
			session: sqlxrepos.NewSessionRepository(xdb),
			tenant:  sqlxrepos.NewTenantRepository(xdb),
		}, func() { _ = db.Close() }, nil

	case "mongo":
		db, err := mongodb.Open(conf)
		if err != nil {
			return appRepos{}, noop, err
		}
		return appRepos{
			funnel:  mongodb.NewFunnelRepository(db),
			session: mongodb.NewSessionRepository(db),
			tenant:  mongodb.NewTenantRepository(db),
		}, func() { _ = db.Close(context.Background()) }, nil

	default: // in-memory; DEV|TEST only
		db, err := dummydb.Open()
		if err != nil {
			return appRepos{}, noop, err
		}
		return appRepos{
			funnel:  dummydb.NewFunnelRepository(db),
			session: dummydb.NewSessionRepository(db),
			tenant:  dummydb.NewTenantRepository(db),
		}, noop, nil
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
