package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // register /debug/pprof on the default mux
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/chihwayi/ecd-materials-generator-sub003/apps/api/echo"
	"github.com/chihwayi/ecd-materials-generator-sub003/core"
	"github.com/chihwayi/ecd-materials-generator-sub003/core/material"
	appfs "github.com/chihwayi/ecd-materials-generator-sub003/fs"
	emailsvc "github.com/chihwayi/ecd-materials-generator-sub003/services/email"
	logsvc "github.com/chihwayi/ecd-materials-generator-sub003/services/logger"
	"github.com/chihwayi/ecd-materials-generator-sub003/services/metrics"
	"github.com/chihwayi/ecd-materials-generator-sub003/storage/blob"
	"github.com/chihwayi/ecd-materials-generator-sub003/storage/database"
	sqlxrepos "github.com/chihwayi/ecd-materials-generator-sub003/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()
	flags := log.LstdFlags | log.Lmicroseconds | log.Lshortfile

	// set up loggers
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "API : ", flags), conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	defer logger.Close(conf.Server.ShutdownTimeout)

	dbLogger := logsvc.NewRollbarLogger(log.New(os.Stdout, "DB : ", flags), conf)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	// set up blob storage
	blobs, err := blob.Open(context.Background(), conf.Blob)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up blob store: %v", err), err)
	}

	// set up services
	mailSvc := emailsvc.NewService(conf, logger)
	recorder := metrics.NewRecorder()
	matSvc, err := material.NewService(material.Deps{
		Repo:    sqlxrepos.NewMaterialRepository(db),
		Blobs:   blobs,
		MailSvc: mailSvc,
		Logger:  logger,
		Conf:    conf,
		Metrics: recorder,
	})
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up material service: %v", err), err)
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	material.InitValidators(validate, translator)

	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("blobDriver").Set(string(blobs.Driver()))

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:        conf,
			Logger:      logger,
			MaterialSvc: matSvc,
			Metrics:     recorder,
			Validate:    validate,
			Translator:  translator,
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

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(context.Background(), conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db, conf.Database.Engine); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
