package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"tagframe/coco"
	"tagframe/controllers"
	"tagframe/metrics"
	"tagframe/models"
	"tagframe/sessions"
	"tagframe/store"
	"tagframe/uploads"
	"tagframe/utils"
)

const sessionCleanupInterval = 5 * time.Minute

func serveCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(flags)
			if err != nil {
				return err
			}
			return serve(config)
		},
	}
}

// ensureSecret Fill in a random signing secret when none is configured.
// Tokens signed with it stop working on restart.
func ensureSecret(config *utils.Config) error {
	if config.Auth.JwtSecret != "" {
		return nil
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Errorf("generate jwt secret: %w", err)
	}
	config.Auth.JwtSecret = hex.EncodeToString(buf)
	log.Warn("TAGFRAME_JWT_SECRET is not set, using a random secret for this run")
	return nil
}

func serve(config *utils.Config) error {
	log.Info(fmt.Sprintf("Starting tagframe %s...", Version))

	if err := ensureSecret(config); err != nil {
		return err
	}

	db, err := models.ConnectDataBase(config.Database)
	if err != nil {
		return err
	}
	factory := store.NewDaoFactory(db)

	files, err := uploads.NewStore(config.Storage.UploadDir, config.Storage.LqipSize, config.Storage.MaxPixels)
	if err != nil {
		return err
	}

	registry := sessions.NewRegistry(sessionCleanupInterval)
	defer registry.Stop()

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(promRegistry, registry.Len)
	if err != nil {
		return err
	}

	r := controllers.NewRouter(controllers.Dependencies{
		Config:   config,
		DB:       db,
		Factory:  factory,
		Sessions: registry,
		Uploads:  files,
		Exporter: coco.NewExporter(factory.Graph(), config.Export, Version),
		Metrics:  m,
		Version:  Version,
	})

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%s", config.Server.Port),
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		// Exports of large projects take a while to stream.
		WriteTimeout: 2 * time.Minute,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info(fmt.Sprintf("Listening on %s", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("listen: %w", err)
	case <-quit:
	}
	log.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	log.Info("Server exiting")
	return nil
}
