// Package app boots the server: configuration, storage, notification
// backend and HTTP routes.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/cliquepay/cliqued/internal/clique"
	"github.com/cliquepay/cliqued/internal/config"
	"github.com/cliquepay/cliqued/internal/db"
	"github.com/cliquepay/cliqued/internal/http/api"
	"github.com/cliquepay/cliqued/internal/ident"
	"github.com/cliquepay/cliqued/internal/media"
	"github.com/cliquepay/cliqued/internal/notify"
)

// Migrate opens the database and runs migrations.
func Migrate(cfg config.Config) error {
	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	return db.Migrate(conn)
}

// RunServer boots the API server and blocks until ctx is cancelled or
// the listener fails.
func RunServer(ctx context.Context, cfg config.Config) error {
	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	ids := ident.UUID{}

	var broker notify.Broker
	if cfg.Redis.Addr != "" {
		redisBroker, errRedis := notify.NewRedisBroker(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if errRedis != nil {
			return errRedis
		}
		defer redisBroker.Close()
		broker = redisBroker
		log.WithField("addr", cfg.Redis.Addr).Info("notification channel: redis")
	} else {
		broker = notify.NewMemoryBroker()
		log.Info("notification channel: in-process")
	}

	uploads, errStore := media.NewDiskStore(cfg.Media.Dir, ids)
	if errStore != nil {
		return errStore
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	api.RegisterRoutes(engine, api.Deps{
		DB:        conn,
		JWT:       cfg.JWT,
		IDs:       ids,
		Broker:    broker,
		Uploads:   uploads,
		Directory: clique.NewDirectory(conn, ids),
		Members:   clique.NewMembership(conn, ids),
		Evaluator: clique.NewEvaluator(conn),
	})

	// Stored uploads are served back from the media directory.
	engine.Static("/media", cfg.Media.Dir)

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case errServe := <-errCh:
		if errors.Is(errServe, http.ErrServerClosed) {
			return nil
		}
		return errServe
	}
}

// requestLogger logs each request through logrus.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("request")
	}
}
