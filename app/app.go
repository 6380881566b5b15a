// Package app wires configuration, storage and HTTP handlers into one value
// that owns their lifetimes.
package app

import (
	"cafes/config"
	"cafes/controller"
	"cafes/database"
	"cafes/repository"
	"cafes/route"
	"cafes/utils"
	"cafes/view"
	"context"
	"errors"
	"fmt"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"log"
	"net/http"
	"time"
)

type App struct {
	cfg    config.Config
	db     *gorm.DB
	router *gin.Engine
}

func New(cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	csrf, err := utils.NewCSRF(cfg.SecretKey, cfg.CSRFTTL)
	if err != nil {
		return nil, err
	}
	tmpl, err := view.Load()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}

	cafes := controller.NewCafeController(repository.NewCafeRepository(db), csrf, controller.Options{
		Currency:     cfg.CurrencySymbol,
		CSRFEnabled:  cfg.CSRFEnabled,
		SecureCookie: cfg.CookieSecure,
	})

	router := gin.New()
	router.Use(utils.RequestLogger(), gin.Recovery())
	router.Use(cors.New(corsConfig(cfg.AllowedOrigins)))
	router.SetHTMLTemplate(tmpl)
	route.CafeRoutes(router, cafes)
	log.Println("Routes configured successfully")

	return &App{cfg: cfg, db: db, router: router}, nil
}

func (a *App) Handler() http.Handler {
	return a.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           a.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutdown signal received, shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Println("Server stopped gracefully")
	return nil
}

func (a *App) Close() error {
	return database.Close(a.db)
}

func corsConfig(extra []string) cors.Config {
	origins := append([]string{"http://localhost:3000"}, extra...)
	return cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", utils.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", utils.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}
