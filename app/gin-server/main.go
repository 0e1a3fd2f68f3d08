package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/yoointerview/config"
	"github.com/yoockh/yoointerview/internal/api/handlers"
	"github.com/yoockh/yoointerview/internal/api/middleware"
	"github.com/yoockh/yoointerview/internal/api/routes"
	"github.com/yoockh/yoointerview/internal/bootstrap"
	"github.com/yoockh/yoointerview/internal/interview"
	"github.com/yoockh/yoointerview/internal/logger"
)

func main() {
	configFile := flag.String("config", "", "path to interview.yaml")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.New("info", "").WithError(err).Fatal("config error")
	}
	log := logger.New(cfg.LogLevel, cfg.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("startup failed")
	}
	defer app.Close()

	if err := app.Start(ctx); err != nil {
		log.WithError(err).Fatal("background workers failed to start")
	}

	if !cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.JWTSecret == "" || cfg.AdminPasswordHash == "" {
		log.Warn("JWT_SECRET or ADMIN_PASSWORD_HASH unset, admin endpoints will reject every login")
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))

	routes.RegisterRoutes(r, routes.Deps{
		Auth: handlers.NewAuthHandler(handlers.AuthConfig{
			Admin:     app.Admin(),
			JWTSecret: cfg.JWTSecret,
			JWTIssuer: cfg.JWTIssuer,
			TokenTTL:  cfg.JWTTTL,
		}, log),
		Admin:     handlers.NewAdminHandler(app.Invitations, app.Sessions, app.Evaluations),
		Interview: handlers.NewInterviewHandler(app.Sessions, app.Questions, app.Evaluations, app.Transcription, log),
		WS: handlers.NewWSHandler(handlers.WSDeps{
			Sessions:       app.Sessions,
			Questions:      app.Questions,
			Evaluations:    app.Evaluations,
			Transcription:  app.Transcription,
			Redis:          app.Redis,
			Config:         interview.Config{ThinkingTime: cfg.ThinkingTime},
			AllowedOrigins: cfg.AllowedOrigins,
		}, log),
		JWTSecret:   cfg.JWTSecret,
		JWTIssuer:   cfg.JWTIssuer,
		Redis:       app.Redis,
		Development: cfg.Development(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown incomplete")
	}
}
