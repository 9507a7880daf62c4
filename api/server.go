package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ridematch/config"
	"ridematch/pkg/logger"
	"ridematch/service"
)

const shutdownTimeout = 10 * time.Second

// HealthFunc reports whether the backing store is reachable.
type HealthFunc func(ctx context.Context) error

type Server struct {
	cfg    config.Config
	svc    service.IServiceManager
	tokens *TokenManager
	health HealthFunc
	log    logger.ILogger
	engine *gin.Engine
}

func NewServer(cfg config.Config, svc service.IServiceManager, health HealthFunc, log logger.ILogger) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:    cfg,
		svc:    svc,
		tokens: NewTokenManager(cfg.JWTSecret, cfg.JWTTTL),
		health: health,
		log:    log,
	}

	r := gin.New()
	r.Use(gin.Recovery(), cors(), requestID(), observe(log))
	s.routes(r)
	s.engine = r
	return s
}

func (s *Server) routes(r *gin.Engine) {
	r.GET("/healthz", s.healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := r.Group("/auth")
	{
		auth.POST("/register", s.register)
		auth.POST("/login", s.login)
	}

	api := r.Group("/api", s.authenticate())
	{
		api.GET("/me", s.me)

		api.POST("/requests", s.createRequest)
		api.POST("/requests/:id/cancel", s.cancelRequest)
		api.GET("/passengers/me/current", s.currentForPassenger)
		api.GET("/passengers/me/history", s.history)
		api.POST("/cancel/:id", s.cancel)

		api.GET("/requests/open", s.listOpen)
		api.POST("/requests/:id/accept", s.accept)
		api.POST("/requests/:id/reject", s.reject)

		api.PATCH("/rides/:id/status", s.updateStatus)
		api.GET("/drivers/me/current", s.currentForDriver)
		api.GET("/drivers/me/rides", s.driverRides)
		api.PATCH("/drivers/me/availability", s.setAvailability)
		api.GET("/drivers/me/balance", s.balance)
		api.GET("/drivers/me/payments", s.payments)
	}
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.HTTPPort),
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", logger.String("addr", srv.Addr))
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
