/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package server hosts the HTTP surface: the liveness check, database
// diagnostics and the item endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/hummer-starter/database"
	"github.com/tomoncle/hummer-starter/items"
	"github.com/tomoncle/hummer-starter/utils"
)

// PortEnv overrides the configured address with 0.0.0.0:<PORT>.
const PortEnv = "PORT"

// DefaultAddr is used when neither PORT nor a configured address is set.
const DefaultAddr = "localhost:5000"

// Diagnostics reports database health and pool statistics for
// /health/db. database.BaseDatabaseFactory satisfies it.
type Diagnostics interface {
	GetHealthStatus(ctx context.Context) *database.HealthStatus
	GetStats() *database.DBStats
}

// Config holds the HTTP listener settings.
type Config struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DefaultConfig listens on DefaultAddr with conservative timeouts.
func DefaultConfig() Config {
	return Config{
		Addr:            DefaultAddr,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// ListenAddr returns 0.0.0.0:<port> when port is set, else configured,
// else DefaultAddr.
func ListenAddr(port, configured string) string {
	if port != "" {
		return net.JoinHostPort("0.0.0.0", port)
	}
	if configured != "" {
		return configured
	}
	return DefaultAddr
}

// Server is the gin host for the health endpoints and the item API.
type Server struct {
	config Config
	items  items.Service
	diag   Diagnostics
	logger *logrus.Logger
	router *gin.Engine
}

// New builds the router. diag may be nil, in which case /health/db
// reports the database as unavailable.
func New(config Config, svc items.Service, diag Diagnostics) *Server {
	s := &Server{
		config: config,
		items:  svc,
		diag:   diag,
		logger: utils.NewLogger("HTTP"),
	}
	s.buildRouter()
	return s
}

func (s *Server) buildRouter() {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(s.logger))

	router.GET("/health", s.liveness)
	router.GET("/health/db", s.databaseHealth)

	api := router.Group("/api/items")
	api.GET("", s.listItems)
	api.POST("", s.addItem)
	api.DELETE("/:id", s.deleteItem)

	s.router = router
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on addr until ctx is cancelled or SIGINT/SIGTERM arrives,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	s.logger.WithField("address", fmt.Sprintf("http://%s", addr)).Info("Starting HTTP server")

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed to start: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	s.logger.Debug("Received shutdown signal, initiating graceful shutdown")

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("Server shutdown completed successfully")
	return nil
}
