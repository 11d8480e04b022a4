/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: server.go
Description: HTTP API for FVM. Exposes the mvt-android subcommands, device listing,
VirusTotal key configuration, scan history, health and metrics over JSON.
*/

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kleascm/fvm/pkg/history"
	"github.com/kleascm/fvm/pkg/logging"
	"github.com/kleascm/fvm/pkg/mobile"
	"github.com/kleascm/fvm/pkg/monitoring"
	"github.com/kleascm/fvm/pkg/mvt"
	"github.com/sirupsen/logrus"
)

const (
	defaultMaxBody  = 1 << 20
	shutdownTimeout = 10 * time.Second
	// historyLimit caps GET /api/scans
	historyLimit = 50
)

// Scanner runs mvt-android subcommands
type Scanner interface {
	CheckADB(ctx context.Context, opts mvt.CheckADBOptions) (*mvt.Scan, error)
	CheckAndroidQF(ctx context.Context, opts mvt.CheckAndroidQFOptions) (*mvt.Scan, error)
	CheckBackup(ctx context.Context, opts mvt.CheckBackupOptions) (*mvt.Scan, error)
	CheckBugreport(ctx context.Context, opts mvt.CheckBugreportOptions) (*mvt.Scan, error)
	CheckIOCs(ctx context.Context, opts mvt.CheckIOCsOptions) (*mvt.Scan, error)
	DownloadAPKs(ctx context.Context, opts mvt.DownloadAPKsOptions) (*mvt.Scan, error)
	DownloadIOCs(ctx context.Context) (*mvt.Scan, error)
}

// KeyWriter persists configuration values such as the VirusTotal key
type KeyWriter interface {
	Set(key, value string) error
}

// Deps are the collaborators of the server. Metrics may be nil.
type Deps struct {
	Scanner     Scanner
	Devices     mobile.DeviceController
	Keys        KeyWriter
	History     history.Store
	Metrics     *monitoring.Metrics
	MetricsPath string
	MaxBody     int64
}

// Server routes HTTP requests to the services
type Server struct {
	deps   Deps
	logger logrus.FieldLogger
	mux    *http.ServeMux
}

// NewServer creates a server and registers its routes
func NewServer(deps Deps, logger logrus.FieldLogger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if deps.MaxBody <= 0 {
		deps.MaxBody = defaultMaxBody
	}
	if deps.MetricsPath == "" {
		deps.MetricsPath = "/metrics"
	}
	s := &Server{
		deps:   deps,
		logger: logger.WithField(logging.ComponentField, "api"),
		mux:    http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.handle("POST /api/check-adb", s.handleCheckADB)
	s.handle("POST /api/check-androidqf", s.handleCheckAndroidQF)
	s.handle("POST /api/check-backup", s.handleCheckBackup)
	s.handle("POST /api/check-bugreport", s.handleCheckBugreport)
	s.handle("POST /api/check-iocs", s.handleCheckIOCs)
	s.handle("POST /api/download-apks", s.handleDownloadAPKs)
	s.handle("GET /api/download-iocs", s.handleDownloadIOCs)
	s.handle("POST /api/download-iocs", s.handleDownloadIOCs)

	s.handle("GET /api/devices", s.handleDevices)
	s.handle("GET /api/devices/{serial}", s.handleDevice)

	s.handle("POST /api/config/set-vt-key", s.handleSetVTKey)

	s.handle("GET /api/scans", s.handleScans)
	s.handle("GET /api/scans/{id}", s.handleScan)

	s.handle("GET /healthz", s.handleHealthz)
	if s.deps.Metrics != nil {
		s.mux.Handle("GET "+s.deps.MetricsPath, s.deps.Metrics.Handler())
	}

	s.mux.HandleFunc("/api/", s.handleNotFound)
}

// handle registers h under pattern with per-route instrumentation
func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.Handle(pattern, s.instrument(pattern, h))
}

// Handler returns the root handler with the request middleware applied
func (s *Server) Handler() http.Handler {
	return s.recoverer(s.requestID(s.requireJSON(s.mux)))
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("API server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("Shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
