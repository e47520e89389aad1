// Package web serves the measurement API over HTTP.
package web

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fastjson"

	"github.com/user/netmon/internal/monitor"
	"github.com/user/netmon/internal/util"
)

// Server is the web server.
type Server struct {
	svc    *monitor.Service
	config *util.Config
	port   int
	srv    *http.Server
	parser fastjson.ParserPool
}

// NewServer creates a new web server.
func NewServer(svc *monitor.Service, cfg *util.Config, port int) *Server {
	return &Server{
		svc:    svc,
		config: cfg,
		port:   port,
	}
}

// Handler returns the routed API handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/ping", s.withUser(s.handlePing))
	mux.HandleFunc("POST /api/uptime", s.withUser(s.handleUptime))
	mux.HandleFunc("POST /api/bandwidth", s.withUser(s.handleBandwidth))
	mux.HandleFunc("GET /api/devices", s.withUser(s.handleDevices))
	mux.HandleFunc("GET /api/identity", s.withUser(s.handleIdentity))
	mux.HandleFunc("GET /api/logs/{kind}", s.withUser(s.handleLogs))
	mux.HandleFunc("GET /api/charts/{file}", s.withUser(s.handleChart))
	mux.HandleFunc("GET /report", s.withUser(s.handleReport))

	return requestID(mux)
}

// Start starts the web server and blocks until it is shut down.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		s.srv.Shutdown(ctx)
	}()

	util.Info("Web server starting on port %d", s.port)

	if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}

	return nil
}

// Stop stops the web server.
func (s *Server) Stop() error {
	if s.srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.srv.Shutdown(ctx)
}

// requestID tags every request and response with an X-Request-ID.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", id)

		start := time.Now()
		next.ServeHTTP(w, r)
		util.Debug("[%s] %s %s (%v)", id, r.Method, r.URL.Path, time.Since(start).Round(time.Millisecond))
	})
}
