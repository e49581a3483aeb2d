/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package operations serves the SDK's metrics, health and log level endpoints.
package operations

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/hyperledger/fabric-lib-go/healthz"
	"github.com/pkg/errors"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hyperledger/fabric-client-go/pkg/common/logging"
)

var logger = logging.NewLogger("fabsdk/operations")

const shutdownTimeout = 5 * time.Second

// Options configures the operations system
type Options struct {
	// ListenAddress is host:port. Port 0 picks a free port.
	ListenAddress string
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prom.Gatherer
	// Logging backs /logspec. Nil disables the endpoint.
	Logging *logging.Provider
	// HealthTimeout bounds a health check run
	HealthTimeout time.Duration
}

// System is the operations HTTP server
type System struct {
	options Options
	router  *mux.Router
	health  *healthz.HealthHandler

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	done     chan struct{}
}

// NewSystem creates the operations system and its routes. It does not listen
// until Start is called.
func NewSystem(o Options) *System {
	s := &System{
		options: o,
		router:  mux.NewRouter(),
		health:  healthz.NewHealthHandler(),
	}
	if o.HealthTimeout > 0 {
		s.health.SetTimeout(o.HealthTimeout)
	}

	s.router.Handle("/healthz", s.health)
	if o.Gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(o.Gatherer, promhttp.HandlerOpts{}))
	} else {
		logger.Info("metrics disabled")
	}
	if o.Logging != nil {
		s.router.Handle("/logspec", &SpecHandler{Logging: o.Logging}).Methods(http.MethodGet, http.MethodPut)
	}
	return s
}

// Handler returns the router serving every endpoint
func (s *System) Handler() http.Handler {
	return s.router
}

// RegisterChecker adds a component health check
func (s *System) RegisterChecker(component string, checker healthz.HealthChecker) error {
	return s.health.RegisterChecker(component, checker)
}

// DeregisterChecker removes a component health check
func (s *System) DeregisterChecker(component string) {
	s.health.DeregisterChecker(component)
}

// Start listens on the configured address and serves in the background
func (s *System) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return errors.New("operations system already started")
	}

	listener, err := net.Listen("tcp", s.options.ListenAddress)
	if err != nil {
		return errors.Wrapf(err, "listening on %s failed", s.options.ListenAddress)
	}

	s.listener = listener
	s.server = &http.Server{Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	s.done = make(chan struct{})

	go func(server *http.Server, done chan struct{}) {
		defer close(done)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Operations server stopped: %s", err)
		}
	}(s.server, s.done)

	logger.Infof("Operations server listening on %s", listener.Addr())
	return nil
}

// Addr returns the address the system listens on, or the configured address
// before Start
func (s *System) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.options.ListenAddress
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down. Stopping a system that is not started is a no-op.
func (s *System) Stop() error {
	s.mu.Lock()
	server, done := s.server, s.done
	s.server, s.listener = nil, nil
	s.mu.Unlock()

	if server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := server.Shutdown(ctx)
	<-done
	return err
}
