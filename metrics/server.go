package metrics

import (
	"context"
	"net"
	"net/http"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	gethmetrics "github.com/ethereum/go-ethereum/metrics"
	"github.com/ethereum/go-ethereum/metrics/exp"
)

// Server serves the metrics/health HTTP endpoint and can be started and
// stopped independently of the rest of the conductor process.
type Server struct {
	mu sync.Mutex

	endpoint string
	srv      *http.Server
}

// NewServer builds a Server bound to endpoint ("" disables it).
func NewServer(endpoint string) *Server {
	return &Server{endpoint: endpoint}
}

// Start starts the metrics server if it is enabled.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.endpoint == "" {
		return nil
	}

	exp.Exp(gethmetrics.DefaultRegistry)
	http.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	lis, err := net.Listen("tcp", s.endpoint)
	if err != nil {
		return err
	}

	s.srv = &http.Server{Handler: http.DefaultServeMux}
	go func() {
		if err := s.srv.Serve(lis); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server stopped unexpectedly", "err", err)
		}
	}()
	log.Info("metrics server started", "endpoint", s.endpoint)
	return nil
}

// Stop stops the metrics server.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv == nil {
		return nil
	}
	err := s.srv.Shutdown(context.Background())
	log.Info("metrics server stopped", "endpoint", s.endpoint)
	return err
}
