// Package debugserver exposes read-only node introspection: an HTTP
// surface over gorilla/mux (tip/level/mempool counters, per-address
// balance) and a gRPC health endpoint so an operator's orchestrator can
// probe liveness the standard way. Neither surface is consensus-critical —
// both are scoped narrowly to read state, never to mutate it, and neither
// is required for the node to run.
package debugserver

import (
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"

	"github.com/gorilla/mux"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/prism-labs/prismd/internal/crypto"
	"github.com/prism-labs/prismd/internal/dag"
	"github.com/prism-labs/prismd/internal/logger"
	"github.com/prism-labs/prismd/internal/mempool"
	"github.com/prism-labs/prismd/internal/utxo"
)

var log = logger.Get("DBUG")

// Server holds the read-only handles this surface reports on.
type Server struct {
	bc    *dag.Blockchain
	mp    *mempool.Mempool
	state *utxo.State

	httpSrv    *http.Server
	grpcSrv    *grpc.Server
	healthSrv  *health.Server
}

// New wires a Server to the node's live state. It does not start listening;
// call ServeHTTP and/or ServeGRPC.
func New(bc *dag.Blockchain, mp *mempool.Mempool, state *utxo.State) *Server {
	return &Server{bc: bc, mp: mp, state: state, healthSrv: health.NewServer()}
}

// ServeHTTP starts the gorilla/mux introspection HTTP server on addr. It
// runs in its own goroutine; errors after startup are logged, not
// returned — a debug surface failing must never affect consensus threads.
func (s *Server) ServeHTTP(addr string) error {
	r := mux.NewRouter()
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/mempool", s.handleMempool).Methods(http.MethodGet)
	r.HandleFunc("/balance/{address}", s.handleBalance).Methods(http.MethodGet)

	s.httpSrv = &http.Server{Addr: addr, Handler: r}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Errorw("debug http server exited", "err", err)
		}
	}()
	return nil
}

// ServeGRPC starts a gRPC server exposing the standard health-checking
// service (grpc_health_v1) on addr, marked SERVING immediately.
func (s *Server) ServeGRPC(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.grpcSrv = grpc.NewServer()
	healthpb.RegisterHealthServer(s.grpcSrv, s.healthSrv)
	s.healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	go func() {
		if err := s.grpcSrv.Serve(ln); err != nil {
			log.Errorw("debug grpc server exited", "err", err)
		}
	}()
	return nil
}

// Close shuts down both surfaces.
func (s *Server) Close(ctx context.Context) {
	if s.httpSrv != nil {
		_ = s.httpSrv.Shutdown(ctx)
	}
	if s.grpcSrv != nil {
		s.grpcSrv.GracefulStop()
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.bc.Snapshot()
	fmt.Fprintf(w, "proposer_tip=%s\nproposer_depth=%d\nvoter_chains=%d\nmempool_size=%d\n",
		snap.ProposerTip.String(), snap.ProposerDepth, s.bc.NumChains(), s.mp.Len())
}

func (s *Server) handleMempool(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "%d\n", s.mp.Len())
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	raw, err := hex.DecodeString(vars["address"])
	if err != nil || len(raw) != crypto.AddressSize {
		http.Error(w, "invalid address", http.StatusBadRequest)
		return
	}
	var addr crypto.H160
	copy(addr[:], raw)
	fmt.Fprintf(w, "%d\n", s.state.Balance(addr))
}
