// Package server exposes the read side over gRPC and an HTTP/JSON
// gateway. The service descriptor is registered by hand with a JSON
// codec; request and response shapes are plain structs, so no
// generated stubs are involved.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"RewardLedger/internal/query"
)

// jsonCodec lets the gRPC server speak JSON payloads for the
// hand-registered service.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string { return "json" }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// AccountStatusRequest asks for one participant's live position.
type AccountStatusRequest struct {
	Account string `json:"account"`
}

// PoolStatusRequest asks for the live pool view.
type PoolStatusRequest struct{}

// ListFlowsRequest asks for historical reward movements.
type ListFlowsRequest struct {
	Account string `json:"account,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

// ListFlowsResponse carries historical reward movements.
type ListFlowsResponse struct {
	Flows []query.Flow `json:"flows"`
}

// ListPeriodsRequest asks for historical period starts.
type ListPeriodsRequest struct {
	Limit int `json:"limit,omitempty"`
}

// ListPeriodsResponse carries historical period starts.
type ListPeriodsResponse struct {
	Periods []query.Period `json:"periods"`
}

// QueryServiceServer is the read-side RPC surface.
type QueryServiceServer interface {
	GetAccountStatus(ctx context.Context, req *AccountStatusRequest) (*query.AccountStatus, error)
	GetPoolStatus(ctx context.Context, req *PoolStatusRequest) (*query.PoolStatus, error)
	ListFlows(ctx context.Context, req *ListFlowsRequest) (*ListFlowsResponse, error)
	ListPeriods(ctx context.Context, req *ListPeriodsRequest) (*ListPeriodsResponse, error)
}

type queryHandler struct {
	queries *query.Service
}

func (h *queryHandler) GetAccountStatus(_ context.Context, req *AccountStatusRequest) (*query.AccountStatus, error) {
	id, err := uuid.Parse(req.Account)
	if err != nil {
		return nil, fmt.Errorf("invalid account %q: %w", req.Account, err)
	}
	status := h.queries.AccountStatus(id)
	return &status, nil
}

func (h *queryHandler) GetPoolStatus(_ context.Context, _ *PoolStatusRequest) (*query.PoolStatus, error) {
	status := h.queries.PoolStatus()
	return &status, nil
}

func (h *queryHandler) ListFlows(ctx context.Context, req *ListFlowsRequest) (*ListFlowsResponse, error) {
	flows, err := h.queries.Flows(ctx, req.Account, req.Limit)
	if err != nil {
		return nil, err
	}
	return &ListFlowsResponse{Flows: flows}, nil
}

func (h *queryHandler) ListPeriods(ctx context.Context, req *ListPeriodsRequest) (*ListPeriodsResponse, error) {
	periods, err := h.queries.Periods(ctx, req.Limit)
	if err != nil {
		return nil, err
	}
	return &ListPeriodsResponse{Periods: periods}, nil
}

func unaryHandler[Req any, Resp any](method func(context.Context, *Req) (*Resp, error)) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(_ interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		req := new(Req)
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return method(ctx, req)
		}
		return interceptor(ctx, req, &grpc.UnaryServerInfo{FullMethod: "/rewardledger.v1.QueryService"}, func(ctx context.Context, r interface{}) (interface{}, error) {
			return method(ctx, r.(*Req))
		})
	}
}

func serviceDesc(h *queryHandler) *grpc.ServiceDesc {
	return &grpc.ServiceDesc{
		ServiceName: "rewardledger.v1.QueryService",
		HandlerType: (*QueryServiceServer)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "GetAccountStatus", Handler: unaryHandler(h.GetAccountStatus)},
			{MethodName: "GetPoolStatus", Handler: unaryHandler(h.GetPoolStatus)},
			{MethodName: "ListFlows", Handler: unaryHandler(h.ListFlows)},
			{MethodName: "ListPeriods", Handler: unaryHandler(h.ListPeriods)},
		},
	}
}

// Server hosts the gRPC endpoint and its HTTP/JSON gateway.
type Server struct {
	log     zerolog.Logger
	grpcSrv *grpc.Server
	httpSrv *http.Server
	health  *health.Server
}

// New builds both transports over the query service.
func New(queries *query.Service, httpPort int, log zerolog.Logger) *Server {
	h := &queryHandler{queries: queries}

	grpcSrv := grpc.NewServer(grpc.ForceServerCodec(jsonCodec{}))
	grpcSrv.RegisterService(serviceDesc(h), h)
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)
	reflection.Register(grpcSrv)

	mux := runtime.NewServeMux()
	registerGateway(mux, h, log)

	return &Server{
		log:     log,
		grpcSrv: grpcSrv,
		httpSrv: &http.Server{
			Addr:              fmt.Sprintf(":%d", httpPort),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		health: healthSrv,
	}
}

func registerGateway(mux *runtime.ServeMux, h *queryHandler, log zerolog.Logger) {
	writeJSON := func(w http.ResponseWriter, v interface{}, err error) {
		if err != nil {
			log.Warn().Err(err).Msg("gateway request failed")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(v)
	}

	mux.HandlePath("GET", "/v1/accounts/{account}", func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		resp, err := h.GetAccountStatus(r.Context(), &AccountStatusRequest{Account: params["account"]})
		writeJSON(w, resp, err)
	})
	mux.HandlePath("GET", "/v1/pool", func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		resp, err := h.GetPoolStatus(r.Context(), &PoolStatusRequest{})
		writeJSON(w, resp, err)
	})
	mux.HandlePath("GET", "/v1/flows", func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		resp, err := h.ListFlows(r.Context(), &ListFlowsRequest{
			Account: r.URL.Query().Get("account"),
			Limit:   limit,
		})
		writeJSON(w, resp, err)
	})
	mux.HandlePath("GET", "/v1/periods", func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		resp, err := h.ListPeriods(r.Context(), &ListPeriodsRequest{Limit: limit})
		writeJSON(w, resp, err)
	})
}

// ServeGRPC blocks serving gRPC on port.
func (s *Server) ServeGRPC(port int) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("listen grpc :%d: %w", port, err)
	}
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.log.Info().Str("addr", lis.Addr().String()).Msg("grpc server listening")
	return s.grpcSrv.Serve(lis)
}

// ServeHTTP blocks serving the gateway.
func (s *Server) ServeHTTP() error {
	s.log.Info().Str("addr", s.httpSrv.Addr).Msg("gateway listening")
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("gateway: %w", err)
	}
	return nil
}

// Shutdown stops both transports.
func (s *Server) Shutdown(ctx context.Context) {
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	done := make(chan struct{})
	go func() {
		s.grpcSrv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.grpcSrv.Stop()
	}
	_ = s.httpSrv.Shutdown(ctx)
}
