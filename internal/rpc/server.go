package rpc

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/danielpatrickdp/recon-engine/internal/grid"
	"github.com/danielpatrickdp/recon-engine/internal/heatmap"
	"github.com/danielpatrickdp/recon-engine/internal/mathx"
	"github.com/danielpatrickdp/recon-engine/internal/montecarlo"
	"github.com/danielpatrickdp/recon-engine/internal/policy"
	"github.com/danielpatrickdp/recon-engine/internal/replay"
	"github.com/danielpatrickdp/recon-engine/internal/risk"
	"github.com/danielpatrickdp/recon-engine/internal/sensor"
	"github.com/danielpatrickdp/recon-engine/internal/strike"
	"github.com/danielpatrickdp/recon-engine/internal/telemetry"
	"github.com/danielpatrickdp/recon-engine/internal/voi"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region server
// Server serves one episode. Act mutates it; the read-only methods work on a
// clone of the grid taken under the lock.
type Server struct {
	mu      sync.Mutex
	ep      *replay.Episode
	advisor *policy.Advisor
	voi     *voi.Estimator
	sampler *montecarlo.Sampler
	logger  *zap.Logger
}

// NewServer wires the evaluators for ep.
func NewServer(ep *replay.Episode, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pc := ep.Config.Policy()
	opts := []policy.Option{policy.WithLogger(logger)}
	var oracle voi.Oracle
	if pc.VOI.OutcomeModel == voi.OutcomeTruth {
		oracle = ep.Truth
		opts = append(opts, policy.WithOracle(oracle))
	}
	advisor, err := policy.NewAdvisor(pc, opts...)
	if err != nil {
		return nil, fmt.Errorf("new server: %w", err)
	}
	est, err := voi.NewEstimator(pc.Strike, pc.VOI, oracle)
	if err != nil {
		return nil, fmt.Errorf("new server: %w", err)
	}
	return &Server{
		ep:      ep,
		advisor: advisor,
		voi:     est,
		sampler: montecarlo.NewSampler(logger),
		logger:  logger,
	}, nil
}

// GRPCServer builds a grpc.Server with the request interceptor and the
// engine service registered.
func (s *Server) GRPCServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(s.intercept))
	gs := grpc.NewServer(opts...)
	RegisterEngineServer(gs, s)
	return gs
}

// intercept counts and logs every call and maps engine errors to status codes.
func (s *Server) intercept(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	method := info.FullMethod[strings.LastIndex(info.FullMethod, "/")+1:]
	resp, err := handler(ctx, req)
	result := "ok"
	if err != nil {
		result = "error"
		err = statusError(err)
		s.logger.Warn("rpc failed", zap.String("method", method), zap.Error(err))
	} else {
		s.logger.Debug("rpc", zap.String("method", method), zap.Duration("elapsed", time.Since(start)))
	}
	telemetry.RPCRequests.WithLabelValues(method, result).Inc()
	return resp, err
}

type gridState struct {
	grid   *grid.Grid
	turn   int
	budget float64
}

// snapshot returns a private copy of the grid with the turn and budget it
// was taken at.
func (s *Server) snapshot() gridState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gridState{
		grid:   s.ep.Grid.Clone(),
		turn:   s.ep.Turn,
		budget: s.ep.Budget,
	}
}

// #endregion server

// #region recommend
// Recommend runs the advisor on the current belief.
func (s *Server) Recommend(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req RecommendRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", mathx.ErrInvalidParameter, err)
	}
	st := s.snapshot()
	budget := st.budget
	if req.Budget != nil {
		budget = *req.Budget
	}
	cfg := s.ep.Config
	advice, err := s.advisor.Advise(ctx, policy.Input{
		Grid:         st.grid,
		Budget:       budget,
		Turn:         st.turn,
		RecentWindow: cfg.Recon.RecentWindow,
		Stream:       s.ep.Stream(st.turn).Derive("advice"),
	})
	if err != nil {
		return nil, err
	}
	return toStruct(advice)
}

// #endregion recommend

// #region risk
// RiskResponse carries metrics for one center.
type RiskResponse struct {
	Center  strike.Evaluation `json:"center"`
	Metrics risk.Metrics      `json:"metrics"`
	Utility float64           `json:"utility"`
}

// Risk draws worlds from the current belief and evaluates one strike.
func (s *Server) Risk(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req RiskRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", mathx.ErrInvalidParameter, err)
	}
	st := s.snapshot()
	cfg := s.ep.Config
	ev, err := strike.Evaluate(st.grid, req.X, req.Y, cfg.Strike)
	if err != nil {
		return nil, err
	}
	n := req.Samples
	if n <= 0 {
		n = cfg.Risk.Samples
	}
	stream := s.ep.Stream(st.turn).Derivef("risk-%d-%d", req.X, req.Y)
	worlds, err := s.sampler.SampleParallel(ctx, st.grid, n, cfg.Risk.Workers, stream)
	if err != nil {
		return nil, err
	}
	m, err := risk.Evaluate(worlds, req.X, req.Y, cfg.Strike)
	if err != nil {
		return nil, err
	}
	return toStruct(RiskResponse{Center: ev, Metrics: m, Utility: risk.Utility(m, cfg.Risk.Lambda)})
}

// #endregion risk

// #region heatmap
// Heatmap builds one named layer over the current belief.
func (s *Server) Heatmap(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req HeatmapRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", mathx.ErrInvalidParameter, err)
	}
	st := s.snapshot()
	layer, err := s.layer(ctx, st, req)
	if err != nil {
		return nil, err
	}
	if req.Normalized {
		layer = layer.Normalized()
	}
	return toStruct(layer)
}

func (s *Server) layer(ctx context.Context, st gridState, req HeatmapRequest) (heatmap.Layer, error) {
	cfg := s.ep.Config
	turn := s.ep.Stream(st.turn)
	switch req.Layer {
	case heatmap.LayerPosterior:
		return heatmap.Posterior(st.grid), nil
	case heatmap.LayerEV:
		return heatmap.EV(st.grid, cfg.Strike), nil
	case heatmap.LayerVOI:
		kind := sensor.Kind(req.Sensor)
		if kind == "" {
			kind = sensor.Drone
		}
		rates, err := sensor.Effective(kind, sensor.NeutralContext())
		if err != nil {
			return heatmap.Layer{}, err
		}
		layer, skipped, err := heatmap.VOI(st.grid, s.voi, rates, turn.Derive("heatmap-voi"))
		if skipped > 0 {
			s.logger.Debug("voi layer skipped cells", zap.Int("skipped", skipped))
		}
		return layer, err
	case heatmap.LayerRisk, heatmap.LayerVariance, heatmap.LayerLoss:
		worlds, err := s.sampler.SampleParallel(ctx, st.grid, cfg.Risk.Samples, cfg.Risk.Workers, turn.Derive("heatmap-risk"))
		if err != nil {
			return heatmap.Layer{}, err
		}
		layers, err := heatmap.Risk(st.grid, worlds, cfg.Strike, cfg.Risk.Lambda)
		if err != nil {
			return heatmap.Layer{}, err
		}
		for _, l := range layers {
			if l.Name == req.Layer {
				return l, nil
			}
		}
	}
	return heatmap.Layer{}, fmt.Errorf("layer %q (want one of %v): %w", req.Layer, heatmap.Names(), mathx.ErrInvalidParameter)
}

// #endregion heatmap

// #region act
// Act applies one recon or strike to the served episode.
func (s *Server) Act(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ActRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", mathx.ErrInvalidParameter, err)
	}
	s.mu.Lock()
	res, err := s.ep.Apply(req)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	s.logger.Info("action applied",
		zap.String("episode", s.ep.ID),
		zap.Int("turn", res.Turn),
		zap.String("type", string(req.Type)),
		zap.String("outcome", res.Outcome))
	return toStruct(res)
}

// #endregion act
