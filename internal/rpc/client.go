package rpc

import (
	"context"
	"fmt"

	"github.com/danielpatrickdp/recon-engine/internal/heatmap"
	"github.com/danielpatrickdp/recon-engine/internal/policy"
	"github.com/danielpatrickdp/recon-engine/internal/replay"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region client-struct
// Client wraps a gRPC connection to a recon engine server.
type Client struct {
	conn *grpc.ClientConn
	cc   grpc.ClientConnInterface
}

// #endregion client-struct

// #region constructor
// NewClient connects to the engine at addr without transport security.
func NewClient(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, cc: conn}, nil
}

// NewClientWithConn creates a Client over an existing connection, which the
// caller keeps ownership of.
func NewClientWithConn(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Close shuts down a connection opened by NewClient.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion constructor

// #region invoke
func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	in, err := toStruct(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out); err != nil {
		return fmt.Errorf("%s rpc: %w", method, err)
	}
	return fromStruct(out, resp)
}

// #endregion invoke

// #region methods
// Recommend asks every policy for a recommendation. A nil budget uses the
// episode's remaining budget.
func (c *Client) Recommend(ctx context.Context, budget *float64) (policy.Advice, error) {
	var advice policy.Advice
	err := c.invoke(ctx, MethodRecommend, RecommendRequest{Budget: budget}, &advice)
	return advice, err
}

// Risk returns Monte Carlo metrics for striking (x, y). samples <= 0 uses the
// server default.
func (c *Client) Risk(ctx context.Context, x, y, samples int) (RiskResponse, error) {
	var resp RiskResponse
	err := c.invoke(ctx, MethodRisk, RiskRequest{X: x, Y: y, Samples: samples}, &resp)
	return resp, err
}

// Heatmap fetches one layer.
func (c *Client) Heatmap(ctx context.Context, req HeatmapRequest) (heatmap.Layer, error) {
	var layer heatmap.Layer
	err := c.invoke(ctx, MethodHeatmap, req, &layer)
	return layer, err
}

// Act applies an action to the served episode.
func (c *Client) Act(ctx context.Context, a replay.Action) (replay.StepResult, error) {
	var res replay.StepResult
	err := c.invoke(ctx, MethodAct, a, &res)
	return res, err
}

// #endregion methods
