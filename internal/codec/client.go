package codec

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/phase"
)

// #region service
// Full method names served by the Python model service.
const (
	PredictPhaseMethod = "/negotiator.v1.ModelService/PredictPhase"
	CompleteMethod     = "/negotiator.v1.ModelService/Complete"
)

// ModelServiceClient is the RPC surface of the model service. Messages are
// structpb.Struct so the service can evolve fields without regenerated stubs.
type ModelServiceClient interface {
	PredictPhase(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Complete(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type modelServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewModelServiceClient binds the service methods to a connection.
func NewModelServiceClient(cc grpc.ClientConnInterface) ModelServiceClient {
	return &modelServiceClient{cc: cc}
}

func (c *modelServiceClient) PredictPhase(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, PredictPhaseMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *modelServiceClient) Complete(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, CompleteMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
// #endregion service

// #region client-struct
// CodecClient wraps the gRPC connection to the Python model service. It serves
// both as the phase classifier capability and as a generation backend.
type CodecClient struct {
	conn   *grpc.ClientConn
	client ModelServiceClient
	name   string
}
// #endregion client-struct

// #region constructor
// NewCodecClient connects to the model service gRPC server.
func NewCodecClient(addr string) (*CodecClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &CodecClient{
		conn:   conn,
		client: NewModelServiceClient(conn),
		name:   "model-service@" + addr,
	}, nil
}

// NewCodecClientWithService creates a CodecClient with an injected service implementation.
// Used for testing without a real gRPC connection.
func NewCodecClientWithService(svc ModelServiceClient) *CodecClient {
	return &CodecClient{client: svc, name: "model-service"}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *CodecClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Name identifies the backend in response metadata.
func (c *CodecClient) Name() string {
	return c.name
}
// #endregion close

// #region predict
// PredictPhase asks the hosted classifier for the phase of a rendered transcript.
func (c *CodecClient) PredictPhase(ctx context.Context, text string) (phase.Prediction, error) {
	req, err := structpb.NewStruct(map[string]any{"context": text})
	if err != nil {
		return phase.Prediction{}, fmt.Errorf("build predict request: %w", err)
	}
	resp, err := c.client.PredictPhase(ctx, req)
	if err != nil {
		return phase.Prediction{}, fmt.Errorf("predict rpc: %w", err)
	}

	fields := resp.GetFields()
	label, ok := fields["phase"]
	if !ok {
		return phase.Prediction{}, fmt.Errorf("predict rpc: response missing phase")
	}
	conf, ok := fields["confidence"]
	if !ok {
		return phase.Prediction{}, fmt.Errorf("predict rpc: response missing confidence")
	}
	return phase.Prediction{
		Phase:      phase.ID(label.GetStringValue()),
		Confidence: conf.GetNumberValue(),
	}, nil
}
// #endregion predict

// #region complete
// Complete runs one sampled completion. An empty string means no usable output.
func (c *CodecClient) Complete(ctx context.Context, prompt string, maxNewTokens int, temperature float64) (string, error) {
	req, err := structpb.NewStruct(map[string]any{
		"prompt":         prompt,
		"max_new_tokens": maxNewTokens,
		"temperature":    temperature,
	})
	if err != nil {
		return "", fmt.Errorf("build complete request: %w", err)
	}
	resp, err := c.client.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("complete rpc: %w", err)
	}
	return resp.GetFields()["text"].GetStringValue(), nil
}
// #endregion complete
