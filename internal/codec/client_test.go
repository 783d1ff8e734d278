package codec

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/phase"
)

// #region mock
type mockModelService struct {
	ModelServiceClient

	predictResp *structpb.Struct
	predictErr  error

	completeResp *structpb.Struct
	completeErr  error

	lastComplete *structpb.Struct
}

func (m *mockModelService) PredictPhase(_ context.Context, _ *structpb.Struct, _ ...grpc.CallOption) (*structpb.Struct, error) {
	return m.predictResp, m.predictErr
}

func (m *mockModelService) Complete(_ context.Context, in *structpb.Struct, _ ...grpc.CallOption) (*structpb.Struct, error) {
	m.lastComplete = in
	return m.completeResp, m.completeErr
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	return s
}

// fakeConn answers Invoke with a canned reply per method.
type fakeConn struct {
	replies map[string]*structpb.Struct
	methods []string
}

func (f *fakeConn) Invoke(_ context.Context, method string, _ any, reply any, _ ...grpc.CallOption) error {
	f.methods = append(f.methods, method)
	r, ok := f.replies[method]
	if !ok {
		return errors.New("unimplemented")
	}
	proto.Merge(reply.(proto.Message), r)
	return nil
}

func (f *fakeConn) NewStream(context.Context, *grpc.StreamDesc, string, ...grpc.CallOption) (grpc.ClientStream, error) {
	return nil, errors.New("streams not supported")
}

// #endregion mock

// #region constructor-tests
func TestNewCodecClientInvalidAddr(t *testing.T) {
	client, err := NewCodecClient("localhost:0")
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}
	defer client.Close()
	if client.Name() != "model-service@localhost:0" {
		t.Errorf("name: got %q", client.Name())
	}
}

func TestNewCodecClientWithService(t *testing.T) {
	c := NewCodecClientWithService(&mockModelService{})
	if c.client == nil {
		t.Fatal("expected non-nil internal client")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close without conn: %v", err)
	}
}

// #endregion constructor-tests

// #region predict-tests
func TestPredictPhase_Success(t *testing.T) {
	mock := &mockModelService{
		predictResp: mustStruct(t, map[string]any{"phase": "rate_negotiation", "confidence": 0.91}),
	}
	c := NewCodecClientWithService(mock)

	got, err := c.PredictPhase(context.Background(), "other: what is your rate?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Phase != phase.RateNegotiation || got.Confidence != 0.91 {
		t.Errorf("got %+v", got)
	}
}

func TestPredictPhase_Errors(t *testing.T) {
	tests := []struct {
		name string
		mock *mockModelService
	}{
		{"rpc", &mockModelService{predictErr: errors.New("unavailable")}},
		{"missing-phase", &mockModelService{predictResp: mustStruct(t, map[string]any{"confidence": 0.5})}},
		{"missing-confidence", &mockModelService{predictResp: mustStruct(t, map[string]any{"phase": "ask_details"})}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewCodecClientWithService(tt.mock).PredictPhase(context.Background(), "x"); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

// #endregion predict-tests

// #region complete-tests
func TestComplete_Success(t *testing.T) {
	mock := &mockModelService{completeResp: mustStruct(t, map[string]any{"text": "Sounds great."})}
	c := NewCodecClientWithService(mock)

	got, err := c.Complete(context.Background(), "prompt", 100, 0.7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Sounds great." {
		t.Errorf("text: got %q", got)
	}
	f := mock.lastComplete.GetFields()
	if f["max_new_tokens"].GetNumberValue() != 100 || f["temperature"].GetNumberValue() != 0.7 {
		t.Errorf("request fields: %v", f)
	}
}

func TestComplete_Error(t *testing.T) {
	c := NewCodecClientWithService(&mockModelService{completeErr: errors.New("oom")})
	if _, err := c.Complete(context.Background(), "p", 10, 0.8); err == nil {
		t.Fatal("expected error")
	}
}

// #endregion complete-tests

// #region invoke-tests
func TestModelServiceClient_Invoke(t *testing.T) {
	conn := &fakeConn{replies: map[string]*structpb.Struct{
		PredictPhaseMethod: mustStruct(t, map[string]any{"phase": "knowledge_check", "confidence": 0.66}),
		CompleteMethod:     mustStruct(t, map[string]any{"text": "Hello there."}),
	}}
	c := NewCodecClientWithService(NewModelServiceClient(conn))

	pred, err := c.PredictPhase(context.Background(), "other: explain RTP")
	if err != nil {
		t.Fatalf("PredictPhase: %v", err)
	}
	if pred.Phase != phase.KnowledgeCheck {
		t.Errorf("phase: got %s", pred.Phase)
	}
	text, err := c.Complete(context.Background(), "p", 50, 0.9)
	if err != nil || text != "Hello there." {
		t.Errorf("Complete: %q %v", text, err)
	}
	if len(conn.methods) != 2 || conn.methods[0] != PredictPhaseMethod || conn.methods[1] != CompleteMethod {
		t.Errorf("methods: %v", conn.methods)
	}
}

// #endregion invoke-tests
