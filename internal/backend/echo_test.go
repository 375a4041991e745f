package backend

import (
	"bytes"
	"testing"

	"inferd/internal/infer"
	"inferd/pkg/types"
)

func echoServable(t *testing.T) *infer.Servable {
	t.Helper()
	s := infer.NewServable(types.ModelConfig{
		Name:         "echo-model",
		MaxBatchSize: 4,
		Inputs:       []types.ModelInput{{Name: "IN", DataType: types.DataTypeUint8, Dims: []int64{8}}},
		Outputs:      []types.ModelOutput{{Name: "OUT", DataType: types.DataTypeUint8, Dims: []int64{8}}},
	}, nil)
	if err := s.SetConfiguredScheduler(Echo(s)); err != nil {
		t.Fatalf("set scheduler: %v", err)
	}
	return s
}

func TestEchoFillsRequestedOutputs(t *testing.T) {
	s := echoServable(t)
	req := &types.InferRequest{
		Model: "echo-model",
		Meta: types.InferRequestHeader{
			BatchSize: 1,
			Inputs:    []types.RequestInput{{Name: "IN", ByteSize: 8}},
			Outputs:   []types.RequestOutput{{Name: "OUT"}},
		},
		Raw: [][]byte{{1, 2, 3, 4, 5, 6, 7, 8}},
	}
	provider, err := infer.NewEmbeddedRequestProvider(s, req)
	if err != nil {
		t.Fatalf("request provider: %v", err)
	}
	resp := &types.InferResponse{Model: "echo-model"}
	response := infer.NewEmbeddedResponseProvider(&req.Meta, resp)

	var result error
	s.Run(infer.NewStats(-1), provider, response, func(err error) { result = err })
	if result != nil {
		t.Fatalf("run: %v", result)
	}
	if len(resp.Raw) != 1 || !bytes.Equal(resp.Raw[0], req.Raw[0]) {
		t.Fatalf("echo output differs from input: %v", resp.Raw)
	}
	if len(resp.Meta.Outputs) != 1 || resp.Meta.Outputs[0].Raw.ByteSize != 8 {
		t.Fatalf("unexpected response header %+v", resp.Meta)
	}
}
