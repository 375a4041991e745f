package infer

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"
	"testing"

	"github.com/x448/float16"

	"inferd/internal/label"
	"inferd/pkg/types"
)

func responseRequestHeader() *types.InferRequestHeader {
	return &types.InferRequestHeader{
		BatchSize: 1,
		Inputs:    []types.RequestInput{{Name: "A", ByteSize: 1024}},
		Outputs:   []types.RequestOutput{{Name: "B"}},
	}
}

func TestRequiresOutput(t *testing.T) {
	var outbound bytes.Buffer
	p := NewStreamResponseProvider(responseRequestHeader(), &outbound)
	if !p.RequiresOutput("B") {
		t.Fatalf("B is requested, RequiresOutput said no")
	}
	if p.RequiresOutput("C") {
		t.Fatalf("C is not requested, RequiresOutput said yes")
	}
}

func TestGetOutputBufferUnrequested(t *testing.T) {
	var outbound bytes.Buffer
	p := NewStreamResponseProvider(responseRequestHeader(), &outbound)
	if _, err := p.GetOutputBuffer("C", 16, []int64{1, 4}); !IsInvalidArgument(err) {
		t.Fatalf("expected invalid-argument, got %v", err)
	}
}

func TestGetOutputBufferTwice(t *testing.T) {
	var outbound bytes.Buffer
	p := NewStreamResponseProvider(responseRequestHeader(), &outbound)
	if _, err := p.GetOutputBuffer("B", 256, []int64{1, 64, 1, 1}); err != nil {
		t.Fatalf("first buffer: %v", err)
	}
	if _, err := p.GetOutputBuffer("B", 256, []int64{1, 64, 1, 1}); !IsMisuse(err) {
		t.Fatalf("expected misuse on double production, got %v", err)
	}
}

func TestFinalizeMissingOutput(t *testing.T) {
	s := testServable(t)
	var outbound bytes.Buffer
	p := NewStreamResponseProvider(responseRequestHeader(), &outbound)
	if err := p.FinalizeResponse(s); !IsInternal(err) {
		t.Fatalf("expected internal for unproduced output, got %v", err)
	}
	if outbound.Len() != 0 {
		t.Fatalf("failed finalize wrote %d bytes to the wire", outbound.Len())
	}
}

func TestFinalizeTwice(t *testing.T) {
	s := testServable(t)
	var outbound bytes.Buffer
	p := NewStreamResponseProvider(responseRequestHeader(), &outbound)
	if _, err := p.GetOutputBuffer("B", 256, []int64{1, 64, 1, 1}); err != nil {
		t.Fatalf("buffer: %v", err)
	}
	if err := p.FinalizeResponse(s); err != nil {
		t.Fatalf("first finalize: %v", err)
	}
	if err := p.FinalizeResponse(s); !IsInternal(err) {
		t.Fatalf("expected internal on double finalize, got %v", err)
	}
}

func TestStreamFinalizeWireFormat(t *testing.T) {
	s := testServable(t)
	var outbound bytes.Buffer
	p := NewStreamResponseProvider(responseRequestHeader(), &outbound)
	buf, err := p.GetOutputBuffer("B", 256, []int64{1, 64, 1, 1})
	if err != nil {
		t.Fatalf("buffer: %v", err)
	}
	copy(buf, fillPattern(256, 31))
	if err := p.FinalizeResponse(s); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	wire := outbound.Bytes()
	nl := bytes.IndexByte(wire, '\n')
	if nl < 0 {
		t.Fatalf("missing header line")
	}
	var header types.InferResponseHeader
	if err := json.Unmarshal(wire[:nl], &header); err != nil {
		t.Fatalf("decode header line: %v", err)
	}
	if len(header.Outputs) != 1 || header.Outputs[0].Name != "B" {
		t.Fatalf("unexpected header outputs %+v", header.Outputs)
	}
	raw := header.Outputs[0].Raw
	if raw == nil || raw.ByteSize != 256 || len(raw.Dims) != 4 {
		t.Fatalf("unexpected raw descriptor %+v", raw)
	}
	// tensor bytes follow with no length prefix
	if !bytes.Equal(wire[nl+1:], fillPattern(256, 31)) {
		t.Fatalf("tensor bytes differ")
	}
}

func TestEmbeddedResponseWritesMessage(t *testing.T) {
	s := testServable(t)
	resp := &types.InferResponse{Model: "resnet-lite"}
	p := NewEmbeddedResponseProvider(responseRequestHeader(), resp)
	buf, err := p.GetOutputBuffer("B", 256, []int64{1, 64, 1, 1})
	if err != nil {
		t.Fatalf("buffer: %v", err)
	}
	if len(resp.Raw) != 1 || &resp.Raw[0][0] != &buf[0] {
		t.Fatalf("buffer is not a slot of the outbound message")
	}
	copy(buf, fillPattern(256, 41))
	if err := p.FinalizeResponse(s); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if len(resp.Meta.Outputs) != 1 || resp.Meta.Outputs[0].Raw.ByteSize != 256 {
		t.Fatalf("unexpected finalized header %+v", resp.Meta)
	}
	if !bytes.Equal(resp.Raw[0], fillPattern(256, 41)) {
		t.Fatalf("message bytes differ from produced output")
	}
}

func clsRequestHeader(batch, topk int) *types.InferRequestHeader {
	return &types.InferRequestHeader{
		BatchSize: batch,
		Inputs:    []types.RequestInput{{Name: "A", ByteSize: 1024 * uint64(batch)}},
		Outputs:   []types.RequestOutput{{Name: "SCORES", Cls: &types.ClsParam{Count: topk}}},
	}
}

func scoresServable(t *testing.T) *Servable {
	t.Helper()
	labels := label.NewProvider()
	labels.SetLabels("SCORES", []string{"cat", "dog", "bird", "fish"})
	return NewServable(testModelConfig(), labels)
}

func TestClassificationTopK(t *testing.T) {
	s := scoresServable(t)
	resp := &types.InferResponse{}
	p := NewEmbeddedResponseProvider(clsRequestHeader(2, 2), resp)
	buf, err := p.GetOutputBuffer("SCORES", 2*4*4, []int64{2, 4})
	if err != nil {
		t.Fatalf("buffer: %v", err)
	}
	scores := []float32{
		0.1, 0.7, 0.2, 0.0, // item 0: dog, bird
		0.9, 0.0, 0.05, 0.5, // item 1: cat, fish
	}
	for i, v := range scores {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	if err := p.FinalizeResponse(s); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	out := resp.Meta.Outputs[0]
	if out.Raw != nil {
		t.Fatalf("classification output still carries raw descriptor")
	}
	if len(resp.Raw) != 0 {
		t.Fatalf("classification scores leaked as raw bytes")
	}
	if len(out.Classes) != 2 {
		t.Fatalf("expected 2 batch items, got %d", len(out.Classes))
	}
	want := [][]string{{"dog", "bird"}, {"cat", "fish"}}
	wantIdx := [][]int{{1, 2}, {0, 3}}
	for item := range want {
		if len(out.Classes[item]) != 2 {
			t.Fatalf("item %d: expected 2 classes, got %d", item, len(out.Classes[item]))
		}
		for k := range want[item] {
			c := out.Classes[item][k]
			if c.Label != want[item][k] || c.Idx != wantIdx[item][k] {
				t.Fatalf("item %d rank %d: got {%d %q}, want {%d %q}",
					item, k, c.Idx, c.Label, wantIdx[item][k], want[item][k])
			}
		}
	}
}

func TestClassificationFloat16(t *testing.T) {
	cfg := testModelConfig()
	cfg.Outputs[1].DataType = types.DataTypeFloat16
	labels := label.NewProvider()
	labels.SetLabels("SCORES", []string{"cat", "dog", "bird", "fish"})
	s := NewServable(cfg, labels)

	resp := &types.InferResponse{}
	p := NewEmbeddedResponseProvider(clsRequestHeader(1, 1), resp)
	buf, err := p.GetOutputBuffer("SCORES", 4*2, []int64{1, 4})
	if err != nil {
		t.Fatalf("buffer: %v", err)
	}
	for i, v := range []float32{0.1, 0.2, 0.8, 0.4} {
		binary.LittleEndian.PutUint16(buf[i*2:], float16.Fromfloat32(v).Bits())
	}
	if err := p.FinalizeResponse(s); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	classes := resp.Meta.Outputs[0].Classes
	if len(classes) != 1 || len(classes[0]) != 1 {
		t.Fatalf("unexpected classes %+v", classes)
	}
	if classes[0][0].Idx != 2 || classes[0][0].Label != "bird" {
		t.Fatalf("expected top class bird(2), got %d %q", classes[0][0].Idx, classes[0][0].Label)
	}
}
