package infer

import (
	"bytes"
	"testing"

	"inferd/pkg/types"
)

// helper: descriptor used across provider tests
func testModelConfig() types.ModelConfig {
	return types.ModelConfig{
		Name:         "resnet-lite",
		Version:      2,
		MaxBatchSize: 8,
		Inputs: []types.ModelInput{
			{Name: "A", DataType: types.DataTypeUint8, Dims: []int64{1024}},
			{Name: "IN2", DataType: types.DataTypeFloat32, Dims: []int64{16}},
		},
		Outputs: []types.ModelOutput{
			{Name: "B", DataType: types.DataTypeFloat32, Dims: []int64{64, 1, 1}},
			{Name: "SCORES", DataType: types.DataTypeFloat32, Dims: []int64{4}},
		},
	}
}

func testServable(t *testing.T) *Servable {
	t.Helper()
	return NewServable(testModelConfig(), nil)
}

// helper: deterministic payload bytes
func fillPattern(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i%251)
	}
	return b
}

func streamHeader(batch int) *types.InferRequestHeader {
	return &types.InferRequestHeader{
		BatchSize: batch,
		Inputs:    []types.RequestInput{{Name: "A", ByteSize: 1024}},
		Outputs:   []types.RequestOutput{{Name: "B"}},
	}
}

func TestStreamProviderSequentialChunks(t *testing.T) {
	s := testServable(t)
	src := fillPattern(1024, 1)
	segments := [][]byte{src[:600], src[600:]}
	p, err := NewStreamRequestProvider(s, "resnet-lite", -1, streamHeader(1), segments)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	var got []byte
	for {
		chunk, err := p.GetNextInputContent(0, false)
		if err != nil {
			t.Fatalf("next chunk: %v", err)
		}
		if chunk == nil {
			break
		}
		got = append(got, chunk...)
	}
	if !bytes.Equal(got, src) {
		t.Fatalf("concatenated chunks differ from source")
	}
	// over-read stays absent, never an error
	for i := 0; i < 3; i++ {
		chunk, err := p.GetNextInputContent(0, false)
		if err != nil || chunk != nil {
			t.Fatalf("over-read got chunk=%v err=%v", chunk, err)
		}
	}
}

func TestStreamProviderForceContiguous(t *testing.T) {
	s := testServable(t)
	src := fillPattern(1024, 3)
	p, err := NewStreamRequestProvider(s, "resnet-lite", -1, streamHeader(1), [][]byte{src[:600], src[600:]})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	b1, err := p.GetNextInputContent(0, true)
	if err != nil {
		t.Fatalf("force contiguous: %v", err)
	}
	if len(b1) != 1024 || !bytes.Equal(b1, src) {
		t.Fatalf("forced block differs from chunk1++chunk2 (len=%d)", len(b1))
	}
	b2, err := p.GetNextInputContent(0, true)
	if err != nil {
		t.Fatalf("repeat force contiguous: %v", err)
	}
	if &b1[0] != &b2[0] {
		t.Fatalf("repeat force returned a different buffer")
	}
	// cursor is exhausted after a forced read
	if chunk, _ := p.GetNextInputContent(0, false); chunk != nil {
		t.Fatalf("sequential read after force returned %d bytes", len(chunk))
	}
}

func TestStreamProviderForceAfterPartialRead(t *testing.T) {
	s := testServable(t)
	src := fillPattern(1024, 7)
	p, err := NewStreamRequestProvider(s, "resnet-lite", -1, streamHeader(1), [][]byte{src[:600], src[600:]})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	first, err := p.GetNextInputContent(0, false)
	if err != nil || len(first) != 600 {
		t.Fatalf("first chunk len=%d err=%v", len(first), err)
	}
	rest, err := p.GetNextInputContent(0, true)
	if err != nil {
		t.Fatalf("force: %v", err)
	}
	if !bytes.Equal(rest, src[600:]) {
		t.Fatalf("forced remainder differs")
	}
	// single remaining range: no copy
	if &rest[0] != &src[600] {
		t.Fatalf("single-range forced read copied")
	}
}

func TestStreamProviderFramingAcrossInputs(t *testing.T) {
	s := testServable(t)
	a := fillPattern(1024, 11)
	in2 := fillPattern(64, 13)
	all := append(append([]byte{}, a...), in2...)
	// segment boundaries fall inside both inputs
	segments := [][]byte{all[:500], all[500:1000], all[1000:]}
	header := &types.InferRequestHeader{
		BatchSize: 1,
		Inputs: []types.RequestInput{
			{Name: "A", ByteSize: 1024},
			{Name: "IN2", ByteSize: 64},
		},
		Outputs: []types.RequestOutput{{Name: "B"}},
	}
	p, err := NewStreamRequestProvider(s, "resnet-lite", -1, header, segments)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	gotA, err := p.GetNextInputContent(0, true)
	if err != nil || !bytes.Equal(gotA, a) {
		t.Fatalf("input A bytes differ (err=%v)", err)
	}
	gotIn2, err := p.GetNextInputContent(1, true)
	if err != nil || !bytes.Equal(gotIn2, in2) {
		t.Fatalf("input IN2 bytes differ (err=%v)", err)
	}
}

func TestStreamProviderSizeMismatch(t *testing.T) {
	s := testServable(t)
	header := streamHeader(1)
	header.Inputs[0].ByteSize = 1000 // descriptor says 1024
	_, err := NewStreamRequestProvider(s, "resnet-lite", -1, header, [][]byte{fillPattern(1000, 1)})
	if err == nil || !IsInvalidArgument(err) {
		t.Fatalf("expected invalid-argument, got %v", err)
	}
}

func TestStreamProviderShortBuffer(t *testing.T) {
	s := testServable(t)
	_, err := NewStreamRequestProvider(s, "resnet-lite", -1, streamHeader(1), [][]byte{fillPattern(512, 1)})
	if err == nil || !IsInvalidArgument(err) {
		t.Fatalf("expected invalid-argument, got %v", err)
	}
}

func TestStreamProviderTrailingBytes(t *testing.T) {
	s := testServable(t)
	_, err := NewStreamRequestProvider(s, "resnet-lite", -1, streamHeader(1), [][]byte{fillPattern(1024, 1), fillPattern(8, 2)})
	if err == nil || !IsInvalidArgument(err) {
		t.Fatalf("expected invalid-argument, got %v", err)
	}
}

func TestStreamProviderUnknownInputName(t *testing.T) {
	s := testServable(t)
	header := streamHeader(1)
	header.Inputs[0].Name = "NOPE"
	_, err := NewStreamRequestProvider(s, "resnet-lite", -1, header, [][]byte{fillPattern(1024, 1)})
	if err == nil || !IsInvalidArgument(err) {
		t.Fatalf("expected invalid-argument, got %v", err)
	}
}

func TestStreamProviderIndexOutOfRange(t *testing.T) {
	s := testServable(t)
	p, err := NewStreamRequestProvider(s, "resnet-lite", -1, streamHeader(1), [][]byte{fillPattern(1024, 1)})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if _, err := p.GetNextInputContent(5, false); !IsInvalidArgument(err) {
		t.Fatalf("expected invalid-argument, got %v", err)
	}
}

func TestStreamProviderBatchSizeLimits(t *testing.T) {
	s := testServable(t)
	for _, batch := range []int{0, 9} {
		header := streamHeader(batch)
		header.Inputs[0].ByteSize = 1024 * uint64(batch)
		_, err := NewStreamRequestProvider(s, "resnet-lite", -1, header, [][]byte{fillPattern(1024*batch, 1)})
		if err == nil || !IsInvalidArgument(err) {
			t.Fatalf("batch=%d expected invalid-argument, got %v", batch, err)
		}
	}
}

func embeddedRequest(batch int) *types.InferRequest {
	return &types.InferRequest{
		Model: "resnet-lite",
		Meta: types.InferRequestHeader{
			BatchSize: batch,
			Inputs:    []types.RequestInput{{Name: "A", ByteSize: 1024 * uint64(batch)}},
			Outputs:   []types.RequestOutput{{Name: "B"}},
		},
		Raw: [][]byte{fillPattern(1024*batch, 21)},
	}
}

func TestEmbeddedProviderSingleChunk(t *testing.T) {
	s := testServable(t)
	req := embeddedRequest(1)
	p, err := NewEmbeddedRequestProvider(s, req)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	chunk, err := p.GetNextInputContent(0, false)
	if err != nil {
		t.Fatalf("first chunk: %v", err)
	}
	// zero-copy view into the message
	if &chunk[0] != &req.Raw[0][0] {
		t.Fatalf("embedded chunk was copied")
	}
	next, err := p.GetNextInputContent(0, false)
	if err != nil || next != nil {
		t.Fatalf("second read got chunk=%v err=%v", next, err)
	}
	forced, err := p.GetNextInputContent(0, true)
	if err != nil || &forced[0] != &req.Raw[0][0] {
		t.Fatalf("forced read should return the identical message bytes (err=%v)", err)
	}
}

func TestEmbeddedProviderRawCountMismatch(t *testing.T) {
	s := testServable(t)
	req := embeddedRequest(1)
	req.Raw = nil
	if _, err := NewEmbeddedRequestProvider(s, req); !IsInvalidArgument(err) {
		t.Fatalf("expected invalid-argument, got %v", err)
	}
}

func TestEmbeddedProviderSizeMismatch(t *testing.T) {
	s := testServable(t)
	req := embeddedRequest(1)
	req.Raw[0] = req.Raw[0][:512]
	req.Meta.Inputs[0].ByteSize = 512
	if _, err := NewEmbeddedRequestProvider(s, req); !IsInvalidArgument(err) {
		t.Fatalf("expected invalid-argument, got %v", err)
	}
}

func TestEmbeddedProviderVersionDefaults(t *testing.T) {
	s := testServable(t)
	req := embeddedRequest(2)
	p, err := NewEmbeddedRequestProvider(s, req)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if p.ModelVersion() != -1 {
		t.Fatalf("expected version -1 for unspecified, got %d", p.ModelVersion())
	}
	if p.ModelName() != "resnet-lite" {
		t.Fatalf("unexpected model name %q", p.ModelName())
	}
}
