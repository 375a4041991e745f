package infer

import (
	"bytes"
	"encoding/json"

	"inferd/pkg/types"
)

// StreamResponseProvider collects outputs in owned scratch memory and,
// at finalization, serializes the whole response into one outbound raw
// buffer: a single JSON header line followed by the concatenated raw
// output bytes in header order. Tensors carry no length prefix;
// receivers slice the stream using the header-declared byte sizes.
type StreamResponseProvider struct {
	responseBase
	header   types.InferResponseHeader
	outbound *bytes.Buffer
}

// NewStreamResponseProvider binds a provider to the outbound buffer the
// frontend will flush to the wire after completion.
func NewStreamResponseProvider(requestHeader *types.InferRequestHeader, outbound *bytes.Buffer) *StreamResponseProvider {
	return &StreamResponseProvider{
		responseBase: newResponseBase(requestHeader),
		outbound:     outbound,
	}
}

func (p *StreamResponseProvider) ResponseHeader() *types.InferResponseHeader { return &p.header }

func (p *StreamResponseProvider) MutableResponseHeader() *types.InferResponseHeader {
	return &p.header
}

// GetOutputBuffer allocates scratch memory for the named output and
// records it in the ledger.
func (p *StreamResponseProvider) GetOutputBuffer(name string, byteSize uint64, shape []int64) ([]byte, error) {
	entry, err := p.checkOutput(name, byteSize, shape)
	if err != nil {
		return nil, err
	}
	entry.buffer = make([]byte, byteSize)
	return entry.buffer, nil
}

// FinalizeResponse builds the header, then writes the header line and
// every raw output's bytes into the outbound buffer.
func (p *StreamResponseProvider) FinalizeResponse(s *Servable) error {
	if err := p.finalize(s, &p.header); err != nil {
		return err
	}
	enc, err := json.Marshal(&p.header)
	if err != nil {
		return errInternalf("encode response header for model %q: %v", s.Name(), err)
	}
	p.outbound.Write(enc)
	p.outbound.WriteByte('\n')
	for i := range p.outputs {
		entry := &p.outputs[i]
		if req := p.outputMap[entry.name]; req.Cls != nil && req.Cls.Count > 0 {
			continue
		}
		p.outbound.Write(entry.buffer)
	}
	return nil
}
