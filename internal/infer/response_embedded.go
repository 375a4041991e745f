package infer

import "inferd/pkg/types"

// EmbeddedResponseProvider writes outputs directly into an
// already-allocated outbound message: each output buffer is a slot of
// the message's raw list, so no copy happens at finalization. Buffer
// lifetime is bound to the message.
type EmbeddedResponseProvider struct {
	responseBase
	response *types.InferResponse
}

// NewEmbeddedResponseProvider binds a provider to the outbound message
// the frontend will serialize after completion.
func NewEmbeddedResponseProvider(requestHeader *types.InferRequestHeader, response *types.InferResponse) *EmbeddedResponseProvider {
	return &EmbeddedResponseProvider{
		responseBase: newResponseBase(requestHeader),
		response:     response,
	}
}

func (p *EmbeddedResponseProvider) ResponseHeader() *types.InferResponseHeader {
	return &p.response.Meta
}

func (p *EmbeddedResponseProvider) MutableResponseHeader() *types.InferResponseHeader {
	return &p.response.Meta
}

// GetOutputBuffer appends a raw slot to the outbound message and
// records it in the ledger. Classification outputs are held in scratch
// memory instead: their scores are consumed at finalization and never
// leave as raw bytes.
func (p *EmbeddedResponseProvider) GetOutputBuffer(name string, byteSize uint64, shape []int64) ([]byte, error) {
	entry, err := p.checkOutput(name, byteSize, shape)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, byteSize)
	if req := p.outputMap[name]; req.Cls == nil || req.Cls.Count == 0 {
		p.response.Raw = append(p.response.Raw, buf)
	}
	entry.buffer = buf
	return buf, nil
}

// FinalizeResponse builds the message's response header. The raw slots
// were written in place by the compute path, so nothing else moves.
func (p *EmbeddedResponseProvider) FinalizeResponse(s *Servable) error {
	return p.finalize(s, &p.response.Meta)
}
