package infer

import "inferd/pkg/types"

// EmbeddedRequestProvider serves a request whose input bytes already
// live contiguously inside one parsed in-memory message. Each input
// yields exactly one full chunk, with no copying.
type EmbeddedRequestProvider struct {
	request   *types.InferRequest
	version   int64
	delivered []bool
}

// NewEmbeddedRequestProvider validates request against the servable's
// model descriptor and wraps it. The request must carry one raw byte
// slice per declared input, in header order.
func NewEmbeddedRequestProvider(s *Servable, request *types.InferRequest) (*EmbeddedRequestProvider, error) {
	header := &request.Meta
	if len(request.Raw) != len(header.Inputs) {
		return nil, errInvalidArgumentf(
			"request for model %q carries %d raw inputs, header declares %d",
			request.Model, len(request.Raw), len(header.Inputs))
	}
	err := validateRequestInputs(s, header, func(idx int) uint64 {
		return uint64(len(request.Raw[idx]))
	})
	if err != nil {
		return nil, err
	}
	version := request.Version
	if version == 0 {
		version = -1
	}
	return &EmbeddedRequestProvider{
		request:   request,
		version:   version,
		delivered: make([]bool, len(header.Inputs)),
	}, nil
}

func (p *EmbeddedRequestProvider) ModelName() string   { return p.request.Model }
func (p *EmbeddedRequestProvider) ModelVersion() int64 { return p.version }

func (p *EmbeddedRequestProvider) RequestHeader() *types.InferRequestHeader {
	return &p.request.Meta
}

// GetNextInputContent returns the whole input on the first call and an
// absent chunk thereafter. The bytes are a view into the request
// message, not a copy.
func (p *EmbeddedRequestProvider) GetNextInputContent(idx int, forceContiguous bool) ([]byte, error) {
	if idx < 0 || idx >= len(p.delivered) {
		return nil, errInvalidArgumentf("input index %d out of range for model %q", idx, p.request.Model)
	}
	if p.delivered[idx] && !forceContiguous {
		return nil, nil
	}
	p.delivered[idx] = true
	return p.request.Raw[idx], nil
}
