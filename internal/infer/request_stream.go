package infer

import "inferd/pkg/types"

// StreamRequestProvider serves a request whose input bytes arrived as a
// raw multiplexed buffer: transport segmentation may scatter one
// logical input across several physical byte ranges. The header's
// per-input byte sizes are the framing that maps ranges back to input
// indices; the mapping is assembled once at construction.
type StreamRequestProvider struct {
	model   string
	version int64
	header  *types.InferRequestHeader

	// blocks holds, per input index, the ordered byte ranges that make
	// up that input. cursor is the per-input read position; once it
	// reaches len(blocks[idx]) the input is exhausted.
	blocks [][][]byte
	cursor []int

	// contiguous caches the per-input buffer assembled by a forced
	// read, so repeated forced reads return the identical slice.
	contiguous [][]byte
}

// NewStreamRequestProvider slices segments into per-input block lists
// according to the header's declared byte sizes, validating sizes
// against the servable's model descriptor. Inputs appear in the buffer
// in header order; segment boundaries may fall anywhere.
func NewStreamRequestProvider(s *Servable, model string, version int64, header *types.InferRequestHeader, segments [][]byte) (*StreamRequestProvider, error) {
	n := len(header.Inputs)
	blocks := make([][][]byte, n)

	seg, off := 0, 0
	total := uint64(0)
	for _, sg := range segments {
		total += uint64(len(sg))
	}
	consumed := uint64(0)
	for i := range header.Inputs {
		remaining := header.Inputs[i].ByteSize
		if remaining > total-consumed {
			return nil, errInvalidArgumentf(
				"input %q declares %d bytes but the request buffer holds only %d more",
				header.Inputs[i].Name, remaining, total-consumed)
		}
		for remaining > 0 {
			for seg < len(segments) && off == len(segments[seg]) {
				seg, off = seg+1, 0
			}
			avail := uint64(len(segments[seg]) - off)
			take := avail
			if take > remaining {
				take = remaining
			}
			blocks[i] = append(blocks[i], segments[seg][off:off+int(take)])
			off += int(take)
			remaining -= take
			consumed += take
		}
	}
	if consumed != total {
		return nil, errInvalidArgumentf(
			"request buffer holds %d trailing bytes not mapped to any input", total-consumed)
	}

	err := validateRequestInputs(s, header, func(idx int) uint64 {
		var got uint64
		for _, b := range blocks[idx] {
			got += uint64(len(b))
		}
		return got
	})
	if err != nil {
		return nil, err
	}
	return &StreamRequestProvider{
		model:      model,
		version:    version,
		header:     header,
		blocks:     blocks,
		cursor:     make([]int, n),
		contiguous: make([][]byte, n),
	}, nil
}

func (p *StreamRequestProvider) ModelName() string   { return p.model }
func (p *StreamRequestProvider) ModelVersion() int64 { return p.version }

func (p *StreamRequestProvider) RequestHeader() *types.InferRequestHeader { return p.header }

// GetNextInputContent returns successive byte ranges for input idx, or
// the entire remaining input as one block when forceContiguous is set.
// A forced read copies only if more than one range remains, and caches
// the assembled buffer for repeat calls.
func (p *StreamRequestProvider) GetNextInputContent(idx int, forceContiguous bool) ([]byte, error) {
	if idx < 0 || idx >= len(p.blocks) {
		return nil, errInvalidArgumentf("input index %d out of range for model %q", idx, p.model)
	}
	if forceContiguous {
		if p.contiguous[idx] != nil {
			return p.contiguous[idx], nil
		}
		rest := p.blocks[idx][p.cursor[idx]:]
		p.cursor[idx] = len(p.blocks[idx])
		switch len(rest) {
		case 0:
			return nil, nil
		case 1:
			p.contiguous[idx] = rest[0]
		default:
			var size int
			for _, b := range rest {
				size += len(b)
			}
			buf := make([]byte, 0, size)
			for _, b := range rest {
				buf = append(buf, b...)
			}
			p.contiguous[idx] = buf
		}
		return p.contiguous[idx], nil
	}
	if p.cursor[idx] >= len(p.blocks[idx]) {
		return nil, nil
	}
	b := p.blocks[idx][p.cursor[idx]]
	p.cursor[idx]++
	return b, nil
}
