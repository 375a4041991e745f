package infer

import (
	"encoding/binary"
	"math"

	"github.com/x448/float16"

	"inferd/pkg/types"
)

// ResponseProvider collects the outputs produced for one inference
// request and finalizes the response header, independent of the
// transport the response will leave on.
type ResponseProvider interface {
	// ResponseHeader returns the (partially) built response header.
	ResponseHeader() *types.InferResponseHeader
	// MutableResponseHeader returns the header for modification. It
	// must not be used after FinalizeResponse.
	MutableResponseHeader() *types.InferResponseHeader

	// RequiresOutput reports whether name is in the request's
	// requested-output set, letting the compute path skip producing
	// outputs nobody asked for.
	RequiresOutput(name string) bool

	// GetOutputBuffer returns a writable buffer of exactly byteSize
	// bytes for the named output and records it in the ledger. The
	// name must be in the requested-output set and may be produced at
	// most once. The buffer stays valid until finalization.
	GetOutputBuffer(name string, byteSize uint64, shape []int64) ([]byte, error)

	// FinalizeResponse walks the ledger in insertion order, applies
	// classification post-processing via the servable's label
	// provider, and writes every output into the response header. It
	// runs exactly once, only after all requested outputs exist.
	FinalizeResponse(s *Servable) error
}

// outputEntry is one ledger record: a produced output buffer.
type outputEntry struct {
	name     string
	shape    []int64
	byteSize uint64
	buffer   []byte
}

// responseBase carries the state shared by both provider variants: the
// request's output set, the append-only ledger, and the finalize guard.
type responseBase struct {
	requestHeader *types.InferRequestHeader
	outputMap     map[string]*types.RequestOutput
	outputs       []outputEntry
	finalized     bool
}

func newResponseBase(requestHeader *types.InferRequestHeader) responseBase {
	m := make(map[string]*types.RequestOutput, len(requestHeader.Outputs))
	for i := range requestHeader.Outputs {
		m[requestHeader.Outputs[i].Name] = &requestHeader.Outputs[i]
	}
	return responseBase{requestHeader: requestHeader, outputMap: m}
}

func (b *responseBase) RequiresOutput(name string) bool {
	_, ok := b.outputMap[name]
	return ok
}

// checkOutput validates a GetOutputBuffer call and appends the ledger
// entry. The returned entry's buffer is set by the variant.
func (b *responseBase) checkOutput(name string, byteSize uint64, shape []int64) (*outputEntry, error) {
	if _, ok := b.outputMap[name]; !ok {
		return nil, errInvalidArgumentf("output %q was not requested", name)
	}
	for i := range b.outputs {
		if b.outputs[i].name == name {
			return nil, errMisusef("output %q produced twice", name)
		}
	}
	if b.finalized {
		return nil, errMisusef("output %q produced after finalize", name)
	}
	b.outputs = append(b.outputs, outputEntry{name: name, shape: shape, byteSize: byteSize})
	return &b.outputs[len(b.outputs)-1], nil
}

// finalize builds the response header from the ledger. It is the
// common half of FinalizeResponse; variants add their own wire step.
func (b *responseBase) finalize(s *Servable, header *types.InferResponseHeader) error {
	if b.finalized {
		return errInternalf("response for model %q finalized twice", s.Name())
	}
	if len(b.outputs) != len(b.outputMap) {
		for name := range b.outputMap {
			found := false
			for i := range b.outputs {
				if b.outputs[i].name == name {
					found = true
					break
				}
			}
			if !found {
				return errInternalf("requested output %q was never produced", name)
			}
		}
	}
	header.Outputs = header.Outputs[:0]
	for i := range b.outputs {
		entry := &b.outputs[i]
		requested := b.outputMap[entry.name]
		out := types.ResponseOutput{Name: entry.name}
		if requested.Cls != nil && requested.Cls.Count > 0 {
			cfg, err := s.GetOutput(entry.name)
			if err != nil {
				return err
			}
			classes, err := classify(entry, cfg, s.LabelProvider(), b.requestHeader.BatchSize, requested.Cls.Count)
			if err != nil {
				return err
			}
			out.Classes = classes
		} else {
			out.Raw = &types.RawOutput{Dims: entry.shape, ByteSize: entry.byteSize}
		}
		header.Outputs = append(header.Outputs, out)
	}
	b.finalized = true
	return nil
}

// classify converts a raw score buffer into per-batch-item top-k class
// results, labeling each index through the label provider.
func classify(entry *outputEntry, cfg *types.ModelOutput, labels LabelProvider, batchSize, topk int) ([][]types.ClassResult, error) {
	elem := cfg.DataType.ByteSize()
	if batchSize < 1 || elem == 0 || entry.byteSize%uint64(batchSize) != 0 {
		return nil, errInternalf("output %q byte size %d does not divide into batch %d",
			entry.name, entry.byteSize, batchSize)
	}
	stride := entry.byteSize / uint64(batchSize)
	if stride%elem != 0 {
		return nil, errInternalf("output %q batch stride %d is not a multiple of element size %d",
			entry.name, stride, elem)
	}
	perItem := int(stride / elem)
	if topk > perItem {
		topk = perItem
	}
	results := make([][]types.ClassResult, 0, batchSize)
	for item := 0; item < batchSize; item++ {
		base := entry.buffer[uint64(item)*stride : uint64(item+1)*stride]
		scores := make([]float64, perItem)
		for i := 0; i < perItem; i++ {
			raw := base[uint64(i)*elem : uint64(i+1)*elem]
			switch cfg.DataType {
			case types.DataTypeFloat32:
				scores[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw)))
			case types.DataTypeFloat16:
				scores[i] = float64(float16.Frombits(binary.LittleEndian.Uint16(raw)).Float32())
			case types.DataTypeFloat64:
				scores[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw))
			default:
				return nil, errInvalidArgumentf(
					"output %q has non-floating data type %q, classification unsupported",
					entry.name, cfg.DataType)
			}
		}
		top := make([]types.ClassResult, 0, topk)
		used := make([]bool, perItem)
		for k := 0; k < topk; k++ {
			best := -1
			for i := 0; i < perItem; i++ {
				if used[i] {
					continue
				}
				if best < 0 || scores[i] > scores[best] {
					best = i
				}
			}
			used[best] = true
			top = append(top, types.ClassResult{
				Idx:   best,
				Value: scores[best],
				Label: labels.GetLabel(entry.name, best),
			})
		}
		results = append(results, top)
	}
	return results, nil
}
