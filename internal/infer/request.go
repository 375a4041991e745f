package infer

import "inferd/pkg/types"

// RequestProvider gives the scheduler and compute path uniform access
// to one inference request's meta-data and input bytes, independent of
// the transport the request arrived on.
type RequestProvider interface {
	// ModelName returns the requested model name.
	ModelName() string
	// ModelVersion returns the requested model version, or -1 if no
	// specific version was requested.
	ModelVersion() int64
	// RequestHeader returns the declared input/output meta-data.
	RequestHeader() *types.InferRequestHeader

	// GetNextInputContent returns the next contiguous chunk of bytes
	// for input idx. A nil chunk (with nil error) means the input is
	// exhausted. When forceContiguous is true the entire remaining
	// input is returned as a single chunk; this may require copying,
	// and the assembled chunk is cached so repeated forced reads
	// return the identical buffer.
	GetNextInputContent(idx int, forceContiguous bool) ([]byte, error)
}

// inputBatchByteSize derives the total byte size of one input from the
// model descriptor: element size times shape product times batch size.
func inputBatchByteSize(cfg *types.ModelInput, batchSize int) (uint64, error) {
	elem := cfg.DataType.ByteSize()
	if elem == 0 {
		return 0, errInvalidArgumentf("input %q has unsupported data type %q", cfg.Name, cfg.DataType)
	}
	count := types.ElementCount(cfg.Dims)
	if count == 0 {
		return 0, errInvalidArgumentf("input %q has invalid dims %v", cfg.Name, cfg.Dims)
	}
	return elem * count * uint64(batchSize), nil
}

// validateRequestInputs checks every declared input of header against
// the servable's model descriptor and against the bytes actually
// supplied by the transport. It runs at provider construction, before
// any data reaches the scheduler.
func validateRequestInputs(s *Servable, header *types.InferRequestHeader, supplied func(idx int) uint64) error {
	if header.BatchSize < 1 || header.BatchSize > s.Config().MaxBatchSize {
		return errInvalidArgumentf("batch size %d exceeds limits [1,%d] for model %q",
			header.BatchSize, s.Config().MaxBatchSize, s.Name())
	}
	for i := range header.Inputs {
		in := &header.Inputs[i]
		cfg, err := s.GetInput(in.Name)
		if err != nil {
			return errInvalidArgumentf("unexpected input %q for model %q", in.Name, s.Name())
		}
		expected, err := inputBatchByteSize(cfg, header.BatchSize)
		if err != nil {
			return err
		}
		if in.ByteSize != expected {
			return errInvalidArgumentf(
				"input %q declares %d bytes, model %q expects %d",
				in.Name, in.ByteSize, s.Name(), expected)
		}
		if got := supplied(i); got != expected {
			return errInvalidArgumentf(
				"input %q supplied %d bytes, model %q expects %d",
				in.Name, got, s.Name(), expected)
		}
	}
	return nil
}
