package types

// RequestInput declares one input carried by an inference request.
type RequestInput struct {
	// Name of a declared model input.
	Name string `json:"name"`
	// Total bytes supplied for this input across the whole batch.
	ByteSize uint64 `json:"byte_size"`
}

// ClsParam asks for a classification result instead of raw bytes.
type ClsParam struct {
	// Number of highest-scoring classes to return per batch item.
	Count int `json:"count"`
}

// RequestOutput names one output the request wants produced.
type RequestOutput struct {
	Name string `json:"name"`
	// Optional classification parameters.
	Cls *ClsParam `json:"cls,omitempty"`
}

// InferRequestHeader is the transport-independent meta-data of an
// inference request: what must be read and what must be produced.
// It is immutable once received.
type InferRequestHeader struct {
	BatchSize int             `json:"batch_size"`
	Inputs    []RequestInput  `json:"inputs"`
	Outputs   []RequestOutput `json:"outputs"`
}

// InferRequest is the embedded-message request form: header plus the
// raw bytes for each input, in header input order.
type InferRequest struct {
	Model   string             `json:"model"`
	Version int64              `json:"version,omitempty"`
	Meta    InferRequestHeader `json:"meta"`
	// Raw input bytes, one entry per Meta.Inputs entry.
	Raw [][]byte `json:"raw"`
}

// ClassResult is one entry of a classification output.
type ClassResult struct {
	Idx   int     `json:"idx"`
	Value float64 `json:"value"`
	Label string  `json:"label,omitempty"`
}

// RawOutput describes a produced raw output tensor.
type RawOutput struct {
	Dims     []int64 `json:"dims"`
	ByteSize uint64  `json:"byte_size"`
}

// ResponseOutput is one finalized output: either raw or classified.
type ResponseOutput struct {
	Name string     `json:"name"`
	Raw  *RawOutput `json:"raw,omitempty"`
	// Classes holds, per batch item, the top-k classification results.
	Classes [][]ClassResult `json:"classes,omitempty"`
}

// InferResponseHeader describes every produced output of a request.
// It is built during response finalization and read-only afterwards.
type InferResponseHeader struct {
	Outputs []ResponseOutput `json:"outputs"`
}

// InferResponse is the embedded-message response form: header plus the
// raw bytes of each non-classification output, in ledger order.
type InferResponse struct {
	Model string              `json:"model"`
	Meta  InferResponseHeader `json:"meta"`
	Raw   [][]byte            `json:"raw,omitempty"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	Models []ModelConfig `json:"models"`
}

// ModelStatus is one model's entry in the status report.
type ModelStatus struct {
	Name         string            `json:"name"`
	Version      int64             `json:"version"`
	Ready        bool              `json:"ready"`
	MaxBatchSize int               `json:"max_batch_size"`
	Runners      int               `json:"runners"`
	QueueDepth   int               `json:"queue_depth"`
	Tags         map[string]string `json:"tags,omitempty"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Models []ModelStatus `json:"models"`
	Ready  bool          `json:"ready"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}
