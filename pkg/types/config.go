package types

// ModelInput describes one declared input tensor of a model.
type ModelInput struct {
	// Tensor name, unique within the model.
	Name string `json:"name" yaml:"name" toml:"name"`
	// Element type (e.g. fp32).
	DataType DataType `json:"data_type" yaml:"data_type" toml:"data_type"`
	// Per-item shape, not including the batch dimension.
	Dims []int64 `json:"dims" yaml:"dims" toml:"dims"`
}

// ModelOutput describes one declared output tensor of a model.
type ModelOutput struct {
	Name     string   `json:"name" yaml:"name" toml:"name"`
	DataType DataType `json:"data_type" yaml:"data_type" toml:"data_type"`
	Dims     []int64  `json:"dims" yaml:"dims" toml:"dims"`
	// Optional file in the model directory with one label per line,
	// indexed by element position. Used for classification outputs.
	LabelFilename string `json:"label_filename,omitempty" yaml:"label_filename" toml:"label_filename"`
}

// ModelConfig is the descriptor of one served model version: its name,
// declared inputs/outputs and scheduling parameters.
type ModelConfig struct {
	Name    string `json:"name" yaml:"name" toml:"name"`
	Version int64  `json:"version" yaml:"version" toml:"version"`
	// Largest batch size a single request may declare.
	MaxBatchSize int `json:"max_batch_size" yaml:"max_batch_size" toml:"max_batch_size"`
	// Number of scheduler runners for this model. 0 means the default.
	Runners int `json:"runners,omitempty" yaml:"runners" toml:"runners"`
	// Pending-request queue depth before the scheduler rejects work.
	// 0 means the default.
	QueueDepth int `json:"queue_depth,omitempty" yaml:"queue_depth" toml:"queue_depth"`
	// Free-form metadata attached to the servable.
	Tags map[string]string `json:"tags,omitempty" yaml:"tags" toml:"tags"`

	Inputs  []ModelInput  `json:"input" yaml:"input" toml:"input"`
	Outputs []ModelOutput `json:"output" yaml:"output" toml:"output"`
}
