package infer

import (
	"sync"

	"inferd/pkg/types"
)

// LabelProvider resolves the class label for an element index of a
// named output. Implementations return "" for unknown indices.
type LabelProvider interface {
	GetLabel(name string, idx int) string
}

// noLabels is the label provider of a model without label files.
type noLabels struct{}

func (noLabels) GetLabel(string, int) string { return "" }

// Servable is the per-model/version serving object: it owns the model
// descriptor, the label provider, one scheduler and the per-device
// metric caches, and exposes the synchronous and asynchronous run
// entry points.
type Servable struct {
	config  types.ModelConfig
	version int64
	labels  LabelProvider

	mu        sync.Mutex
	scheduler Scheduler

	inputs  map[string]*types.ModelInput
	outputs map[string]*types.ModelOutput

	metricSuccess    counterCache
	metricFailure    counterCache
	metricCount      counterCache
	metricExecCount  counterCache
	metricRequestDur counterCache
	metricQueueDur   counterCache
	metricComputeDur counterCache
	metricLoadRatio  observerCache
}

// NewServable builds a servable from its model descriptor. labels may
// be nil for models without label files.
func NewServable(cfg types.ModelConfig, labels LabelProvider) *Servable {
	if labels == nil {
		labels = noLabels{}
	}
	version := cfg.Version
	if version == 0 {
		version = 1
	}
	s := &Servable{
		config:  cfg,
		version: version,
		labels:  labels,
		inputs:  make(map[string]*types.ModelInput, len(cfg.Inputs)),
		outputs: make(map[string]*types.ModelOutput, len(cfg.Outputs)),
	}
	for i := range s.config.Inputs {
		s.inputs[s.config.Inputs[i].Name] = &s.config.Inputs[i]
	}
	for i := range s.config.Outputs {
		s.outputs[s.config.Outputs[i].Name] = &s.config.Outputs[i]
	}
	return s
}

// Name returns the name of the model being served.
func (s *Servable) Name() string { return s.config.Name }

// Version returns the version of the model being served.
func (s *Servable) Version() int64 { return s.version }

// Config returns the descriptor of the model being served.
func (s *Servable) Config() types.ModelConfig { return s.config }

// Tags returns the free-form metadata attached to the servable.
func (s *Servable) Tags() map[string]string { return s.config.Tags }

// LabelProvider returns the label provider for the model.
func (s *Servable) LabelProvider() LabelProvider { return s.labels }

// GetInput resolves a named input to its descriptor.
func (s *Servable) GetInput(name string) (*types.ModelInput, error) {
	if in, ok := s.inputs[name]; ok {
		return in, nil
	}
	return nil, ErrNotFound("input", name)
}

// GetOutput resolves a named output to its descriptor.
func (s *Servable) GetOutput(name string) (*types.ModelOutput, error) {
	if out, ok := s.outputs[name]; ok {
		return out, nil
	}
	return nil, ErrNotFound("output", name)
}

// SetScheduler installs the scheduler handling this servable's
// requests. It can be set only once.
func (s *Servable) SetScheduler(sched Scheduler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scheduler != nil {
		return errMisusef("scheduler already set for model %q", s.Name())
	}
	s.scheduler = sched
	if zlog != nil {
		zlog.Info().Str("model", s.Name()).Int64("version", s.version).Msg("scheduler installed")
	}
	return nil
}

// SetConfiguredScheduler builds the standard runner-pool scheduler
// from the model descriptor's scheduling settings and installs it.
// onRun is the function the pool invokes to execute a batch.
func (s *Servable) SetConfiguredScheduler(onRun RunFunc) error {
	pool := newRunnerPool(s, s.config.Runners, s.config.QueueDepth, s.config.MaxBatchSize, onRun)
	return s.SetScheduler(pool)
}

func (s *Servable) getScheduler() Scheduler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduler
}

// Ready reports whether a scheduler has been installed, meaning the
// servable can accept requests.
func (s *Servable) Ready() bool { return s.getScheduler() != nil }

// AsyncRun forwards the provider pair to the installed scheduler and
// returns immediately. onComplete fires exactly once with the terminal
// status, not necessarily on the caller's goroutine; by then the
// response provider has been finalized (on success) and its metrics
// reported.
func (s *Servable) AsyncRun(stats *Stats, request RequestProvider, response ResponseProvider, onComplete func(error)) {
	wrapped := func(err error) {
		if err == nil {
			err = stats.Advance(PhaseCompleted)
		}
		stats.report(s, err)
		onComplete(err)
	}
	sched := s.getScheduler()
	if sched == nil {
		wrapped(errInternalf("no scheduler set for model %q", s.Name()))
		return
	}
	stats.SetBatchSize(request.RequestHeader().BatchSize)
	if err := stats.Advance(PhaseInputsRead); err != nil {
		wrapped(err)
		return
	}
	if err := stats.Advance(PhaseScheduled); err != nil {
		wrapped(err)
		return
	}
	sched.Enqueue(stats, request, response, wrapped)
}

// Run is the synchronous facade over AsyncRun for frontends that block
// the calling goroutine: it returns after onComplete has been invoked.
// The wait sits on a dedicated completion channel, never on a
// goroutine the scheduler needs to make progress.
func (s *Servable) Run(stats *Stats, request RequestProvider, response ResponseProvider, onComplete func(error)) {
	done := make(chan struct{})
	s.AsyncRun(stats, request, response, func(err error) {
		onComplete(err)
		close(done)
	})
	<-done
}
