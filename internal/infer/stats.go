package infer

import (
	"sync"
	"time"
)

// Phase is one step of the request lifecycle. A request advances one
// phase at a time; skipping a phase is an integration bug. A failed
// request abandons the machine at whatever phase it reached.
type Phase int

const (
	PhaseCreated Phase = iota
	PhaseInputsRead
	PhaseScheduled
	PhaseExecuted
	PhaseFinalized
	PhaseCompleted
)

func (p Phase) String() string {
	switch p {
	case PhaseCreated:
		return "created"
	case PhaseInputsRead:
		return "inputs-read"
	case PhaseScheduled:
		return "scheduled"
	case PhaseExecuted:
		return "executed"
	case PhaseFinalized:
		return "finalized"
	case PhaseCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Stats tracks one request's lifecycle phase, timings and counts, and
// reports them to the owning servable's metric series on completion.
type Stats struct {
	mu    sync.Mutex
	phase Phase

	device     int
	batchSize  int
	executions int

	requestStart time.Time
	queueStart   time.Time
	computeStart time.Time
	queueDur     time.Duration
	computeDur   time.Duration
}

// NewStats starts the lifecycle clock for one request. device is the
// accelerator the request will run on, or -1 when not specialized.
func NewStats(device int) *Stats {
	return &Stats{device: device, requestStart: time.Now()}
}

// Device returns the accelerator index the stats are keyed on.
func (st *Stats) Device() int { return st.device }

// Phase returns the current lifecycle phase.
func (st *Stats) Phase() Phase {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.phase
}

// Advance moves the lifecycle to next. Only the immediately following
// phase is legal.
func (st *Stats) Advance(next Phase) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if next != st.phase+1 {
		return errMisusef("request phase %s cannot advance to %s", st.phase, next)
	}
	st.phase = next
	return nil
}

// SetBatchSize records the request's batch size for count metrics.
func (st *Stats) SetBatchSize(n int) {
	st.mu.Lock()
	st.batchSize = n
	st.mu.Unlock()
}

// MarkEnqueued starts the queue-duration clock.
func (st *Stats) MarkEnqueued() {
	st.mu.Lock()
	st.queueStart = time.Now()
	st.mu.Unlock()
}

// MarkDequeued stops the queue-duration clock.
func (st *Stats) MarkDequeued() {
	st.mu.Lock()
	if !st.queueStart.IsZero() {
		st.queueDur = time.Since(st.queueStart)
	}
	st.mu.Unlock()
}

// MarkComputeStart starts the compute-duration clock and counts one
// execution of the model for this request.
func (st *Stats) MarkComputeStart() {
	st.mu.Lock()
	st.computeStart = time.Now()
	st.executions++
	st.mu.Unlock()
}

// MarkComputeEnd stops the compute-duration clock.
func (st *Stats) MarkComputeEnd() {
	st.mu.Lock()
	if !st.computeStart.IsZero() {
		st.computeDur += time.Since(st.computeStart)
	}
	st.mu.Unlock()
}

// report publishes the request's outcome to the servable's per-device
// metric series. Called exactly once, from the completion wrapper.
func (st *Stats) report(s *Servable, err error) {
	st.mu.Lock()
	device := st.device
	batch := st.batchSize
	executions := st.executions
	requestDur := time.Since(st.requestStart)
	queueDur := st.queueDur
	computeDur := st.computeDur
	st.mu.Unlock()

	if err != nil {
		s.MetricInferenceFailure(device).Inc()
		return
	}
	s.MetricInferenceSuccess(device).Inc()
	s.MetricInferenceCount(device).Add(float64(batch))
	s.MetricInferenceExecutionCount(device).Add(float64(executions))
	s.MetricInferenceRequestDuration(device).Add(float64(requestDur.Microseconds()))
	s.MetricInferenceQueueDuration(device).Add(float64(queueDur.Microseconds()))
	s.MetricInferenceComputeDuration(device).Add(float64(computeDur.Microseconds()))
	if max := s.Config().MaxBatchSize; max > 0 && batch > 0 {
		s.MetricInferenceLoadRatio(device).Observe(float64(batch) / float64(max))
	}
}
