package infer

import "sync"

// Scheduler accepts units of inference work on behalf of a servable.
// Enqueue must be safe from many concurrent callers. The scheduler
// guarantees the completion callback fires exactly once with a
// terminal status, after the compute path has (on success) finalized
// the response provider.
type Scheduler interface {
	Enqueue(stats *Stats, request RequestProvider, response ResponseProvider, onComplete func(error))
}

// Payload is one queued unit of work. The scheduler keeps the provider
// pair alive inside the payload until the completion callback fires.
type Payload struct {
	Stats    *Stats
	Request  RequestProvider
	Response ResponseProvider

	// Err is set by the run function when this payload failed; the
	// scheduler then skips finalization and completes with it.
	Err error

	once       sync.Once
	onComplete func(error)
}

// complete fires the completion callback, at most once.
func (p *Payload) complete(err error) {
	p.once.Do(func() { p.onComplete(err) })
}

// RunFunc is the standard run signature a servable owner supplies to a
// configured scheduler. It executes every payload in the batch on the
// given runner, writing outputs through each payload's response
// provider and recording per-payload failures in Err.
type RunFunc func(runnerID int, payloads []*Payload)

const (
	defaultRunners    = 1
	defaultQueueDepth = 128
)

// runnerPool is the standard configured scheduler: a buffered queue
// drained by a fixed set of runner goroutines. It rejects work when
// the queue is full rather than blocking the caller.
type runnerPool struct {
	servable *Servable
	onRun    RunFunc
	queue    chan *Payload
	maxBatch int
}

func newRunnerPool(s *Servable, runners, queueDepth, maxBatch int, onRun RunFunc) *runnerPool {
	if runners <= 0 {
		runners = defaultRunners
	}
	if queueDepth <= 0 {
		queueDepth = defaultQueueDepth
	}
	if maxBatch <= 0 {
		maxBatch = 1
	}
	pool := &runnerPool{
		servable: s,
		onRun:    onRun,
		queue:    make(chan *Payload, queueDepth),
		maxBatch: maxBatch,
	}
	for i := 0; i < runners; i++ {
		go pool.run(i)
	}
	return pool
}

// Enqueue hands one request to the pool, or rejects it immediately
// when the queue is full.
func (r *runnerPool) Enqueue(stats *Stats, request RequestProvider, response ResponseProvider, onComplete func(error)) {
	p := &Payload{Stats: stats, Request: request, Response: response, onComplete: onComplete}
	stats.MarkEnqueued()
	select {
	case r.queue <- p:
	default:
		p.complete(tooBusyError{model: r.servable.Name()})
	}
}

// run is one runner goroutine: it takes the next pending payload,
// opportunistically drains more pending work up to the model's max
// batch size, executes the batch, then finalizes and completes each
// payload.
func (r *runnerPool) run(id int) {
	for p := range r.queue {
		batch := []*Payload{p}
	drain:
		for len(batch) < r.maxBatch {
			select {
			case next := <-r.queue:
				batch = append(batch, next)
			default:
				break drain
			}
		}
		for _, p := range batch {
			p.Stats.MarkDequeued()
			p.Stats.MarkComputeStart()
		}
		r.onRun(id, batch)
		for _, p := range batch {
			p.Stats.MarkComputeEnd()
			r.finish(id, p)
		}
	}
}

// finish drives one payload through execution bookkeeping,
// finalization and completion. A payload that failed anywhere is
// completed with its error and its response is never finalized.
func (r *runnerPool) finish(id int, p *Payload) {
	if p.Err == nil {
		p.Err = p.Stats.Advance(PhaseExecuted)
	}
	if p.Err == nil {
		p.Err = p.Response.FinalizeResponse(r.servable)
	}
	if p.Err == nil {
		p.Err = p.Stats.Advance(PhaseFinalized)
	}
	if p.Err != nil && zlog != nil {
		zlog.Debug().
			Str("model", r.servable.Name()).
			Int("runner", id).
			Err(p.Err).
			Msg("inference failed")
	}
	p.complete(p.Err)
}
