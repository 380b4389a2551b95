package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// HeldInput is an InputSource holding the axes most recently set
type HeldInput struct {
	mu sync.Mutex
	in Input
}

// Set replaces the held axes
func (h *HeldInput) Set(in Input) {
	h.mu.Lock()
	h.in = in.clamped()
	h.mu.Unlock()
}

// Sample implements InputSource
func (h *HeldInput) Sample() Input {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.in
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithLocker serialises ticks with other users of the vehicle
func WithLocker(l sync.Locker) RunnerOption {
	return func(r *Runner) {
		r.lock = l
	}
}

// WithTickHook is called with the status after every tick, under the lock
func WithTickHook(fn func(Status)) RunnerOption {
	return func(r *Runner) {
		r.onTick = fn
	}
}

// WithRunnerLogger sets the runner logger
func WithRunnerLogger(log zerolog.Logger) RunnerOption {
	return func(r *Runner) {
		r.log = log
	}
}

// Runner drives one vehicle at its tick rate from a background goroutine
type Runner struct {
	vehicle *Vehicle
	input   InputSource
	period  time.Duration
	lock    sync.Locker
	onTick  func(Status)
	log     zerolog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewRunner attaches a runner to v. Closing v stops the runner.
func NewRunner(v *Vehicle, input InputSource, opts ...RunnerOption) *Runner {
	r := &Runner{
		vehicle: v,
		input:   input,
		period:  time.Second / time.Duration(v.tickRate),
		lock:    &sync.Mutex{},
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	v.runner = r
	return r
}

// Start begins ticking until ctx is cancelled or Stop is called
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.running = true
	r.log.Debug().Dur("period", r.period).Msg("runner started")
	go r.loop(ctx, r.done)
}

// Stop cancels the loop and waits for the in-flight tick to finish. It is
// safe to call more than once and must not be called with the lock held.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	cancel()
	<-done
	r.log.Debug().Msg("runner stopped")
}

// Running reports whether the loop is active
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Runner) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.step(ctx)
		}
	}
}

func (r *Runner) step(ctx context.Context) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if ctx.Err() != nil || r.vehicle.closed {
		return
	}
	var in Input
	if r.input != nil {
		in = r.input.Sample()
	}
	r.vehicle.Tick(in)
	if r.onTick != nil {
		r.onTick(r.vehicle.Status())
	}
}
