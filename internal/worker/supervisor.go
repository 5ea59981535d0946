package worker

import (
	"context"
	"sync"
)

// Supervisor enforces the process-lifecycle contract that a hosting process
// owns at most one running worker: starting a second while one is running
// returns the existing handle.
type Supervisor struct {
	mu     sync.Mutex
	handle *Handle
}

// Handle tracks one running worker instance.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

// NewSupervisor returns an empty supervisor.
func NewSupervisor() *Supervisor {
	return &Supervisor{}
}

// Start launches run in the background, or returns the existing handle if a
// worker is already running.
func (s *Supervisor) Start(ctx context.Context, run func(context.Context) error) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != nil {
		select {
		case <-s.handle.done:
			// previous worker exited; fall through and start a new one
		default:
			return s.handle
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	handle := &Handle{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.handle = handle

	go func() {
		err := run(runCtx)
		handle.mu.Lock()
		handle.err = err
		handle.mu.Unlock()
		close(handle.done)
	}()

	return handle
}

// Running reports whether a worker is currently active.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return false
	}
	select {
	case <-s.handle.done:
		return false
	default:
		return true
	}
}

// Stop cancels the worker's context.
func (h *Handle) Stop() {
	h.cancel()
}

// Done is closed once the worker has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the worker's exit error after Done is closed.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Wait blocks until the worker exits and returns its error.
func (h *Handle) Wait() error {
	<-h.done
	return h.Err()
}
