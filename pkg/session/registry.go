package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Handle is one registered live session.
type Handle struct {
	SessionID  string
	TraceID    string
	Controller *Controller
	Ctx        context.Context
	Cancel     context.CancelFunc
	Created    time.Time
}

// ControllerFactory builds a controller for a newly attached session.
type ControllerFactory func(ctx context.Context, sessionID, traceID string) (*Controller, error)

// Registry is the process-wide session table. Lookups across sessions
// never block each other; each entry owns its controller for its lifetime.
type Registry struct {
	sessions sync.Map
	count    atomic.Int64
	factory  ControllerFactory
	draining atomic.Bool
}

func NewRegistry(factory ControllerFactory) *Registry {
	return &Registry{factory: factory}
}

// GetOrCreate returns the session for sessionID, creating and starting a
// controller on first attach. The second return value reports whether a
// new session was created.
func (r *Registry) GetOrCreate(sessionID, traceID string) (*Handle, bool, error) {
	if sessionID == "" {
		return nil, false, nil
	}
	if v, ok := r.sessions.Load(sessionID); ok {
		return v.(*Handle), false, nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	ctrl, err := r.factory(ctx, sessionID, traceID)
	if err != nil {
		cancel()
		return nil, false, err
	}
	if err := ctrl.Start(); err != nil {
		cancel()
		return nil, false, err
	}
	h := &Handle{
		SessionID:  sessionID,
		TraceID:    traceID,
		Controller: ctrl,
		Ctx:        ctx,
		Cancel:     cancel,
		Created:    time.Now(),
	}
	actual, loaded := r.sessions.LoadOrStore(sessionID, h)
	if loaded {
		ctrl.Stop()
		cancel()
		return actual.(*Handle), false, nil
	}
	r.count.Add(1)
	return h, true, nil
}

func (r *Registry) Get(sessionID string) (*Handle, bool) {
	if v, ok := r.sessions.Load(sessionID); ok {
		return v.(*Handle), true
	}
	return nil, false
}

func (r *Registry) Remove(sessionID string) {
	if v, ok := r.sessions.LoadAndDelete(sessionID); ok {
		h := v.(*Handle)
		if h.Cancel != nil {
			h.Cancel()
		}
		if h.Controller != nil {
			h.Controller.Stop()
		}
		r.count.Add(-1)
	}
}

func (r *Registry) CloseAll() {
	r.sessions.Range(func(key, value any) bool {
		if sessionID, ok := key.(string); ok {
			r.Remove(sessionID)
		}
		return true
	})
}

func (r *Registry) Count() int64 {
	return r.count.Load()
}

func (r *Registry) SetDraining(v bool) {
	r.draining.Store(v)
}

func (r *Registry) Draining() bool {
	return r.draining.Load()
}

// WaitForEmpty blocks until every session has been removed or ctx ends.
func (r *Registry) WaitForEmpty(ctx context.Context, interval time.Duration) bool {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if r.Count() == 0 {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}
