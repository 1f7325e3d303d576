// Package interview wires configuration, transports, recognition
// providers, evaluation, and the session registry into one runnable
// engine.
package interview

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MananS02/Interview/pkg/adapters/stt"
	"github.com/MananS02/Interview/pkg/evaluation"
	"github.com/MananS02/Interview/pkg/logging"
	"github.com/MananS02/Interview/pkg/redact"
	"github.com/MananS02/Interview/pkg/report"
	"github.com/MananS02/Interview/pkg/runner"
	"github.com/MananS02/Interview/pkg/session"
	"github.com/MananS02/Interview/pkg/transports"
)

type Engine struct {
	cfg       Config
	providers *ProviderRegistry
	registry  *session.Registry
	primary   transports.Transport
	fallback  transports.Transport
	evaluator evaluation.Evaluator
	reports   report.Store
	runner    *runner.LifecycleRunner
	ctx       context.Context
	cancel    context.CancelFunc

	mu          sync.Mutex
	recognizers map[string]stt.StreamingSTT

	completed  atomic.Int64
	totalTurns atomic.Int64
}

// EngineOptions overrides individual collaborators, mostly for tests.
// Anything left nil is built from the config through the provider
// registry.
type EngineOptions struct {
	Config    Config
	Providers *ProviderRegistry
	Primary   transports.Transport
	Fallback  transports.Transport
	Evaluator evaluation.Evaluator
	Reports   report.Store
}

// Stats is an aggregate snapshot across all sessions.
type Stats struct {
	ActiveSessions    int64 `json:"active_sessions"`
	CompletedSessions int64 `json:"completed_sessions"`
	TotalTurns        int64 `json:"total_turns"`
}

func NewEngine(opts EngineOptions) (*Engine, error) {
	cfg := opts.Config
	logging.SetDefaultLogger(cfg.LogLevel)
	redact.SetEnabled(cfg.Evaluation.RedactPII)

	providers := opts.Providers
	if providers == nil {
		providers = DefaultProviders()
	}

	evaluator := opts.Evaluator
	if evaluator == nil {
		var err error
		evaluator, err = providers.BuildEvaluator(cfg)
		if err != nil {
			return nil, fmt.Errorf("build evaluator: %w", err)
		}
	}

	primary := opts.Primary
	if primary == nil && transportEnabled(cfg.Transports.Primary) {
		var err error
		primary, err = providers.BuildTransport(cfg.Transports.Primary)
		if err != nil {
			return nil, fmt.Errorf("build primary transport: %w", err)
		}
	}
	fallback := opts.Fallback
	if fallback == nil {
		var err error
		fallback, err = providers.BuildTransport(cfg.Transports.Fallback)
		if err != nil {
			return nil, fmt.Errorf("build fallback transport: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		cfg:         cfg,
		providers:   providers,
		primary:     primary,
		fallback:    fallback,
		evaluator:   evaluator,
		reports:     opts.Reports,
		ctx:         ctx,
		cancel:      cancel,
		recognizers: make(map[string]stt.StreamingSTT),
	}

	e.registry = session.NewRegistry(e.sessionFactory)

	hooks := runner.Hooks{
		OnStart: func() {
			fields := []any{"message", "Interview Engine Ready"}
			for _, t := range []transports.Transport{e.primary, e.fallback} {
				if rr, ok := t.(transports.ReadyReporter); ok {
					for k, v := range rr.ReadyFields() {
						fields = append(fields, k, v)
					}
				}
			}
			slog.Info("engine_ready", fields...)
		},
		OnStop: func() {
			slog.Info("shutdown",
				"goroutines", runtime.NumGoroutine(),
				"active_sessions", e.registry.Count())
		},
	}
	drainer := runner.DrainerFunc(func() error {
		if e.primary != nil {
			_ = e.primary.Stop()
		}
		if e.fallback != nil {
			_ = e.fallback.Stop()
		}
		e.registry.SetDraining(true)
		e.registry.CloseAll()
		drainCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		_ = e.registry.WaitForEmpty(drainCtx, 200*time.Millisecond)
		return nil
	})
	e.runner = runner.NewLifecycleRunner(drainer, hooks, 30*time.Second)

	slog.Info("interview_init",
		"environment", cfg.Environment,
		"recognition_provider", cfg.Recognition.Provider,
		"evaluation_provider", cfg.Evaluation.Provider,
		"questions", len(cfg.Questions))
	return e, nil
}

func transportEnabled(vendor VendorConfig) bool {
	p := strings.ToLower(strings.TrimSpace(vendor.Provider))
	return p != "" && p != "none"
}

// sessionFactory builds the controller and per-session recognizer for a
// newly attached session.
func (e *Engine) sessionFactory(ctx context.Context, sessionID, traceID string) (*session.Controller, error) {
	logger := logging.NewSessionLogger(slog.Default(), sessionID)

	recognizer, err := e.providers.BuildRecognizer(e.cfg, sessionID, traceID)
	if err != nil {
		return nil, fmt.Errorf("build recognizer: %w", err)
	}
	if err := recognizer.Start(ctx); err != nil {
		return nil, fmt.Errorf("start recognizer: %w", err)
	}

	var ctrl *session.Controller
	ctrl = session.New(e.cfg.SessionConfigFor(sessionID, traceID), session.Deps{
		Sender:     e.sender(),
		Recognizer: recognizer,
		Evaluator:  e.evaluator,
		Reports:    e.reports,
		Logger:     logger,
		OnEnded: func() {
			e.completed.Add(1)
			e.totalTurns.Add(ctrl.Turns())
			e.teardownSession(sessionID)
		},
	})

	e.mu.Lock()
	e.recognizers[sessionID] = recognizer
	e.mu.Unlock()

	// Pump recognition frames into the session event queue.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case f, ok := <-recognizer.Results():
				if !ok {
					return
				}
				ctrl.HandleFrame(f)
			}
		}
	}()

	return ctrl, nil
}

func (e *Engine) teardownSession(sessionID string) {
	e.mu.Lock()
	recognizer := e.recognizers[sessionID]
	delete(e.recognizers, sessionID)
	e.mu.Unlock()
	if recognizer != nil {
		_ = recognizer.Close()
	}
	if rp, ok := e.primary.(transports.RoomProvisioner); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = rp.TeardownRoom(ctx, sessionID)
	}
	e.registry.Remove(sessionID)
}

func (e *Engine) recognizer(sessionID string) stt.StreamingSTT {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recognizers[sessionID]
}

func (e *Engine) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if e.reports == nil {
		if dsn := strings.TrimSpace(e.cfg.Report.PostgresDSN); dsn != "" {
			store, err := report.NewPostgresStore(ctx, dsn)
			if err != nil {
				return fmt.Errorf("report store: %w", err)
			}
			e.reports = store
		} else {
			e.reports = report.NewMemoryStore()
		}
	}
	for _, t := range []transports.Transport{e.primary, e.fallback} {
		if t == nil {
			continue
		}
		if err := t.Start(ctx); err != nil {
			return fmt.Errorf("start %s transport: %w", t.Name(), err)
		}
		go e.dispatch(ctx, t)
	}
	go func() {
		_ = e.runner.Run(ctx)
	}()
	return nil
}

func (e *Engine) Stop() error {
	if e.cancel != nil {
		e.cancel()
	}
	return e.runner.Stop()
}

func (e *Engine) Registry() *session.Registry { return e.registry }

func (e *Engine) Reports() report.Store { return e.reports }

func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) Stats() Stats {
	return Stats{
		ActiveSessions:    e.registry.Count(),
		CompletedSessions: e.completed.Load(),
		TotalTurns:        e.totalTurns.Load(),
	}
}

func (e *Engine) Health() error {
	if e.fallback == nil {
		return fmt.Errorf("missing fallback transport")
	}
	return nil
}
