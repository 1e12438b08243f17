package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"shortsmith/internal/config"
	"shortsmith/internal/logging"
	"shortsmith/internal/notifications"
	"shortsmith/internal/queue"
	"shortsmith/internal/renderspec"
	"shortsmith/internal/scene"
	"shortsmith/internal/services"
	"shortsmith/internal/stage"
)

// Collaborator contracts implemented by the service adapters.
type (
	Narrator        = stage.Narrator
	FootageSearcher = stage.FootageSearcher
	Renderer        = stage.Renderer
)

// ErrJobInFlight rejects changing a job that a worker is processing.
var ErrJobInFlight = fmt.Errorf("%w: job is already processing", services.ErrConflict)

// Manager coordinates job processing using registered stage handlers.
type Manager struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	notifier notifications.Service

	pipeline []pipelineStage
	workers  int

	mu         sync.Mutex
	pending    []string
	queued     map[string]struct{}
	processing map[string]struct{}
	rerun      map[string]struct{}
	delayed    map[string]*time.Timer
	wake       chan struct{}
	peak       int

	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
	lastJob string
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithNotifier overrides the notifier built from config.
func WithNotifier(notifier notifications.Service) ManagerOption {
	return func(m *Manager) {
		if notifier != nil {
			m.notifier = notifier
		}
	}
}

// NewManager constructs a workflow manager. Stages are registered with
// ConfigureStages before Start.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	workers := cfg.Workflow.Workers
	if workers < 1 {
		workers = 1
	}
	m := &Manager{
		cfg:        cfg,
		store:      store,
		logger:     logger.With(logging.String(logging.FieldComponent, "workflow-manager")),
		notifier:   notifications.NewService(cfg),
		workers:    workers,
		queued:     make(map[string]struct{}),
		processing: make(map[string]struct{}),
		rerun:      make(map[string]struct{}),
		delayed:    make(map[string]*time.Timer),
		wake:       make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Enqueue validates and persists a new job, then appends it to the queue.
func (m *Manager) Enqueue(ctx context.Context, scenes []scene.Scene, cfg renderspec.Config) (string, error) {
	if err := scene.Validate(scenes); err != nil {
		return "", services.Wrap(services.ErrValidation, "submit", "scenes", err.Error(), nil)
	}
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	job, err := m.store.Create(ctx, scenes, cfg)
	if err != nil {
		return "", fmt.Errorf("persist job: %w", err)
	}
	m.push(job.ID)
	m.logger.Info("job enqueued",
		logging.JobID(job.ID),
		logging.String(logging.FieldEventType, "job_enqueued"),
		logging.Int("scenes", len(scenes)),
	)
	return job.ID, nil
}

// Requeue schedules a stored job that is already marked queued. A job that
// is queued or waiting out a retry backoff coalesces into a single entry. A
// job a worker still holds is queued again once the worker releases it; the
// claim skips it if that worker already picked up the queued row.
func (m *Manager) Requeue(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.processing[id]; ok {
		m.rerun[id] = struct{}{}
		return nil
	}
	if _, ok := m.queued[id]; ok {
		return nil
	}
	if timer, ok := m.delayed[id]; ok {
		timer.Stop()
		delete(m.delayed, id)
	}
	m.pushLocked(id)
	return nil
}

// InFlight reports whether the id is queued, processing, or waiting to retry.
func (m *Manager) InFlight(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, q := m.queued[id]
	_, p := m.processing[id]
	_, d := m.delayed[id]
	return q || p || d
}

// Processing reports whether a worker currently owns the id.
func (m *Manager) Processing(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.processing[id]
	return ok
}

func (m *Manager) push(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.processing[id]; ok {
		return
	}
	if _, ok := m.queued[id]; ok {
		return
	}
	m.pushLocked(id)
}

func (m *Manager) pushLocked(id string) {
	m.queued[id] = struct{}{}
	m.pending = append(m.pending, id)
	m.signalLocked()
}

func (m *Manager) signalLocked() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// next blocks until a job id is available or ctx is done.
func (m *Manager) next(ctx context.Context) (string, bool) {
	for {
		m.mu.Lock()
		if len(m.pending) > 0 {
			id := m.pending[0]
			m.pending[0] = ""
			m.pending = m.pending[1:]
			delete(m.queued, id)
			m.processing[id] = struct{}{}
			if n := len(m.processing); n > m.peak {
				m.peak = n
			}
			if len(m.pending) > 0 {
				m.signalLocked()
			}
			m.mu.Unlock()
			return id, true
		}
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return "", false
		case <-m.wake:
		}
	}
}

// release ends a worker's ownership of id, then schedules a retry or a
// requeue that arrived while the id was held.
func (m *Manager) release(id string, retryAfter time.Duration, retry bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.processing, id)
	_, rerun := m.rerun[id]
	delete(m.rerun, id)
	if !retry && !rerun {
		return
	}
	if !m.running {
		// Left queued in the store; picked up on the next Start.
		return
	}
	if !retry || retryAfter <= 0 {
		m.pushLocked(id)
		return
	}
	var timer *time.Timer
	timer = time.AfterFunc(retryAfter, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if current, ok := m.delayed[id]; !ok || current != timer {
			return
		}
		delete(m.delayed, id)
		if _, busy := m.processing[id]; busy {
			return
		}
		if _, ok := m.queued[id]; ok {
			return
		}
		m.pushLocked(id)
	})
	m.delayed[id] = timer
}
