package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shortsmith/internal/logging"
	"shortsmith/internal/services"
)

// Start recovers interrupted jobs, loads the queue, and launches the workers.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if len(m.pipeline) == 0 {
		m.mu.Unlock()
		return errors.New("workflow stages not configured")
	}
	m.mu.Unlock()

	reset, err := m.store.ResetStuckProcessing(ctx)
	if err != nil {
		return fmt.Errorf("reset stuck jobs: %w", err)
	}
	if reset > 0 {
		m.logger.Info("reset interrupted jobs",
			logging.Int64("count", reset),
			logging.String(logging.FieldEventType, "startup_recovery"),
		)
	}
	ids, err := m.store.QueuedIDs(ctx)
	if err != nil {
		return fmt.Errorf("load queued jobs: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.running = true
	m.cancel = cancel
	for _, id := range ids {
		if _, ok := m.queued[id]; ok {
			continue
		}
		m.pushLocked(id)
	}
	pipeline := m.pipeline
	m.mu.Unlock()

	for i := 0; i < m.workers; i++ {
		m.wg.Add(1)
		go m.runWorker(runCtx, i)
	}
	if interval := m.healthInterval(); interval > 0 {
		m.wg.Add(1)
		go m.monitorHealth(runCtx, interval)
	}

	m.logger.Info("workflow started",
		logging.Int("workers", m.workers),
		logging.Int("queued", len(ids)),
		logging.Int("stages", len(pipeline)),
		logging.String(logging.FieldEventType, "workflow_started"),
	)
	return nil
}

// Stop cancels the workers and waits for them to exit. Jobs interrupted
// mid-stage stay processing in the store and are reset on the next Start.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	m.cancel = nil
	for id, timer := range m.delayed {
		timer.Stop()
		delete(m.delayed, id)
	}
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()

	m.mu.Lock()
	m.pending = nil
	m.queued = make(map[string]struct{})
	m.rerun = make(map[string]struct{})
	m.mu.Unlock()
	m.logger.Info("workflow stopped", logging.String(logging.FieldEventType, "workflow_stopped"))
}

func (m *Manager) runWorker(ctx context.Context, worker int) {
	defer m.wg.Done()
	for {
		id, ok := m.next(ctx)
		if !ok {
			return
		}
		retryAfter, retry := m.processJob(ctx, worker, id)
		m.release(id, retryAfter, retry)
	}
}

func (m *Manager) healthInterval() time.Duration {
	if m.cfg.Workflow.HealthCheckInterval <= 0 {
		return 0
	}
	return time.Duration(m.cfg.Workflow.HealthCheckInterval) * time.Second
}

func (m *Manager) monitorHealth(ctx context.Context, interval time.Duration) {
	defer m.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, h := range m.stageHealth(ctx) {
				if h.Ready {
					continue
				}
				m.logger.Warn("stage unhealthy",
					logging.Stage(h.Name),
					logging.String("detail", h.Detail),
					logging.String(logging.FieldEventType, "stage_unhealthy"),
					logging.String(logging.FieldImpact, "jobs reaching this stage will fail or retry"),
					logging.Alert("stage_health"),
				)
			}
		}
	}
}

func (m *Manager) setLastError(id string, err error) {
	m.mu.Lock()
	m.lastErr = err
	m.lastJob = id
	m.mu.Unlock()
}

func workerContext(ctx context.Context, worker int, id, requestID string) context.Context {
	ctx = services.WithJobID(ctx, id)
	ctx = services.WithWorker(ctx, worker)
	return services.WithRequestID(ctx, requestID)
}
