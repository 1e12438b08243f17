package workflow

import (
	"context"
	"sort"

	"shortsmith/internal/queue"
	"shortsmith/internal/services"
	"shortsmith/internal/stage"
)

// StatusSummary exposes the manager's runtime state.
type StatusSummary struct {
	Running      bool
	Workers      int
	QueueDepth   int
	Pending      []string
	InFlight     []string
	Retrying     []string
	PeakInFlight int
	QueueStats   map[queue.Status]int
	StageHealth  []stage.Health
	LastError    string
	LastJobID    string
}

// Status returns the current manager status snapshot.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.Lock()
	summary := StatusSummary{
		Running:      m.running,
		Workers:      m.workers,
		QueueDepth:   len(m.pending),
		Pending:      append([]string(nil), m.pending...),
		InFlight:     keys(m.processing),
		PeakInFlight: m.peak,
		LastJobID:    m.lastJob,
	}
	retrying := make([]string, 0, len(m.delayed))
	for id := range m.delayed {
		retrying = append(retrying, id)
	}
	if m.lastErr != nil {
		summary.LastError = services.Message(m.lastErr)
	}
	m.mu.Unlock()

	sort.Strings(retrying)
	summary.Retrying = retrying
	if stats, err := m.store.Stats(ctx); err == nil {
		summary.QueueStats = stats
	}
	summary.StageHealth = m.stageHealth(ctx)
	return summary
}

func (m *Manager) stageHealth(ctx context.Context) []stage.Health {
	pipeline := m.stages()
	out := make([]stage.Health, 0, len(pipeline))
	for _, st := range pipeline {
		out = append(out, st.handler.HealthCheck(ctx))
	}
	return out
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
