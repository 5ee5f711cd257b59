// Package plancache stores compiled plans keyed by komposition
// fingerprint. Identical documents produce identical graphs, so a cache
// hit skips the entire pipeline.
package plancache

import (
	"context"
	"errors"
	"sync"

	"github.com/mattjoyce/kompozer/internal/plan"
)

// ErrMiss reports that no plan is cached for a fingerprint.
var ErrMiss = errors.New("plan cache miss")

// Store persists plans by komposition fingerprint.
type Store interface {
	// Get returns the cached plan for the fingerprint, or ErrMiss.
	Get(ctx context.Context, fingerprint string) (*plan.BuildPlan, error)
	// Put stores the plan under its fingerprint, replacing any prior entry.
	Put(ctx context.Context, p *plan.BuildPlan) error
	Close() error
}

// Memory is a process-local Store.
type Memory struct {
	mu    sync.RWMutex
	plans map[string][]byte
}

// NewMemory builds an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{plans: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, fingerprint string) (*plan.BuildPlan, error) {
	m.mu.RLock()
	data, ok := m.plans[fingerprint]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrMiss
	}
	return plan.Decode(data)
}

func (m *Memory) Put(_ context.Context, p *plan.BuildPlan) error {
	data, err := p.Encode()
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.plans[p.KompositionFingerprint] = data
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }
