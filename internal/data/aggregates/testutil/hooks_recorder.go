package testutil

import (
	"sync"
	"time"

	"github.com/yungbote/dealwatch-backend/internal/data/aggregates"
)

// HooksRecorder counts aggregate outcomes per operation.
type HooksRecorder struct {
	mu        sync.Mutex
	statuses  map[string][]string
	conflicts map[string]int
	retries   map[string]int
}

var _ aggregates.Hooks = (*HooksRecorder)(nil)

func (h *HooksRecorder) ObserveOperation(name, status string, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.statuses == nil {
		h.statuses = map[string][]string{}
	}
	h.statuses[name] = append(h.statuses[name], status)
}

func (h *HooksRecorder) IncConflict(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conflicts == nil {
		h.conflicts = map[string]int{}
	}
	h.conflicts[name]++
}

func (h *HooksRecorder) IncRetry(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.retries == nil {
		h.retries = map[string]int{}
	}
	h.retries[name]++
}

// Statuses returns the observed statuses for op in call order.
func (h *HooksRecorder) Statuses(op string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.statuses[op]...)
}

func (h *HooksRecorder) Conflicts(op string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conflicts[op]
}

func (h *HooksRecorder) Retries(op string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.retries[op]
}
