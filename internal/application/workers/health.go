package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// HealthMonitor samples worker states, publishes pool gauges and warns
// when blocking handlers start queueing.
type HealthMonitor struct {
	pool     *Pool
	interval time.Duration
	logger   *zap.Logger

	mu        sync.Mutex
	saturated int // consecutive samples with no idle worker
	last      time.Time
}

// HealthStatus is a point-in-time view of the pool
type HealthStatus struct {
	TotalWorkers    int       `json:"total_workers"`
	IdleWorkers     int       `json:"idle_workers"`
	BusyWorkers     int       `json:"busy_workers"`
	StoppedWorkers  int       `json:"stopped_workers"`
	SaturatedChecks int       `json:"saturated_checks"`
	Healthy         bool      `json:"healthy"`
	LastCheck       time.Time `json:"last_check"`
}

// NewHealthMonitor creates a monitor for pool. A non-positive interval
// disables periodic checks; GetStatus still works.
func NewHealthMonitor(pool *Pool, interval time.Duration, logger *zap.Logger) *HealthMonitor {
	return &HealthMonitor{
		pool:     pool,
		interval: interval,
		logger:   logger.Named("pool-health"),
	}
}

// watch samples the pool every interval until ctx is done
func (h *HealthMonitor) watch(ctx context.Context) {
	if h.interval <= 0 {
		return
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.sample()
		}
	}
}

// sample records one observation of the pool
func (h *HealthMonitor) sample() {
	idle, busy, stopped := h.count()
	h.pool.metrics.RecordWorkerPoolStatus(idle, busy, stopped)

	h.mu.Lock()
	h.last = time.Now()
	if idle == 0 && busy > 0 {
		h.saturated++
	} else {
		h.saturated = 0
	}
	saturated := h.saturated
	h.mu.Unlock()

	if stopped > 0 {
		h.logger.Warn("workers stopped", zap.Int("stopped", stopped))
	}
	if saturated > 1 {
		h.logger.Warn("no idle worker, blocking handlers are queueing",
			zap.Int("busy", busy),
			zap.Int("consecutive_checks", saturated))
	}
}

func (h *HealthMonitor) count() (idle, busy, stopped int) {
	for _, status := range h.pool.GetStatus() {
		switch status {
		case WorkerStatusIdle:
			idle++
		case WorkerStatusBusy:
			busy++
		case WorkerStatusStopped:
			stopped++
		}
	}
	return idle, busy, stopped
}

// GetStatus returns the current health status
func (h *HealthMonitor) GetStatus() *HealthStatus {
	idle, busy, stopped := h.count()
	total := idle + busy + stopped

	h.mu.Lock()
	defer h.mu.Unlock()

	return &HealthStatus{
		TotalWorkers:    total,
		IdleWorkers:     idle,
		BusyWorkers:     busy,
		StoppedWorkers:  stopped,
		SaturatedChecks: h.saturated,
		Healthy:         total > 0 && stopped == 0,
		LastCheck:       h.last,
	}
}

// IsHealthy reports whether the pool has started and no worker has stopped
func (h *HealthMonitor) IsHealthy() bool {
	return h.GetStatus().Healthy
}
