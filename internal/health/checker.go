// Package health runs periodic integrity audits of the verification ledger.
package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Probe names.
const (
	ProbeStore       = "store"
	ProbeMemoryChain = "memory_chain"
	ProbeStoredChain = "stored_chain"
)

// Event routing keys passed to the event callback.
const (
	EventDegraded  = "ledger.integrity.degraded"
	EventRecovered = "ledger.integrity.recovered"
)

// Config holds audit configuration.
type Config struct {
	CheckInterval time.Duration
	ProbeTimeout  time.Duration
	FailThreshold int
}

// Auditable is the slice of *ledger.Ledger the checker probes.
type Auditable interface {
	Ping(ctx context.Context) error
	Verify() error
	VerifyStored(ctx context.Context) error
}

// EventFunc is an optional callback for integrity state transitions.
type EventFunc func(ctx context.Context, routingKey string, payload map[string]string)

// MetricsFunc is an optional callback for recording probe results.
type MetricsFunc func(probe string, success bool)

// Checker probes the ledger on an interval and reports when a probe has
// failed FailThreshold times in a row, and again when it recovers.
type Checker struct {
	target     Auditable
	cfg        Config
	mu         sync.Mutex
	failCounts map[string]int
	onEvent    EventFunc
	onMetrics  MetricsFunc
	logger     *zap.Logger
}

// New creates a Checker.
func New(target Auditable, cfg Config, logger *zap.Logger) *Checker {
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = 5 * time.Minute
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = 30 * time.Second
	}
	if cfg.FailThreshold == 0 {
		cfg.FailThreshold = 3
	}
	return &Checker{
		target:     target,
		cfg:        cfg,
		failCounts: make(map[string]int),
		logger:     logger,
	}
}

// SetEventFunc configures the transition callback.
func (h *Checker) SetEventFunc(fn EventFunc) {
	h.onEvent = fn
}

// SetMetricsFunc configures the metrics callback.
func (h *Checker) SetMetricsFunc(fn MetricsFunc) {
	h.onMetrics = fn
}

// Start runs the audit loop until ctx is done.
func (h *Checker) Start(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.CheckAll(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Degraded reports whether any probe is at or past the fail threshold.
func (h *Checker) Degraded() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, n := range h.failCounts {
		if n >= h.cfg.FailThreshold {
			return true
		}
	}
	return false
}

// CheckAll runs every probe concurrently and waits for them.
func (h *Checker) CheckAll(ctx context.Context) {
	probes := map[string]func(context.Context) error{
		ProbeStore:       h.target.Ping,
		ProbeMemoryChain: func(context.Context) error { return h.target.Verify() },
		ProbeStoredChain: h.target.VerifyStored,
	}

	var wg sync.WaitGroup
	for name, fn := range probes {
		wg.Add(1)
		go func(name string, fn func(context.Context) error) {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, h.cfg.ProbeTimeout)
			defer cancel()
			h.record(ctx, name, fn(pctx))
		}(name, fn)
	}
	wg.Wait()
}

func (h *Checker) record(ctx context.Context, probe string, err error) {
	success := err == nil
	if h.onMetrics != nil {
		h.onMetrics(probe, success)
	}

	h.mu.Lock()
	prevCount := h.failCounts[probe]
	if success {
		h.failCounts[probe] = 0
	} else {
		h.failCounts[probe]++
	}
	count := h.failCounts[probe]
	h.mu.Unlock()

	switch {
	case success && prevCount >= h.cfg.FailThreshold:
		h.logger.Info("health: recovered", zap.String("probe", probe))
		h.emit(ctx, EventRecovered, map[string]string{"probe": probe})
	case !success && count == h.cfg.FailThreshold:
		h.logger.Warn("health: degraded",
			zap.String("probe", probe),
			zap.Int("fail_count", count),
			zap.Error(err),
		)
		h.emit(ctx, EventDegraded, map[string]string{"probe": probe, "error": err.Error()})
	case !success:
		h.logger.Debug("health: probe failed", zap.String("probe", probe), zap.Error(err))
	}
}

func (h *Checker) emit(ctx context.Context, key string, payload map[string]string) {
	if h.onEvent != nil {
		h.onEvent(ctx, key, payload)
	}
}
