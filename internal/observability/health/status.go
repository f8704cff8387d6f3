package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// HealthStatus represents the health status
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// CheckFunc probes one dependency; a nil error means healthy
type CheckFunc func(ctx context.Context) error

type registeredCheck struct {
	check    CheckFunc
	critical bool
}

// HealthResult represents the result of a health check
type HealthResult struct {
	Status   HealthStatus  `json:"status"`
	Message  string        `json:"message,omitempty"`
	Critical bool          `json:"critical"`
	Duration time.Duration `json:"duration"`
}

// SystemStatus represents overall system health
type SystemStatus struct {
	OverallStatus  HealthStatus            `json:"status"`
	CheckResults   map[string]HealthResult `json:"checks"`
	CriticalIssues []string                `json:"critical_issues,omitempty"`
	Uptime         string                  `json:"uptime"`
	Timestamp      time.Time               `json:"timestamp"`
}

// HealthMonitor runs registered dependency checks on demand
type HealthMonitor struct {
	logger    *logrus.Logger
	timeout   time.Duration
	startTime time.Time

	mu     sync.RWMutex
	checks map[string]registeredCheck
}

// NewHealthMonitor creates a new health monitor
func NewHealthMonitor(timeout time.Duration, logger *logrus.Logger) *HealthMonitor {
	if logger == nil {
		logger = logrus.New()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &HealthMonitor{
		logger:    logger,
		timeout:   timeout,
		startTime: time.Now(),
		checks:    make(map[string]registeredCheck),
	}
}

// RegisterCheck registers a health check. A failing critical check makes
// the system unhealthy, any other failure only degrades it.
func (hm *HealthMonitor) RegisterCheck(name string, check CheckFunc, critical bool) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	hm.checks[name] = registeredCheck{check: check, critical: critical}
	hm.logger.WithField("check", name).Debug("Registered health check")
}

// Check executes all registered checks concurrently
func (hm *HealthMonitor) Check(ctx context.Context) *SystemStatus {
	hm.mu.RLock()
	checks := make(map[string]registeredCheck, len(hm.checks))
	for name, c := range hm.checks {
		checks[name] = c
	}
	hm.mu.RUnlock()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make(map[string]HealthResult, len(checks))
	)

	for name, c := range checks {
		wg.Add(1)
		go func(name string, c registeredCheck) {
			defer wg.Done()
			result := hm.executeCheck(ctx, c)

			mu.Lock()
			results[name] = result
			mu.Unlock()
		}(name, c)
	}
	wg.Wait()

	status := &SystemStatus{
		OverallStatus: StatusHealthy,
		CheckResults:  results,
		Uptime:        time.Since(hm.startTime).Round(time.Second).String(),
		Timestamp:     time.Now().UTC(),
	}

	for name, result := range results {
		if result.Status == StatusHealthy {
			continue
		}
		if result.Critical {
			status.OverallStatus = StatusUnhealthy
			status.CriticalIssues = append(status.CriticalIssues, name)
		} else if status.OverallStatus == StatusHealthy {
			status.OverallStatus = StatusDegraded
		}
	}
	sort.Strings(status.CriticalIssues)

	return status
}

// executeCheck executes a single health check
func (hm *HealthMonitor) executeCheck(ctx context.Context, c registeredCheck) HealthResult {
	start := time.Now()

	checkCtx, cancel := context.WithTimeout(ctx, hm.timeout)
	defer cancel()

	result := HealthResult{Status: StatusHealthy, Critical: c.critical}
	if err := c.check(checkCtx); err != nil {
		result.Status = StatusUnhealthy
		result.Message = err.Error()
		hm.logger.WithError(err).Warn("Health check failed")
	}
	result.Duration = time.Since(start)

	return result
}
