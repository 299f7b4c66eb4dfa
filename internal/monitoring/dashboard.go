package monitoring

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"unihub/internal/database"
	"unihub/internal/events"
	"unihub/internal/response"
	"unihub/internal/services"
)

// Component status values
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusWarning   = "warning"
	StatusCritical  = "critical"
)

const (
	memoryWarningBytes  = 1 << 30
	memoryCriticalBytes = 2 << 30
)

const activityPattern = "gamification.*"

// DatabaseMetrics is implemented by *database.Manager
type DatabaseMetrics interface {
	Metrics() *database.MetricsSnapshot
}

// ===============================
// DASHBOARD CORE
// ===============================

// Dashboard aggregates health and runtime metrics of the gamification engine
type Dashboard struct {
	services    *services.ServiceCollection
	db          DatabaseMetrics
	logger      *zap.Logger
	startTime   time.Time
	version     string
	environment string
	activity    *eventActivity
}

// NewDashboard creates a monitoring dashboard and starts counting
// gamification events per type. db may be nil when the memory store backs
// the repositories.
func NewDashboard(sc *services.ServiceCollection, db DatabaseMetrics, logger *zap.Logger, version, environment string) *Dashboard {
	d := &Dashboard{
		services:    sc,
		db:          db,
		logger:      logger.With(zap.String("component", "monitoring_dashboard")),
		startTime:   time.Now(),
		version:     version,
		environment: environment,
		activity:    &eventActivity{counts: make(map[string]int64)},
	}

	handler := events.NewEventHandlerFunc("monitoring_activity", d.activity.record)
	if err := sc.EventBus.SubscribePattern(activityPattern, handler); err != nil {
		d.logger.Warn("Event activity will not be reported", zap.Error(err))
	}
	return d
}

// eventActivity counts handled events by type
type eventActivity struct {
	mu        sync.Mutex
	counts    map[string]int64
	lastEvent time.Time
}

func (a *eventActivity) record(_ context.Context, event events.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counts[event.GetEventType()]++
	a.lastEvent = event.GetTimestamp()
	return nil
}

func (a *eventActivity) snapshot() (map[string]int64, time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]int64, len(a.counts))
	for k, v := range a.counts {
		out[k] = v
	}
	return out, a.lastEvent
}

// ===============================
// DATA STRUCTURES
// ===============================

// SystemHealthResponse is the dashboard payload
type SystemHealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Uptime      string    `json:"uptime"`
	Version     string    `json:"version"`
	Environment string    `json:"environment"`

	Components map[string]ComponentHealth `json:"components"`
	Resources  ResourceHealth             `json:"resources"`
	Alerts     []SystemAlert              `json:"alerts"`
}

// ComponentHealth represents health of a system component
type ComponentHealth struct {
	Status       string                 `json:"status"`
	LastCheck    time.Time              `json:"last_check"`
	Details      map[string]interface{} `json:"details,omitempty"`
	Error        string                 `json:"error,omitempty"`
	ResponseTime time.Duration          `json:"response_time,omitempty"`
}

// ResourceHealth represents process resource usage
type ResourceHealth struct {
	Memory     ResourceMetric `json:"memory"`
	Goroutines ResourceMetric `json:"goroutines"`
	EventQueue ResourceMetric `json:"event_queue"`
}

// ResourceMetric represents a resource metric with thresholds
type ResourceMetric struct {
	Value     interface{} `json:"value"`
	Unit      string      `json:"unit"`
	Status    string      `json:"status"`
	Threshold interface{} `json:"threshold,omitempty"`
	Usage     float64     `json:"usage_percent,omitempty"`
}

// SystemAlert represents a condition an operator should look at
type SystemAlert struct {
	Type      string    `json:"type"`
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
	Component string    `json:"component"`
	Timestamp time.Time `json:"timestamp"`
}

// ===============================
// HEALTH
// ===============================

// GetSystemHealth collects component health, resources and alerts
func (d *Dashboard) GetSystemHealth(ctx context.Context) *SystemHealthResponse {
	start := time.Now()

	resp := &SystemHealthResponse{
		Timestamp:   start,
		Uptime:      time.Since(d.startTime).String(),
		Version:     d.version,
		Environment: d.environment,
		Components:  make(map[string]ComponentHealth),
		Alerts:      make([]SystemAlert, 0),
	}

	d.checkDependencies(ctx, resp)
	d.checkEventBus(resp)
	d.checkCache(ctx, resp)
	d.checkDatabase(resp)
	d.getResourceHealth(resp)
	d.collectAlerts(resp)
	resp.Status = determineOverallStatus(resp)

	d.logger.Debug("System health check completed",
		zap.String("status", resp.Status),
		zap.Duration("check_duration", time.Since(start)),
		zap.Int("components", len(resp.Components)),
		zap.Int("alerts", len(resp.Alerts)),
	)
	return resp
}

// Handler writes the dashboard through the standard envelope
func (d *Dashboard) Handler(builder *response.Builder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		builder.WriteSuccess(w, r, d.GetSystemHealth(r.Context()))
	}
}

func (d *Dashboard) checkDependencies(ctx context.Context, resp *SystemHealthResponse) {
	health := d.services.HealthCheck(ctx)
	for name, dep := range health.Dependencies {
		resp.Components[name] = ComponentHealth{
			Status:       dep.Status,
			LastCheck:    dep.LastCheck,
			ResponseTime: dep.ResponseTime,
			Error:        dep.Error,
		}
	}
}

func (d *Dashboard) checkEventBus(resp *SystemHealthResponse) {
	stats := d.services.EventBus.Stats()
	component := resp.Components["event_bus"]
	if component.Status == "" {
		component = ComponentHealth{Status: StatusHealthy, LastCheck: time.Now()}
	}
	component.Details = map[string]interface{}{
		"events_published": stats.EventsPublished,
		"events_processed": stats.EventsProcessed,
		"events_failed":    stats.EventsFailed,
		"events_dropped":   stats.EventsDropped,
		"handlers":         stats.HandlersCount,
		"queue_depth":      stats.QueueDepth,
	}
	counts, last := d.activity.snapshot()
	component.Details["activity"] = counts
	if !last.IsZero() {
		component.Details["last_event_at"] = last
	}
	if stats.EventsDropped > 0 && component.Status == StatusHealthy {
		component.Status = StatusDegraded
	}
	resp.Components["event_bus"] = component
}

func (d *Dashboard) checkCache(ctx context.Context, resp *SystemHealthResponse) {
	if d.services.Cache == nil {
		return
	}
	component := resp.Components["cache"]
	stats, err := d.services.Cache.Stats(ctx)
	if err != nil {
		component.Status = StatusDegraded
		component.Error = err.Error()
		resp.Components["cache"] = component
		return
	}
	component.Details = map[string]interface{}{
		"hits":      stats.Hits,
		"misses":    stats.Misses,
		"keys":      stats.Keys,
		"hit_ratio": stats.HitRatio,
	}
	resp.Components["cache"] = component
}

func (d *Dashboard) checkDatabase(resp *SystemHealthResponse) {
	if d.db == nil {
		return
	}
	m := d.db.Metrics()
	component := resp.Components["database"]
	if component.Status == "" {
		component = ComponentHealth{Status: StatusHealthy, LastCheck: m.Timestamp}
	}
	component.Details = map[string]interface{}{
		"total_queries":    m.QueryCount,
		"error_count":      m.ErrorCount,
		"slow_queries":     m.SlowQueryCount,
		"transactions":     m.TransactionCount,
		"avg_duration":     m.AvgQueryDuration.String(),
		"open_connections": m.OpenConnections,
		"in_use":           m.InUse,
		"connection_waits": m.WaitCount,
	}
	resp.Components["database"] = component
}

// getResourceHealth reads runtime memory and the fan-out queue fill level
func (d *Dashboard) getResourceHealth(resp *SystemHealthResponse) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	goroutines := runtime.NumGoroutine()

	resp.Resources = ResourceHealth{
		Memory: ResourceMetric{
			Value:     formatBytes(mem.HeapAlloc),
			Unit:      "bytes",
			Status:    getResourceStatus(float64(mem.HeapAlloc), memoryWarningBytes, memoryCriticalBytes),
			Threshold: formatBytes(memoryCriticalBytes),
		},
		Goroutines: ResourceMetric{
			Value:  goroutines,
			Unit:   "count",
			Status: getResourceStatus(float64(goroutines), 1000, 2000),
		},
	}

	capacity := d.services.Config.Gamification.EventBusBufferSize
	depth := d.services.EventBus.Stats().QueueDepth
	queue := ResourceMetric{Value: depth, Unit: "events", Status: StatusHealthy, Threshold: capacity}
	if capacity > 0 {
		queue.Usage = float64(depth) / float64(capacity) * 100
		queue.Status = getResourceStatus(queue.Usage, 70, 90)
	}
	resp.Resources.EventQueue = queue
}

// ===============================
// ALERTS
// ===============================

func (d *Dashboard) collectAlerts(resp *SystemHealthResponse) {
	now := time.Now()
	for name, component := range resp.Components {
		if component.Status == StatusHealthy {
			continue
		}
		severity := StatusWarning
		if component.Status == StatusUnhealthy {
			severity = StatusCritical
		}
		message := fmt.Sprintf("%s is %s", name, component.Status)
		if component.Error != "" {
			message += ": " + component.Error
		}
		resp.Alerts = append(resp.Alerts, SystemAlert{
			Type:      "component_health",
			Severity:  severity,
			Message:   message,
			Component: name,
			Timestamp: now,
		})
	}

	resources := map[string]ResourceMetric{
		"memory":      resp.Resources.Memory,
		"goroutines":  resp.Resources.Goroutines,
		"event_queue": resp.Resources.EventQueue,
	}
	for name, metric := range resources {
		if metric.Status == StatusHealthy {
			continue
		}
		resp.Alerts = append(resp.Alerts, SystemAlert{
			Type:      "resource_usage",
			Severity:  metric.Status,
			Message:   fmt.Sprintf("%s usage is %v %s", name, metric.Value, metric.Unit),
			Component: name,
			Timestamp: now,
		})
	}
}

func determineOverallStatus(resp *SystemHealthResponse) string {
	status := StatusHealthy
	for _, alert := range resp.Alerts {
		if alert.Severity == StatusCritical {
			return StatusUnhealthy
		}
		status = StatusDegraded
	}
	return status
}

// ===============================
// UTILITY FUNCTIONS
// ===============================

// getResourceStatus determines resource status based on usage and thresholds
func getResourceStatus(value, warningThreshold, criticalThreshold float64) string {
	if value >= criticalThreshold {
		return StatusCritical
	}
	if value >= warningThreshold {
		return StatusWarning
	}
	return StatusHealthy
}

// formatBytes formats bytes in human-readable format
func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
