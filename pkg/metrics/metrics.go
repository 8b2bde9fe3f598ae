// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics implements the process-wide MetricsCollector ring
// buffer and HealthMonitor of spec §4.9: Prometheus counters/histograms
// for external observability, plus an in-memory bounded event log for
// cheap in-process statistics (count, success rate, duration percentiles).
package metrics

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kraklabs/agentmem/pkg/graph"
	"github.com/kraklabs/agentmem/pkg/model"
)

// Status is one of the four recognized operation outcomes.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusTimeout Status = "timeout"
	StatusRetry   Status = "retry"
)

// Event is one recorded operation (spec §4.9).
type Event struct {
	OperationType string
	Status        Status
	DurationMS    float64
	Timestamp     int64
	Error         string
	Metadata      map[string]any
}

// prom holds the process-wide Prometheus instruments, registered once.
type prom struct {
	once       sync.Once
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

func (p *prom) init() {
	p.once.Do(func() {
		p.operations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentmem_operations_total",
			Help: "Total core operations by type and status",
		}, []string{"operation_type", "status"})
		p.duration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agentmem_operation_duration_seconds",
			Help:    "Duration of core operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation_type"})
		prometheus.MustRegister(p.operations, p.duration)
	})
}

var globalProm prom

// Collector is a process-wide, mutex-guarded bounded ring buffer of
// recent operation events (default capacity 1000), mirrored into
// Prometheus counters/histograms for external scraping.
type Collector struct {
	mu       sync.Mutex
	capacity int
	events   []Event
	next     int
	filled   bool
}

// NewCollector constructs a Collector with the given ring buffer
// capacity; capacity <= 0 uses the spec default of 1000.
func NewCollector(capacity int) *Collector {
	if capacity <= 0 {
		capacity = 1000
	}
	globalProm.init()
	return &Collector{capacity: capacity, events: make([]Event, capacity)}
}

// Record appends ev to the ring buffer (overwriting the oldest entry once
// full) and increments its Prometheus counterparts.
func (c *Collector) Record(ev Event) {
	if ev.Timestamp == 0 {
		ev.Timestamp = model.NowMillis()
	}
	c.mu.Lock()
	c.events[c.next] = ev
	c.next = (c.next + 1) % c.capacity
	if c.next == 0 {
		c.filled = true
	}
	c.mu.Unlock()

	globalProm.operations.WithLabelValues(ev.OperationType, string(ev.Status)).Inc()
	globalProm.duration.WithLabelValues(ev.OperationType).Observe(ev.DurationMS / 1000.0)
}

// snapshot returns a copy of every currently-held event, oldest first.
func (c *Collector) snapshot() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.filled {
		out := make([]Event, c.next)
		copy(out, c.events[:c.next])
		return out
	}
	out := make([]Event, c.capacity)
	copy(out, c.events[c.next:])
	copy(out[c.capacity-c.next:], c.events[:c.next])
	return out
}

// Stats is the statistics shape of spec §4.9.
type Stats struct {
	Count       int
	SuccessRate float64
	AvgMS       float64
	MinMS       float64
	MaxMS       float64
	P95MS       float64
}

// Statistics computes count/success-rate/avg/min/max/p95 over the current
// ring buffer contents, optionally filtered to one operation type (empty
// string means all).
func (c *Collector) Statistics(operationType string) Stats {
	events := c.snapshot()
	var durations []float64
	successes := 0
	count := 0
	for _, e := range events {
		if operationType != "" && e.OperationType != operationType {
			continue
		}
		count++
		if e.Status == StatusSuccess {
			successes++
		}
		durations = append(durations, e.DurationMS)
	}
	if count == 0 {
		return Stats{}
	}
	sort.Float64s(durations)

	stats := Stats{
		Count:       count,
		SuccessRate: float64(successes) / float64(count),
		MinMS:       durations[0],
		MaxMS:       durations[len(durations)-1],
	}
	sum := 0.0
	for _, d := range durations {
		sum += d
	}
	stats.AvgMS = sum / float64(count)

	p95Index := int(float64(len(durations))*0.95 + 0.5)
	if p95Index >= len(durations) {
		p95Index = len(durations) - 1
	}
	stats.P95MS = durations[p95Index]
	return stats
}

// HealthReport is the result shape of HealthMonitor.CheckHealth (spec
// §4.9); the field is still named Neo4jAvailable to match the wire shape
// even though it now reports on whichever graph.Store backend is active.
type HealthReport struct {
	Neo4jAvailable  bool
	Version         string
	ContainerStatus string
	ResponseTimeMS  float64
	TotalMemories   int
	TotalProjects   int
	TotalAgents     int
	Issues          []string
}

// HealthMonitor probes a graph.Store for liveness and summary counts.
type HealthMonitor struct {
	graph   graph.Store
	version string
}

func NewHealthMonitor(g graph.Store, version string) *HealthMonitor {
	return &HealthMonitor{graph: g, version: version}
}

// CheckHealth implements check_health(): pings the backend, and on
// success counts memories/projects/agent types. A ping failure or any
// counting error is recorded as an issue rather than returned as an
// error, so callers always get a best-effort report.
func (h *HealthMonitor) CheckHealth(ctx context.Context) HealthReport {
	report := HealthReport{Version: h.version, ContainerStatus: "unknown"}

	start := time.Now()
	err := h.graph.Ping(ctx)
	report.ResponseTimeMS = float64(time.Since(start).Microseconds()) / 1000.0

	if err != nil {
		report.Neo4jAvailable = false
		report.Issues = append(report.Issues, "ping failed: "+err.Error())
		return report
	}
	report.Neo4jAvailable = true
	report.ContainerStatus = "running"

	if nodes, err := h.graph.ListNodes(ctx, "Memory", nil, 0); err != nil {
		report.Issues = append(report.Issues, "count memories failed: "+err.Error())
	} else {
		report.TotalMemories = len(nodes)
	}
	if nodes, err := h.graph.ListNodes(ctx, "Project", nil, 0); err != nil {
		report.Issues = append(report.Issues, "count projects failed: "+err.Error())
	} else {
		report.TotalProjects = len(nodes)
	}
	if nodes, err := h.graph.ListNodes(ctx, "AgentType", nil, 0); err != nil {
		report.Issues = append(report.Issues, "count agent types failed: "+err.Error())
	} else {
		report.TotalAgents = len(nodes)
	}

	return report
}
