/*
Copyright 2024 The Spotalis Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metrics provides Prometheus metrics collection and recording for
// HotStandbyDeployment reconciliation.
package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	busyPods = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hsw_busy_pods",
			Help: "Number of pods currently classified busy by the busy prober",
		},
		[]string{"namespace", "hotstandbydeployment"},
	)

	idlePods = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hsw_idle_pods",
			Help: "Number of selected pods currently classified idle",
		},
		[]string{"namespace", "hotstandbydeployment"},
	)

	desiredReplicas = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hsw_desired_replicas",
			Help: "Desired replica count computed by the reconciler",
		},
		[]string{"namespace", "hotstandbydeployment"},
	)

	reconciliationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hsw_reconciliations_total",
			Help: "Total number of reconciliations performed",
		},
		[]string{"namespace", "hotstandbydeployment", "result"},
	)

	reconciliationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hsw_reconciliation_errors_total",
			Help: "Total number of reconciliation errors",
		},
		[]string{"namespace", "hotstandbydeployment", "error_type"},
	)

	probeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hsw_probe_errors_total",
			Help: "Total number of busy-probe failures observed across selected pods",
		},
		[]string{"namespace", "hotstandbydeployment", "mode"},
	)

	controllerLastSeen = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hsw_controller_last_seen_timestamp",
			Help: "Timestamp when controller was last seen",
		},
		[]string{"controller_name"},
	)

	leaderElectionStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hsw_leader_election_status",
			Help: "Current leader election status (1 for leader, 0 for follower)",
		},
		[]string{"controller_name"},
	)
)

// Collector handles metrics collection for the hot-standby controller.
type Collector struct {
	mutex          sync.RWMutex
	lastUpdate     time.Time
	managedHSWKeys map[string]struct{}
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	initializeMetrics()

	return &Collector{
		lastUpdate:     time.Now(),
		managedHSWKeys: make(map[string]struct{}),
	}
}

// initializeMetrics initializes counters so they appear in Prometheus output
// even before any HotStandbyDeployment has been reconciled.
func initializeMetrics() {
	reconciliationTotal.WithLabelValues("", "", "success").Add(0)
	reconciliationErrors.WithLabelValues("", "", "").Add(0)
	probeErrors.WithLabelValues("", "", "").Add(0)
	controllerLastSeen.WithLabelValues("").Set(0)
	leaderElectionStatus.WithLabelValues("").Set(0)
	busyPods.WithLabelValues("", "").Set(0)
	idlePods.WithLabelValues("", "").Set(0)
	desiredReplicas.WithLabelValues("", "").Set(0)
}

// RegisterMetrics registers all controller metrics with the provided
// registry, falling back to the controller-runtime global registry.
func (c *Collector) RegisterMetrics(registry prometheus.Registerer) {
	if registry == nil {
		registry = metrics.Registry
	}

	collectors := []prometheus.Collector{
		busyPods,
		idlePods,
		desiredReplicas,
		reconciliationTotal,
		reconciliationErrors,
		probeErrors,
		controllerLastSeen,
		leaderElectionStatus,
	}

	for _, collector := range collectors {
		_ = registry.Register(collector)
	}
}

// RegisterMetricsGlobal registers metrics with the global registry.
func (c *Collector) RegisterMetricsGlobal() {
	c.RegisterMetrics(metrics.Registry)
}

// RecordReplicaState records the busy/idle/desired gauges for one HSW after
// a reconcile.
func (c *Collector) RecordReplicaState(namespace, name string, busy, idle, desired int32) {
	c.mutex.Lock()
	c.managedHSWKeys[namespace+"/"+name] = struct{}{}
	c.mutex.Unlock()

	busyPods.WithLabelValues(namespace, name).Set(float64(busy))
	idlePods.WithLabelValues(namespace, name).Set(float64(idle))
	desiredReplicas.WithLabelValues(namespace, name).Set(float64(desired))
}

// RecordReconciliation records the outcome of one Reconcile call.
func (c *Collector) RecordReconciliation(namespace, name string, err error) {
	result := "success"
	if err != nil {
		result = "error"
		reconciliationErrors.WithLabelValues(namespace, name, "reconciliation").Inc()
	}
	reconciliationTotal.WithLabelValues(namespace, name, result).Inc()
}

// RecordProbeError records a busy-probe failure for one HSW.
func (c *Collector) RecordProbeError(namespace, name, mode string) {
	probeErrors.WithLabelValues(namespace, name, mode).Inc()
}

// UpdateControllerHealth updates controller liveness/leadership metrics.
func (c *Collector) UpdateControllerHealth(controllerName string, isLeader bool) {
	controllerLastSeen.WithLabelValues(controllerName).SetToCurrentTime()

	if isLeader {
		leaderElectionStatus.WithLabelValues(controllerName).Set(1)
	} else {
		leaderElectionStatus.WithLabelValues(controllerName).Set(0)
	}
}

// GetMetricsSnapshot returns a snapshot of current metrics values.
func (c *Collector) GetMetricsSnapshot() Snapshot {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return Snapshot{
		LastUpdate:  c.lastUpdate,
		Timestamp:   time.Now(),
		ManagedHSWs: len(c.managedHSWKeys),
	}
}

// Snapshot represents a point-in-time snapshot of metrics.
type Snapshot struct {
	LastUpdate  time.Time `json:"lastUpdate"`
	Timestamp   time.Time `json:"timestamp"`
	ManagedHSWs int       `json:"managedHSWs"`
}

// ResetMetrics resets all metrics. Useful for tests.
func (c *Collector) ResetMetrics() {
	c.mutex.Lock()
	c.managedHSWKeys = make(map[string]struct{})
	c.mutex.Unlock()

	busyPods.Reset()
	idlePods.Reset()
	desiredReplicas.Reset()
	reconciliationTotal.Reset()
	reconciliationErrors.Reset()
	probeErrors.Reset()
	controllerLastSeen.Reset()
	leaderElectionStatus.Reset()
}

// StartMetricsCollection starts a background tick that refreshes
// lastUpdate, giving GetMetricsSnapshot a liveness signal independent of
// reconcile activity.
func (c *Collector) StartMetricsCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mutex.Lock()
			c.lastUpdate = time.Now()
			c.mutex.Unlock()
		}
	}
}

// Timer provides timing functionality for metrics.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Elapsed returns the elapsed duration since timer creation.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// ObserveReconciliation records the outcome of one reconciliation on the
// collector; the timer's elapsed time is not recorded.
func (t *Timer) ObserveReconciliation(collector *Collector, namespace, name string, err error) {
	collector.RecordReconciliation(namespace, name, err)
}

// GlobalCollector is the shared metrics collector instance used throughout
// the application.
var GlobalCollector = NewCollector()

// RecordReplicaState is a convenience wrapper around GlobalCollector.
func RecordReplicaState(namespace, name string, busy, idle, desired int32) {
	GlobalCollector.RecordReplicaState(namespace, name, busy, idle, desired)
}
