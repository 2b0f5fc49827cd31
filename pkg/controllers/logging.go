// Package controllers implements the hot-standby reconciler and its
// supporting watchers, event recorder, and namespace scope.
package controllers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// LoggingContext contains structured logging fields for controller operations
type LoggingContext struct {
	Controller  string `json:"controller"`
	Namespace   string `json:"namespace"`
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	ReconcileID string `json:"reconcile_id"`
	RequestID   string `json:"request_id,omitempty"`
}

// ControllerLogger provides enhanced structured logging for controllers
type ControllerLogger struct {
	logr.Logger
	Context LoggingContext
}

// NewControllerLogger creates a logger with controller-specific structured fields
func NewControllerLogger(ctx context.Context, controllerName string, req ctrl.Request, kind string) *ControllerLogger {
	baseLogger := log.FromContext(ctx)

	loggingContext := LoggingContext{
		Controller:  controllerName,
		Namespace:   req.Namespace,
		Name:        req.Name,
		Kind:        kind,
		ReconcileID: uuid.New().String()[:8], // Short UUID for readability
	}

	if reqID := ctx.Value("request-id"); reqID != nil {
		if id, ok := reqID.(string); ok {
			loggingContext.RequestID = id
		}
	}

	structuredLogger := baseLogger.WithValues(
		"controller", loggingContext.Controller,
		"namespace", loggingContext.Namespace,
		"name", loggingContext.Name,
		"kind", loggingContext.Kind,
		"reconcile_id", loggingContext.ReconcileID,
	)

	if loggingContext.RequestID != "" {
		structuredLogger = structuredLogger.WithValues("request_id", loggingContext.RequestID)
	}

	return &ControllerLogger{
		Logger:  structuredLogger,
		Context: loggingContext,
	}
}

// WithPhase adds reconciliation phase information
func (cl *ControllerLogger) WithPhase(phase string) *ControllerLogger {
	return &ControllerLogger{
		Logger:  cl.Logger.WithValues("phase", phase),
		Context: cl.Context,
	}
}

// WithReplicaState adds the busy/idle/desired counts driving this reconcile
// to the logger.
func (cl *ControllerLogger) WithReplicaState(busy, idleTarget, desired int32) *ControllerLogger {
	return &ControllerLogger{
		Logger: cl.Logger.WithValues(
			"busy_count", busy,
			"idle_target", idleTarget,
			"desired_replicas", desired,
		),
		Context: cl.Context,
	}
}

// WithDuration adds timing information to log entries
func (cl *ControllerLogger) WithDuration(duration time.Duration) *ControllerLogger {
	return &ControllerLogger{
		Logger: cl.Logger.WithValues(
			"duration_ms", duration.Milliseconds(),
		),
		Context: cl.Context,
	}
}

// WithError adds error context while preserving the error for controller-runtime
func (cl *ControllerLogger) WithError(err error) *ControllerLogger {
	return &ControllerLogger{
		Logger: cl.Logger.WithValues(
			"error_type", fmt.Sprintf("%T", err),
		),
		Context: cl.Context,
	}
}

// ReconcileStarted logs the start of reconciliation with standard fields
func (cl *ControllerLogger) ReconcileStarted(msg string) {
	cl.Logger.Info(msg, "event", "reconcile_started")
}

// ReconcileCompleted logs successful reconciliation completion
func (cl *ControllerLogger) ReconcileCompleted(msg string, requeue bool, requeueAfter time.Duration) {
	logger := cl.Logger.WithValues(
		"event", "reconcile_completed",
		"requeue", requeue,
	)

	if requeueAfter > 0 {
		logger = logger.WithValues("requeue_after_ms", requeueAfter.Milliseconds())
	}

	logger.Info(msg)
}

// ReconcileFailed logs failed reconciliation
func (cl *ControllerLogger) ReconcileFailed(err error, msg string) {
	cl.Logger.Error(err, msg,
		"event", "reconcile_failed",
	)
}

// ChildConverged logs when the child workload has been brought to the
// desired replica count.
func (cl *ControllerLogger) ChildConverged(msg string, created bool, previousReplicas, desiredReplicas int32) {
	cl.Logger.Info(msg,
		"event", "child_converged",
		"created", created,
		"previous_replicas", previousReplicas,
		"desired_replicas", desiredReplicas,
	)
}

// NamespaceCheck logs namespace scope check results
func (cl *ControllerLogger) NamespaceCheck(allowed bool, reason string) {
	logger := cl.Logger.WithValues(
		"event", "namespace_check",
		"allowed", allowed,
	)

	if reason != "" {
		logger = logger.WithValues("reason", reason)
	}

	if allowed {
		logger.Info("namespace is in scope for hot-standby management")
	} else {
		logger.Info("namespace is out of scope for hot-standby management")
	}
}

// ProbeCheck logs the outcome of a busy-probe snapshot used during reconcile.
func (cl *ControllerLogger) ProbeCheck(mode string, busyCount, selected int32, stale bool) {
	cl.Logger.Info("evaluated busy-probe snapshot",
		"event", "probe_check",
		"probe_mode", mode,
		"busy_count", busyCount,
		"selected", selected,
		"stale", stale,
	)
}
