/*
Package controllers implements the hot-standby reconciliation loop.

HotStandbyDeploymentReconciler drives a HotStandbyDeployment's child
Deployment to a replica count of clamp(busyCount+idleTarget, minReplicas,
maxReplicas), where busyCount comes from a BusyProber snapshot of the HSW's
selected pods.

# Core Components

HotStandbyDeploymentReconciler handles the per-HSW convergence loop:
  - Lists pods matching spec.selector, dropping terminal/deleting ones
  - Counts busy pods via the cached BusyProber for that HSW
  - Computes the desired replica count and reconciles the child Deployment
  - Writes status idempotently and emits rate-limited events

NamespaceScope restricts watches and reconciles to a single namespace, or
leaves every namespace in scope.

EventRecorder wraps the manager's event recorder with a per-(object,reason)
rate limit of one event per 60 seconds.

# Usage

	mgr, _ := ctrl.NewManager(cfg, ctrl.Options{Scheme: scheme})
	r := controllers.NewHotStandbyDeploymentReconciler(mgr.GetClient(), mgr.GetScheme())
	r.NamespaceScope = controllers.NewNamespaceScope(namespace, allNamespaces)
	r.Events = controllers.NewEventRecorder(mgr.GetEventRecorderFor("hsw-controller"))
	_ = r.SetupWithManager(mgr, workers)

# Metrics

Reconcile counts and errors are exposed via GetReconcileCount/GetErrorCount;
pkg/metrics wraps these and the busy/idle/desired gauges into Prometheus
collectors.

# Testing

Reconciler methods are split into individually testable steps
(resolveChildName, listSelectedPods, countBusy, computeDesired,
reconcileChild, writeStatus, nextRequeue); see *_test.go for coverage of
each.

# Related Packages

  - pkg/probe: the BusyProber implementations this package consumes
  - api/v1alpha1: the HotStandbyDeployment CRD types
  - pkg/apis: Clamp, ReplicaState, and the typed reconcile errors
*/
package controllers
