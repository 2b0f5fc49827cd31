/*
Package operator provides the main operator orchestration and lifecycle management.

The operator package coordinates the hot-standby controller's startup,
leader election, graceful shutdown, and HTTP surface.

# Core Components

Operator is the main orchestrator:
  - Coordinates the controller-runtime manager and the hot-standby reconciler
  - Manages HTTP servers (metrics :8080, health :8081)
  - Handles leader election (if enabled)
  - Orchestrates graceful shutdown

LeaderElectionManager handles leader election:
  - Kubernetes lease-based leader election
  - Automatic failover on leader failure
  - Coordinates controller startup/shutdown
  - Is not created by NewOperator, which uses controller-runtime's
    built-in leader election

ShutdownManager handles graceful shutdown:
  - Catches SIGTERM/SIGINT signals
  - Runs stop-requests, drain, finish-reconciliations and cleanup phases;
    these phases record component state and do not themselves stop
    servers or wait on reconciliations
  - Is not created by NewOperator or cmd/controller

# Architecture

The controller follows a single-binary operator pattern:

	┌─────────────────────────────────────┐
	│          Operator Process           │
	│                                     │
	│  ┌───────────────────────────────┐ │
	│  │   Leader Election Manager     │ │
	│  │  (Kubernetes Lease)           │ │
	│  └───────────────────────────────┘ │
	│              ↓                      │
	│  ┌───────────────────────────────┐ │
	│  │     HTTP Servers              │ │
	│  │  - Metrics     (:8080)        │ │
	│  │  - Health      (:8081)        │ │
	│  └───────────────────────────────┘ │
	│              ↓                      │
	│  ┌───────────────────────────────┐ │
	│  │ HotStandbyDeploymentReconciler │ │
	│  └───────────────────────────────┘ │
	│              ↓                      │
	│  ┌───────────────────────────────┐ │
	│  │    Kubernetes API Server      │ │
	│  └───────────────────────────────┘ │
	└─────────────────────────────────────┘

# Usage

Starting the operator with dependency injection:

	import (
		"context"
		"github.com/paia-tech/hsw-controller/pkg/operator"
		"github.com/paia-tech/hsw-controller/pkg/di"
	)

	func main() {
		ctx := context.Background()

		app, err := di.NewApplication(ctx)
		if err != nil {
			log.Fatal(err)
		}

		if err := app.Start(ctx); err != nil {
			log.Fatal(err)
		}
	}

Direct operator usage (without DI):

	op, err := operator.NewOperator(operator.DefaultOperatorConfig())
	if err != nil {
		log.Fatal(err)
	}

	if err := op.Start(ctx); err != nil {
		log.Fatal(err)
	}

# Leader Election

Enable leader election for high availability:

	# config.yaml
	leaderElection:
	  enabled: true
	  leaseName: "hsw-controller-leader"
	  leaseDuration: "15s"
	  renewDeadline: "10s"
	  retryPeriod: "2s"

Behavior:
  - Multiple replicas elect a single leader
  - Only the leader runs the reconciler
  - Automatic failover on leader failure
  - Non-leaders serve health and metrics

Check leader status:

	kubectl get lease -n hsw-system hsw-controller-leader -o yaml

# Graceful Shutdown

The operator handles shutdown gracefully:

 1. Signal received (SIGTERM/SIGINT); cmd/controller cancels the context
    passed to Operator.Start
 2. The controller manager stops its runnables (the reconciler and the
    metrics and health endpoints) within controller-runtime's default
    graceful shutdown timeout (30s)
 3. The leader lease is not released on cancel; another replica acquires
    it once the lease expires
 4. Exit process

# HTTP Servers

The operator starts two HTTP servers:

**Metrics Server (:8080)**
  - Prometheus metrics endpoint: /metrics
  - Runtime metrics (go_*, process_*)
  - Controller metrics (hsw_*)

**Health Server (:8081)**
  - Liveness probe: /healthz
  - Readiness probe: /readyz

Configure ports:

	metrics:
	  bindAddress: ":8080"
	  healthBindAddress: ":8081"

# Kubernetes Probes

Configure liveness and readiness probes:

	apiVersion: apps/v1
	kind: Deployment
	metadata:
	  name: hsw-controller
	spec:
	  template:
	    spec:
	      containers:
	        - name: controller
	          livenessProbe:
	            httpGet:
	              path: /healthz
	              port: 8081
	            initialDelaySeconds: 15
	            periodSeconds: 20
	          readinessProbe:
	            httpGet:
	              path: /readyz
	              port: 8081
	            initialDelaySeconds: 5
	            periodSeconds: 10

# Error Handling

**Startup Errors:**
  - Configuration loading fails → Fatal exit
  - Kubernetes client init fails → Fatal exit
  - HTTP server start fails → Fatal exit

**Runtime Errors:**
  - Reconciliation fails → Requeue with backoff
  - Metrics collection fails → Log error, continue

**Shutdown Errors:**
  - Graceful shutdown timeout → Force exit after 30s
  - Resource cleanup fails → Log error, continue

# Observability

**Logs (structured JSON):**

	{"level":"info","msg":"starting hot-standby controller","namespace":"hsw-system"}
	{"level":"info","msg":"using controller-runtime's built-in leader election"}

**Metrics (Prometheus):**

	hsw_busy_pods{namespace="team-a",hotstandbydeployment="checkout"} 4
	hsw_desired_replicas{namespace="team-a",hotstandbydeployment="checkout"} 6
	hsw_reconciliations_total{result="success"} 150

**Events (Kubernetes):**

	kubectl get events -n team-a

See operator_test.go for test examples.

# High Availability

Run multiple replicas with leader election:

	apiVersion: apps/v1
	kind: Deployment
	metadata:
	  name: hsw-controller
	spec:
	  replicas: 3
	  template:
	    spec:
	      containers:
	        - name: controller
	          image: hsw-controller:latest

Behavior:
  - 1 replica is leader (runs the reconciler)
  - remaining replicas are standby (serve health/metrics)
  - automatic failover on leader failure (< 15s)

# Related Packages

  - pkg/controllers: Reconciliation and pod watching
  - pkg/probe: Busy-probe engine
  - pkg/di: Dependency injection
  - internal/config: Configuration management
  - pkg/metrics: Metrics collection
*/
package operator
