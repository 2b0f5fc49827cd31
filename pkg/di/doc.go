/*
Package di provides dependency injection infrastructure for the hot-standby
controller.

The di package implements a dependency injection container using Uber Dig,
managing service lifecycle and dependency resolution throughout the operator.

# Core Components

Application provides the main application lifecycle:
  - Initializes DI container
  - Registers all services
  - Resolves and starts operator
  - Manages graceful shutdown

Container wraps Uber Dig container:
  - Service registration (Provide)
  - Dependency resolution (Invoke)
  - Lifecycle management

ServiceRegistry handles service registration:
  - Configuration services
  - Logging services
  - Metrics services
  - Operator service

# Architecture Pattern

The hot-standby controller uses constructor-based dependency injection:

	// Service constructor receives dependencies
	func NewOperator(config *operator.Config) (*Operator, error) {
		return &Operator{
			config: config,
		}, nil
	}

	// DI container automatically resolves dependencies
	container.Provide(NewOperator)

# Usage

Basic application setup:

	import (
		"context"
		"github.com/paia-tech/hsw-controller/pkg/di"
	)

	func main() {
		ctx := context.Background()

		// Create application with DI
		app, err := di.NewApplication(ctx)
		if err != nil {
			log.Fatal(err)
		}

		// Start operator (blocks until shutdown)
		if err := app.Start(ctx); err != nil {
			log.Fatal(err)
		}
	}

Advanced usage with custom services:

	// Create custom DI container
	container := di.NewContainer()

	// Register services
	container.Provide(NewCustomService)
	container.Provide(NewAnotherService)

	// Resolve and use services
	container.Invoke(func(svc *CustomService) error {
		return svc.Start()
	})

# Service Lifecycle

Services follow a consistent lifecycle:

 1. Configuration Loading
    - Load config.yaml
    - Apply environment variable overrides
    - Validate configuration

 2. Service Registration
    - Register configuration provider
    - Register structured logger
    - Register metrics collector
    - Register operator config and operator

 3. Dependency Resolution
    - DI container resolves dependency graph
    - Detects circular dependencies
    - Validates all dependencies satisfied

 4. Service Startup
    - Build controller-runtime manager (metrics, health probe listeners)
    - Start leader election (if enabled)
    - Start the operator's reconcile loop

 5. Graceful Shutdown
    - Handle SIGTERM/SIGINT
    - Stop accepting new reconciles
    - Complete in-flight reconciliations
    - Close Kubernetes client connections

# Configuration Provider

Configuration is provided through DI:

	container.Provide(func() (*hswconfig.Configuration, error) {
		return hswconfig.NewConfigurationLoader().LoadConfiguration("config.yaml")
	})

	// Services receive configuration
	func NewOperatorConfig(cfg *hswconfig.Configuration) *operator.Config {
		return &operator.Config{
			MaxConcurrentReconciles: cfg.Controller.MaxConcurrentReconciles,
			// ...
		}
	}

# Error Handling

DI container validates dependencies at resolution time:

	app, err := di.NewApplication(ctx)
	if err != nil {
		// Dependency resolution failed
		// - Missing dependency
		// - Circular dependency
		// - Invalid configuration
		log.Fatal(err)
	}

Building an Application only resolves the *hswconfig.Configuration node of
the graph, so it never touches the Kubernetes API. The operator constructor
is lazy: it is first invoked from Application.Start, which is also the first
point that requires a reachable API server (it calls ctrl.GetConfigOrDie
internally to build the controller-runtime manager).

# Testing

DI system supports testing with substitute services:

	import (
		"testing"
		"github.com/paia-tech/hsw-controller/pkg/di"
		"github.com/paia-tech/hsw-controller/pkg/metrics"
	)

	func TestApplication(t *testing.T) {
		container := di.NewContainer()

		// Provide a test collector
		container.Provide(func() *metrics.Collector {
			return metrics.NewCollector()
		})

		// Test service resolution
		err := container.Invoke(func(c *metrics.Collector) {
			// Test with the provided collector
		})
		if err != nil {
			t.Fatal(err)
		}
	}

See application_test.go for integration test examples.

# Dependency Graph

Current dependency graph:

	Configuration (config.yaml + HSWCTL_* env vars)
	  ↓
	Logger (from config)
	  ↓
	MetricsCollector
	  ↓
	operator.Config (derived from Configuration)
	  ↓
	Operator (manager, metrics, config)

# Benefits

Dependency injection provides:
  - **Testability**: Easy mocking of dependencies
  - **Modularity**: Services are loosely coupled
  - **Maintainability**: Clear dependency relationships
  - **Flexibility**: Easy to swap implementations
  - **Type Safety**: Compile-time dependency validation

# Migration from Manual Wiring

Old approach (manual dependency wiring):

	func main() {
		cfg := loadConfig()
		operatorConfig := buildOperatorConfig(cfg)
		op, _ := operator.NewOperator(operatorConfig)
		op.Start(ctx)
	}

New approach (DI-based):

	func main() {
		app, _ := di.NewApplication(ctx)
		app.Start(ctx)  // Dependencies resolved automatically
	}

# Related Packages

  - internal/config: Configuration loading and management
  - pkg/operator: Main operator orchestration
  - pkg/controllers: HotStandbyDeployment reconciler
  - pkg/probe: Busy-probe engine
  - pkg/logging: Structured logging
  - pkg/metrics: Prometheus metrics collector
*/
package di
