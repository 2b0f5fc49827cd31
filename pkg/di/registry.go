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

package di

import (
	"fmt"

	hswconfig "github.com/paia-tech/hsw-controller/internal/config"
	"github.com/paia-tech/hsw-controller/pkg/logging"
	"github.com/paia-tech/hsw-controller/pkg/metrics"
	"github.com/paia-tech/hsw-controller/pkg/operator"
)

// ServiceRegistry registers all hot-standby controller services with the DI container
type ServiceRegistry struct {
	container  *Container
	configFile string
}

// NewServiceRegistry creates a new service registry
func NewServiceRegistry(container *Container) *ServiceRegistry {
	return &ServiceRegistry{
		container: container,
	}
}

// WithConfigFile sets the configuration file path
func (r *ServiceRegistry) WithConfigFile(configFile string) *ServiceRegistry {
	r.configFile = configFile
	return r
}

// RegisterAll registers all core services
func (r *ServiceRegistry) RegisterAll() error {
	if err := r.RegisterConfiguration(); err != nil {
		return fmt.Errorf("failed to register configuration: %w", err)
	}

	if err := r.RegisterLogger(); err != nil {
		return fmt.Errorf("failed to register logger: %w", err)
	}

	if err := r.RegisterCoreServices(); err != nil {
		return fmt.Errorf("failed to register core services: %w", err)
	}

	if err := r.RegisterOperator(); err != nil {
		return fmt.Errorf("failed to register operator: %w", err)
	}

	return nil
}

// RegisterConfiguration registers configuration-related services
func (r *ServiceRegistry) RegisterConfiguration() error {
	r.container.MustProvide(func() (*hswconfig.Configuration, error) {
		return hswconfig.NewConfigurationLoader().LoadConfiguration(r.configFile)
	})

	return nil
}

// RegisterLogger registers the structured logger service
func (r *ServiceRegistry) RegisterLogger() error {
	r.container.MustProvide(func(cfg *hswconfig.Configuration) (*logging.Logger, error) {
		return logging.NewLogger(&logging.Config{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
		})
	})

	return nil
}

// RegisterCoreServices registers the metrics collector and other services
// shared across reconcilers.
func (r *ServiceRegistry) RegisterCoreServices() error {
	r.container.MustProvide(metrics.NewCollector)
	return nil
}

// RegisterOperator registers the main operator service
func (r *ServiceRegistry) RegisterOperator() error {
	r.container.MustProvide(func(cfg *hswconfig.Configuration) *operator.Config {
		return &operator.Config{
			MetricsAddr:             cfg.Metrics.BindAddress,
			ProbeAddr:               cfg.Metrics.HealthBindAddress,
			LeaderElection:          cfg.LeaderElection.Enabled,
			LeaderElectionID:        cfg.LeaderElection.ID,
			Namespace:               cfg.Namespaces.Namespace,
			AllNamespaces:           cfg.Namespaces.AllNamespaces,
			ReconcileInterval:       cfg.Controller.ReconcileInterval,
			MaxConcurrentReconciles: cfg.Controller.MaxConcurrentReconciles,
			ProbeConcurrency:        cfg.Controller.ProbeConcurrency,
			LogLevel:                cfg.Logging.Level,
			LogFormat:               cfg.Logging.Format,
			ReadOnlyMode:            false,
			APIQPSLimit:             cfg.Kubernetes.QPS,
			APIBurstLimit:           cfg.Kubernetes.Burst,
		}
	})

	r.container.MustProvide(func(operatorConfig *operator.Config) (*operator.Operator, error) {
		op, err := operator.NewOperator(operatorConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create operator: %w", err)
		}

		return op, nil
	})

	return nil
}

// InitializeOperator is a convenience function to set up and return a fully configured operator
func InitializeOperator(configFile string) (*operator.Operator, error) {
	container := NewContainer()
	registry := NewServiceRegistry(container).WithConfigFile(configFile)

	if err := registry.RegisterAll(); err != nil {
		return nil, fmt.Errorf("failed to register services: %w", err)
	}

	var op *operator.Operator
	if err := container.Invoke(func(o *operator.Operator) {
		op = o
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize operator: %w", err)
	}

	return op, nil
}
