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

// Package di provides service registration examples using Uber Dig.
package di

import (
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/manager"

	hswv1alpha1 "github.com/paia-tech/hsw-controller/api/v1alpha1"
	"github.com/paia-tech/hsw-controller/pkg/metrics"
	"github.com/paia-tech/hsw-controller/pkg/operator"
)

// BasicServiceRegistry demonstrates basic service registration with existing types
type BasicServiceRegistry struct {
	container *Container
}

// NewBasicServiceRegistry creates a simple service registry for demonstration
func NewBasicServiceRegistry() *BasicServiceRegistry {
	return &BasicServiceRegistry{
		container: NewContainer(),
	}
}

// RegisterBasicServices registers core services using existing concrete types
func (sr *BasicServiceRegistry) RegisterBasicServices(operatorConfig *operator.Config) error {
	// Register configuration
	sr.container.MustProvide(func() *operator.Config {
		return operatorConfig
	})

	// Register REST config
	sr.container.MustProvide(func() *rest.Config {
		return ctrl.GetConfigOrDie()
	})

	// Register runtime scheme with both the core types and the
	// HotStandbyDeployment CRD registered
	sr.container.MustProvide(func() (*runtime.Scheme, error) {
		scheme := runtime.NewScheme()
		if err := clientgoscheme.AddToScheme(scheme); err != nil {
			return nil, err
		}
		if err := hswv1alpha1.AddToScheme(scheme); err != nil {
			return nil, err
		}
		return scheme, nil
	})

	// Register Kubernetes client
	sr.container.MustProvide(func(restConfig *rest.Config) (kubernetes.Interface, error) {
		return kubernetes.NewForConfig(restConfig)
	})

	// Register controller-runtime manager
	sr.container.MustProvide(func(restConfig *rest.Config, scheme *runtime.Scheme) (manager.Manager, error) {
		return ctrl.NewManager(restConfig, ctrl.Options{
			Scheme: scheme,
		})
	})

	// Register controller-runtime client
	sr.container.MustProvide(func(mgr manager.Manager) client.Client {
		return mgr.GetClient()
	})

	// Register metrics collector
	sr.container.MustProvide(func() *metrics.Collector {
		return metrics.NewCollector()
	})

	return nil
}

// GetContainer returns the underlying DI container
func (sr *BasicServiceRegistry) GetContainer() *Container {
	return sr.container
}

// ExampleUsage demonstrates invoking a function with injected dependencies
func (sr *BasicServiceRegistry) ExampleUsage() error {
	return sr.container.Invoke(func(
		metricsCollector *metrics.Collector,
		kubeClient kubernetes.Interface,
	) {
		_ = metricsCollector
		_ = kubeClient
	})
}

// ServiceDependencies demonstrates how to structure dependencies for injection
type ServiceDependencies struct {
	MetricsCollector *metrics.Collector
	KubeClient       kubernetes.Interface
	Client           client.Client
	Manager          manager.Manager
}

// ResolveServiceDependencies resolves all service dependencies at once
func (sr *BasicServiceRegistry) ResolveServiceDependencies() (*ServiceDependencies, error) {
	var deps ServiceDependencies
	err := sr.container.Invoke(func(
		metricsCollector *metrics.Collector,
		kubeClient kubernetes.Interface,
		c client.Client,
		mgr manager.Manager,
	) {
		deps = ServiceDependencies{
			MetricsCollector: metricsCollector,
			KubeClient:       kubeClient,
			Client:           c,
			Manager:          mgr,
		}
	})

	if err != nil {
		return nil, err
	}

	return &deps, nil
}
