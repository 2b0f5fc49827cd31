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

package config

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Configuration struct validation", func() {
	Context("when working with Configuration types", func() {
		It("should create empty configuration structs", func() {
			config := &Configuration{}
			Expect(config).NotTo(BeNil())

			config.Controller = ControllerConfig{}
			config.Kubernetes = KubernetesConfig{}
			config.LeaderElection = LeaderElectionConfig{}
			config.Logging = LoggingConfig{}
			config.Metrics = MetricsConfig{}
			config.Namespaces = NamespacesConfig{}

			Expect(config.Controller).NotTo(BeNil())
			Expect(config.Kubernetes).NotTo(BeNil())
			Expect(config.LeaderElection).NotTo(BeNil())
			Expect(config.Logging).NotTo(BeNil())
			Expect(config.Metrics).NotTo(BeNil())
			Expect(config.Namespaces).NotTo(BeNil())
		})

		It("should handle nil Configuration gracefully", func() {
			var config *Configuration
			Expect(config).To(BeNil())
		})
	})

	Context("when working with individual config types", func() {
		It("should create ControllerConfig with basic fields", func() {
			controller := ControllerConfig{
				MaxConcurrentReconciles: 10,
				ReconcileInterval:       30 * time.Second,
				ReconcileTimeout:        5 * time.Minute,
				ProbeConcurrency:        16,
			}
			Expect(controller.MaxConcurrentReconciles).To(Equal(10))
			Expect(controller.ReconcileInterval).To(Equal(30 * time.Second))
			Expect(controller.ReconcileTimeout).To(Equal(5 * time.Minute))
			Expect(controller.ProbeConcurrency).To(Equal(16))
		})

		It("should create KubernetesConfig with client settings", func() {
			k8s := KubernetesConfig{
				QPS:     50.0,
				Burst:   100,
				Timeout: 30 * time.Second,
			}
			Expect(k8s.QPS).To(Equal(float32(50.0)))
			Expect(k8s.Burst).To(Equal(100))
			Expect(k8s.Timeout).To(Equal(30 * time.Second))
		})

		It("should create LeaderElectionConfig with timing settings", func() {
			leader := LeaderElectionConfig{
				Enabled:       true,
				ID:            "hsw-controller",
				LeaseName:     "hsw-controller-lease",
				LeaseDuration: 60 * time.Second,
				RenewDeadline: 40 * time.Second,
				RetryPeriod:   10 * time.Second,
			}
			Expect(leader.Enabled).To(BeTrue())
			Expect(leader.ID).To(Equal("hsw-controller"))
			Expect(leader.LeaseDuration).To(Equal(60 * time.Second))
		})

		It("should create LoggingConfig with basic settings", func() {
			logging := LoggingConfig{
				Level:       "info",
				Format:      "json",
				Development: false,
			}
			Expect(logging.Level).To(Equal("info"))
			Expect(logging.Format).To(Equal("json"))
			Expect(logging.Development).To(BeFalse())
		})

		It("should create MetricsConfig with metrics settings", func() {
			metricsCfg := MetricsConfig{
				BindAddress:        ":8080",
				HealthBindAddress:  ":8081",
				CollectionInterval: 30 * time.Second,
			}
			Expect(metricsCfg.BindAddress).To(Equal(":8080"))
			Expect(metricsCfg.HealthBindAddress).To(Equal(":8081"))
			Expect(metricsCfg.CollectionInterval).To(Equal(30 * time.Second))
		})

		It("should create NamespacesConfig scoped to a single namespace", func() {
			nsConfig := NamespacesConfig{
				Namespace:     "team-a",
				AllNamespaces: false,
			}
			Expect(nsConfig.Namespace).To(Equal("team-a"))
			Expect(nsConfig.AllNamespaces).To(BeFalse())
		})

		It("should create NamespacesConfig scoped to all namespaces", func() {
			nsConfig := NamespacesConfig{AllNamespaces: true}
			Expect(nsConfig.Namespace).To(Equal(""))
			Expect(nsConfig.AllNamespaces).To(BeTrue())
		})
	})
})
