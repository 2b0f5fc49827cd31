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
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ConfigurationLoader", func() {
	var (
		tempDir    string
		configFile string
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())

		configFile = filepath.Join(tempDir, "config.yaml")
	})

	AfterEach(func() {
		if tempDir != "" {
			os.RemoveAll(tempDir)
		}
		envVars := []string{
			"HSWCTL_NAMESPACE",
			"HSWCTL_ALL_NAMESPACES",
			"HSWCTL_MAX_CONCURRENT_RECONCILES",
			"HSWCTL_PROBE_CONCURRENCY",
			"HSWCTL_METRICS_BIND_ADDRESS",
			"HSWCTL_LOG_LEVEL",
			"HSWCTL_LOG_DEVELOPMENT",
			"HSWCTL_LEADER_ELECTION_ENABLED",
			"HSWCTL_RECONCILE_INTERVAL",
			"HSWCTL_RECONCILE_TIMEOUT",
			"HSWCTL_KUBE_TIMEOUT",
		}
		for _, env := range envVars {
			os.Unsetenv(env)
		}
	})

	Describe("NewConfigurationLoader", func() {
		It("should create a new configuration loader", func() {
			loader := NewConfigurationLoader()
			Expect(loader).NotTo(BeNil())
		})
	})

	Describe("DefaultConfiguration", func() {
		It("should return a valid default configuration", func() {
			config := DefaultConfiguration()
			Expect(config).NotTo(BeNil())

			Expect(config.Controller.MaxConcurrentReconciles).To(Equal(2))
			Expect(config.Controller.ReconcileInterval).To(Equal(30 * time.Second))
			Expect(config.Controller.ReconcileTimeout).To(Equal(30 * time.Second))
			Expect(config.Controller.ProbeConcurrency).To(Equal(16))

			Expect(config.Kubernetes.QPS).To(Equal(float32(20)))
			Expect(config.Kubernetes.Burst).To(Equal(40))
			Expect(config.Kubernetes.Timeout).To(Equal(30 * time.Second))

			Expect(config.LeaderElection.Enabled).To(BeTrue())
			Expect(config.LeaderElection.LeaseDuration).To(Equal(15 * time.Second))
			Expect(config.LeaderElection.RenewDeadline).To(Equal(10 * time.Second))
			Expect(config.LeaderElection.RetryPeriod).To(Equal(2 * time.Second))

			Expect(config.Logging.Level).To(Equal("info"))
			Expect(config.Logging.Format).To(Equal("json"))
			Expect(config.Logging.Development).To(BeFalse())

			Expect(config.Metrics.BindAddress).To(Equal(":8080"))
			Expect(config.Metrics.HealthBindAddress).To(Equal(":8081"))
			Expect(config.Metrics.CollectionInterval).To(Equal(30 * time.Second))

			Expect(config.Namespaces.Namespace).To(Equal(""))
			Expect(config.Namespaces.AllNamespaces).To(BeFalse())
		})
	})

	Describe("LoadConfiguration", func() {
		Context("when loading from a valid YAML file", func() {
			It("should load configuration correctly", func() {
				yamlContent := `
controller:
  maxConcurrentReconciles: 5
  reconcileInterval: "15s"
namespaces:
  namespace: "custom-namespace"
logging:
  level: "debug"
  development: true
metrics:
  bindAddress: ":9090"
`
				err := os.WriteFile(configFile, []byte(yamlContent), 0o600)
				Expect(err).NotTo(HaveOccurred())

				loader := NewConfigurationLoader()
				config, err := loader.LoadConfiguration(configFile)
				Expect(err).NotTo(HaveOccurred())
				Expect(config).NotTo(BeNil())

				Expect(config.Namespaces.Namespace).To(Equal("custom-namespace"))
				Expect(config.Controller.MaxConcurrentReconciles).To(Equal(5))
				Expect(config.Controller.ReconcileInterval).To(Equal(15 * time.Second))
				Expect(config.Logging.Level).To(Equal("debug"))
				Expect(config.Logging.Development).To(BeTrue())
				Expect(config.Metrics.BindAddress).To(Equal(":9090"))
			})

			It("should merge with defaults for missing fields", func() {
				yamlContent := `
namespaces:
  namespace: "test-namespace"
logging:
  level: "error"
`
				err := os.WriteFile(configFile, []byte(yamlContent), 0o600)
				Expect(err).NotTo(HaveOccurred())

				loader := NewConfigurationLoader()
				config, err := loader.LoadConfiguration(configFile)
				Expect(err).NotTo(HaveOccurred())

				Expect(config.Namespaces.Namespace).To(Equal("test-namespace"))
				Expect(config.Logging.Level).To(Equal("error"))

				Expect(config.Controller.MaxConcurrentReconciles).To(Equal(2))
				Expect(config.Controller.ProbeConcurrency).To(Equal(16))
				Expect(config.Kubernetes.QPS).To(Equal(float32(20)))
			})
		})

		Context("when no config file is given", func() {
			It("should load from environment and defaults only", func() {
				err := os.Setenv("HSWCTL_NAMESPACE", "env-only-namespace")
				Expect(err).NotTo(HaveOccurred())

				loader := NewConfigurationLoader()
				config, err := loader.LoadConfiguration("")
				Expect(err).NotTo(HaveOccurred())

				Expect(config.Namespaces.Namespace).To(Equal("env-only-namespace"))
				Expect(config.Controller.ProbeConcurrency).To(Equal(16))
			})
		})

		Context("when environment variables override file values", func() {
			It("should prioritize environment variables over file", func() {
				yamlContent := `
namespaces:
  namespace: "file-namespace"
controller:
  maxConcurrentReconciles: 5
logging:
  level: "error"
`
				err := os.WriteFile(configFile, []byte(yamlContent), 0o600)
				Expect(err).NotTo(HaveOccurred())

				envVars := map[string]string{
					"HSWCTL_NAMESPACE":         "env-namespace",
					"HSWCTL_PROBE_CONCURRENCY": "32",
				}

				for key, value := range envVars {
					err := os.Setenv(key, value)
					Expect(err).NotTo(HaveOccurred())
				}

				loader := NewConfigurationLoader()
				config, err := loader.LoadConfiguration(configFile)
				Expect(err).NotTo(HaveOccurred())

				Expect(config.Namespaces.Namespace).To(Equal("env-namespace"))
				Expect(config.Controller.ProbeConcurrency).To(Equal(32))

				Expect(config.Controller.MaxConcurrentReconciles).To(Equal(5))
				Expect(config.Logging.Level).To(Equal("error"))
			})
		})

		Context("when file has invalid YAML", func() {
			It("should return an error", func() {
				invalidYAML := `
controller:
  namespace: "test
  invalid: yaml content
    missing quote
`
				err := os.WriteFile(configFile, []byte(invalidYAML), 0o600)
				Expect(err).NotTo(HaveOccurred())

				loader := NewConfigurationLoader()
				config, err := loader.LoadConfiguration(configFile)
				Expect(err).To(HaveOccurred())
				Expect(config).To(BeNil())
			})
		})

		Context("when configuration validation fails", func() {
			It("should return an error for invalid values", func() {
				invalidConfig := `
controller:
  maxConcurrentReconciles: -1
`
				err := os.WriteFile(configFile, []byte(invalidConfig), 0o600)
				Expect(err).NotTo(HaveOccurred())

				loader := NewConfigurationLoader()
				config, err := loader.LoadConfiguration(configFile)
				Expect(err).To(HaveOccurred())
				Expect(config).To(BeNil())
			})

			It("should reject an unscoped namespace with allNamespaces false", func() {
				loader := NewConfigurationLoader()
				config, err := loader.LoadConfiguration("")
				Expect(err).To(HaveOccurred())
				Expect(config).To(BeNil())
			})
		})
	})

	Describe("environment variable handling", func() {
		Context("when environment variables are set", func() {
			It("should load configuration from environment variables", func() {
				envVars := map[string]string{
					"HSWCTL_NAMESPACE":                 "env-namespace",
					"HSWCTL_MAX_CONCURRENT_RECONCILES": "15",
					"HSWCTL_PROBE_CONCURRENCY":          "8",
					"HSWCTL_LOG_LEVEL":                 "debug",
					"HSWCTL_LOG_DEVELOPMENT":            "true",
					"HSWCTL_METRICS_BIND_ADDRESS":       ":7080",
					"HSWCTL_LEADER_ELECTION_ENABLED":    "false",
				}

				for key, value := range envVars {
					err := os.Setenv(key, value)
					Expect(err).NotTo(HaveOccurred())
				}

				loader := NewConfigurationLoader()
				config, err := loader.LoadConfiguration("")
				Expect(err).NotTo(HaveOccurred())
				Expect(config).NotTo(BeNil())

				Expect(config.Namespaces.Namespace).To(Equal("env-namespace"))
				Expect(config.Controller.MaxConcurrentReconciles).To(Equal(15))
				Expect(config.Controller.ProbeConcurrency).To(Equal(8))
				Expect(config.Logging.Level).To(Equal("debug"))
				Expect(config.Logging.Development).To(BeTrue())
				Expect(config.Metrics.BindAddress).To(Equal(":7080"))
				Expect(config.LeaderElection.Enabled).To(BeFalse())
			})

			It("should handle duration environment variables", func() {
				err := os.Setenv("HSWCTL_NAMESPACE", "default")
				Expect(err).NotTo(HaveOccurred())

				envVars := map[string]string{
					"HSWCTL_RECONCILE_INTERVAL": "45s",
					"HSWCTL_RECONCILE_TIMEOUT":  "10m",
					"HSWCTL_KUBE_TIMEOUT":       "60s",
				}

				for key, value := range envVars {
					err := os.Setenv(key, value)
					Expect(err).NotTo(HaveOccurred())
				}

				loader := NewConfigurationLoader()
				config, err := loader.LoadConfiguration("")
				Expect(err).NotTo(HaveOccurred())

				Expect(config.Controller.ReconcileInterval).To(Equal(45 * time.Second))
				Expect(config.Controller.ReconcileTimeout).To(Equal(10 * time.Minute))
				Expect(config.Kubernetes.Timeout).To(Equal(60 * time.Second))
			})

			It("should handle invalid environment variable values", func() {
				err := os.Setenv("HSWCTL_MAX_CONCURRENT_RECONCILES", "not-a-number")
				Expect(err).NotTo(HaveOccurred())

				loader := NewConfigurationLoader()
				config, err := loader.LoadConfiguration("")
				Expect(err).To(HaveOccurred())
				Expect(config).To(BeNil())
			})
		})

		Context("when allNamespaces is set and no namespace is given", func() {
			It("should return default configuration scoped to all namespaces", func() {
				err := os.Setenv("HSWCTL_ALL_NAMESPACES", "true")
				Expect(err).NotTo(HaveOccurred())

				loader := NewConfigurationLoader()
				config, err := loader.LoadConfiguration("")
				Expect(err).NotTo(HaveOccurred())
				Expect(config).NotTo(BeNil())

				Expect(config.Namespaces.AllNamespaces).To(BeTrue())
				Expect(config.Logging.Level).To(Equal("info"))
			})
		})
	})
})
