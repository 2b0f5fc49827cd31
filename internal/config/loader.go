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
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration is the complete configuration for the hot-standby controller.
type Configuration struct {
	Controller     ControllerConfig     `yaml:"controller" json:"controller"`
	Kubernetes     KubernetesConfig     `yaml:"kubernetes" json:"kubernetes"`
	LeaderElection LeaderElectionConfig `yaml:"leaderElection" json:"leaderElection"`
	Logging        LoggingConfig        `yaml:"logging" json:"logging"`
	Metrics        MetricsConfig        `yaml:"metrics" json:"metrics"`
	Namespaces     NamespacesConfig     `yaml:"namespaces" json:"namespaces"`
}

// ControllerConfig contains controller-specific configuration.
type ControllerConfig struct {
	MaxConcurrentReconciles int           `yaml:"maxConcurrentReconciles" json:"maxConcurrentReconciles"`
	ReconcileInterval       time.Duration `yaml:"reconcileInterval" json:"reconcileInterval"`
	ReconcileTimeout        time.Duration `yaml:"reconcileTimeout" json:"reconcileTimeout"`
	ProbeConcurrency        int           `yaml:"probeConcurrency" json:"probeConcurrency"`
	GracefulShutdownTimeout time.Duration `yaml:"gracefulShutdownTimeout" json:"gracefulShutdownTimeout"`
}

// KubernetesConfig contains Kubernetes client configuration.
type KubernetesConfig struct {
	Kubeconfig string        `yaml:"kubeconfig" json:"kubeconfig"`
	Context    string        `yaml:"context" json:"context"`
	QPS        float32       `yaml:"qps" json:"qps"`
	Burst      int           `yaml:"burst" json:"burst"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
}

// LeaderElectionConfig contains leader election configuration.
type LeaderElectionConfig struct {
	Enabled       bool          `yaml:"enabled" json:"enabled"`
	ID            string        `yaml:"id" json:"id"`
	LeaseName     string        `yaml:"leaseName" json:"leaseName"`
	LeaseDuration time.Duration `yaml:"leaseDuration" json:"leaseDuration"`
	RenewDeadline time.Duration `yaml:"renewDeadline" json:"renewDeadline"`
	RetryPeriod   time.Duration `yaml:"retryPeriod" json:"retryPeriod"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" json:"level"`
	Format      string `yaml:"format" json:"format"`
	Development bool   `yaml:"development" json:"development"`
}

// MetricsConfig contains metrics and health-probe configuration.
type MetricsConfig struct {
	BindAddress        string        `yaml:"bindAddress" json:"bindAddress"`
	HealthBindAddress  string        `yaml:"healthBindAddress" json:"healthBindAddress"`
	CollectionInterval time.Duration `yaml:"collectionInterval" json:"collectionInterval"`
}

// NamespacesConfig contains namespace scoping configuration.
type NamespacesConfig struct {
	Namespace     string `yaml:"namespace" json:"namespace"`
	AllNamespaces bool   `yaml:"allNamespaces" json:"allNamespaces"`
}

// DefaultConfiguration returns the default configuration.
func DefaultConfiguration() *Configuration {
	return &Configuration{
		Controller: ControllerConfig{
			MaxConcurrentReconciles: 2,
			ReconcileInterval:       30 * time.Second,
			ReconcileTimeout:        30 * time.Second,
			ProbeConcurrency:        16,
			GracefulShutdownTimeout: 30 * time.Second,
		},
		Kubernetes: KubernetesConfig{
			QPS:     20.0,
			Burst:   40,
			Timeout: 30 * time.Second,
		},
		LeaderElection: LeaderElectionConfig{
			Enabled:       true,
			ID:            "hsw-controller-leader",
			LeaseName:     "hsw-controller-leader",
			LeaseDuration: 15 * time.Second,
			RenewDeadline: 10 * time.Second,
			RetryPeriod:   2 * time.Second,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			Development: false,
		},
		Metrics: MetricsConfig{
			BindAddress:        ":8080",
			HealthBindAddress:  ":8081",
			CollectionInterval: 30 * time.Second,
		},
		Namespaces: NamespacesConfig{
			Namespace:     "",
			AllNamespaces: false,
		},
	}
}

// ConfigurationLoader handles loading configuration from multiple sources.
type ConfigurationLoader struct {
	config *Configuration
}

// NewConfigurationLoader creates a new configuration loader.
func NewConfigurationLoader() *ConfigurationLoader {
	return &ConfigurationLoader{
		config: DefaultConfiguration(),
	}
}

// LoadFromFile loads configuration from a YAML file.
func (cl *ConfigurationLoader) LoadFromFile(path string) error {
	if path == "" {
		return nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("configuration file not found: %s", path)
	}

	data, err := os.ReadFile(path) // #nosec G304 - path is an operator-supplied configuration file
	if err != nil {
		return fmt.Errorf("failed to read configuration file: %w", err)
	}

	if err := yaml.Unmarshal(data, cl.config); err != nil {
		return fmt.Errorf("failed to parse configuration file: %w", err)
	}

	return nil
}

// LoadFromEnvironment loads configuration from HSWCTL_-prefixed environment
// variables, overriding anything set from a config file.
func (cl *ConfigurationLoader) LoadFromEnvironment() error {
	envMappings := map[string]func(string) error{
		"HSWCTL_MAX_CONCURRENT_RECONCILES": cl.setMaxConcurrentReconciles,
		"HSWCTL_RECONCILE_INTERVAL":        cl.setReconcileInterval,
		"HSWCTL_RECONCILE_TIMEOUT":         cl.setReconcileTimeout,
		"HSWCTL_PROBE_CONCURRENCY":         cl.setProbeConcurrency,
		"HSWCTL_GRACEFUL_SHUTDOWN_TIMEOUT": cl.setGracefulShutdownTimeout,

		"KUBECONFIG":           cl.setKubeconfig,
		"HSWCTL_KUBE_CONTEXT":  cl.setKubeContext,
		"HSWCTL_KUBE_QPS":      cl.setKubeQPS,
		"HSWCTL_KUBE_BURST":    cl.setKubeBurst,
		"HSWCTL_KUBE_TIMEOUT":  cl.setKubeTimeout,

		"HSWCTL_LEADER_ELECTION_ENABLED":        cl.setLeaderElectionEnabled,
		"HSWCTL_LEADER_ELECTION_ID":             cl.setLeaderElectionID,
		"HSWCTL_LEADER_ELECTION_LEASE_NAME":     cl.setLeaderElectionLeaseName,
		"HSWCTL_LEADER_ELECTION_LEASE_DURATION": cl.setLeaderElectionLeaseDuration,
		"HSWCTL_LEADER_ELECTION_RENEW_DEADLINE": cl.setLeaderElectionRenewDeadline,
		"HSWCTL_LEADER_ELECTION_RETRY_PERIOD":   cl.setLeaderElectionRetryPeriod,

		"HSWCTL_LOG_LEVEL":       cl.setLogLevel,
		"HSWCTL_LOG_FORMAT":      cl.setLogFormat,
		"HSWCTL_LOG_DEVELOPMENT": cl.setLogDevelopment,

		"HSWCTL_METRICS_BIND_ADDRESS":        cl.setMetricsBindAddress,
		"HSWCTL_HEALTH_BIND_ADDRESS":         cl.setHealthBindAddress,
		"HSWCTL_METRICS_COLLECTION_INTERVAL": cl.setMetricsCollectionInterval,

		"HSWCTL_NAMESPACE":      cl.setNamespace,
		"HSWCTL_ALL_NAMESPACES": cl.setAllNamespaces,
	}

	for envVar, setter := range envMappings {
		if value := os.Getenv(envVar); value != "" {
			if err := setter(value); err != nil {
				return fmt.Errorf("failed to set %s=%s: %w", envVar, value, err)
			}
		}
	}

	return nil
}

// LoadConfiguration loads configuration from file and environment variables,
// then validates the result.
func (cl *ConfigurationLoader) LoadConfiguration(configFile string) (*Configuration, error) {
	cl.config = DefaultConfiguration()

	if configFile != "" {
		if err := cl.LoadFromFile(configFile); err != nil {
			return nil, fmt.Errorf("failed to load configuration from file: %w", err)
		}
	}

	if err := cl.LoadFromEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to load configuration from environment: %w", err)
	}

	if err := cl.ValidateConfiguration(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cl.config, nil
}

// ValidateConfiguration validates the loaded configuration.
func (cl *ConfigurationLoader) ValidateConfiguration() error {
	if cl.config.Controller.MaxConcurrentReconciles <= 0 {
		return fmt.Errorf("controller.maxConcurrentReconciles must be positive")
	}
	if cl.config.Controller.ReconcileInterval <= 0 {
		return fmt.Errorf("controller.reconcileInterval must be positive")
	}
	if cl.config.Controller.ReconcileTimeout <= 0 {
		return fmt.Errorf("controller.reconcileTimeout must be positive")
	}
	if cl.config.Controller.ProbeConcurrency <= 0 {
		return fmt.Errorf("controller.probeConcurrency must be positive")
	}

	if cl.config.Kubernetes.QPS <= 0 {
		return fmt.Errorf("kubernetes.qps must be positive")
	}
	if cl.config.Kubernetes.Burst <= 0 {
		return fmt.Errorf("kubernetes.burst must be positive")
	}

	if cl.config.LeaderElection.Enabled {
		if cl.config.LeaderElection.LeaseDuration <= 0 {
			return fmt.Errorf("leaderElection.leaseDuration must be positive")
		}
		if cl.config.LeaderElection.RenewDeadline <= 0 {
			return fmt.Errorf("leaderElection.renewDeadline must be positive")
		}
		if cl.config.LeaderElection.RetryPeriod <= 0 {
			return fmt.Errorf("leaderElection.retryPeriod must be positive")
		}
		if cl.config.LeaderElection.RenewDeadline >= cl.config.LeaderElection.LeaseDuration {
			return fmt.Errorf("leaderElection.renewDeadline must be less than leaseDuration")
		}
	}

	if cl.config.Namespaces.Namespace == "" && !cl.config.Namespaces.AllNamespaces {
		return fmt.Errorf("namespaces.namespace must be set unless allNamespaces is true")
	}

	return nil
}

// SaveToFile saves the current configuration to a YAML file.
func (cl *ConfigurationLoader) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil { // #nosec G301 - secure directory permissions
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := yaml.Marshal(cl.config)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	return nil
}

func (cl *ConfigurationLoader) setMaxConcurrentReconciles(value string) error {
	val, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	cl.config.Controller.MaxConcurrentReconciles = val
	return nil
}

func (cl *ConfigurationLoader) setReconcileInterval(value string) error {
	val, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	cl.config.Controller.ReconcileInterval = val
	return nil
}

func (cl *ConfigurationLoader) setReconcileTimeout(value string) error {
	val, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	cl.config.Controller.ReconcileTimeout = val
	return nil
}

func (cl *ConfigurationLoader) setProbeConcurrency(value string) error {
	val, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	cl.config.Controller.ProbeConcurrency = val
	return nil
}

func (cl *ConfigurationLoader) setGracefulShutdownTimeout(value string) error {
	val, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	cl.config.Controller.GracefulShutdownTimeout = val
	return nil
}

func (cl *ConfigurationLoader) setKubeconfig(value string) error {
	cl.config.Kubernetes.Kubeconfig = value
	return nil
}

func (cl *ConfigurationLoader) setKubeContext(value string) error {
	cl.config.Kubernetes.Context = value
	return nil
}

func (cl *ConfigurationLoader) setKubeQPS(value string) error {
	val, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return err
	}
	cl.config.Kubernetes.QPS = float32(val)
	return nil
}

func (cl *ConfigurationLoader) setKubeBurst(value string) error {
	val, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	cl.config.Kubernetes.Burst = val
	return nil
}

func (cl *ConfigurationLoader) setKubeTimeout(value string) error {
	val, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	cl.config.Kubernetes.Timeout = val
	return nil
}

func (cl *ConfigurationLoader) setLeaderElectionEnabled(value string) error {
	val, err := strconv.ParseBool(value)
	if err != nil {
		return err
	}
	cl.config.LeaderElection.Enabled = val
	return nil
}

func (cl *ConfigurationLoader) setLeaderElectionID(value string) error {
	cl.config.LeaderElection.ID = value
	return nil
}

func (cl *ConfigurationLoader) setLeaderElectionLeaseName(value string) error {
	cl.config.LeaderElection.LeaseName = value
	return nil
}

func (cl *ConfigurationLoader) setLeaderElectionLeaseDuration(value string) error {
	val, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	cl.config.LeaderElection.LeaseDuration = val
	return nil
}

func (cl *ConfigurationLoader) setLeaderElectionRenewDeadline(value string) error {
	val, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	cl.config.LeaderElection.RenewDeadline = val
	return nil
}

func (cl *ConfigurationLoader) setLeaderElectionRetryPeriod(value string) error {
	val, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	cl.config.LeaderElection.RetryPeriod = val
	return nil
}

func (cl *ConfigurationLoader) setLogLevel(value string) error {
	cl.config.Logging.Level = value
	return nil
}

func (cl *ConfigurationLoader) setLogFormat(value string) error {
	cl.config.Logging.Format = value
	return nil
}

func (cl *ConfigurationLoader) setLogDevelopment(value string) error {
	val, err := strconv.ParseBool(value)
	if err != nil {
		return err
	}
	cl.config.Logging.Development = val
	return nil
}

func (cl *ConfigurationLoader) setMetricsBindAddress(value string) error {
	cl.config.Metrics.BindAddress = value
	return nil
}

func (cl *ConfigurationLoader) setHealthBindAddress(value string) error {
	cl.config.Metrics.HealthBindAddress = value
	return nil
}

func (cl *ConfigurationLoader) setMetricsCollectionInterval(value string) error {
	val, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	cl.config.Metrics.CollectionInterval = val
	return nil
}

func (cl *ConfigurationLoader) setNamespace(value string) error {
	cl.config.Namespaces.Namespace = value
	return nil
}

func (cl *ConfigurationLoader) setAllNamespaces(value string) error {
	val, err := strconv.ParseBool(value)
	if err != nil {
		return err
	}
	cl.config.Namespaces.AllNamespaces = val
	return nil
}
