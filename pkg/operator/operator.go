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

package operator

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/cache"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	"sigs.k8s.io/controller-runtime/pkg/manager"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	hswv1alpha1 "github.com/paia-tech/hsw-controller/api/v1alpha1"
	"github.com/paia-tech/hsw-controller/internal/server"
	"github.com/paia-tech/hsw-controller/pkg/controllers"
	"github.com/paia-tech/hsw-controller/pkg/metrics"
)

const (
	// Log levels
	logLevelDebug = "debug"

	// Default values
	defaultHostname = "unknown"
)

// Operator is the main-binary orchestrator: it owns the controller-runtime
// manager, the hot-standby reconciler, the metrics/health HTTP surface, and
// leader election, following the single-process pattern the rest of the
// codebase builds on.
type Operator struct {
	manager.Manager

	// Configuration
	config    *Config
	namespace string

	// Core services
	metricsCollector *metrics.Collector
	reconciler       *controllers.HotStandbyDeploymentReconciler

	// HTTP Server components
	ginEngine     *gin.Engine
	healthChecker *server.HealthChecker
	metricsServer *server.MetricsServer

	// Kubernetes clients
	kubeClient kubernetes.Interface

	// Leader election
	leaderElectionManager *LeaderElectionManager

	// Runtime state
	started bool
}

// Config contains configuration for the hot-standby operator.
type Config struct {
	// Basic configuration
	MetricsAddr      string
	ProbeAddr        string
	LeaderElection   bool
	LeaderElectionID string
	Namespace        string
	AllNamespaces    bool

	// Controller configuration
	ReconcileInterval       time.Duration
	MaxConcurrentReconciles int
	ProbeConcurrency        int

	// Operational configuration
	LogLevel     string
	LogFormat    string
	EnablePprof  bool
	ReadOnlyMode bool

	// Performance tuning
	APIQPSLimit   float32
	APIBurstLimit int
}

// Metrics represents a snapshot of operator-level metrics (for compatibility
// with callers that want plain Go values rather than a Prometheus scrape).
type Metrics struct {
	ManagedHSWs           int
	LeaderElectionChanges int
	LeadershipDuration    time.Duration
}

// HealthStatus represents the health status of the operator
type HealthStatus struct {
	Leadership string
	Status     string
}

// DefaultOperatorConfig creates a default configuration
func DefaultOperatorConfig() *Config {
	return &Config{
		MetricsAddr:             ":8080",
		ProbeAddr:               ":8081",
		LeaderElection:          true,
		LeaderElectionID:        "hsw-controller-leader",
		Namespace:               "hsw-system",
		AllNamespaces:           false,
		ReconcileInterval:       30 * time.Second,
		MaxConcurrentReconciles: 10,
		ProbeConcurrency:        16,
		LogLevel:                "info",
		LogFormat:               "json",
		EnablePprof:             false,
		ReadOnlyMode:            false,
		APIQPSLimit:             20.0,
		APIBurstLimit:           30,
	}
}

// New creates a new operator instance (for compatibility)
func New(_ *rest.Config) *Operator {
	config := DefaultOperatorConfig()
	operator, err := NewOperator(config)
	if err != nil {
		panic(fmt.Sprintf("failed to create operator: %v", err))
	}
	return operator
}

// NewWithConfig creates a new operator with configuration (for compatibility)
func NewWithConfig(_ *rest.Config, operatorConfig interface{}) *Operator {
	var config *Config
	if operatorConfig != nil {
		if c, ok := operatorConfig.(*Config); ok {
			config = c
		} else {
			config = DefaultOperatorConfig()
		}
	} else {
		config = DefaultOperatorConfig()
	}

	operator, err := NewOperator(config)
	if err != nil {
		panic(fmt.Sprintf("failed to create operator with config: %v", err))
	}
	return operator
}

// NewWithID creates a new operator with a specific ID for testing
func NewWithID(cfg *rest.Config, operatorID string) *Operator {
	return NewWithIDAndPorts(cfg, operatorID, 0, 0)
}

// NewForTesting creates a new operator specifically configured for integration tests.
func NewForTesting(cfg *rest.Config, operatorID string) *Operator {
	config := DefaultOperatorConfig()
	config.LeaderElectionID = "hsw-leader-test" // Shared lease name for testing

	// Use auto-assigned ports
	config.MetricsAddr = ":0"
	config.ProbeAddr = ":0"

	scheme := runtime.NewScheme()
	if err := clientgoscheme.AddToScheme(scheme); err != nil {
		panic(fmt.Sprintf("failed to add client-go scheme: %v", err))
	}
	if err := hswv1alpha1.AddToScheme(scheme); err != nil {
		panic(fmt.Sprintf("failed to add hsw scheme: %v", err))
	}

	ctrl.SetLogger(zap.New(zap.UseDevMode(config.LogLevel == logLevelDebug)))

	managerOpts := ctrl.Options{
		Scheme: scheme,
		Metrics: metricsserver.Options{
			BindAddress: "0", // Disable metrics server for testing
		},
		HealthProbeBindAddress: config.ProbeAddr,
		LeaderElection:         false, // Disable built-in leader election for testing
	}

	mgr, err := ctrl.NewManager(cfg, managerOpts)
	if err != nil {
		panic(fmt.Sprintf("failed to create manager: %v", err))
	}

	kubeClient, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		panic(fmt.Sprintf("failed to create kubernetes client: %v", err))
	}

	operator := &Operator{
		Manager:    mgr,
		config:     config,
		namespace:  config.Namespace,
		kubeClient: kubeClient,
	}

	leaderElectionConfig := &LeaderElectionConfig{
		Enabled:       config.LeaderElection,
		Identity:      operatorID,
		ID:            config.LeaderElectionID,
		LeaseName:     config.LeaderElectionID,
		Namespace:     "kube-system",
		LeaseDuration: 15 * time.Second,
		RenewDeadline: 10 * time.Second,
		RetryPeriod:   2 * time.Second,
	}

	operator.leaderElectionManager, err = NewLeaderElectionManager(leaderElectionConfig, kubeClient, mgr)
	if err != nil {
		panic(fmt.Sprintf("failed to create leader election manager: %v", err))
	}

	if err := operator.initializeCoreServices(); err != nil {
		panic(fmt.Sprintf("failed to initialize core services: %v", err))
	}

	if err := operator.initializeHTTPServer(); err != nil {
		panic(fmt.Sprintf("failed to initialize HTTP server: %v", err))
	}

	if err := operator.setupControllers(); err != nil {
		panic(fmt.Sprintf("failed to setup controllers: %v", err))
	}

	return operator
}

// NewWithIDAndPorts creates a new operator with a specific ID and custom ports for testing
func NewWithIDAndPorts(cfg *rest.Config, operatorID string, metricsPort, probePort int) *Operator {
	config := DefaultOperatorConfig()
	config.LeaderElectionID = operatorID

	if metricsPort == 0 {
		config.MetricsAddr = ":0"
	} else {
		config.MetricsAddr = fmt.Sprintf(":%d", metricsPort)
	}

	if probePort == 0 {
		config.ProbeAddr = ":0"
	} else {
		config.ProbeAddr = fmt.Sprintf(":%d", probePort)
	}

	scheme := runtime.NewScheme()
	if err := clientgoscheme.AddToScheme(scheme); err != nil {
		panic(fmt.Sprintf("failed to add client-go scheme: %v", err))
	}
	if err := hswv1alpha1.AddToScheme(scheme); err != nil {
		panic(fmt.Sprintf("failed to add hsw scheme: %v", err))
	}

	ctrl.SetLogger(zap.New(zap.UseDevMode(config.LogLevel == logLevelDebug)))

	mgr, err := ctrl.NewManager(cfg, ctrl.Options{
		Scheme: scheme,
		Metrics: metricsserver.Options{
			BindAddress: "0", // Disable metrics server for testing
		},
		HealthProbeBindAddress:  config.ProbeAddr,
		LeaderElection:          config.LeaderElection,
		LeaderElectionID:        config.LeaderElectionID,
		LeaderElectionNamespace: config.Namespace,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to create manager: %v", err))
	}

	kubeClient, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		panic(fmt.Sprintf("failed to create kubernetes client: %v", err))
	}

	operator := &Operator{
		Manager:    mgr,
		config:     config,
		namespace:  config.Namespace,
		kubeClient: kubeClient,
	}

	leaderElectionConfig := &LeaderElectionConfig{
		Enabled:       config.LeaderElection,
		Identity:      operatorID,
		ID:            config.LeaderElectionID,
		LeaseName:     config.LeaderElectionID,
		Namespace:     "kube-system",
		LeaseDuration: 15 * time.Second,
		RenewDeadline: 10 * time.Second,
		RetryPeriod:   2 * time.Second,
	}

	operator.leaderElectionManager, err = NewLeaderElectionManager(leaderElectionConfig, kubeClient, mgr)
	if err != nil {
		panic(fmt.Sprintf("failed to create leader election manager: %v", err))
	}

	if err := operator.initializeCoreServices(); err != nil {
		panic(fmt.Sprintf("failed to initialize core services: %v", err))
	}

	if err := operator.initializeHTTPServer(); err != nil {
		panic(fmt.Sprintf("failed to initialize HTTP server: %v", err))
	}

	if err := operator.setupControllers(); err != nil {
		panic(fmt.Sprintf("failed to setup controllers: %v", err))
	}

	operator.setupHealthChecks()

	return operator
}

// NewOperator creates a new hot-standby operator instance
func NewOperator(config *Config) (*Operator, error) {
	if config == nil {
		config = DefaultOperatorConfig()
	}

	if err := configFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load configuration from environment: %w", err)
	}

	scheme := runtime.NewScheme()
	if err := clientgoscheme.AddToScheme(scheme); err != nil {
		return nil, fmt.Errorf("failed to add client-go scheme: %w", err)
	}
	if err := hswv1alpha1.AddToScheme(scheme); err != nil {
		return nil, fmt.Errorf("failed to add hsw scheme: %w", err)
	}

	ctrl.SetLogger(zap.New(zap.UseDevMode(config.LogLevel == logLevelDebug)))

	mgrOpts := ctrl.Options{
		Scheme: scheme,
		Metrics: metricsserver.Options{
			BindAddress: config.MetricsAddr,
		},
		HealthProbeBindAddress:  config.ProbeAddr,
		LeaderElection:          config.LeaderElection,
		LeaderElectionID:        config.LeaderElectionID,
		LeaderElectionNamespace: config.Namespace,
	}
	if !config.AllNamespaces && config.Namespace != "" {
		mgrOpts.Cache.DefaultNamespaces = map[string]cache.Config{config.Namespace: {}}
	}

	mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), mgrOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create manager: %w", err)
	}

	kubeClient, err := kubernetes.NewForConfig(mgr.GetConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	operator := &Operator{
		Manager:    mgr,
		config:     config,
		namespace:  config.Namespace,
		kubeClient: kubeClient,
	}

	if config.LeaderElection {
		ctrl.Log.WithName("setup").Info("using controller-runtime's built-in leader election")
	}

	if err := operator.initializeCoreServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize core services: %w", err)
	}

	if err := operator.initializeHTTPServer(); err != nil {
		return nil, fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	if err := operator.setupControllers(); err != nil {
		return nil, fmt.Errorf("failed to setup controllers: %w", err)
	}

	operator.setupHealthChecks()

	return operator, nil
}

// Start starts the operator
func (o *Operator) Start(ctx context.Context) error {
	if o.started {
		return fmt.Errorf("operator already started")
	}

	setupLog := ctrl.Log.WithName("setup")
	setupLog.Info("starting hot-standby controller",
		"namespace", o.namespace,
		"all-namespaces", o.config.AllNamespaces,
		"read-only", o.config.ReadOnlyMode,
		"leader-election", o.config.LeaderElection,
	)

	o.started = true

	return o.Manager.Start(ctx)
}

// IsReady returns true if the operator is ready
func (o *Operator) IsReady() bool {
	if !o.started {
		return false
	}

	if o.Manager == nil {
		return o.started
	}

	if o.config.LeaderElection {
		select {
		case <-o.Elected():
			return true
		default:
			return false
		}
	}

	return o.started
}

// GetMetrics returns current operator metrics (for compatibility)
func (o *Operator) GetMetrics() Metrics {
	if o.metricsCollector == nil {
		return Metrics{}
	}

	snapshot := o.metricsCollector.GetMetricsSnapshot()

	result := Metrics{
		ManagedHSWs:           snapshot.ManagedHSWs,
		LeaderElectionChanges: 0,
		LeadershipDuration:    0,
	}

	if o.leaderElectionManager != nil {
		info := o.leaderElectionManager.GetLeadershipInfo()
		if info.IsLeader && !info.StartTime.IsZero() {
			result.LeadershipDuration = time.Since(info.StartTime)
		}
	}

	return result
}

// GetConfig returns the operator configuration
func (o *Operator) GetConfig() *Config {
	return o.config
}

// IsLeader returns true if this operator instance is the current leader
func (o *Operator) IsLeader() bool {
	if o.leaderElectionManager != nil {
		return o.leaderElectionManager.IsLeader()
	}
	return true
}

// GetLeaderElectionDebugInfo returns debug information about leader election state
func (o *Operator) GetLeaderElectionDebugInfo() string {
	if l := o.leaderElectionManager; l != nil {
		return fmt.Sprintf("Identity=%s IsLeader=%t CurrentLeader=%s Enabled=%t",
			l.GetIdentity(), l.IsLeader(), l.GetCurrentLeader(), l.config.Enabled)
	}
	return "no leader election manager"
}

// IsFollower returns true if this operator is ready but not the leader
func (o *Operator) IsFollower() bool {
	return o.IsReady() && !o.IsLeader()
}

// Stop gracefully stops the operator and releases leader election
func (o *Operator) Stop() error {
	if !o.started {
		return nil
	}

	if o.leaderElectionManager != nil {
		if err := o.leaderElectionManager.Resign(); err != nil {
			return fmt.Errorf("failed to resign from leader election: %w", err)
		}
	}

	o.started = false
	return nil
}

// GetID returns the operator's identity/ID
func (o *Operator) GetID() string {
	if o.leaderElectionManager != nil {
		return o.leaderElectionManager.GetIdentity()
	}
	return defaultHostname
}

// SimulateNetworkPartition simulates a network partition for testing
func (o *Operator) SimulateNetworkPartition(_ time.Duration) error {
	if o.leaderElectionManager != nil {
		return o.leaderElectionManager.Resign()
	}
	return nil
}

// SimulateLeaseRenewalFailure simulates lease renewal failure for testing
func (o *Operator) SimulateLeaseRenewalFailure() error {
	if o.leaderElectionManager != nil {
		return o.leaderElectionManager.Resign()
	}
	return nil
}

// GetHealthStatus returns the health status of the operator
func (o *Operator) GetHealthStatus() HealthStatus {
	leadership := "follower"
	if o.IsLeader() {
		leadership = "leader"
	}

	status := "unhealthy"
	if o.IsReady() {
		status = "healthy"
	}

	return HealthStatus{
		Leadership: leadership,
		Status:     status,
	}
}

// GetGinEngine returns the Gin HTTP engine
func (o *Operator) GetGinEngine() *gin.Engine {
	return o.ginEngine
}

// GetHealthChecker returns the health checker
func (o *Operator) GetHealthChecker() *server.HealthChecker {
	return o.healthChecker
}

// GetMetricsServer returns the metrics server
func (o *Operator) GetMetricsServer() *server.MetricsServer {
	return o.metricsServer
}

// GetReconciler returns the hot-standby reconciler registered with the manager.
func (o *Operator) GetReconciler() *controllers.HotStandbyDeploymentReconciler {
	return o.reconciler
}

// initializeCoreServices initializes the core business logic services
func (o *Operator) initializeCoreServices() error {
	o.metricsCollector = metrics.NewCollector()
	o.metricsCollector.RegisterMetricsGlobal()

	return nil
}

// initializeHTTPServer initializes the HTTP server components
func (o *Operator) initializeHTTPServer() error {
	gin.SetMode(gin.ReleaseMode)
	o.ginEngine = gin.New()
	o.ginEngine.Use(gin.Recovery())

	o.healthChecker = server.NewHealthChecker(o.Manager, o.kubeClient, o.namespace)
	o.metricsServer = server.NewMetricsServer(o.metricsCollector)

	o.setupHTTPRoutes()

	return nil
}

// setupHTTPRoutes configures the HTTP routes
func (o *Operator) setupHTTPRoutes() {
	o.ginEngine.GET("/healthz", o.healthChecker.HealthzHandler)
	o.ginEngine.GET("/readyz", o.healthChecker.ReadyzHandler)

	o.ginEngine.GET("/metrics", o.metricsServer.MetricsHandler)
	o.ginEngine.GET("/metrics/health", o.metricsServer.HealthMetricsHandler)
}

// setupControllers registers the hot-standby reconciler with the manager.
func (o *Operator) setupControllers() error {
	setupLog := ctrl.Log.WithName("setup")
	setupLog.Info("setting up hot-standby controller")

	namespaceScope := controllers.NewNamespaceScope(o.config.Namespace, o.config.AllNamespaces)

	recorder := o.GetEventRecorderFor("hsw-controller")

	reconciler := controllers.NewHotStandbyDeploymentReconciler(o.GetClient(), o.GetScheme())
	reconciler.NamespaceScope = namespaceScope
	reconciler.Events = controllers.NewEventRecorder(recorder)
	reconciler.Metrics = o.metricsCollector
	reconciler.ProbeConcurrency = o.config.ProbeConcurrency
	reconciler.DefaultRequeueInterval = o.config.ReconcileInterval

	if err := reconciler.SetupWithManager(o.Manager, o.config.MaxConcurrentReconciles); err != nil {
		return fmt.Errorf("failed to setup hot-standby controller: %w", err)
	}
	o.reconciler = reconciler
	if o.healthChecker != nil {
		o.healthChecker.SetReconciler(reconciler)
	}

	setupLog.Info("hot-standby controller set up successfully")
	return nil
}

// setupHealthChecks configures health and readiness checks
func (o *Operator) setupHealthChecks() {
	if err := o.AddHealthzCheck("healthz", o.healthChecker.GetHealthzChecker()); err != nil {
		ctrl.Log.Error(err, "failed to add healthz check")
	}

	if err := o.AddReadyzCheck("readyz", o.healthChecker.GetReadyzChecker()); err != nil {
		ctrl.Log.Error(err, "failed to add readyz check")
	}
}

// configFromEnv loads configuration from environment variables
func configFromEnv(config *Config) error {
	if addr := os.Getenv("METRICS_ADDR"); addr != "" {
		config.MetricsAddr = addr
	}
	if addr := os.Getenv("PROBE_ADDR"); addr != "" {
		config.ProbeAddr = addr
	}
	if ns := os.Getenv("NAMESPACE"); ns != "" {
		config.Namespace = ns
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.LogLevel = level
	}
	if os.Getenv("ALL_NAMESPACES") == "true" {
		config.AllNamespaces = true
	}
	if os.Getenv("DISABLE_LEADER_ELECTION") == "true" {
		config.LeaderElection = false
	}
	if os.Getenv("READ_ONLY_MODE") == "true" {
		config.ReadOnlyMode = true
	}
	if os.Getenv("ENABLE_PPROF") == "true" {
		config.EnablePprof = true
	}

	return nil
}
