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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	hswconfig "github.com/paia-tech/hsw-controller/internal/config"
	"github.com/paia-tech/hsw-controller/pkg/operator"
)

var (
	// Build-time variables
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		namespace            = flag.String("namespace", "hsw-system", "The namespace to run the controller in.")
		allNamespaces        = flag.Bool("all-namespaces", false, "Watch HotStandbyDeployments across all namespaces.")
		workers              = flag.Int("workers", 2, "Maximum number of concurrent reconciles.")
		enableLeaderElection = flag.Bool("leader-elect", true, "Enable leader election for controller manager.")
		leaderElectionID     = flag.String("leader-election-id", "hsw-controller-leader", "The name of the leader election lease.")
		probeConcurrency     = flag.Int("probe-concurrency", 16, "Maximum concurrent busy-probe requests per reconcile.")
		metricsAddr          = flag.String("metrics-bind-address", ":8080", "The address the metric endpoint binds to.")
		probeAddr            = flag.String("health-probe-bind-address", ":8081", "The address the health probe endpoint binds to.")
		logLevel             = flag.String("log-level", "info", "Log level (debug, info, warn, error).")
		logFormat            = flag.String("log-format", "json", "Log format (json, console).")
		apiQPSLimit          = flag.Float64("api-qps-limit", 20.0, "QPS limit for Kubernetes API calls.")
		apiBurstLimit        = flag.Int("api-burst-limit", 40, "Burst limit for Kubernetes API calls.")
		reconcileInterval    = flag.Duration("reconcile-interval", 30*time.Second, "Bounded loop-closing requeue interval.")
		readOnlyMode         = flag.Bool("read-only", false, "Run in read-only mode (no mutations).")
		enablePprof          = flag.Bool("enable-pprof", false, "Enable pprof endpoints for debugging.")
		configFile           = flag.String("config", "", "Optional YAML configuration file. Flags override values loaded from it.")
		showVersion          = flag.Bool("version", false, "Show version information and exit.")
	)

	flag.Parse()

	if *showVersion {
		fmt.Printf("hsw-controller\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Build Date: %s\n", buildDate)
		return 0
	}

	opts := zap.Options{
		Development: *logLevel == "debug",
	}
	logger := zap.New(zap.UseFlagOptions(&opts))
	ctrl.SetLogger(logger)
	setupLog := logger.WithName("setup")

	loader := hswconfig.NewConfigurationLoader()
	fileConfig, err := loader.LoadConfiguration(*configFile)
	if err != nil {
		setupLog.Error(err, "failed to load configuration")
		return 1
	}

	explicit := setFlags()

	operatorConfig := &operator.Config{
		MetricsAddr:             *metricsAddr,
		ProbeAddr:               *probeAddr,
		LeaderElection:          *enableLeaderElection,
		LeaderElectionID:        *leaderElectionID,
		Namespace:               *namespace,
		AllNamespaces:           *allNamespaces,
		ReconcileInterval:       *reconcileInterval,
		MaxConcurrentReconciles: *workers,
		ProbeConcurrency:        *probeConcurrency,
		LogLevel:                *logLevel,
		LogFormat:               *logFormat,
		EnablePprof:             *enablePprof,
		ReadOnlyMode:            *readOnlyMode,
		APIQPSLimit:             float32(*apiQPSLimit),
		APIBurstLimit:           *apiBurstLimit,
	}

	// A --config file fills in anything the operator picked up as a
	// default rather than something the caller asked for explicitly.
	if !explicit["namespace"] {
		operatorConfig.Namespace = fileConfig.Namespaces.Namespace
	}
	if !explicit["all-namespaces"] {
		operatorConfig.AllNamespaces = fileConfig.Namespaces.AllNamespaces
	}
	if !explicit["workers"] {
		operatorConfig.MaxConcurrentReconciles = fileConfig.Controller.MaxConcurrentReconciles
	}
	if !explicit["probe-concurrency"] {
		operatorConfig.ProbeConcurrency = fileConfig.Controller.ProbeConcurrency
	}
	if !explicit["reconcile-interval"] {
		operatorConfig.ReconcileInterval = fileConfig.Controller.ReconcileInterval
	}
	if !explicit["leader-elect"] {
		operatorConfig.LeaderElection = fileConfig.LeaderElection.Enabled
	}
	if !explicit["leader-election-id"] {
		operatorConfig.LeaderElectionID = fileConfig.LeaderElection.ID
	}
	if !explicit["log-level"] {
		operatorConfig.LogLevel = fileConfig.Logging.Level
	}
	if !explicit["log-format"] {
		operatorConfig.LogFormat = fileConfig.Logging.Format
	}
	if !explicit["metrics-bind-address"] {
		operatorConfig.MetricsAddr = fileConfig.Metrics.BindAddress
	}
	if !explicit["health-probe-bind-address"] {
		operatorConfig.ProbeAddr = fileConfig.Metrics.HealthBindAddress
	}
	if !explicit["api-qps-limit"] {
		operatorConfig.APIQPSLimit = fileConfig.Kubernetes.QPS
	}
	if !explicit["api-burst-limit"] {
		operatorConfig.APIBurstLimit = fileConfig.Kubernetes.Burst
	}

	setupLog.Info("starting hot-standby controller",
		"version", version,
		"commit", commit,
		"buildDate", buildDate,
		"namespace", operatorConfig.Namespace,
		"allNamespaces", operatorConfig.AllNamespaces,
		"metricsAddr", operatorConfig.MetricsAddr,
		"probeAddr", operatorConfig.ProbeAddr,
		"leaderElection", operatorConfig.LeaderElection,
		"readOnly", operatorConfig.ReadOnlyMode,
	)

	op, err := operator.NewOperator(operatorConfig)
	if err != nil {
		setupLog.Error(err, "failed to create operator")
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := op.Start(ctx); err != nil {
		setupLog.Error(err, "operator exited with error")
		if ctx.Err() == nil {
			// Start returned on its own rather than because our signal
			// context was cancelled - treat it as a lost leader lease.
			return 2
		}
		return 1
	}

	setupLog.Info("operator stopped")
	return 0
}

// setFlags returns the set of flag names the caller passed explicitly on
// the command line, so --config can fill in everything else.
func setFlags() map[string]bool {
	explicit := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		explicit[f.Name] = true
	})
	return explicit
}
