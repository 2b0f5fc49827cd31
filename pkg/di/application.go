package di

import (
	"context"
	"fmt"

	hswconfig "github.com/paia-tech/hsw-controller/internal/config"
	"github.com/paia-tech/hsw-controller/pkg/operator"
)

// ApplicationBuilder helps build and configure the hot-standby controller
// application using DI.
type ApplicationBuilder struct {
	container  *Container
	configFile string
}

// NewApplicationBuilder creates a new application builder
func NewApplicationBuilder() *ApplicationBuilder {
	return &ApplicationBuilder{
		container: NewContainer(),
	}
}

// WithConfigFile sets the configuration file path
func (b *ApplicationBuilder) WithConfigFile(path string) *ApplicationBuilder {
	b.configFile = path
	return b
}

// Build builds the application with all dependencies configured
func (b *ApplicationBuilder) Build(_ context.Context) (*Application, error) {
	registry := NewServiceRegistry(b.container).WithConfigFile(b.configFile)
	if err := registry.RegisterAll(); err != nil {
		return nil, fmt.Errorf("failed to register services: %w", err)
	}

	var app *Application
	if err := b.container.Invoke(func(cfg *hswconfig.Configuration) {
		app = &Application{
			Config:    cfg,
			Container: b.container,
		}
	}); err != nil {
		return nil, fmt.Errorf("failed to build application: %w", err)
	}

	return app, nil
}

// Application represents the main hot-standby controller application
type Application struct {
	Config    *hswconfig.Configuration
	Container *Container
}

// Start resolves the operator from the DI container and starts it
func (a *Application) Start(ctx context.Context) error {
	var startErr error
	if err := a.Container.Invoke(func(op *operator.Operator) {
		startErr = op.Start(ctx)
	}); err != nil {
		return fmt.Errorf("failed to resolve operator from DI container: %w", err)
	}

	if startErr != nil {
		return fmt.Errorf("failed to start operator: %w", startErr)
	}

	return nil
}

// Stop does nothing and returns nil; the operator stops when the context
// passed to Start is cancelled.
func (a *Application) Stop(_ context.Context) error {
	return nil
}

// GetConfig returns the application configuration
func (a *Application) GetConfig() *hswconfig.Configuration {
	return a.Config
}

// NewApplication creates a new application with default configuration
func NewApplication(ctx context.Context) (*Application, error) {
	return NewApplicationBuilder().Build(ctx)
}

// NewApplicationWithConfig creates a new application with configuration from file
func NewApplicationWithConfig(ctx context.Context, configFile string) (*Application, error) {
	return NewApplicationBuilder().WithConfigFile(configFile).Build(ctx)
}
