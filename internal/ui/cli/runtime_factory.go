package cli

import (
	"fmt"

	coreapp "loom/internal/core/app"
	"loom/internal/core/config"
	"loom/internal/core/ports"
)

type buildFactory interface {
	New(cfg *config.Config) (ports.BuildService, error)
}

type coreBuildFactory struct{}

func (coreBuildFactory) New(cfg *config.Config) (ports.BuildService, error) {
	app, err := coreapp.New(cfg)
	if err != nil {
		return nil, err
	}
	return app.BuildService(), nil
}

func initializeBuild(cfg *config.Config, factory buildFactory) (ports.BuildService, error) {
	if factory == nil {
		return nil, fmt.Errorf("build factory is required")
	}
	return factory.New(cfg)
}

// unwrapApp recovers the core app from a build service for the pieces the
// port surface does not cover: bootstrap, health checks and the UI update
// handler.
func unwrapApp(svc ports.BuildService) *coreapp.App {
	if u, ok := svc.(interface{ Unwrap() *coreapp.App }); ok {
		return u.Unwrap()
	}
	return nil
}
