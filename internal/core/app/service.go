package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"loom/internal/core/ports"
	"loom/internal/shared/observability"
)

type buildService struct {
	app *App
}

var _ ports.BuildService = (*buildService)(nil)

func NewBuildService(app *App) ports.BuildService {
	return &buildService{app: app}
}

func (s *buildService) Unwrap() *App {
	return s.app
}

func (s *buildService) Close(ctx context.Context) error {
	if s == nil || s.app == nil {
		return nil
	}
	return s.app.Close(ctx)
}

func (a *App) BuildService() ports.BuildService {
	return NewBuildService(a)
}

func (s *buildService) RunBuild(ctx context.Context, req ports.BuildRequest) (ports.BuildResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "buildService.RunBuild", trace.WithAttributes())
	defer span.End()

	if err := ctx.Err(); err != nil {
		return ports.BuildResult{}, err
	}
	if s.app == nil {
		return ports.BuildResult{}, fmt.Errorf("app is required")
	}
	if s.app.Config == nil {
		return ports.BuildResult{}, fmt.Errorf("config is required")
	}

	return s.app.RunBuild(ctx, normalizeBuildPaths(req.Paths))
}

func (s *buildService) InitialBuild(ctx context.Context) (ports.BuildResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "buildService.InitialBuild", trace.WithAttributes())
	defer span.End()

	if err := ctx.Err(); err != nil {
		return ports.BuildResult{}, err
	}
	if s.app == nil {
		return ports.BuildResult{}, fmt.Errorf("app is required")
	}
	if s.app.Config == nil {
		return ports.BuildResult{}, fmt.Errorf("config is required")
	}

	return s.app.InitialBuild(ctx)
}

func (s *buildService) WatchService() ports.WatchService {
	return &watchService{app: s.app}
}

func normalizeBuildPaths(paths []string) []string {
	cleaned := make([]string, 0, len(paths))
	seen := make(map[string]bool)
	for _, p := range paths {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}
		abs := trimmed
		if absPath, err := filepath.Abs(trimmed); err == nil {
			abs = absPath
		}
		abs = filepath.Clean(abs)
		if seen[abs] {
			continue
		}
		seen[abs] = true
		cleaned = append(cleaned, abs)
	}
	return cleaned
}
