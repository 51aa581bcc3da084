package app

import (
	"context"
	"fmt"
	"time"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

type HealthService struct {
	app *App
}

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}

	if s.app.Repository() == nil {
		status.Status = "degraded"
		status.Components["repository"] = "missing"
	} else {
		modules, types, values := s.app.repositoryCounts()
		status.Components["repository"] = fmt.Sprintf("ok (%d modules, %d types, %d values)", modules, types, values)
	}

	if s.app.history != nil {
		status.Components["history"] = "ok"
	} else if s.app.Config.DB.IsEnabled() {
		status.Status = "degraded"
		status.Components["history"] = "missing but enabled in config"
	}

	if s.app.writeQueue != nil {
		status.Components["write_queue"] = fmt.Sprintf("ok (depth %d)", s.app.writeQueue.Len())
	}

	if s.app.sources != nil {
		status.Components["parse_cache"] = fmt.Sprintf("ok (%d entries)", s.app.sources.Len())
	} else {
		status.Status = "degraded"
		status.Components["parse_cache"] = "missing"
	}

	return status
}
