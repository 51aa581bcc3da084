package app

import (
	"fmt"
	"strings"

	"loom/internal/core/ports"
)

type PresentationService struct {
	app *App
}

func newPresentationService(app *App) *PresentationService {
	return &PresentationService{app: app}
}

// PrintBuild writes a terminal summary of one build when terminal alerts
// are on.
func (p *PresentationService) PrintBuild(result ports.BuildResult) {
	if !p.app.Config.Alerts.Terminal {
		return
	}

	fmt.Println(strings.Repeat("-", 40))
	fmt.Printf("Build %s: %d files in %v\n", shortBuildID(result.BuildID), result.FilesChanged, result.Duration)

	if result.Failed() {
		fmt.Printf("⚠️  BUILD FAILED with %d errors:\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("   %s\n", e)
		}
	} else {
		fmt.Printf("✅ Ordered %d modules, inserted %d types and %d values.\n",
			result.ModulesOrdered, result.TypesInserted, result.ValuesInserted)
		if result.ModulesDeleted > 0 {
			fmt.Printf("🧹 Deleted %d modules.\n", result.ModulesDeleted)
		}
	}

	if len(result.RuleViolations) > 0 {
		fmt.Printf("📐 %d architecture violations:\n", len(result.RuleViolations))
		for _, v := range result.RuleViolations {
			fmt.Printf("   %s\n", v)
		}
	}

	modules, types, values := p.app.repositoryCounts()
	fmt.Printf("📦 Repository: %d modules, %d types, %d values\n", modules, types, values)
	fmt.Println(strings.Repeat("-", 40))
}

func shortBuildID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
