package config

import (
	"fmt"
	"testing"
)

func TestValidateDefaultsClean(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	if errs := Validate(cfg); len(errs) != 0 {
		t.Errorf("Expected no errors for defaulted config, got %v", errs)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Version = 3
	cfg.Package.Extension = "loom"
	cfg.Watch.Burst = 0

	errs := Validate(cfg)
	if len(errs) < 3 {
		t.Fatalf("Expected at least 3 errors, got %d: %v", len(errs), errs)
	}
}

func TestValidateSpecPathMissing(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Deps.SpecPaths = []string{"/non/existent/spec.json"}

	errs := Validate(cfg)
	found := false
	targetError := `deps.spec_paths[0] "/non/existent/spec.json" does not exist`
	for _, err := range errs {
		if err.Error() == targetError {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("Expected spec path error %q, got %v", targetError, errs)
	}
}

func TestValidateSpecPathDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Deps.SpecPaths = []string{tmpDir}

	errs := Validate(cfg)
	found := false
	targetError := fmt.Sprintf("deps.spec_paths[0] %q is a directory, expected file", tmpDir)
	for _, err := range errs {
		if err.Error() == targetError {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("Expected directory error, got %v", errs)
	}
}
