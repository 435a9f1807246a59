package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"healthrisk/disease"
	"healthrisk/ml"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigUsesDefaults(t *testing.T) {
	for _, key := range []string{"HEALTHRISK_CONFIG", "HEALTHRISK_PORT", "HEALTHRISK_MODELS_DIR"} {
		t.Setenv(key, "")
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Http.Port != 8080 || cfg.Models.Dir != "Models" || cfg.Models.Isolated {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
http:
  port: 9090
  timeout: 5s
log:
  level: debug
models:
  dir: /srv/models
  isolated: true
  files:
    thyroid:
      path: thyroid_linear.json
      type: linear
cache:
  size: 64
`)
	t.Setenv("HEALTHRISK_PORT", "")
	t.Setenv("HEALTHRISK_MODELS_DIR", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Http.Port != 9090 || cfg.Http.Timeout != 5*time.Second {
		t.Fatalf("unexpected http config: %+v", cfg.Http)
	}
	if !cfg.Models.Isolated || cfg.Cache.Size != 64 || cfg.Log.Level != "debug" {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	for _, src := range cfg.Sources() {
		switch src.Disease {
		case disease.Thyroid:
			if src.Path != filepath.Join("/srv/models", "thyroid_linear.json") || src.Type != ml.TypeLinear {
				t.Fatalf("unexpected thyroid source: %+v", src)
			}
		case disease.LungCancer:
			if src.Path != filepath.Join("/srv/models", "lungs_disease_model.json") || src.Type != ml.TypeDecisionTree {
				t.Fatalf("unexpected lung cancer source: %+v", src)
			}
		}
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeConfig(t, "http:\n  port: 9090\n")
	t.Setenv("HEALTHRISK_PORT", "7070")
	t.Setenv("HEALTHRISK_MODELS_DIR", "/opt/models")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Http.Port != 7070 || cfg.Models.Dir != "/opt/models" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}

	t.Setenv("HEALTHRISK_PORT", "not-a-port")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid HEALTHRISK_PORT")
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
	if _, err := Load(writeConfig(t, "models:\n  files:\n    flu:\n      path: flu.json\n")); err == nil {
		t.Fatal("expected error for unknown disease override")
	}
	if _, err := Load(writeConfig(t, "http:\n  port: 70000\n")); err == nil {
		t.Fatal("expected error for invalid port")
	}
}
