package config

import (
	"testing"

	"localassist/internal/catalog"
	"localassist/internal/resource"
	"localassist/internal/settings"
)

func TestLoad_InvalidFiles(t *testing.T) {
	d := t.TempDir()
	cases := map[string]string{
		"bad.yaml": "addr: :8080\n: broken\n",
		"bad.json": `{ "addr": ":8080", "models_dir": }`,
		"bad.toml": "addr=:8080\nmodels_dir\n",
	}
	for name, body := range cases {
		if _, err := Load(writeTempFile(t, d, name, body)); err == nil {
			t.Fatalf("%s: expected unmarshal error", name)
		}
	}
	if _, err := Load("/definitely/not/a/real/file-12345.yaml"); err == nil {
		t.Fatalf("expected error for nonexistent file")
	}
}

func TestLoad_SettingsSeedYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "seed.yaml", `settings:
  guardrail: custom
  custom_percent: 55
  temperature: 0.2
  models:
    core: qwen3-4b
    vision: qwen2-vl-2b-instruct
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	s := settings.Defaults()
	if err := cfg.Settings.Apply(&s); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if s.Guardrail != resource.LevelCustom || s.CustomPercent != 55 {
		t.Fatalf("guardrail not applied: %+v", s.Policy())
	}
	if s.Temperature != 0.2 {
		t.Fatalf("temperature=%v", s.Temperature)
	}
	if s.Model(catalog.CategoryCore) != "qwen3-4b" || s.Model(catalog.CategoryVision) != "qwen2-vl-2b-instruct" {
		t.Fatalf("models=%v", s.Models)
	}
	if s.MaxTokens != settings.Defaults().MaxTokens {
		t.Fatalf("unset max_tokens should keep default, got %d", s.MaxTokens)
	}
}

func TestSeedApply_Rejects(t *testing.T) {
	s := settings.Defaults()
	if err := (Seed{Guardrail: "extreme"}).Apply(&s); err == nil {
		t.Fatal("expected unknown guardrail error")
	}
	if err := (Seed{Models: map[string]string{"music": "x"}}).Apply(&s); err == nil {
		t.Fatal("expected unknown category error")
	}
}
