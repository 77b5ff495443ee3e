package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleConfig = `
global:
  output_root: /srv/recordings
  run_budget: 2h
sites:
  - name: hq
    endpoint: https://hq.example.com
    username: backup
    password: ${HQ_PASSWORD}
  - name: annex
    endpoint: https://annex.example.com
    home: /mnt/annex
schedule:
  window_start: "22:00"
  window_end: "06:00"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "backup-ivs.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("HQ_PASSWORD", "s3cret")
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := len(cfg.Sites); got != 2 {
		t.Fatalf("sites = %d, want 2", got)
	}
	if cfg.Sites[0].Password != "s3cret" {
		t.Errorf("password not expanded: %q", cfg.Sites[0].Password)
	}
	if cfg.Global.RunBudget != 2*time.Hour {
		t.Errorf("run_budget = %v, want 2h", cfg.Global.RunBudget)
	}
	if cfg.Transfer.Binary != "rsync" {
		t.Errorf("transfer.binary default = %q, want rsync", cfg.Transfer.Binary)
	}
	if cfg.Transfer.FinalExt != ".mp4" || cfg.Transfer.PlaceholderExt != ".part" {
		t.Errorf("extension defaults = %q/%q", cfg.Transfer.FinalExt, cfg.Transfer.PlaceholderExt)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("BACKUP_IVS_GLOBAL_LOG_LEVEL", "debug")
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Global.LogLevel != "debug" {
		t.Errorf("log_level = %q, want debug from env", cfg.Global.LogLevel)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("want error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"no sites", `global: {output_root: /srv}`},
		{"site without name", `
global: {output_root: /srv}
sites: [{endpoint: https://x.example.com}]`},
		{"site without endpoint", `
global: {output_root: /srv}
sites: [{name: x}]`},
		{"duplicate site names", `
global: {output_root: /srv}
sites:
  - {name: x, endpoint: https://a.example.com}
  - {name: x, endpoint: https://b.example.com}`},
		{"no output root and no home", `
sites: [{name: x, endpoint: https://x.example.com}]`},
		{"bad window clock", `
global: {output_root: /srv}
sites: [{name: x, endpoint: https://x.example.com}]
schedule: {window_start: "25:99", window_end: "06:00"}`},
		{"half-open window", `
global: {output_root: /srv}
sites: [{name: x, endpoint: https://x.example.com}]
schedule: {window_start: "22:00"}`},
		{"mirror without bucket", `
global: {output_root: /srv}
sites: [{name: x, endpoint: https://x.example.com}]
mirror: {enabled: true, endpoint: s3.example.com, access_key: a, secret_key: b}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.body)); err == nil {
				t.Fatalf("want validation error")
			}
		})
	}
}

func TestSiteHome(t *testing.T) {
	cfg := &Config{Global: GlobalConfig{OutputRoot: "/srv/recordings"}}
	if got := cfg.SiteHome(SiteConfig{Name: "hq"}); got != filepath.Join("/srv/recordings", "hq") {
		t.Errorf("SiteHome = %q", got)
	}
	if got := cfg.SiteHome(SiteConfig{Name: "hq", Home: "/mnt/special"}); got != "/mnt/special" {
		t.Errorf("SiteHome with override = %q", got)
	}
}
