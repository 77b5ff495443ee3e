package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "BACKUP_IVS"

// Load reads configuration from the given file, falling back to the standard
// search locations when path is empty. Environment variables prefixed with
// BACKUP_IVS_ override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	explicit := path != ""
	if !explicit {
		path = resolveConfigPath()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	expandSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolveConfigPath picks the first config file that exists: the
// BACKUP_IVS_CONFIG environment variable, ./backup-ivs.yaml, then the
// per-user config directory.
func resolveConfigPath() string {
	if p := os.Getenv(envPrefix + "_CONFIG"); p != "" {
		return p
	}
	if _, err := os.Stat("backup-ivs.yaml"); err == nil {
		return "backup-ivs.yaml"
	}
	if dir, err := os.UserConfigDir(); err == nil {
		p := filepath.Join(dir, "backup-ivs", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("global.log_level", "info")
	v.SetDefault("global.log_format", "console")
	v.SetDefault("global.lock_file", filepath.Join(os.TempDir(), "backup-ivs.lock"))
	v.SetDefault("global.fetch_retries", 3)
	v.SetDefault("global.fetch_backoff", 10*time.Second)
	v.SetDefault("global.http_timeout", 30*time.Second)

	v.SetDefault("transcript.keep", 14)

	v.SetDefault("transfer.binary", "rsync")
	v.SetDefault("transfer.content_root", "/data/recordings")
	v.SetDefault("transfer.final_ext", ".mp4")
	v.SetDefault("transfer.placeholder_ext", ".part")

	v.SetDefault("mirror.use_ssl", true)
	v.SetDefault("mirror.concurrency", 4)
}

// expandSecrets applies ${VAR} expansion to fields that commonly hold
// credentials, so secrets can stay out of the config file.
func expandSecrets(cfg *Config) {
	for i := range cfg.Sites {
		cfg.Sites[i].Username = os.ExpandEnv(cfg.Sites[i].Username)
		cfg.Sites[i].Password = os.ExpandEnv(cfg.Sites[i].Password)
	}
	cfg.Mirror.AccessKey = os.ExpandEnv(cfg.Mirror.AccessKey)
	cfg.Mirror.SecretKey = os.ExpandEnv(cfg.Mirror.SecretKey)
	cfg.Mirror.EncryptionKey = os.ExpandEnv(cfg.Mirror.EncryptionKey)
	for i := range cfg.Notifications.Webhooks {
		cfg.Notifications.Webhooks[i].URL = os.ExpandEnv(cfg.Notifications.Webhooks[i].URL)
	}
	for i := range cfg.Notifications.Mattermost {
		cfg.Notifications.Mattermost[i].URL = os.ExpandEnv(cfg.Notifications.Mattermost[i].URL)
	}
}

// Validate checks the invariants the rest of the program relies on.
func (c *Config) Validate() error {
	if len(c.Sites) == 0 {
		return fmt.Errorf("config: at least one site is required")
	}
	seen := make(map[string]struct{}, len(c.Sites))
	for i, s := range c.Sites {
		if s.Name == "" {
			return fmt.Errorf("config: sites[%d]: name is required", i)
		}
		if s.Endpoint == "" {
			return fmt.Errorf("config: site %q: endpoint is required", s.Name)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("config: duplicate site name %q", s.Name)
		}
		seen[s.Name] = struct{}{}
		if s.Home == "" && c.Global.OutputRoot == "" {
			return fmt.Errorf("config: site %q: global.output_root is required when the site has no home", s.Name)
		}
	}

	if c.Global.RunBudget < 0 {
		return fmt.Errorf("config: global.run_budget must not be negative")
	}
	if c.Transfer.Binary == "" {
		return fmt.Errorf("config: transfer.binary is required")
	}
	if !strings.HasPrefix(c.Transfer.FinalExt, ".") {
		return fmt.Errorf("config: transfer.final_ext must start with a dot")
	}
	if !strings.HasPrefix(c.Transfer.PlaceholderExt, ".") {
		return fmt.Errorf("config: transfer.placeholder_ext must start with a dot")
	}

	if err := validateClock(c.Schedule.WindowStart, "schedule.window_start"); err != nil {
		return err
	}
	if err := validateClock(c.Schedule.WindowEnd, "schedule.window_end"); err != nil {
		return err
	}
	if (c.Schedule.WindowStart == "") != (c.Schedule.WindowEnd == "") {
		return fmt.Errorf("config: schedule.window_start and schedule.window_end must be set together")
	}
	if c.Schedule.Timezone != "" {
		if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
			return fmt.Errorf("config: schedule.timezone: %w", err)
		}
	}

	if c.Mount.Enabled && c.Mount.Path == "" {
		return fmt.Errorf("config: mount.path is required when mount.enabled is true")
	}

	if c.Mirror.Enabled {
		switch {
		case c.Mirror.Endpoint == "":
			return fmt.Errorf("config: mirror.endpoint is required when mirror.enabled is true")
		case c.Mirror.Bucket == "":
			return fmt.Errorf("config: mirror.bucket is required when mirror.enabled is true")
		case c.Mirror.AccessKey == "" || c.Mirror.SecretKey == "":
			return fmt.Errorf("config: mirror credentials are required when mirror.enabled is true")
		}
		if c.Mirror.Concurrency < 1 {
			return fmt.Errorf("config: mirror.concurrency must be at least 1")
		}
	}
	return nil
}

func validateClock(s, key string) error {
	if s == "" {
		return nil
	}
	if _, err := time.Parse("15:04", s); err != nil {
		return fmt.Errorf("config: %s: want HH:MM, got %q", key, s)
	}
	return nil
}

// SiteHome returns the root directory of one site's folder tree.
func (c *Config) SiteHome(s SiteConfig) string {
	if s.Home != "" {
		return s.Home
	}
	return filepath.Join(c.Global.OutputRoot, s.Name)
}

// SiteSSHUser returns the login user for file transfers from the site,
// preferring the per-site override.
func (c *Config) SiteSSHUser(s SiteConfig) string {
	if s.SSHUser != "" {
		return s.SSHUser
	}
	return c.Transfer.SSHUser
}
