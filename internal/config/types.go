package config

import "time"

// Config is the root configuration schema.
type Config struct {
	Global        GlobalConfig        `mapstructure:"global"`
	Transcript    TranscriptConfig    `mapstructure:"transcript"`
	Transfer      TransferConfig      `mapstructure:"transfer"`
	Mount         MountConfig         `mapstructure:"mount"`
	Sites         []SiteConfig        `mapstructure:"sites"`
	Schedule      ScheduleConfig      `mapstructure:"schedule"`
	Mirror        MirrorConfig        `mapstructure:"mirror"`
	Report        ReportConfig        `mapstructure:"report"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
}

type GlobalConfig struct {
	LogLevel   string `mapstructure:"log_level"`
	LogFormat  string `mapstructure:"log_format"` // json or console
	LockFile   string `mapstructure:"lock_file"`
	OutputRoot string `mapstructure:"output_root"`
	// RunBudget caps the wall clock of one run; 0 means unbounded.
	RunBudget    time.Duration `mapstructure:"run_budget"`
	FetchRetries int           `mapstructure:"fetch_retries"`
	FetchBackoff time.Duration `mapstructure:"fetch_backoff"`
	HTTPTimeout  time.Duration `mapstructure:"http_timeout"`
}

type TranscriptConfig struct {
	// Dir receives one log transcript file per run; empty disables transcripts.
	Dir  string `mapstructure:"dir"`
	Keep int    `mapstructure:"keep"`
}

type TransferConfig struct {
	Binary         string   `mapstructure:"binary"`
	ExtraArgs      []string `mapstructure:"extra_args"`
	SSHUser        string   `mapstructure:"ssh_user"`
	ContentRoot    string   `mapstructure:"content_root"`
	FinalExt       string   `mapstructure:"final_ext"`
	PlaceholderExt string   `mapstructure:"placeholder_ext"`
}

type MountConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	// Marker is a file that proves the share is really mounted, not just an
	// empty mountpoint directory.
	Marker  string   `mapstructure:"marker"`
	Command []string `mapstructure:"command"`
}

// SiteConfig describes one appliance to back up. Credentials are opaque to
// the reconciliation core.
type SiteConfig struct {
	Name     string `mapstructure:"name"`
	Endpoint string `mapstructure:"endpoint"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	// Home overrides <output_root>/<site name> as the root of this site's tree.
	Home    string `mapstructure:"home"`
	SSHUser string `mapstructure:"ssh_user"`
}

type ScheduleConfig struct {
	WindowStart string `mapstructure:"window_start"` // HH:MM
	WindowEnd   string `mapstructure:"window_end"`
	Timezone    string `mapstructure:"timezone"`
}

type MirrorConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Endpoint      string `mapstructure:"endpoint"`
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	UseSSL        bool   `mapstructure:"use_ssl"`
	Prefix        string `mapstructure:"prefix"`
	EncryptionKey string `mapstructure:"encryption_key"`
	Concurrency   int    `mapstructure:"concurrency"`
}

type ReportConfig struct {
	Path string `mapstructure:"path"`
}

type NotificationsConfig struct {
	Webhooks   []WebhookConfig  `mapstructure:"webhooks"`
	Mattermost []MattermostHook `mapstructure:"mattermost"`
}

type WebhookConfig struct {
	Name    string            `mapstructure:"name"`
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

type MattermostHook struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}
