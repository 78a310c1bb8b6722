// Package config assembles the watcher configuration from an optional YAML
// file and environment variables. Environment values win over the file;
// both are optional and everything has a default, so a bare invocation
// still runs (with webhook delivery disabled when no URL is configured).
package config

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Instance InstanceConfig `koanf:"instance"`
	Webhook  WebhookConfig  `koanf:"webhook"`
	Login    LoginConfig    `koanf:"login"`
	Creds    CredsConfig    `koanf:"creds"`
	Observe  ObserveConfig  `koanf:"observe"`
	Procstat ProcstatConfig `koanf:"procstat"`
}

type InstanceConfig struct {
	// ID identifies this instance to the webhook listener and seeds the
	// signing secret together with EncryptionKey.
	ID            string `koanf:"id"`
	EncryptionKey string `koanf:"encryption_key"`
}

type WebhookConfig struct {
	// URL is the base URL of the webhook listener. Empty disables delivery.
	URL string `koanf:"url"`
}

type LoginConfig struct {
	Binary      string   `koanf:"binary"`
	Args        []string `koanf:"args"`
	InstallRoot string   `koanf:"install_root"` // subprocess working directory; empty inherits ours
	StateDir    string   `koanf:"state_dir"`
}

type CredsConfig struct {
	PollDelay         time.Duration `koanf:"poll_delay"`
	ConnectedAttempts int           `koanf:"connected_attempts"` // budget when the output claimed success
	FallbackAttempts  int           `koanf:"fallback_attempts"`  // budget when it did not
}

type ObserveConfig struct {
	Enabled           bool          `koanf:"enabled"`
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port"`
	AuthToken         string        `koanf:"auth_token"`
	BroadcastThrottle time.Duration `koanf:"broadcast_throttle"`
}

type ProcstatConfig struct {
	SampleInterval time.Duration `koanf:"sample_interval"`
}

// envKeys maps the bare environment variables the watcher consumes to their
// config paths. Anything else in the environment is ignored (and inherited
// untouched by the subprocess).
var envKeys = map[string]string{
	"INSTANCE_ID":    "instance.id",
	"ENCRYPTION_KEY": "instance.encryption_key",
	"WEBHOOK_URL":    "webhook.url",
	"STATE_DIR":      "login.state_dir",
	"INSTALL_ROOT":   "login.install_root",
	"OBSERVE_TOKEN":  "observe.auth_token",
}

// Default returns the built-in configuration: the production argv of the
// login subprocess, the standard install and state roots, and the polling
// budgets of the success reconciliation.
func Default() *Config {
	return &Config{
		Login: LoginConfig{
			Binary:      "channels",
			Args:        []string{"login", "--channel", "whatsapp", "--verbose"},
			InstallRoot: "/opt/channels",
			StateDir:    "/var/lib/channels",
		},
		Creds: CredsConfig{
			PollDelay:         2 * time.Second,
			ConnectedAttempts: 10,
			FallbackAttempts:  5,
		},
		Observe: ObserveConfig{
			Host:              "127.0.0.1",
			Port:              8377,
			BroadcastThrottle: 100 * time.Millisecond,
		},
		Procstat: ProcstatConfig{
			SampleInterval: 5 * time.Second,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is non-empty), then environment variables on top.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", func(s string) string {
		return envKeys[s] // unknown variables map to "" and are skipped
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
			Result:           cfg,
			TagName:          "koanf",
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}
