// Package config loads the settings shared by the mailbox executables from
// defaults, an optional YAML file, MAILBOX_* environment variables and
// command-line flags, in increasing order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/richinsley/mailbox"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. MAILBOX_LOG_LEVEL
// for log.level.
const EnvPrefix = "MAILBOX"

// AutoSession asks the producer to generate a fresh session id.
const AutoSession = "auto"

// Config is the complete configuration of one producer or consumer run.
type Config struct {
	// Session scopes the IPC names; empty selects the historical fixed names.
	Session    string        `mapstructure:"session"`
	Codec      string        `mapstructure:"codec"`
	LinePolicy string        `mapstructure:"line_policy"`
	Timeout    time.Duration `mapstructure:"timeout"`
	AwaitAck   bool          `mapstructure:"await_ack"`
	Queue      QueueConfig   `mapstructure:"queue"`
	Log        LogConfig     `mapstructure:"log"`
}

// QueueConfig controls the kernel message queue.
type QueueConfig struct {
	MaxMessages int `mapstructure:"max_messages"`
}

// LogConfig controls diagnostic output.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Default returns a Config with the default values.
func Default() *Config {
	return &Config{
		Session:    "",
		Codec:      mailbox.TextCodec{}.Name(),
		LinePolicy: mailbox.PolicySplit.String(),
		Timeout:    0,
		AwaitAck:   true,
		Queue: QueueConfig{
			MaxMessages: mailbox.DefaultQueueDepth,
		},
		Log: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}

// SetDefaults registers every key with its default on v so that environment
// variables are seen by Unmarshal.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("session", defaults.Session)
	v.SetDefault("codec", defaults.Codec)
	v.SetDefault("line_policy", defaults.LinePolicy)
	v.SetDefault("timeout", defaults.Timeout)
	v.SetDefault("await_ack", defaults.AwaitAck)
	v.SetDefault("queue.max_messages", defaults.Queue.MaxMessages)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.development", defaults.Log.Development)
}

// New returns a viper instance with defaults and environment binding set up.
// A non-empty file is read as the config file and must exist.
func New(file string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	// log.level is read from MAILBOX_LOG_LEVEL
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}
	return v, nil
}

// Load reads the configuration from v into a Config struct and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errs
	}
	return &cfg, nil
}

// Names returns the IPC names the configured session selects.
func (c *Config) Names() (mailbox.Names, error) {
	if c.Session == "" {
		return mailbox.DefaultNames(), nil
	}
	return mailbox.SessionNames(c.Session)
}

// SessionOptions builds the options OpenSession needs for one side of a run.
func (c *Config) SessionOptions(transport mailbox.Transport, role mailbox.Role) (mailbox.Options, error) {
	names, err := c.Names()
	if err != nil {
		return mailbox.Options{}, err
	}
	codec, err := mailbox.ParseCodec(c.Codec)
	if err != nil {
		return mailbox.Options{}, err
	}
	return mailbox.Options{
		Transport:  transport,
		Role:       role,
		Names:      names,
		Codec:      codec,
		QueueDepth: c.Queue.MaxMessages,
		Timeout:    c.Timeout,
	}, nil
}

// Policy returns the parsed line policy.
func (c *Config) Policy() mailbox.LinePolicy {
	p, err := mailbox.ParseLinePolicy(c.LinePolicy)
	if err != nil {
		return mailbox.PolicySplit
	}
	return p
}
