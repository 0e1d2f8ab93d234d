package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent dossier configuration stored as config.toml
// in the .dossier/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Client      ClientConfig      `toml:"client"`
	Storage     StorageConfig     `toml:"storage"`
	API         APIConfig         `toml:"api"`
	EventStream EventStreamConfig `toml:"eventstream"`
}

// ClientConfig holds settings for talking to the research server and the
// defaults applied to every research request.
type ClientConfig struct {
	Target       string `toml:"target,omitempty"`
	Lang         string `toml:"lang,omitempty"`
	Count        uint   `toml:"count,omitempty"`
	Format       string `toml:"format,omitempty"`
	Mode         string `toml:"mode,omitempty"`
	Timeout      string `toml:"timeout,omitempty"`
	PollInterval string `toml:"poll_interval,omitempty"`
}

// StorageConfig holds session archive settings.
type StorageConfig struct {
	Driver      string `toml:"driver,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// APIConfig holds archive API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// EventStreamConfig holds settings for announcing finished sessions.
type EventStreamConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// BrokerList splits the comma-separated broker list.
func (e EventStreamConfig) BrokerList() []string {
	return SplitList(e.Brokers)
}

// SplitList splits a comma-separated value, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func durationSetter(key string, field func(c *Config) *string) func(c *Config, v string) error {
	return func(c *Config, v string) error {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		*field(c) = v
		return nil
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"client.target": {
		get: func(c *Config) string { return c.Client.Target },
		set: func(c *Config, v string) error { c.Client.Target = v; return nil },
	},
	"client.lang": {
		get: func(c *Config) string { return c.Client.Lang },
		set: func(c *Config, v string) error { c.Client.Lang = v; return nil },
	},
	"client.count": {
		get: func(c *Config) string {
			if c.Client.Count == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Client.Count), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for client.count: %w", err)
			}
			c.Client.Count = uint(n)
			return nil
		},
	},
	"client.format": {
		get: func(c *Config) string { return c.Client.Format },
		set: func(c *Config, v string) error { c.Client.Format = v; return nil },
	},
	"client.mode": {
		get: func(c *Config) string { return c.Client.Mode },
		set: func(c *Config, v string) error {
			if v != "stream" && v != "async" {
				return fmt.Errorf("invalid value for client.mode: %q (want stream or async)", v)
			}
			c.Client.Mode = v
			return nil
		},
	},
	"client.timeout": {
		get: func(c *Config) string { return c.Client.Timeout },
		set: durationSetter("client.timeout", func(c *Config) *string { return &c.Client.Timeout }),
	},
	"client.poll_interval": {
		get: func(c *Config) string { return c.Client.PollInterval },
		set: durationSetter("client.poll_interval", func(c *Config) *string { return &c.Client.PollInterval }),
	},
	"storage.driver": {
		get: func(c *Config) string { return c.Storage.Driver },
		set: func(c *Config, v string) error { c.Storage.Driver = v; return nil },
	},
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.postgres_dsn": {
		get: func(c *Config) string { return c.Storage.PostgresDSN },
		set: func(c *Config, v string) error { c.Storage.PostgresDSN = v; return nil },
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"eventstream.provider": {
		get: func(c *Config) string { return c.EventStream.Provider },
		set: func(c *Config, v string) error { c.EventStream.Provider = v; return nil },
	},
	"eventstream.brokers": {
		get: func(c *Config) string { return c.EventStream.Brokers },
		set: func(c *Config, v string) error { c.EventStream.Brokers = v; return nil },
	},
	"eventstream.topic": {
		get: func(c *Config) string { return c.EventStream.Topic },
		set: func(c *Config, v string) error { c.EventStream.Topic = v; return nil },
	},
}
