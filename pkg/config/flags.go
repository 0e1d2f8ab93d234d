package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --sqlite
// on "dossier research", "dossier history" and "dossier serve").
type Flag struct {
	// Name is the long flag name (e.g. "target").
	Name string

	// Shorthand is the one-letter short flag (e.g. "t"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "client.target").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagTarget       = "target"
	FlagLang         = "lang"
	FlagCount        = "count"
	FlagFormat       = "format"
	FlagMode         = "mode"
	FlagTimeout      = "timeout"
	FlagPollInterval = "poll-interval"

	FlagStorageDriver = "storage-driver"
	FlagSQLite        = "sqlite"
	FlagPostgresDSN   = "postgres-dsn"

	FlagAPIListen = "listen"

	FlagEventStreamProvider = "eventstream-provider"
	FlagEventStreamBrokers  = "eventstream-brokers"
	FlagEventStreamTopic    = "eventstream-topic"
)

// Registry holds every flag definition shared across commands.
var Registry = FlagSet{
	FlagTarget:       {Name: "target", Shorthand: "t", ViperKey: "client.target", Description: "Research server URL"},
	FlagLang:         {Name: "lang", Shorthand: "l", ViperKey: "client.lang", Description: "Output language of the report"},
	FlagCount:        {Name: "count", Shorthand: "n", ViperKey: "client.count", Description: "Target number of summaries (1-20)"},
	FlagFormat:       {Name: "format", ViperKey: "client.format", Description: "Output format requested from the server (markdown or json)"},
	FlagMode:         {Name: "mode", Shorthand: "m", ViperKey: "client.mode", Description: "Execution mode: stream (SSE) or async (polling)"},
	FlagTimeout:      {Name: "timeout", ViperKey: "client.timeout", Description: "Timeout for non-streaming requests"},
	FlagPollInterval: {Name: "poll-interval", ViperKey: "client.poll_interval", Description: "Polling interval in async mode"},

	FlagStorageDriver: {Name: "storage", ViperKey: "storage.driver", Description: "Archive driver: sqlite, postgres or inmemory"},
	FlagSQLite:        {Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path", Description: "Path to the SQLite archive (default: .dossier/dossier.db)"},
	FlagPostgresDSN:   {Name: "postgres-dsn", ViperKey: "storage.postgres_dsn", Description: "PostgreSQL connection string"},

	FlagAPIListen: {Name: "listen", ViperKey: "api.listen", Description: "Address for the archive API to listen on"},

	FlagEventStreamProvider: {Name: "eventstream", ViperKey: "eventstream.provider", Description: "Session event publisher: none or kafka"},
	FlagEventStreamBrokers:  {Name: "kafka-brokers", ViperKey: "eventstream.brokers", Description: "Comma-separated Kafka broker addresses"},
	FlagEventStreamTopic:    {Name: "kafka-topic", ViperKey: "eventstream.topic", Description: "Kafka topic for session events"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}
