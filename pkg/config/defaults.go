package config

const (
	defaultClientTarget = "http://localhost:8000"
	defaultLang         = "Korean"
	defaultCount        = 5
	defaultFormat       = "markdown"
	defaultMode         = "stream"
	defaultTimeout      = "30s"
	defaultPollInterval = "2s"

	defaultStorageDriver = "sqlite"
	defaultAPIListen     = ":8082"

	defaultEventStreamProvider = "none"
	defaultEventStreamTopic    = "dossier.sessions"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Client: ClientConfig{
			Target:       defaultClientTarget,
			Lang:         defaultLang,
			Count:        defaultCount,
			Format:       defaultFormat,
			Mode:         defaultMode,
			Timeout:      defaultTimeout,
			PollInterval: defaultPollInterval,
		},
		Storage: StorageConfig{
			Driver: defaultStorageDriver,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
			Topic:    defaultEventStreamTopic,
		},
	}
}
