package config

const (
	defaultConfigPath    = "~/.config/mp4edit/config.toml"
	defaultLogFormat     = "auto"
	defaultLogLevel      = "info"
	defaultBufferSize    = 128 * 1024
	defaultBufferHistory = 4
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Read: Read{
			BufferSize:    defaultBufferSize,
			BufferHistory: defaultBufferHistory,
		},
		Output: Output{
			Overwrite: true,
		},
	}
}
