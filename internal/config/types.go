package config

import "time"

// Sync controls background uploads of the open session.
type Sync struct {
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

// UI controls the terminal editor.
type UI struct {
	Tick     time.Duration `yaml:"tick"`
	ToastTTL time.Duration `yaml:"toast_ttl"`
}

// Decoder controls instruction decoding.
type Decoder struct {
	CacheSize int `yaml:"cache_size"`
}

// Log controls log level and destination.
type Log struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
}

// Server configures `rain serve`.
type Server struct {
	Addr      string `yaml:"addr"`
	TokenHash string `yaml:"token_hash,omitempty"`
}

// Config represents the rain config.yaml file.
type Config struct {
	ServerURL string  `yaml:"server_url"`
	Token     string  `yaml:"token,omitempty"`
	Sync      Sync    `yaml:"sync"`
	UI        UI      `yaml:"ui"`
	Decoder   Decoder `yaml:"decoder"`
	Log       Log     `yaml:"log"`
	Server    Server  `yaml:"server"`
}
