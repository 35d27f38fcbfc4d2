// Package config loads node configuration with Viper, so a node can be
// configured from a file or environment variables without the caller
// caring which.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// PeerConfig is one entry of the peers list.
type PeerConfig struct {
	ID      string `mapstructure:"id"`
	Address string `mapstructure:"address"`
}

// Config is a single node's configuration.
type Config struct {
	NodeID  string       `mapstructure:"node_id"`
	Address string       `mapstructure:"address"`
	DataDir string       `mapstructure:"data_dir"`
	Peers   []PeerConfig `mapstructure:"peers"`

	Replication int `mapstructure:"replication"` // N
	ReadQuorum  int `mapstructure:"read_quorum"`  // R
	WriteQuorum int `mapstructure:"write_quorum"` // W

	ReplicationInterval string `mapstructure:"replication_interval"`
	LogLevel            string `mapstructure:"log_level"`
	MetricsNamespace    string `mapstructure:"metrics_namespace"`
}

// Load reads configuration from path (if it exists), then KNOWLEDGE_*
// environment variables, applying defaults for anything left unset.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("KNOWLEDGE")
	v.AutomaticEnv()

	v.SetDefault("node_id", "node-1")
	v.SetDefault("address", ":8080")
	v.SetDefault("data_dir", "./data")
	v.SetDefault("replication", 1)
	v.SetDefault("read_quorum", 1)
	v.SetDefault("write_quorum", 1)
	v.SetDefault("replication_interval", "2s")
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_namespace", "knowledgebase")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.ReadQuorum+cfg.WriteQuorum <= cfg.Replication {
		return nil, fmt.Errorf("invalid quorum settings: R+W must be > N (R=%d, W=%d, N=%d)",
			cfg.ReadQuorum, cfg.WriteQuorum, cfg.Replication)
	}
	return &cfg, nil
}
