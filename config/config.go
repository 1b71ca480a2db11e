// Package config loads the client-side settings a ServerConnection needs:
// which server to dial, who we announce ourselves as, and the timeout/frame
// caps that drive serverconn's timers and codec.
package config

import (
	"os"

	"github.com/zt8989/ed2k-serverconn/ed2k"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ServerHostname string `yaml:"server_hostname"`
	ServerPort     uint16 `yaml:"server_port"`
	ClientHash     string `yaml:"client_hash"`
	ClientName     string `yaml:"client_name"`
	ListenPort     uint16 `yaml:"listen_port"`

	PeerConnectTimeoutSec     int `yaml:"peer_connect_timeout"`
	ServerTimeoutSec          int `yaml:"server_timeout"`
	ServerKeepAliveTimeoutSec int `yaml:"server_keep_alive_timeout"`

	MaxInflatedFrameBytes uint32 `yaml:"max_inflated_frame_bytes"`

	ServerFlags  uint32 `yaml:"server_flags"`
	EmuleVersion uint32 `yaml:"emule_version"`

	ObfuscateHandshake bool `yaml:"obfuscate_handshake"`

	LogLevel string `yaml:"log_level"`

	MetricsAddr string `yaml:"metrics_addr"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	setDefaults(&cfg)
	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.ServerPort == 0 {
		cfg.ServerPort = 4661
	}
	if cfg.ListenPort == 0 {
		cfg.ListenPort = 4662
	}
	if cfg.PeerConnectTimeoutSec <= 0 {
		cfg.PeerConnectTimeoutSec = 10
	}
	if cfg.ServerTimeoutSec <= 0 {
		cfg.ServerTimeoutSec = 60
	}
	if cfg.ServerKeepAliveTimeoutSec <= 0 {
		cfg.ServerKeepAliveTimeoutSec = 30
	}
	if cfg.MaxInflatedFrameBytes == 0 {
		cfg.MaxInflatedFrameBytes = 4 << 20
	}
	if cfg.ClientName == "" {
		cfg.ClientName = "ed2k-serverconn"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

// Hash parses ClientHash, returning ed2k.EmptyHash if it was left blank in
// the file; no random identity is generated.
func (c Config) Hash() (ed2k.Hash, error) {
	if c.ClientHash == "" {
		return ed2k.EmptyHash, nil
	}
	return ed2k.ParseHash(c.ClientHash)
}
