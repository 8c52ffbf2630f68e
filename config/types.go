package config

import "learnchain/core/genesis"

// RPC configures the JSON-RPC server.
type RPC struct {
	// RequestsPerMinute bounds each client IP. Burst allows short spikes.
	RequestsPerMinute int `toml:"RequestsPerMinute"`
	Burst             int `toml:"Burst"`
	// OperatorSecret signs and verifies operator bearer tokens (HS256).
	OperatorSecret string `toml:"OperatorSecret"`
	OperatorIssuer string `toml:"OperatorIssuer"`
	ReadTimeout    int    `toml:"ReadTimeout"`
	WriteTimeout   int    `toml:"WriteTimeout"`
	IdleTimeout    int    `toml:"IdleTimeout"`
	// TrustedProxies are peer IPs or CIDRs allowed to set X-Forwarded-For.
	TrustedProxies []string `toml:"TrustedProxies"`
}

// Quota defines rate limits for signed calls on a per-address basis. Zero
// values disable the corresponding limit.
type Quota struct {
	MaxCallsPerMin   uint32 `toml:"MaxCallsPerMin"`
	MaxValuePerEpoch uint64 `toml:"MaxValuePerEpoch"`
	EpochSeconds     uint32 `toml:"EpochSeconds"`
}

// Telemetry controls OpenTelemetry export.
type Telemetry struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	Traces   bool   `toml:"Traces"`
	Metrics  bool   `toml:"Metrics"`
}

// Logging controls file rotation in addition to stdout.
type Logging struct {
	Level      string `toml:"Level"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
}

// Config is the learnd node configuration.
type Config struct {
	RPCAddress  string `toml:"RPCAddress"`
	DataDir     string `toml:"DataDir"`
	NetworkName string `toml:"NetworkName"`
	Environment string `toml:"Environment"`
	LogFile     string `toml:"LogFile"`
	// IndexerDSN selects the event indexer store: a sqlite file path, a
	// postgres:// URL, or empty to disable indexing.
	IndexerDSN string `toml:"IndexerDSN"`
	// Faucet enables node_faucet. Never enable on shared networks.
	Faucet bool `toml:"Faucet"`

	Genesis   genesis.Spec `toml:"Genesis"`
	RPC       RPC          `toml:"RPC"`
	Quota     Quota        `toml:"Quota"`
	Telemetry Telemetry    `toml:"Telemetry"`
	Logging   Logging      `toml:"Logging"`

	// KeystorePassphrase is never persisted; it is populated from the
	// environment when present.
	KeystorePassphrase string `toml:"-"`
}
