package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"learnchain/crypto"
)

const (
	EnvOperatorSecret     = "LEARN_RPC_OPERATOR_SECRET"
	EnvKeystorePassphrase = "LEARN_KEYSTORE_PASSPHRASE"

	defaultNetworkName = "learn-local"
)

type loadOptions struct {
	envFiles   []string
	passphrase *string
}

// LoadOption customises Load.
type LoadOption func(*loadOptions)

// WithEnvFile reads overrides from the supplied dotenv file instead of ./.env.
func WithEnvFile(path string) LoadOption {
	return func(o *loadOptions) { o.envFiles = append(o.envFiles, path) }
}

// WithKeystorePassphrase sets the passphrase used for the owner keystore
// generated alongside a default config.
func WithKeystorePassphrase(passphrase string) LoadOption {
	return func(o *loadOptions) { o.passphrase = &passphrase }
}

// Load loads the configuration from the given path, writing a default file
// (and an owner keystore next to it) when none exists.
func Load(path string, opts ...LoadOption) (*Config, error) {
	options := loadOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if err := loadEnv(options.envFiles); err != nil {
		return nil, err
	}

	var cfg *Config
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		passphrase := os.Getenv(EnvKeystorePassphrase)
		if options.passphrase != nil {
			passphrase = *options.passphrase
		}
		if cfg, err = createDefault(path, passphrase); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	} else {
		cfg = &Config{}
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config file %s: unknown key %q", path, undecoded[0].String())
		}
	}

	applyDefaults(cfg)
	applyEnv(cfg)
	if options.passphrase != nil {
		cfg.KeystorePassphrase = *options.passphrase
	}
	return cfg, nil
}

func loadEnv(files []string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = defaultNetworkName
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = "dev"
	}
	if cfg.RPC.RequestsPerMinute == 0 {
		cfg.RPC.RequestsPerMinute = 600
	}
	if cfg.RPC.Burst == 0 {
		cfg.RPC.Burst = 60
	}
	if strings.TrimSpace(cfg.RPC.OperatorIssuer) == "" {
		cfg.RPC.OperatorIssuer = "learnd"
	}
	if cfg.Logging.MaxSizeMB == 0 {
		cfg.Logging.MaxSizeMB = 100
	}
}

func applyEnv(cfg *Config) {
	if secret := strings.TrimSpace(os.Getenv(EnvOperatorSecret)); secret != "" {
		cfg.RPC.OperatorSecret = secret
	}
	if passphrase, ok := os.LookupEnv(EnvKeystorePassphrase); ok {
		cfg.KeystorePassphrase = passphrase
	}
}

// createDefault creates and saves a default configuration file whose genesis
// owner is a freshly generated key.
func createDefault(path, passphrase string) (*Config, error) {
	key, _, err := crypto.LoadOrCreateKeystore(OwnerKeystorePath(path), passphrase)
	if err != nil {
		return nil, err
	}
	owner := key.PubKey().Address().String()

	cfg := &Config{
		RPCAddress:  "127.0.0.1:8545",
		DataDir:     "./learn-data",
		NetworkName: defaultNetworkName,
		Environment: "dev",
		IndexerDSN:  "./learn-data/indexer.db",
		Faucet:      false,
		RPC: RPC{
			RequestsPerMinute: 600,
			Burst:             60,
			OperatorIssuer:    "learnd",
		},
		Quota: Quota{MaxCallsPerMin: 120},
		Logging: Logging{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
	cfg.Genesis.Owner = owner
	cfg.Genesis.CertificateOwner = owner
	cfg.Genesis.PlatformFeeBps = 250

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// OwnerKeystorePath is where a default config stores its genesis owner key.
func OwnerKeystorePath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), "owner.keystore")
}
