package config

import (
	"fmt"
	"net"
	"strings"

	"learnchain/crypto"
	"learnchain/native/academy"
)

// ValidateConfig rejects configurations the node cannot start with.
func ValidateConfig(c *Config) error {
	if c == nil {
		return fmt.Errorf("config: nil")
	}
	if strings.TrimSpace(c.RPCAddress) == "" {
		return fmt.Errorf("RPCAddress must be set")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("DataDir must be set")
	}
	if c.Genesis.PlatformFeeBps > academy.MaxPlatformFeeBps {
		return fmt.Errorf("genesis: PlatformFeeBps %d exceeds %d", c.Genesis.PlatformFeeBps, academy.MaxPlatformFeeBps)
	}
	if strings.TrimSpace(c.Genesis.Owner) == "" {
		return fmt.Errorf("genesis: Owner must be set")
	}
	for field, value := range map[string]string{
		"Owner":            c.Genesis.Owner,
		"CertificateOwner": c.Genesis.CertificateOwner,
		"EmergencyAdmin":   c.Genesis.EmergencyAdmin,
	} {
		if strings.TrimSpace(value) == "" {
			continue
		}
		if _, err := crypto.DecodeAddress(value); err != nil {
			return fmt.Errorf("genesis: %s: %w", field, err)
		}
	}
	if c.RPC.RequestsPerMinute <= 0 {
		return fmt.Errorf("rpc: RequestsPerMinute must be positive")
	}
	if c.RPC.Burst <= 0 {
		return fmt.Errorf("rpc: Burst must be positive")
	}
	for _, proxy := range c.RPC.TrustedProxies {
		proxy = strings.TrimSpace(proxy)
		if _, _, err := net.ParseCIDR(proxy); err == nil {
			continue
		}
		if net.ParseIP(proxy) == nil {
			return fmt.Errorf("rpc: TrustedProxies: invalid address %q", proxy)
		}
	}
	if c.Faucet && strings.TrimSpace(c.RPC.OperatorSecret) == "" {
		return fmt.Errorf("rpc: OperatorSecret required when Faucet is enabled")
	}
	if c.Quota.MaxValuePerEpoch > 0 && c.Quota.EpochSeconds == 0 {
		return fmt.Errorf("quota: EpochSeconds required with MaxValuePerEpoch")
	}
	return nil
}
