package config

import (
	"fmt"
	"time"

	"learnchain/core/genesis"
	"learnchain/native/common"
)

// CallQuota converts the configured limits into the runtime quota enforced by
// the node.
func (c *Config) CallQuota() common.Quota {
	return common.Quota{
		MaxCallsPerMin:   c.Quota.MaxCallsPerMin,
		MaxValuePerEpoch: c.Quota.MaxValuePerEpoch,
		EpochSeconds:     c.Quota.EpochSeconds,
	}
}

// ResolveGenesis parses the configured genesis section. The chain id always
// follows NetworkName.
func (c *Config) ResolveGenesis() (*genesis.Resolved, error) {
	spec := c.Genesis
	spec.ChainID = c.NetworkName
	resolved, err := spec.Resolve()
	if err != nil {
		return nil, fmt.Errorf("invalid Genesis: %w", err)
	}
	return resolved, nil
}

// Timeouts returns the RPC server timeouts, defaulting zero values.
func (r RPC) Timeouts() (read, write, idle time.Duration) {
	read, write, idle = 15*time.Second, 15*time.Second, 60*time.Second
	if r.ReadTimeout > 0 {
		read = time.Duration(r.ReadTimeout) * time.Second
	}
	if r.WriteTimeout > 0 {
		write = time.Duration(r.WriteTimeout) * time.Second
	}
	if r.IdleTimeout > 0 {
		idle = time.Duration(r.IdleTimeout) * time.Second
	}
	return read, write, idle
}
