// core/genesis/spec.go
package genesis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"sort"
	"strings"

	"learnchain/crypto"
	"learnchain/native/academy"
)

// DefaultChainID is used when a spec leaves the chain identifier empty.
const DefaultChainID = "learn-local"

// Spec is the operator-facing genesis description. Addresses may be bech32
// (lrn1...) or 0x-prefixed hex; amounts are base-10 strings.
type Spec struct {
	ChainID          string            `json:"chainId" toml:"ChainID"`
	Owner            string            `json:"owner" toml:"Owner"`
	CertificateOwner string            `json:"certificateOwner" toml:"CertificateOwner"`
	EmergencyAdmin   string            `json:"emergencyAdmin,omitempty" toml:"EmergencyAdmin"`
	PlatformFeeBps   uint64            `json:"platformFeeBps" toml:"PlatformFeeBps"`
	Alloc            map[string]string `json:"alloc,omitempty" toml:"Alloc"`
}

// Allocation credits Amount to Address at genesis.
type Allocation struct {
	Address [20]byte
	Amount  *big.Int
}

// Resolved is a validated spec with parsed addresses and amounts.
type Resolved struct {
	ChainID          string
	Owner            [20]byte
	CertificateOwner [20]byte
	EmergencyAdmin   [20]byte
	PlatformFeeBps   uint64
	Alloc            []Allocation
}

// LoadSpec reads a JSON genesis file.
func LoadSpec(path string) (*Spec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	var spec Spec
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode genesis spec %q: %w", path, err)
	}
	return &spec, nil
}

// Resolve validates the spec and parses every address and amount.
// Allocations are returned sorted by address so genesis is deterministic.
func (s *Spec) Resolve() (*Resolved, error) {
	if s == nil {
		return nil, errors.New("genesis spec must not be nil")
	}
	out := &Resolved{
		ChainID:        strings.TrimSpace(s.ChainID),
		PlatformFeeBps: s.PlatformFeeBps,
	}
	if out.ChainID == "" {
		out.ChainID = DefaultChainID
	}
	if s.PlatformFeeBps > academy.MaxPlatformFeeBps {
		return nil, fmt.Errorf("platformFeeBps must be <= %d", academy.MaxPlatformFeeBps)
	}

	var err error
	if strings.TrimSpace(s.Owner) == "" {
		return nil, errors.New("owner must be provided")
	}
	if out.Owner, err = crypto.ParseAddress(s.Owner); err != nil {
		return nil, fmt.Errorf("owner: %w", err)
	}
	out.CertificateOwner = out.Owner
	if strings.TrimSpace(s.CertificateOwner) != "" {
		if out.CertificateOwner, err = crypto.ParseAddress(s.CertificateOwner); err != nil {
			return nil, fmt.Errorf("certificateOwner: %w", err)
		}
	}
	if strings.TrimSpace(s.EmergencyAdmin) != "" {
		if out.EmergencyAdmin, err = crypto.ParseAddress(s.EmergencyAdmin); err != nil {
			return nil, fmt.Errorf("emergencyAdmin: %w", err)
		}
	}

	seen := make(map[[20]byte]struct{}, len(s.Alloc))
	for addrStr, amountStr := range s.Alloc {
		addr, err := crypto.ParseAddress(addrStr)
		if err != nil {
			return nil, fmt.Errorf("alloc %q: %w", addrStr, err)
		}
		if _, dup := seen[addr]; dup {
			return nil, fmt.Errorf("alloc %q: duplicate account", addrStr)
		}
		seen[addr] = struct{}{}
		amount, err := parseAmountString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("alloc %q: %w", addrStr, err)
		}
		out.Alloc = append(out.Alloc, Allocation{Address: addr, Amount: amount})
	}
	sort.Slice(out.Alloc, func(i, j int) bool {
		return bytes.Compare(out.Alloc[i].Address[:], out.Alloc[j].Address[:]) < 0
	})
	return out, nil
}

func parseAmountString(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return amount, nil
}
