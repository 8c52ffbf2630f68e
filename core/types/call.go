package types

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

var (
	errUnsigned      = errors.New("call: missing signature")
	errEmptyMethod   = errors.New("call: method required")
	errNegativeValue = errors.New("call: value must not be negative")
)

// Call is a signed request to invoke a contract entry point. The caller is
// never supplied explicitly; it is recovered from the signature.
type Call struct {
	ChainID string          `json:"chainId"`
	Nonce   uint64          `json:"nonce"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	Value   *big.Int        `json:"value,omitempty"`

	R *big.Int `json:"r,omitempty"`
	S *big.Int `json:"s,omitempty"`
	V *big.Int `json:"v,omitempty"`

	from []byte
}

type callSigningPayload struct {
	ChainID string
	Nonce   uint64
	Method  string
	Params  []byte
	Value   *big.Int
}

// Validate performs stateless checks on the envelope.
func (c *Call) Validate() error {
	if strings.TrimSpace(c.Method) == "" {
		return errEmptyMethod
	}
	if c.Value != nil && c.Value.Sign() < 0 {
		return errNegativeValue
	}
	return nil
}

// AttachedValue returns the value carried by the call, never nil.
func (c *Call) AttachedValue() *big.Int {
	if c == nil || c.Value == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(c.Value)
}

// Hash returns the keccak256 digest that is signed by the caller.
func (c *Call) Hash() ([]byte, error) {
	payload := callSigningPayload{
		ChainID: c.ChainID,
		Nonce:   c.Nonce,
		Method:  c.Method,
		Params:  []byte(c.Params),
		Value:   c.AttachedValue(),
	}
	encoded, err := rlp.EncodeToBytes(&payload)
	if err != nil {
		return nil, err
	}
	return crypto.Keccak256(encoded), nil
}

// Sign signs the call with the supplied key.
func (c *Call) Sign(privKey *ecdsa.PrivateKey) error {
	hash, err := c.Hash()
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(hash, privKey)
	if err != nil {
		return err
	}
	c.R = new(big.Int).SetBytes(sig[:32])
	c.S = new(big.Int).SetBytes(sig[32:64])
	c.V = new(big.Int).SetBytes([]byte{sig[64] + 27})
	c.from = nil
	return nil
}

// From recovers the 20-byte caller address from the signature.
func (c *Call) From() ([20]byte, error) {
	var addr [20]byte
	if c.from != nil {
		copy(addr[:], c.from)
		return addr, nil
	}
	if c.R == nil || c.S == nil || c.V == nil {
		return addr, errUnsigned
	}
	hash, err := c.Hash()
	if err != nil {
		return addr, err
	}
	rBytes, sBytes := c.R.Bytes(), c.S.Bytes()
	if len(rBytes) > 32 || len(sBytes) > 32 || c.V.Uint64() < 27 {
		return addr, errors.New("call: malformed signature")
	}
	sig := make([]byte, 65)
	copy(sig[32-len(rBytes):32], rBytes)
	copy(sig[64-len(sBytes):64], sBytes)
	sig[64] = byte(c.V.Uint64() - 27)
	pubKey, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return addr, err
	}
	c.from = crypto.PubkeyToAddress(*pubKey).Bytes()
	copy(addr[:], c.from)
	return addr, nil
}
