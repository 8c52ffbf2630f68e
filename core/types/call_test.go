package types

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestCallSignAndRecover(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	expected := crypto.PubkeyToAddress(key.PublicKey)

	call := &Call{
		ChainID: "learn-local",
		Nonce:   3,
		Method:  "academy.enrollInCourse",
		Params:  json.RawMessage(`{"courseId":1}`),
		Value:   big.NewInt(1_000_000),
	}
	require.NoError(t, call.Validate())
	require.NoError(t, call.Sign(key))

	from, err := call.From()
	require.NoError(t, err)
	require.Equal(t, [20]byte(expected), from)
}

func TestCallTamperChangesSigner(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	expected := crypto.PubkeyToAddress(key.PublicKey)

	call := &Call{ChainID: "learn-local", Method: "academy.authorWithdraw"}
	require.NoError(t, call.Sign(key))

	tampered := &Call{ChainID: call.ChainID, Method: call.Method, Nonce: 9, R: call.R, S: call.S, V: call.V}
	from, err := tampered.From()
	if err == nil {
		require.NotEqual(t, [20]byte(expected), from)
	}
}

func TestCallRejectsUnsignedAndInvalid(t *testing.T) {
	call := &Call{Method: "academy.pause"}
	_, err := call.From()
	require.ErrorIs(t, err, errUnsigned)

	require.ErrorIs(t, (&Call{}).Validate(), errEmptyMethod)
	require.ErrorIs(t, (&Call{Method: "x", Value: big.NewInt(-1)}).Validate(), errNegativeValue)
}
