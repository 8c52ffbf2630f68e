// core/genesis/spec_test.go
package genesis

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"learnchain/crypto"
)

func testAddress(fill byte) string {
	addr, err := crypto.NewAddress(crypto.LearnPrefix, bytes.Repeat([]byte{fill}, 20))
	if err != nil {
		panic(err)
	}
	return addr.String()
}

func TestLoadSpecAndResolve(t *testing.T) {
	spec := Spec{
		ChainID:        "learn-test",
		Owner:          testAddress(0x01),
		EmergencyAdmin: "0x0202020202020202020202020202020202020202",
		PlatformFeeBps: 250,
		Alloc: map[string]string{
			testAddress(0x04): "2000",
			testAddress(0x03): "1000",
		},
	}
	raw, err := json.Marshal(spec)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "genesis.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	loaded, err := LoadSpec(path)
	require.NoError(t, err)
	resolved, err := loaded.Resolve()
	require.NoError(t, err)

	require.Equal(t, "learn-test", resolved.ChainID)
	require.Equal(t, byte(0x01), resolved.Owner[0])
	require.Equal(t, resolved.Owner, resolved.CertificateOwner)
	require.Equal(t, byte(0x02), resolved.EmergencyAdmin[19])
	require.Len(t, resolved.Alloc, 2)
	require.Equal(t, byte(0x03), resolved.Alloc[0].Address[0])
	require.Equal(t, "1000", resolved.Alloc[0].Amount.String())
}

func TestLoadSpecRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"owner":"x","validators":[]}`), 0o600))
	_, err := LoadSpec(path)
	require.Error(t, err)
}

func TestResolveValidation(t *testing.T) {
	_, err := (&Spec{}).Resolve()
	require.ErrorContains(t, err, "owner")

	_, err = (&Spec{Owner: testAddress(1), PlatformFeeBps: 1_001}).Resolve()
	require.ErrorContains(t, err, "platformFeeBps")

	_, err = (&Spec{Owner: "lrn1qqqq"}).Resolve()
	require.ErrorIs(t, err, crypto.ErrInvalidAddress)

	_, err = (&Spec{Owner: testAddress(1), Alloc: map[string]string{testAddress(2): "-5"}}).Resolve()
	require.ErrorContains(t, err, "negative")

	resolved, err := (&Spec{Owner: testAddress(1)}).Resolve()
	require.NoError(t, err)
	require.Equal(t, DefaultChainID, resolved.ChainID)
}
