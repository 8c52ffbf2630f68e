package certificate

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"learnchain/core/state"
	"learnchain/storage"
)

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

var (
	issuerOwner = newTestAddress(0x01)
	platform    = newTestAddress(0x02)
	student     = newTestAddress(0x03)
	stranger    = newTestAddress(0x04)
)

func newTestEngine(t *testing.T) (*Engine, *state.Manager) {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())
	engine := NewEngine(newTestAddress(0xCE))
	engine.SetState(manager)
	engine.SetEmitter(manager)
	engine.SetNowFunc(func() int64 { return 1_700_000_000 })
	require.NoError(t, engine.Init(issuerOwner))
	return engine, manager
}

func TestInitOnce(t *testing.T) {
	engine, _ := newTestEngine(t)
	require.ErrorIs(t, engine.Init(issuerOwner), ErrAlreadyInitialised)

	fresh := NewEngine(newTestAddress(0xCF))
	fresh.SetState(state.NewManager(storage.NewMemDB()))
	require.ErrorIs(t, fresh.Init([20]byte{}), ErrZeroAddress)
	require.False(t, fresh.IsPlatformSet())
}

func TestSetPlatformAuthorisation(t *testing.T) {
	engine, manager := newTestEngine(t)
	require.False(t, engine.IsPlatformSet())
	require.False(t, engine.IsAuthorized(platform))

	require.ErrorIs(t, engine.SetPlatform(stranger, platform), ErrUnauthorized)
	require.ErrorIs(t, engine.SetPlatform(issuerOwner, [20]byte{}), ErrZeroAddress)
	require.NoError(t, engine.SetPlatform(issuerOwner, platform))

	require.True(t, engine.IsPlatformSet())
	require.True(t, engine.IsAuthorized(platform))
	require.False(t, engine.IsAuthorized(stranger))

	pending := manager.PendingEvents()
	require.Len(t, pending, 1)
	require.Equal(t, EventTypePlatformSet, pending[0].Type)
}

func TestMint(t *testing.T) {
	engine, _ := newTestEngine(t)
	require.NoError(t, engine.SetPlatform(issuerOwner, platform))

	_, err := engine.Mint(stranger, student, 1, "ipfs://cert")
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = engine.Mint(platform, [20]byte{}, 1, "ipfs://cert")
	require.ErrorIs(t, err, ErrZeroAddress)
	_, err = engine.Mint(platform, student, 1, "  ")
	require.ErrorIs(t, err, ErrEmptyURI)

	id, err := engine.Mint(platform, student, 1, "ipfs://cert-1")
	require.NoError(t, err)
	require.Equal(t, uint64(1), id)

	_, err = engine.Mint(platform, student, 1, "ipfs://again")
	require.ErrorIs(t, err, ErrAlreadyCertified)

	second, err := engine.Mint(platform, student, 2, "ipfs://cert-2")
	require.NoError(t, err)
	require.Equal(t, uint64(2), second)

	owner, err := engine.OwnerOf(1)
	require.NoError(t, err)
	require.Equal(t, student, owner)

	cert, err := engine.CertificateFor(student, 2)
	require.NoError(t, err)
	require.Equal(t, "ipfs://cert-2", cert.URI)
	require.Equal(t, uint64(1_700_000_000), cert.IssuedAt)
	require.Equal(t, platform, cert.Issuer)

	held, err := engine.CertificatesOf(student)
	require.NoError(t, err)
	require.Len(t, held, 2)
	count, err := engine.BalanceOf(student)
	require.NoError(t, err)
	require.Equal(t, uint64(2), count)

	_, err = engine.Certificate(99)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMintingPause(t *testing.T) {
	engine, _ := newTestEngine(t)
	require.NoError(t, engine.SetPlatform(issuerOwner, platform))

	require.ErrorIs(t, engine.PauseMinting(stranger), ErrUnauthorized)
	require.NoError(t, engine.PauseMinting(issuerOwner))
	_, err := engine.Mint(platform, student, 1, "ipfs://cert")
	require.ErrorIs(t, err, ErrMintingPaused)

	require.NoError(t, engine.ResumeMinting(issuerOwner))
	id, err := engine.Mint(platform, student, 1, "ipfs://cert")
	require.NoError(t, err)
	require.Equal(t, uint64(1), id)
}
