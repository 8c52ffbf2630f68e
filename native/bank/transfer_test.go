package bank

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"learnchain/core/state"
	"learnchain/storage"
)

func newTestBank(t *testing.T) (*Bank, *state.Manager) {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())
	b := New(manager)
	b.SetEmitter(manager)
	return b, manager
}

func TestTransferMovesValue(t *testing.T) {
	b, manager := newTestBank(t)
	alice, bob := [20]byte{0xA1}, [20]byte{0xB0}
	require.NoError(t, b.Mint(alice, big.NewInt(100)))

	require.NoError(t, b.Transfer(alice, bob, big.NewInt(40)))

	aliceBal, err := b.Balance(alice)
	require.NoError(t, err)
	bobBal, err := b.Balance(bob)
	require.NoError(t, err)
	require.Equal(t, int64(60), aliceBal.Int64())
	require.Equal(t, int64(40), bobBal.Int64())

	pending := manager.PendingEvents()
	require.Len(t, pending, 1)
	require.Equal(t, EventTypeTransfer, pending[0].Type)
	require.Equal(t, "40", pending[0].Attributes["amount"])
}

func TestTransferInsufficientBalance(t *testing.T) {
	b, _ := newTestBank(t)
	err := b.Transfer([20]byte{1}, [20]byte{2}, big.NewInt(1))
	require.ErrorIs(t, err, ErrInsufficientBalance)
	require.ErrorIs(t, b.Transfer([20]byte{1}, [20]byte{2}, big.NewInt(-1)), ErrInvalidAmount)
}

func TestReceiverRejectionSurfacesAfterCredit(t *testing.T) {
	b, manager := newTestBank(t)
	alice, vault := [20]byte{0xA1}, [20]byte{0xEE}
	require.NoError(t, b.Mint(alice, big.NewInt(10)))
	b.SetReceiver(vault, ReceiverFunc(func([20]byte, *big.Int) error {
		return errors.New("no thanks")
	}))

	snap := manager.Snapshot()
	err := b.Transfer(alice, vault, big.NewInt(10))
	require.ErrorIs(t, err, ErrTransferRejected)
	manager.RevertToSnapshot(snap)

	bal, err := b.Balance(alice)
	require.NoError(t, err)
	require.Equal(t, int64(10), bal.Int64())

	b.SetReceiver(vault, nil)
	require.NoError(t, b.Transfer(alice, vault, big.NewInt(10)))
}
