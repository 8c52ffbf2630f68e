package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"learnchain/core/events"
	"learnchain/core/types"
	"learnchain/storage"
)

type record struct {
	Name  string
	Count uint64
	Total *big.Int
}

func TestKVRoundTripAndCommit(t *testing.T) {
	db := storage.NewMemDB()
	m := NewManager(db)

	require.NoError(t, m.KVPut([]byte("rec"), &record{Name: "x", Count: 2, Total: big.NewInt(7)}))

	var got record
	ok, err := m.KVGet([]byte("rec"), &got)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "x", got.Name)

	fresh := NewManager(db)
	ok, err = fresh.KVGet([]byte("rec"), &got)
	require.NoError(t, err)
	require.False(t, ok, "uncommitted writes must not be visible through the database")

	_, err = m.Commit()
	require.NoError(t, err)
	ok, err = fresh.KVGet([]byte("rec"), &got)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 0, got.Total.Cmp(big.NewInt(7)))
}

func TestRevertToSnapshotRestoresWritesAndEvents(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	require.NoError(t, m.KVPut([]byte("k"), uint64(1)))
	m.Emit(events.Wrap(&types.Event{Type: "outer"}))

	snap := m.Snapshot()
	require.NoError(t, m.KVPut([]byte("k"), uint64(2)))
	require.NoError(t, m.KVPut([]byte("other"), uint64(9)))
	require.NoError(t, m.KVDelete([]byte("k")))
	m.Emit(events.Wrap(&types.Event{Type: "inner"}))

	m.RevertToSnapshot(snap)

	var v uint64
	ok, err := m.KVGet([]byte("k"), &v)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1), v)
	ok, err = m.KVGet([]byte("other"), &v)
	require.NoError(t, err)
	require.False(t, ok)

	pending := m.PendingEvents()
	require.Len(t, pending, 1)
	require.Equal(t, "outer", pending[0].Type)

	committed, err := m.Commit()
	require.NoError(t, err)
	require.Len(t, committed, 1)
	require.Empty(t, m.PendingEvents())
}

func TestNestedSnapshots(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	outer := m.Snapshot()
	require.NoError(t, m.KVPut([]byte("a"), uint64(1)))
	inner := m.Snapshot()
	require.NoError(t, m.KVPut([]byte("b"), uint64(2)))
	m.RevertToSnapshot(inner)

	ok, err := m.KVGet([]byte("a"), nil)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = m.KVGet([]byte("b"), nil)
	require.NoError(t, err)
	require.False(t, ok)

	m.RevertToSnapshot(outer)
	ok, err = m.KVGet([]byte("a"), nil)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestKVAppendDeduplicates(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	require.NoError(t, m.KVAppend([]byte("list"), []byte{1}))
	require.NoError(t, m.KVAppend([]byte("list"), []byte{2}))
	require.NoError(t, m.KVAppend([]byte("list"), []byte{1}))

	var list [][]byte
	require.NoError(t, m.KVGetList([]byte("list"), &list))
	require.Equal(t, [][]byte{{1}, {2}}, list)

	var empty [][]byte
	require.NoError(t, m.KVGetList([]byte("none"), &empty))
	require.NotNil(t, empty)
	require.Empty(t, empty)
}

func TestStateVersion(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	require.NoError(t, EnsureStateVersion(m))
	require.NoError(t, m.SetStateVersion(StateVersion+1))
	require.ErrorIs(t, EnsureStateVersion(m), ErrStateVersionMismatch)
}
