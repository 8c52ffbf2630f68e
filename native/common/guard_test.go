package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type pauses map[string]bool

func (p pauses) IsPaused(module string) bool { return p[module] }

func TestGuard(t *testing.T) {
	require.NoError(t, Guard(nil, "academy"))
	require.NoError(t, Guard(pauses{"academy": true}, ""))
	require.NoError(t, Guard(pauses{"academy": false}, "academy"))
	require.ErrorIs(t, Guard(pauses{"academy": true}, "academy"), ErrModulePaused)
}

func TestReentrancyLock(t *testing.T) {
	var lock ReentrancyLock
	release, err := lock.Enter()
	require.NoError(t, err)
	require.True(t, lock.Held())

	_, err = lock.Enter()
	require.ErrorIs(t, err, ErrReentrant)

	release()
	require.False(t, lock.Held())
	again, err := lock.Enter()
	require.NoError(t, err)
	again()
}
