package passphrase

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

const testEnv = "LEARN_TEST_PASSPHRASE"

func TestSourcePrefersFixedValue(t *testing.T) {
	t.Setenv(testEnv, "from-env")
	got, err := NewSource(testEnv, "owner").WithValue("from-flag").Get()
	require.NoError(t, err)
	require.Equal(t, "from-flag", got)
}

func TestSourceReadsEnvironment(t *testing.T) {
	t.Setenv(testEnv, "from-env")
	got, err := NewSource(testEnv, "").Get()
	require.NoError(t, err)
	require.Equal(t, "from-env", got)

	t.Setenv(testEnv, "   ")
	_, err = NewSource(testEnv, "").Get()
	require.ErrorContains(t, err, "set but empty")
}

func TestSourceWithoutTerminal(t *testing.T) {
	s := NewSource("", "owner")
	s.isTerminal = func() bool { return false }
	_, err := s.Get()
	require.ErrorContains(t, err, "owner keystore passphrase required")
}

func TestSourcePromptsAndCaches(t *testing.T) {
	calls := 0
	s := NewSource("", "")
	s.isTerminal = func() bool { return true }
	s.read = func() ([]byte, error) {
		calls++
		return []byte("typed"), nil
	}
	for i := 0; i < 2; i++ {
		got, err := s.Get()
		require.NoError(t, err)
		require.Equal(t, "typed", got)
	}
	require.Equal(t, 1, calls)

	blank := NewSource("", "")
	blank.isTerminal = func() bool { return true }
	blank.read = func() ([]byte, error) { return []byte(" "), nil }
	_, err := blank.Get()
	require.ErrorContains(t, err, "cannot be empty")

	failing := NewSource("", "")
	failing.isTerminal = func() bool { return true }
	failing.read = func() ([]byte, error) { return nil, errors.New("tty closed") }
	_, err = failing.Get()
	require.ErrorContains(t, err, "tty closed")
}
