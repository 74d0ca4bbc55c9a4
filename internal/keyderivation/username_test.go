package keyderivation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abcore/core/internal/keyderivation"
)

func TestNormalizeUsername(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already normalized", "alice", "alice"},
		{"uppercase lowered", "Alice Smith", "alice smith"},
		{"leading/trailing trimmed", "  alice  ", "alice"},
		{"internal whitespace collapsed", "alice   smith", "alice smith"},
		{"tabs are not allowed but spaces collapse", "alice  smith  jones", "alice smith jones"},
		{"mixed case and spacing", "  ALICE   SMITH ", "alice smith"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := keyderivation.NormalizeUsername(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeUsername_Idempotent(t *testing.T) {
	t.Parallel()
	inputs := []string{"alice", "  Alice   Smith ", "BOB", "a b c"}
	for _, in := range inputs {
		once, err := keyderivation.NormalizeUsername(in)
		require.NoError(t, err)
		twice, err := keyderivation.NormalizeUsername(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice)
	}
}

func TestNormalizeUsername_RejectsNonPrintableASCII(t *testing.T) {
	t.Parallel()
	_, err := keyderivation.NormalizeUsername("alice\ttab")
	require.ErrorIs(t, err, keyderivation.ErrInvalidUsername)

	_, err = keyderivation.NormalizeUsername("alice\nnewline")
	require.ErrorIs(t, err, keyderivation.ErrInvalidUsername)

	_, err = keyderivation.NormalizeUsername("aliceé")
	require.ErrorIs(t, err, keyderivation.ErrInvalidUsername)
}

func TestNormalizeUsername_RejectsEmpty(t *testing.T) {
	t.Parallel()
	_, err := keyderivation.NormalizeUsername("")
	require.ErrorIs(t, err, keyderivation.ErrEmptyUsername)

	_, err = keyderivation.NormalizeUsername("   ")
	require.ErrorIs(t, err, keyderivation.ErrEmptyUsername)
}
