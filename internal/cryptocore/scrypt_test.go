package cryptocore_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abcore/core/internal/cryptocore"
)

func TestScrypt_Deterministic(t *testing.T) {
	t.Parallel()
	snrp := cryptocore.NewServerSNRP()

	a, err := cryptocore.Scrypt([]byte("alice"), snrp)
	require.NoError(t, err)
	b, err := cryptocore.Scrypt([]byte("alice"), snrp)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 32)
}

func TestScrypt_DifferentInputsDifferentOutputs(t *testing.T) {
	t.Parallel()
	snrp := cryptocore.NewServerSNRP()

	a, err := cryptocore.Scrypt([]byte("alice"), snrp)
	require.NoError(t, err)
	b, err := cryptocore.Scrypt([]byte("bob"), snrp)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestNewServerSNRP_IsFixedSalt(t *testing.T) {
	t.Parallel()
	s1 := cryptocore.NewServerSNRP()
	s2 := cryptocore.NewServerSNRP()
	assert.Equal(t, s1.Salt, s2.Salt)
	assert.Equal(t, 16384, s1.N)
	assert.Equal(t, 1, s1.R)
	assert.Equal(t, 1, s1.P)
}

func TestNewClientSNRP_IsRandomSalt(t *testing.T) {
	t.Parallel()
	s1, err := cryptocore.NewClientSNRP()
	require.NoError(t, err)
	s2, err := cryptocore.NewClientSNRP()
	require.NoError(t, err)

	assert.NotEqual(t, s1.Salt, s2.Salt)
	assert.Len(t, s1.Salt, 32)
}

func TestSNRP_JSONRoundTrip(t *testing.T) {
	t.Parallel()
	s, err := cryptocore.NewClientSNRP()
	require.NoError(t, err)

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.Contains(t, wire, "salt_hex")
	assert.Contains(t, wire, "n")
	assert.Contains(t, wire, "r")
	assert.Contains(t, wire, "p")

	var out cryptocore.SNRP
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, s.Salt, out.Salt)
	assert.Equal(t, s.N, out.N)
	assert.Equal(t, s.R, out.R)
	assert.Equal(t, s.P, out.P)
}

func TestScrypt_RejectsBadParams(t *testing.T) {
	t.Parallel()

	_, err := cryptocore.Scrypt([]byte("x"), nil)
	require.ErrorIs(t, err, cryptocore.ErrScryptNilSNRP)

	_, err = cryptocore.Scrypt([]byte("x"), &cryptocore.SNRP{N: 16384, R: 1, P: 1})
	require.ErrorIs(t, err, cryptocore.ErrScryptBadSalt)

	_, err = cryptocore.Scrypt([]byte("x"), &cryptocore.SNRP{Salt: []byte("salt"), N: 100, R: 1, P: 1})
	require.ErrorIs(t, err, cryptocore.ErrScryptBadN)

	_, err = cryptocore.Scrypt([]byte("x"), &cryptocore.SNRP{Salt: []byte("salt"), N: 16384, R: 0, P: 1})
	require.ErrorIs(t, err, cryptocore.ErrScryptBadParams)
}
