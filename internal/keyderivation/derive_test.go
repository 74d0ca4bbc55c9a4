package keyderivation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abcore/core/internal/cryptocore"
	"github.com/abcore/core/internal/keyderivation"
)

func TestDeriveL1_DeterministicAcrossClients(t *testing.T) {
	t.Parallel()
	snrp1 := cryptocore.NewServerSNRP()

	a, err := keyderivation.DeriveL1("alice", snrp1)
	require.NoError(t, err)
	b, err := keyderivation.DeriveL1("alice", snrp1)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 32)
}

func TestDeriveL1_DifferentUsernamesDiffer(t *testing.T) {
	t.Parallel()
	snrp1 := cryptocore.NewServerSNRP()

	a, err := keyderivation.DeriveL1("alice", snrp1)
	require.NoError(t, err)
	b, err := keyderivation.DeriveL1("bob", snrp1)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestDeriveLP1_RequiresPassword(t *testing.T) {
	t.Parallel()
	snrp1 := cryptocore.NewServerSNRP()
	_, err := keyderivation.DeriveLP1("alice", "", snrp1)
	require.ErrorIs(t, err, keyderivation.ErrEmptyPassword)
}

func TestDeriveLP1_RequiresSNRP(t *testing.T) {
	t.Parallel()
	_, err := keyderivation.DeriveLP1("alice", "hunter2", nil)
	require.ErrorIs(t, err, keyderivation.ErrMissingSNRP)
}

func TestDeriveLRA1_RequiresAnswers(t *testing.T) {
	t.Parallel()
	snrp1 := cryptocore.NewServerSNRP()
	_, err := keyderivation.DeriveLRA1("alice", "", snrp1)
	require.ErrorIs(t, err, keyderivation.ErrEmptyRecoveryText)
}

func TestPasswordAndRecoveryKeysAreIndependent(t *testing.T) {
	t.Parallel()
	bundle, err := keyderivation.NewSNRPBundle()
	require.NoError(t, err)

	pk, err := keyderivation.DerivePasswordKeys("alice", "hunter2", bundle)
	require.NoError(t, err)
	rk, err := keyderivation.DeriveRecoveryKeys("alice", "fluffy\nmaple", bundle)
	require.NoError(t, err)

	assert.Len(t, pk.L1, 32)
	assert.Len(t, pk.LP1, 32)
	assert.Len(t, pk.LP2, 32)
	assert.Len(t, rk.LRA1, 32)
	assert.Len(t, rk.LRA3, 32)

	assert.NotEqual(t, pk.LP1, pk.LP2)
	assert.NotEqual(t, pk.LP1, rk.LRA1)
}

func TestDeriveL1_DiffersFromLP1UnderServerSNRP(t *testing.T) {
	t.Parallel()
	// L1 and LP1 both use SNRP1 but over different inputs (L vs LP), so
	// they must differ even for the same username.
	snrp1 := cryptocore.NewServerSNRP()

	l1, err := keyderivation.DeriveL1("alice", snrp1)
	require.NoError(t, err)
	lp1, err := keyderivation.DeriveLP1("alice", "hunter2", snrp1)
	require.NoError(t, err)

	assert.NotEqual(t, l1, lp1)
}

func TestNewSNRPBundle_ClientPresetsAreIndependentSalts(t *testing.T) {
	t.Parallel()
	b, err := keyderivation.NewSNRPBundle()
	require.NoError(t, err)

	assert.NotEqual(t, b.SNRP2.Salt, b.SNRP3.Salt)
	assert.NotEqual(t, b.SNRP3.Salt, b.SNRP4.Salt)
	assert.Equal(t, 16384, b.SNRP1.N)
}
