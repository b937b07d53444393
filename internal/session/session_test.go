package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Klingon-tech/klingnet-wallet/pkg/types"
)

var errBadPassword = errors.New("bad password")

type fixedVerifier string

func (v fixedVerifier) VerifyPassword(p []byte) error {
	if string(p) != string(v) {
		return errBadPassword
	}
	return nil
}

func TestContext_UnlockLock(t *testing.T) {
	s := New(fixedVerifier("Secret123!"), time.Minute, types.Sepolia)
	assert.False(t, s.Unlocked())

	err := s.Unlock([]byte("wrong"))
	require.ErrorIs(t, err, errBadPassword)
	assert.False(t, s.Unlocked())

	require.NoError(t, s.Unlock([]byte("Secret123!")))
	assert.True(t, s.Unlocked())

	s.Lock()
	assert.False(t, s.Unlocked())
}

func TestContext_Expiry(t *testing.T) {
	s := New(fixedVerifier("pw"), 20*time.Millisecond, types.Mainnet)
	require.NoError(t, s.Unlock([]byte("pw")))
	assert.True(t, s.Unlocked())

	assert.Eventually(t, func() bool { return !s.Unlocked() }, time.Second, 10*time.Millisecond)
}

func TestContext_DefaultTTL(t *testing.T) {
	s := New(fixedVerifier("pw"), 0, types.Mainnet)
	assert.Equal(t, DefaultTTL, s.ttl)
}

func TestContext_Selection(t *testing.T) {
	s := New(fixedVerifier("pw"), time.Minute, types.Mainnet)

	_, ok := s.SelectedAccount()
	assert.False(t, ok)

	s.SelectAccount("0")
	kp, ok := s.SelectedAccount()
	assert.True(t, ok)
	assert.Equal(t, "0", kp)

	assert.Equal(t, types.Mainnet, s.Network())
	require.NoError(t, s.SetNetwork(types.ZkSync))
	assert.Equal(t, types.ZkSync, s.Network())

	err := s.SetNetwork(types.Network("polygon"))
	require.ErrorIs(t, err, types.ErrUnknownNetwork)
	assert.Equal(t, types.ZkSync, s.Network())
}
