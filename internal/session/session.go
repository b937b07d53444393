// Package session holds the per-process wallet session: whether the user
// has entered the password recently, which account is selected and which
// network is active. It is created by the application root and passed to
// whatever needs it.
package session

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	klog "github.com/Klingon-tech/klingnet-wallet/internal/log"
	"github.com/Klingon-tech/klingnet-wallet/pkg/types"
)

// DefaultTTL is how long an unlock lasts without activity.
const DefaultTTL = 15 * time.Minute

const unlockedKey = "unlocked"

// Verifier checks a password against the stored credential.
type Verifier interface {
	VerifyPassword(password []byte) error
}

// Context is the session state.
type Context struct {
	verifier Verifier
	ttl      time.Duration
	flags    *cache.Cache

	mu      sync.RWMutex
	account string
	network types.Network
}

// New returns a locked session on network. A ttl of zero uses DefaultTTL.
func New(verifier Verifier, ttl time.Duration, network types.Network) *Context {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Context{
		verifier: verifier,
		ttl:      ttl,
		flags:    cache.New(ttl, time.Minute),
		network:  network,
	}
}

// Unlock verifies password and marks the session unlocked for the TTL.
// This is a UI gate only; signing still needs the password to decrypt.
func (c *Context) Unlock(password []byte) error {
	if err := c.verifier.VerifyPassword(password); err != nil {
		return err
	}
	c.flags.Set(unlockedKey, true, c.ttl)
	klog.Wallet.Debug().Dur("ttl", c.ttl).Msg("Session unlocked")
	return nil
}

// Unlocked reports whether the session is unlocked and not expired.
func (c *Context) Unlocked() bool {
	_, ok := c.flags.Get(unlockedKey)
	return ok
}

// Lock ends the session.
func (c *Context) Lock() {
	c.flags.Delete(unlockedKey)
}

// SelectAccount sets the active account key-path.
func (c *Context) SelectAccount(keyPath string) {
	c.mu.Lock()
	c.account = keyPath
	c.mu.Unlock()
}

// SelectedAccount returns the active account key-path, if any.
func (c *Context) SelectedAccount() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.account, c.account != ""
}

// SetNetwork switches the active network.
func (c *Context) SetNetwork(n types.Network) error {
	if !n.Valid() {
		return types.ErrUnknownNetwork
	}
	c.mu.Lock()
	c.network = n
	c.mu.Unlock()
	return nil
}

// Network returns the active network.
func (c *Context) Network() types.Network {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.network
}
