// Package pending keeps the local list of submitted but unconfirmed
// transaction hashes per network and account, and reconciles it against
// chain state on request.
//
// The list is a cache, not a source of truth: a hash is dropped only once
// the network reports a result for it. Errors and unknown answers keep it.
package pending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	klog "github.com/Klingon-tech/klingnet-wallet/internal/log"
	"github.com/Klingon-tech/klingnet-wallet/internal/metrics"
	"github.com/Klingon-tech/klingnet-wallet/internal/storage"
	"github.com/Klingon-tech/klingnet-wallet/pkg/types"
)

// Collection is the store collection holding pending hashes.
const Collection = "pending"

// QuarantineCollection keeps the raw bytes of entries that failed to decode.
const QuarantineCollection = "pending_quarantine"

// ErrCorruptEntry is returned when a stored entry cannot be decoded.
var ErrCorruptEntry = errors.New("corrupt pending entry")

// Status is the network's answer for one hash.
type Status int

const (
	// StatusUnknown means no receipt yet.
	StatusUnknown Status = iota
	// StatusConfirmed means included and successful.
	StatusConfirmed
	// StatusFailed means included and reverted.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusConfirmed:
		return "confirmed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StatusChecker queries the status of a submitted hash.
type StatusChecker interface {
	Status(ctx context.Context, hash string) (Status, error)
}

// Result is the outcome of one Reconcile call.
type Result struct {
	Confirmed []string
	Failed    []string
	// Pending are the hashes still tracked, including those whose check
	// returned an error.
	Pending []string
}

// Tracker records and reconciles pending hashes.
type Tracker struct {
	store   *storage.Store
	metrics *metrics.Metrics

	// mu guards every read-modify-write of an entry.
	mu sync.Mutex
}

// NewTracker returns a tracker over store. m may be nil.
func NewTracker(store *storage.Store, m *metrics.Metrics) *Tracker {
	return &Tracker{store: store, metrics: m}
}

// Key returns the store key for (network, address).
func Key(network types.Network, address common.Address) string {
	return network.String() + "/" + strings.ToLower(address.Hex())
}

// Record appends hash to the pending list of (network, address). A hash
// already present is not added twice.
func (t *Tracker) Record(network types.Network, address common.Address, hash string) error {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return fmt.Errorf("record pending: empty hash")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	key := Key(network, address)
	hashes, err := t.loadForUpdate(key)
	if err != nil {
		return err
	}
	for _, h := range hashes {
		if strings.EqualFold(h, hash) {
			return nil
		}
	}
	if err := t.save(key, append(hashes, hash)); err != nil {
		return err
	}

	klog.Pending.Debug().
		Str("network", network.String()).
		Str("address", address.Hex()).
		Str("hash", hash).
		Msg("Pending transaction recorded")
	return nil
}

// List returns the pending hashes of (network, address) in record order.
func (t *Tracker) List(network types.Network, address common.Address) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := Key(network, address)
	hashes, err := t.load(key)
	if errors.Is(err, ErrCorruptEntry) {
		klog.Pending.Warn().Err(err).Str("key", key).Msg("Corrupt pending entry, listing as empty")
		return nil, nil
	}
	return hashes, err
}

// Reconcile checks every pending hash of (network, address) and drops those
// the checker reports as confirmed or failed. Checks run without the lock,
// so hashes recorded meanwhile are kept.
func (t *Tracker) Reconcile(ctx context.Context, network types.Network, address common.Address, checker StatusChecker) (*Result, error) {
	hashes, err := t.List(network, address)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	resolved := make(map[string]bool)
	for _, h := range hashes {
		if err := ctx.Err(); err != nil {
			break
		}
		status, err := checker.Status(ctx, h)
		if err != nil {
			klog.Pending.Warn().Err(err).Str("hash", h).Msg("Status check failed, keeping hash")
			t.metrics.Reconciled(metrics.OutcomeError)
			continue
		}
		switch status {
		case StatusConfirmed:
			res.Confirmed = append(res.Confirmed, h)
			resolved[strings.ToLower(h)] = true
			t.metrics.Reconciled(metrics.OutcomeConfirmed)
		case StatusFailed:
			res.Failed = append(res.Failed, h)
			resolved[strings.ToLower(h)] = true
			t.metrics.Reconciled(metrics.OutcomeReverted)
		default:
			t.metrics.Reconciled(metrics.OutcomePending)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	key := Key(network, address)
	current, err := t.loadForUpdate(key)
	if err != nil {
		return nil, err
	}
	for _, h := range current {
		if !resolved[strings.ToLower(h)] {
			res.Pending = append(res.Pending, h)
		}
	}
	if len(resolved) > 0 {
		if err := t.save(key, res.Pending); err != nil {
			return nil, err
		}
	}
	t.metrics.SetPending(network.String(), t.countLocked(network))

	klog.Pending.Info().
		Str("network", network.String()).
		Str("address", address.Hex()).
		Int("confirmed", len(res.Confirmed)).
		Int("failed", len(res.Failed)).
		Int("pending", len(res.Pending)).
		Msg("Pending transactions reconciled")
	return res, nil
}

// load reads an entry. A missing entry is empty; one that does not decode
// returns ErrCorruptEntry.
func (t *Tracker) load(key string) ([]string, error) {
	data, err := t.store.Get(Collection, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load pending %s: %w", key, err)
	}
	var hashes []string
	if err := json.Unmarshal(data, &hashes); err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrCorruptEntry, key, err)
	}
	return hashes, nil
}

// loadForUpdate is load for callers about to write the entry back. A corrupt
// entry is moved to the quarantine collection and then read as empty. If the
// move fails the error is returned and the entry is left in place.
func (t *Tracker) loadForUpdate(key string) ([]string, error) {
	hashes, err := t.load(key)
	if !errors.Is(err, ErrCorruptEntry) {
		return hashes, err
	}
	raw, gerr := t.store.Get(Collection, key)
	if gerr != nil {
		return nil, fmt.Errorf("quarantine pending %s: %w", key, gerr)
	}
	qkey := key + "/" + uuid.NewString()
	if serr := t.store.Set(QuarantineCollection, qkey, raw); serr != nil {
		return nil, fmt.Errorf("quarantine pending %s: %w", key, serr)
	}
	if derr := t.store.Delete(Collection, key); derr != nil {
		return nil, fmt.Errorf("quarantine pending %s: %w", key, derr)
	}
	klog.Pending.Warn().Err(err).
		Str("key", key).
		Str("quarantine_key", qkey).
		Msg("Corrupt pending entry quarantined")
	return nil, nil
}

func (t *Tracker) save(key string, hashes []string) error {
	if len(hashes) == 0 {
		if err := t.store.Delete(Collection, key); err != nil {
			return fmt.Errorf("clear pending %s: %w", key, err)
		}
		return nil
	}
	data, err := json.Marshal(hashes)
	if err != nil {
		return fmt.Errorf("encode pending: %w", err)
	}
	if err := t.store.Set(Collection, key, data); err != nil {
		return fmt.Errorf("save pending %s: %w", key, err)
	}
	return nil
}

// countLocked returns the number of pending hashes across all accounts of
// network. Read errors and corrupt entries count as zero.
func (t *Tracker) countLocked(network types.Network) int {
	keys, err := t.store.Keys(Collection)
	if err != nil {
		return 0
	}
	prefix := network.String() + "/"
	n := 0
	for _, k := range keys {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		hashes, _ := t.load(k)
		n += len(hashes)
	}
	return n
}
