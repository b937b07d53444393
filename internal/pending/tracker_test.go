package pending

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Klingon-tech/klingnet-wallet/internal/metrics"
	"github.com/Klingon-tech/klingnet-wallet/internal/storage"
	"github.com/Klingon-tech/klingnet-wallet/pkg/types"
)

var (
	alice = common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	bob   = common.HexToAddress("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
)

type checkerFunc func(ctx context.Context, hash string) (Status, error)

func (f checkerFunc) Status(ctx context.Context, hash string) (Status, error) {
	return f(ctx, hash)
}

// staticChecker answers from a fixed table; unlisted hashes are unknown.
type staticChecker struct {
	status map[string]Status
	errs   map[string]error
}

func (c staticChecker) Status(_ context.Context, hash string) (Status, error) {
	if err, ok := c.errs[hash]; ok {
		return StatusUnknown, err
	}
	return c.status[hash], nil
}

func newTracker(t *testing.T, m *metrics.Metrics) (*Tracker, *storage.Store) {
	t.Helper()
	store, err := storage.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewTracker(store, m), store
}

func TestTracker_RecordDedup(t *testing.T) {
	tr, _ := newTracker(t, nil)

	require.NoError(t, tr.Record(types.Sepolia, alice, "0xaa"))
	require.NoError(t, tr.Record(types.Sepolia, alice, "0xbb"))
	require.NoError(t, tr.Record(types.Sepolia, alice, "0xAA"))

	got, err := tr.List(types.Sepolia, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"0xaa", "0xbb"}, got)
}

func TestTracker_RecordEmptyHash(t *testing.T) {
	tr, _ := newTracker(t, nil)
	assert.Error(t, tr.Record(types.Sepolia, alice, "  "))
}

func TestTracker_KeyedByNetworkAndAddress(t *testing.T) {
	tr, _ := newTracker(t, nil)

	require.NoError(t, tr.Record(types.Sepolia, alice, "0x01"))
	require.NoError(t, tr.Record(types.Mainnet, alice, "0x02"))
	require.NoError(t, tr.Record(types.Sepolia, bob, "0x03"))

	got, err := tr.List(types.Sepolia, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"0x01"}, got)

	got, err = tr.List(types.Mainnet, bob)
	require.NoError(t, err)
	assert.Empty(t, got)

	assert.Equal(t, "sepolia/0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", Key(types.Sepolia, alice))
}

func TestTracker_Reconcile(t *testing.T) {
	reg := prometheus.NewRegistry()
	tr, _ := newTracker(t, metrics.New(reg))

	for _, h := range []string{"0x01", "0x02", "0x03", "0x04"} {
		require.NoError(t, tr.Record(types.Sepolia, alice, h))
	}
	checker := staticChecker{
		status: map[string]Status{"0x01": StatusConfirmed, "0x02": StatusFailed},
		errs:   map[string]error{"0x03": errors.New("connection reset")},
	}

	res, err := tr.Reconcile(context.Background(), types.Sepolia, alice, checker)
	require.NoError(t, err)
	assert.Equal(t, []string{"0x01"}, res.Confirmed)
	assert.Equal(t, []string{"0x02"}, res.Failed)
	assert.Equal(t, []string{"0x03", "0x04"}, res.Pending)

	got, err := tr.List(types.Sepolia, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"0x03", "0x04"}, got)

	expected := `
# HELP klingwallet_pending_reconciled_total Pending transaction checks by outcome
# TYPE klingwallet_pending_reconciled_total counter
klingwallet_pending_reconciled_total{outcome="confirmed"} 1
klingwallet_pending_reconciled_total{outcome="error"} 1
klingwallet_pending_reconciled_total{outcome="pending"} 1
klingwallet_pending_reconciled_total{outcome="reverted"} 1
# HELP klingwallet_pending_transactions Pending transactions left after the last reconcile
# TYPE klingwallet_pending_transactions gauge
klingwallet_pending_transactions{network="sepolia"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"klingwallet_pending_reconciled_total", "klingwallet_pending_transactions"))
}

func TestTracker_ReconcileErrorKeepsHash(t *testing.T) {
	tr, _ := newTracker(t, nil)
	require.NoError(t, tr.Record(types.Mainnet, alice, "0xdead"))

	failing := checkerFunc(func(context.Context, string) (Status, error) {
		return StatusUnknown, errors.New("rpc unavailable")
	})
	for i := 0; i < 3; i++ {
		res, err := tr.Reconcile(context.Background(), types.Mainnet, alice, failing)
		require.NoError(t, err)
		assert.Equal(t, []string{"0xdead"}, res.Pending)
	}

	got, err := tr.List(types.Mainnet, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"0xdead"}, got)
}

func TestTracker_ReconcileEmptiesEntry(t *testing.T) {
	tr, store := newTracker(t, nil)
	require.NoError(t, tr.Record(types.ZkSync, bob, "0x01"))

	confirmed := checkerFunc(func(context.Context, string) (Status, error) {
		return StatusConfirmed, nil
	})
	res, err := tr.Reconcile(context.Background(), types.ZkSync, bob, confirmed)
	require.NoError(t, err)
	assert.Empty(t, res.Pending)

	n, err := store.Count(Collection)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTracker_RecordDuringReconcile(t *testing.T) {
	tr, _ := newTracker(t, nil)
	require.NoError(t, tr.Record(types.Sepolia, alice, "0x01"))

	// The checker records a new hash while the first is being checked.
	checker := checkerFunc(func(_ context.Context, hash string) (Status, error) {
		if hash == "0x01" {
			require.NoError(t, tr.Record(types.Sepolia, alice, "0x02"))
			return StatusConfirmed, nil
		}
		return StatusUnknown, nil
	})

	res, err := tr.Reconcile(context.Background(), types.Sepolia, alice, checker)
	require.NoError(t, err)
	assert.Equal(t, []string{"0x02"}, res.Pending)

	got, err := tr.List(types.Sepolia, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"0x02"}, got)
}

func TestTracker_CorruptEntryQuarantined(t *testing.T) {
	tr, store := newTracker(t, nil)
	raw := []byte("{not json")
	require.NoError(t, store.Set(Collection, Key(types.Sepolia, alice), raw))

	got, err := tr.List(types.Sepolia, alice)
	require.NoError(t, err)
	assert.Empty(t, got)

	// Listing never moves the raw value.
	qkeys, err := store.Keys(QuarantineCollection)
	require.NoError(t, err)
	assert.Empty(t, qkeys)

	require.NoError(t, tr.Record(types.Sepolia, alice, "0x01"))
	got, err = tr.List(types.Sepolia, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"0x01"}, got)

	qkeys, err = store.Keys(QuarantineCollection)
	require.NoError(t, err)
	require.Len(t, qkeys, 1)
	assert.True(t, strings.HasPrefix(qkeys[0], Key(types.Sepolia, alice)+"/"))
	kept, err := store.Get(QuarantineCollection, qkeys[0])
	require.NoError(t, err)
	assert.Equal(t, raw, kept)
}

func TestTracker_CorruptEntryLoad(t *testing.T) {
	tr, store := newTracker(t, nil)
	require.NoError(t, store.Set(Collection, Key(types.Sepolia, alice), []byte("[1,")))

	_, err := tr.load(Key(types.Sepolia, alice))
	assert.ErrorIs(t, err, ErrCorruptEntry)
}

func TestTracker_ConcurrentRecord(t *testing.T) {
	tr, _ := newTracker(t, nil)

	hashes := []string{"0x01", "0x02", "0x03", "0x04", "0x05", "0x06", "0x07", "0x08"}
	var wg sync.WaitGroup
	for _, h := range hashes {
		wg.Add(1)
		go func(h string) {
			defer wg.Done()
			assert.NoError(t, tr.Record(types.Mainnet, alice, h))
		}(h)
	}
	wg.Wait()

	got, err := tr.List(types.Mainnet, alice)
	require.NoError(t, err)
	assert.ElementsMatch(t, hashes, got)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "confirmed", StatusConfirmed.String())
	assert.Equal(t, "failed", StatusFailed.String())
	assert.Equal(t, "unknown", StatusUnknown.String())
}
