package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/holdings/internal/domain"
)

func record(symbol string, side domain.Side, qty int64) domain.TradeRecord {
	return domain.TradeRecord{
		Symbol:   symbol,
		Name:     symbol + " Ltd",
		Side:     side,
		Quantity: qty,
		Price:    decimal.NewFromInt(100),
		Total:    decimal.NewFromInt(100 * qty),
	}
}

func TestWALStoreAppendAssignsSequentialIDs(t *testing.T) {
	store, err := NewWALStore(t.TempDir(), false)
	require.NoError(t, err)
	defer store.Close()

	id1, err := store.Append(record("TCS.NS", domain.SideBuy, 5))
	require.NoError(t, err)
	id2, err := store.Append(record("INFY.NS", domain.SideBuy, 3))
	require.NoError(t, err)

	require.Equal(t, uint64(1), id1)
	require.Equal(t, uint64(2), id2)

	got, err := store.Get(id1)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "TCS.NS", got.Symbol)
	require.False(t, got.Timestamp.IsZero())
	require.False(t, got.CreatedAt.IsZero())
}

func TestWALStoreGetUnknownID(t *testing.T) {
	store, err := NewWALStore(t.TempDir(), false)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Get(42)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestWALStoreListBySymbol(t *testing.T) {
	store, err := NewWALStore(t.TempDir(), false)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Append(record("TCS.NS", domain.SideBuy, 5))
	require.NoError(t, err)
	_, err = store.Append(record("INFY.NS", domain.SideBuy, 3))
	require.NoError(t, err)
	_, err = store.Append(record("TCS.NS", domain.SideSell, 2))
	require.NoError(t, err)

	trades, err := store.ListBySymbol("TCS.NS")
	require.NoError(t, err)
	require.Len(t, trades, 2)
	require.Equal(t, domain.SideBuy, trades[0].Side)
	require.Equal(t, domain.SideSell, trades[1].Side)

	all, err := store.List()
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestWALStoreDelete(t *testing.T) {
	store, err := NewWALStore(t.TempDir(), false)
	require.NoError(t, err)
	defer store.Close()

	id, err := store.Append(record("TCS.NS", domain.SideBuy, 5))
	require.NoError(t, err)

	ok, err := store.Delete(id)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := store.Get(id)
	require.NoError(t, err)
	require.Nil(t, got)

	ok, err = store.Delete(id)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestWALStoreReplayAfterReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewWALStore(dir, false)
	require.NoError(t, err)

	id1, err := store.Append(record("TCS.NS", domain.SideBuy, 5))
	require.NoError(t, err)
	id2, err := store.Append(record("INFY.NS", domain.SideBuy, 3))
	require.NoError(t, err)

	ok, err := store.Delete(id1)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, store.Close())

	reopened, err := NewWALStore(dir, false)
	require.NoError(t, err)
	defer reopened.Close()

	gone, err := reopened.Get(id1)
	require.NoError(t, err)
	require.Nil(t, gone, "tombstoned record must not survive replay")

	kept, err := reopened.Get(id2)
	require.NoError(t, err)
	require.NotNil(t, kept)

	// IDs keep increasing across restarts.
	id3, err := reopened.Append(record("TCS.NS", domain.SideBuy, 1))
	require.NoError(t, err)
	require.Equal(t, id2+1, id3)
}
