package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/ledger"
	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/store"
)

func TestAtomicallyCommitsOnSuccess(t *testing.T) {
	st := New()
	ctx := context.Background()

	err := st.Atomically(ctx, func(tx store.Tx) error {
		return tx.Projects().Create(ctx, &ledger.Project{ID: 1, Owner: "owner1"})
	})
	require.NoError(t, err)

	err = st.Atomically(ctx, func(tx store.Tx) error {
		project, err := tx.Projects().Get(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, project)
		assert.Equal(t, ledger.Principal("owner1"), project.Owner)
		return nil
	})
	require.NoError(t, err)
}

func TestAtomicallyRollsBackOnError(t *testing.T) {
	st := New()
	ctx := context.Background()
	boom := errors.New("boom")

	require.NoError(t, st.Atomically(ctx, func(tx store.Tx) error {
		return tx.Balances().Set(ctx, "acct", 100)
	}))

	err := st.Atomically(ctx, func(tx store.Tx) error {
		if err := tx.Balances().Set(ctx, "acct", 0); err != nil {
			return err
		}
		if err := tx.Projects().Create(ctx, &ledger.Project{ID: 7}); err != nil {
			return err
		}
		if err := tx.Events().Append(ctx, ledger.NewEvent(ledger.EventCreditsMinted, "acct", 7, nil, time.Now())); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	require.NoError(t, st.Atomically(ctx, func(tx store.Tx) error {
		balance, err := tx.Balances().Get(ctx, "acct")
		require.NoError(t, err)
		assert.Equal(t, uint64(100), balance)

		project, err := tx.Projects().Get(ctx, 7)
		require.NoError(t, err)
		assert.Nil(t, project)

		events, err := tx.Events().ListRecent(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, events)
		return nil
	}))
}

func TestTransactionReadsItsOwnWrites(t *testing.T) {
	st := New()
	ctx := context.Background()

	err := st.Atomically(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.Credits().Create(ctx, &ledger.CreditLot{ID: 1, Owner: "a", Amount: 10}))

		lot, err := tx.Credits().Get(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, lot)

		require.NoError(t, tx.Credits().Delete(ctx, 1))
		lot, err = tx.Credits().Get(ctx, 1)
		require.NoError(t, err)
		assert.Nil(t, lot)
		return nil
	})
	require.NoError(t, err)
}

func TestNextIDIsMonotonicAndRolledBack(t *testing.T) {
	st := New()
	ctx := context.Background()
	boom := errors.New("boom")

	var first uint64
	require.NoError(t, st.Atomically(ctx, func(tx store.Tx) error {
		var err error
		first, err = tx.NextID(ctx, store.CounterCredits)
		return err
	}))
	assert.Equal(t, uint64(1), first)

	// An aborted transaction does not burn ids in the in-memory store.
	err := st.Atomically(ctx, func(tx store.Tx) error {
		if _, err := tx.NextID(ctx, store.CounterCredits); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var second uint64
	require.NoError(t, st.Atomically(ctx, func(tx store.Tx) error {
		var err error
		second, err = tx.NextID(ctx, store.CounterCredits)
		return err
	}))
	assert.Equal(t, uint64(2), second)

	// Counters are independent per sequence.
	var order uint64
	require.NoError(t, st.Atomically(ctx, func(tx store.Tx) error {
		var err error
		order, err = tx.NextID(ctx, store.CounterOrders)
		return err
	}))
	assert.Equal(t, uint64(1), order)
}

func TestFindMergeable(t *testing.T) {
	st := New()
	ctx := context.Background()
	exp := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, st.Atomically(ctx, func(tx store.Tx) error {
		lots := []ledger.CreditLot{
			{ID: 1, Owner: "a", Amount: 5, ProjectID: 1, Expiration: exp},
			{ID: 2, Owner: "a", Amount: 5, ProjectID: 1, Expiration: exp.Add(time.Hour)},
			{ID: 3, Owner: "b", Amount: 5, ProjectID: 1, Expiration: exp},
			{ID: 4, Owner: "a", Amount: 5, ProjectID: 2, Expiration: exp},
		}
		for i := range lots {
			if err := tx.Credits().Create(ctx, &lots[i]); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, st.Atomically(ctx, func(tx store.Tx) error {
		lot, err := tx.Credits().FindMergeable(ctx, "a", 1, exp)
		require.NoError(t, err)
		require.NotNil(t, lot)
		assert.Equal(t, uint64(1), lot.ID)

		lot, err = tx.Credits().FindMergeable(ctx, "b", 2, exp)
		require.NoError(t, err)
		assert.Nil(t, lot)
		return nil
	}))
}

func TestListExpiredOrders(t *testing.T) {
	st := New()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, st.Atomically(ctx, func(tx store.Tx) error {
		orders := []ledger.Order{
			{ID: 1, Seller: "s", Amount: 1, Price: 1, Expiration: now.Add(-time.Hour)},
			{ID: 2, Seller: "s", Amount: 1, Price: 1, Expiration: now},
			{ID: 3, Seller: "s", Amount: 1, Price: 1, Expiration: now.Add(time.Hour)},
		}
		for i := range orders {
			if err := tx.Orders().Create(ctx, &orders[i]); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, st.Atomically(ctx, func(tx store.Tx) error {
		expired, err := tx.Orders().ListExpired(ctx, now)
		require.NoError(t, err)
		require.Len(t, expired, 2)
		// An expiration equal to now counts as expired.
		assert.Equal(t, uint64(1), expired[0].ID)
		assert.Equal(t, uint64(2), expired[1].ID)
		return nil
	}))
}

func TestZeroBalanceRowsAreDropped(t *testing.T) {
	st := New()
	ctx := context.Background()

	require.NoError(t, st.Atomically(ctx, func(tx store.Tx) error {
		if err := tx.Balances().Set(ctx, "acct", 10); err != nil {
			return err
		}
		return tx.Balances().Set(ctx, "acct", 0)
	}))

	require.NoError(t, st.Atomically(ctx, func(tx store.Tx) error {
		balance, err := tx.Balances().Get(ctx, "acct")
		require.NoError(t, err)
		assert.Zero(t, balance)
		return nil
	}))
}

func TestListRecentEventsNewestFirst(t *testing.T) {
	st := New()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, st.Atomically(ctx, func(tx store.Tx) error {
		for i := 0; i < 4; i++ {
			event := ledger.NewEvent(ledger.EventCreditsMinted, "acct", uint64(i+1), nil,
				base.Add(time.Duration(i)*time.Minute))
			if err := tx.Events().Append(ctx, event); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, st.Atomically(ctx, func(tx store.Tx) error {
		events, err := tx.Events().ListRecent(ctx, 3)
		require.NoError(t, err)
		require.Len(t, events, 3)
		assert.Equal(t, uint64(4), events[0].EntityID)
		assert.Equal(t, uint64(3), events[1].EntityID)
		assert.Equal(t, uint64(2), events[2].EntityID)
		for i := 1; i < len(events); i++ {
			assert.False(t, events[i].OccurredAt.After(events[i-1].OccurredAt))
		}
		return nil
	}))
}

func TestListRecentSeesUncommittedAppends(t *testing.T) {
	st := New()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, st.Atomically(ctx, func(tx store.Tx) error {
		return tx.Events().Append(ctx, ledger.NewEvent(ledger.EventCreditsMinted, "acct", 1, nil, base))
	}))

	require.NoError(t, st.Atomically(ctx, func(tx store.Tx) error {
		if err := tx.Events().Append(ctx, ledger.NewEvent(ledger.EventCreditsDeposited, "acct", 2, nil, base.Add(time.Minute))); err != nil {
			return err
		}
		events, err := tx.Events().ListRecent(ctx, 0)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, uint64(2), events[0].EntityID)
		assert.Equal(t, uint64(1), events[1].EntityID)
		return nil
	}))
}

func TestCancelledContext(t *testing.T) {
	st := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := st.Atomically(ctx, func(tx store.Tx) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
