package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jerry-enebeli/saifu/model"
)

func TestMergeTxnGroup(t *testing.T) {
	s := NewTxnGroupStore()
	ctx := context.Background()
	key := uuid.New()

	created, group, err := s.Merge(ctx, &model.TxnGroup{
		TxnUUID:      key,
		Amount:       decimal.NewFromInt(10),
		CurrencyCode: "USD",
		Type:         model.TxnTypeDeposit,
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, group.ID)
	assert.WithinDuration(t, time.Now(), group.CreatedAt, time.Second)

	// same uuid merges into the existing group, second payload is discarded
	created, merged, err := s.Merge(ctx, &model.TxnGroup{
		TxnUUID:      key,
		Amount:       decimal.NewFromInt(999),
		CurrencyCode: "AED",
		Type:         model.TxnTypeWithdrawal,
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, group.ID, merged.ID)
	assert.True(t, merged.Amount.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, model.TxnTypeDeposit, merged.Type)

	found, err := s.FindByUUID(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, group.ID, found.ID)
}

func TestFindMissingTxnGroup(t *testing.T) {
	s := NewTxnGroupStore()
	_, err := s.FindByUUID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrTxnGroupNotFound)
}

// Many goroutines racing the same idempotency key must agree on a single
// winner carrying a fully assigned id.
func TestConcurrentMergeSameKey(t *testing.T) {
	s := NewTxnGroupStore()
	ctx := context.Background()
	key := uuid.New()

	const racers = 32
	var wg sync.WaitGroup
	ids := make(chan int64, racers)
	wins := make(chan bool, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created, group, err := s.Merge(ctx, &model.TxnGroup{
				TxnUUID:      key,
				Amount:       decimal.NewFromInt(10),
				CurrencyCode: "USD",
				Type:         model.TxnTypeDeposit,
			})
			assert.NoError(t, err)
			ids <- group.ID
			wins <- created
		}()
	}
	wg.Wait()
	close(ids)
	close(wins)

	var winners int
	for created := range wins {
		if created {
			winners++
		}
	}
	assert.Equal(t, 1, winners)

	var first int64
	for id := range ids {
		require.NotZero(t, id)
		if first == 0 {
			first = id
		}
		assert.Equal(t, first, id)
	}
}

func TestCreateAndLinkTxns(t *testing.T) {
	s := NewTxnStore()
	ctx := context.Background()

	credit, err := s.Create(ctx, &model.Txn{
		AccountID:    1,
		TxnGroupID:   10,
		Amount:       decimal.NewFromInt(5),
		Status:       model.TxnStatusSuccess,
		SpendingType: model.SpendingTypeTransfer,
	})
	require.NoError(t, err)
	debit, err := s.Create(ctx, &model.Txn{
		AccountID:    2,
		TxnGroupID:   10,
		Amount:       decimal.NewFromInt(-5),
		Status:       model.TxnStatusSuccess,
		SpendingType: model.SpendingTypeTransfer,
	})
	require.NoError(t, err)

	require.NoError(t, s.Link(ctx, credit.ID, debit.ID))

	found, err := s.FindByGroupAccountAndSpendingType(ctx, 10, 1, model.SpendingTypeTransfer)
	require.NoError(t, err)
	assert.Equal(t, debit.ID, found.LinkedTxnID)

	other, err := s.FindByGroupAccountAndSpendingType(ctx, 10, 2, model.SpendingTypeTransfer)
	require.NoError(t, err)
	assert.Equal(t, credit.ID, other.LinkedTxnID)
}

func TestLinkMissingTxn(t *testing.T) {
	s := NewTxnStore()
	ctx := context.Background()

	credit, err := s.Create(ctx, &model.Txn{AccountID: 1, TxnGroupID: 10, Amount: decimal.NewFromInt(5)})
	require.NoError(t, err)

	err = s.Link(ctx, credit.ID, 999999)
	var inconsistency DataInconsistencyError
	require.ErrorAs(t, err, &inconsistency)
	assert.Equal(t, "TXN_LINK_TARGET", inconsistency.Constraint)
}

func TestFindAllByGroup(t *testing.T) {
	s := NewTxnStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.Create(ctx, &model.Txn{AccountID: int64(i), TxnGroupID: 10, Amount: decimal.NewFromInt(1)})
		require.NoError(t, err)
	}
	_, err := s.Create(ctx, &model.Txn{AccountID: 9, TxnGroupID: 11, Amount: decimal.NewFromInt(1)})
	require.NoError(t, err)

	txns, err := s.FindAllByGroup(ctx, 10)
	require.NoError(t, err)
	require.Len(t, txns, 3)
	for i := 1; i < len(txns); i++ {
		assert.Greater(t, txns[i].ID, txns[i-1].ID)
	}

	missing, err := s.FindAllByGroup(ctx, 404)
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestFindTxnBySpendingType(t *testing.T) {
	s := NewTxnStore()
	ctx := context.Background()

	_, err := s.Create(ctx, &model.Txn{AccountID: 1, TxnGroupID: 10, SpendingType: model.SpendingTypeExchangeFee, Amount: decimal.NewFromInt(1)})
	require.NoError(t, err)
	wanted, err := s.Create(ctx, &model.Txn{AccountID: 1, TxnGroupID: 10, SpendingType: model.SpendingTypeTransfer, Amount: decimal.NewFromInt(5)})
	require.NoError(t, err)

	found, err := s.FindByGroupAccountAndSpendingType(ctx, 10, 1, model.SpendingTypeTransfer)
	require.NoError(t, err)
	assert.Equal(t, wanted.ID, found.ID)

	_, err = s.FindByGroupAccountAndSpendingType(ctx, 10, 1, model.SpendingTypeExchange)
	assert.ErrorIs(t, err, ErrTxnNotFound)
}
