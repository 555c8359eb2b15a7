package saifu

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jerry-enebeli/saifu/internal/apierror"
	"github.com/jerry-enebeli/saifu/model"
)

func TestSimpleDeposit(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	account := tl.newUserAccount(t, "owner-1", "USD", 100)
	key := uuid.New()

	result, err := tl.Deposit(ctx, model.DepositRequest{
		AccountNumber: account.AccountNumber,
		Amount:        decimal.NewFromInt(10),
		CurrencyCode:  "USD",
		Comment:       "payday",
	}, "owner-1", key)
	require.NoError(t, err)
	assert.True(t, result.Amount.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, "USD", result.CurrencyCode)
	assert.Equal(t, model.TxnStatusSuccess, result.Status)

	assertBalance(t, tl, account.AccountNumber, 110)

	group, err := tl.groups.FindByUUID(ctx, key)
	require.NoError(t, err)
	assertGroupPostings(t, tl, group, 2, true)
}

func TestDepositIdempotentReplay(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	account := tl.newUserAccount(t, "owner-1", "USD", 100)
	key := uuid.New()

	req := model.DepositRequest{
		AccountNumber: account.AccountNumber,
		Amount:        decimal.NewFromInt(10),
		CurrencyCode:  "USD",
	}
	first, err := tl.Deposit(ctx, req, "owner-1", key)
	require.NoError(t, err)

	second, err := tl.Deposit(ctx, req, "owner-1", key)
	require.NoError(t, err)

	assert.Equal(t, first.TxnID, second.TxnID)
	assert.True(t, first.Amount.Equal(second.Amount))
	assertBalance(t, tl, account.AccountNumber, 110)
}

func TestDepositReplayRejectsForeignKey(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	first := tl.newUserAccount(t, "owner-1", "USD", 0)
	second := tl.newUserAccount(t, "owner-1", "USD", 0)
	key := uuid.New()

	_, err := tl.Deposit(ctx, model.DepositRequest{
		AccountNumber: first.AccountNumber,
		Amount:        decimal.NewFromInt(10),
		CurrencyCode:  "USD",
	}, "owner-1", key)
	require.NoError(t, err)

	// same key resubmitted against another account must not leak the
	// recorded result
	_, err = tl.Deposit(ctx, model.DepositRequest{
		AccountNumber: second.AccountNumber,
		Amount:        decimal.NewFromInt(10),
		CurrencyCode:  "USD",
	}, "owner-1", key)
	assertErrorCode(t, err, apierror.ErrNotFound)
	assertBalance(t, tl, second.AccountNumber, 0)
}

func TestCrossCurrencyDeposit(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	account := tl.newUserAccount(t, "owner-1", "USD", 0)
	key := uuid.New()

	// 20 AED at 0.2 with 1 AED fee: (20-1)*0.2 = 3.8 USD credited
	result, err := tl.Deposit(ctx, model.DepositRequest{
		AccountNumber: account.AccountNumber,
		Amount:        decimal.NewFromInt(20),
		CurrencyCode:  "AED",
	}, "owner-1", key)
	require.NoError(t, err)
	assert.True(t, result.Amount.Equal(decimal.NewFromFloat(3.8)))

	assertBalance(t, tl, account.AccountNumber, 3.8)
	assertBalance(t, tl, tl.houseAccount(t, "AED", model.AccountTypeFee).AccountNumber, 1)
	assertBalance(t, tl, tl.houseAccount(t, "AED", model.AccountTypeBase).AccountNumber, 999_980)
	assertBalance(t, tl, tl.houseAccount(t, "USD", model.AccountTypeBase).AccountNumber, 1_000_000)

	group, err := tl.groups.FindByUUID(ctx, key)
	require.NoError(t, err)
	txns := assertGroupPostings(t, tl, group, 6, false)

	var feePostings, exchangePostings int
	for _, txn := range txns {
		switch txn.SpendingType {
		case model.SpendingTypeExchangeFee:
			feePostings++
		case model.SpendingTypeExchange:
			exchangePostings++
		}
	}
	assert.Equal(t, 2, feePostings)
	assert.Equal(t, 2, exchangePostings)
}

func TestDepositUnknownAccount(t *testing.T) {
	tl := newTestLedger(t)

	_, err := tl.Deposit(context.Background(), model.DepositRequest{
		AccountNumber: "void",
		Amount:        decimal.NewFromInt(10),
		CurrencyCode:  "USD",
	}, "owner-1", uuid.New())
	assertErrorCode(t, err, apierror.ErrNotFound)
}

func TestDepositWrongOwner(t *testing.T) {
	tl := newTestLedger(t)
	account := tl.newUserAccount(t, "owner-1", "USD", 0)

	_, err := tl.Deposit(context.Background(), model.DepositRequest{
		AccountNumber: account.AccountNumber,
		Amount:        decimal.NewFromInt(10),
		CurrencyCode:  "USD",
	}, "owner-2", uuid.New())
	assertErrorCode(t, err, apierror.ErrNotFound)
}

// Racing submissions of the same idempotency key credit the account exactly
// once and all observe the winner's result.
func TestConcurrentDepositsSameKey(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	account := tl.newUserAccount(t, "owner-1", "USD", 100)
	key := uuid.New()

	const racers = 8
	var wg sync.WaitGroup
	results := make(chan *model.TxnResult, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := tl.Deposit(ctx, model.DepositRequest{
				AccountNumber: account.AccountNumber,
				Amount:        decimal.NewFromInt(10),
				CurrencyCode:  "USD",
			}, "owner-1", key)
			if assert.NoError(t, err) {
				results <- result
			}
		}()
	}
	wg.Wait()
	close(results)

	assertBalance(t, tl, account.AccountNumber, 110)

	var first *model.TxnResult
	for result := range results {
		if first == nil {
			first = result
			continue
		}
		assert.Equal(t, first.TxnID, result.TxnID)
	}
	require.NotNil(t, first)
}
