package saifu

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jerry-enebeli/saifu/internal/apierror"
	"github.com/jerry-enebeli/saifu/model"
	"github.com/jerry-enebeli/saifu/store"
)

func TestSimpleTransfer(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	payer := tl.newUserAccount(t, "owner-1", "USD", 100)
	receiver := tl.newUserAccount(t, "owner-2", "USD", 0)
	key := uuid.New()

	result, err := tl.Transfer(ctx, model.TransferRequest{
		PayerAccountNumber:    payer.AccountNumber,
		ReceiverAccountNumber: receiver.AccountNumber,
		Amount:                decimal.NewFromInt(30),
		Comment:               "split bill",
	}, "owner-1", key)
	require.NoError(t, err)
	assert.True(t, result.Amount.Equal(decimal.NewFromInt(-30)))

	assertBalance(t, tl, payer.AccountNumber, 70)
	assertBalance(t, tl, receiver.AccountNumber, 30)

	group, err := tl.groups.FindByUUID(ctx, key)
	require.NoError(t, err)
	assertGroupPostings(t, tl, group, 2, true)
}

func TestTransferToSelf(t *testing.T) {
	tl := newTestLedger(t)
	account := tl.newUserAccount(t, "owner-1", "USD", 100)

	_, err := tl.Transfer(context.Background(), model.TransferRequest{
		PayerAccountNumber:    account.AccountNumber,
		ReceiverAccountNumber: account.AccountNumber,
		Amount:                decimal.NewFromInt(10),
	}, "owner-1", uuid.New())
	assertErrorCode(t, err, apierror.ErrInvalidInput)
}

func TestTransferInsufficientFunds(t *testing.T) {
	tl := newTestLedger(t)
	payer := tl.newUserAccount(t, "owner-1", "USD", 5)
	receiver := tl.newUserAccount(t, "owner-2", "USD", 0)

	_, err := tl.Transfer(context.Background(), model.TransferRequest{
		PayerAccountNumber:    payer.AccountNumber,
		ReceiverAccountNumber: receiver.AccountNumber,
		Amount:                decimal.NewFromInt(10),
	}, "owner-1", uuid.New())
	assertErrorCode(t, err, apierror.ErrInsufficientFunds)
	assertBalance(t, tl, payer.AccountNumber, 5)
	assertBalance(t, tl, receiver.AccountNumber, 0)
}

func TestTransferUnknownReceiver(t *testing.T) {
	tl := newTestLedger(t)
	payer := tl.newUserAccount(t, "owner-1", "USD", 100)

	_, err := tl.Transfer(context.Background(), model.TransferRequest{
		PayerAccountNumber:    payer.AccountNumber,
		ReceiverAccountNumber: "void",
		Amount:                decimal.NewFromInt(10),
	}, "owner-1", uuid.New())
	assertErrorCode(t, err, apierror.ErrNotFound)
}

func TestTransferIdempotentReplay(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	payer := tl.newUserAccount(t, "owner-1", "USD", 100)
	receiver := tl.newUserAccount(t, "owner-2", "USD", 0)
	key := uuid.New()

	req := model.TransferRequest{
		PayerAccountNumber:    payer.AccountNumber,
		ReceiverAccountNumber: receiver.AccountNumber,
		Amount:                decimal.NewFromInt(30),
	}
	first, err := tl.Transfer(ctx, req, "owner-1", key)
	require.NoError(t, err)
	second, err := tl.Transfer(ctx, req, "owner-1", key)
	require.NoError(t, err)

	assert.Equal(t, first.TxnID, second.TxnID)
	assertBalance(t, tl, payer.AccountNumber, 70)
	assertBalance(t, tl, receiver.AccountNumber, 30)
}

func TestCrossCurrencyTransfer(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	payer := tl.newUserAccount(t, "owner-1", "AED", 100)
	receiver := tl.newUserAccount(t, "owner-2", "USD", 0)
	key := uuid.New()

	// 20 AED at 0.2 with 1 AED fee: receiver gets (20-1)*0.2 = 3.8 USD
	result, err := tl.Transfer(ctx, model.TransferRequest{
		PayerAccountNumber:    payer.AccountNumber,
		ReceiverAccountNumber: receiver.AccountNumber,
		Amount:                decimal.NewFromInt(20),
	}, "owner-1", key)
	require.NoError(t, err)
	assert.True(t, result.Amount.Equal(decimal.NewFromInt(-20)))
	assert.Equal(t, "AED", result.CurrencyCode)

	assertBalance(t, tl, payer.AccountNumber, 80)
	assertBalance(t, tl, receiver.AccountNumber, 3.8)
	assertBalance(t, tl, tl.houseAccount(t, "AED", model.AccountTypeFee).AccountNumber, 1)
	assertBalance(t, tl, tl.houseAccount(t, "AED", model.AccountTypeBase).AccountNumber, 1_000_000)
	assertBalance(t, tl, tl.houseAccount(t, "USD", model.AccountTypeBase).AccountNumber, 1_000_000)

	group, err := tl.groups.FindByUUID(ctx, key)
	require.NoError(t, err)
	assertGroupPostings(t, tl, group, 8, false)
}

// Two streams of transfers in opposite directions over the same pair of
// accounts must all complete: lock acquisition order is canonical, not
// request order.
func TestConcurrentOppositeTransfers(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	a := tl.newUserAccount(t, "owner-1", "USD", 100)
	b := tl.newUserAccount(t, "owner-2", "USD", 100)

	const perDirection = 10
	var wg sync.WaitGroup
	for i := 0; i < perDirection; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := tl.Transfer(ctx, model.TransferRequest{
				PayerAccountNumber:    a.AccountNumber,
				ReceiverAccountNumber: b.AccountNumber,
				Amount:                decimal.NewFromInt(1),
			}, "owner-1", uuid.New())
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := tl.Transfer(ctx, model.TransferRequest{
				PayerAccountNumber:    b.AccountNumber,
				ReceiverAccountNumber: a.AccountNumber,
				Amount:                decimal.NewFromInt(1),
			}, "owner-2", uuid.New())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assertBalance(t, tl, a.AccountNumber, 100)
	assertBalance(t, tl, b.AccountNumber, 100)
}

func TestConcurrentTransfersSameKey(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	payer := tl.newUserAccount(t, "owner-1", "USD", 100)
	receiver := tl.newUserAccount(t, "owner-2", "USD", 0)
	key := uuid.New()

	const racers = 8
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := tl.Transfer(ctx, model.TransferRequest{
				PayerAccountNumber:    payer.AccountNumber,
				ReceiverAccountNumber: receiver.AccountNumber,
				Amount:                decimal.NewFromInt(10),
			}, "owner-1", key)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assertBalance(t, tl, payer.AccountNumber, 90)
	assertBalance(t, tl, receiver.AccountNumber, 10)
}

func TestTransferLockContention(t *testing.T) {
	tl := newTestLedgerWithLockBudget(t, 100*time.Millisecond)
	ctx := context.Background()
	payer := tl.newUserAccount(t, "owner-1", "USD", 100)
	receiver := tl.newUserAccount(t, "owner-2", "USD", 0)
	key := uuid.New()

	held, err := tl.accounts.LockAccounts(ctx, []string{receiver.AccountNumber})
	require.NoError(t, err)
	defer held.Release()

	_, err = tl.Transfer(ctx, model.TransferRequest{
		PayerAccountNumber:    payer.AccountNumber,
		ReceiverAccountNumber: receiver.AccountNumber,
		Amount:                decimal.NewFromInt(30),
	}, "owner-1", key)
	assertErrorCode(t, err, apierror.ErrRetryLater)
	assert.True(t, apierror.IsRetryable(err))

	_, err = tl.groups.FindByUUID(ctx, key)
	assert.ErrorIs(t, err, store.ErrTxnGroupNotFound)
	assertBalance(t, tl, payer.AccountNumber, 100)
}
