/*
Copyright 2024 Saifu Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package saifu

import (
	"context"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jerry-enebeli/saifu/config"
	"github.com/jerry-enebeli/saifu/ext"
	"github.com/jerry-enebeli/saifu/internal/apierror"
	"github.com/jerry-enebeli/saifu/model"
	"github.com/jerry-enebeli/saifu/store"
)

const testCorrespondent = "acme-correspondent"

type testLedger struct {
	*Saifu
	accounts *store.AccountStore
	orgID    string
}

// newTestLedger stands up a full in-memory ledger with one mock currency
// pair (AED/USD at 0.2 and 5) and provisioned house accounts.
func newTestLedger(t *testing.T) *testLedger {
	t.Helper()
	return newTestLedgerWithLockBudget(t, store.DefaultLockBudget)
}

func newTestLedgerWithLockBudget(t *testing.T, lockBudget time.Duration) *testLedger {
	t.Helper()

	orgID := "org-" + gofakeit.UUID()
	config.MockConfig(&config.Configuration{
		Org: config.OrgConfig{
			ID:                  orgID,
			BaseOpeningBalance:  1_000_000,
			CorrespondentOwners: []string{testCorrespondent},
		},
		ExchangeRates: []config.ExchangeRate{
			{From: "AED", To: "USD", Rate: 0.2, ReverseRate: 5},
		},
	})
	cnf, err := config.Fetch()
	require.NoError(t, err)

	accounts := store.NewAccountStore(lockBudget)
	ledger, err := NewSaifu(
		accounts,
		store.NewTxnGroupStore(),
		store.NewTxnStore(),
		ext.NewMockRateService(cnf.ExchangeRates),
		ext.NewMockFeeService(),
		ext.NewSequentialAccountNumberGenerator(),
	)
	require.NoError(t, err)
	require.NoError(t, ledger.Bootstrap(context.Background()))

	return &testLedger{Saifu: ledger, accounts: accounts, orgID: orgID}
}

func (tl *testLedger) newUserAccount(t *testing.T, ownerID, currencyCode string, balance int64) *model.Account {
	t.Helper()
	account, err := tl.CreateAccount(context.Background(), model.CreateAccountRequest{
		CurrencyCode:   currencyCode,
		DisplayedName:  gofakeit.Name(),
		InitialBalance: decimal.NewFromInt(balance),
	}, ownerID)
	require.NoError(t, err)
	return account
}

func (tl *testLedger) balance(t *testing.T, accountNumber string) decimal.Decimal {
	t.Helper()
	account, err := tl.accounts.FindByNumber(context.Background(), accountNumber)
	require.NoError(t, err)
	return account.Balance
}

func (tl *testLedger) houseAccount(t *testing.T, currencyCode string, accountType model.AccountType) *model.Account {
	t.Helper()
	ownerID := tl.orgID
	if accountType == model.AccountTypeCorrespondent {
		ownerID = testCorrespondent
	}
	all, err := tl.accounts.FindAllByOwner(context.Background(), ownerID, 100, "")
	require.NoError(t, err)
	for _, account := range all {
		if account.CurrencyCode == currencyCode && account.Type == accountType {
			return account
		}
	}
	t.Fatalf("no %s account for %s", accountType, currencyCode)
	return nil
}

func assertBalance(t *testing.T, tl *testLedger, accountNumber string, want float64) {
	t.Helper()
	got := tl.balance(t, accountNumber)
	assert.Truef(t, got.Equal(decimal.NewFromFloat(want)), "account %s balance = %s, want %v", accountNumber, got, want)
}

// assertGroupPostings checks the recorded group's postings are fully paired
// and, for a single-currency group, that their amounts sum to zero.
func assertGroupPostings(t *testing.T, tl *testLedger, group *model.TxnGroup, wantCount int, singleCurrency bool) []*model.Txn {
	t.Helper()
	found, txns, err := tl.GetGroupPostings(context.Background(), group.TxnUUID)
	require.NoError(t, err)
	assert.Equal(t, group.ID, found.ID)
	require.Len(t, txns, wantCount)

	byID := make(map[int64]*model.Txn, len(txns))
	sum := decimal.Zero
	for _, txn := range txns {
		byID[txn.ID] = txn
		sum = sum.Add(txn.Amount)
		assert.Equal(t, model.TxnStatusSuccess, txn.Status)
		require.NotZero(t, txn.LinkedTxnID, "posting %d is unpaired", txn.ID)
	}
	for _, txn := range txns {
		counter, ok := byID[txn.LinkedTxnID]
		require.True(t, ok, "posting %d linked outside its group", txn.ID)
		assert.Equal(t, txn.ID, counter.LinkedTxnID)
		assert.Equal(t, txn.SpendingType, counter.SpendingType)
	}
	if singleCurrency {
		assert.Truef(t, sum.IsZero(), "group postings sum to %s, want 0", sum)
	}
	return txns
}

func assertErrorCode(t *testing.T, err error, code apierror.ErrorCode) {
	t.Helper()
	var apiErr apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, code, apiErr.Code)
}
