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
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/jerry-enebeli/saifu/ext"
	"github.com/jerry-enebeli/saifu/internal/apierror"
	"github.com/jerry-enebeli/saifu/model"
	"github.com/jerry-enebeli/saifu/store"
)

func unknownAccountError(accountNumber string) error {
	return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("unknown user account %s", accountNumber), nil)
}

func unknownCorrespondentError(accountNumber string) error {
	return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("unknown correspondent account %s", accountNumber), nil)
}

func insufficientFundsError() error {
	return apierror.NewAPIError(apierror.ErrInsufficientFunds, "insufficient funds", nil)
}

func retryLaterError() error {
	return apierror.NewAPIError(apierror.ErrRetryLater, "account locks are contended, resubmit with the same txn uuid", nil)
}

// userAccount resolves an account number to a live USER account owned by the
// caller. Anything else is reported as unknown to avoid leaking other
// owners' account numbers.
func (s *Saifu) userAccount(ctx context.Context, accountNumber, ownerID string) (*model.Account, error) {
	account, err := s.accounts.FindByNumber(ctx, accountNumber)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, unknownAccountError(accountNumber)
		}
		return nil, err
	}
	if account.Type != model.AccountTypeUser || account.OwnerID != ownerID {
		return nil, unknownAccountError(accountNumber)
	}
	return account, nil
}

func (s *Saifu) receiverAccount(ctx context.Context, accountNumber string, accountType model.AccountType) (*model.Account, error) {
	account, err := s.accounts.FindByNumber(ctx, accountNumber)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			if accountType == model.AccountTypeCorrespondent {
				return nil, unknownCorrespondentError(accountNumber)
			}
			return nil, unknownAccountError(accountNumber)
		}
		return nil, err
	}
	if account.Type != accountType {
		if accountType == model.AccountTypeCorrespondent {
			return nil, unknownCorrespondentError(accountNumber)
		}
		return nil, unknownAccountError(accountNumber)
	}
	return account, nil
}

// orgAccount finds the organization's house account for a currency and kind.
// House accounts are provisioned at bootstrap, so a miss here is an
// operational fault rather than caller error.
func (s *Saifu) orgAccount(ctx context.Context, currencyCode string, accountType model.AccountType) (*model.Account, error) {
	accounts, err := s.accounts.FindAllByOwner(ctx, s.orgID, 10000, "")
	if err != nil {
		return nil, err
	}
	for _, account := range accounts {
		if account.CurrencyCode == currencyCode && account.Type == accountType {
			return account, nil
		}
	}
	return nil, apierror.NewAPIError(apierror.ErrInternalServer,
		fmt.Sprintf("org %s account for currency %s is not provisioned", accountType, currencyCode), nil)
}

// rateFor looks up the exchange rate for one pair. A pair absent from the
// rate service's answer is unsupported, a terminal business failure.
func (s *Saifu) rateFor(ctx context.Context, pair ext.CurrencyPair) (decimal.Decimal, error) {
	rates, err := s.rates.GetRates(ctx, []ext.CurrencyPair{pair})
	if err != nil {
		return decimal.Zero, err
	}
	rate, ok := rates[pair]
	if !ok {
		return decimal.Zero, apierror.NewAPIError(apierror.ErrInvalidInput,
			fmt.Sprintf("unsupported currency pair %s", pair), nil)
	}
	return rate, nil
}

// lockAccounts maps an acquisition timeout onto the retryable error the
// caller layer keys its resubmission on.
func (s *Saifu) lockAccounts(ctx context.Context, accountNumbers []string) (*store.LockHandle, error) {
	handle, err := s.accounts.LockAccounts(ctx, accountNumbers)
	if err != nil {
		if errors.Is(err, store.ErrLockTimeout) {
			return nil, retryLaterError()
		}
		return nil, err
	}
	return handle, nil
}

// createGroup runs the authoritative idempotency arbitration. It is called
// with every involved account lock held, so when the merge reports the group
// already exists, its postings were fully applied by a prior submission and
// the caller must skip posting.
func (s *Saifu) createGroup(
	ctx context.Context, txnUUID uuid.UUID, txnType model.TxnType,
	amount decimal.Decimal, currencyCode, payerNumber, receiverNumber, comment string,
) (*model.TxnGroup, bool, error) {
	created, group, err := s.groups.Merge(ctx, &model.TxnGroup{
		TxnUUID:               txnUUID,
		Amount:                amount,
		CurrencyCode:          currencyCode,
		Type:                  txnType,
		PayerAccountNumber:    payerNumber,
		ReceiverAccountNumber: receiverNumber,
		Comment:               comment,
	})
	if err != nil {
		return nil, false, err
	}
	return group, created, nil
}

// postPair writes one linked posting pair and applies both balance deltas.
// For same-currency pairs the two amounts are equal and opposite; for
// exchange pairs each side is denominated in its own account's currency.
func (s *Saifu) postPair(
	ctx context.Context, group *model.TxnGroup, spendingType model.SpendingType,
	to, from *model.Account, toAmount, fromAmount decimal.Decimal,
	toDetails, fromDetails string,
) error {
	toTxn, err := s.txns.Create(ctx, &model.Txn{
		AccountID:    to.ID,
		TxnGroupID:   group.ID,
		Amount:       toAmount,
		Status:       model.TxnStatusSuccess,
		SpendingType: spendingType,
		Details:      toDetails,
	})
	if err != nil {
		return errors.Wrap(err, "creating credit posting")
	}
	fromTxn, err := s.txns.Create(ctx, &model.Txn{
		AccountID:    from.ID,
		TxnGroupID:   group.ID,
		Amount:       fromAmount,
		Status:       model.TxnStatusSuccess,
		SpendingType: spendingType,
		Details:      fromDetails,
	})
	if err != nil {
		return errors.Wrap(err, "creating debit posting")
	}
	if err := s.txns.Link(ctx, toTxn.ID, fromTxn.ID); err != nil {
		return errors.Wrap(err, "linking posting pair")
	}
	if _, err := s.accounts.UpdateBalance(ctx, to.ID, toTxn.ID, toAmount); err != nil {
		return errors.Wrapf(err, "applying credit to account %d", to.ID)
	}
	if _, err := s.accounts.UpdateBalance(ctx, from.ID, fromTxn.ID, fromAmount); err != nil {
		return errors.Wrapf(err, "applying debit to account %d", from.ID)
	}
	return nil
}

// fetchExisting reads back the requesting account's TRANSFER posting for a
// group. It serves freshly posted operations and idempotent replays alike,
// which is what makes the two responses identical.
func (s *Saifu) fetchExisting(ctx context.Context, group *model.TxnGroup, account *model.Account) (*model.TxnResult, error) {
	txn, err := s.txns.FindByGroupAccountAndSpendingType(ctx, group.ID, account.ID, model.SpendingTypeTransfer)
	if err != nil {
		return nil, errors.Wrapf(err, "group %d has no TRANSFER posting for account %d", group.ID, account.ID)
	}
	return model.NewTxnResult(txn, account), nil
}

// GetGroupPostings returns a group and every posting created for it, looked
// up by idempotency UUID.
func (s *Saifu) GetGroupPostings(ctx context.Context, txnUUID uuid.UUID) (*model.TxnGroup, []*model.Txn, error) {
	group, err := s.groups.FindByUUID(ctx, txnUUID)
	if err != nil {
		if errors.Is(err, store.ErrTxnGroupNotFound) {
			return nil, nil, apierror.NewAPIError(apierror.ErrNotFound,
				fmt.Sprintf("no transaction recorded for %s", txnUUID), nil)
		}
		return nil, nil, err
	}
	txns, err := s.txns.FindAllByGroup(ctx, group.ID)
	if err != nil {
		return nil, nil, err
	}
	return group, txns, nil
}
