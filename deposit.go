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
	"github.com/jerry-enebeli/saifu/model"
	"github.com/jerry-enebeli/saifu/store"
)

// Deposit credits a user account, exchanging through the org's house
// accounts when the requested currency differs from the account's. The txn
// UUID is the caller's idempotency key: replays return the recorded result
// without touching the ledger again.
func (s *Saifu) Deposit(ctx context.Context, req model.DepositRequest, ownerID string, txnUUID uuid.UUID) (*model.TxnResult, error) {
	ctx, span := tracer.Start(ctx, "Recording deposit")
	defer span.End()

	account, err := s.userAccount(ctx, req.AccountNumber, ownerID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	group, err := s.groups.FindByUUID(ctx, txnUUID)
	switch {
	case err == nil:
		// fast path: already processed, just replay the result. The key must
		// belong to this account.
		if group.ReceiverAccountNumber != req.AccountNumber {
			err := unknownAccountError(req.AccountNumber)
			span.RecordError(err)
			return nil, err
		}
	case errors.Is(err, store.ErrTxnGroupNotFound):
		if group, err = s.processDeposit(ctx, req, account, txnUUID); err != nil {
			span.RecordError(err)
			return nil, err
		}
	default:
		return nil, err
	}

	return s.fetchExisting(ctx, group, account)
}

func (s *Saifu) processDeposit(ctx context.Context, req model.DepositRequest, account *model.Account, txnUUID uuid.UUID) (*model.TxnGroup, error) {
	if account.CurrencyCode == req.CurrencyCode {
		return s.simpleDeposit(ctx, req, txnUUID)
	}

	pair := ext.CurrencyPair{From: req.CurrencyCode, To: account.CurrencyCode}
	rate, err := s.rateFor(ctx, pair)
	if err != nil {
		return nil, err
	}
	fee, err := s.fees.ExchangeFee(ctx, pair, req.Amount)
	if err != nil {
		return nil, err
	}
	return s.crossCurrencyDeposit(ctx, req, account.CurrencyCode, txnUUID, rate, fee)
}

func (s *Saifu) simpleDeposit(ctx context.Context, req model.DepositRequest, txnUUID uuid.UUID) (*model.TxnGroup, error) {
	base, err := s.orgAccount(ctx, req.CurrencyCode, model.AccountTypeBase)
	if err != nil {
		return nil, err
	}

	handle, err := s.lockAccounts(ctx, []string{base.AccountNumber, req.AccountNumber})
	if err != nil {
		return nil, err
	}
	defer handle.Release()

	customer := handle.Account(req.AccountNumber)
	org := handle.Account(base.AccountNumber)

	group, created, err := s.createGroup(ctx, txnUUID, model.TxnTypeDeposit,
		req.Amount, req.CurrencyCode, "", req.AccountNumber, req.Comment)
	if err != nil || !created {
		return group, err
	}

	if err := s.postPair(ctx, group, model.SpendingTypeTransfer,
		customer, org,
		req.Amount, req.Amount.Neg(),
		fmt.Sprintf("Deposit: %s", req.Comment),
		fmt.Sprintf("Deposit to %s: %s", req.AccountNumber, txnUUID),
	); err != nil {
		return nil, err
	}
	return group, nil
}

func (s *Saifu) crossCurrencyDeposit(
	ctx context.Context, req model.DepositRequest, userCurrency string,
	txnUUID uuid.UUID, rate, fee decimal.Decimal,
) (*model.TxnGroup, error) {
	baseForRequest, err := s.orgAccount(ctx, req.CurrencyCode, model.AccountTypeBase)
	if err != nil {
		return nil, err
	}
	feeForRequest, err := s.orgAccount(ctx, req.CurrencyCode, model.AccountTypeFee)
	if err != nil {
		return nil, err
	}
	baseForUser, err := s.orgAccount(ctx, userCurrency, model.AccountTypeBase)
	if err != nil {
		return nil, err
	}

	handle, err := s.lockAccounts(ctx, []string{
		baseForRequest.AccountNumber,
		feeForRequest.AccountNumber,
		baseForUser.AccountNumber,
		req.AccountNumber,
	})
	if err != nil {
		return nil, err
	}
	defer handle.Release()

	customer := handle.Account(req.AccountNumber)
	baseReq := handle.Account(baseForRequest.AccountNumber)
	feeReq := handle.Account(feeForRequest.AccountNumber)
	baseUser := handle.Account(baseForUser.AccountNumber)

	exchangeFeeDetails := fmt.Sprintf("Exchange fee for deposit#%s to %s", txnUUID, req.AccountNumber)
	exchangeDetails := fmt.Sprintf("Currency Exchange for deposit#%s to %s", txnUUID, req.AccountNumber)
	userDetails := fmt.Sprintf("Deposit: %s", req.Comment)
	baseCreditDetails := fmt.Sprintf("Deposit to %s: %s", req.AccountNumber, txnUUID)

	// fee comes off the requested amount first, then the remainder converts
	exchanged := req.Amount.Sub(fee)
	depositAmount := exchanged.Mul(rate)

	group, created, err := s.createGroup(ctx, txnUUID, model.TxnTypeDeposit,
		req.Amount, req.CurrencyCode, "", req.AccountNumber, req.Comment)
	if err != nil || !created {
		return group, err
	}

	if err := s.postPair(ctx, group, model.SpendingTypeExchangeFee,
		feeReq, baseReq, fee, fee.Neg(),
		exchangeFeeDetails, exchangeFeeDetails,
	); err != nil {
		return nil, err
	}
	if err := s.postPair(ctx, group, model.SpendingTypeExchange,
		baseUser, baseReq, depositAmount, exchanged.Neg(),
		exchangeDetails, exchangeDetails,
	); err != nil {
		return nil, err
	}
	if err := s.postPair(ctx, group, model.SpendingTypeTransfer,
		customer, baseUser, depositAmount, depositAmount.Neg(),
		userDetails, baseCreditDetails,
	); err != nil {
		return nil, err
	}
	return group, nil
}
