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

// Withdraw debits a user account by the requested amount, converting from
// the account's own currency when the withdrawal is quoted in another one.
// Funds are re-validated against the locked snapshot, never the unlocked
// read that resolved the account.
func (s *Saifu) Withdraw(ctx context.Context, req model.WithdrawalRequest, ownerID string, txnUUID uuid.UUID) (*model.TxnResult, error) {
	ctx, span := tracer.Start(ctx, "Recording withdrawal")
	defer span.End()

	account, err := s.userAccount(ctx, req.AccountNumber, ownerID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	group, err := s.groups.FindByUUID(ctx, txnUUID)
	switch {
	case err == nil:
		if group.PayerAccountNumber != req.AccountNumber {
			err := unknownAccountError(req.AccountNumber)
			span.RecordError(err)
			return nil, err
		}
	case errors.Is(err, store.ErrTxnGroupNotFound):
		if group, err = s.processWithdrawal(ctx, req, account, txnUUID); err != nil {
			span.RecordError(err)
			return nil, err
		}
	default:
		return nil, err
	}

	return s.fetchExisting(ctx, group, account)
}

func (s *Saifu) processWithdrawal(ctx context.Context, req model.WithdrawalRequest, account *model.Account, txnUUID uuid.UUID) (*model.TxnGroup, error) {
	if account.CurrencyCode == req.CurrencyCode {
		return s.simpleWithdrawal(ctx, req, txnUUID)
	}

	pair := ext.CurrencyPair{From: account.CurrencyCode, To: req.CurrencyCode}
	rate, err := s.rateFor(ctx, pair)
	if err != nil {
		return nil, err
	}
	// the exchange fee is quoted on the amount expressed in the payer's own
	// currency, so divide the requested amount back through the rate
	fee, err := s.fees.ExchangeFee(ctx, pair, req.Amount.DivRound(rate, 2))
	if err != nil {
		return nil, err
	}
	return s.crossCurrencyWithdrawal(ctx, req, account.CurrencyCode, txnUUID, rate, fee)
}

func (s *Saifu) simpleWithdrawal(ctx context.Context, req model.WithdrawalRequest, txnUUID uuid.UUID) (*model.TxnGroup, error) {
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

	if customer.Balance.LessThan(req.Amount) {
		return nil, insufficientFundsError()
	}

	group, created, err := s.createGroup(ctx, txnUUID, model.TxnTypeWithdrawal,
		req.Amount, req.CurrencyCode, req.AccountNumber, "", req.Comment)
	if err != nil || !created {
		return group, err
	}

	if err := s.postPair(ctx, group, model.SpendingTypeTransfer,
		org, customer,
		req.Amount, req.Amount.Neg(),
		fmt.Sprintf("Withdrawal: %s", req.Comment),
		fmt.Sprintf("Withdrawal from %s: %s", req.AccountNumber, txnUUID),
	); err != nil {
		return nil, err
	}
	return group, nil
}

func (s *Saifu) crossCurrencyWithdrawal(
	ctx context.Context, req model.WithdrawalRequest, userCurrency string,
	txnUUID uuid.UUID, rate, fee decimal.Decimal,
) (*model.TxnGroup, error) {
	baseForRequest, err := s.orgAccount(ctx, req.CurrencyCode, model.AccountTypeBase)
	if err != nil {
		return nil, err
	}
	feeForUser, err := s.orgAccount(ctx, userCurrency, model.AccountTypeFee)
	if err != nil {
		return nil, err
	}
	baseForUser, err := s.orgAccount(ctx, userCurrency, model.AccountTypeBase)
	if err != nil {
		return nil, err
	}

	handle, err := s.lockAccounts(ctx, []string{
		baseForRequest.AccountNumber,
		feeForUser.AccountNumber,
		baseForUser.AccountNumber,
		req.AccountNumber,
	})
	if err != nil {
		return nil, err
	}
	defer handle.Release()

	customer := handle.Account(req.AccountNumber)
	baseReq := handle.Account(baseForRequest.AccountNumber)
	feeUser := handle.Account(feeForUser.AccountNumber)
	baseUser := handle.Account(baseForUser.AccountNumber)

	// fee lands on top of the converted amount, debited from the payer in
	// the payer's own currency
	sold := req.Amount.Mul(rate)
	withdrawnAmount := sold.Add(fee)

	if customer.Balance.LessThan(withdrawnAmount) {
		return nil, insufficientFundsError()
	}

	exchangeFeeDetails := fmt.Sprintf("Exchange fee for withdrawal#%s to %s", txnUUID, req.AccountNumber)
	exchangeDetails := fmt.Sprintf("Currency Exchange for withdrawal#%s to %s", txnUUID, req.AccountNumber)
	userDetails := fmt.Sprintf("Withdrawal: %s", req.Comment)
	baseDebitDetails := fmt.Sprintf("Withdrawal from %s: %s", req.AccountNumber, txnUUID)

	group, created, err := s.createGroup(ctx, txnUUID, model.TxnTypeWithdrawal,
		req.Amount, req.CurrencyCode, req.AccountNumber, "", req.Comment)
	if err != nil || !created {
		return group, err
	}

	if err := s.postPair(ctx, group, model.SpendingTypeTransfer,
		baseUser, customer, withdrawnAmount, withdrawnAmount.Neg(),
		baseDebitDetails, userDetails,
	); err != nil {
		return nil, err
	}
	if err := s.postPair(ctx, group, model.SpendingTypeExchangeFee,
		feeUser, baseUser, fee, fee.Neg(),
		exchangeFeeDetails, exchangeFeeDetails,
	); err != nil {
		return nil, err
	}
	if err := s.postPair(ctx, group, model.SpendingTypeExchange,
		baseReq, baseUser, req.Amount, sold.Neg(),
		exchangeDetails, exchangeDetails,
	); err != nil {
		return nil, err
	}
	return group, nil
}
