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

// InternationalTransfer sends money from a user account to a correspondent
// account standing in for an external institution. On top of any currency
// exchange, the correspondent's network charges a flat international fee which
// is retained in the org's fee account for the correspondent's currency.
func (s *Saifu) InternationalTransfer(ctx context.Context, req model.TransferRequest, ownerID string, txnUUID uuid.UUID) (*model.TxnResult, error) {
	ctx, span := tracer.Start(ctx, "Recording international transfer")
	defer span.End()

	payer, err := s.userAccount(ctx, req.PayerAccountNumber, ownerID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	receiver, err := s.receiverAccount(ctx, req.ReceiverAccountNumber, model.AccountTypeCorrespondent)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	group, err := s.groups.FindByUUID(ctx, txnUUID)
	switch {
	case err == nil:
		if group.PayerAccountNumber != req.PayerAccountNumber {
			err := unknownAccountError(req.PayerAccountNumber)
			span.RecordError(err)
			return nil, err
		}
	case errors.Is(err, store.ErrTxnGroupNotFound):
		if group, err = s.processInternationalTransfer(ctx, req, payer, receiver, txnUUID); err != nil {
			span.RecordError(err)
			return nil, err
		}
	default:
		return nil, err
	}

	return s.fetchExisting(ctx, group, payer)
}

func (s *Saifu) processInternationalTransfer(ctx context.Context, req model.TransferRequest, payer, receiver *model.Account, txnUUID uuid.UUID) (*model.TxnGroup, error) {
	if payer.CurrencyCode == receiver.CurrencyCode {
		fee, err := s.fees.InternationalFee(ctx, payer.CurrencyCode, req.Amount)
		if err != nil {
			return nil, err
		}
		return s.simpleInternationalTransfer(ctx, req, payer.CurrencyCode, txnUUID, fee)
	}

	pair := ext.CurrencyPair{From: payer.CurrencyCode, To: receiver.CurrencyCode}
	rate, err := s.rateFor(ctx, pair)
	if err != nil {
		return nil, err
	}
	exchangeFee, err := s.fees.ExchangeFee(ctx, pair, req.Amount)
	if err != nil {
		return nil, err
	}
	bought := req.Amount.Sub(exchangeFee).Mul(rate)
	interFee, err := s.fees.InternationalFee(ctx, receiver.CurrencyCode, bought)
	if err != nil {
		return nil, err
	}
	return s.crossCurrencyInternationalTransfer(ctx, req, payer.CurrencyCode, receiver.CurrencyCode, txnUUID, rate, exchangeFee, interFee)
}

func (s *Saifu) simpleInternationalTransfer(ctx context.Context, req model.TransferRequest, currencyCode string, txnUUID uuid.UUID, fee decimal.Decimal) (*model.TxnGroup, error) {
	base, err := s.orgAccount(ctx, currencyCode, model.AccountTypeBase)
	if err != nil {
		return nil, err
	}
	feeAccount, err := s.orgAccount(ctx, currencyCode, model.AccountTypeFee)
	if err != nil {
		return nil, err
	}

	handle, err := s.lockAccounts(ctx, []string{
		base.AccountNumber, feeAccount.AccountNumber,
		req.PayerAccountNumber, req.ReceiverAccountNumber,
	})
	if err != nil {
		return nil, err
	}
	defer handle.Release()

	payer := handle.Account(req.PayerAccountNumber)
	receiver := handle.Account(req.ReceiverAccountNumber)
	baseAccount := handle.Account(base.AccountNumber)
	feeHolder := handle.Account(feeAccount.AccountNumber)

	if payer.Balance.LessThan(req.Amount) {
		return nil, insufficientFundsError()
	}

	depositAmount := req.Amount.Sub(fee)

	baseDetails := fmt.Sprintf("International transfer#%s from %s to %s",
		txnUUID, req.PayerAccountNumber, req.ReceiverAccountNumber)
	feeDetails := fmt.Sprintf("International transfer fee for transfer#%s from %s to %s",
		txnUUID, req.PayerAccountNumber, req.ReceiverAccountNumber)

	group, created, err := s.createGroup(ctx, txnUUID, model.TxnTypeInterTransfer,
		req.Amount, currencyCode, req.PayerAccountNumber, req.ReceiverAccountNumber, req.Comment)
	if err != nil || !created {
		return group, err
	}

	if err := s.postPair(ctx, group, model.SpendingTypeTransfer,
		baseAccount, payer, req.Amount, req.Amount.Neg(),
		baseDetails,
		fmt.Sprintf("International transfer to %s: %s", req.ReceiverAccountNumber, req.Comment),
	); err != nil {
		return nil, err
	}
	if err := s.postPair(ctx, group, model.SpendingTypeFee,
		feeHolder, baseAccount, fee, fee.Neg(),
		feeDetails, feeDetails,
	); err != nil {
		return nil, err
	}
	if err := s.postPair(ctx, group, model.SpendingTypeTransfer,
		receiver, baseAccount, depositAmount, depositAmount.Neg(),
		fmt.Sprintf("International transfer from %s: %s", req.PayerAccountNumber, req.Comment),
		baseDetails,
	); err != nil {
		return nil, err
	}
	return group, nil
}

func (s *Saifu) crossCurrencyInternationalTransfer(
	ctx context.Context, req model.TransferRequest, payerCurrency, receiverCurrency string,
	txnUUID uuid.UUID, rate, exchangeFee, interFee decimal.Decimal,
) (*model.TxnGroup, error) {
	baseForPayer, err := s.orgAccount(ctx, payerCurrency, model.AccountTypeBase)
	if err != nil {
		return nil, err
	}
	feeForPayer, err := s.orgAccount(ctx, payerCurrency, model.AccountTypeFee)
	if err != nil {
		return nil, err
	}
	baseForReceiver, err := s.orgAccount(ctx, receiverCurrency, model.AccountTypeBase)
	if err != nil {
		return nil, err
	}
	feeForReceiver, err := s.orgAccount(ctx, receiverCurrency, model.AccountTypeFee)
	if err != nil {
		return nil, err
	}

	handle, err := s.lockAccounts(ctx, []string{
		baseForPayer.AccountNumber,
		feeForPayer.AccountNumber,
		baseForReceiver.AccountNumber,
		feeForReceiver.AccountNumber,
		req.PayerAccountNumber,
		req.ReceiverAccountNumber,
	})
	if err != nil {
		return nil, err
	}
	defer handle.Release()

	payer := handle.Account(req.PayerAccountNumber)
	receiver := handle.Account(req.ReceiverAccountNumber)
	basePayer := handle.Account(baseForPayer.AccountNumber)
	feePayer := handle.Account(feeForPayer.AccountNumber)
	baseReceiver := handle.Account(baseForReceiver.AccountNumber)
	feeReceiver := handle.Account(feeForReceiver.AccountNumber)

	withdrawnAmount := req.Amount
	exchanged := withdrawnAmount.Sub(exchangeFee)
	bought := exchanged.Mul(rate)
	depositAmount := bought.Sub(interFee)

	if payer.Balance.LessThan(withdrawnAmount) {
		return nil, insufficientFundsError()
	}

	baseDetails := fmt.Sprintf("International transfer#%s from %s to %s",
		txnUUID, req.PayerAccountNumber, req.ReceiverAccountNumber)
	exchangeFeeDetails := fmt.Sprintf("Exchange fee for transfer#%s from %s to %s",
		txnUUID, req.PayerAccountNumber, req.ReceiverAccountNumber)
	exchangeDetails := fmt.Sprintf("Currency Exchange for transfer#%s from %s to %s",
		txnUUID, req.PayerAccountNumber, req.ReceiverAccountNumber)
	interFeeDetails := fmt.Sprintf("International transfer fee for transfer#%s from %s to %s",
		txnUUID, req.PayerAccountNumber, req.ReceiverAccountNumber)

	group, created, err := s.createGroup(ctx, txnUUID, model.TxnTypeInterTransfer,
		req.Amount, payerCurrency, req.PayerAccountNumber, req.ReceiverAccountNumber, req.Comment)
	if err != nil || !created {
		return group, err
	}

	if err := s.postPair(ctx, group, model.SpendingTypeTransfer,
		basePayer, payer, withdrawnAmount, withdrawnAmount.Neg(),
		baseDetails,
		fmt.Sprintf("International transfer to %s: %s", req.ReceiverAccountNumber, req.Comment),
	); err != nil {
		return nil, err
	}
	if err := s.postPair(ctx, group, model.SpendingTypeExchangeFee,
		feePayer, basePayer, exchangeFee, exchangeFee.Neg(),
		exchangeFeeDetails, exchangeFeeDetails,
	); err != nil {
		return nil, err
	}
	if err := s.postPair(ctx, group, model.SpendingTypeExchange,
		baseReceiver, basePayer, bought, exchanged.Neg(),
		exchangeDetails, exchangeDetails,
	); err != nil {
		return nil, err
	}
	if err := s.postPair(ctx, group, model.SpendingTypeFee,
		feeReceiver, baseReceiver, interFee, interFee.Neg(),
		interFeeDetails, interFeeDetails,
	); err != nil {
		return nil, err
	}
	if err := s.postPair(ctx, group, model.SpendingTypeTransfer,
		receiver, baseReceiver, depositAmount, depositAmount.Neg(),
		fmt.Sprintf("International transfer from %s: %s", req.PayerAccountNumber, req.Comment),
		baseDetails,
	); err != nil {
		return nil, err
	}
	return group, nil
}
