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

// Transfer moves money between two user accounts held at this institution.
// When the accounts are in different currencies, the amount is exchanged
// through the org's house accounts at the current rate, net of the exchange
// fee. The payer must be owned by the caller; the receiver may be anyone's.
func (s *Saifu) Transfer(ctx context.Context, req model.TransferRequest, ownerID string, txnUUID uuid.UUID) (*model.TxnResult, error) {
	ctx, span := tracer.Start(ctx, "Recording transfer")
	defer span.End()

	if req.PayerAccountNumber == req.ReceiverAccountNumber {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput,
			fmt.Sprintf("cannot transfer from account %s to itself", req.PayerAccountNumber), nil)
	}

	payer, err := s.userAccount(ctx, req.PayerAccountNumber, ownerID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	receiver, err := s.receiverAccount(ctx, req.ReceiverAccountNumber, model.AccountTypeUser)
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
		if group, err = s.processTransfer(ctx, req, payer, receiver, txnUUID); err != nil {
			span.RecordError(err)
			return nil, err
		}
	default:
		return nil, err
	}

	return s.fetchExisting(ctx, group, payer)
}

func (s *Saifu) processTransfer(ctx context.Context, req model.TransferRequest, payer, receiver *model.Account, txnUUID uuid.UUID) (*model.TxnGroup, error) {
	if payer.CurrencyCode == receiver.CurrencyCode {
		return s.simpleTransfer(ctx, req, payer.CurrencyCode, txnUUID)
	}

	pair := ext.CurrencyPair{From: payer.CurrencyCode, To: receiver.CurrencyCode}
	rate, err := s.rateFor(ctx, pair)
	if err != nil {
		return nil, err
	}
	fee, err := s.fees.ExchangeFee(ctx, pair, req.Amount)
	if err != nil {
		return nil, err
	}
	return s.crossCurrencyTransfer(ctx, req, payer.CurrencyCode, receiver.CurrencyCode, txnUUID, rate, fee)
}

func (s *Saifu) simpleTransfer(ctx context.Context, req model.TransferRequest, currencyCode string, txnUUID uuid.UUID) (*model.TxnGroup, error) {
	handle, err := s.lockAccounts(ctx, []string{req.PayerAccountNumber, req.ReceiverAccountNumber})
	if err != nil {
		return nil, err
	}
	defer handle.Release()

	payer := handle.Account(req.PayerAccountNumber)
	receiver := handle.Account(req.ReceiverAccountNumber)

	if payer.Balance.LessThan(req.Amount) {
		return nil, insufficientFundsError()
	}

	group, created, err := s.createGroup(ctx, txnUUID, model.TxnTypeTransfer,
		req.Amount, currencyCode, req.PayerAccountNumber, req.ReceiverAccountNumber, req.Comment)
	if err != nil || !created {
		return group, err
	}

	if err := s.postPair(ctx, group, model.SpendingTypeTransfer,
		receiver, payer,
		req.Amount, req.Amount.Neg(),
		fmt.Sprintf("Transfer from %s: %s", req.PayerAccountNumber, req.Comment),
		fmt.Sprintf("Transfer to %s: %s", req.ReceiverAccountNumber, req.Comment),
	); err != nil {
		return nil, err
	}
	return group, nil
}

func (s *Saifu) crossCurrencyTransfer(
	ctx context.Context, req model.TransferRequest, payerCurrency, receiverCurrency string,
	txnUUID uuid.UUID, rate, fee decimal.Decimal,
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

	handle, err := s.lockAccounts(ctx, []string{
		baseForPayer.AccountNumber,
		feeForPayer.AccountNumber,
		baseForReceiver.AccountNumber,
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

	withdrawnAmount := req.Amount
	exchanged := withdrawnAmount.Sub(fee)
	depositAmount := exchanged.Mul(rate)

	if payer.Balance.LessThan(withdrawnAmount) {
		return nil, insufficientFundsError()
	}

	exchangeFeeDetails := fmt.Sprintf("Exchange fee for transfer#%s from %s to %s",
		txnUUID, req.PayerAccountNumber, req.ReceiverAccountNumber)
	exchangeDetails := fmt.Sprintf("Currency Exchange for transfer#%s from %s to %s",
		txnUUID, req.PayerAccountNumber, req.ReceiverAccountNumber)
	payerDetails := fmt.Sprintf("Transfer to %s: %s", req.ReceiverAccountNumber, req.Comment)
	receiverDetails := fmt.Sprintf("Transfer from %s: %s", req.PayerAccountNumber, req.Comment)
	baseDetails := fmt.Sprintf("Transfer#%s from %s to %s",
		txnUUID, req.PayerAccountNumber, req.ReceiverAccountNumber)

	group, created, err := s.createGroup(ctx, txnUUID, model.TxnTypeTransfer,
		req.Amount, payerCurrency, req.PayerAccountNumber, req.ReceiverAccountNumber, req.Comment)
	if err != nil || !created {
		return group, err
	}

	if err := s.postPair(ctx, group, model.SpendingTypeTransfer,
		basePayer, payer, withdrawnAmount, withdrawnAmount.Neg(),
		baseDetails, payerDetails,
	); err != nil {
		return nil, err
	}
	if err := s.postPair(ctx, group, model.SpendingTypeExchangeFee,
		feePayer, basePayer, fee, fee.Neg(),
		exchangeFeeDetails, exchangeFeeDetails,
	); err != nil {
		return nil, err
	}
	if err := s.postPair(ctx, group, model.SpendingTypeExchange,
		baseReceiver, basePayer, depositAmount, exchanged.Neg(),
		exchangeDetails, exchangeDetails,
	); err != nil {
		return nil, err
	}
	if err := s.postPair(ctx, group, model.SpendingTypeTransfer,
		receiver, baseReceiver, depositAmount, depositAmount.Neg(),
		receiverDetails, baseDetails,
	); err != nil {
		return nil, err
	}
	return group, nil
}
