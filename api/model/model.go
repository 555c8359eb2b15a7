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
package model

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"

	"github.com/jerry-enebeli/saifu/model"
)

// CreateAccount is the request body for opening a user account.
type CreateAccount struct {
	CurrencyCode   string          `json:"currency_code"`
	DisplayedName  string          `json:"displayed_name"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

// MoneyRequest is the shared body shape for deposits and withdrawals: one
// account, an amount and the currency the amount is quoted in.
type MoneyRequest struct {
	AccountNumber string          `json:"account_number"`
	Amount        decimal.Decimal `json:"amount"`
	CurrencyCode  string          `json:"currency_code"`
	Comment       string          `json:"comment"`
}

// TransferBody is the request body for transfers and international
// transfers. The amount is quoted in the payer's currency.
type TransferBody struct {
	PayerAccountNumber    string          `json:"payer_account_number"`
	ReceiverAccountNumber string          `json:"receiver_account_number"`
	Amount                decimal.Decimal `json:"amount"`
	Comment               string          `json:"comment"`
}

func positiveAmount(value interface{}) error {
	amount, ok := value.(decimal.Decimal)
	if !ok {
		return errors.New("invalid amount")
	}
	if !amount.IsPositive() {
		return errors.New("amount must be positive")
	}
	return nil
}

func nonNegativeAmount(value interface{}) error {
	amount, ok := value.(decimal.Decimal)
	if !ok {
		return errors.New("invalid amount")
	}
	if amount.IsNegative() {
		return errors.New("amount must not be negative")
	}
	return nil
}

func (a *CreateAccount) ValidateCreateAccount() error {
	return validation.ValidateStruct(a,
		validation.Field(&a.CurrencyCode, validation.Required, validation.Length(3, 3)),
		validation.Field(&a.InitialBalance, validation.By(nonNegativeAmount)),
	)
}

func (m *MoneyRequest) ValidateMoneyRequest() error {
	return validation.ValidateStruct(m,
		validation.Field(&m.AccountNumber, validation.Required),
		validation.Field(&m.CurrencyCode, validation.Required, validation.Length(3, 3)),
		validation.Field(&m.Amount, validation.By(positiveAmount)),
	)
}

func (t *TransferBody) ValidateTransfer() error {
	return validation.ValidateStruct(t,
		validation.Field(&t.PayerAccountNumber, validation.Required),
		validation.Field(&t.ReceiverAccountNumber, validation.Required),
		validation.Field(&t.Amount, validation.By(positiveAmount)),
	)
}

func (a *CreateAccount) ToCreateAccountRequest() model.CreateAccountRequest {
	return model.CreateAccountRequest{
		CurrencyCode:   a.CurrencyCode,
		DisplayedName:  a.DisplayedName,
		InitialBalance: a.InitialBalance,
	}
}

func (m *MoneyRequest) ToDepositRequest() model.DepositRequest {
	return model.DepositRequest{
		AccountNumber: m.AccountNumber,
		Amount:        m.Amount,
		CurrencyCode:  m.CurrencyCode,
		Comment:       m.Comment,
	}
}

func (m *MoneyRequest) ToWithdrawalRequest() model.WithdrawalRequest {
	return model.WithdrawalRequest{
		AccountNumber: m.AccountNumber,
		Amount:        m.Amount,
		CurrencyCode:  m.CurrencyCode,
		Comment:       m.Comment,
	}
}

func (t *TransferBody) ToTransferRequest() model.TransferRequest {
	return model.TransferRequest{
		PayerAccountNumber:    t.PayerAccountNumber,
		ReceiverAccountNumber: t.ReceiverAccountNumber,
		Amount:                t.Amount,
		Comment:               t.Comment,
	}
}
