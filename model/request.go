package model

import (
	"github.com/shopspring/decimal"
)

// The three money-request shapes share amount/currency/comment but carry only
// the account numbers relevant to their operation kind; the engine dispatches
// on the concrete type rather than a common base.

type DepositRequest struct {
	AccountNumber string
	Amount        decimal.Decimal
	CurrencyCode  string
	Comment       string
}

type WithdrawalRequest struct {
	AccountNumber string
	Amount        decimal.Decimal
	CurrencyCode  string
	Comment       string
}

// TransferRequest carries no currency: the amount is always quoted in the
// payer account's currency.
type TransferRequest struct {
	PayerAccountNumber    string
	ReceiverAccountNumber string
	Amount                decimal.Decimal
	Comment               string
}

type CreateAccountRequest struct {
	CurrencyCode   string
	DisplayedName  string
	InitialBalance decimal.Decimal
}
