package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TxnType string

const (
	TxnTypeDeposit       TxnType = "DEPOSIT"
	TxnTypeWithdrawal    TxnType = "WITHDRAWAL"
	TxnTypeTransfer      TxnType = "TRANSFER"
	TxnTypeInterTransfer TxnType = "INTER_TRANSFER"
)

type SpendingType string

const (
	SpendingTypeTransfer    SpendingType = "TRANSFER"
	SpendingTypeExchange    SpendingType = "EXCHANGE"
	SpendingTypeExchangeFee SpendingType = "EXCHANGE_FEE"
	SpendingTypeFee         SpendingType = "FEE"
)

type TxnStatus string

const (
	TxnStatusSuccess TxnStatus = "SUCCESS"
)

// Txn is a single signed posting against one account. Every txn is created as
// one half of a linked pair whose amounts sum to zero, and is immutable once
// written (LinkedTxnID is set exactly once, right after the pair is created).
type Txn struct {
	ID           int64           `json:"id"`
	AccountID    int64           `json:"account_id"`
	TxnGroupID   int64           `json:"txn_group_id"`
	Amount       decimal.Decimal `json:"amount"`
	Status       TxnStatus       `json:"status"`
	LinkedTxnID  int64           `json:"linked_txn_id,omitempty"`
	SpendingType SpendingType    `json:"spending_type"`
	Details      string          `json:"details"`
	CreatedAt    time.Time       `json:"created_at"`
}

// TxnGroup records one logical money operation, keyed by the caller-supplied
// idempotency UUID. A group and its postings are created together inside the
// lock window and never change afterwards.
type TxnGroup struct {
	ID                    int64           `json:"id"`
	TxnUUID               uuid.UUID       `json:"txn_uuid"`
	Amount                decimal.Decimal `json:"amount"`
	CurrencyCode          string          `json:"currency_code"`
	Type                  TxnType         `json:"type"`
	PayerAccountNumber    string          `json:"payer_account_number,omitempty"`
	ReceiverAccountNumber string          `json:"receiver_account_number,omitempty"`
	Comment               string          `json:"comment,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
}

// TxnResult is the caller-visible outcome of an operation. It is built from
// the requesting account's TRANSFER posting, so a replayed idempotency key
// produces the identical result.
type TxnResult struct {
	TxnID        int64           `json:"txn_id"`
	AccountID    int64           `json:"account_id"`
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currency_code"`
	Status       TxnStatus       `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}

func NewTxnResult(txn *Txn, account *Account) *TxnResult {
	return &TxnResult{
		TxnID:        txn.ID,
		AccountID:    txn.AccountID,
		Amount:       txn.Amount,
		CurrencyCode: account.CurrencyCode,
		Status:       txn.Status,
		CreatedAt:    txn.CreatedAt,
	}
}
