package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeUser          AccountType = "USER"
	AccountTypeBase          AccountType = "BASE"
	AccountTypeFee           AccountType = "FEE"
	AccountTypeCorrespondent AccountType = "CORRESPONDENT"
)

// Account is one ledger account. Balance always equals the sum of every
// posting ever applied to it, and CurrencyCode never changes after creation.
type Account struct {
	ID            int64           `json:"id"`
	OwnerID       string          `json:"owner_id"`
	AccountNumber string          `json:"account_number"`
	Balance       decimal.Decimal `json:"balance"`
	CurrencyCode  string          `json:"currency_code"`
	DisplayedName string          `json:"displayed_name"`
	LastTxnID     int64           `json:"last_txn_id,omitempty"`
	Type          AccountType     `json:"type"`
	CreatedAt     time.Time       `json:"created_at"`
	DeletedAt     *time.Time      `json:"deleted_at,omitempty"`
}

func (a *Account) IsDeleted() bool {
	return a.DeletedAt != nil
}
