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

package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jerry-enebeli/saifu/model"
)

var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrTxnGroupNotFound = errors.New("txn group not found")
	ErrTxnNotFound      = errors.New("txn not found")

	// ErrLockTimeout means the shared acquisition deadline elapsed before
	// every requested account lock was held. The call leaves no locks behind
	// and is safe to retry.
	ErrLockTimeout = errors.New("account locks not acquired within deadline")
)

// DataInconsistencyError reports a breached structural invariant, such as a
// duplicate account number. It is a store-layer bug signal, never a business
// outcome, and must not be swallowed.
type DataInconsistencyError struct {
	Constraint string
}

func (e DataInconsistencyError) Error() string {
	return fmt.Sprintf("constraint violation: %s", e.Constraint)
}

// AccountRepository owns account records and the per-account mutual-exclusion
// primitive used to serialize postings that touch overlapping account sets.
type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) (*model.Account, error)
	FindByID(ctx context.Context, id int64) (*model.Account, error)
	FindByNumber(ctx context.Context, accountNumber string) (*model.Account, error)
	FindAllByOwner(ctx context.Context, ownerID string, count int, afterNumber string) ([]*model.Account, error)
	FindAllUserAccounts(ctx context.Context, count int, afterNumber string) ([]*model.Account, error)
	FindAllUserAccountsByOwner(ctx context.Context, ownerID string, count int, afterNumber string) ([]*model.Account, error)
	UpdateBalance(ctx context.Context, accountID, txnID int64, delta decimal.Decimal) (*model.Account, error)
	DeleteByIDAndOwner(ctx context.Context, id int64, ownerID string) (bool, error)

	// LockAccounts acquires every named account's lock in ascending
	// account-number order under one shared deadline. On timeout it returns
	// ErrLockTimeout with every partially acquired lock already released.
	LockAccounts(ctx context.Context, accountNumbers []string) (*LockHandle, error)
}

// TxnGroupRepository is the idempotency gate: exactly one caller wins the
// race to create a group for a given txn UUID.
type TxnGroupRepository interface {
	Merge(ctx context.Context, group *model.TxnGroup) (createdNew bool, merged *model.TxnGroup, err error)
	FindByUUID(ctx context.Context, txnUUID uuid.UUID) (*model.TxnGroup, error)
}

// TxnRepository owns individual postings and their pairwise linkage.
type TxnRepository interface {
	Create(ctx context.Context, txn *model.Txn) (*model.Txn, error)
	Link(ctx context.Context, txnID, linkedTxnID int64) error
	FindByGroupAccountAndSpendingType(ctx context.Context, txnGroupID, accountID int64, spendingType model.SpendingType) (*model.Txn, error)
	FindAllByGroup(ctx context.Context, txnGroupID int64) ([]*model.Txn, error)
}

// LockHandle holds a set of acquired account locks together with the locked
// snapshot of the accounts. Release is idempotent and must run on every exit
// path, normally via defer.
type LockHandle struct {
	accounts map[string]*model.Account
	release  func()
	once     sync.Once
}

func newLockHandle(accounts map[string]*model.Account, release func()) *LockHandle {
	return &LockHandle{accounts: accounts, release: release}
}

// Account returns the locked snapshot of the account with the given number,
// or nil if it was not part of the lock set.
func (h *LockHandle) Account(accountNumber string) *model.Account {
	return h.accounts[accountNumber]
}

func (h *LockHandle) Accounts() map[string]*model.Account {
	return h.accounts
}

func (h *LockHandle) Release() {
	h.once.Do(h.release)
}
