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
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jerry-enebeli/saifu/model"
)

const (
	accountSeqStart = 100500

	// DefaultLockBudget bounds one whole LockAccounts call. Past it the
	// caller gets ErrLockTimeout and is expected to resubmit.
	DefaultLockBudget = 2 * time.Second
)

// accountEntry pairs the canonical account record with its mutual-exclusion
// primitive. The semaphore channel carries at most one token, which makes a
// timed try-lock possible with a plain select.
type accountEntry struct {
	account *model.Account
	sem     chan struct{}
}

// AccountStore is the in-memory AccountRepository. Reads hand out copies;
// the canonical records are only ever mutated through UpdateBalance, which
// callers invoke while holding the account's lock.
type AccountStore struct {
	mu         sync.Mutex
	byID       map[int64]*accountEntry
	byNumber   map[string]*accountEntry
	numbers    []string // ascending, the canonical lock order
	seq        int64
	lockBudget time.Duration
}

func NewAccountStore(lockBudget time.Duration) *AccountStore {
	if lockBudget <= 0 {
		lockBudget = DefaultLockBudget
	}
	return &AccountStore{
		byID:       make(map[int64]*accountEntry),
		byNumber:   make(map[string]*accountEntry),
		seq:        accountSeqStart,
		lockBudget: lockBudget,
	}
}

func copyAccount(account *model.Account) *model.Account {
	cp := *account
	return &cp
}

func (s *AccountStore) Create(_ context.Context, account *model.Account) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byNumber[account.AccountNumber]; exists {
		return nil, DataInconsistencyError{Constraint: "ACC_NUM_UC"}
	}

	account.ID = s.seq
	s.seq++
	account.CreatedAt = time.Now()

	entry := &accountEntry{account: copyAccount(account), sem: make(chan struct{}, 1)}
	s.byID[account.ID] = entry
	s.byNumber[account.AccountNumber] = entry

	at := sort.SearchStrings(s.numbers, account.AccountNumber)
	s.numbers = append(s.numbers, "")
	copy(s.numbers[at+1:], s.numbers[at:])
	s.numbers[at] = account.AccountNumber

	return copyAccount(account), nil
}

func (s *AccountStore) FindByID(_ context.Context, id int64) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.byID[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return copyAccount(entry.account), nil
}

func (s *AccountStore) FindByNumber(_ context.Context, accountNumber string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.byNumber[accountNumber]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return copyAccount(entry.account), nil
}

func (s *AccountStore) FindAllByOwner(_ context.Context, ownerID string, count int, afterNumber string) ([]*model.Account, error) {
	return s.list(count, afterNumber, func(a *model.Account) bool {
		return a.OwnerID == ownerID
	}), nil
}

func (s *AccountStore) FindAllUserAccounts(_ context.Context, count int, afterNumber string) ([]*model.Account, error) {
	return s.list(count, afterNumber, func(a *model.Account) bool {
		return a.Type == model.AccountTypeUser
	}), nil
}

func (s *AccountStore) FindAllUserAccountsByOwner(_ context.Context, ownerID string, count int, afterNumber string) ([]*model.Account, error) {
	return s.list(count, afterNumber, func(a *model.Account) bool {
		return a.Type == model.AccountTypeUser && a.OwnerID == ownerID
	}), nil
}

// list walks account numbers in ascending order, skipping soft-deleted
// records, and keyset-paginates strictly after afterNumber.
func (s *AccountStore) list(count int, afterNumber string, match func(*model.Account) bool) []*model.Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := make([]*model.Account, 0, count)
	start := 0
	if afterNumber != "" {
		start = sort.SearchStrings(s.numbers, afterNumber)
		if start < len(s.numbers) && s.numbers[start] == afterNumber {
			start++
		}
	}
	for _, number := range s.numbers[start:] {
		if len(accounts) == count {
			break
		}
		account := s.byNumber[number].account
		if account.IsDeleted() || !match(account) {
			continue
		}
		accounts = append(accounts, copyAccount(account))
	}
	return accounts
}

// UpdateBalance atomically adds delta to the account's balance and records
// txnID as its last applied posting. A missing account is a consistency fault
// because accounts are never hard-deleted.
func (s *AccountStore) UpdateBalance(_ context.Context, accountID, txnID int64, delta decimal.Decimal) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.byID[accountID]
	if !ok {
		return nil, DataInconsistencyError{Constraint: "ACC_BALANCE_TARGET"}
	}
	entry.account.Balance = entry.account.Balance.Add(delta)
	entry.account.LastTxnID = txnID
	return copyAccount(entry.account), nil
}

func (s *AccountStore) DeleteByIDAndOwner(_ context.Context, id int64, ownerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.byID[id]
	if !ok || entry.account.OwnerID != ownerID {
		return false, nil
	}
	if entry.account.IsDeleted() {
		return false, nil
	}
	now := time.Now()
	entry.account.DeletedAt = &now
	return true, nil
}

// LockAccounts locks every named account in ascending account-number order.
// The sorted order makes concurrent acquisitions over overlapping sets
// deadlock-free; the shared budget turns unresolvable contention into a
// retryable failure instead of an indefinite stall.
func (s *AccountStore) LockAccounts(ctx context.Context, accountNumbers []string) (*LockHandle, error) {
	numbers := dedupeSorted(accountNumbers)

	deadline := time.NewTimer(s.lockBudget)
	defer deadline.Stop()

	acquired := make([]*accountEntry, 0, len(numbers))
	release := func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			<-acquired[i].sem
		}
	}

	snapshot := make(map[string]*model.Account, len(numbers))
	for _, number := range numbers {
		s.mu.Lock()
		entry := s.byNumber[number]
		s.mu.Unlock()
		if entry == nil {
			release()
			return nil, ErrLockTimeout
		}
		select {
		case entry.sem <- struct{}{}:
			acquired = append(acquired, entry)
		case <-deadline.C:
			release()
			return nil, ErrLockTimeout
		case <-ctx.Done():
			release()
			return nil, ErrLockTimeout
		}
		s.mu.Lock()
		snapshot[number] = copyAccount(entry.account)
		s.mu.Unlock()
	}

	return newLockHandle(snapshot, release), nil
}

func dedupeSorted(accountNumbers []string) []string {
	numbers := append([]string(nil), accountNumbers...)
	sort.Strings(numbers)
	out := numbers[:0]
	for i, n := range numbers {
		if i == 0 || numbers[i-1] != n {
			out = append(out, n)
		}
	}
	return out
}
