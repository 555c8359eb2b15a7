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

	"github.com/google/uuid"

	"github.com/jerry-enebeli/saifu/model"
)

const (
	txnGroupSeqStart = 424242
	txnSeqStart      = 500100
)

// TxnGroupStore is the in-memory idempotency ledger. The group id and
// timestamp are assigned inside the critical section, so losers of a merge
// race always observe a fully populated winner.
type TxnGroupStore struct {
	mu     sync.Mutex
	byUUID map[uuid.UUID]*model.TxnGroup
	seq    int64
}

func NewTxnGroupStore() *TxnGroupStore {
	return &TxnGroupStore{
		byUUID: make(map[uuid.UUID]*model.TxnGroup),
		seq:    txnGroupSeqStart,
	}
}

func copyTxnGroup(group *model.TxnGroup) *model.TxnGroup {
	cp := *group
	return &cp
}

func (s *TxnGroupStore) Merge(_ context.Context, group *model.TxnGroup) (bool, *model.TxnGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byUUID[group.TxnUUID]; ok {
		return false, copyTxnGroup(existing), nil
	}

	group.ID = s.seq
	s.seq++
	group.CreatedAt = time.Now()
	s.byUUID[group.TxnUUID] = copyTxnGroup(group)
	return true, copyTxnGroup(group), nil
}

func (s *TxnGroupStore) FindByUUID(_ context.Context, txnUUID uuid.UUID) (*model.TxnGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, ok := s.byUUID[txnUUID]
	if !ok {
		return nil, ErrTxnGroupNotFound
	}
	return copyTxnGroup(group), nil
}

// TxnStore is the in-memory posting store.
type TxnStore struct {
	mu   sync.Mutex
	byID map[int64]*model.Txn
	ids  []int64 // insertion order, for deterministic scans
	seq  int64
}

func NewTxnStore() *TxnStore {
	return &TxnStore{
		byID: make(map[int64]*model.Txn),
		seq:  txnSeqStart,
	}
}

func copyTxn(txn *model.Txn) *model.Txn {
	cp := *txn
	return &cp
}

func (s *TxnStore) Create(_ context.Context, txn *model.Txn) (*model.Txn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn.ID = s.seq
	s.seq++
	txn.CreatedAt = time.Now()
	s.byID[txn.ID] = copyTxn(txn)
	s.ids = append(s.ids, txn.ID)
	return copyTxn(txn), nil
}

// Link sets the bidirectional counter-posting ids of a pair. Both sides must
// exist; a missing side means the pair was never fully created, which is a
// consistency fault.
func (s *TxnStore) Link(_ context.Context, txnID, linkedTxnID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, okA := s.byID[txnID]
	b, okB := s.byID[linkedTxnID]
	if !okA || !okB {
		return DataInconsistencyError{Constraint: "TXN_LINK_TARGET"}
	}
	a.LinkedTxnID = b.ID
	b.LinkedTxnID = a.ID
	return nil
}

func (s *TxnStore) FindByGroupAccountAndSpendingType(_ context.Context, txnGroupID, accountID int64, spendingType model.SpendingType) (*model.Txn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.ids {
		txn := s.byID[id]
		if txn.TxnGroupID == txnGroupID && txn.AccountID == accountID && txn.SpendingType == spendingType {
			return copyTxn(txn), nil
		}
	}
	return nil, ErrTxnNotFound
}

func (s *TxnStore) FindAllByGroup(_ context.Context, txnGroupID int64) ([]*model.Txn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var txns []*model.Txn
	for _, id := range s.ids {
		if txn := s.byID[id]; txn.TxnGroupID == txnGroupID {
			txns = append(txns, copyTxn(txn))
		}
	}
	sort.Slice(txns, func(i, j int) bool { return txns[i].ID < txns[j].ID })
	return txns, nil
}
