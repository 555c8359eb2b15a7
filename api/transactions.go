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
package api

import (
	"context"
	"net/http"

	"github.com/cenkalti/backoff/v4"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	model2 "github.com/jerry-enebeli/saifu/api/model"
	"github.com/jerry-enebeli/saifu/internal/apierror"
	"github.com/jerry-enebeli/saifu/model"
)

const maxLockRetries = 3

// withLockRetry runs a money operation, resubmitting with the same txn uuid
// a few times when the engine reports lock contention. The idempotency key
// makes the retries safe: if a prior attempt actually posted, the retry
// replays its result.
func withLockRetry(ctx context.Context, txnUUID uuid.UUID, op func() (*model.TxnResult, error)) (*model.TxnResult, error) {
	var result *model.TxnResult
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxLockRetries), ctx)
	err := backoff.Retry(func() error {
		var err error
		result, err = op()
		if err == nil {
			return nil
		}
		if apierror.IsRetryable(err) {
			logrus.WithFields(logrus.Fields{"txn_uuid": txnUUID}).Warn("lock contention, retrying")
			return err
		}
		return backoff.Permanent(err)
	}, policy)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RecordDeposit credits an account owned by the caller.
//
// Headers:
// - X-Txn-UUID: the idempotency key, required.
// - X-Owner: the calling owner, required.
//
// Responses:
// - 400 Bad Request: malformed body, headers or unsupported currency pair.
// - 503 Service Unavailable: lock contention persisted through retries.
// - 201 Created: the deposit result as seen by the target account.
func (a Api) RecordDeposit(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	id, ok := txnUUID(c)
	if !ok {
		return
	}

	var body model2.MoneyRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}
	if err := body.ValidateMoneyRequest(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := withLockRetry(c.Request.Context(), id, func() (*model.TxnResult, error) {
		return a.ledger.Deposit(c.Request.Context(), body.ToDepositRequest(), ownerID, id)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (a Api) RecordWithdrawal(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	id, ok := txnUUID(c)
	if !ok {
		return
	}

	var body model2.MoneyRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}
	if err := body.ValidateMoneyRequest(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := withLockRetry(c.Request.Context(), id, func() (*model.TxnResult, error) {
		return a.ledger.Withdraw(c.Request.Context(), body.ToWithdrawalRequest(), ownerID, id)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (a Api) RecordTransfer(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	id, ok := txnUUID(c)
	if !ok {
		return
	}

	var body model2.TransferBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}
	if err := body.ValidateTransfer(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := withLockRetry(c.Request.Context(), id, func() (*model.TxnResult, error) {
		return a.ledger.Transfer(c.Request.Context(), body.ToTransferRequest(), ownerID, id)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (a Api) RecordInternationalTransfer(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	id, ok := txnUUID(c)
	if !ok {
		return
	}

	var body model2.TransferBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}
	if err := body.ValidateTransfer(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := withLockRetry(c.Request.Context(), id, func() (*model.TxnResult, error) {
		return a.ledger.InternationalTransfer(c.Request.Context(), body.ToTransferRequest(), ownerID, id)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// GetTransaction returns the recorded group and all its postings for one
// idempotency uuid.
func (a Api) GetTransaction(c *gin.Context) {
	raw, passed := c.Params.Get("uuid")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "txn uuid is required. pass uuid in the route /transactions/:uuid"})
		return
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "txn uuid is not a valid uuid"})
		return
	}

	group, txns, err := a.ledger.GetGroupPostings(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"group": group, "txns": txns})
}
