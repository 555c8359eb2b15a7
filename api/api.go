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
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jerry-enebeli/saifu"
	"github.com/jerry-enebeli/saifu/api/middleware"
	"github.com/jerry-enebeli/saifu/config"
	"github.com/jerry-enebeli/saifu/internal/apierror"
)

const (
	// TxnUUIDHeader carries the caller's idempotency key for money
	// operations. The same key replays the same result.
	TxnUUIDHeader = "X-Txn-UUID"

	// OwnerHeader identifies the calling account owner.
	OwnerHeader = "X-Owner"
)

type Api struct {
	ledger *saifu.Saifu
	router *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.POST("/accounts", a.CreateAccount)
	router.GET("/accounts", a.ListAccounts)
	router.GET("/accounts/:number", a.GetAccount)
	router.DELETE("/accounts/:number", a.DeleteAccount)

	router.POST("/deposits", a.RecordDeposit)
	router.POST("/withdrawals", a.RecordWithdrawal)
	router.POST("/transfers", a.RecordTransfer)
	router.POST("/international-transfers", a.RecordInternationalTransfer)

	router.GET("/transactions/:uuid", a.GetTransaction)
	return a.router
}

func NewAPI(ledger *saifu.Saifu) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{ledger: ledger, router: r}
}

// owner pulls the calling owner id out of the request headers. Money and
// account operations are all scoped to an owner.
func owner(c *gin.Context) (string, bool) {
	ownerID := c.GetHeader(OwnerHeader)
	if ownerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing " + OwnerHeader + " header"})
		return "", false
	}
	return ownerID, true
}

// txnUUID parses the idempotency key header for money operations.
func txnUUID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetHeader(TxnUUIDHeader)
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing " + TxnUUIDHeader + " header"})
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": TxnUUIDHeader + " header is not a valid uuid"})
		return uuid.Nil, false
	}
	return id, true
}

// respondError translates ledger errors to their HTTP status, keeping the
// structured code and message for the client.
func respondError(c *gin.Context, err error) {
	status := apierror.MapErrorToHTTPStatus(err)
	var apiErr apierror.APIError
	if errors.As(err, &apiErr) {
		c.JSON(status, gin.H{"error": apiErr.Message, "code": apiErr.Code})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
