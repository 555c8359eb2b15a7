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
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	model2 "github.com/jerry-enebeli/saifu/api/model"
)

// CreateAccount opens a user account for the calling owner.
//
// Responses:
// - 400 Bad Request: malformed body or unsupported currency.
// - 201 Created: the new account, including its generated account number.
func (a Api) CreateAccount(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}

	var newAccount model2.CreateAccount
	if err := c.ShouldBindJSON(&newAccount); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}
	if err := newAccount.ValidateCreateAccount(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.ledger.CreateAccount(c.Request.Context(), newAccount.ToCreateAccountRequest(), ownerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (a Api) GetAccount(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	number, passed := c.Params.Get("number")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account number is required. pass number in the route /accounts/:number"})
		return
	}

	resp, err := a.ledger.GetAccount(c.Request.Context(), number, ownerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListAccounts pages through the caller's accounts. Query params: count
// (default 50) and after (the account number to resume from).
func (a Api) ListAccounts(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}

	count := 50
	if raw := c.Query("count"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "count must be a positive integer"})
			return
		}
		count = parsed
	}
	after := c.Query("after")

	resp, err := a.ledger.ListAccounts(c.Request.Context(), ownerID, count, after)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) DeleteAccount(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	number, passed := c.Params.Get("number")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account number is required. pass number in the route /accounts/:number"})
		return
	}

	if err := a.ledger.DeleteAccount(c.Request.Context(), number, ownerID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": number})
}
