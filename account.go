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

package saifu

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/jerry-enebeli/saifu/config"
	"github.com/jerry-enebeli/saifu/internal/apierror"
	"github.com/jerry-enebeli/saifu/model"
	"github.com/jerry-enebeli/saifu/store"
)

// CreateAccount opens a USER account for the caller in the requested
// currency. The currency must be one the rate service can quote, otherwise
// the org could never move money in or out of the account.
func (s *Saifu) CreateAccount(ctx context.Context, req model.CreateAccountRequest, ownerID string) (*model.Account, error) {
	ctx, span := tracer.Start(ctx, "Creating account")
	defer span.End()

	supported, err := s.rates.Supports(ctx, req.CurrencyCode)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !supported {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput,
			fmt.Sprintf("unsupported currency %s", req.CurrencyCode), nil)
	}

	account, err := s.accounts.Create(ctx, &model.Account{
		OwnerID:       ownerID,
		AccountNumber: s.numbers.NextNumber(),
		Balance:       req.InitialBalance,
		CurrencyCode:  req.CurrencyCode,
		DisplayedName: req.DisplayedName,
		Type:          model.AccountTypeUser,
	})
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "creating user account")
	}
	return account, nil
}

// GetAccount returns one of the caller's own accounts by number.
func (s *Saifu) GetAccount(ctx context.Context, accountNumber, ownerID string) (*model.Account, error) {
	return s.userAccount(ctx, accountNumber, ownerID)
}

// ListAccounts pages through the caller's USER accounts in account-number
// order. Pass an empty afterNumber for the first page.
func (s *Saifu) ListAccounts(ctx context.Context, ownerID string, count int, afterNumber string) ([]*model.Account, error) {
	return s.accounts.FindAllUserAccountsByOwner(ctx, ownerID, count, afterNumber)
}

// DeleteAccount soft-deletes one of the caller's accounts. Its posting
// history stays on the ledger.
func (s *Saifu) DeleteAccount(ctx context.Context, accountNumber, ownerID string) error {
	account, err := s.userAccount(ctx, accountNumber, ownerID)
	if err != nil {
		return err
	}
	deleted, err := s.accounts.DeleteByIDAndOwner(ctx, account.ID, ownerID)
	if err != nil {
		return err
	}
	if !deleted {
		return unknownAccountError(accountNumber)
	}
	return nil
}

// Bootstrap provisions the org's house accounts from configuration: one BASE
// account carrying the opening balance and one empty FEE account per
// supported currency, plus one CORRESPONDENT account per configured
// correspondent owner and currency. It is idempotent across restarts;
// accounts that already exist are left alone.
func (s *Saifu) Bootstrap(ctx context.Context) error {
	configuration, err := config.Fetch()
	if err != nil {
		return err
	}

	currencies := currencySet(configuration.ExchangeRates)
	openingBalance := decimal.NewFromFloat(configuration.Org.BaseOpeningBalance)

	for _, currencyCode := range currencies {
		if err := s.ensureOrgAccount(ctx, s.orgID, currencyCode, model.AccountTypeBase, openingBalance); err != nil {
			return err
		}
		if err := s.ensureOrgAccount(ctx, s.orgID, currencyCode, model.AccountTypeFee, decimal.Zero); err != nil {
			return err
		}
	}

	for _, correspondentOwner := range configuration.Org.CorrespondentOwners {
		for _, currencyCode := range currencies {
			if err := s.ensureOrgAccount(ctx, correspondentOwner, currencyCode, model.AccountTypeCorrespondent, decimal.Zero); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Saifu) ensureOrgAccount(ctx context.Context, ownerID, currencyCode string, accountType model.AccountType, openingBalance decimal.Decimal) error {
	existing, err := s.accounts.FindAllByOwner(ctx, ownerID, 10000, "")
	if err != nil {
		return err
	}
	for _, account := range existing {
		if account.CurrencyCode == currencyCode && account.Type == accountType {
			return nil
		}
	}

	account, err := s.accounts.Create(ctx, &model.Account{
		OwnerID:       ownerID,
		AccountNumber: s.numbers.NextNumber(),
		Balance:       openingBalance,
		CurrencyCode:  currencyCode,
		DisplayedName: fmt.Sprintf("%s %s", currencyCode, accountType),
		Type:          accountType,
	})
	if err != nil {
		var inconsistency store.DataInconsistencyError
		if errors.As(err, &inconsistency) {
			return errors.Wrapf(err, "provisioning %s account for %s", accountType, currencyCode)
		}
		return err
	}

	logrus.WithFields(logrus.Fields{
		"account_number": account.AccountNumber,
		"currency":       currencyCode,
		"type":           accountType,
	}).Info("provisioned org account")
	return nil
}

// currencySet flattens the configured rate table into the distinct currency
// codes, preserving first-seen order.
func currencySet(rates []config.ExchangeRate) []string {
	seen := make(map[string]bool)
	var currencies []string
	for _, rate := range rates {
		for _, code := range []string{rate.From, rate.To} {
			if !seen[code] {
				seen[code] = true
				currencies = append(currencies, code)
			}
		}
	}
	return currencies
}
