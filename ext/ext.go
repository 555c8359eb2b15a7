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

// Package ext declares the external collaborator contracts the ledger engine
// consumes: exchange rates, fees and account number generation. The engine
// only depends on the interfaces; the mock implementations here stand in for
// the real services.
package ext

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

type CurrencyPair struct {
	From string
	To   string
}

func (p CurrencyPair) String() string {
	return fmt.Sprintf("%s/%s", p.From, p.To)
}

// RateService supplies exchange rates per currency pair. A pair missing from
// the returned map is unsupported; callers must treat that as a terminal
// business failure, not something to retry.
type RateService interface {
	Supports(ctx context.Context, currencyCodes ...string) (bool, error)
	GetRates(ctx context.Context, pairs []CurrencyPair) (map[CurrencyPair]decimal.Decimal, error)
}

// FeeService quotes fees for exchange and international legs. Quotes are pure
// and always succeed with a non-negative fee for valid input.
type FeeService interface {
	ExchangeFee(ctx context.Context, pair CurrencyPair, amount decimal.Decimal) (decimal.Decimal, error)
	InternationalFee(ctx context.Context, currencyCode string, amount decimal.Decimal) (decimal.Decimal, error)
}

// AccountNumberGenerator yields unique, sortable account numbers. It is only
// consumed at account-creation time.
type AccountNumberGenerator interface {
	NextNumber() string
}
