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

package ext

import (
	"context"

	"github.com/shopspring/decimal"
)

var (
	ten        = decimal.NewFromInt(10)
	oneHundred = decimal.NewFromInt(100)
	fifty      = decimal.NewFromInt(50)
)

// MockFeeService applies a tiered schedule. Quotient fees are rounded
// half-up to two places, one consistent rule for every flow.
type MockFeeService struct{}

func NewMockFeeService() *MockFeeService {
	return &MockFeeService{}
}

func (s *MockFeeService) ExchangeFee(_ context.Context, _ CurrencyPair, amount decimal.Decimal) (decimal.Decimal, error) {
	switch {
	case amount.LessThan(ten):
		return decimal.Zero, nil
	case amount.LessThan(oneHundred):
		return decimal.NewFromInt(1), nil
	default:
		return amount.DivRound(oneHundred, 2), nil
	}
}

func (s *MockFeeService) InternationalFee(_ context.Context, _ string, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.LessThan(ten) {
		return amount.DivRound(oneHundred, 2), nil
	}
	return amount.DivRound(fifty, 2), nil
}
