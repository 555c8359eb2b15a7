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
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jerry-enebeli/saifu/config"
)

// MockRateService serves the exchange-rate table from configuration. Each
// configured rate registers both directions of the pair.
type MockRateService struct {
	rates map[string]map[string]decimal.Decimal
}

func NewMockRateService(table []config.ExchangeRate) *MockRateService {
	rates := make(map[string]map[string]decimal.Decimal)
	put := func(from, to string, rate float64) {
		if rates[from] == nil {
			rates[from] = make(map[string]decimal.Decimal)
		}
		rates[from][to] = decimal.NewFromFloat(rate)
	}
	for _, r := range table {
		put(r.From, r.To, r.Rate)
		put(r.To, r.From, r.ReverseRate)
	}
	return &MockRateService{rates: rates}
}

func (s *MockRateService) Supports(_ context.Context, currencyCodes ...string) (bool, error) {
	for _, code := range currencyCodes {
		if _, ok := s.rates[code]; !ok {
			return false, nil
		}
	}
	return true, nil
}

func (s *MockRateService) GetRates(_ context.Context, pairs []CurrencyPair) (map[CurrencyPair]decimal.Decimal, error) {
	result := make(map[CurrencyPair]decimal.Decimal, len(pairs))
	for _, pair := range pairs {
		if rate, ok := s.rates[pair.From][pair.To]; ok {
			result[pair] = rate
		}
	}
	return result, nil
}

// SupportedCurrencies lists every currency the rate table knows, sorted. Used
// when bootstrapping the organization's house accounts.
func (s *MockRateService) SupportedCurrencies() []string {
	currencies := make([]string, 0, len(s.rates))
	for code := range s.rates {
		currencies = append(currencies, code)
	}
	sort.Strings(currencies)
	return currencies
}
