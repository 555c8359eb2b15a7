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
	"go.opentelemetry.io/otel"

	"github.com/jerry-enebeli/saifu/config"
	"github.com/jerry-enebeli/saifu/ext"
	"github.com/jerry-enebeli/saifu/store"
)

var tracer = otel.Tracer("saifu.ledger")

// Saifu wires the ledger stores and the external rate/fee collaborators into
// the transfer engine and the account service.
type Saifu struct {
	accounts store.AccountRepository
	groups   store.TxnGroupRepository
	txns     store.TxnRepository
	rates    ext.RateService
	fees     ext.FeeService
	numbers  ext.AccountNumberGenerator
	orgID    string
}

func NewSaifu(
	accounts store.AccountRepository,
	groups store.TxnGroupRepository,
	txns store.TxnRepository,
	rates ext.RateService,
	fees ext.FeeService,
	numbers ext.AccountNumberGenerator,
) (*Saifu, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	return &Saifu{
		accounts: accounts,
		groups:   groups,
		txns:     txns,
		rates:    rates,
		fees:     fees,
		numbers:  numbers,
		orgID:    configuration.Org.ID,
	}, nil
}
