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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT           = "5001"
	DEFAULT_LOCK_BUDGET_MS = 2000
)

var ConfigStore atomic.Value

type ServerConfig struct {
	Secure    bool   `json:"secure" envconfig:"SAIFU_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"SAIFU_SERVER_SECRET_KEY"`
	Port      string `json:"port" envconfig:"SAIFU_SERVER_PORT"`
}

// ExchangeRate is one row of the mock rate table. Both directions of the
// pair are registered: From to To at Rate and the reverse at ReverseRate.
type ExchangeRate struct {
	From        string  `json:"from"`
	To          string  `json:"to"`
	Rate        float64 `json:"rate"`
	ReverseRate float64 `json:"reverse_rate"`
}

// OrgConfig identifies the organization that owns the per-currency BASE and
// FEE house accounts, and the correspondents international transfers settle
// against.
type OrgConfig struct {
	ID                  string   `json:"id" envconfig:"SAIFU_ORG_ID"`
	BaseOpeningBalance  float64  `json:"base_opening_balance" envconfig:"SAIFU_ORG_BASE_OPENING_BALANCE"`
	CorrespondentOwners []string `json:"correspondent_owners"`
}

type LedgerConfig struct {
	LockBudgetMs int `json:"lock_budget_ms" envconfig:"SAIFU_LEDGER_LOCK_BUDGET_MS"`
}

type Configuration struct {
	ProjectName   string         `json:"project_name" envconfig:"SAIFU_PROJECT_NAME"`
	Server        ServerConfig   `json:"server"`
	Org           OrgConfig      `json:"org"`
	Ledger        LedgerConfig   `json:"ledger"`
	ExchangeRates []ExchangeRate `json:"exchange_rates"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("saifu", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called saifu.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Saifu Server"
	}

	if cnf.Org.ID == "" {
		cnf.Org.ID = uuid.New().String()
		log.Printf("Warning: Org id not specified in config. Generated one: %s", cnf.Org.ID)
	}

	if cnf.Org.BaseOpeningBalance == 0 {
		cnf.Org.BaseOpeningBalance = 1_000_000
	}

	if cnf.Ledger.LockBudgetMs <= 0 {
		cnf.Ledger.LockBudgetMs = DEFAULT_LOCK_BUDGET_MS
	}

	for _, rate := range cnf.ExchangeRates {
		if rate.From == "" || rate.To == "" || rate.Rate <= 0 || rate.ReverseRate <= 0 {
			return errors.New("exchange rates need from, to and positive rates in both directions")
		}
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.Org.ID = strings.TrimSpace(cnf.Org.ID)

	// Set default value for Port if it's empty
	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	if err := mockConfig.validateAndAddDefaults(); err != nil {
		log.Fatal(err)
	}
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
