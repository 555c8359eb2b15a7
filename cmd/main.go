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

package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jerry-enebeli/saifu"
	"github.com/jerry-enebeli/saifu/config"
	"github.com/jerry-enebeli/saifu/ext"
	"github.com/jerry-enebeli/saifu/store"
)

type Saifu struct {
	cmd *cobra.Command
}

type saifuInstance struct {
	ledger *saifu.Saifu
	cnf    *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

func preRun(app *saifuInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig("saifu.json")
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newLedger, err := setupLedger(cnf)
		if err != nil {
			log.Fatal(err)
		}

		app.ledger = newLedger
		app.cnf = cnf

		return nil
	}
}

// setupLedger assembles the in-memory stores and the mock rate/fee services
// into a ready ledger, then provisions the org's house accounts.
func setupLedger(cfg *config.Configuration) (*saifu.Saifu, error) {
	lockBudget := time.Duration(cfg.Ledger.LockBudgetMs) * time.Millisecond

	accounts := store.NewAccountStore(lockBudget)
	groups := store.NewTxnGroupStore()
	txns := store.NewTxnStore()
	rates := ext.NewMockRateService(cfg.ExchangeRates)
	fees := ext.NewMockFeeService()
	numbers := ext.NewSequentialAccountNumberGenerator()

	newLedger, err := saifu.NewSaifu(accounts, groups, txns, rates, fees, numbers)
	if err != nil {
		return nil, fmt.Errorf("error creating ledger: %v", err)
	}
	return newLedger, nil
}

func NewCLI() *Saifu {
	var configFile string
	s := &saifuInstance{}

	var rootCmd = &cobra.Command{
		Use:   "saifu",
		Short: "Idempotent double-entry transfer ledger",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./saifu.json", "Configuration file for the ledger")

	rootCmd.PersistentPreRunE = preRun(s)

	rootCmd.AddCommand(serverCommands(s))

	return &Saifu{cmd: rootCmd}
}

func (w Saifu) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
