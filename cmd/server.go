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
	"context"
	"log"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jerry-enebeli/saifu/api"
)

func serverCommands(b *saifuInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "start saifu server",
		Run: func(cmd *cobra.Command, args []string) {
			router := api.NewAPI(b.ledger).Router()
			cfg := b.cnf

			// house accounts must exist before the first money operation
			if err := b.ledger.Bootstrap(context.Background()); err != nil {
				log.Fatalf("Error provisioning org accounts: %v", err)
			}

			server := &http.Server{
				Addr:    ":" + cfg.Server.Port,
				Handler: router,
			}

			log.Printf("Starting server on http://localhost:%s", cfg.Server.Port)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Error starting server: %v", err)
			}
		},
	}

	return cmd
}
