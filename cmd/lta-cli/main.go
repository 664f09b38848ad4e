// Package main is a thin reference CLI over the LTA DB's REST API (spec
// §7): list/create/inspect TransferRequests, inspect component status, and
// display the resolved worker configuration. It exists to give operators a
// quick terminal view of the system; the REST API itself is authoritative.
/*
 * Copyright (c) 2018-2026, The IceCube Collaboration, WIPAC. All rights reserved.
 */
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/WIPACrepo/lta/client"
	"github.com/WIPACrepo/lta/config"
)

var (
	asJSON bool
	rc     *client.Client
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lta-cli",
		Short: "Inspect and drive the Long Term Archive from the command line",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "display-config" {
				return nil
			}
			rc = client.New(client.Config{
				RestURL:      os.Getenv("LTA_REST_URL"),
				TokenURL:     os.Getenv("LTA_AUTH_OPENID_URL"),
				ClientID:     os.Getenv("CLIENT_ID"),
				ClientSecret: os.Getenv("CLIENT_SECRET"),
				Timeout:      30 * time.Second,
				Retries:      3,
			})
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&asJSON, "json", false, "print raw JSON instead of a formatted summary")
	root.AddCommand(newRequestCmd(), newStatusCmd(), newDisplayConfigCmd())
	return root
}

func newRequestCmd() *cobra.Command {
	request := &cobra.Command{Use: "request", Short: "Inspect or create TransferRequests"}

	var source, dest, path string
	newReq := &cobra.Command{
		Use:   "new",
		Short: "Create a new TransferRequest",
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]interface{}{
				"source": source,
				"dest":   []string{dest},
				"path":   path,
			}
			var out map[string]interface{}
			if err := rc.CreateTransferRequestRaw(cmd.Context(), body, &out); err != nil {
				return err
			}
			return printResult(out)
		},
	}
	newReq.Flags().StringVar(&source, "source", "", "source site")
	newReq.Flags().StringVar(&dest, "dest", "", "destination site")
	newReq.Flags().StringVar(&path, "path", "", "warehouse path to archive")

	status := &cobra.Command{
		Use:   "status <uuid>",
		Short: "Show the status of a TransferRequest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := rc.GetTransferRequest(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printResult(req)
		},
	}

	request.AddCommand(newReq, status)
	return request
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [component]",
		Short: "Show the health rollup, or one component's detail",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			var out map[string]interface{}
			path := "/status"
			if len(args) == 1 {
				path = "/status/" + args[0]
			}
			if err := rc.GetRaw(ctx, path, &out); err != nil {
				return err
			}
			return printResult(out)
		},
	}
}

func newDisplayConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "display-config",
		Short: "Print the worker configuration resolved from the environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnvironment(nil)
			for k := range cfg {
				if strings.HasSuffix(k, "CLIENT_SECRET") {
					cfg[k] = "[REDACTED]"
				}
			}
			return printResult(cfg)
		},
	}
}

func printResult(v interface{}) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	fmt.Printf("%+v\n", v)
	return nil
}
