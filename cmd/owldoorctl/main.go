// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

// Command owldoorctl is the operator CLI: offline scoring and pricing,
// development tokens, lead source keys, geocoding checks, ZIP seeding and
// Stripe webhook signing for local replays.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/owldoor/internal/logging"
)

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "owldoorctl",
		Short: "OwlDoor operator tools",
		Long: `Operator tools for OwlDoor.

Commands that need server settings (token, geocode, seed-zips) read the
same config.yaml and environment variables as the server.

Examples:
  owldoorctl score --transactions 30 --volume 12000000 --years 8
  owldoorctl quote --plan growth --seats 3 --add-on crm_sync --interval year
  owldoorctl hash-key
  owldoorctl token --sub admin-1 --role admin
  owldoorctl stripe-sign --secret whsec_... event.json
`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Init(logging.Config{
				Level:     logLevel,
				Format:    "console",
				Timestamp: true,
				Output:    cmd.ErrOrStderr(),
			})
		},
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		scoreCmd(),
		quoteCmd(),
		tokenCmd(),
		hashKeyCmd(),
		geocodeCmd(),
		seedZipsCmd(),
		stripeSignCmd(),
		versionCmd(),
	)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "owldoorctl", version)
		},
	}
}

// printJSON writes v indented.
func printJSON(w io.Writer, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
