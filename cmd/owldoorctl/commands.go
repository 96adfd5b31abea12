// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/owldoor/internal/auth"
	"github.com/tomtom215/owldoor/internal/cache"
	"github.com/tomtom215/owldoor/internal/config"
	"github.com/tomtom215/owldoor/internal/database"
	"github.com/tomtom215/owldoor/internal/geocode"
	"github.com/tomtom215/owldoor/internal/ingest"
	"github.com/tomtom215/owldoor/internal/models"
	"github.com/tomtom215/owldoor/internal/payments"
	"github.com/tomtom215/owldoor/internal/pricing"
	"github.com/tomtom215/owldoor/internal/scoring"
)

// loadConfig is replaced in tests.
var loadConfig = config.Load

func scoreCmd() *cobra.Command {
	var in scoring.Inputs
	var proType string

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a pro from production numbers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Type = models.ProType(proType)
			if !in.Type.Valid() {
				return fmt.Errorf("--type must be agent or loan_officer, got %q", proType)
			}
			return printJSON(cmd.OutOrStdout(), scoring.Score(in))
		},
	}
	cmd.Flags().StringVar(&proType, "type", string(models.ProTypeAgent), "Pro type (agent, loan_officer)")
	cmd.Flags().IntVar(&in.Transactions, "transactions", 0, "Closed transactions in the last 12 months")
	cmd.Flags().Float64Var(&in.VolumeUSD, "volume", 0, "Closed volume in USD")
	cmd.Flags().IntVar(&in.YearsLicensed, "years", 0, "Years licensed")
	return cmd
}

func quoteCmd() *cobra.Command {
	var (
		req    pricing.Request
		promos []string
	)
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a plan",
		Long: `Price a plan with seats, add-ons, lead packs and a promo code.

Promo codes are defined with --promo-def using the PROMO_CODES format,
for example --promo-def LAUNCH:percent:20 --promo LAUNCH.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, err := pricing.ParsePromoCodes(promos)
			if err != nil {
				return err
			}
			quote, err := pricing.NewCalculator(defs).Quote(req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), quote)
		},
	}
	cmd.Flags().StringVar(&req.Plan, "plan", "", "Plan ID (starter, growth, pro, enterprise)")
	cmd.Flags().IntVar(&req.Seats, "seats", 1, "Number of seats")
	cmd.Flags().StringSliceVar(&req.AddOns, "add-on", nil, "Add-on ID (repeatable)")
	cmd.Flags().IntVar(&req.LeadPacks, "packs", 0, "Extra lead packs")
	cmd.Flags().StringVar(&req.Interval, "interval", "month", "Billing interval (month, year)")
	cmd.Flags().StringVar(&req.PromoCode, "promo", "", "Promo code to apply")
	cmd.Flags().StringSliceVar(&promos, "promo-def", nil, "Promo definition CODE:kind:value[:min_plan] (repeatable)")
	_ = cmd.MarkFlagRequired("plan")
	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		subject, email, role, secret string
		ttl                          time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for local development",
		Long: `Mint an HS256 access token shaped like the hosted auth provider's,
with the role in app_metadata. The secret defaults to JWT_SECRET.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !auth.ValidRole(role) {
				return fmt.Errorf("--role must be admin, client or pro, got %q", role)
			}
			sec := config.SecurityConfig{JWTSecret: secret, TokenTTL: ttl}
			if secret == "" {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				sec.JWTSecret = cfg.Security.JWTSecret
				sec.JWTIssuer = cfg.Security.JWTIssuer
			}
			manager, err := auth.NewJWTManager(&sec)
			if err != nil {
				return err
			}
			if email == "" {
				email = subject + "@localhost"
			}
			tok, err := manager.GenerateToken(subject, email, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "sub", "", "User ID (token subject)")
	cmd.Flags().StringVar(&email, "email", "", "Email claim")
	cmd.Flags().StringVar(&role, "role", auth.RoleClient, "Role (admin, client, pro)")
	cmd.Flags().StringVar(&secret, "secret", "", "Signing secret (default JWT_SECRET)")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("sub")
	return cmd
}

func hashKeyCmd() *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "hash-key [key]",
		Short: "Create a lead source API key and its LEAD_SOURCE_KEYS entry",
		Long: `Hash a lead source API key with bcrypt. Without an argument a random
key is generated. Give the key to the source and add the printed entry to
LEAD_SOURCE_KEYS.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := ""
			if len(args) == 1 {
				key = args[0]
			} else {
				buf := make([]byte, 24)
				if _, err := rand.Read(buf); err != nil {
					return fmt.Errorf("failed to generate key: %w", err)
				}
				key = hex.EncodeToString(buf)
			}
			hash, err := ingest.HashKey(key)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "key:   %s\n", key)
			fmt.Fprintf(out, "entry: %s:%s\n", source, hash)
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "partner", "Lead source name")
	return cmd
}

func geocodeCmd() *cobra.Command {
	var (
		providers []string
		useDB     bool
		timeout   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "geocode <query>",
		Short: "Resolve a location through the provider chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if len(providers) > 0 {
				cfg.Geocode.Providers = providers
			}

			var store geocode.ZipStore
			if useDB {
				db, err := database.New(&cfg.Database)
				if err != nil {
					return err
				}
				defer db.Close()
				store = db
			}
			persistent, err := cache.OpenPersistent(cfg.Geocode.CachePath, "geo:", cfg.Geocode.CacheTTL)
			if err != nil {
				return err
			}
			defer persistent.Close()

			resolver := geocode.NewResolverFromConfig(&cfg.Geocode, store, persistent)
			defer resolver.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			res, err := resolver.Geocode(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringSliceVar(&providers, "providers", nil, "Override GEOCODE_PROVIDERS")
	cmd.Flags().BoolVar(&useDB, "db", false, "Open the database so the local provider can answer")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Overall timeout")
	return cmd
}

func seedZipsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-zips <csv>",
		Short: "Load ZIP centroids into the database",
		Long: `Load a CSV with header zip,city,state,latitude,longitude into the ZIP
centroid table used by the local geocoder. Existing rows are replaced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := database.New(&cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := db.SeedZipCodes(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d ZIP codes into %s\n", n, cfg.Database.Path)
			return nil
		},
	}
}

func stripeSignCmd() *cobra.Command {
	var (
		secret string
		at     int64
	)
	cmd := &cobra.Command{
		Use:   "stripe-sign <event.json>",
		Short: "Print a Stripe-Signature header for a webhook payload",
		Long: `Sign a Stripe event payload the way Stripe does, for replaying events
against a local server:

  curl -H "Stripe-Signature: $(owldoorctl stripe-sign --secret whsec_x event.json)" \
       --data-binary @event.json http://localhost:3857/api/v1/webhooks/stripe`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv("STRIPE_WEBHOOK_SECRET")
			}
			if secret == "" {
				return errors.New("--secret or STRIPE_WEBHOOK_SECRET is required")
			}
			payload, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			signedAt := time.Now()
			if at > 0 {
				signedAt = time.Unix(at, 0)
			}
			fmt.Fprintln(cmd.OutOrStdout(), payments.SignatureHeader(signedAt, payload, secret))
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "Webhook signing secret (default STRIPE_WEBHOOK_SECRET)")
	cmd.Flags().Int64Var(&at, "at", 0, "Unix timestamp to sign at (default now)")
	return cmd
}
