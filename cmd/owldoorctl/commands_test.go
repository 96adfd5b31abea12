// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/owldoor/internal/auth"
	"github.com/tomtom215/owldoor/internal/config"
	"github.com/tomtom215/owldoor/internal/payments"
	"github.com/tomtom215/owldoor/internal/pricing"
	"github.com/tomtom215/owldoor/internal/scoring"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestScoreCommand(t *testing.T) {
	out, err := run(t, "score", "--transactions", "30", "--volume", "12000000", "--years", "8")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	var got scoring.Result
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	want := scoring.Score(scoring.Inputs{Type: "agent", Transactions: 30, VolumeUSD: 12_000_000, YearsLicensed: 8})
	if got.Score != want.Score || got.Stage != want.Stage {
		t.Errorf("score = %d/%s, want %d/%s", got.Score, got.Stage, want.Score, want.Stage)
	}

	if _, err := run(t, "score", "--type", "broker"); err == nil {
		t.Error("unknown pro type accepted")
	}
}

func TestQuoteCommand(t *testing.T) {
	out, err := run(t, "quote", "--plan", "growth", "--seats", "2",
		"--promo-def", "LAUNCH:percent:10", "--promo", "LAUNCH")
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	var got pricing.Quote
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if got.Plan != "growth" || got.Seats != 2 || got.DiscountCents == 0 {
		t.Errorf("quote = %+v", got)
	}

	if _, err := run(t, "quote"); err == nil {
		t.Error("quote without --plan should fail")
	}
	if _, err := run(t, "quote", "--plan", "platinum"); err == nil {
		t.Error("unknown plan accepted")
	}
}

func TestTokenCommand(t *testing.T) {
	const secret = "cli-test-secret-0123456789abcdef01234"
	out, err := run(t, "token", "--sub", "admin-1", "--role", "admin", "--secret", secret)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	manager, err := auth.NewJWTManager(&config.SecurityConfig{JWTSecret: secret})
	if err != nil {
		t.Fatal(err)
	}
	claims, err := manager.ValidateToken(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("minted token invalid: %v", err)
	}
	if claims.Subject != "admin-1" || claims.AppMetadata.Role != "admin" {
		t.Errorf("claims = %+v", claims)
	}

	if _, err := run(t, "token", "--sub", "x", "--role", "root", "--secret", secret); err == nil {
		t.Error("unknown role accepted")
	}
}

func TestTokenCommandReadsConfig(t *testing.T) {
	orig := loadConfig
	t.Cleanup(func() { loadConfig = orig })
	loadConfig = func() (*config.Config, error) {
		cfg := &config.Config{}
		cfg.Security.JWTSecret = "from-config-secret-0123456789abcdef"
		return cfg, nil
	}

	out, err := run(t, "token", "--sub", "pro-1", "--role", "pro")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	manager, _ := auth.NewJWTManager(&config.SecurityConfig{JWTSecret: "from-config-secret-0123456789abcdef"})
	if _, err := manager.ValidateToken(strings.TrimSpace(out)); err != nil {
		t.Errorf("token not signed with the configured secret: %v", err)
	}
}

func TestHashKeyCommand(t *testing.T) {
	out, err := run(t, "hash-key", "--source", "zillow", "zillow-key-0123456789")
	if err != nil {
		t.Fatalf("hash-key: %v", err)
	}
	var entry string
	for _, line := range strings.Split(out, "\n") {
		if v, ok := strings.CutPrefix(line, "entry: "); ok {
			entry = v
		}
	}
	name, hash, ok := strings.Cut(entry, ":")
	if !ok || name != "zillow" {
		t.Fatalf("entry = %q", entry)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("zillow-key-0123456789")); err != nil {
		t.Errorf("hash does not match key: %v", err)
	}

	if _, err := run(t, "hash-key", "short"); err == nil {
		t.Error("short key accepted")
	}
	out, err = run(t, "hash-key")
	if err != nil || !strings.Contains(out, "key:   ") {
		t.Errorf("generated key: %v\n%s", err, out)
	}
}

func TestStripeSignCommand(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"invoice.paid"}` + "\n")
	path := filepath.Join(t.TempDir(), "event.json")
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	out, err := run(t, "stripe-sign", "--secret", "whsec_cli", "--at", strconv.FormatInt(now.Unix(), 10), path)
	if err != nil {
		t.Fatalf("stripe-sign: %v", err)
	}
	header := strings.TrimSpace(out)
	if err := payments.VerifySignature(payload, header, "whsec_cli", time.Minute); err != nil {
		t.Errorf("header %q does not verify: %v", header, err)
	}

	t.Setenv("STRIPE_WEBHOOK_SECRET", "")
	if _, err := run(t, "stripe-sign", path); err == nil {
		t.Error("missing secret accepted")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	if err != nil || !strings.HasPrefix(out, "owldoorctl ") {
		t.Errorf("version = %q, %v", out, err)
	}
}
