// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

// Package authz enforces role-based access to API routes with Casbin.
// Policies map roles (admin, client, pro) to URL patterns and actions
// (read, write, delete); record ownership is left to the handlers.
package authz

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"github.com/tomtom215/owldoor/internal/cache"
	"github.com/tomtom215/owldoor/internal/config"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Enforcer wraps a Casbin enforcer with a decision cache.
type Enforcer struct {
	enforcer    *casbin.SyncedEnforcer
	defaultRole string
	decisions   *cache.Cache[bool]
}

// NewEnforcer loads the model and policy from the configured files, falling
// back to the embedded ones.
func NewEnforcer(cfg config.CasbinConfig) (*Enforcer, error) {
	var (
		m   model.Model
		err error
	)
	if cfg.ModelPath != "" && fileExists(cfg.ModelPath) {
		m, err = model.NewModelFromFile(cfg.ModelPath)
	} else {
		m, err = model.NewModelFromString(embeddedModel)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	var enforcer *casbin.SyncedEnforcer
	if cfg.PolicyPath != "" && fileExists(cfg.PolicyPath) {
		enforcer, err = casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(cfg.PolicyPath))
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
		if err == nil {
			err = loadPolicy(enforcer, embeddedPolicy)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	e := &Enforcer{enforcer: enforcer, defaultRole: cfg.DefaultRole}
	if cfg.CacheEnabled {
		ttl := cfg.CacheTTL
		if ttl <= 0 {
			ttl = 5 * time.Minute
		}
		e.decisions = cache.New[bool]("authz", ttl)
	}
	return e, nil
}

// loadPolicy adds the p and g lines of a policy CSV.
func loadPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		switch rule := parts[1:]; parts[0] {
		case "p":
			if len(rule) < 3 {
				return fmt.Errorf("malformed policy line %q", line)
			}
			if _, err := enforcer.AddPolicy(rule[0], rule[1], rule[2]); err != nil {
				return fmt.Errorf("failed to add policy %v: %w", rule, err)
			}
		case "g":
			if len(rule) < 2 {
				return fmt.Errorf("malformed grouping line %q", line)
			}
			if _, err := enforcer.AddGroupingPolicy(rule[0], rule[1]); err != nil {
				return fmt.Errorf("failed to add grouping policy %v: %w", rule, err)
			}
		}
	}
	return nil
}

// Enforce reports whether role may perform action on object.
func (e *Enforcer) Enforce(role, object, action string) (bool, error) {
	key := role + "|" + object + "|" + action
	if e.decisions != nil {
		if allowed, ok := e.decisions.Get(key); ok {
			return allowed, nil
		}
	}
	allowed, err := e.enforcer.Enforce(role, object, action)
	if err != nil {
		return false, fmt.Errorf("enforcement failed: %w", err)
	}
	if e.decisions != nil {
		e.decisions.Set(key, allowed)
	}
	return allowed, nil
}

// EnforceRoles reports whether any of roles allows the request. A subject
// without roles is checked as the default role.
func (e *Enforcer) EnforceRoles(roles []string, object, action string) (allowed bool, matched string, err error) {
	if len(roles) == 0 && e.defaultRole != "" {
		roles = []string{e.defaultRole}
	}
	for _, role := range roles {
		ok, err := e.Enforce(role, object, action)
		if err != nil {
			return false, "", err
		}
		if ok {
			return true, role, nil
		}
	}
	return false, "", nil
}

// Policy returns the loaded p rules.
func (e *Enforcer) Policy() [][]string {
	p, _ := e.enforcer.GetPolicy()
	return p
}

// Close stops the decision cache.
func (e *Enforcer) Close() {
	if e.decisions != nil {
		e.decisions.Close()
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
