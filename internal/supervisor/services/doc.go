// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

// Package services adapts components whose lifecycle is not already
// Serve(ctx) error to suture.Service. The websocket hub, the event router
// and the audit logger implement it directly and are added to the tree as
// they are.
package services
