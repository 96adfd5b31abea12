// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package logging

import "strings"

// maxLogValueLength bounds untrusted values written to logs.
const maxLogValueLength = 200

// RedactEmail keeps the first character of the local part and the domain.
//
//	RedactEmail("jane.doe@example.com") // "j***@example.com"
func RedactEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}

// RedactPhone keeps only the last four digits.
//
//	RedactPhone("+15551234567") // "***4567"
func RedactPhone(phone string) string {
	digits := make([]byte, 0, len(phone))
	for i := 0; i < len(phone); i++ {
		if phone[i] >= '0' && phone[i] <= '9' {
			digits = append(digits, phone[i])
		}
	}
	if len(digits) < 4 {
		return "***"
	}
	return "***" + string(digits[len(digits)-4:])
}

// SanitizeValue strips control characters from an untrusted value and
// truncates it so it cannot forge or flood log lines.
func SanitizeValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
		if b.Len() >= maxLogValueLength {
			b.WriteString("...")
			break
		}
	}
	return b.String()
}
