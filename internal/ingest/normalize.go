// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package ingest

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tomtom215/owldoor/internal/models"
	"github.com/tomtom215/owldoor/internal/validation"
)

// ErrInvalidLead is wrapped by every normalization failure.
var ErrInvalidLead = errors.New("invalid lead")

// LeadPayload is the webhook body. Sources send whatever subset they have.
type LeadPayload struct {
	FirstName      string   `json:"first_name"`
	LastName       string   `json:"last_name"`
	FullName       string   `json:"full_name"`
	Email          string   `json:"email"`
	Phone          string   `json:"phone"`
	ProType        string   `json:"pro_type"`
	Brokerage      string   `json:"brokerage"`
	LicenseNumber  string   `json:"license_number"`
	LicensedStates []string `json:"licensed_states"`
	City           string   `json:"city"`
	State          string   `json:"state"`
	Zip            string   `json:"zip"`
	Transactions   int      `json:"transactions"`
	VolumeUSD      float64  `json:"volume_usd"`
	YearsLicensed  int      `json:"years_licensed"`
}

var titleCaser = cases.Title(language.AmericanEnglish)

// NormalizeName trims, collapses whitespace and title-cases a name.
func NormalizeName(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	return titleCaser.String(strings.ToLower(s))
}

// SplitFullName splits "First Middle Last" into first and last names.
func SplitFullName(full string) (first, last string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
	}
}

// NormalizeEmail lowercases and validates an email address. Empty stays empty.
func NormalizeEmail(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	if err := validation.GetValidator().Var(s, "email"); err != nil {
		return "", fmt.Errorf("%w: email %q is not valid", ErrInvalidLead, s)
	}
	return s, nil
}

// NormalizePhone converts a phone number to E.164, assuming US numbers when
// no country code is given. Empty stays empty.
func NormalizePhone(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	international := strings.HasPrefix(s, "+")

	var digits strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	d := digits.String()

	switch {
	case international && len(d) >= 8 && len(d) <= 15 && d[0] != '0':
		return "+" + d, nil
	case !international && len(d) == 10 && d[0] >= '2':
		return "+1" + d, nil
	case !international && len(d) == 11 && d[0] == '1' && d[1] >= '2':
		return "+" + d, nil
	}
	return "", fmt.Errorf("%w: phone %q is not a valid number", ErrInvalidLead, s)
}

// NormalizeZip keeps the 5-digit prefix of a ZIP or ZIP+4.
func NormalizeZip(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 5 {
		s = s[:5]
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return ""
		}
	}
	if len(s) != 5 {
		return ""
	}
	return s
}

func normalizeState(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if validation.IsUSState(s) {
		return s
	}
	return ""
}

// Normalize turns a payload into a Pro. A lead must carry a name and at
// least one of email or phone.
func Normalize(in *LeadPayload, source string) (*models.Pro, error) {
	first, last := in.FirstName, in.LastName
	if strings.TrimSpace(first) == "" && strings.TrimSpace(last) == "" {
		first, last = SplitFullName(in.FullName)
	}

	p := &models.Pro{
		FirstName:     NormalizeName(first),
		LastName:      NormalizeName(last),
		Brokerage:     strings.TrimSpace(in.Brokerage),
		LicenseNumber: strings.ToUpper(strings.TrimSpace(in.LicenseNumber)),
		City:          NormalizeName(in.City),
		State:         normalizeState(in.State),
		Zip:           NormalizeZip(in.Zip),
		Transactions:  max(in.Transactions, 0),
		VolumeUSD:     max(in.VolumeUSD, 0),
		YearsLicensed: max(in.YearsLicensed, 0),
		Source:        source,
	}
	if p.FirstName == "" && p.LastName == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidLead)
	}

	var err error
	if p.Email, err = NormalizeEmail(in.Email); err != nil {
		return nil, err
	}
	if p.Phone, err = NormalizePhone(in.Phone); err != nil {
		return nil, err
	}
	if p.Email == "" && p.Phone == "" {
		return nil, fmt.Errorf("%w: email or phone is required", ErrInvalidLead)
	}

	switch t := models.ProType(strings.ToLower(strings.TrimSpace(in.ProType))); {
	case t == "":
		p.Type = models.ProTypeAgent
	case t == "lo" || t == "loan officer" || t == "mlo":
		p.Type = models.ProTypeLoanOfficer
	case t.Valid():
		p.Type = t
	default:
		return nil, fmt.Errorf("%w: unknown pro_type %q", ErrInvalidLead, in.ProType)
	}

	for _, s := range in.LicensedStates {
		if st := normalizeState(s); st != "" && !containsFold(p.LicensedStates, st) {
			p.LicensedStates = append(p.LicensedStates, st)
		}
	}
	if len(p.LicensedStates) == 0 && p.State != "" {
		p.LicensedStates = []string{p.State}
	}
	return p, nil
}

// Merge copies the non-empty fields of incoming onto existing and reports
// whether the location changed.
func Merge(existing, incoming *models.Pro) (locationChanged bool) {
	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setString(&existing.FirstName, incoming.FirstName)
	setString(&existing.LastName, incoming.LastName)
	setString(&existing.Email, incoming.Email)
	setString(&existing.Phone, incoming.Phone)
	setString(&existing.Brokerage, incoming.Brokerage)
	setString(&existing.LicenseNumber, incoming.LicenseNumber)

	if (incoming.Zip != "" && incoming.Zip != existing.Zip) ||
		(incoming.City != "" && !strings.EqualFold(incoming.City, existing.City)) ||
		(incoming.State != "" && incoming.State != existing.State) {
		locationChanged = true
	}
	setString(&existing.City, incoming.City)
	setString(&existing.State, incoming.State)
	setString(&existing.Zip, incoming.Zip)

	for _, s := range incoming.LicensedStates {
		if !containsFold(existing.LicensedStates, s) {
			existing.LicensedStates = append(existing.LicensedStates, s)
		}
	}
	if incoming.Transactions > 0 {
		existing.Transactions = incoming.Transactions
	}
	if incoming.VolumeUSD > 0 {
		existing.VolumeUSD = incoming.VolumeUSD
	}
	if incoming.YearsLicensed > 0 {
		existing.YearsLicensed = incoming.YearsLicensed
	}
	if existing.Type == "" {
		existing.Type = incoming.Type
	}
	return locationChanged
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
