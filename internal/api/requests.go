// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/owldoor/internal/ai"
	"github.com/tomtom215/owldoor/internal/ingest"
	"github.com/tomtom215/owldoor/internal/models"
	"github.com/tomtom215/owldoor/internal/pricing"
	"github.com/tomtom215/owldoor/internal/validation"
)

const (
	maxBodyBytes    = 1 << 20
	defaultPageSize = 50
	maxPageSize     = 500
)

// ScoreRequest is the body of POST /score.
type ScoreRequest struct {
	ProType       models.ProType `json:"pro_type" validate:"omitempty,protype"`
	Transactions  int            `json:"transactions" validate:"gte=0,lte=100000"`
	VolumeUSD     float64        `json:"volume_usd" validate:"gte=0"`
	YearsLicensed int            `json:"years_licensed" validate:"gte=0,lte=80"`
}

// QuoteRequest is the body of POST /pricing/quote.
type QuoteRequest = pricing.Request

// ProRequest creates or replaces the editable fields of a Pro.
type ProRequest struct {
	ProType        models.ProType   `json:"pro_type" validate:"required,protype"`
	FirstName      string           `json:"first_name" validate:"required,max=100"`
	LastName       string           `json:"last_name" validate:"max=100"`
	Email          string           `json:"email" validate:"omitempty,email,max=254"`
	Phone          string           `json:"phone" validate:"omitempty,max=32"`
	Brokerage      string           `json:"brokerage" validate:"max=200"`
	LicenseNumber  string           `json:"license_number" validate:"max=64"`
	LicensedStates []string         `json:"licensed_states" validate:"max=60,dive,usstate"`
	City           string           `json:"city" validate:"max=100"`
	State          string           `json:"state" validate:"omitempty,usstate"`
	Zip            string           `json:"zip" validate:"max=10"`
	Transactions   int              `json:"transactions" validate:"gte=0,lte=100000"`
	VolumeUSD      float64          `json:"volume_usd" validate:"gte=0"`
	YearsLicensed  int              `json:"years_licensed" validate:"gte=0,lte=80"`
	Status         models.ProStatus `json:"status" validate:"omitempty,oneof=active contacted interviewing hired archived"`
}

// apply copies the request onto p, normalizing contact details the same way
// lead intake does. It reports whether the location fields changed.
func (req *ProRequest) apply(p *models.Pro) (locationChanged bool, err error) {
	email, phone := "", ""
	if req.Email != "" {
		if email, err = ingest.NormalizeEmail(req.Email); err != nil {
			return false, err
		}
	}
	if req.Phone != "" {
		if phone, err = ingest.NormalizePhone(req.Phone); err != nil {
			return false, err
		}
	}
	zip := ingest.NormalizeZip(req.Zip)
	city := ingest.NormalizeName(req.City)
	state := strings.ToUpper(req.State)
	locationChanged = zip != p.Zip || !strings.EqualFold(city, p.City) || state != p.State

	p.Type = req.ProType
	p.FirstName = ingest.NormalizeName(req.FirstName)
	p.LastName = ingest.NormalizeName(req.LastName)
	p.Email = email
	p.Phone = phone
	p.Brokerage = strings.TrimSpace(req.Brokerage)
	p.LicenseNumber = strings.TrimSpace(req.LicenseNumber)
	p.LicensedStates = upperAll(req.LicensedStates)
	p.City, p.State, p.Zip = city, state, zip
	p.Transactions = req.Transactions
	p.VolumeUSD = req.VolumeUSD
	p.YearsLicensed = req.YearsLicensed
	if locationChanged {
		p.Latitude, p.Longitude = nil, nil
	}
	return locationChanged, nil
}

// StageRequest is the body of PUT /pros/{id}/stage.
type StageRequest struct {
	Stage  models.Stage `json:"stage" validate:"required,oneof=new cold nurture qualified hot"`
	Reason string       `json:"reason" validate:"max=500"`
}

// ClientRequest creates or replaces a Client's company and hiring criteria.
// OwnerUserID, Plan, LeadsPerMonth and Status are honored for admins only.
type ClientRequest struct {
	OwnerUserID     string         `json:"owner_user_id,omitempty" validate:"max=128"`
	CompanyName     string         `json:"company_name" validate:"required,max=200"`
	ContactName     string         `json:"contact_name" validate:"max=200"`
	Email           string         `json:"email" validate:"required,email,max=254"`
	Phone           string         `json:"phone" validate:"omitempty,e164"`
	ProType         models.ProType `json:"pro_type" validate:"required,protype"`
	MarketAddress   string         `json:"market_address" validate:"required,max=300"`
	RadiusMiles     float64        `json:"radius_miles" validate:"gte=0,lte=500"`
	MinScore        int            `json:"min_score" validate:"gte=0,lte=100"`
	MinTransactions int            `json:"min_transactions" validate:"gte=0"`
	MinYears        int            `json:"min_years" validate:"gte=0,lte=80"`
	LicensedStates  []string       `json:"licensed_states" validate:"max=60,dive,usstate"`

	Plan          string              `json:"plan,omitempty" validate:"omitempty,max=32"`
	LeadsPerMonth *int                `json:"leads_per_month,omitempty" validate:"omitempty,gte=0,lte=10000"`
	Status        models.ClientStatus `json:"status,omitempty" validate:"omitempty,oneof=pending active past_due canceled"`
}

// apply copies the criteria onto c and reports whether the market moved.
func (req *ClientRequest) apply(c *models.Client) (marketChanged bool) {
	address := strings.TrimSpace(req.MarketAddress)
	marketChanged = !strings.EqualFold(address, c.MarketAddress)

	c.CompanyName = strings.TrimSpace(req.CompanyName)
	c.ContactName = strings.TrimSpace(req.ContactName)
	c.Email = strings.ToLower(strings.TrimSpace(req.Email))
	c.Phone = req.Phone
	c.ProType = req.ProType
	c.MarketAddress = address
	c.RadiusMiles = req.RadiusMiles
	c.MinScore = req.MinScore
	c.MinTransactions = req.MinTransactions
	c.MinYears = req.MinYears
	c.LicensedStates = upperAll(req.LicensedStates)
	if marketChanged {
		c.Latitude, c.Longitude = nil, nil
	}
	return marketChanged
}

// applyAdmin copies the billing fields an admin may override.
func (req *ClientRequest) applyAdmin(c *models.Client) error {
	if req.Plan != "" {
		if _, ok := pricing.LookupPlan(req.Plan); !ok {
			return fmt.Errorf("%w: %s", pricing.ErrUnknownPlan, req.Plan)
		}
		c.Plan = req.Plan
	}
	if req.LeadsPerMonth != nil {
		c.LeadsPerMonth = *req.LeadsPerMonth
	}
	if req.Status != "" {
		c.Status = req.Status
	}
	return nil
}

// MatchRunRequest is the optional body of POST /clients/{id}/matches/run.
type MatchRunRequest struct {
	Limit int `json:"limit" validate:"gte=0,lte=100"`
}

// MatchStatusRequest is the body of PUT /matches/{id}/status.
type MatchStatusRequest struct {
	Status models.MatchStatus `json:"status" validate:"required,oneof=pending contacted interviewing hired declined"`
	Notes  string             `json:"notes" validate:"max=2000"`
}

// SMSRequest is the body of POST /notifications/sms.
type SMSRequest struct {
	To   string `json:"to" validate:"required,e164"`
	Body string `json:"body" validate:"required,max=1600"`
}

// EmailRequest is the body of POST /notifications/email.
type EmailRequest struct {
	To      string `json:"to" validate:"required,email,max=254"`
	Subject string `json:"subject" validate:"required,max=200"`
	Body    string `json:"body" validate:"required,max=100000"`
	HTML    string `json:"html" validate:"max=200000"`
}

// CheckoutRequest is the body of POST /payments/checkout. Admins may check
// out on behalf of a client by naming ClientID.
type CheckoutRequest struct {
	pricing.Request
	ClientID string `json:"client_id" validate:"omitempty,uuid"`
}

// ChatRequest is the body of POST /ai/chat.
type ChatRequest struct {
	Messages []ai.Message `json:"messages" validate:"required,min=1,max=100,dive"`
}

// decodeJSON reads a JSON body of at most maxBodyBytes into v and validates
// it. It writes the error response itself and reports whether to continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			NewResponseWriter(w, r).Error(http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "request body too large")
		case errors.Is(err, io.EOF):
			NewResponseWriter(w, r).BadRequest("request body is empty")
		default:
			NewResponseWriter(w, r).BadRequest("invalid JSON: " + err.Error())
		}
		return false
	}
	return validateRequest(w, r, v)
}

// validateRequest runs the struct's validate tags and writes a
// VALIDATION_FAILED response when they fail.
func validateRequest(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	verr := validation.ValidateStruct(v)
	if verr == nil {
		return true
	}
	apiErr := verr.ToAPIError()
	NewResponseWriter(w, r).ValidationError(apiErr.Message, apiErr.Details)
	return false
}

// readBody reads a raw body of at most limit bytes.
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		NewResponseWriter(w, r).Error(http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "request body too large")
		return nil, false
	}
	return body, true
}

// uuidParam parses a chi URL parameter as a UUID, writing 400 when invalid.
func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		NewResponseWriter(w, r).BadRequest("invalid " + name)
		return uuid.Nil, false
	}
	return id, true
}

func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// pageParams reads limit and offset, clamped to sane bounds.
func pageParams(r *http.Request) (limit, offset int) {
	limit = getIntParam(r, "limit", defaultPageSize)
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset = getIntParam(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func pagination(total, count, limit, offset int) *PaginationMeta {
	return &PaginationMeta{
		Total:   int64(total),
		Count:   count,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+count < total,
	}
}

func parseCommaSeparated(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func upperAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	return out
}
