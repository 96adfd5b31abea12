// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator() should return the same instance")
	}
}

type leadRequest struct {
	Email   string   `json:"email" validate:"required,email"`
	Phone   string   `json:"phone" validate:"omitempty,e164"`
	State   string   `json:"state" validate:"omitempty,usstate"`
	ProType string   `json:"pro_type" validate:"required,protype"`
	Years   int      `json:"years" validate:"min=0,max=80"`
	Name    string   `json:"name" validate:"max=5"`
	Tags    []string `json:"tags" validate:"max=2"`
}

func TestValidateStruct(t *testing.T) {
	valid := leadRequest{Email: "a@b.com", Phone: "+15551234567", State: "tx", ProType: "agent", Years: 3}

	tests := []struct {
		name      string
		mutate    func(*leadRequest)
		wantField string
		wantMsg   string
	}{
		{"valid", func(*leadRequest) {}, "", ""},
		{"missing email", func(r *leadRequest) { r.Email = "" }, "email", "email is required"},
		{"bad phone", func(r *leadRequest) { r.Phone = "555-1234" }, "phone", "E.164"},
		{"bad state", func(r *leadRequest) { r.State = "ZZ" }, "state", "US state"},
		{"bad pro type", func(r *leadRequest) { r.ProType = "broker" }, "pro_type", "agent or loan_officer"},
		{"negative years", func(r *leadRequest) { r.Years = -1 }, "years", "at least 0"},
		{"long name", func(r *leadRequest) { r.Name = "abcdefgh" }, "name", "at most 5 characters"},
		{"too many tags", func(r *leadRequest) { r.Tags = []string{"a", "b", "c"} }, "tags", "at most 2 items"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			err := ValidateStruct(&req)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			if len(err.Errors()) != 1 {
				t.Fatalf("expected 1 error, got %d: %v", len(err.Errors()), err)
			}
			fe := err.Errors()[0]
			if fe.Field() != tt.wantField {
				t.Errorf("field = %q, want %q", fe.Field(), tt.wantField)
			}
			if !strings.Contains(fe.Error(), tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", fe.Error(), tt.wantMsg)
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	err := ValidateStruct(&leadRequest{ProType: "x", Years: 200})
	if err == nil {
		t.Fatal("expected errors")
	}
	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_FAILED" {
		t.Errorf("Code = %q, want VALIDATION_FAILED", apiErr.Code)
	}
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok || len(fields) != 3 {
		t.Fatalf("expected 3 field details, got %v", apiErr.Details)
	}
}

func TestIsUSState(t *testing.T) {
	for _, code := range []string{"TX", "ca", "DC", "PR"} {
		if !IsUSState(code) {
			t.Errorf("IsUSState(%q) = false", code)
		}
	}
	for _, code := range []string{"", "XX", "Texas"} {
		if IsUSState(code) {
			t.Errorf("IsUSState(%q) = true", code)
		}
	}
}
