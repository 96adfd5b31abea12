// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package onboarding

// Wizard kinds.
const (
	KindPro    = "pro"
	KindClient = "client"
)

// Step is one page of a wizard. New returns a pointer to the struct the
// step's JSON body decodes into.
type Step struct {
	Name  string
	Title string
	New   func() interface{}
}

// Wizard is an ordered list of steps.
type Wizard struct {
	Kind  string
	Steps []Step
}

// StepNames returns the step names in order.
func (w *Wizard) StepNames() []string {
	names := make([]string, len(w.Steps))
	for i, s := range w.Steps {
		names[i] = s.Name
	}
	return names
}

func (w *Wizard) step(name string) (int, *Step) {
	for i := range w.Steps {
		if w.Steps[i].Name == name {
			return i, &w.Steps[i]
		}
	}
	return -1, nil
}

// Pro wizard steps.

type ProProfile struct {
	Type      string `json:"pro_type" validate:"required,protype"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

type ProLicense struct {
	LicenseNumber  string   `json:"license_number" validate:"required,max=64"`
	LicensedStates []string `json:"licensed_states" validate:"required,min=1,dive,usstate"`
	YearsLicensed  int      `json:"years_licensed" validate:"gte=0,lte=70"`
}

type ProProduction struct {
	Brokerage    string  `json:"brokerage,omitempty" validate:"max=200"`
	Transactions int     `json:"transactions" validate:"gte=0,lte=10000"`
	VolumeUSD    float64 `json:"volume_usd" validate:"gte=0"`
}

type ProPreferences struct {
	City  string `json:"city" validate:"required,max=100"`
	State string `json:"state" validate:"required,usstate"`
	Zip   string `json:"zip,omitempty" validate:"omitempty,numeric,len=5"`
}

// Client wizard steps.

type ClientCompany struct {
	CompanyName string `json:"company_name" validate:"required,max=200"`
	ContactName string `json:"contact_name,omitempty" validate:"max=200"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

type ClientMarket struct {
	MarketAddress string  `json:"market_address" validate:"required,max=300"`
	RadiusMiles   float64 `json:"radius_miles" validate:"gt=0,lte=500"`
}

type ClientCriteria struct {
	ProType         string   `json:"pro_type" validate:"required,protype"`
	MinScore        int      `json:"min_score" validate:"gte=0,lte=100"`
	MinTransactions int      `json:"min_transactions" validate:"gte=0"`
	MinYears        int      `json:"min_years" validate:"gte=0,lte=70"`
	LicensedStates  []string `json:"licensed_states,omitempty" validate:"omitempty,dive,usstate"`
}

type ClientPlan struct {
	Plan string `json:"plan" validate:"required,oneof=starter growth pro enterprise"`
}

var wizards = map[string]*Wizard{
	KindPro: {
		Kind: KindPro,
		Steps: []Step{
			{Name: "profile", Title: "About you", New: func() interface{} { return &ProProfile{} }},
			{Name: "license", Title: "Licensing", New: func() interface{} { return &ProLicense{} }},
			{Name: "production", Title: "Production", New: func() interface{} { return &ProProduction{} }},
			{Name: "preferences", Title: "Where you work", New: func() interface{} { return &ProPreferences{} }},
		},
	},
	KindClient: {
		Kind: KindClient,
		Steps: []Step{
			{Name: "company", Title: "Company", New: func() interface{} { return &ClientCompany{} }},
			{Name: "market", Title: "Market", New: func() interface{} { return &ClientMarket{} }},
			{Name: "criteria", Title: "Who you are hiring", New: func() interface{} { return &ClientCriteria{} }},
			{Name: "plan", Title: "Plan", New: func() interface{} { return &ClientPlan{} }},
		},
	},
}

// Lookup returns the wizard for kind.
func Lookup(kind string) (*Wizard, bool) {
	w, ok := wizards[kind]
	return w, ok
}
