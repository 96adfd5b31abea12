// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/owldoor/internal/audit"
	"github.com/tomtom215/owldoor/internal/auth"
	"github.com/tomtom215/owldoor/internal/authz"
	"github.com/tomtom215/owldoor/internal/config"
	"github.com/tomtom215/owldoor/internal/database"
	"github.com/tomtom215/owldoor/internal/geocode"
	"github.com/tomtom215/owldoor/internal/ingest"
	"github.com/tomtom215/owldoor/internal/matching"
	"github.com/tomtom215/owldoor/internal/onboarding"
	"github.com/tomtom215/owldoor/internal/payments"
	"github.com/tomtom215/owldoor/internal/pricing"
)

const (
	testJWTSecret     = "api-test-secret-0123456789abcdef0123"
	testWebhookSecret = "whsec_api_test"
	testLeadKey       = "zillow-test-key-0123456789"
	testOrigin        = "https://app.owldoor.test"
)

// testDBSemaphore serializes DuckDB usage across tests.
var testDBSemaphore = make(chan struct{}, 1)

// austin answers every geocode query with downtown Austin.
type austin struct{}

func (austin) Geocode(_ context.Context, query string) (*geocode.Result, error) {
	return &geocode.Result{Lat: 30.2672, Lng: -97.7431, City: "Austin", State: "TX", Source: "test"}, nil
}

// fakeStripe records checkout session requests.
type fakeStripe struct {
	mu    sync.Mutex
	forms []url.Values
}

func (f *fakeStripe) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/checkout/sessions" || r.Header.Get("Authorization") != "Bearer sk_test_api" {
		http.Error(w, `{"error":{"message":"bad request"}}`, http.StatusBadRequest)
		return
	}
	_ = r.ParseForm()
	f.mu.Lock()
	f.forms = append(f.forms, r.PostForm)
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"id":"cs_test_1","url":"https://checkout.stripe.test/cs_test_1"}`))
}

func (f *fakeStripe) last() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.forms) == 0 {
		return nil
	}
	return f.forms[len(f.forms)-1]
}

type testServer struct {
	t       *testing.T
	cfg     *config.Config
	db      *database.DB
	jwt     *auth.JWTManager
	audit   *audit.Logger
	stripe  *fakeStripe
	handler http.Handler
}

// newTestServer builds the full router over an in-memory database. mw
// overrides the middleware config; nil disables rate limiting.
func newTestServer(t *testing.T, mw *ChiMiddlewareConfig) *testServer {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	stripe := &fakeStripe{}
	stripeSrv := httptest.NewServer(stripe)
	t.Cleanup(stripeSrv.Close)

	cfg := &config.Config{}
	cfg.Server.Environment = "test"
	cfg.Security = config.SecurityConfig{
		JWTSecret:         testJWTSecret,
		RateLimitDisabled: true,
		CORSOrigins:       []string{testOrigin},
	}
	cfg.Stripe = config.StripeConfig{
		SecretKey:     "sk_test_api",
		WebhookSecret: testWebhookSecret,
		BaseURL:       stripeSrv.URL,
		SuccessURL:    testOrigin + "/billing/success",
		CancelURL:     testOrigin + "/billing/cancel",
	}
	cfg.Matching.DefaultRadiusMiles = 50

	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "512MB", Threads: 2})
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("db.Close: %v", err)
		}
	})

	hash, err := ingest.HashKey(testLeadKey)
	if err != nil {
		t.Fatalf("HashKey: %v", err)
	}
	leadKeys := ingest.NewKeyAuthenticator(map[string]string{"zillow": hash})
	t.Cleanup(leadKeys.Close)

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	enforcer, err := authz.NewEnforcer(cfg.Security.Casbin)
	if err != nil {
		t.Fatalf("NewEnforcer: %v", err)
	}
	t.Cleanup(enforcer.Close)

	store := audit.NewDuckDBStore(db.Conn())
	if err := store.CreateTable(context.Background()); err != nil {
		t.Fatalf("audit CreateTable: %v", err)
	}
	trail := audit.NewLogger(store, config.AuditConfig{Enabled: true, BufferSize: 100})
	t.Cleanup(func() { _ = trail.Close() })

	geo := austin{}
	h := NewHandler(Deps{
		Config:         cfg,
		DB:             db,
		Geocoder:       geo,
		Pricing:        pricing.NewCalculator(nil),
		Ingest:         ingest.NewService(db, geo, nil),
		LeadKeys:       leadKeys,
		Matching:       matching.NewEngine(db, geo, nil, cfg.Matching),
		Payments:       payments.NewService(cfg.Stripe, db, nil),
		Onboarding:     onboarding.NewService(db, nil),
		Audit:          trail,
		EventTransport: "gochannel",
	})
	if mw == nil {
		mw = ChiMiddlewareConfigFrom(cfg.Security)
	}
	router := NewRouter(h, auth.NewMiddleware(jwtManager, ""), authz.NewMiddleware(enforcer), mw)

	return &testServer{t: t, cfg: cfg, db: db, jwt: jwtManager, audit: trail, stripe: stripe, handler: router.Setup()}
}

// token mints an access token for userID with role.
func (s *testServer) token(userID, role string) string {
	s.t.Helper()
	tok, err := s.jwt.GenerateToken(userID, userID+"@example.com", role)
	if err != nil {
		s.t.Fatalf("GenerateToken: %v", err)
	}
	return tok
}

// do sends a request. body is JSON-encoded unless it is already a []byte.
func (s *testServer) do(method, path, token string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			s.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "192.0.2.10:4567"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success  bool            `json:"success"`
	Data     json.RawMessage `json:"data"`
	Error    *APIError       `json:"error"`
	Metadata *APIMeta        `json:"metadata"`
}

// decode parses the envelope and, when data is non-nil, its payload.
func decode(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("response is not an envelope: %v\n%s", err, rec.Body.String())
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("decode data: %v\n%s", err, env.Data)
		}
	}
	return env
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d\nbody: %s", rec.Code, want, strings.TrimSpace(rec.Body.String()))
	}
}
