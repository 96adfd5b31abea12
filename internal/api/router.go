// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/tomtom215/owldoor/internal/auth"
	"github.com/tomtom215/owldoor/internal/authz"
	"github.com/tomtom215/owldoor/internal/middleware"
)

// Router wires handlers and middleware into a chi mux.
type Router struct {
	handler       *Handler
	authn         *auth.Middleware
	authz         *authz.Middleware
	chiMiddleware *ChiMiddleware
}

// NewRouter creates the router. mw may be nil for the defaults.
func NewRouter(handler *Handler, authn *auth.Middleware, authzMW *authz.Middleware, mw *ChiMiddlewareConfig) *Router {
	if mw == nil {
		mw = ChiMiddlewareConfigFrom(handler.cfg.Security)
	}
	authn.SetErrorWriter(writeAccessError)
	authzMW.SetErrorWriter(writeAccessError)
	return &Router{
		handler:       handler,
		authn:         authn,
		authz:         authzMW,
		chiMiddleware: NewChiMiddleware(mw),
	}
}

// writeAccessError renders auth and authz rejections in the API envelope.
func writeAccessError(w http.ResponseWriter, r *http.Request, status int, message string) {
	rw := NewResponseWriter(w, r)
	switch status {
	case http.StatusUnauthorized:
		rw.Unauthorized(message)
	case http.StatusForbidden:
		rw.Forbidden(message)
	default:
		rw.InternalError(message)
	}
}

// Setup builds the HTTP handler.
func (router *Router) Setup() http.Handler {
	h := router.handler
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(chiMiddleware(middleware.PrometheusMetrics))
	r.Use(chiMiddleware(h.perfMon.Middleware))
	r.Use(chiMiddleware(middleware.Compression))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).Error(http.StatusMethodNotAllowed, ErrCodeBadRequest, "method not allowed")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(APISecurityHeaders())

		r.Route("/health", func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitCustom(RateLimitHealth))
			r.Get("/", h.Health)
			r.Get("/live", h.HealthLive)
			r.Get("/ready", h.HealthReady)
		})

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitCustom(RateLimitPublic))
			r.Post("/score", h.Score)
			r.Post("/pricing/quote", h.Quote)
			r.Get("/pricing/plans", h.Plans)
		})

		r.Route("/webhooks", func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitCustom(RateLimitWebhooks))
			r.Post("/leads", h.LeadWebhook)
			r.Post("/stripe", h.StripeWebhook)
		})

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit())
			r.Use(router.authn.Authenticate)
			r.Use(router.authz.AuthorizeRequest)

			r.Get("/geocode", h.Geocode)

			r.Route("/pros", func(r chi.Router) {
				r.Get("/", h.ListPros)
				r.Post("/", h.CreatePro)
				r.Get("/{id}", h.GetPro)
				r.Put("/{id}", h.UpdatePro)
				r.Delete("/{id}", h.DeletePro)
				r.Put("/{id}/stage", h.OverrideStage)
			})

			r.Route("/clients", func(r chi.Router) {
				r.Get("/", h.ListClients)
				r.Post("/", h.CreateClient)
				r.Get("/{id}", h.GetClient)
				r.Put("/{id}", h.UpdateClient)
				r.Get("/{id}/matches", h.ListMatches)
				r.With(router.chiMiddleware.RateLimitCustom(RateLimitWrite)).
					Post("/{id}/matches/run", h.RunMatches)
			})
			r.Put("/matches/{id}/status", h.UpdateMatchStatus)

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.ListNotifications)
				r.With(router.chiMiddleware.RateLimitCustom(RateLimitWrite)).Post("/sms", h.SendSMS)
				r.With(router.chiMiddleware.RateLimitCustom(RateLimitWrite)).Post("/email", h.SendEmail)
			})

			r.Post("/payments/checkout", h.Checkout)

			r.With(router.chiMiddleware.RateLimitCustom(RateLimitChat)).Post("/ai/chat", h.Chat)
			r.Get("/ai/history", h.ChatHistory)

			r.Get("/onboarding/{kind}", h.OnboardingProgress)
			r.Put("/onboarding/{kind}/steps/{step}", h.OnboardingStep)

			r.Route("/admin", func(r chi.Router) {
				r.Use(router.authn.RequireRole(auth.RoleAdmin))
				r.Get("/dashboard", h.AdminDashboard)
				r.Get("/audit", h.AuditEvents)
				r.Get("/ws", h.AdminWebSocket)
			})
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	return r
}
