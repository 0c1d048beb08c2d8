package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"me_result_portal/backend/internal/gateway/handlers"
	"me_result_portal/backend/internal/gateway/util"
	"me_result_portal/backend/internal/result"
	"me_result_portal/backend/internal/review"
	"me_result_portal/backend/internal/shared"
)

// SetupRoutes configures the Chi router, middleware, and route handlers.
func SetupRoutes(auth handlers.AuthService, results *result.Service, stage *review.Stage, cfg *shared.PortalConfig) *chi.Mux {
	r := chi.NewRouter()

	// 1. Global Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS Configuration (Allow Frontend)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	// 2. Initialize Handlers
	authHandler := &handlers.AuthHandler{Auth: auth}
	resultHandler := &handlers.ResultHandler{Results: results, Review: stage}

	// 3. Define Routes (grouped by prefix)
	r.Route("/api/v1", func(r chi.Router) {

		// --- Public Routes ---

		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout) // Logout handles its own token extraction

		// --- Protected Routes (Require Valid Token) ---
		r.Group(func(r chi.Router) {
			r.Use(SessionMiddleware(auth))

			r.Get("/auth/validate", authHandler.ValidateToken)

			// Result lookup (students restricted to their own record)
			r.Post("/results/lookup", resultHandler.Lookup)

			// --- Admin Routes (Require Admin Identity) ---
			r.Route("/admin/results", func(r chi.Router) {
				r.Use(RequireAdmin(cfg.Security.AdminUserID))

				r.Post("/extract", resultHandler.Extract)
				r.Get("/review", resultHandler.ReviewGet)
				r.Patch("/review", resultHandler.ReviewEdit)
				r.Post("/publish", resultHandler.Publish)
				r.Post("/edit", resultHandler.EditFetch)
				r.Put("/edit", resultHandler.EditUpdate)
				r.Get("/latest", resultHandler.Latest)
			})
		})
	})

	return r
}

// SessionMiddleware creates a middleware that validates bearer tokens via
// the auth service and injects the authenticated user into the context.
func SessionMiddleware(auth handlers.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, err := util.ExtractToken(r)
			if err != nil {
				util.WriteJSONError(w, http.StatusUnauthorized, "Authorization token required")
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()

			user, err := auth.Validate(ctx, tokenStr)
			if err != nil {
				util.HandleServiceError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(handlers.WithUser(r.Context(), user)))
		})
	}
}

// RequireAdmin gates a route group to the configured admin identity. Role
// alone is not enough: the authenticated user id must match the portal's
// admin user id.
func RequireAdmin(adminUserID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := handlers.CurrentUser(r)
			if user == nil {
				util.WriteJSONError(w, http.StatusUnauthorized, "Authorization token required")
				return
			}
			if user.Role != shared.RoleAdmin || user.ID != adminUserID {
				util.WriteJSONError(w, http.StatusForbidden, "Admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
