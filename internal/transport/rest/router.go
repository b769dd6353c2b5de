package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/policy-register/internal/audit"
	"github.com/frahmantamala/policy-register/internal/auth"
	"github.com/frahmantamala/policy-register/internal/document"
	"github.com/frahmantamala/policy-register/internal/group"
	"github.com/frahmantamala/policy-register/internal/taxonomy"
	"github.com/frahmantamala/policy-register/internal/transport"
	"github.com/frahmantamala/policy-register/internal/transport/middleware"
	"github.com/frahmantamala/policy-register/internal/transport/swagger"
	"github.com/frahmantamala/policy-register/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

type Handlers struct {
	Health      *HealthHandler
	Auth        *auth.Handler
	RBAC        *auth.RBACAuthorization
	User        *user.Handler
	Group       *group.Handler
	Categories  *taxonomy.Handler
	PolicyTypes *taxonomy.Handler
	Policies    *document.Handler
	Documents   *document.Handler
	Audit       *audit.Handler
}

type Options struct {
	AllowedOrigins string
	// LoginLimiter is nil when rate limiting is disabled.
	LoginLimiter *middleware.RateLimiter
	// Spec is nil when the OpenAPI document could not be loaded.
	Spec *swagger.Spec
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, opts Options, logger *slog.Logger) {
	rbac := h.RBAC

	// Apply global middleware
	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	if opts.Spec != nil {
		router.Handle("/openapi.yml", opts.Spec)
		router.Handle("/swagger/*", swagger.Handler())
	}

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health.healthCheckHandler)
		r.Get("/ping", h.Health.pingHandler)

		r.Route("/auth", func(ar chi.Router) {
			ar.Post("/register", h.Auth.Register)
			ar.Group(func(lr chi.Router) {
				if opts.LoginLimiter != nil {
					lr.Use(opts.LoginLimiter.Middleware)
				}
				lr.Post("/login", h.Auth.Login)
			})
			ar.Group(func(mr chi.Router) {
				mr.Use(h.Auth.AuthMiddleware, middleware.UserContext, rbac.RequireRead())
				mr.Get("/me", h.Auth.Me)
			})
		})

		// Public surface ignores any bearer token sent along
		r.Route("/public", func(pr chi.Router) {
			pr.Get("/categories", h.Categories.PublicList)
			pr.Get("/policy-types", h.PolicyTypes.PublicList)
			publicDocumentRoutes(pr, "/policies", h.Policies)
			publicDocumentRoutes(pr, "/documents", h.Documents)
		})

		// Protected routes that require authentication
		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)
			pr.Use(middleware.UserContext)

			taxonomyRoutes(pr, "/categories", h.Categories, rbac)
			taxonomyRoutes(pr, "/policy-types", h.PolicyTypes, rbac)
			documentRoutes(pr, "/policies", h.Policies, rbac)
			documentRoutes(pr, "/documents", h.Documents, rbac)

			pr.Route("/user-groups", func(gr chi.Router) {
				gr.With(rbac.RequireRead()).Get("/", h.Group.List)
				gr.With(rbac.RequireRead()).Get("/{id}", h.Group.Get)

				gr.Group(func(ar chi.Router) {
					ar.Use(rbac.RequireAdmin())
					ar.Post("/", h.Group.Create)
					ar.Put("/{id}", h.Group.Update)
					ar.Patch("/{id}", h.Group.Update)
					ar.Delete("/{id}", h.Group.Delete)
					ar.Patch("/{id}/restore", h.Group.Restore)
				})
			})

			pr.Route("/users", func(ur chi.Router) {
				ur.Use(rbac.RequireAdmin())
				ur.Get("/", h.User.List)
				ur.Get("/{id}", h.User.Get)
				ur.Put("/{id}", h.User.Update)
				ur.Patch("/{id}", h.User.Update)
				ur.Delete("/{id}", h.User.Delete)
				ur.Patch("/{id}/approve", h.User.Approve)
				ur.Patch("/{id}/suspend", h.User.Suspend)
				ur.Patch("/{id}/restore", h.User.Restore)
				ur.Patch("/{id}/role", h.User.ChangeRole)
				ur.Patch("/{id}/groups", h.User.AssignGroups)
			})

			pr.With(rbac.RequireAdmin()).Get("/audit-events", h.Audit.List)
		})
	})

	base := transport.NewBaseHandler(logger)
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		base.WriteError(w, http.StatusNotFound, "Route not found")
	})
}

func publicDocumentRoutes(r chi.Router, prefix string, h *document.Handler) {
	r.Route(prefix, func(dr chi.Router) {
		dr.Get("/", h.PublicList)
		dr.Get("/{id}", h.PublicGet)
		dr.Get("/{id}/download", h.PublicDownload)
	})
}

func documentRoutes(r chi.Router, prefix string, h *document.Handler, rbac *auth.RBACAuthorization) {
	r.Route(prefix, func(dr chi.Router) {
		dr.Group(func(rr chi.Router) {
			rr.Use(rbac.RequireRead())
			rr.Get("/", h.List)
			rr.Get("/{id}", h.Get)
			rr.Get("/{id}/download", h.Download)
			rr.Get("/{id}/versions", h.Versions)
		})

		dr.Group(func(wr chi.Router) {
			wr.Use(rbac.RequireWrite())
			wr.Post("/", h.Create)
			wr.Put("/{id}", h.Update)
			wr.Patch("/{id}", h.Update)
			wr.Patch("/{id}/visibility", h.SetVisibility)
			wr.Delete("/{id}", h.Delete)
			wr.Patch("/{id}/restore", h.Restore)
			wr.Patch("/{id}/document", h.Replace)
		})
	})
}

func taxonomyRoutes(r chi.Router, prefix string, h *taxonomy.Handler, rbac *auth.RBACAuthorization) {
	r.Route(prefix, func(tr chi.Router) {
		tr.With(rbac.RequireRead()).Get("/", h.List)
		tr.With(rbac.RequireRead()).Get("/{id}", h.Get)

		tr.Group(func(wr chi.Router) {
			wr.Use(rbac.RequireWrite())
			wr.Post("/", h.Create)
			wr.Put("/{id}", h.Update)
			wr.Patch("/{id}", h.Update)
			wr.Delete("/{id}", h.Delete)
			wr.Patch("/{id}/restore", h.Restore)
		})
	})
}
