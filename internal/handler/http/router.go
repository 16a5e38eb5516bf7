package http

import (
	"log/slog"
	"os"

	"github.com/cloudincsa/leave-plugin-sub004/internal/domain/user"
	"github.com/cloudincsa/leave-plugin-sub004/internal/handler/http/middleware"
	"github.com/cloudincsa/leave-plugin-sub004/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterConfig struct {
	Env         string
	Version     string
	LogLevel    slog.Level
	CORSOrigins []string
}

func NewRouter(cfg RouterConfig, JWTService jwt.Service, limiter *middleware.RateLimiter, leaveHandler LeaveHandler, eventHandler EventHandler) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(cfg.Env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "leave-service"),
		slog.String("version", cfg.Version),
		slog.String("env", cfg.Env),
	)

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Retry-After"},
		MaxAge:           300,
	}))

	r.Use(chiMiddleware.RequestID)
	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  cfg.LogLevel,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	r.Route("/api/v1/leave", func(r chi.Router) {
		// Authenticated by a stream token in the query string.
		r.Get("/events", eventHandler.Stream)

		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired)
			r.Use(limiter.Handler)

			r.Post("/events/token", eventHandler.StreamToken)
			r.Get("/days", leaveHandler.PreviewDays)

			r.Route("/requests", func(r chi.Router) {
				r.With(middleware.RequirePermission(user.PermissionLeaveCreate)).Post("/", leaveHandler.SubmitRequest)
				r.With(middleware.RequirePermission(user.PermissionLeaveViewOwn)).Get("/my", leaveHandler.GetMyRequests)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(user.PermissionLeaveApprove))
					r.Get("/pending", leaveHandler.ListPendingRequests)
					r.Post("/{id}/approve", leaveHandler.ApproveRequest)
					r.Post("/{id}/reject", leaveHandler.RejectRequest)
				})

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(user.PermissionLeaveCancel))
					r.Post("/{id}/cancel", leaveHandler.CancelRequest)
					r.Post("/{id}/cancel-approved", leaveHandler.CancelApprovedRequest)
				})
			})

			r.Route("/balances", func(r chi.Router) {
				r.With(middleware.RequirePermission(user.PermissionLeaveViewOwn)).Get("/my", leaveHandler.GetMyBalances)
				r.With(middleware.RequirePermission(user.PermissionBalanceManage)).Put("/", leaveHandler.SetBalance)
			})
		})
	})

	return r
}
