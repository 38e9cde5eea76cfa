package http

import (
	"net/http"

	"github.com/fintrack-api/internal/application/auth"
	"github.com/fintrack-api/internal/application/transaction"
	"github.com/fintrack-api/internal/config"
	"github.com/fintrack-api/internal/transport/http/handler"
	appmiddleware "github.com/fintrack-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.JWTProvider)

	// 5 requests/second with a burst of 10 on the public auth endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	authSvc := auth.NewService(auth.ServiceDeps{
		UserRepo:  deps.UserRepo,
		Mailer:    deps.Mailer,
		Google:    deps.GoogleVerifier,
		JWT:       deps.JWTProvider,
		OTPLength: cfg.OTPLength,
		OTPTTL:    cfg.OTPTTL,
	})
	txSvc := transaction.NewService(deps.TransactionRepo)

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(authSvc)
	txH := handler.NewTransactionHandler(txSvc)
	exportH := handler.NewExportHandler(txSvc)

	r.Route("/api", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/auth/register", authH.Register)
		r.With(sensitiveRL.Limit).Post("/auth/verify-otp", authH.VerifyOTP)
		r.With(sensitiveRL.Limit).Post("/auth/resend-otp", authH.ResendOTP)
		r.With(sensitiveRL.Limit).Post("/auth/login", authH.Login)
		r.With(sensitiveRL.Limit).Post("/auth/google", authH.GoogleLogin)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/auth/me", authH.Me)

			r.Post("/transactions", txH.Create)
			r.Get("/transactions", txH.List)
			r.Get("/transactions/summary", txH.Summary)
			r.Get("/transactions/export", exportH.Export)
			r.Get("/transactions/{id}", txH.Get)
			r.Put("/transactions/{id}", txH.Update)
			r.Delete("/transactions/{id}", txH.Delete)
		})
	})

	return r
}
