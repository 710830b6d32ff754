package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/immunopass-go/internal/config"
	"github.com/immunopass-go/internal/transport/http/handler"
	appmiddleware "github.com/immunopass-go/internal/transport/http/middleware"
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
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.Tokens != nil {
		authMw = appmiddleware.Auth(deps.Tokens)
	} else {
		authMw = func(http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, `{"error":"authentication unavailable"}`, http.StatusUnauthorized)
			})
		}
	}

	// 5 requests/second, burst of 10 on the OTP endpoints.
	otpRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	healthH := handler.NewHealthHandler()
	otpH := handler.NewOTPHandler(deps.OTP)
	orderH := handler.NewVoucherOrderHandler(deps.Vouchers)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Check)
		r.Post("/health-check/{action}", healthH.Check)

		r.With(otpRL.Limit).Post("/otp/send", otpH.Send)
		r.With(otpRL.Limit).Post("/otp/verify", otpH.Verify)

		r.Group(func(r chi.Router) {
			r.Use(authMw)
			r.Post("/voucher-orders", orderH.Create)
		})
	})

	return r
}
