package http

import (
	"github.com/immunopass-go/internal/application/otp"
	"github.com/immunopass-go/internal/application/voucher"
	"github.com/immunopass-go/internal/transport/http/middleware"
)

// Deps holds the services and token verifier the router needs.
type Deps struct {
	OTP      otp.Service
	Vouchers voucher.Service
	// Tokens guards the authenticated routes. When nil they answer 401.
	Tokens middleware.TokenVerifier
}
