package http

import (
	"github.com/fintrack-api/internal/infrastructure/dynamo"
	"github.com/fintrack-api/internal/infrastructure/google"
	jwtinfra "github.com/fintrack-api/internal/infrastructure/jwt"
	"github.com/fintrack-api/internal/infrastructure/smtp"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo        *dynamo.UserRepo
	TransactionRepo *dynamo.TransactionRepo
	Mailer          smtp.Mailer
	GoogleVerifier  google.TokenVerifier
	JWTProvider     *jwtinfra.Provider
}
