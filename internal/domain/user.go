package domain

import (
	"encoding/json"
	"time"
)

// User auth providers.
const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

type User struct {
	UserID       string    `json:"id" dynamodbav:"user_id"`
	Username     string    `json:"username" dynamodbav:"username"`
	Email        string    `json:"email" dynamodbav:"email"`
	PasswordHash string    `json:"-" dynamodbav:"password_hash"`
	Verified     bool      `json:"is_verified" dynamodbav:"verified"`
	OTPCode      string    `json:"-" dynamodbav:"otp_code"`
	OTPExpiresAt int64     `json:"-" dynamodbav:"otp_expires_at"` // Unix seconds, 0 when no OTP is pending
	AuthProvider string    `json:"auth_provider,omitempty" dynamodbav:"auth_provider"` // "local" | "google"
	GoogleSub    string    `json:"-" dynamodbav:"google_sub"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated" dynamodbav:"updated_at"`
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required"`
}

type ResendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	// GoogleUser is the legacy client-supplied profile blob, sent by old
	// clients as a JSON object. It is never trusted; requests carrying it
	// are pointed at the verified Google token flow instead.
	GoogleUser json.RawMessage `json:"googleUser,omitempty"`
}

// HasGoogleUser reports whether the request carries the legacy profile blob
// in any JSON form. An explicit null counts as absent.
func (r LoginRequest) HasGoogleUser() bool {
	return len(r.GoogleUser) > 0 && string(r.GoogleUser) != "null"
}

type GoogleLoginRequest struct {
	Token string `json:"token" validate:"required"`
}
