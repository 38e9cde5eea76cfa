package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fintrack-api/internal/domain"
	"github.com/fintrack-api/internal/infrastructure/google"
	"github.com/fintrack-api/internal/infrastructure/smtp"
	"github.com/fintrack-api/internal/pkg/id"
	"github.com/fintrack-api/internal/pkg/otp"
	"golang.org/x/crypto/bcrypt"
)

// UserStore is the persistence surface the auth flows need.
type UserStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

// TokenSigner mints session tokens.
type TokenSigner interface {
	Sign(userID, email string) (string, error)
}

type Service interface {
	Register(ctx context.Context, req domain.RegisterRequest) error
	VerifyOTP(ctx context.Context, req domain.VerifyOTPRequest) (token string, user *domain.User, err error)
	ResendOTP(ctx context.Context, email string) error
	Login(ctx context.Context, req domain.LoginRequest) (token string, user *domain.User, err error)
	GoogleLogin(ctx context.Context, idToken string) (token string, user *domain.User, err error)
	CurrentUser(ctx context.Context, userID string) (*domain.User, error)
}

type ServiceDeps struct {
	UserRepo  UserStore
	Mailer    smtp.Mailer
	Google    google.TokenVerifier
	JWT       TokenSigner
	OTPLength int
	OTPTTL    time.Duration
}

type service struct {
	userRepo  UserStore
	mailer    smtp.Mailer
	google    google.TokenVerifier
	jwt       TokenSigner
	otpLength int
	otpTTL    time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		userRepo:  deps.UserRepo,
		mailer:    deps.Mailer,
		google:    deps.Google,
		jwt:       deps.JWT,
		otpLength: deps.OTPLength,
		otpTTL:    deps.OTPTTL,
	}
}

// Register creates an unverified user and dispatches the OTP. No token is
// issued until the email is verified.
func (s *service) Register(ctx context.Context, req domain.RegisterRequest) error {
	if _, err := s.userRepo.GetByEmail(ctx, req.Email); err == nil {
		return fmt.Errorf("email already used: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	code, err := otp.New(s.otpLength)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Verified:     false,
		OTPCode:      code,
		OTPExpiresAt: now.Add(s.otpTTL).Unix(),
		AuthProvider: domain.ProviderLocal,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Put(ctx, u); err != nil {
		return err
	}
	return s.mailer.SendEmail(u.Email, "Verify your account", "Your OTP is: "+code)
}

// VerifyOTP transitions the user to verified and auto-logs them in. The
// verified flag flip and the OTP field clear go through a single update so
// one never persists without the other.
func (s *service) VerifyOTP(ctx context.Context, req domain.VerifyOTPRequest) (string, *domain.User, error) {
	u, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return "", nil, err
	}
	if u.Verified {
		return "", nil, fmt.Errorf("account already verified: %w", domain.ErrConflict)
	}
	// Expiry equal to now counts as expired.
	if u.OTPCode == "" || req.OTP != u.OTPCode || u.OTPExpiresAt == 0 || u.OTPExpiresAt <= time.Now().Unix() {
		return "", nil, fmt.Errorf("invalid or expired OTP: %w", domain.ErrBadRequest)
	}
	if err := s.userRepo.Update(ctx, u.UserID, map[string]interface{}{
		"verified":       true,
		"otp_code":       "",
		"otp_expires_at": 0,
	}); err != nil {
		return "", nil, err
	}
	u.Verified = true
	u.OTPCode = ""
	u.OTPExpiresAt = 0

	token, err := s.jwt.Sign(u.UserID, u.Email)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// ResendOTP overwrites any previous code and redelivers it. Resend
// frequency is only bounded by the transport-level rate limiter.
func (s *service) ResendOTP(ctx context.Context, email string) error {
	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if u.Verified {
		return fmt.Errorf("account already verified: %w", domain.ErrConflict)
	}
	code, err := otp.New(s.otpLength)
	if err != nil {
		return err
	}
	if err := s.userRepo.Update(ctx, u.UserID, map[string]interface{}{
		"otp_code":       code,
		"otp_expires_at": time.Now().UTC().Add(s.otpTTL).Unix(),
	}); err != nil {
		return err
	}
	return s.mailer.SendEmail(u.Email, "Resend OTP", "Your new OTP is: "+code)
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (string, *domain.User, error) {
	if req.HasGoogleUser() {
		// Client-supplied profile blobs are not a credential.
		return "", nil, fmt.Errorf("google login requires a verified ID token, use /api/auth/google: %w", domain.ErrBadRequest)
	}
	u, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil, fmt.Errorf("invalid credentials: %w", domain.ErrBadRequest)
		}
		return "", nil, err
	}
	if u.PasswordHash == "" {
		return "", nil, fmt.Errorf("this account was created with Google, please log in using Google: %w", domain.ErrBadRequest)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return "", nil, fmt.Errorf("invalid credentials: %w", domain.ErrBadRequest)
	}
	if !u.Verified {
		return "", nil, fmt.Errorf("email not verified: %w", domain.ErrBadRequest)
	}
	token, err := s.jwt.Sign(u.UserID, u.Email)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// GoogleLogin verifies the provider token against Google's public keys,
// creating a verified account bound to the Google subject on first login.
func (s *service) GoogleLogin(ctx context.Context, idToken string) (string, *domain.User, error) {
	payload, err := s.google.Verify(ctx, idToken)
	if err != nil {
		return "", nil, err
	}
	if !payload.EmailVerified {
		return "", nil, fmt.Errorf("google account email is not verified: %w", domain.ErrUnauthorized)
	}

	u, err := s.userRepo.GetByEmail(ctx, payload.Email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		now := time.Now().UTC()
		u = &domain.User{
			UserID:       id.New(),
			Username:     payload.Name,
			Email:        payload.Email,
			Verified:     true,
			AuthProvider: domain.ProviderGoogle,
			GoogleSub:    payload.Sub,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.userRepo.Put(ctx, u); err != nil {
			return "", nil, err
		}
	case err != nil:
		return "", nil, err
	case u.GoogleSub == "":
		// Existing local account logging in with Google for the first time.
		if err := s.userRepo.Update(ctx, u.UserID, map[string]interface{}{
			"google_sub": payload.Sub,
			"verified":   true,
		}); err != nil {
			slog.Warn("failed to link google subject", "user_id", u.UserID, "err", err)
		}
		u.GoogleSub = payload.Sub
		u.Verified = true
	}

	token, err := s.jwt.Sign(u.UserID, u.Email)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

func (s *service) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.userRepo.Get(ctx, userID)
}
