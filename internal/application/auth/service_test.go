package auth

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/fintrack-api/internal/domain"
	"github.com/fintrack-api/internal/infrastructure/google"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserStore) Put(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockUserStore) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	return m.Called(ctx, userID, updates).Error(0)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(to, subject, body string) error {
	return m.Called(to, subject, body).Error(0)
}

type mockVerifier struct{ mock.Mock }

func (m *mockVerifier) Verify(ctx context.Context, token string) (*google.Payload, error) {
	args := m.Called(ctx, token)
	if p, _ := args.Get(0).(*google.Payload); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSigner struct{ mock.Mock }

func (m *mockSigner) Sign(userID, email string) (string, error) {
	args := m.Called(userID, email)
	return args.String(0), args.Error(1)
}

// --- builder ---

func newService(us *mockUserStore, ml *mockMailer, gv *mockVerifier, sg *mockSigner) Service {
	return NewService(ServiceDeps{
		UserRepo:  us,
		Mailer:    ml,
		Google:    gv,
		JWT:       sg,
		OTPLength: 4,
		OTPTTL:    10 * time.Minute,
	})
}

func hash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

// --- Register ---

func TestRegister_EmailAlreadyUsed(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "alice@x.com").Return(&domain.User{UserID: "u1"}, nil)

	svc := newService(us, nil, nil, nil)
	err := svc.Register(context.Background(), domain.RegisterRequest{
		Username: "alice", Email: "alice@x.com", Password: "pw123",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestRegister_Success_CreatesUnverifiedUserWithOTP(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "alice@x.com").Return(nil, domain.ErrNotFound)

	var created *domain.User
	us.On("Put", mock.Anything, mock.AnythingOfType("*domain.User")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*domain.User) }).
		Return(nil)

	ml := &mockMailer{}
	ml.On("SendEmail", "alice@x.com", "Verify your account", mock.Anything).Return(nil)

	svc := newService(us, ml, nil, nil)
	err := svc.Register(context.Background(), domain.RegisterRequest{
		Username: "alice", Email: "alice@x.com", Password: "pw123",
	})

	require.NoError(t, err)
	require.NotNil(t, created)
	assert.False(t, created.Verified)
	assert.Len(t, created.OTPCode, 4)
	assert.Greater(t, created.OTPExpiresAt, time.Now().Unix())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("pw123")))
	assert.Equal(t, domain.ProviderLocal, created.AuthProvider)
	ml.AssertExpectations(t)
}

func TestRegister_MailFailurePropagates(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "alice@x.com").Return(nil, domain.ErrNotFound)
	us.On("Put", mock.Anything, mock.Anything).Return(nil)

	ml := &mockMailer{}
	ml.On("SendEmail", mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)

	svc := newService(us, ml, nil, nil)
	err := svc.Register(context.Background(), domain.RegisterRequest{
		Username: "alice", Email: "alice@x.com", Password: "pw123",
	})

	assert.Error(t, err)
}

// --- VerifyOTP ---

func TestVerifyOTP_UserNotFound(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "ghost@x.com").Return(nil, domain.ErrNotFound)

	svc := newService(us, nil, nil, nil)
	_, _, err := svc.VerifyOTP(context.Background(), domain.VerifyOTPRequest{Email: "ghost@x.com", OTP: "1234"})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVerifyOTP_AlreadyVerified(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "alice@x.com").Return(&domain.User{
		UserID: "u1", Email: "alice@x.com", Verified: true,
	}, nil)

	svc := newService(us, nil, nil, nil)
	_, _, err := svc.VerifyOTP(context.Background(), domain.VerifyOTPRequest{Email: "alice@x.com", OTP: "1234"})

	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestVerifyOTP_WrongCode(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "alice@x.com").Return(&domain.User{
		UserID: "u1", OTPCode: "1234", OTPExpiresAt: time.Now().Add(5 * time.Minute).Unix(),
	}, nil)

	svc := newService(us, nil, nil, nil)
	_, _, err := svc.VerifyOTP(context.Background(), domain.VerifyOTPRequest{Email: "alice@x.com", OTP: "9999"})

	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestVerifyOTP_ExpiredCode(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "alice@x.com").Return(&domain.User{
		UserID: "u1", OTPCode: "1234", OTPExpiresAt: time.Now().Add(-time.Second).Unix(),
	}, nil)

	svc := newService(us, nil, nil, nil)
	_, _, err := svc.VerifyOTP(context.Background(), domain.VerifyOTPRequest{Email: "alice@x.com", OTP: "1234"})

	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestVerifyOTP_ExpiryEqualToNowIsExpired(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "alice@x.com").Return(&domain.User{
		UserID: "u1", OTPCode: "1234", OTPExpiresAt: time.Now().Unix(),
	}, nil)

	svc := newService(us, nil, nil, nil)
	_, _, err := svc.VerifyOTP(context.Background(), domain.VerifyOTPRequest{Email: "alice@x.com", OTP: "1234"})

	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestVerifyOTP_NoExpirySet(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "alice@x.com").Return(&domain.User{
		UserID: "u1", OTPCode: "1234",
	}, nil)

	svc := newService(us, nil, nil, nil)
	_, _, err := svc.VerifyOTP(context.Background(), domain.VerifyOTPRequest{Email: "alice@x.com", OTP: "1234"})

	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestVerifyOTP_Success_ClearsOTPAndIssuesToken(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "alice@x.com").Return(&domain.User{
		UserID: "u1", Email: "alice@x.com", OTPCode: "1234",
		OTPExpiresAt: time.Now().Add(5 * time.Minute).Unix(),
	}, nil)
	// The verified flag and both OTP fields must flip in a single update.
	us.On("Update", mock.Anything, "u1", map[string]interface{}{
		"verified":       true,
		"otp_code":       "",
		"otp_expires_at": 0,
	}).Return(nil)

	sg := &mockSigner{}
	sg.On("Sign", "u1", "alice@x.com").Return("signed-token", nil)

	svc := newService(us, nil, nil, sg)
	token, user, err := svc.VerifyOTP(context.Background(), domain.VerifyOTPRequest{Email: "alice@x.com", OTP: "1234"})

	require.NoError(t, err)
	assert.Equal(t, "signed-token", token)
	assert.True(t, user.Verified)
	assert.Empty(t, user.OTPCode)
	assert.Zero(t, user.OTPExpiresAt)
	us.AssertExpectations(t)
}

// --- ResendOTP ---

func TestResendOTP_UserNotFound(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "ghost@x.com").Return(nil, domain.ErrNotFound)

	svc := newService(us, nil, nil, nil)
	err := svc.ResendOTP(context.Background(), "ghost@x.com")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResendOTP_AlreadyVerified(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "alice@x.com").Return(&domain.User{
		UserID: "u1", Verified: true,
	}, nil)

	svc := newService(us, nil, nil, nil)
	err := svc.ResendOTP(context.Background(), "alice@x.com")

	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestResendOTP_OverwritesCodeAndResends(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "alice@x.com").Return(&domain.User{
		UserID: "u1", Email: "alice@x.com", OTPCode: "1234",
		OTPExpiresAt: time.Now().Add(-time.Hour).Unix(),
	}, nil)

	var updated map[string]interface{}
	us.On("Update", mock.Anything, "u1", mock.Anything).
		Run(func(args mock.Arguments) { updated = args.Get(2).(map[string]interface{}) }).
		Return(nil)

	ml := &mockMailer{}
	ml.On("SendEmail", "alice@x.com", "Resend OTP", mock.Anything).Return(nil)

	svc := newService(us, ml, nil, nil)
	err := svc.ResendOTP(context.Background(), "alice@x.com")

	require.NoError(t, err)
	require.NotNil(t, updated)
	code, _ := updated["otp_code"].(string)
	assert.Len(t, code, 4)
	expiry, _ := updated["otp_expires_at"].(int64)
	assert.Greater(t, expiry, time.Now().Unix())
	ml.AssertExpectations(t)
}

// --- Login ---

func TestLogin_GoogleUserPayloadRejected(t *testing.T) {
	svc := newService(&mockUserStore{}, nil, nil, nil)
	_, _, err := svc.Login(context.Background(), domain.LoginRequest{
		GoogleUser: json.RawMessage(`{"email":"mallory@x.com","name":"Mallory"}`),
	})

	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

// An explicit null is what absent fields decode to in some clients; it must
// not trip the legacy-blob rejection.
func TestLogin_NullGoogleUserIgnored(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "ghost@x.com").Return(nil, domain.ErrNotFound)

	svc := newService(us, nil, nil, nil)
	_, _, err := svc.Login(context.Background(), domain.LoginRequest{
		Email:      "ghost@x.com",
		Password:   "pw",
		GoogleUser: json.RawMessage(`null`),
	})

	assert.ErrorIs(t, err, domain.ErrBadRequest)
	assert.NotContains(t, err.Error(), "/api/auth/google")
	us.AssertExpectations(t)
}

func TestLogin_UnknownUser(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "ghost@x.com").Return(nil, domain.ErrNotFound)

	svc := newService(us, nil, nil, nil)
	_, _, err := svc.Login(context.Background(), domain.LoginRequest{Email: "ghost@x.com", Password: "pw"})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	assert.ErrorContains(t, err, "invalid credentials")
}

func TestLogin_GoogleOnlyAccount_DistinguishedMessage(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "alice@x.com").Return(&domain.User{
		UserID: "u1", Email: "alice@x.com", Verified: true, GoogleSub: "sub-1",
	}, nil)

	svc := newService(us, nil, nil, nil)
	_, _, err := svc.Login(context.Background(), domain.LoginRequest{Email: "alice@x.com", Password: "pw"})

	require.Error(t, err)
	assert.ErrorContains(t, err, "Google")
}

func TestLogin_WrongPassword(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "alice@x.com").Return(&domain.User{
		UserID: "u1", Verified: true, PasswordHash: hash(t, "correct"),
	}, nil)

	svc := newService(us, nil, nil, nil)
	_, _, err := svc.Login(context.Background(), domain.LoginRequest{Email: "alice@x.com", Password: "wrong"})

	require.Error(t, err)
	assert.ErrorContains(t, err, "invalid credentials")
}

func TestLogin_UnverifiedRejected(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "alice@x.com").Return(&domain.User{
		UserID: "u1", Verified: false, PasswordHash: hash(t, "pw123"),
	}, nil)

	svc := newService(us, nil, nil, nil)
	_, _, err := svc.Login(context.Background(), domain.LoginRequest{Email: "alice@x.com", Password: "pw123"})

	require.Error(t, err)
	assert.ErrorContains(t, err, "not verified")
}

func TestLogin_Success(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "alice@x.com").Return(&domain.User{
		UserID: "u1", Email: "alice@x.com", Verified: true, PasswordHash: hash(t, "pw123"),
	}, nil)

	sg := &mockSigner{}
	sg.On("Sign", "u1", "alice@x.com").Return("signed-token", nil)

	svc := newService(us, nil, nil, sg)
	token, user, err := svc.Login(context.Background(), domain.LoginRequest{Email: "alice@x.com", Password: "pw123"})

	require.NoError(t, err)
	assert.Equal(t, "signed-token", token)
	assert.Equal(t, "u1", user.UserID)
}

// --- GoogleLogin ---

func TestGoogleLogin_InvalidToken(t *testing.T) {
	gv := &mockVerifier{}
	gv.On("Verify", mock.Anything, "bad-token").Return(nil, domain.ErrUnauthorized)

	svc := newService(&mockUserStore{}, nil, gv, nil)
	_, _, err := svc.GoogleLogin(context.Background(), "bad-token")

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestGoogleLogin_NewUser_CreatedVerified(t *testing.T) {
	gv := &mockVerifier{}
	gv.On("Verify", mock.Anything, "good-token").Return(&google.Payload{
		Sub: "sub-1", Email: "bob@x.com", EmailVerified: true, Name: "Bob",
	}, nil)

	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "bob@x.com").Return(nil, domain.ErrNotFound)

	var created *domain.User
	us.On("Put", mock.Anything, mock.AnythingOfType("*domain.User")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*domain.User) }).
		Return(nil)

	sg := &mockSigner{}
	sg.On("Sign", mock.Anything, "bob@x.com").Return("signed-token", nil)

	svc := newService(us, nil, gv, sg)
	token, user, err := svc.GoogleLogin(context.Background(), "good-token")

	require.NoError(t, err)
	assert.Equal(t, "signed-token", token)
	require.NotNil(t, created)
	assert.True(t, created.Verified)
	assert.Equal(t, "sub-1", created.GoogleSub)
	assert.Empty(t, created.PasswordHash)
	assert.Equal(t, domain.ProviderGoogle, created.AuthProvider)
	assert.Equal(t, created.UserID, user.UserID)
}

func TestGoogleLogin_ExistingLocalAccount_LinksSubject(t *testing.T) {
	gv := &mockVerifier{}
	gv.On("Verify", mock.Anything, "good-token").Return(&google.Payload{
		Sub: "sub-1", Email: "alice@x.com", EmailVerified: true, Name: "Alice",
	}, nil)

	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "alice@x.com").Return(&domain.User{
		UserID: "u1", Email: "alice@x.com", Verified: true, PasswordHash: hash(t, "pw123"),
	}, nil)
	us.On("Update", mock.Anything, "u1", mock.Anything).Return(nil)

	sg := &mockSigner{}
	sg.On("Sign", "u1", "alice@x.com").Return("signed-token", nil)

	svc := newService(us, nil, gv, sg)
	_, user, err := svc.GoogleLogin(context.Background(), "good-token")

	require.NoError(t, err)
	assert.Equal(t, "sub-1", user.GoogleSub)
	us.AssertExpectations(t)
}

func TestGoogleLogin_UnverifiedProviderEmail(t *testing.T) {
	gv := &mockVerifier{}
	gv.On("Verify", mock.Anything, "good-token").Return(&google.Payload{
		Sub: "sub-1", Email: "bob@x.com", EmailVerified: false,
	}, nil)

	svc := newService(&mockUserStore{}, nil, gv, nil)
	_, _, err := svc.GoogleLogin(context.Background(), "good-token")

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

// --- CurrentUser ---

func TestCurrentUser(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Username: "alice"}, nil)

	svc := newService(us, nil, nil, nil)
	u, err := svc.CurrentUser(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
}
