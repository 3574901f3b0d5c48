package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/tourbase/internal/model"
	"github.com/hitoshi/tourbase/internal/query"
	"github.com/hitoshi/tourbase/internal/repository"
)

type mockAccountRepo struct {
	findByIDFunc             func(ctx context.Context, id string) (*model.Account, error)
	findByEmailFunc          func(ctx context.Context, email string) (*model.Account, error)
	findByResetTokenHashFunc func(ctx context.Context, tokenHash string) (*model.Account, error)
	createFunc               func(ctx context.Context, account *model.Account) error
	updateFunc               func(ctx context.Context, id string, params repository.UpdateAccountParams) (*model.Account, error)
	updatePasswordFunc       func(ctx context.Context, id, passwordHash string, changedAt time.Time) error
	updateResetTokenFunc     func(ctx context.Context, id, tokenHash string, expires time.Time) error
	clearResetTokenFunc      func(ctx context.Context, id string) error
	deactivateFunc           func(ctx context.Context, id string) error
	listFunc                 func(ctx context.Context, refined *query.Refined) ([]*model.Account, error)
}

func (m *mockAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockAccountRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	return m.findByEmailFunc(ctx, email)
}

func (m *mockAccountRepo) FindByResetTokenHash(ctx context.Context, tokenHash string) (*model.Account, error) {
	return m.findByResetTokenHashFunc(ctx, tokenHash)
}

func (m *mockAccountRepo) Create(ctx context.Context, account *model.Account) error {
	return m.createFunc(ctx, account)
}

func (m *mockAccountRepo) Update(ctx context.Context, id string, params repository.UpdateAccountParams) (*model.Account, error) {
	return m.updateFunc(ctx, id, params)
}

func (m *mockAccountRepo) UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	return m.updatePasswordFunc(ctx, id, passwordHash, changedAt)
}

func (m *mockAccountRepo) UpdateResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error {
	return m.updateResetTokenFunc(ctx, id, tokenHash, expires)
}

func (m *mockAccountRepo) ClearResetToken(ctx context.Context, id string) error {
	return m.clearResetTokenFunc(ctx, id)
}

func (m *mockAccountRepo) Deactivate(ctx context.Context, id string) error {
	return m.deactivateFunc(ctx, id)
}

func (m *mockAccountRepo) List(ctx context.Context, refined *query.Refined) ([]*model.Account, error) {
	return m.listFunc(ctx, refined)
}

type mockMailer struct {
	sendFunc func(to, subject, body string) error
}

func (m *mockMailer) Send(to, subject, body string) error {
	return m.sendFunc(to, subject, body)
}

func testConfig() Config {
	return Config{
		JWTSecret:     "test-jwt-secret-32bytes-long!!!!",
		TokenTTL:      time.Hour,
		BcryptCost:    bcrypt.MinCost,
		ResetTokenTTL: 10 * time.Minute,
		BaseURL:       "http://localhost:8080",
	}
}

func newTestService(repo *mockAccountRepo, mailer Mailer) *Service {
	if mailer == nil {
		mailer = &mockMailer{sendFunc: func(to, subject, body string) error { return nil }}
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewService(repo, mailer, testConfig(), logger)
}

func hashedPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	return string(hash)
}

func assertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != code {
		t.Errorf("error code = %q, want %q", apiErr.Code, code)
	}
}

func TestSignup_Success(t *testing.T) {
	var created *model.Account
	repo := &mockAccountRepo{
		createFunc: func(ctx context.Context, account *model.Account) error {
			created = account
			return nil
		},
	}
	svc := newTestService(repo, nil)

	account, token, err := svc.Signup(context.Background(), SignupParams{
		Name:            "Taro Yamada",
		Email:           "Taro@Example.com",
		Password:        "password123",
		PasswordConfirm: "password123",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if created == nil {
		t.Fatal("expected account to be persisted")
	}
	if account.Role != model.RoleUser {
		t.Errorf("role = %q, want %q", account.Role, model.RoleUser)
	}
	if account.Email != "taro@example.com" {
		t.Errorf("email = %q, want lowercased", account.Email)
	}
	if account.PasswordHash == "password123" {
		t.Error("password must not be stored in plaintext")
	}
	if !account.Active {
		t.Error("new account must be active")
	}

	sub, _, err := svc.verifyToken(token)
	if err != nil {
		t.Fatalf("issued token must verify, got %v", err)
	}
	if sub != account.ID {
		t.Errorf("token subject = %q, want %q", sub, account.ID)
	}
}

func TestSignup_ValidationErrors(t *testing.T) {
	repo := &mockAccountRepo{
		createFunc: func(ctx context.Context, account *model.Account) error { return nil },
	}
	svc := newTestService(repo, nil)

	cases := []struct {
		name   string
		params SignupParams
	}{
		{"missing name", SignupParams{Email: "a@example.com", Password: "password123", PasswordConfirm: "password123"}},
		{"invalid email", SignupParams{Name: "a", Email: "not-an-email", Password: "password123", PasswordConfirm: "password123"}},
		{"short password", SignupParams{Name: "a", Email: "a@example.com", Password: "short", PasswordConfirm: "short"}},
		{"confirm mismatch", SignupParams{Name: "a", Email: "a@example.com", Password: "password123", PasswordConfirm: "password456"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.Signup(context.Background(), tc.params)
			assertErrorCode(t, err, model.ErrCodeValidation)
		})
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	repo := &mockAccountRepo{
		createFunc: func(ctx context.Context, account *model.Account) error {
			return repository.ErrDuplicateEmail
		},
	}
	svc := newTestService(repo, nil)

	_, _, err := svc.Signup(context.Background(), SignupParams{
		Name:            "a",
		Email:           "a@example.com",
		Password:        "password123",
		PasswordConfirm: "password123",
	})
	assertErrorCode(t, err, model.ErrCodeValidation)
}

func TestLogin_MissingFields(t *testing.T) {
	svc := newTestService(&mockAccountRepo{}, nil)

	_, _, err := svc.Login(context.Background(), "", "")
	assertErrorCode(t, err, model.ErrCodeValidation)
}

func TestLogin_UnknownEmailAndWrongPasswordAreIndistinguishable(t *testing.T) {
	hash := hashedPassword(t, "correct-password")
	repo := &mockAccountRepo{
		findByEmailFunc: func(ctx context.Context, email string) (*model.Account, error) {
			if email == "known@example.com" {
				return &model.Account{ID: "acc-1", Email: email, PasswordHash: hash}, nil
			}
			return nil, nil
		},
	}
	svc := newTestService(repo, nil)

	_, _, errUnknown := svc.Login(context.Background(), "unknown@example.com", "whatever123")
	_, _, errWrongPw := svc.Login(context.Background(), "known@example.com", "wrong-password")

	assertErrorCode(t, errUnknown, model.ErrCodeInvalidCredentials)
	assertErrorCode(t, errWrongPw, model.ErrCodeInvalidCredentials)

	if errUnknown.Error() != errWrongPw.Error() {
		t.Errorf("error messages differ: %q vs %q", errUnknown.Error(), errWrongPw.Error())
	}
}

func TestLogin_Success(t *testing.T) {
	hash := hashedPassword(t, "correct-password")
	repo := &mockAccountRepo{
		findByEmailFunc: func(ctx context.Context, email string) (*model.Account, error) {
			return &model.Account{ID: "acc-1", Email: email, PasswordHash: hash}, nil
		},
	}
	svc := newTestService(repo, nil)

	account, token, err := svc.Login(context.Background(), "known@example.com", "correct-password")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if account.ID != "acc-1" {
		t.Errorf("account ID = %q, want acc-1", account.ID)
	}

	sub, _, err := svc.verifyToken(token)
	if err != nil {
		t.Fatalf("issued token must verify, got %v", err)
	}
	if sub != "acc-1" {
		t.Errorf("token subject = %q, want acc-1", sub)
	}
}

func TestAuthenticate_Success(t *testing.T) {
	repo := &mockAccountRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Account, error) {
			return &model.Account{ID: id, Role: model.RoleUser}, nil
		},
	}
	svc := newTestService(repo, nil)

	token, err := svc.SignToken("acc-1")
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	account, err := svc.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if account.ID != "acc-1" {
		t.Errorf("account ID = %q, want acc-1", account.ID)
	}
}

func TestAuthenticate_TamperedToken(t *testing.T) {
	svc := newTestService(&mockAccountRepo{}, nil)

	token, err := svc.SignToken("acc-1")
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	_, err = svc.Authenticate(context.Background(), token+"x")
	assertErrorCode(t, err, model.ErrCodeInvalidToken)
}

func TestAuthenticate_AccountGone(t *testing.T) {
	repo := &mockAccountRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Account, error) {
			return nil, nil
		},
	}
	svc := newTestService(repo, nil)

	token, err := svc.SignToken("acc-deleted")
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	_, err = svc.Authenticate(context.Background(), token)
	assertErrorCode(t, err, model.ErrCodeAccountGone)
}

func TestAuthenticate_PasswordChangedAfterIssue(t *testing.T) {
	changedAt := time.Now().Add(time.Hour)
	repo := &mockAccountRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Account, error) {
			return &model.Account{ID: id, PasswordChangedAt: &changedAt}, nil
		},
	}
	svc := newTestService(repo, nil)

	token, err := svc.SignToken("acc-1")
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	_, err = svc.Authenticate(context.Background(), token)
	assertErrorCode(t, err, model.ErrCodeStalePassword)
}

func TestForgotPassword_UnknownEmail(t *testing.T) {
	repo := &mockAccountRepo{
		findByEmailFunc: func(ctx context.Context, email string) (*model.Account, error) {
			return nil, nil
		},
	}
	svc := newTestService(repo, nil)

	err := svc.ForgotPassword(context.Background(), "unknown@example.com")
	assertErrorCode(t, err, model.ErrCodeEmailNotFound)
}

func TestForgotPassword_StoresHashAndMailsRawToken(t *testing.T) {
	var storedHash string
	repo := &mockAccountRepo{
		findByEmailFunc: func(ctx context.Context, email string) (*model.Account, error) {
			return &model.Account{ID: "acc-1", Email: email}, nil
		},
		updateResetTokenFunc: func(ctx context.Context, id, tokenHash string, expires time.Time) error {
			storedHash = tokenHash
			return nil
		},
	}

	var mailedBody string
	mailer := &mockMailer{
		sendFunc: func(to, subject, body string) error {
			mailedBody = body
			return nil
		},
	}
	svc := newTestService(repo, mailer)

	if err := svc.ForgotPassword(context.Background(), "known@example.com"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if storedHash == "" {
		t.Fatal("expected reset token hash to be stored")
	}
	if strings.Contains(mailedBody, storedHash) {
		t.Error("mail must contain the raw token, not the stored hash")
	}

	// メール中のURL末尾が平文トークン。ハッシュ化すると保存値に一致するはず。
	lines := strings.Fields(mailedBody)
	var rawToken string
	for _, l := range lines {
		if strings.Contains(l, "/resetPassword/") {
			parts := strings.Split(l, "/")
			rawToken = parts[len(parts)-1]
		}
	}
	if rawToken == "" {
		t.Fatal("expected reset URL in mail body")
	}
	if hashResetToken(rawToken) != storedHash {
		t.Error("stored hash must be the SHA-256 of the mailed token")
	}
}

func TestForgotPassword_MailFailureClearsToken(t *testing.T) {
	cleared := false
	repo := &mockAccountRepo{
		findByEmailFunc: func(ctx context.Context, email string) (*model.Account, error) {
			return &model.Account{ID: "acc-1", Email: email}, nil
		},
		updateResetTokenFunc: func(ctx context.Context, id, tokenHash string, expires time.Time) error {
			return nil
		},
		clearResetTokenFunc: func(ctx context.Context, id string) error {
			cleared = true
			return nil
		},
	}
	mailer := &mockMailer{
		sendFunc: func(to, subject, body string) error {
			return errors.New("smtp connection refused")
		},
	}
	svc := newTestService(repo, mailer)

	err := svc.ForgotPassword(context.Background(), "known@example.com")
	assertErrorCode(t, err, model.ErrCodeMailDelivery)

	if !cleared {
		t.Error("expected reset token to be cleared after mail failure")
	}
}

func TestResetPassword_InvalidToken(t *testing.T) {
	repo := &mockAccountRepo{
		findByResetTokenHashFunc: func(ctx context.Context, tokenHash string) (*model.Account, error) {
			return nil, nil
		},
	}
	svc := newTestService(repo, nil)

	_, err := svc.ResetPassword(context.Background(), "bogus-token", "newpassword1", "newpassword1")
	assertErrorCode(t, err, model.ErrCodeInvalidResetToken)
}

func TestResetPassword_Success(t *testing.T) {
	var updatedHash string
	var changedAt time.Time
	repo := &mockAccountRepo{
		findByResetTokenHashFunc: func(ctx context.Context, tokenHash string) (*model.Account, error) {
			return &model.Account{ID: "acc-1"}, nil
		},
		updatePasswordFunc: func(ctx context.Context, id, passwordHash string, at time.Time) error {
			updatedHash = passwordHash
			changedAt = at
			return nil
		},
	}
	svc := newTestService(repo, nil)

	token, err := svc.ResetPassword(context.Background(), "raw-token", "newpassword1", "newpassword1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(updatedHash), []byte("newpassword1")); err != nil {
		t.Error("stored hash must match the new password")
	}
	if !changedAt.Before(time.Now()) {
		t.Error("password change time must be in the past")
	}

	sub, _, err := svc.verifyToken(token)
	if err != nil {
		t.Fatalf("issued token must verify, got %v", err)
	}
	if sub != "acc-1" {
		t.Errorf("token subject = %q, want acc-1", sub)
	}
}

func TestUpdatePassword_WrongCurrentPassword(t *testing.T) {
	account := &model.Account{ID: "acc-1", PasswordHash: hashedPassword(t, "current-password")}
	svc := newTestService(&mockAccountRepo{}, nil)

	_, err := svc.UpdatePassword(context.Background(), account, "wrong-password", "newpassword1", "newpassword1")
	assertErrorCode(t, err, model.ErrCodeInvalidCredentials)
}

func TestUpdatePassword_Success(t *testing.T) {
	updated := false
	repo := &mockAccountRepo{
		updatePasswordFunc: func(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
			updated = true
			return nil
		},
	}
	account := &model.Account{ID: "acc-1", PasswordHash: hashedPassword(t, "current-password")}
	svc := newTestService(repo, nil)

	token, err := svc.UpdatePassword(context.Background(), account, "current-password", "newpassword1", "newpassword1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !updated {
		t.Error("expected password to be updated")
	}
	if token == "" {
		t.Error("expected a fresh token after password change")
	}
}

// インターフェース適合の確認
var _ repository.AccountRepository = (*mockAccountRepo)(nil)
var _ Mailer = (*mockMailer)(nil)
