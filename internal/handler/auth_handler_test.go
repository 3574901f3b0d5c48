package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/tourbase/internal/auth"
	"github.com/hitoshi/tourbase/internal/middleware"
	"github.com/hitoshi/tourbase/internal/model"
)

type mockAuthService struct {
	signupFunc         func(ctx context.Context, params auth.SignupParams) (*model.Account, string, error)
	loginFunc          func(ctx context.Context, email, password string) (*model.Account, string, error)
	forgotPasswordFunc func(ctx context.Context, email string) error
	resetPasswordFunc  func(ctx context.Context, rawToken, password, passwordConfirm string) (string, error)
	updatePasswordFunc func(ctx context.Context, account *model.Account, currentPassword, newPassword, newPasswordConfirm string) (string, error)
}

func (m *mockAuthService) Signup(ctx context.Context, params auth.SignupParams) (*model.Account, string, error) {
	return m.signupFunc(ctx, params)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*model.Account, string, error) {
	return m.loginFunc(ctx, email, password)
}

func (m *mockAuthService) ForgotPassword(ctx context.Context, email string) error {
	return m.forgotPasswordFunc(ctx, email)
}

func (m *mockAuthService) ResetPassword(ctx context.Context, rawToken, password, passwordConfirm string) (string, error) {
	return m.resetPasswordFunc(ctx, rawToken, password, passwordConfirm)
}

func (m *mockAuthService) UpdatePassword(ctx context.Context, account *model.Account, currentPassword, newPassword, newPasswordConfirm string) (string, error) {
	return m.updatePasswordFunc(ctx, account, currentPassword, newPassword, newPasswordConfirm)
}

type mockCollector struct {
	loginFailures  int
	resetRequested int
}

func (m *mockCollector) RecordHTTPStatus(statusCode int)                          {}
func (m *mockCollector) RecordRequestLatency(path string, duration time.Duration) {}
func (m *mockCollector) RecordLoginFailure()                                      { m.loginFailures++ }
func (m *mockCollector) RecordResetRequested()                                    { m.resetRequested++ }

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestSignup_Returns201WithToken(t *testing.T) {
	svc := &mockAuthService{
		signupFunc: func(ctx context.Context, params auth.SignupParams) (*model.Account, string, error) {
			return &model.Account{ID: "acc-1", Name: params.Name, Email: params.Email, Role: model.RoleUser}, "jwt-token", nil
		},
	}
	h := NewAuthHandler(svc, &mockCollector{}, testLogger())

	body := `{"name":"Taro","email":"taro@example.com","password":"password123","passwordConfirm":"password123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/signup", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Signup(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}

	var resp struct {
		Status string `json:"status"`
		Token  string `json:"token"`
		Data   struct {
			User map[string]any `json:"user"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if resp.Status != "success" {
		t.Errorf("status = %q, want success", resp.Status)
	}
	if resp.Token != "jwt-token" {
		t.Errorf("token = %q, want jwt-token", resp.Token)
	}
	if _, exists := resp.Data.User["password_hash"]; exists {
		t.Error("password hash must never appear in responses")
	}
}

func TestSignup_InvalidBody(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, &mockCollector{}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/signup", strings.NewReader("{broken"))
	rec := httptest.NewRecorder()

	h.Signup(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestLogin_FailureRecordsMetricAndReturns401(t *testing.T) {
	svc := &mockAuthService{
		loginFunc: func(ctx context.Context, email, password string) (*model.Account, string, error) {
			return nil, "", model.NewInvalidCredentialsError()
		},
	}
	collector := &mockCollector{}
	h := NewAuthHandler(svc, collector, testLogger())

	body := `{"email":"a@example.com","password":"wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if collector.loginFailures != 1 {
		t.Errorf("loginFailures = %d, want 1", collector.loginFailures)
	}

	var body2 middleware.ErrorResponseBody
	if err := json.NewDecoder(rec.Body).Decode(&body2); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body2.Code != model.ErrCodeInvalidCredentials {
		t.Errorf("code = %q, want %q", body2.Code, model.ErrCodeInvalidCredentials)
	}
}

func TestForgotPassword_UnknownEmailReturns404(t *testing.T) {
	svc := &mockAuthService{
		forgotPasswordFunc: func(ctx context.Context, email string) error {
			return model.NewEmailNotFoundError()
		},
	}
	h := NewAuthHandler(svc, &mockCollector{}, testLogger())

	body := `{"email":"unknown@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/forgotPassword", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.ForgotPassword(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestResetPassword_PassesURLToken(t *testing.T) {
	var captured string
	svc := &mockAuthService{
		resetPasswordFunc: func(ctx context.Context, rawToken, password, passwordConfirm string) (string, error) {
			captured = rawToken
			return "fresh-token", nil
		},
	}
	h := NewAuthHandler(svc, &mockCollector{}, testLogger())

	r := chi.NewRouter()
	r.Patch("/api/v1/users/resetPassword/{token}", h.ResetPassword)

	body := `{"password":"newpassword1","passwordConfirm":"newpassword1"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/users/resetPassword/abc123", strings.NewReader(body))
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if captured != "abc123" {
		t.Errorf("token = %q, want abc123", captured)
	}
}

func TestUpdateMyPassword_RequiresAuthenticatedAccount(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, &mockCollector{}, testLogger())

	body := `{"passwordCurrent":"old","password":"newpassword1","passwordConfirm":"newpassword1"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/users/updateMyPassword", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.UpdateMyPassword(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestUpdateMyPassword_Success(t *testing.T) {
	account := &model.Account{ID: "acc-1"}
	svc := &mockAuthService{
		updatePasswordFunc: func(ctx context.Context, a *model.Account, current, next, confirm string) (string, error) {
			if a.ID != "acc-1" {
				t.Errorf("account ID = %q, want acc-1", a.ID)
			}
			return "fresh-token", nil
		},
	}
	h := NewAuthHandler(svc, &mockCollector{}, testLogger())

	body := `{"passwordCurrent":"old-password","password":"newpassword1","passwordConfirm":"newpassword1"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/users/updateMyPassword", strings.NewReader(body))
	req = req.WithContext(middleware.ContextWithAccount(req.Context(), account))
	rec := httptest.NewRecorder()

	h.UpdateMyPassword(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if resp.Token != "fresh-token" {
		t.Errorf("token = %q, want fresh-token", resp.Token)
	}
}
