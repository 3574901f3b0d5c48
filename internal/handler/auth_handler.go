package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/tourbase/internal/auth"
	"github.com/hitoshi/tourbase/internal/metrics"
	"github.com/hitoshi/tourbase/internal/middleware"
	"github.com/hitoshi/tourbase/internal/model"
)

// AuthService は認証ハンドラーが利用するサービスインターフェース。
type AuthService interface {
	Signup(ctx context.Context, params auth.SignupParams) (*model.Account, string, error)
	Login(ctx context.Context, email, password string) (*model.Account, string, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, rawToken, password, passwordConfirm string) (string, error)
	UpdatePassword(ctx context.Context, account *model.Account, currentPassword, newPassword, newPasswordConfirm string) (string, error)
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	service   AuthService
	collector metrics.MetricsCollector
	logger    *slog.Logger
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthService, collector metrics.MetricsCollector, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:   service,
		collector: collector,
		logger:    logger,
	}
}

// writeAuthResponse はトークンとアカウントを含む認証成功レスポンスを書き込む。
func writeAuthResponse(w http.ResponseWriter, statusCode int, token string, account *model.Account) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]any{
		"status": "success",
		"token":  token,
		"data":   map[string]any{"user": account},
	})
}

type signupRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// Signup はPOST /api/v1/users/signupを処理する。
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの形式が正しくありません。"))
		return
	}

	account, token, err := h.service.Signup(r.Context(), auth.SignupParams{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeAuthResponse(w, http.StatusCreated, token, account)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login はPOST /api/v1/users/loginを処理する。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの形式が正しくありません。"))
		return
	}

	account, token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.collector.RecordLoginFailure()
		handleServiceError(w, h.logger, err)
		return
	}

	writeAuthResponse(w, http.StatusOK, token, account)
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword はPOST /api/v1/users/forgotPasswordを処理する。
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの形式が正しくありません。"))
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.collector.RecordResetRequested()

	writeSuccessResponse(w, http.StatusOK, map[string]string{
		"message": "リセット用のメールを送信しました。",
	})
}

type resetPasswordRequest struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// ResetPassword はPATCH /api/v1/users/resetPassword/{token}を処理する。
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	rawToken := chi.URLParam(r, "token")

	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの形式が正しくありません。"))
		return
	}

	token, err := h.service.ResetPassword(r.Context(), rawToken, req.Password, req.PasswordConfirm)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeAuthResponse(w, http.StatusOK, token, nil)
}

type updatePasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// UpdateMyPassword はPATCH /api/v1/users/updateMyPasswordを処理する。
// Protectの後段で呼ばれることを前提とする。
func (h *AuthHandler) UpdateMyPassword(w http.ResponseWriter, r *http.Request) {
	account, err := middleware.AccountFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	var req updatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの形式が正しくありません。"))
		return
	}

	token, err := h.service.UpdatePassword(r.Context(), account, req.PasswordCurrent, req.Password, req.PasswordConfirm)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeAuthResponse(w, http.StatusOK, token, account)
}
