package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/tourbase/internal/middleware"
	"github.com/hitoshi/tourbase/internal/model"
	"github.com/hitoshi/tourbase/internal/user"
)

// UserService はアカウントハンドラーが利用するサービスインターフェース。
type UserService interface {
	List(ctx context.Context, values url.Values) ([]*model.Account, error)
	Get(ctx context.Context, id string) (*model.Account, error)
	UpdateMe(ctx context.Context, accountID string, params user.UpdateMeParams) (*model.Account, error)
	DeleteMe(ctx context.Context, accountID string) error
	AdminUpdate(ctx context.Context, id string, params user.AdminUpdateParams) (*model.Account, error)
	AdminDelete(ctx context.Context, id string) error
}

// accountJSONKeys は公開フィールド名→レスポンスJSONキーの対応。射影用。
var accountJSONKeys = map[string]string{
	"id":        "id",
	"name":      "name",
	"email":     "email",
	"photo":     "photo",
	"role":      "role",
	"createdAt": "created_at",
}

// UserHandler はアカウントのHTTPハンドラー。
type UserHandler struct {
	service UserService
	logger  *slog.Logger
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		logger:  logger,
	}
}

// Me はGET /api/v1/users/meを処理する。
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	account, err := middleware.AccountFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	writeSuccessResponse(w, http.StatusOK, map[string]any{"user": account})
}

type updateMeRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Photo *string `json:"photo"`

	// パスワード関連フィールドの誤送信を検出するために受ける
	Password        *string `json:"password"`
	PasswordConfirm *string `json:"passwordConfirm"`
	Role            *string `json:"role"`
}

// UpdateMe はPATCH /api/v1/users/updateMeを処理する。
// パスワードとロールはこのエンドポイントでは変更できない。
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	account, err := middleware.AccountFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	var req updateMeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの形式が正しくありません。"))
		return
	}

	if req.Password != nil || req.PasswordConfirm != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("このエンドポイントではパスワードを変更できません。/updateMyPasswordを使用してください。"))
		return
	}
	if req.Role != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("このエンドポイントではロールを変更できません。"))
		return
	}

	updated, err := h.service.UpdateMe(r.Context(), account.ID, user.UpdateMeParams{
		Name:  req.Name,
		Email: req.Email,
		Photo: req.Photo,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, map[string]any{"user": updated})
}

// DeleteMe はDELETE /api/v1/users/deleteMeを処理する。論理削除のみ。
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	account, err := middleware.AccountFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	if err := h.service.DeleteMe(r.Context(), account.ID); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// List はGET /api/v1/usersを処理する。admin専用。
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()

	accounts, err := h.service.List(r.Context(), values)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	data := projectJSON(accounts, projectionFields(values), accountJSONKeys)
	writeListResponse(w, len(accounts), map[string]any{"users": data})
}

// Get はGET /api/v1/users/{userId}を処理する。admin専用。
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "userId")

	account, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, map[string]any{"user": account})
}

type adminUpdateRequest struct {
	Name  *string     `json:"name"`
	Email *string     `json:"email"`
	Photo *string     `json:"photo"`
	Role  *model.Role `json:"role"`
}

// Update はPATCH /api/v1/users/{userId}を処理する。admin専用。ロール変更を含む。
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "userId")

	var req adminUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの形式が正しくありません。"))
		return
	}

	account, err := h.service.AdminUpdate(r.Context(), id, user.AdminUpdateParams{
		Name:  req.Name,
		Email: req.Email,
		Photo: req.Photo,
		Role:  req.Role,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, map[string]any{"user": account})
}

// Delete はDELETE /api/v1/users/{userId}を処理する。admin専用。論理削除のみ。
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "userId")

	if err := h.service.AdminDelete(r.Context(), id); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
