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
	"github.com/hitoshi/tourbase/internal/review"
)

// ReviewService はレビューハンドラーが利用するサービスインターフェース。
type ReviewService interface {
	List(ctx context.Context, values url.Values, tourID string) ([]*model.Review, error)
	Get(ctx context.Context, id string) (*model.Review, error)
	Create(ctx context.Context, params review.CreateParams) (*model.Review, error)
	Delete(ctx context.Context, id string) error
}

// reviewJSONKeys は公開フィールド名→レスポンスJSONキーの対応。射影用。
var reviewJSONKeys = map[string]string{
	"id":        "id",
	"review":    "review",
	"rating":    "rating",
	"tour":      "tour_id",
	"user":      "account_id",
	"createdAt": "created_at",
}

// ReviewHandler はレビューのHTTPハンドラー。
type ReviewHandler struct {
	service ReviewService
	logger  *slog.Logger
}

// NewReviewHandler はReviewHandlerを生成する。
func NewReviewHandler(service ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		logger:  logger,
	}
}

// List はGET /api/v1/reviewsおよびGET /api/v1/tours/{tourId}/reviewsを処理する。
// ネストされたルートでは対象ツアーのレビューに限定する。
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	tourID := chi.URLParam(r, "tourId")

	reviews, err := h.service.List(r.Context(), values, tourID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	data := projectJSON(reviews, projectionFields(values), reviewJSONKeys)
	writeListResponse(w, len(reviews), map[string]any{"reviews": data})
}

// Get はGET /api/v1/reviews/{reviewId}を処理する。
func (h *ReviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "reviewId")

	rv, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, map[string]any{"review": rv})
}

type reviewCreateRequest struct {
	Review string `json:"review"`
	Rating int    `json:"rating"`
	Tour   string `json:"tour"`
}

// Create はPOST /api/v1/tours/{tourId}/reviewsおよびPOST /api/v1/reviewsを処理する。
// 投稿者は認証済みアカウントに固定され、リクエストからは指定できない。
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	account, err := middleware.AccountFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	var req reviewCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの形式が正しくありません。"))
		return
	}

	// ネストされたルートのtourIdを優先する
	tourID := chi.URLParam(r, "tourId")
	if tourID == "" {
		tourID = req.Tour
	}
	if tourID == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("対象ツアーを指定してください。"))
		return
	}

	rv, err := h.service.Create(r.Context(), review.CreateParams{
		Text:      req.Review,
		Rating:    req.Rating,
		TourID:    tourID,
		AccountID: account.ID,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusCreated, map[string]any{"review": rv})
}

// Delete はDELETE /api/v1/reviews/{reviewId}を処理する。admin専用。
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "reviewId")

	if err := h.service.Delete(r.Context(), id); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
