package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/tourbase/internal/middleware"
	"github.com/hitoshi/tourbase/internal/model"
	"github.com/hitoshi/tourbase/internal/tour"
)

// TourService はツアーハンドラーが利用するサービスインターフェース。
type TourService interface {
	List(ctx context.Context, values url.Values) ([]*model.Tour, error)
	ListTopRated(ctx context.Context) ([]*model.Tour, error)
	Get(ctx context.Context, id string) (*model.Tour, error)
	Create(ctx context.Context, params tour.CreateParams) (*model.Tour, error)
	Update(ctx context.Context, id string, params tour.UpdateParams) (*model.Tour, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) ([]model.TourStats, error)
}

// tourJSONKeys は公開フィールド名→レスポンスJSONキーの対応。射影用。
var tourJSONKeys = map[string]string{
	"id":              "id",
	"name":            "name",
	"slug":            "slug",
	"duration":        "duration",
	"maxGroupSize":    "max_group_size",
	"difficulty":      "difficulty",
	"ratingsAverage":  "ratings_average",
	"ratingsQuantity": "ratings_quantity",
	"price":           "price",
	"priceDiscount":   "price_discount",
	"summary":         "summary",
	"description":     "description",
	"imageCover":      "image_cover",
	"createdAt":       "created_at",
}

// TourHandler はツアーのHTTPハンドラー。
type TourHandler struct {
	service TourService
	logger  *slog.Logger
}

// NewTourHandler はTourHandlerを生成する。
func NewTourHandler(service TourService, logger *slog.Logger) *TourHandler {
	return &TourHandler{
		service: service,
		logger:  logger,
	}
}

// List はGET /api/v1/toursを処理する。
// フィルタ・ソート・射影・ページネーションをクエリ文字列で指定できる。
func (h *TourHandler) List(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()

	tours, err := h.service.List(r.Context(), values)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	data := projectJSON(tours, projectionFields(values), tourJSONKeys)
	writeListResponse(w, len(tours), map[string]any{"tours": data})
}

// ListTopRated はGET /api/v1/tours/top-5-toursを処理する。
func (h *TourHandler) ListTopRated(w http.ResponseWriter, r *http.Request) {
	tours, err := h.service.ListTopRated(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	fields := []string{"id", "name", "price", "ratingsAverage", "summary", "difficulty"}
	data := projectJSON(tours, fields, tourJSONKeys)
	writeListResponse(w, len(tours), map[string]any{"tours": data})
}

// Stats はGET /api/v1/tours/tour-statsを処理する。
func (h *TourHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, map[string]any{"stats": stats})
}

// Get はGET /api/v1/tours/{tourId}を処理する。
func (h *TourHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "tourId")

	t, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, map[string]any{"tour": t})
}

type tourCreateRequest struct {
	Name          string           `json:"name"`
	Duration      int              `json:"duration"`
	MaxGroupSize  int              `json:"maxGroupSize"`
	Difficulty    model.Difficulty `json:"difficulty"`
	Price         float64          `json:"price"`
	PriceDiscount float64          `json:"priceDiscount"`
	Summary       string           `json:"summary"`
	Description   string           `json:"description"`
	ImageCover    string           `json:"imageCover"`
	StartDates    []time.Time      `json:"startDates"`
	SecretTour    bool             `json:"secretTour"`
}

// Create はPOST /api/v1/toursを処理する。admin・lead-guide専用。
func (h *TourHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req tourCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの形式が正しくありません。"))
		return
	}

	t, err := h.service.Create(r.Context(), tour.CreateParams{
		Name:          req.Name,
		Duration:      req.Duration,
		MaxGroupSize:  req.MaxGroupSize,
		Difficulty:    req.Difficulty,
		Price:         req.Price,
		PriceDiscount: req.PriceDiscount,
		Summary:       req.Summary,
		Description:   req.Description,
		ImageCover:    req.ImageCover,
		StartDates:    req.StartDates,
		SecretTour:    req.SecretTour,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusCreated, map[string]any{"tour": t})
}

type tourUpdateRequest struct {
	Name          *string           `json:"name"`
	Duration      *int              `json:"duration"`
	MaxGroupSize  *int              `json:"maxGroupSize"`
	Difficulty    *model.Difficulty `json:"difficulty"`
	Price         *float64          `json:"price"`
	PriceDiscount *float64          `json:"priceDiscount"`
	Summary       *string           `json:"summary"`
	Description   *string           `json:"description"`
	ImageCover    *string           `json:"imageCover"`
}

// Update はPATCH /api/v1/tours/{tourId}を処理する。admin・lead-guide専用。
func (h *TourHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "tourId")

	var req tourUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの形式が正しくありません。"))
		return
	}

	t, err := h.service.Update(r.Context(), id, tour.UpdateParams{
		Name:          req.Name,
		Duration:      req.Duration,
		MaxGroupSize:  req.MaxGroupSize,
		Difficulty:    req.Difficulty,
		Price:         req.Price,
		PriceDiscount: req.PriceDiscount,
		Summary:       req.Summary,
		Description:   req.Description,
		ImageCover:    req.ImageCover,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, map[string]any{"tour": t})
}

// Delete はDELETE /api/v1/tours/{tourId}を処理する。admin・lead-guide専用。
func (h *TourHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "tourId")

	if err := h.service.Delete(r.Context(), id); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// projectionFields はクエリ文字列のfields指定を公開フィールド名の列に分解する。
func projectionFields(values url.Values) []string {
	raw := values.Get("fields")
	if raw == "" {
		return nil
	}
	var fields []string
	for _, f := range strings.Split(raw, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}
