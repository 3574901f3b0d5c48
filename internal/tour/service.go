// Package tour はツアーのビジネスロジックを提供する。
package tour

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/tourbase/internal/model"
	"github.com/hitoshi/tourbase/internal/query"
	"github.com/hitoshi/tourbase/internal/repository"
)

// Service はツアーのビジネスロジックを提供する。
type Service struct {
	tours  repository.TourRepository
	logger *slog.Logger
}

// NewService はServiceを生成する。
func NewService(tours repository.TourRepository, logger *slog.Logger) *Service {
	return &Service{
		tours:  tours,
		logger: logger,
	}
}

// List はクエリ文字列を変換してツアー一覧を取得する。
func (s *Service) List(ctx context.Context, values url.Values) ([]*model.Tour, error) {
	refined, err := query.Translate(values, repository.TourQueryFields())
	if err != nil {
		return nil, err
	}
	return s.tours.List(ctx, refined)
}

// ListTopRated は評価上位5件のツアーを固定のプリセットで取得する。
// クライアント指定のクエリは無視される。
func (s *Service) ListTopRated(ctx context.Context) ([]*model.Tour, error) {
	preset := url.Values{
		"limit":  []string{"5"},
		"sort":   []string{"-ratingsAverage,price"},
		"fields": []string{"id,name,price,ratingsAverage,summary,difficulty"},
	}

	refined, err := query.Translate(preset, repository.TourQueryFields())
	if err != nil {
		return nil, fmt.Errorf("failed to translate top rated preset: %w", err)
	}
	return s.tours.List(ctx, refined)
}

// Get は指定IDのツアーを取得する。
func (s *Service) Get(ctx context.Context, id string) (*model.Tour, error) {
	tour, err := s.tours.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tour == nil {
		return nil, model.NewTourNotFoundError(id)
	}
	return tour, nil
}

// CreateParams はツアー作成の入力。
type CreateParams struct {
	Name          string
	Duration      int
	MaxGroupSize  int
	Difficulty    model.Difficulty
	Price         float64
	PriceDiscount float64
	Summary       string
	Description   string
	ImageCover    string
	StartDates    []time.Time
	SecretTour    bool
}

// Create はツアーを新規作成する。スラッグは名前から自動生成する。
func (s *Service) Create(ctx context.Context, params CreateParams) (*model.Tour, error) {
	if err := validateTourParams(params); err != nil {
		return nil, err
	}

	tour := &model.Tour{
		ID:             uuid.New().String(),
		Name:           params.Name,
		Slug:           slugify(params.Name),
		Duration:       params.Duration,
		MaxGroupSize:   params.MaxGroupSize,
		Difficulty:     params.Difficulty,
		RatingsAverage: 4.5,
		Price:          params.Price,
		PriceDiscount:  params.PriceDiscount,
		Summary:        params.Summary,
		Description:    params.Description,
		ImageCover:     params.ImageCover,
		StartDates:     params.StartDates,
		SecretTour:     params.SecretTour,
		CreatedAt:      time.Now(),
	}

	if err := s.tours.Create(ctx, tour); err != nil {
		if errors.Is(err, repository.ErrDuplicateName) {
			return nil, model.NewValidationError("このツアー名は既に使用されています。")
		}
		return nil, err
	}

	s.logger.Info("tour created",
		slog.String("tour_id", tour.ID),
		slog.String("name", tour.Name),
	)

	return tour, nil
}

// UpdateParams はツアー部分更新の入力。nilフィールドは変更しない。
type UpdateParams struct {
	Name          *string
	Duration      *int
	MaxGroupSize  *int
	Difficulty    *model.Difficulty
	Price         *float64
	PriceDiscount *float64
	Summary       *string
	Description   *string
	ImageCover    *string
}

// Update はツアーを部分更新する。
func (s *Service) Update(ctx context.Context, id string, params UpdateParams) (*model.Tour, error) {
	if err := validateUpdateParams(params); err != nil {
		return nil, err
	}

	tour, err := s.tours.Update(ctx, id, repository.UpdateTourParams{
		Name:          params.Name,
		Duration:      params.Duration,
		MaxGroupSize:  params.MaxGroupSize,
		Difficulty:    params.Difficulty,
		Price:         params.Price,
		PriceDiscount: params.PriceDiscount,
		Summary:       params.Summary,
		Description:   params.Description,
		ImageCover:    params.ImageCover,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateName) {
			return nil, model.NewValidationError("このツアー名は既に使用されています。")
		}
		return nil, err
	}
	if tour == nil {
		return nil, model.NewTourNotFoundError(id)
	}

	return tour, nil
}

// Delete は指定IDのツアーを削除する。
func (s *Service) Delete(ctx context.Context, id string) error {
	deleted, err := s.tours.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return model.NewTourNotFoundError(id)
	}

	s.logger.Info("tour deleted", slog.String("tour_id", id))

	return nil
}

// Stats は難易度ごとの集計を返す。
func (s *Service) Stats(ctx context.Context) ([]model.TourStats, error) {
	return s.tours.Stats(ctx)
}

// validateTourParams は作成時の必須項目と値域を検証する。
func validateTourParams(params CreateParams) error {
	if l := len([]rune(params.Name)); l < 10 || l > 40 {
		return model.NewValidationError("ツアー名は10文字以上40文字以内で入力してください。")
	}
	if params.Duration <= 0 {
		return model.NewValidationError("期間は1日以上で入力してください。")
	}
	if params.MaxGroupSize <= 0 {
		return model.NewValidationError("最大グループ人数は1人以上で入力してください。")
	}
	if !model.ValidDifficulty(params.Difficulty) {
		return model.NewValidationError("難易度はeasy、medium、difficultのいずれかを指定してください。")
	}
	if params.Price <= 0 {
		return model.NewValidationError("価格は0より大きい値を入力してください。")
	}
	if params.PriceDiscount < 0 || params.PriceDiscount >= params.Price {
		return model.NewValidationError("割引額は0以上かつ価格未満で入力してください。")
	}
	if params.Summary == "" {
		return model.NewValidationError("概要は必須です。")
	}
	return nil
}

// validateUpdateParams は更新対象フィールドの値域を検証する。
func validateUpdateParams(params UpdateParams) error {
	if params.Name != nil {
		if l := len([]rune(*params.Name)); l < 10 || l > 40 {
			return model.NewValidationError("ツアー名は10文字以上40文字以内で入力してください。")
		}
	}
	if params.Duration != nil && *params.Duration <= 0 {
		return model.NewValidationError("期間は1日以上で入力してください。")
	}
	if params.MaxGroupSize != nil && *params.MaxGroupSize <= 0 {
		return model.NewValidationError("最大グループ人数は1人以上で入力してください。")
	}
	if params.Difficulty != nil && !model.ValidDifficulty(*params.Difficulty) {
		return model.NewValidationError("難易度はeasy、medium、difficultのいずれかを指定してください。")
	}
	if params.Price != nil && *params.Price <= 0 {
		return model.NewValidationError("価格は0より大きい値を入力してください。")
	}
	return nil
}

// slugify はツアー名からURL用スラッグを生成する。
// 英数字以外はハイフンに置き換え、連続するハイフンは1つにまとめる。
func slugify(name string) string {
	var sb strings.Builder
	prevHyphen := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			prevHyphen = false
		default:
			if !prevHyphen && sb.Len() > 0 {
				sb.WriteRune('-')
				prevHyphen = true
			}
		}
	}
	return strings.TrimSuffix(sb.String(), "-")
}
