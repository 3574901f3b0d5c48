// Package review はレビューのビジネスロジックを提供する。
package review

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/tourbase/internal/model"
	"github.com/hitoshi/tourbase/internal/query"
	"github.com/hitoshi/tourbase/internal/repository"
	"github.com/hitoshi/tourbase/internal/security"
)

// Service はレビューのビジネスロジックを提供する。
type Service struct {
	reviews   repository.ReviewRepository
	tours     repository.TourRepository
	sanitizer security.ReviewSanitizerService
	logger    *slog.Logger
}

// NewService はServiceを生成する。
func NewService(reviews repository.ReviewRepository, tours repository.TourRepository, sanitizer security.ReviewSanitizerService, logger *slog.Logger) *Service {
	return &Service{
		reviews:   reviews,
		tours:     tours,
		sanitizer: sanitizer,
		logger:    logger,
	}
}

// List はクエリ文字列を変換してレビュー一覧を取得する。
// tourIDが空でない場合は対象ツアーのレビューに限定する。
func (s *Service) List(ctx context.Context, values url.Values, tourID string) ([]*model.Review, error) {
	if tourID != "" {
		if err := s.ensureTourExists(ctx, tourID); err != nil {
			return nil, err
		}
	}

	refined, err := query.Translate(values, repository.ReviewQueryFields())
	if err != nil {
		return nil, err
	}
	return s.reviews.List(ctx, refined, tourID)
}

// Get は指定IDのレビューを取得する。
func (s *Service) Get(ctx context.Context, id string) (*model.Review, error) {
	review, err := s.reviews.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if review == nil {
		return nil, model.NewReviewNotFoundError(id)
	}
	return review, nil
}

// CreateParams はレビュー投稿の入力。AccountIDは認証済みアカウントから設定する。
type CreateParams struct {
	Text      string
	Rating    int
	TourID    string
	AccountID string
}

// Create はレビューを投稿する。本文は保存前にサニタイズされる。
func (s *Service) Create(ctx context.Context, params CreateParams) (*model.Review, error) {
	if params.Rating < 1 || params.Rating > 5 {
		return nil, model.NewValidationError("評価は1から5の範囲で入力してください。")
	}

	text := s.sanitizer.Sanitize(params.Text)
	if text == "" {
		return nil, model.NewValidationError("レビュー本文は必須です。")
	}

	if err := s.ensureTourExists(ctx, params.TourID); err != nil {
		return nil, err
	}

	review := &model.Review{
		ID:        uuid.New().String(),
		Text:      text,
		Rating:    params.Rating,
		TourID:    params.TourID,
		AccountID: params.AccountID,
		CreatedAt: time.Now(),
	}

	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, err
	}

	s.logger.Info("review created",
		slog.String("review_id", review.ID),
		slog.String("tour_id", review.TourID),
	)

	return review, nil
}

// Delete は指定IDのレビューを削除する。
func (s *Service) Delete(ctx context.Context, id string) error {
	deleted, err := s.reviews.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return model.NewReviewNotFoundError(id)
	}

	s.logger.Info("review deleted", slog.String("review_id", id))

	return nil
}

// ensureTourExists は対象ツアーの存在を確認する。
func (s *Service) ensureTourExists(ctx context.Context, tourID string) error {
	tour, err := s.tours.FindByID(ctx, tourID)
	if err != nil {
		return err
	}
	if tour == nil {
		return model.NewTourNotFoundError(tourID)
	}
	return nil
}
