package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/hitoshi/tourbase/internal/model"
	"github.com/hitoshi/tourbase/internal/query"
)

// ErrDuplicateName はツアー名の一意制約違反を表す。
var ErrDuplicateName = errors.New("tour name already exists")

// tourMapping はツアーの公開フィールドとカラムの対応。
// secretTourとstartDatesはクエリ経由で参照させない。
var tourMapping = sqlMapping{
	table: "tours",
	columns: map[string]string{
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
	},
	defaultFields: []string{
		"id", "name", "slug", "duration", "maxGroupSize", "difficulty",
		"ratingsAverage", "ratingsQuantity", "price", "priceDiscount",
		"summary", "description", "imageCover", "createdAt",
	},
	// シークレットツアーは一覧系クエリから常に除外する
	baseWhere: []string{"secret_tour = FALSE"},
}

// TourQueryFields はツアー一覧クエリで参照可能なフィールド集合を返す。
func TourQueryFields() query.Allowed {
	return tourMapping.queryFields()
}

// PostgresTourRepo はPostgreSQLを使用したツアーリポジトリ。
type PostgresTourRepo struct {
	db *sql.DB
}

// NewPostgresTourRepo はPostgresTourRepoを生成する。
func NewPostgresTourRepo(db *sql.DB) *PostgresTourRepo {
	return &PostgresTourRepo{db: db}
}

// tourFieldPtr は公開フィールド名に対応するスキャン先を返す。
func tourFieldPtr(t *model.Tour, field string) any {
	switch field {
	case "id":
		return &t.ID
	case "name":
		return &t.Name
	case "slug":
		return &t.Slug
	case "duration":
		return &t.Duration
	case "maxGroupSize":
		return &t.MaxGroupSize
	case "difficulty":
		return &t.Difficulty
	case "ratingsAverage":
		return &t.RatingsAverage
	case "ratingsQuantity":
		return &t.RatingsQuantity
	case "price":
		return &t.Price
	case "priceDiscount":
		return &t.PriceDiscount
	case "summary":
		return &t.Summary
	case "description":
		return &t.Description
	case "imageCover":
		return &t.ImageCover
	case "createdAt":
		return &t.CreatedAt
	default:
		return nil
	}
}

// List は変換済みクエリでツアー一覧を取得する。
func (r *PostgresTourRepo) List(ctx context.Context, refined *query.Refined) ([]*model.Tour, error) {
	stmt, args, fields, err := tourMapping.buildSelect(refined, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build tour query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tours: %w", err)
	}
	defer rows.Close()

	var tours []*model.Tour
	for rows.Next() {
		tour := &model.Tour{}
		targets := make([]any, len(fields))
		for i, f := range fields {
			targets[i] = tourFieldPtr(tour, f)
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("failed to scan tour: %w", err)
		}
		tours = append(tours, tour)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tours: %w", err)
	}

	return tours, nil
}

// FindByID は指定IDのツアーを取得する。見つからない場合はnilを返す。
func (r *PostgresTourRepo) FindByID(ctx context.Context, id string) (*model.Tour, error) {
	tour := &model.Tour{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, slug, duration, max_group_size, difficulty,
		        ratings_average, ratings_quantity, price, price_discount,
		        summary, description, image_cover, start_dates, secret_tour, created_at
		 FROM tours WHERE id = $1`,
		id,
	).Scan(
		&tour.ID, &tour.Name, &tour.Slug, &tour.Duration, &tour.MaxGroupSize,
		&tour.Difficulty, &tour.RatingsAverage, &tour.RatingsQuantity,
		&tour.Price, &tour.PriceDiscount, &tour.Summary, &tour.Description,
		&tour.ImageCover, pq.Array(&tour.StartDates), &tour.SecretTour, &tour.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find tour by ID: %w", err)
	}

	return tour, nil
}

// Create はツアーを作成する。
func (r *PostgresTourRepo) Create(ctx context.Context, tour *model.Tour) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tours (id, name, slug, duration, max_group_size, difficulty,
		                    ratings_average, ratings_quantity, price, price_discount,
		                    summary, description, image_cover, start_dates, secret_tour, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		tour.ID, tour.Name, tour.Slug, tour.Duration, tour.MaxGroupSize,
		tour.Difficulty, tour.RatingsAverage, tour.RatingsQuantity,
		tour.Price, tour.PriceDiscount, tour.Summary, tour.Description,
		tour.ImageCover, pq.Array(tour.StartDates), tour.SecretTour, tour.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("failed to insert tour: %w", err)
	}
	return nil
}

// Update はツアーを部分更新し、更新後のツアーを返す。見つからない場合はnilを返す。
func (r *PostgresTourRepo) Update(ctx context.Context, id string, params UpdateTourParams) (*model.Tour, error) {
	var sets []string
	var args []any

	add := func(col string, val any) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if params.Name != nil {
		add("name", *params.Name)
	}
	if params.Duration != nil {
		add("duration", *params.Duration)
	}
	if params.MaxGroupSize != nil {
		add("max_group_size", *params.MaxGroupSize)
	}
	if params.Difficulty != nil {
		add("difficulty", *params.Difficulty)
	}
	if params.Price != nil {
		add("price", *params.Price)
	}
	if params.PriceDiscount != nil {
		add("price_discount", *params.PriceDiscount)
	}
	if params.Summary != nil {
		add("summary", *params.Summary)
	}
	if params.Description != nil {
		add("description", *params.Description)
	}
	if params.ImageCover != nil {
		add("image_cover", *params.ImageCover)
	}

	if len(sets) == 0 {
		return r.FindByID(ctx, id)
	}

	args = append(args, id)
	stmt := fmt.Sprintf("UPDATE tours SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	result, err := r.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("failed to update tour: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}

	return r.FindByID(ctx, id)
}

// Delete は指定IDのツアーを削除する。見つからない場合はfalseを返す。
func (r *PostgresTourRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tours WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete tour: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// Stats は難易度ごとの集計を平均価格の昇順で返す。
// 評価4.5以上のツアーのみを対象とする。
func (r *PostgresTourRepo) Stats(ctx context.Context) ([]model.TourStats, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT difficulty, COUNT(*), COALESCE(SUM(ratings_quantity), 0),
		        COALESCE(AVG(ratings_average), 0), COALESCE(AVG(price), 0),
		        COALESCE(MIN(price), 0), COALESCE(MAX(price), 0)
		 FROM tours
		 WHERE ratings_average >= 4.5 AND secret_tour = FALSE
		 GROUP BY difficulty
		 ORDER BY AVG(price) ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate tour stats: %w", err)
	}
	defer rows.Close()

	var stats []model.TourStats
	for rows.Next() {
		var s model.TourStats
		if err := rows.Scan(&s.Difficulty, &s.NumTours, &s.NumRatings,
			&s.AvgRating, &s.AvgPrice, &s.MinPrice, &s.MaxPrice); err != nil {
			return nil, fmt.Errorf("failed to scan tour stats: %w", err)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tour stats: %w", err)
	}

	return stats, nil
}

// isUniqueViolation はPostgreSQLの一意制約違反かどうかを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// compile-time interface check
var _ TourRepository = (*PostgresTourRepo)(nil)
