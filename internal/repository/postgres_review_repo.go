package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/tourbase/internal/model"
	"github.com/hitoshi/tourbase/internal/query"
)

// reviewMapping はレビューの公開フィールドとカラムの対応。
var reviewMapping = sqlMapping{
	table: "reviews",
	columns: map[string]string{
		"id":        "id",
		"review":    "review_text",
		"rating":    "rating",
		"tour":      "tour_id",
		"user":      "account_id",
		"createdAt": "created_at",
	},
	defaultFields: []string{"id", "review", "rating", "tour", "user", "createdAt"},
}

// ReviewQueryFields はレビュー一覧クエリで参照可能なフィールド集合を返す。
func ReviewQueryFields() query.Allowed {
	return reviewMapping.queryFields()
}

// PostgresReviewRepo はPostgreSQLを使用したレビューリポジトリ。
type PostgresReviewRepo struct {
	db *sql.DB
}

// NewPostgresReviewRepo はPostgresReviewRepoを生成する。
func NewPostgresReviewRepo(db *sql.DB) *PostgresReviewRepo {
	return &PostgresReviewRepo{db: db}
}

// FindByID は指定IDのレビューを取得する。見つからない場合はnilを返す。
func (r *PostgresReviewRepo) FindByID(ctx context.Context, id string) (*model.Review, error) {
	review := &model.Review{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, review_text, rating, tour_id, account_id, created_at
		 FROM reviews WHERE id = $1`,
		id,
	).Scan(&review.ID, &review.Text, &review.Rating,
		&review.TourID, &review.AccountID, &review.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find review by ID: %w", err)
	}

	return review, nil
}

// Create はレビューを作成する。
func (r *PostgresReviewRepo) Create(ctx context.Context, review *model.Review) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reviews (id, review_text, rating, tour_id, account_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		review.ID, review.Text, review.Rating,
		review.TourID, review.AccountID, review.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert review: %w", err)
	}
	return nil
}

// Delete は指定IDのレビューを削除する。見つからない場合はfalseを返す。
func (r *PostgresReviewRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete review: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// List は変換済みクエリでレビュー一覧を取得する。
// tourIDが空でない場合は対象ツアーのレビューに限定する。
func (r *PostgresReviewRepo) List(ctx context.Context, refined *query.Refined, tourID string) ([]*model.Review, error) {
	var extra []query.Condition
	if tourID != "" {
		extra = append(extra, query.Condition{Field: "tour", Op: query.OpEq, Value: tourID})
	}

	stmt, args, fields, err := reviewMapping.buildSelect(refined, extra)
	if err != nil {
		return nil, fmt.Errorf("failed to build review query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*model.Review
	for rows.Next() {
		review := &model.Review{}
		targets := make([]any, len(fields))
		for i, f := range fields {
			targets[i] = reviewFieldPtr(review, f)
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reviews: %w", err)
	}

	return reviews, nil
}

// reviewFieldPtr は公開フィールド名に対応するスキャン先を返す。
func reviewFieldPtr(rv *model.Review, field string) any {
	switch field {
	case "id":
		return &rv.ID
	case "review":
		return &rv.Text
	case "rating":
		return &rv.Rating
	case "tour":
		return &rv.TourID
	case "user":
		return &rv.AccountID
	case "createdAt":
		return &rv.CreatedAt
	default:
		return nil
	}
}

// compile-time interface check
var _ ReviewRepository = (*PostgresReviewRepo)(nil)
