// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/tourbase/internal/model"
	"github.com/hitoshi/tourbase/internal/query"
)

// UpdateAccountParams はアカウントの部分更新パラメータ。
// nilフィールドは変更しない。パスワードはこの経路では更新できない。
type UpdateAccountParams struct {
	Name  *string
	Email *string
	Photo *string
	Role  *model.Role
}

// AccountRepository はアカウントデータの永続化インターフェース。
type AccountRepository interface {
	// FindByID は指定IDの有効なアカウントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Account, error)

	// FindByEmail はメールアドレスで有効なアカウントを検索する。
	// 認証用にパスワードハッシュを含めて取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Account, error)

	// FindByResetTokenHash はリセットトークンのハッシュが一致し、
	// かつ有効期限内のアカウントを検索する。見つからない場合はnilを返す。
	FindByResetTokenHash(ctx context.Context, tokenHash string) (*model.Account, error)

	// Create はアカウントを作成する。メールアドレス重複はErrDuplicateEmailを返す。
	Create(ctx context.Context, account *model.Account) error

	// Update はアカウントの許可フィールドのみを部分更新し、更新後のアカウントを返す。
	Update(ctx context.Context, id string, params UpdateAccountParams) (*model.Account, error)

	// UpdatePassword はパスワードハッシュと変更日時を更新し、リセットトークンをクリアする。
	UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error

	// UpdateResetToken はリセットトークンのハッシュと有効期限のみを保存する。
	// 通常のフィールド検証を伴わない部分保存。
	UpdateResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error

	// ClearResetToken はリセットトークンと有効期限をクリアする。
	// メール送信失敗時の補償処理にも使用する。
	ClearResetToken(ctx context.Context, id string) error

	// Deactivate はアカウントを論理削除する。物理削除は行わない。
	Deactivate(ctx context.Context, id string) error

	// List は変換済みクエリで有効なアカウント一覧を取得する。
	List(ctx context.Context, refined *query.Refined) ([]*model.Account, error)
}

// UpdateTourParams はツアーの部分更新パラメータ。nilフィールドは変更しない。
type UpdateTourParams struct {
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

// TourRepository はツアーデータの永続化インターフェース。
type TourRepository interface {
	// FindByID は指定IDのツアーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Tour, error)

	// Create はツアーを作成する。名前重複はErrDuplicateNameを返す。
	Create(ctx context.Context, tour *model.Tour) error

	// Update はツアーを部分更新し、更新後のツアーを返す。
	// 見つからない場合はnilを返す。
	Update(ctx context.Context, id string, params UpdateTourParams) (*model.Tour, error)

	// Delete は指定IDのツアーを削除する。見つからない場合はfalseを返す。
	Delete(ctx context.Context, id string) (bool, error)

	// List は変換済みクエリでツアー一覧を取得する。シークレットツアーは常に除外する。
	List(ctx context.Context, refined *query.Refined) ([]*model.Tour, error)

	// Stats は難易度ごとの集計を平均価格の昇順で返す。
	Stats(ctx context.Context) ([]model.TourStats, error)
}

// ReviewRepository はレビューデータの永続化インターフェース。
type ReviewRepository interface {
	// FindByID は指定IDのレビューを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Review, error)

	// Create はレビューを作成する。
	Create(ctx context.Context, review *model.Review) error

	// Delete は指定IDのレビューを削除する。見つからない場合はfalseを返す。
	Delete(ctx context.Context, id string) (bool, error)

	// List は変換済みクエリでレビュー一覧を取得する。
	// tourIDが空でない場合は対象ツアーのレビューに限定する。
	List(ctx context.Context, refined *query.Refined, tourID string) ([]*model.Review, error)
}
