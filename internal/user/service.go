// Package user はアカウント管理のビジネスロジックを提供する。
package user

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"net/url"

	"github.com/hitoshi/tourbase/internal/model"
	"github.com/hitoshi/tourbase/internal/query"
	"github.com/hitoshi/tourbase/internal/repository"
)

// Service はアカウント管理のビジネスロジックを提供する。
type Service struct {
	accounts repository.AccountRepository
	logger   *slog.Logger
}

// NewService はServiceを生成する。
func NewService(accounts repository.AccountRepository, logger *slog.Logger) *Service {
	return &Service{
		accounts: accounts,
		logger:   logger,
	}
}

// List はクエリ文字列を変換してアカウント一覧を取得する。
func (s *Service) List(ctx context.Context, values url.Values) ([]*model.Account, error) {
	refined, err := query.Translate(values, repository.AccountQueryFields())
	if err != nil {
		return nil, err
	}
	return s.accounts.List(ctx, refined)
}

// Get は指定IDのアカウントを取得する。
func (s *Service) Get(ctx context.Context, id string) (*model.Account, error) {
	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, model.NewAccountNotFoundError(id)
	}
	return account, nil
}

// UpdateMeParams は本人によるプロフィール更新の入力。
// 許可リスト方式で、名前・メールアドレス・写真のみを受け付ける。
// パスワードとロールはこの経路では決して変更できない。
type UpdateMeParams struct {
	Name  *string
	Email *string
	Photo *string
}

// UpdateMe は認証済みアカウント自身のプロフィールを更新する。
func (s *Service) UpdateMe(ctx context.Context, accountID string, params UpdateMeParams) (*model.Account, error) {
	if params.Name != nil && *params.Name == "" {
		return nil, model.NewValidationError("名前は必須です。")
	}
	if params.Email != nil {
		if _, err := mail.ParseAddress(*params.Email); err != nil {
			return nil, model.NewValidationError("メールアドレスの形式が正しくありません。")
		}
	}

	account, err := s.accounts.Update(ctx, accountID, repository.UpdateAccountParams{
		Name:  params.Name,
		Email: params.Email,
		Photo: params.Photo,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, model.NewValidationError("このメールアドレスは既に登録されています。")
		}
		return nil, err
	}
	if account == nil {
		return nil, model.NewAccountNotFoundError(accountID)
	}

	return account, nil
}

// DeleteMe は認証済みアカウント自身を論理削除する。
// 物理削除はせず、以降のログインと一覧表示から除外する。
func (s *Service) DeleteMe(ctx context.Context, accountID string) error {
	if err := s.accounts.Deactivate(ctx, accountID); err != nil {
		return err
	}

	s.logger.Info("account deactivated", slog.String("account_id", accountID))

	return nil
}

// AdminUpdateParams は管理者によるアカウント更新の入力。ロール変更を含む。
type AdminUpdateParams struct {
	Name  *string
	Email *string
	Photo *string
	Role  *model.Role
}

// AdminUpdate は管理者がアカウントを更新する。
func (s *Service) AdminUpdate(ctx context.Context, id string, params AdminUpdateParams) (*model.Account, error) {
	if params.Role != nil && !model.ValidRole(*params.Role) {
		return nil, model.NewValidationError("ロールはuser、guide、lead-guide、adminのいずれかを指定してください。")
	}
	if params.Email != nil {
		if _, err := mail.ParseAddress(*params.Email); err != nil {
			return nil, model.NewValidationError("メールアドレスの形式が正しくありません。")
		}
	}

	account, err := s.accounts.Update(ctx, id, repository.UpdateAccountParams{
		Name:  params.Name,
		Email: params.Email,
		Photo: params.Photo,
		Role:  params.Role,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, model.NewValidationError("このメールアドレスは既に登録されています。")
		}
		return nil, err
	}
	if account == nil {
		return nil, model.NewAccountNotFoundError(id)
	}

	return account, nil
}

// AdminDelete は管理者がアカウントを論理削除する。
func (s *Service) AdminDelete(ctx context.Context, id string) error {
	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if account == nil {
		return model.NewAccountNotFoundError(id)
	}

	if err := s.accounts.Deactivate(ctx, id); err != nil {
		return err
	}

	s.logger.Info("account deactivated by admin", slog.String("account_id", id))

	return nil
}
