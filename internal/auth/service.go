// Package auth は認証・認可とパスワード管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/tourbase/internal/model"
	"github.com/hitoshi/tourbase/internal/repository"
)

// Mailer はパスワードリセットメールの送信インターフェース。
type Mailer interface {
	Send(to, subject, body string) error
}

// Config は認証サービスの設定。
type Config struct {
	JWTSecret     string
	TokenTTL      time.Duration
	BcryptCost    int
	ResetTokenTTL time.Duration
	// BaseURL はリセットメールに記載するリンクの起点。
	BaseURL string
}

// Service は認証・認可のビジネスロジックを提供する。
type Service struct {
	accounts repository.AccountRepository
	mailer   Mailer
	config   Config
	logger   *slog.Logger
}

// NewService はServiceを生成する。
func NewService(accounts repository.AccountRepository, mailer Mailer, config Config, logger *slog.Logger) *Service {
	return &Service{
		accounts: accounts,
		mailer:   mailer,
		config:   config,
		logger:   logger,
	}
}

// SignupParams は新規登録の入力。ロールは受け付けず常にuserで作成する。
type SignupParams struct {
	Name            string
	Email           string
	Password        string
	PasswordConfirm string
}

// Signup はアカウントを新規作成し、発行したJWTとともに返す。
func (s *Service) Signup(ctx context.Context, params SignupParams) (*model.Account, string, error) {
	if params.Name == "" || params.Email == "" {
		return nil, "", model.NewValidationError("名前とメールアドレスは必須です。")
	}
	if _, err := mail.ParseAddress(params.Email); err != nil {
		return nil, "", model.NewValidationError("メールアドレスの形式が正しくありません。")
	}
	if err := validatePassword(params.Password, params.PasswordConfirm); err != nil {
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), s.config.BcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	account := &model.Account{
		ID:           uuid.New().String(),
		Name:         params.Name,
		Email:        strings.ToLower(params.Email),
		Role:         model.RoleUser,
		PasswordHash: string(hash),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, "", model.NewValidationError("このメールアドレスは既に登録されています。")
		}
		return nil, "", fmt.Errorf("failed to create account: %w", err)
	}

	token, err := s.SignToken(account.ID)
	if err != nil {
		return nil, "", err
	}

	s.logger.Info("account created", slog.String("account_id", account.ID))

	return account, token, nil
}

// Login はメールアドレスとパスワードを検証し、JWTを発行する。
// アカウントの存在有無とパスワード不一致は区別せず、同一のエラーを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*model.Account, string, error) {
	if email == "" || password == "" {
		return nil, "", model.NewValidationError("メールアドレスとパスワードを入力してください。")
	}

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		return nil, "", model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, "", model.NewInvalidCredentialsError()
	}

	token, err := s.SignToken(account.ID)
	if err != nil {
		return nil, "", err
	}

	return account, token, nil
}

// Authenticate はJWTを検証し、対応する有効なアカウントを解決する。
// トークン発行後にパスワードが変更されていた場合は失敗する。
func (s *Service) Authenticate(ctx context.Context, tokenString string) (*model.Account, error) {
	accountID, issuedAt, err := s.verifyToken(tokenString)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve token account: %w", err)
	}
	if account == nil {
		return nil, model.NewAccountGoneError()
	}

	if account.PasswordChangedAfter(issuedAt) {
		return nil, model.NewStalePasswordError()
	}

	return account, nil
}

// ForgotPassword はパスワードリセットトークンを発行し、メールで送付する。
// 平文トークンはメールにのみ含め、ストアには一方向ハッシュだけを保存する。
// メール送信に失敗した場合はトークンをクリアしてから失敗を返す。
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return model.NewValidationError("メールアドレスを入力してください。")
	}

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		return model.NewEmailNotFoundError()
	}

	rawToken, tokenHash, err := generateResetToken()
	if err != nil {
		return err
	}

	expires := time.Now().Add(s.config.ResetTokenTTL)
	if err := s.accounts.UpdateResetToken(ctx, account.ID, tokenHash, expires); err != nil {
		return fmt.Errorf("failed to save reset token: %w", err)
	}

	resetURL := fmt.Sprintf("%s/api/v1/users/resetPassword/%s", s.config.BaseURL, rawToken)
	body := fmt.Sprintf(
		"パスワードをお忘れですか？以下のURLから新しいパスワードを設定してください。\n\n%s\n\nこのリンクは%d分間有効です。心当たりがない場合はこのメールを無視してください。",
		resetURL, int(s.config.ResetTokenTTL.Minutes()),
	)

	if err := s.mailer.Send(account.Email, "パスワードリセットのご案内", body); err != nil {
		s.logger.Error("failed to send reset email",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
		if clearErr := s.accounts.ClearResetToken(ctx, account.ID); clearErr != nil {
			s.logger.Error("failed to clear reset token after send failure",
				slog.String("account_id", account.ID),
				slog.String("error", clearErr.Error()),
			)
		}
		return model.NewMailDeliveryError()
	}

	return nil
}

// ResetPassword はリセットトークンを検証してパスワードを更新し、新しいJWTを発行する。
// トークンは使用後にクリアされ、再利用できない。
func (s *Service) ResetPassword(ctx context.Context, rawToken, password, passwordConfirm string) (string, error) {
	if err := validatePassword(password, passwordConfirm); err != nil {
		return "", err
	}

	tokenHash := hashResetToken(rawToken)
	account, err := s.accounts.FindByResetTokenHash(ctx, tokenHash)
	if err != nil {
		return "", fmt.Errorf("failed to find account by reset token: %w", err)
	}
	if account == nil {
		return "", model.NewInvalidResetTokenError()
	}

	if err := s.changePassword(ctx, account.ID, password); err != nil {
		return "", err
	}

	return s.SignToken(account.ID)
}

// UpdatePassword はログイン済みアカウントのパスワードを更新し、新しいJWTを発行する。
// 現在のパスワードの再確認を必須とする。
func (s *Service) UpdatePassword(ctx context.Context, account *model.Account, currentPassword, newPassword, newPasswordConfirm string) (string, error) {
	if currentPassword == "" {
		return "", model.NewValidationError("現在のパスワードを入力してください。")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(currentPassword)); err != nil {
		return "", model.NewInvalidCredentialsError()
	}
	if err := validatePassword(newPassword, newPasswordConfirm); err != nil {
		return "", err
	}

	if err := s.changePassword(ctx, account.ID, newPassword); err != nil {
		return "", err
	}

	return s.SignToken(account.ID)
}

// changePassword はパスワードハッシュを更新する。
// 変更日時は直後に発行されるトークンが古い扱いにならないよう1秒過去にずらす。
func (s *Service) changePassword(ctx context.Context, accountID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	changedAt := time.Now().Add(-1 * time.Second)
	if err := s.accounts.UpdatePassword(ctx, accountID, string(hash), changedAt); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.logger.Info("password changed", slog.String("account_id", accountID))

	return nil
}

// validatePassword はパスワードの長さと確認入力の一致を検証する。
func validatePassword(password, passwordConfirm string) error {
	if len(password) < 8 {
		return model.NewValidationError("パスワードは8文字以上で入力してください。")
	}
	if password != passwordConfirm {
		return model.NewValidationError("パスワードと確認用パスワードが一致しません。")
	}
	return nil
}

// generateResetToken は平文トークンとそのSHA-256ハッシュを生成する。
func generateResetToken() (rawToken, tokenHash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	rawToken = hex.EncodeToString(buf)
	return rawToken, hashResetToken(rawToken), nil
}

// hashResetToken はリセットトークンの保存用ハッシュを計算する。
func hashResetToken(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(sum[:])
}
