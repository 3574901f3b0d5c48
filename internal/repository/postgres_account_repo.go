package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/tourbase/internal/model"
	"github.com/hitoshi/tourbase/internal/query"
)

// ErrDuplicateEmail はメールアドレスの一意制約違反を表す。
var ErrDuplicateEmail = errors.New("email already registered")

// accountMapping はアカウントの公開フィールドとカラムの対応。
// パスワードハッシュとリセットトークンはマッピングに含めないことで、
// クエリ経由では決して射影・参照されない。
var accountMapping = sqlMapping{
	table: "accounts",
	columns: map[string]string{
		"id":        "id",
		"name":      "name",
		"email":     "email",
		"photo":     "photo",
		"role":      "role",
		"createdAt": "created_at",
	},
	defaultFields: []string{"id", "name", "email", "photo", "role", "createdAt"},
	// 退会済みアカウントは一覧から除外する
	baseWhere: []string{"active = TRUE"},
}

// AccountQueryFields はアカウント一覧クエリで参照可能なフィールド集合を返す。
func AccountQueryFields() query.Allowed {
	return accountMapping.queryFields()
}

// PostgresAccountRepo はPostgreSQLを使用したアカウントリポジトリ。
type PostgresAccountRepo struct {
	db *sql.DB
}

// NewPostgresAccountRepo はPostgresAccountRepoを生成する。
func NewPostgresAccountRepo(db *sql.DB) *PostgresAccountRepo {
	return &PostgresAccountRepo{db: db}
}

const accountSelectColumns = `id, name, email, photo, role, password_hash,
	password_changed_at, password_reset_token, password_reset_expires,
	active, created_at, updated_at`

// scanAccount は1行をAccountにスキャンする。
func scanAccount(row *sql.Row) (*model.Account, error) {
	a := &model.Account{}
	var resetToken sql.NullString
	err := row.Scan(
		&a.ID, &a.Name, &a.Email, &a.Photo, &a.Role, &a.PasswordHash,
		&a.PasswordChangedAt, &resetToken, &a.PasswordResetExpires,
		&a.Active, &a.CreatedAt, &a.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.PasswordResetToken = resetToken.String
	return a, nil
}

// FindByID は指定IDの有効なアカウントを取得する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountSelectColumns+` FROM accounts WHERE id = $1 AND active = TRUE`,
		id,
	)
	account, err := scanAccount(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find account by ID: %w", err)
	}
	return account, nil
}

// FindByEmail はメールアドレスで有効なアカウントを検索する。見つからない場合はnilを返す。
// 検索前にメールアドレスを小文字に正規化する。
func (r *PostgresAccountRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountSelectColumns+` FROM accounts WHERE email = $1 AND active = TRUE`,
		strings.ToLower(email),
	)
	account, err := scanAccount(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find account by email: %w", err)
	}
	return account, nil
}

// FindByResetTokenHash はリセットトークンのハッシュが一致し、有効期限内のアカウントを検索する。
func (r *PostgresAccountRepo) FindByResetTokenHash(ctx context.Context, tokenHash string) (*model.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountSelectColumns+` FROM accounts
		 WHERE password_reset_token = $1 AND password_reset_expires > now() AND active = TRUE`,
		tokenHash,
	)
	account, err := scanAccount(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find account by reset token: %w", err)
	}
	return account, nil
}

// Create はアカウントを作成する。
func (r *PostgresAccountRepo) Create(ctx context.Context, account *model.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, name, email, photo, role, password_hash, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		account.ID, account.Name, strings.ToLower(account.Email), account.Photo,
		account.Role, account.PasswordHash, account.Active,
		account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

// Update はアカウントの許可フィールドのみを部分更新し、更新後のアカウントを返す。
// 見つからない場合はnilを返す。
func (r *PostgresAccountRepo) Update(ctx context.Context, id string, params UpdateAccountParams) (*model.Account, error) {
	var sets []string
	var args []any

	add := func(col string, val any) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if params.Name != nil {
		add("name", *params.Name)
	}
	if params.Email != nil {
		add("email", strings.ToLower(*params.Email))
	}
	if params.Photo != nil {
		add("photo", *params.Photo)
	}
	if params.Role != nil {
		add("role", *params.Role)
	}

	if len(sets) == 0 {
		return r.FindByID(ctx, id)
	}

	add("updated_at", time.Now())

	args = append(args, id)
	stmt := fmt.Sprintf("UPDATE accounts SET %s WHERE id = $%d AND active = TRUE",
		strings.Join(sets, ", "), len(args))

	result, err := r.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to update account: %w", err)
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

// UpdatePassword はパスワードハッシュと変更日時を更新し、リセットトークンをクリアする。
func (r *PostgresAccountRepo) UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE accounts
		 SET password_hash = $1, password_changed_at = $2,
		     password_reset_token = NULL, password_reset_expires = NULL,
		     updated_at = now()
		 WHERE id = $3`,
		passwordHash, changedAt, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("account not found: %s", id)
	}
	return nil
}

// UpdateResetToken はリセットトークンのハッシュと有効期限のみを保存する。
func (r *PostgresAccountRepo) UpdateResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET password_reset_token = $1, password_reset_expires = $2 WHERE id = $3`,
		tokenHash, expires, id,
	)
	if err != nil {
		return fmt.Errorf("failed to save reset token: %w", err)
	}
	return nil
}

// ClearResetToken はリセットトークンと有効期限をクリアする。
func (r *PostgresAccountRepo) ClearResetToken(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET password_reset_token = NULL, password_reset_expires = NULL WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to clear reset token: %w", err)
	}
	return nil
}

// Deactivate はアカウントを論理削除する。
func (r *PostgresAccountRepo) Deactivate(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET active = FALSE, updated_at = now() WHERE id = $1 AND active = TRUE`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate account: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("account not found: %s", id)
	}
	return nil
}

// List は変換済みクエリで有効なアカウント一覧を取得する。
// パスワードハッシュはマッピング対象外のため結果に含まれない。
func (r *PostgresAccountRepo) List(ctx context.Context, refined *query.Refined) ([]*model.Account, error) {
	stmt, args, fields, err := accountMapping.buildSelect(refined, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build account query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*model.Account
	for rows.Next() {
		account := &model.Account{}
		targets := make([]any, len(fields))
		for i, f := range fields {
			targets[i] = accountFieldPtr(account, f)
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}

	return accounts, nil
}

// accountFieldPtr は公開フィールド名に対応するスキャン先を返す。
func accountFieldPtr(a *model.Account, field string) any {
	switch field {
	case "id":
		return &a.ID
	case "name":
		return &a.Name
	case "email":
		return &a.Email
	case "photo":
		return &a.Photo
	case "role":
		return &a.Role
	case "createdAt":
		return &a.CreatedAt
	default:
		return nil
	}
}

// compile-time interface check
var _ AccountRepository = (*PostgresAccountRepo)(nil)
