// Package model はドメインモデルを定義する。
package model

import "time"

// Role はアカウントの権限ロールを表す。閉じた列挙。
type Role string

const (
	// RoleUser は一般ユーザー。
	RoleUser Role = "user"
	// RoleGuide はツアーガイド。
	RoleGuide Role = "guide"
	// RoleLeadGuide はリードガイド。ツアーの作成・削除が可能。
	RoleLeadGuide Role = "lead-guide"
	// RoleAdmin は管理者。
	RoleAdmin Role = "admin"
)

// ValidRole はroleが定義済みロールかどうかを返す。
func ValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin:
		return true
	default:
		return false
	}
}

// Account はサービス利用アカウントを表す。
// PasswordHashはjson:"-"によりいかなるレスポンスにも直列化されない。
type Account struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"` // 小文字に正規化して保存する
	Photo string `json:"photo,omitempty"`
	Role  Role   `json:"role"`

	PasswordHash      string     `json:"-"`
	PasswordChangedAt *time.Time `json:"-"`

	// パスワードリセットトークンは一方向ハッシュのみ保存する。
	// 使用後は成否にかかわらずクリアされる。
	PasswordResetToken   string     `json:"-"`
	PasswordResetExpires *time.Time `json:"-"`

	// 退会は論理削除のみ。falseのアカウントは一覧・ログインから除外される。
	Active bool `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PasswordChangedAfter はtokenIssuedAt以降にパスワードが変更されたかどうかを返す。
// 変更履歴が無い場合はfalse（変更されていない）を返す。
func (a *Account) PasswordChangedAfter(tokenIssuedAt time.Time) bool {
	if a.PasswordChangedAt == nil {
		return false
	}
	return tokenIssuedAt.Before(*a.PasswordChangedAt)
}
