package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, tour, review, account, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeUnauthenticated    = "UNAUTHENTICATED"
	ErrCodeInvalidToken       = "INVALID_TOKEN"
	ErrCodeAccountGone        = "ACCOUNT_GONE"
	ErrCodeStalePassword      = "STALE_PASSWORD"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeEmailNotFound      = "EMAIL_NOT_FOUND"
	ErrCodeInvalidResetToken  = "INVALID_RESET_TOKEN"
	ErrCodeMailDelivery       = "MAIL_DELIVERY_FAILED"
	ErrCodeTourNotFound       = "TOUR_NOT_FOUND"
	ErrCodeReviewNotFound     = "REVIEW_NOT_FOUND"
	ErrCodeAccountNotFound    = "ACCOUNT_NOT_FOUND"
	ErrCodeRouteNotFound      = "ROUTE_NOT_FOUND"
)

// NewValidationError は入力値検証エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  message,
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
// アカウントの存在有無を推測されないよう、メッセージは常に同一にする。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度ログインしてください。",
	}
}

// NewUnauthenticatedError はトークン未提示エラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "ログインしていません。",
		Category: "auth",
		Action:   "ログインしてからアクセスしてください。",
	}
}

// NewInvalidTokenError はトークン検証失敗エラーを生成する。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidToken,
		Message:  "トークンが無効か期限切れです。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewAccountGoneError はトークンに紐づくアカウントが存在しない場合のエラーを生成する。
func NewAccountGoneError() *APIError {
	return &APIError{
		Code:     ErrCodeAccountGone,
		Message:  "このトークンに紐づくアカウントは存在しません。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewStalePasswordError はトークン発行後にパスワードが変更された場合のエラーを生成する。
func NewStalePasswordError() *APIError {
	return &APIError{
		Code:     ErrCodeStalePassword,
		Message:  "パスワードが変更されています。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewForbiddenError はロール不一致エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を実行する権限がありません。",
		Category: "auth",
		Action:   "必要な権限を持つアカウントでログインしてください。",
	}
}

// NewEmailNotFoundError はリセット要求先のメールアドレスが未登録の場合のエラーを生成する。
func NewEmailNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailNotFound,
		Message:  "このメールアドレスのアカウントは存在しません。",
		Category: "account",
		Action:   "メールアドレスを確認してください。",
	}
}

// NewInvalidResetTokenError はリセットトークンが無効または期限切れの場合のエラーを生成する。
func NewInvalidResetTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidResetToken,
		Message:  "リセットトークンが無効か期限切れです。",
		Category: "auth",
		Action:   "パスワードリセットを最初からやり直してください。",
	}
}

// NewMailDeliveryError はリセットメールの送信失敗エラーを生成する。
func NewMailDeliveryError() *APIError {
	return &APIError{
		Code:     ErrCodeMailDelivery,
		Message:  "メールの送信に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewTourNotFoundError はツアー未検出エラーを生成する。
func NewTourNotFoundError(tourID string) *APIError {
	return &APIError{
		Code:     ErrCodeTourNotFound,
		Message:  fmt.Sprintf("指定されたツアーが見つかりません: %s", tourID),
		Category: "tour",
		Action:   "ツアーIDを確認してください。",
	}
}

// NewReviewNotFoundError はレビュー未検出エラーを生成する。
func NewReviewNotFoundError(reviewID string) *APIError {
	return &APIError{
		Code:     ErrCodeReviewNotFound,
		Message:  fmt.Sprintf("指定されたレビューが見つかりません: %s", reviewID),
		Category: "review",
		Action:   "レビューIDを確認してください。",
	}
}

// NewAccountNotFoundError はアカウント未検出エラーを生成する。
func NewAccountNotFoundError(accountID string) *APIError {
	return &APIError{
		Code:     ErrCodeAccountNotFound,
		Message:  fmt.Sprintf("指定されたアカウントが見つかりません: %s", accountID),
		Category: "account",
		Action:   "アカウントIDを確認してください。",
	}
}

// NewRouteNotFoundError は未定義ルートへのアクセスエラーを生成する。
func NewRouteNotFoundError(path string) *APIError {
	return &APIError{
		Code:     ErrCodeRouteNotFound,
		Message:  fmt.Sprintf("このサーバーに %s は存在しません。", path),
		Category: "system",
		Action:   "URLを確認してください。",
	}
}
