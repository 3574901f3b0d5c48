// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/hitoshi/tourbase/internal/model"
)

type contextKey string

const accountContextKey contextKey = "account"

// ErrNoAccount はコンテキストに認証済みアカウントが存在しない場合のエラー。
var ErrNoAccount = errors.New("no authenticated account in context")

// Authenticator はJWTを検証し、対応するアカウントを解決する。
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.Account, error)
}

// AccountFromContext はコンテキストから認証済みアカウントを取得する。
func AccountFromContext(ctx context.Context) (*model.Account, error) {
	account, ok := ctx.Value(accountContextKey).(*model.Account)
	if !ok || account == nil {
		return nil, ErrNoAccount
	}
	return account, nil
}

// ContextWithAccount はアカウントを格納したコンテキストを返す。テスト用にも公開する。
func ContextWithAccount(ctx context.Context, account *model.Account) context.Context {
	return context.WithValue(ctx, accountContextKey, account)
}

// NewProtectMiddleware はBearerトークンを検証し、アカウントをコンテキストに載せる
// ミドルウェアを返す。トークン未提示は401、検証失敗はエラー種別に応じたステータスを返す。
func NewProtectMiddleware(authenticator Authenticator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}

			account, err := authenticator.Authenticate(r.Context(), token)
			if err != nil {
				var apiErr *model.APIError
				if errors.As(err, &apiErr) {
					WriteErrorResponse(w, http.StatusUnauthorized, apiErr)
					return
				}
				WriteInternalServerError(w)
				return
			}

			ctx := ContextWithAccount(r.Context(), account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
// 形式不正の場合は空文字を返す。
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
