package middleware

import (
	"net/http"

	"github.com/hitoshi/tourbase/internal/model"
)

// NewRestrictToMiddleware は認証済みアカウントのロールが指定リストに含まれる場合のみ
// 通過させるミドルウェアを返す。Protectの後段に配置すること。
func NewRestrictToMiddleware(roles ...model.Role) func(next http.Handler) http.Handler {
	allowed := make(map[model.Role]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account, err := AccountFromContext(r.Context())
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}

			if !allowed[account.Role] {
				WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
