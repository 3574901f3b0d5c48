// Package handler はHTTP APIハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/tourbase/internal/middleware"
	"github.com/hitoshi/tourbase/internal/model"
)

// writeSuccessResponse は成功レスポンスを統一エンベロープで書き込む。
// 一覧レスポンスでは件数をresultsに含める。
func writeSuccessResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]any{
		"status": "success",
		"data":   data,
	})
}

// writeListResponse は件数つきの一覧レスポンスを書き込む。
func writeListResponse(w http.ResponseWriter, count int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "success",
		"results": count,
		"data":    data,
	})
}

// handleServiceError はサービス層のエラーをHTTPレスポンスに変換する。
// APIError以外は詳細をログに残し、一般的な500を返す。
func handleServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	logger.Error("unexpected service error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はエラーコードをHTTPステータスコードに対応付ける。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidation:
		return http.StatusBadRequest
	case model.ErrCodeInvalidCredentials,
		model.ErrCodeUnauthenticated,
		model.ErrCodeInvalidToken,
		model.ErrCodeAccountGone,
		model.ErrCodeStalePassword:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeEmailNotFound,
		model.ErrCodeTourNotFound,
		model.ErrCodeReviewNotFound,
		model.ErrCodeAccountNotFound,
		model.ErrCodeRouteNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidResetToken:
		return http.StatusBadRequest
	case model.ErrCodeMailDelivery:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// projectJSON は射影指定がある場合にレスポンスから未選択フィールドを取り除く。
// keyMapは公開フィールド名→JSONキーの対応。射影指定が無い場合は入力をそのまま返す。
func projectJSON(v any, fields []string, keyMap map[string]string) any {
	if len(fields) == 0 {
		return v
	}

	keep := make(map[string]bool, len(fields))
	for _, f := range fields {
		if key, ok := keyMap[f]; ok {
			keep[key] = true
		}
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}

	var list []map[string]any
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, item := range list {
			filterKeys(item, keep)
		}
		return list
	}

	var single map[string]any
	if err := json.Unmarshal(raw, &single); err == nil {
		filterKeys(single, keep)
		return single
	}

	return v
}

// filterKeys はkeepに含まれないキーをmから削除する。
func filterKeys(m map[string]any, keep map[string]bool) {
	for key := range m {
		if !keep[key] {
			delete(m, key)
		}
	}
}
