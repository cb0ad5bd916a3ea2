package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/aiclub/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
type ErrorResponseBody struct {
	Message string `json:"message"`
}

// StatusForKind はエラー分類をHTTPステータスコードへ変換する。
func StatusForKind(kind model.ErrorKind) int {
	switch kind {
	case model.KindAuth:
		return http.StatusUnauthorized
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindBadRequest, model.KindValidation:
		return http.StatusBadRequest
	case model.KindUserExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WriteErrorResponse は {"message": ...} 形式のエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{Message: message})
}

// WriteAPIError はAPIErrorの分類に応じたステータスでエラーレスポンスを書き込む。
// 原因エラー（Err）はボディに含めない。
func WriteAPIError(w http.ResponseWriter, apiErr *model.APIError) {
	WriteErrorResponse(w, StatusForKind(apiErr.Kind), apiErr.Message)
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, model.MsgInternal)
}
