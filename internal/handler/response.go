// Package handler はHTTPハンドラーとルーティングを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/aiclub/internal/middleware"
	"github.com/hitoshi/aiclub/internal/model"
	"github.com/hitoshi/aiclub/internal/repository"
)

// maxJSONBodyBytes はJSONリクエストボディの上限。
const maxJSONBodyBytes = 1 << 20

// writeJSON はステータスコードとJSONボディを書き込む。
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// handleServiceError はサービス層から返されたエラーをHTTPレスポンスに変換する。
// 原因はサーバーログにのみ出力し、クライアントには分類ごとの固定メッセージを返す。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if repository.IsUniqueViolation(err, repository.ConstraintUsersEmail) {
		err = model.NewUserExistsError()
	}

	apiErr, ok := model.AsAPIError(err)
	if !ok {
		apiErr = model.NewInternalError(err)
	}

	status := middleware.StatusForKind(apiErr.Kind)
	attrs := []any{
		slog.String("kind", apiErr.Kind.String()),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	}
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", attrs...)
	} else {
		slog.Warn("request rejected", attrs...)
	}

	middleware.WriteAPIError(w, apiErr)
}

// decodeJSON はJSONボディをvへデコードする。失敗時はBadRequestを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return model.NewBadRequestError("Request body too large")
		case errors.Is(err, io.EOF):
			return model.NewBadRequestError("Request body is empty")
		default:
			return model.NewBadRequestError("Invalid JSON body")
		}
	}
	return nil
}

// pathID はURLパラメータ {id} を正の整数として取り出す。
func pathID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		return 0, model.NewNotFoundError()
	}
	return id, nil
}

// includeHidden は ?includeHidden=true を解釈する。
func includeHidden(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("includeHidden"))
	return v
}

// visibilityRequest はPATCH .../visibility のボディ。
type visibilityRequest struct {
	Visible *bool `json:"visible"`
}

func decodeVisibility(w http.ResponseWriter, r *http.Request) (bool, error) {
	var req visibilityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return false, err
	}
	if req.Visible == nil {
		return false, model.NewValidationError("visible: cannot be blank.")
	}
	return *req.Visible, nil
}

// successResponse は {"success": true} 形式のレスポンス。
type successResponse struct {
	Success bool `json:"success"`
}
