package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/aiclub/internal/contact"
)

// ContactServiceInterface はお問い合わせハンドラーが必要とするサービスインターフェース。
type ContactServiceInterface interface {
	Submit(ctx context.Context, in contact.Input) error
}

// ContactHandler はお問い合わせフォームのHTTPハンドラー。
type ContactHandler struct {
	service ContactServiceInterface
}

// NewContactHandler はContactHandlerを生成する。
func NewContactHandler(service ContactServiceInterface) *ContactHandler {
	return &ContactHandler{service: service}
}

// Submit はお問い合わせを保存する。
// POST /contact
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req contact.Input
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	if err := h.service.Submit(r.Context(), req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ContactResponse{Success: true, Message: contact.SuccessMessage})
}
