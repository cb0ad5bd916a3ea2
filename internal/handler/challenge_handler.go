package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/aiclub/internal/challenge"
	"github.com/hitoshi/aiclub/internal/model"
)

// ChallengeServiceInterface はチャレンジハンドラーが必要とするサービスインターフェース。
type ChallengeServiceInterface interface {
	Current(ctx context.Context) (*model.Challenge, error)
	AdminList(ctx context.Context, includeHidden bool) ([]*model.Challenge, error)
	AdminGet(ctx context.Context, id int) (*model.Challenge, error)
	Create(ctx context.Context, in challenge.Input) (*model.Challenge, error)
	Update(ctx context.Context, id int, in challenge.Input) (*model.Challenge, error)
	Delete(ctx context.Context, id int) error
	SetVisibility(ctx context.Context, id int, visible bool) (*model.Challenge, error)
}

// ChallengeHandler は週次チャレンジのHTTPハンドラー。
type ChallengeHandler struct {
	service ChallengeServiceInterface
}

// NewChallengeHandler はChallengeHandlerを生成する。
func NewChallengeHandler(service ChallengeServiceInterface) *ChallengeHandler {
	return &ChallengeHandler{service: service}
}

// challengeRequest は作成・更新のJSONボディ。省略したフィールドは変更しない。
type challengeRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	Week         *int    `json:"week"`
	ChallengeURL *string `json:"challengeUrl"`
	StartDate    *string `json:"startDate"`
	EndDate      *string `json:"endDate"`
	Visible      *bool   `json:"visible"`
}

func (req challengeRequest) toInput() (challenge.Input, error) {
	in := challenge.Input{
		Title:        req.Title,
		Description:  req.Description,
		Week:         req.Week,
		ChallengeURL: req.ChallengeURL,
		Visible:      req.Visible,
	}
	if req.StartDate != nil {
		t, err := challenge.ParseDate(*req.StartDate)
		if err != nil {
			return in, model.NewValidationError("startDate: " + err.Error())
		}
		in.StartDate = t
	}
	if req.EndDate != nil {
		t, err := challenge.ParseDate(*req.EndDate)
		if err != nil {
			return in, model.NewValidationError("endDate: " + err.Error())
		}
		in.EndDate = t
	}
	return in, nil
}

// Current は公開中の最新チャレンジを返す。
// GET /challenges/current
func (h *ChallengeHandler) Current(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Current(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toChallenge(c))
}

// AdminList は管理画面用のチャレンジ一覧を返す。
// GET /admin/challenges?includeHidden=true
func (h *ChallengeHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	cs, err := h.service.AdminList(r.Context(), includeHidden(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itemsResponse[AdminChallengeResponse]{Items: toAdminChallenges(cs)})
}

// AdminGet はチャレンジを1件返す。
// GET /admin/challenges/{id}
func (h *ChallengeHandler) AdminGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	c, err := h.service.AdminGet(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itemResponse[AdminChallengeResponse]{Item: toAdminChallenge(c)})
}

// Create はチャレンジを作成する。
// POST /admin/challenges
func (h *ChallengeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req challengeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	c, err := h.service.Create(r.Context(), in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itemResponse[AdminChallengeResponse]{Item: toAdminChallenge(c)})
}

// Update はチャレンジを部分更新する。
// PUT /admin/challenges/{id}
func (h *ChallengeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	var req challengeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	c, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itemResponse[AdminChallengeResponse]{Item: toAdminChallenge(c)})
}

// Delete はチャレンジを削除する。
// DELETE /admin/challenges/{id}
func (h *ChallengeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// SetVisibility は公開状態を切り替える。
// PATCH /admin/challenges/{id}/visibility
func (h *ChallengeHandler) SetVisibility(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	visible, err := decodeVisibility(w, r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	c, err := h.service.SetVisibility(r.Context(), id, visible)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itemResponse[AdminChallengeResponse]{Item: toAdminChallenge(c)})
}
