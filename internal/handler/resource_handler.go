package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/hitoshi/aiclub/internal/model"
	"github.com/hitoshi/aiclub/internal/resource"
)

// ResourceServiceInterface はリソースハンドラーが必要とするサービスインターフェース。
type ResourceServiceInterface interface {
	List(ctx context.Context) ([]*model.Resource, error)
	Detail(ctx context.Context, id int) (*resource.Detail, error)
	AdminList(ctx context.Context, includeHidden bool) ([]*model.Resource, error)
	AdminGet(ctx context.Context, id int) (*model.Resource, error)
	Create(ctx context.Context, in resource.Input) (*model.Resource, error)
	Update(ctx context.Context, id int, in resource.Input) (*model.Resource, error)
	Delete(ctx context.Context, id int) error
	SetVisibility(ctx context.Context, id int, visible bool) (*model.Resource, error)
}

// ResourceHandler は学習リソースのHTTPハンドラー。
type ResourceHandler struct {
	service        ResourceServiceInterface
	uploadMaxBytes int64
}

// NewResourceHandler はResourceHandlerを生成する。
func NewResourceHandler(service ResourceServiceInterface, uploadMaxBytes int64) *ResourceHandler {
	return &ResourceHandler{service: service, uploadMaxBytes: uploadMaxBytes}
}

// List は公開中のリソース一覧を返す。
// GET /resources
func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	rs, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	out := make([]ResourceListItemResponse, 0, len(rs))
	for _, res := range rs {
		out = append(out, toResourceListItem(res))
	}
	writeJSON(w, http.StatusOK, out)
}

// Detail は公開中のリソース詳細を返す。
// GET /resources/{id}
func (h *ResourceHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	d, err := h.service.Detail(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResourceDetail(d))
}

// AdminList は管理画面用のリソース一覧を返す。
// GET /admin/resources?includeHidden=true
func (h *ResourceHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	rs, err := h.service.AdminList(r.Context(), includeHidden(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itemsResponse[AdminResourceResponse]{Items: toAdminResources(rs)})
}

// AdminGet は非公開を含むリソースを1件返す。
// GET /admin/resources/{id}
func (h *ResourceHandler) AdminGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	res, err := h.service.AdminGet(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itemResponse[AdminResourceResponse]{Item: toAdminResource(res)})
}

// Create はマルチパートフォームからリソースを作成する。
// POST /admin/resources
func (h *ResourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, err := h.readInput(w, r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	res, err := h.service.Create(r.Context(), in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itemResponse[AdminResourceResponse]{Item: toAdminResource(res)})
}

// Update はマルチパートフォームで指定されたフィールドのみ更新する。
// PUT /admin/resources/{id}
func (h *ResourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	in, err := h.readInput(w, r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	res, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itemResponse[AdminResourceResponse]{Item: toAdminResource(res)})
}

// Delete はリソースを削除する。
// DELETE /admin/resources/{id}
func (h *ResourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
// PATCH /admin/resources/{id}/visibility
func (h *ResourceHandler) SetVisibility(w http.ResponseWriter, r *http.Request) {
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

	res, err := h.service.SetVisibility(r.Context(), id, visible)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itemResponse[AdminResourceResponse]{Item: toAdminResource(res)})
}

// readInput はマルチパートフォームをresource.Inputへ変換する。
func (h *ResourceHandler) readInput(w http.ResponseWriter, r *http.Request) (resource.Input, error) {
	var in resource.Input
	if err := parseMultipart(w, r, h.uploadMaxBytes); err != nil {
		return in, err
	}

	in.Title = formValue(r, "title")
	in.Provider = formValue(r, "provider")
	in.NotionURL = formValue(r, "notionUrl")
	in.InstructorName = formValue(r, "instructorName")
	if v := formValue(r, "visible"); v != nil {
		visible := parseFormBool(*v)
		in.Visible = &visible
	}

	for field, dst := range map[string]**resource.Upload{
		"coverImage":      &in.CoverImage,
		"instructorImage": &in.InstructorImage,
	} {
		filename, data, found, err := formFile(r, field)
		if err != nil {
			return in, err
		}
		if found && len(data) > 0 {
			*dst = &resource.Upload{Filename: filename, Data: data}
		}
	}
	return in, nil
}

// parseFormBool はフォームの真偽値を解釈する。"true" と "1" のみtrue。
func parseFormBool(v string) bool {
	v = strings.TrimSpace(v)
	return strings.EqualFold(v, "true") || v == "1"
}
