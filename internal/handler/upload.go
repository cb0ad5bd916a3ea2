package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/hitoshi/aiclub/internal/model"
)

// DefaultUploadMaxBytes はマルチパートリクエスト全体の既定上限。
const DefaultUploadMaxBytes int64 = 10 << 20

// parseMultipart はボディサイズを制限してマルチパートフォームを解析する。
func parseMultipart(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultUploadMaxBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || errors.Is(err, multipart.ErrMessageTooLarge) {
			return model.NewBadRequestError("Upload too large")
		}
		return model.NewBadRequestError("Invalid multipart form")
	}
	return nil
}

// formFile は解析済みフォームからファイルを読み出す。フィールドが無い場合はok=falseを返す。
func formFile(r *http.Request, field string) (filename string, data []byte, ok bool, err error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil, false, nil
	}
	if err != nil {
		return "", nil, false, model.NewBadRequestError(fmt.Sprintf("Invalid file field: %s", field))
	}
	defer file.Close()

	data, err = io.ReadAll(file)
	if err != nil {
		return "", nil, false, model.NewInternalError(fmt.Errorf("failed to read upload %s: %w", field, err))
	}
	return header.Filename, data, true, nil
}

// formValue は解析済みフォームのテキスト値を返す。フィールドが無い場合はnil。
func formValue(r *http.Request, field string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	vs, ok := r.MultipartForm.Value[field]
	if !ok || len(vs) == 0 {
		return nil
	}
	v := vs[0]
	return &v
}
