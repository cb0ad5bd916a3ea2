// Package resource は学習リソースの公開・管理ロジックを提供する。
package resource

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/aiclub/internal/model"
	"github.com/hitoshi/aiclub/internal/repository"
	"github.com/hitoshi/aiclub/internal/security"
	"github.com/hitoshi/aiclub/internal/storage"
)

// 画像の保存先ディレクトリ。
const (
	CoverDir      = "resources/covers"
	InstructorDir = "resources/instructors"
)

// UploadObserver は保存したアップロードのサイズを記録する。nilの場合は記録しない。
type UploadObserver interface {
	RecordUploadBytes(n int64)
}

// Upload はフォームから受け取ったファイル。
type Upload struct {
	Filename string
	Data     []byte
}

// Input は管理画面からの作成・更新の入力。nilのフィールドは変更しない。
// NotionURLに空文字を指定するとリンクを削除する。
type Input struct {
	Title           *string
	Provider        *string
	NotionURL       *string
	InstructorName  *string
	Visible         *bool
	CoverImage      *Upload
	InstructorImage *Upload
}

// Detail はリソース詳細と添える引用文。
type Detail struct {
	Resource *model.Resource
	Quote    *model.Quote
}

// Service は学習リソースのサービス層。
type Service struct {
	resources repository.ResourceRepository
	quotes    repository.QuoteRepository
	blobs     storage.BlobStore
	observer  UploadObserver
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	resources repository.ResourceRepository,
	quotes repository.QuoteRepository,
	blobs storage.BlobStore,
	observer UploadObserver,
) *Service {
	return &Service{
		resources: resources,
		quotes:    quotes,
		blobs:     blobs,
		observer:  observer,
	}
}

// List は公開中のリソース一覧を返す。
func (s *Service) List(ctx context.Context) ([]*model.Resource, error) {
	return s.AdminList(ctx, false)
}

// Detail は公開中のリソースとランダムな引用文を返す。
// 引用文が1件も無い場合はQuoteがnilになる。
func (s *Service) Detail(ctx context.Context, id int) (*Detail, error) {
	res, err := s.resources.FindByID(ctx, id, true)
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	if res == nil {
		return nil, model.NewNotFoundError()
	}

	quote, err := s.quotes.RandomVisible(ctx)
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	return &Detail{Resource: res, Quote: quote}, nil
}

// AdminList は管理画面用の一覧を返す。
func (s *Service) AdminList(ctx context.Context, includeHidden bool) ([]*model.Resource, error) {
	list, err := s.resources.List(ctx, includeHidden)
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	return list, nil
}

// AdminGet は公開状態に関わらずリソースを返す。
func (s *Service) AdminGet(ctx context.Context, id int) (*model.Resource, error) {
	res, err := s.resources.FindByID(ctx, id, false)
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	if res == nil {
		return nil, model.NewNotFoundError()
	}
	return res, nil
}

// Create はリソースを作成する。titleとproviderは必須。visibleの既定値はtrue。
func (s *Service) Create(ctx context.Context, in Input) (*model.Resource, error) {
	if in.Title == nil {
		return nil, model.NewBadRequestError("Missing required field: title")
	}
	if in.Provider == nil {
		return nil, model.NewBadRequestError("Missing required field: provider")
	}

	res := &model.Resource{Visible: true}
	if err := s.apply(ctx, res, in); err != nil {
		return nil, err
	}

	if err := s.resources.Create(ctx, res); err != nil {
		return nil, model.NewInternalError(err)
	}

	slog.Info("resource created", slog.Int("resource_id", res.ID))
	return res, nil
}

// Update は指定されたフィールドのみを上書きする。
func (s *Service) Update(ctx context.Context, id int, in Input) (*model.Resource, error) {
	res, err := s.AdminGet(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.apply(ctx, res, in); err != nil {
		return nil, err
	}

	found, err := s.resources.Update(ctx, res)
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	if !found {
		return nil, model.NewNotFoundError()
	}

	slog.Info("resource updated", slog.Int("resource_id", id))
	return res, nil
}

// Delete はリソースを削除する。
func (s *Service) Delete(ctx context.Context, id int) error {
	found, err := s.resources.Delete(ctx, id)
	if err != nil {
		return model.NewInternalError(err)
	}
	if !found {
		return model.NewNotFoundError()
	}
	slog.Info("resource deleted", slog.Int("resource_id", id))
	return nil
}

// SetVisibility は公開状態を変更する。
func (s *Service) SetVisibility(ctx context.Context, id int, visible bool) (*model.Resource, error) {
	res, err := s.resources.SetVisibility(ctx, id, visible)
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	if res == nil {
		return nil, model.NewNotFoundError()
	}
	return res, nil
}

// apply は入力をリソースへ反映する。画像は検証が通った後に保存する。
func (s *Service) apply(ctx context.Context, res *model.Resource, in Input) error {
	if in.Title != nil {
		res.Title = strings.TrimSpace(*in.Title)
		if res.Title == "" {
			return model.NewValidationError("title: cannot be blank.")
		}
	}
	if in.Provider != nil {
		res.Provider = strings.TrimSpace(*in.Provider)
		if res.Provider == "" {
			return model.NewValidationError("provider: cannot be blank.")
		}
	}
	if in.NotionURL != nil {
		notionURL := strings.TrimSpace(*in.NotionURL)
		if notionURL != "" {
			if err := security.ValidateLinkURL(notionURL); err != nil {
				return model.NewValidationError("notionUrl: " + err.Error())
			}
		}
		res.NotionURL = notionURL
	}
	if in.InstructorName != nil && strings.TrimSpace(*in.InstructorName) != "" {
		res.InstructorName = strings.TrimSpace(*in.InstructorName)
	}
	if in.Visible != nil {
		res.Visible = *in.Visible
	}

	if in.CoverImage != nil {
		url, err := s.store(ctx, CoverDir, in.CoverImage)
		if err != nil {
			return err
		}
		res.CoverImage = url
	}
	if in.InstructorImage != nil {
		url, err := s.store(ctx, InstructorDir, in.InstructorImage)
		if err != nil {
			return err
		}
		res.InstructorImage = url
	}
	return nil
}

func (s *Service) store(ctx context.Context, dir string, up *Upload) (string, error) {
	url, err := s.blobs.Store(ctx, dir, up.Filename, up.Data)
	if err != nil {
		return "", model.NewInternalError(fmt.Errorf("failed to store %s upload: %w", dir, err))
	}
	if s.observer != nil {
		s.observer.RecordUploadBytes(int64(len(up.Data)))
	}
	return url, nil
}
