// Package challenge は週次チャレンジの公開・管理ロジックを提供する。
package challenge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/hitoshi/aiclub/internal/model"
	"github.com/hitoshi/aiclub/internal/repository"
	"github.com/hitoshi/aiclub/internal/security"
)

// dateLayout は日付のみの入力形式。
const dateLayout = "2006-01-02"

// Input は管理画面からの作成・更新の入力。nilのフィールドは変更しない。
type Input struct {
	Title        *string
	Description  *string
	Week         *int
	ChallengeURL *string
	StartDate    *time.Time
	EndDate      *time.Time
	Visible      *bool
}

// Service は週次チャレンジのサービス層。
type Service struct {
	repo      repository.ChallengeRepository
	sanitizer security.Sanitizer
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.ChallengeRepository, sanitizer security.Sanitizer) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// Current は現在公開期間内の最新チャレンジを返す。無い場合はNotFound。
func (s *Service) Current(ctx context.Context) (*model.Challenge, error) {
	c, err := s.repo.FindCurrent(ctx, s.now())
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	if c == nil {
		return nil, model.NewNotFoundError()
	}
	return c, nil
}

// AdminList は管理画面用の一覧を返す。
func (s *Service) AdminList(ctx context.Context, includeHidden bool) ([]*model.Challenge, error) {
	list, err := s.repo.List(ctx, includeHidden)
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	return list, nil
}

// AdminGet は公開状態に関わらずチャレンジを返す。
func (s *Service) AdminGet(ctx context.Context, id int) (*model.Challenge, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	if c == nil {
		return nil, model.NewNotFoundError()
	}
	return c, nil
}

// Create はチャレンジを作成する。titleとdescriptionは必須。
// 既定値: week=1, challengeUrl="", visible=true。
func (s *Service) Create(ctx context.Context, in Input) (*model.Challenge, error) {
	err := validation.Errors{
		"title":       validation.Validate(in.Title, validation.NotNil),
		"description": validation.Validate(in.Description, validation.NotNil),
	}.Filter()
	if err != nil {
		return nil, model.NewValidationError(err.Error())
	}

	c := &model.Challenge{Week: 1, Visible: true}
	if err := s.apply(c, in); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, model.NewInternalError(err)
	}

	slog.Info("challenge created",
		slog.Int("challenge_id", c.ID),
		slog.Int("week", c.Week),
	)
	return c, nil
}

// Update は指定されたフィールドのみを上書きする。
func (s *Service) Update(ctx context.Context, id int, in Input) (*model.Challenge, error) {
	c, err := s.AdminGet(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.apply(c, in); err != nil {
		return nil, err
	}

	found, err := s.repo.Update(ctx, c)
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	if !found {
		return nil, model.NewNotFoundError()
	}

	slog.Info("challenge updated", slog.Int("challenge_id", id))
	return c, nil
}

// Delete はチャレンジを削除する。
func (s *Service) Delete(ctx context.Context, id int) error {
	found, err := s.repo.Delete(ctx, id)
	if err != nil {
		return model.NewInternalError(err)
	}
	if !found {
		return model.NewNotFoundError()
	}
	slog.Info("challenge deleted", slog.Int("challenge_id", id))
	return nil
}

// SetVisibility は公開状態を変更する。
func (s *Service) SetVisibility(ctx context.Context, id int, visible bool) (*model.Challenge, error) {
	c, err := s.repo.SetVisibility(ctx, id, visible)
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	if c == nil {
		return nil, model.NewNotFoundError()
	}
	return c, nil
}

func (s *Service) apply(c *model.Challenge, in Input) error {
	if in.Title != nil {
		c.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		c.Description = s.sanitizer.Sanitize(*in.Description)
	}
	if in.Week != nil {
		c.Week = *in.Week
	}
	if in.ChallengeURL != nil {
		c.ChallengeURL = strings.TrimSpace(*in.ChallengeURL)
	}
	if in.StartDate != nil {
		c.StartDate = in.StartDate
	}
	if in.EndDate != nil {
		c.EndDate = in.EndDate
	}
	if in.Visible != nil {
		c.Visible = *in.Visible
	}

	err := validation.Errors{
		"title":       validation.Validate(c.Title, validation.Required, validation.Length(1, 255)),
		"description": validation.Validate(c.Description, validation.Required),
		"week":        validation.Validate(c.Week, validation.Min(1)),
		"challengeUrl": validation.Validate(c.ChallengeURL, validation.By(func(v interface{}) error {
			if u, _ := v.(string); u != "" {
				return security.ValidateLinkURL(u)
			}
			return nil
		})),
		"endDate": validation.Validate(c.EndDate, validation.By(func(interface{}) error {
			if c.StartDate != nil && c.EndDate != nil && c.EndDate.Before(*c.StartDate) {
				return fmt.Errorf("must not be before startDate")
			}
			return nil
		})),
	}.Filter()
	if err != nil {
		return model.NewValidationError(err.Error())
	}
	return nil
}

// ParseDate は "YYYY-MM-DD" またはRFC 3339形式の日付を解析する。
// 日付のみの場合はUTCの0時とする。空文字はnilを返す。
func ParseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: expected YYYY-MM-DD or RFC 3339", raw)
	}
	return &t, nil
}
