// Package contact はお問い合わせフォームの受付と保持期間管理を提供する。
package contact

import (
	"context"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/hitoshi/aiclub/internal/model"
	"github.com/hitoshi/aiclub/internal/repository"
	"github.com/hitoshi/aiclub/internal/security"
)

// SuccessMessage は送信完了時にクライアントへ返すメッセージ。
const SuccessMessage = "Message sent successfully"

const maxMessageLength = 5000

// Input はお問い合わせフォームの入力。
type Input struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Service はお問い合わせのサービス層。
type Service struct {
	repo      repository.ContactRepository
	sanitizer security.Sanitizer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.ContactRepository, sanitizer security.Sanitizer) *Service {
	return &Service{repo: repo, sanitizer: sanitizer}
}

// Submit は入力を検証・無害化して保存する。
func (s *Service) Submit(ctx context.Context, in Input) error {
	in.Name = s.sanitizer.Sanitize(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Message = s.sanitizer.Sanitize(in.Message)

	err := validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Message, validation.Required, validation.Length(1, maxMessageLength)),
	)
	if err != nil {
		return model.NewValidationError(err.Error())
	}

	msg := &model.ContactMessage{
		Name:    in.Name,
		Email:   in.Email,
		Message: in.Message,
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		return model.NewInternalError(err)
	}

	slog.Info("contact message received", slog.Int("contact_id", msg.ID))
	return nil
}

// Purge は保持日数を超えたお問い合わせを削除し、削除件数を返す。
func (s *Service) Purge(ctx context.Context, retentionDays int, now time.Time) (int64, error) {
	cutoff := now.AddDate(0, 0, -retentionDays)
	return s.repo.DeleteOlderThan(ctx, cutoff)
}
