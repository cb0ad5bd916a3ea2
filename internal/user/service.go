// Package user は会員プロフィールとランキングのドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"

	"github.com/hitoshi/aiclub/internal/auth"
	"github.com/hitoshi/aiclub/internal/model"
	"github.com/hitoshi/aiclub/internal/repository"
	"github.com/hitoshi/aiclub/internal/storage"
)

// LeaderboardSize はランキングに表示する人数。
const LeaderboardSize = 10

// AvatarDir はアバター画像の保存先ディレクトリ。
const AvatarDir = "avatars"

const minPasswordLength = 8

// UploadObserver は保存したアップロードのサイズを記録する。nilの場合は記録しない。
type UploadObserver interface {
	RecordUploadBytes(n int64)
}

// Profile はプロフィール画面の表示内容。
type Profile struct {
	User  *model.User
	Stats *model.UserStats
}

// ProfileInput はプロフィール部分更新の入力。nilのフィールドは変更しない。
type ProfileInput struct {
	FullName *string
	Email    *string
	Image    *string
}

// Service は会員プロフィールのサービス層。
type Service struct {
	userRepo   repository.UserRepository
	statsRepo  repository.StatsRepository
	blobs      storage.BlobStore
	observer   UploadObserver
	bcryptCost int
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	statsRepo repository.StatsRepository,
	blobs storage.BlobStore,
	observer UploadObserver,
	bcryptCost int,
) *Service {
	return &Service{
		userRepo:   userRepo,
		statsRepo:  statsRepo,
		blobs:      blobs,
		observer:   observer,
		bcryptCost: bcryptCost,
	}
}

// Profile はユーザーと統計を取得する。どちらかが無い場合はNotFound。
func (s *Service) Profile(ctx context.Context, userID string) (*Profile, error) {
	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	if u == nil {
		return nil, model.NewNotFoundError()
	}

	stats, err := s.statsRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	if stats == nil {
		return nil, model.NewNotFoundError()
	}

	return &Profile{User: u, Stats: stats}, nil
}

// UpdateProfile は指定されたフィールドのみを更新する。
// 他のユーザーが使用中のメールアドレスへの変更はUserExistsになる。
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*model.User, error) {
	if in.FullName != nil {
		v := strings.TrimSpace(*in.FullName)
		in.FullName = &v
	}
	if in.Email != nil {
		v := strings.TrimSpace(*in.Email)
		in.Email = &v
	}

	err := validation.ValidateStruct(&in,
		validation.Field(&in.FullName, validation.NilOrNotEmpty, validation.Length(1, 255)),
		validation.Field(&in.Email, validation.NilOrNotEmpty, is.Email),
	)
	if err != nil {
		return nil, model.NewValidationError(err.Error())
	}

	if in.Email != nil {
		taken, err := s.userRepo.EmailTakenByOther(ctx, *in.Email, userID)
		if err != nil {
			return nil, model.NewInternalError(err)
		}
		if taken {
			return nil, model.NewUserExistsError()
		}
	}

	updated, err := s.userRepo.UpdateProfile(ctx, userID, model.ProfileUpdate{
		FullName: in.FullName,
		Email:    in.Email,
		Image:    in.Image,
	})
	if err != nil {
		if repository.IsUniqueViolation(err, repository.ConstraintUsersEmail) {
			return nil, model.NewUserExistsError()
		}
		return nil, model.NewInternalError(err)
	}
	if updated == nil {
		return nil, model.NewNotFoundError()
	}
	return updated, nil
}

// UploadAvatar はアバター画像を保存し、ユーザーの画像URLを更新する。
// ファイル名が無い場合は "<uuid>.jpg" を使用する。
func (s *Service) UploadAvatar(ctx context.Context, userID, filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", model.NewBadRequestError(model.MsgNoAvatarFile)
	}
	filename = path.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." || filename == "/" {
		filename = uuid.NewString() + ".jpg"
	}

	imageURL, err := s.blobs.Store(ctx, AvatarDir, filename, data)
	if err != nil {
		return "", model.NewInternalError(fmt.Errorf("failed to store avatar: %w", err))
	}
	if s.observer != nil {
		s.observer.RecordUploadBytes(int64(len(data)))
	}

	if err := s.userRepo.UpdateImage(ctx, userID, imageURL); err != nil {
		return "", model.NewInternalError(err)
	}

	slog.Info("avatar uploaded",
		slog.String("user_id", userID),
		slog.Int("size", len(data)),
	)
	return imageURL, nil
}

// ChangePassword は現在のパスワードを確認してから新しいパスワードに変更する。
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return model.NewInternalError(err)
	}
	if u == nil {
		return model.NewNotFoundError()
	}
	if !u.HasPassword() {
		return model.NewBadRequestError(model.MsgNoPassword)
	}

	ok, err := auth.ComparePassword(u.PasswordHash, current)
	if err != nil {
		return model.NewInternalError(err)
	}
	if !ok {
		return model.NewAuthError()
	}

	if err := validation.Validate(next, validation.Required, validation.Length(minPasswordLength, 72)); err != nil {
		return model.NewValidationError("newPassword: " + err.Error())
	}

	hash, err := auth.HashPassword(next, s.bcryptCost)
	if err != nil {
		return model.NewInternalError(err)
	}
	if err := s.userRepo.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return model.NewInternalError(err)
	}

	slog.Info("password changed", slog.String("user_id", userID))
	return nil
}

// Leaderboard はポイント上位のユーザーを返す。
func (s *Service) Leaderboard(ctx context.Context) ([]model.LeaderboardEntry, error) {
	entries, err := s.userRepo.TopByPoints(ctx, LeaderboardSize)
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	return entries, nil
}
