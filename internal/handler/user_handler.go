package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/aiclub/internal/middleware"
	"github.com/hitoshi/aiclub/internal/model"
	"github.com/hitoshi/aiclub/internal/user"
)

// leaderboardTitle は総合ランキングボードの固定タイトル。
const leaderboardTitle = "Top Users"

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	Profile(ctx context.Context, userID string) (*user.Profile, error)
	UpdateProfile(ctx context.Context, userID string, in user.ProfileInput) (*model.User, error)
	UploadAvatar(ctx context.Context, userID, filename string, data []byte) (string, error)
	ChangePassword(ctx context.Context, userID, current, next string) error
	Leaderboard(ctx context.Context) ([]model.LeaderboardEntry, error)
}

// UserHandler は会員プロフィールとランキングのHTTPハンドラー。
type UserHandler struct {
	service        UserServiceInterface
	uploadMaxBytes int64
}

// NewUserHandler はUserHandlerを生成する。uploadMaxBytesが0以下の場合は既定値を使う。
func NewUserHandler(service UserServiceInterface, uploadMaxBytes int64) *UserHandler {
	return &UserHandler{service: service, uploadMaxBytes: uploadMaxBytes}
}

type updateProfileRequest struct {
	FullName *string `json:"fullName"`
	Email    *string `json:"email"`
	Image    *string `json:"image"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Profile はログインユーザーのプロフィールを返す。
// GET /users/profile
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	p, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfile(p))
}

// UpdateProfile はプロフィールを部分更新する。
// PUT /users/profile
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	u, err := h.service.UpdateProfile(r.Context(), userID, user.ProfileInput{
		FullName: req.FullName,
		Email:    req.Email,
		Image:    req.Image,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u.Summary())
}

// UploadAvatar はマルチパートの "avatar" フィールドを保存する。
// POST /users/avatar
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := parseMultipart(w, r, h.uploadMaxBytes); err != nil {
		handleServiceError(w, r, err)
		return
	}
	filename, data, found, err := formFile(r, "avatar")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if !found {
		handleServiceError(w, r, model.NewBadRequestError(model.MsgNoAvatarFile))
		return
	}

	imageURL, err := h.service.UploadAvatar(r.Context(), userID, filename, data)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AvatarResponse{ImageURL: imageURL})
}

// ChangePassword はパスワードを変更する。
// PUT /users/password
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	if err := h.service.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// Leaderboards は総合ランキングを1件のボードとして配列で返す。
// GET /leaderboards
func (h *UserHandler) Leaderboards(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Leaderboard(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	board := LeaderboardResponse{
		ID:      1,
		Title:   leaderboardTitle,
		Entries: make([]LeaderboardEntryResponse, 0, len(entries)),
	}
	for _, e := range entries {
		board.Entries = append(board.Entries, LeaderboardEntryResponse{Name: e.Name, Points: e.Points})
	}
	writeJSON(w, http.StatusOK, []LeaderboardResponse{board})
}

// ChallengeLeaderboard はチャレンジ画面用のランキングを返す。
// GET /challenges/leaderboard
func (h *UserHandler) ChallengeLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Leaderboard(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	out := make([]ChallengeLeaderboardEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, ChallengeLeaderboardEntryResponse{
			ID:     e.UserID,
			Name:   e.Name,
			Points: e.Points,
			Image:  nullable(e.Image),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// requireUserID はIdentityGuardが設定したユーザーIDを取り出す。無い場合は401を書き込む。
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		handleServiceError(w, r, model.NewAuthError())
		return "", false
	}
	return userID, true
}
