package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/aiclub/internal/auth"
	"github.com/hitoshi/aiclub/internal/middleware"
	"github.com/hitoshi/aiclub/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Signup(ctx context.Context, in auth.SignupInput) (*auth.Result, error)
	Login(ctx context.Context, email, password string) (*auth.Result, error)
	// LoginURL はランダムなstateを付与したGoogle認可URLを返す。
	LoginURL() (string, error)
	// HandleGoogleCallback は認可コードからユーザーを解決し、フロントエンドへのリダイレクトURLを返す。
	HandleGoogleCallback(ctx context.Context, code string) (string, error)
	CompleteProfile(ctx context.Context, userID, university, major string) error
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type completeProfileRequest struct {
	University string `json:"university"`
	Major      string `json:"major"`
}

// Signup はパスワードアカウントを作成する。
// POST /auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req auth.SignupInput
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	res, err := h.service.Signup(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Token: res.Token, User: res.User.Summary()})
}

// Login はメールアドレスとパスワードで認証する。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	res, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Token: res.Token, User: res.User.Summary()})
}

// GoogleLogin はGoogle OAuthフローを開始する。
// GET /auth/google
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	url, err := h.service.LoginURL()
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// GoogleCallback はOAuthコールバックを処理し、フロントエンドへリダイレクトする。
// GET /auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		handleServiceError(w, r, model.NewBadRequestError("Missing authorization code"))
		return
	}

	redirectURL, err := h.service.HandleGoogleCallback(r.Context(), code)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	http.Redirect(w, r, redirectURL, http.StatusTemporaryRedirect)
}

// CompleteProfile は大学と専攻を登録する。
// POST /auth/complete-profile
func (h *AuthHandler) CompleteProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		handleServiceError(w, r, model.NewAuthError())
		return
	}

	var req completeProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	if err := h.service.CompleteProfile(r.Context(), userID, req.University, req.Major); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}
