package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lib/pq"

	"github.com/hitoshi/aiclub/internal/auth"
	"github.com/hitoshi/aiclub/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	signupFn          func(ctx context.Context, in auth.SignupInput) (*auth.Result, error)
	loginFn           func(ctx context.Context, email, password string) (*auth.Result, error)
	loginURLFn        func() (string, error)
	callbackFn        func(ctx context.Context, code string) (string, error)
	completeProfileFn func(ctx context.Context, userID, university, major string) error
}

func (m *mockAuthService) Signup(ctx context.Context, in auth.SignupInput) (*auth.Result, error) {
	if m.signupFn != nil {
		return m.signupFn(ctx, in)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*auth.Result, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) LoginURL() (string, error) {
	if m.loginURLFn != nil {
		return m.loginURLFn()
	}
	return "", errors.New("not implemented")
}

func (m *mockAuthService) HandleGoogleCallback(ctx context.Context, code string) (string, error) {
	if m.callbackFn != nil {
		return m.callbackFn(ctx, code)
	}
	return "", errors.New("not implemented")
}

func (m *mockAuthService) CompleteProfile(ctx context.Context, userID, university, major string) error {
	if m.completeProfileFn != nil {
		return m.completeProfileFn(ctx, userID, university, major)
	}
	return nil
}

func testUser() *model.User {
	return &model.User{
		ID:       "3f0c2a7e-1b7a-4c55-9d43-2a1f1c0d9e11",
		Email:    "thandi@example.com",
		FullName: "Thandi Nkosi",
		Role:     "user",
	}
}

// --- テスト ---

func TestAuthHandler_Signup_Success(t *testing.T) {
	var got auth.SignupInput
	svc := &mockAuthService{
		signupFn: func(ctx context.Context, in auth.SignupInput) (*auth.Result, error) {
			got = in
			return &auth.Result{Token: "tok-1", User: testUser()}, nil
		},
	}
	h := NewAuthHandler(svc)

	req := jsonRequest(t, http.MethodPost, "/auth/signup", map[string]string{
		"fullName": "Thandi Nkosi",
		"phoneNum": "082 123 4567",
		"email":    "thandi@example.com",
		"password": "correct-horse",
	})
	w := httptest.NewRecorder()
	h.Signup(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body=%q)", w.Code, http.StatusOK, w.Body.String())
	}
	if got.FullName != "Thandi Nkosi" || got.PhoneNum != "082 123 4567" {
		t.Errorf("input = %+v", got)
	}
	body := decodeBody[AuthResponse](t, w)
	if body.Token != "tok-1" {
		t.Errorf("token = %q, want %q", body.Token, "tok-1")
	}
	if body.User.FullName != "Thandi Nkosi" || body.User.Image != nil {
		t.Errorf("user = %+v", body.User)
	}
}

func TestAuthHandler_Signup_InvalidJSON_ReturnsBadRequest(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	h.Signup(w, req)

	assertErrorResponse(t, w, http.StatusBadRequest, "Invalid JSON body")
}

func TestAuthHandler_Signup_DuplicateEmail_ReturnsConflict(t *testing.T) {
	svc := &mockAuthService{
		signupFn: func(ctx context.Context, in auth.SignupInput) (*auth.Result, error) {
			return nil, fmt.Errorf("failed to create user: %w", &pq.Error{Code: "23505", Constraint: "users_email_key"})
		},
	}
	h := NewAuthHandler(svc)

	req := jsonRequest(t, http.MethodPost, "/auth/signup", map[string]string{"email": "a@b.co"})
	w := httptest.NewRecorder()
	h.Signup(w, req)

	assertErrorResponse(t, w, http.StatusConflict, model.MsgUserExists)
}

func TestAuthHandler_Login_Errors(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{"wrong password", model.NewAuthError(), http.StatusUnauthorized, model.MsgAuthFailed},
		{"google only", model.NewBadRequestError(model.MsgGoogleOnly), http.StatusBadRequest, model.MsgGoogleOnly},
		{"unclassified error", errors.New("connection reset"), http.StatusInternalServerError, model.MsgInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAuthService{
				loginFn: func(ctx context.Context, email, password string) (*auth.Result, error) {
					return nil, tt.err
				},
			}
			h := NewAuthHandler(svc)

			req := jsonRequest(t, http.MethodPost, "/auth/login", loginRequest{Email: "a@b.co", Password: "x"})
			w := httptest.NewRecorder()
			h.Login(w, req)

			assertErrorResponse(t, w, tt.wantStatus, tt.wantMessage)
		})
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, email, password string) (*auth.Result, error) {
			if email != "thandi@example.com" || password != "correct-horse" {
				t.Errorf("credentials = %q/%q", email, password)
			}
			return &auth.Result{Token: "tok-2", User: testUser()}, nil
		},
	}
	h := NewAuthHandler(svc)

	req := jsonRequest(t, http.MethodPost, "/auth/login", loginRequest{Email: "thandi@example.com", Password: "correct-horse"})
	w := httptest.NewRecorder()
	h.Login(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if body := decodeBody[AuthResponse](t, w); body.Token != "tok-2" {
		t.Errorf("token = %q, want %q", body.Token, "tok-2")
	}
}

func TestAuthHandler_GoogleLogin_RedirectsToAuthorizeURL(t *testing.T) {
	svc := &mockAuthService{
		loginURLFn: func() (string, error) {
			return "https://accounts.google.com/o/oauth2/auth?state=abc", nil
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/auth/google", nil)
	w := httptest.NewRecorder()
	h.GoogleLogin(w, req)

	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTemporaryRedirect)
	}
	if loc := w.Header().Get("Location"); loc != "https://accounts.google.com/o/oauth2/auth?state=abc" {
		t.Errorf("Location = %q", loc)
	}
}

func TestAuthHandler_GoogleCallback_Success_Redirects(t *testing.T) {
	const target = "https://aiclub-uj.com/auth/callback?token=t&user=%7B%7D"
	var gotCode string
	svc := &mockAuthService{
		callbackFn: func(ctx context.Context, code string) (string, error) {
			gotCode = code
			return target, nil
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=auth-code&state=s", nil)
	w := httptest.NewRecorder()
	h.GoogleCallback(w, req)

	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTemporaryRedirect)
	}
	if gotCode != "auth-code" {
		t.Errorf("code = %q, want %q", gotCode, "auth-code")
	}
	if loc := w.Header().Get("Location"); loc != target {
		t.Errorf("Location = %q, want %q", loc, target)
	}
}

func TestAuthHandler_GoogleCallback_MissingCode_ReturnsBadRequest(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=s", nil)
	w := httptest.NewRecorder()
	h.GoogleCallback(w, req)

	assertErrorResponse(t, w, http.StatusBadRequest, "Missing authorization code")
}

func TestAuthHandler_GoogleCallback_ServiceError_ReturnsInternalError(t *testing.T) {
	svc := &mockAuthService{
		callbackFn: func(ctx context.Context, code string) (string, error) {
			return "", model.NewInternalError(errors.New("token exchange failed"))
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=bad", nil)
	w := httptest.NewRecorder()
	h.GoogleCallback(w, req)

	assertErrorResponse(t, w, http.StatusInternalServerError, model.MsgInternal)
	if strings.Contains(w.Body.String(), "token exchange") {
		t.Errorf("body leaks internal detail: %q", w.Body.String())
	}
}

func TestAuthHandler_CompleteProfile(t *testing.T) {
	var gotUser, gotUni, gotMajor string
	svc := &mockAuthService{
		completeProfileFn: func(ctx context.Context, userID, university, major string) error {
			gotUser, gotUni, gotMajor = userID, university, major
			return nil
		},
	}
	h := NewAuthHandler(svc)

	req := jsonRequest(t, http.MethodPost, "/auth/complete-profile", completeProfileRequest{
		University: "University of Johannesburg",
		Major:      "Computer Science",
	})
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()
	h.CompleteProfile(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotUser != "user-1" || gotUni != "University of Johannesburg" || gotMajor != "Computer Science" {
		t.Errorf("args = %q/%q/%q", gotUser, gotUni, gotMajor)
	}
	if body := decodeBody[successResponse](t, w); !body.Success {
		t.Error("success = false, want true")
	}
}

func TestAuthHandler_CompleteProfile_NoUser_ReturnsUnauthorized(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	req := jsonRequest(t, http.MethodPost, "/auth/complete-profile", completeProfileRequest{})
	w := httptest.NewRecorder()
	h.CompleteProfile(w, req)

	assertErrorResponse(t, w, http.StatusUnauthorized, model.MsgAuthFailed)
}
