// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/aiclub/internal/model"
)

const bearerPrefix = "Bearer "

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// principalContextKey はリクエストコンテキストに認証主体を格納するためのキー。
var principalContextKey = contextKey("principal")

// 認証ガードの結果。メトリクスのラベルとして使用する。
const (
	AuthOutcomeAuthenticated = "authenticated"
	AuthOutcomeElevated      = "elevated"
	AuthOutcomeRejected      = "rejected"
	AuthOutcomeInternalError = "internal_error"
)

// TokenVerifier はBearerトークンを検証し、subjectのユーザーIDを返す。
// token.Codecが実装する。
type TokenVerifier interface {
	Verify(raw string) (string, error)
}

// RoleFetcher はユーザーのロールを1件取得する。
// 該当ユーザーが存在しない場合はfound=falseを返す。
type RoleFetcher interface {
	FetchRole(ctx context.Context, userID string) (role string, found bool, err error)
}

// AuthObserver は認証ガードの結果を記録する。nilの場合は記録しない。
type AuthObserver interface {
	ObserveAuth(outcome string)
}

// Authenticate はリクエストヘッダからBearerトークンを取り出して検証する。
// ヘッダ欠如・非ASCII・プレフィックス不一致・検証失敗はすべて同一のAuthErrorになる。
func Authenticate(h http.Header, verifier TokenVerifier) (model.Principal, error) {
	values := h.Values("Authorization")
	if len(values) == 0 {
		return model.Principal{}, model.NewAuthError()
	}
	header := values[0]
	if !isVisibleASCII(header) {
		return model.Principal{}, model.NewAuthError()
	}

	raw, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok {
		return model.Principal{}, model.NewAuthError()
	}

	userID, err := verifier.Verify(raw)
	if err != nil {
		return model.Principal{}, model.NewAuthError()
	}
	return model.Principal{UserID: userID}, nil
}

// Elevate は認証済みの主体に対してロールを1回だけ参照し、管理者であれば昇格した主体を返す。
// 参照エラーはInternalError、該当なし・admin以外はAuthErrorになる。
func Elevate(ctx context.Context, p model.Principal, fetcher RoleFetcher) (model.Principal, error) {
	role, found, err := fetcher.FetchRole(ctx, p.UserID)
	if err != nil {
		return model.Principal{}, model.NewInternalError(fmt.Errorf("failed to fetch role: %w", err))
	}
	if !found || role != model.RoleAdmin {
		return model.Principal{}, model.NewAuthError()
	}
	return model.Principal{UserID: p.UserID, Admin: true}, nil
}

// NewIdentityGuard はBearerトークンで認証するミドルウェアを返す。
// 認証済み主体をリクエストコンテキストに注入し、失敗時は401を返す。
func NewIdentityGuard(verifier TokenVerifier, observer AuthObserver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := Authenticate(r.Header, verifier)
			if err != nil {
				rejectRequest(w, r, observer, err)
				return
			}

			observe(observer, AuthOutcomeAuthenticated)
			annotateUserID(r.Context(), principal.UserID)
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

// NewRoleGuard は認証に加えて管理者ロールを要求するミドルウェアを返す。
// ロールはリクエストごとに参照し、キャッシュしない。
func NewRoleGuard(verifier TokenVerifier, fetcher RoleFetcher, observer AuthObserver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := Authenticate(r.Header, verifier)
			if err != nil {
				rejectRequest(w, r, observer, err)
				return
			}

			elevated, err := Elevate(r.Context(), principal, fetcher)
			if err != nil {
				rejectRequest(w, r, observer, err)
				return
			}

			observe(observer, AuthOutcomeElevated)
			annotateUserID(r.Context(), elevated.UserID)
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), elevated)))
		})
	}
}

// PrincipalFromContext はリクエストコンテキストから認証主体を取得する。
func PrincipalFromContext(ctx context.Context) (model.Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(model.Principal)
	if !ok || p.UserID == "" {
		return model.Principal{}, false
	}
	return p, true
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// 認証ガードを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return "", fmt.Errorf("user ID not found in context")
	}
	return p.UserID, nil
}

// ContextWithPrincipal はコンテキストに認証主体を注入する。
func ContextWithPrincipal(ctx context.Context, p model.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// ContextWithUserID はコンテキストに一般ユーザーとしての主体を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return ContextWithPrincipal(ctx, model.Principal{UserID: userID})
}

func rejectRequest(w http.ResponseWriter, r *http.Request, observer AuthObserver, err error) {
	apiErr, ok := model.AsAPIError(err)
	if !ok {
		apiErr = model.NewInternalError(err)
	}

	if apiErr.Kind == model.KindInternal {
		observe(observer, AuthOutcomeInternalError)
		slog.Error("authorization failed",
			slog.String("path", r.URL.Path),
			slog.String("request_id", RequestIDFromContext(r.Context())),
			slog.String("error", apiErr.Error()),
		)
	} else {
		observe(observer, AuthOutcomeRejected)
		slog.Warn("authentication rejected",
			slog.String("path", r.URL.Path),
			slog.String("request_id", RequestIDFromContext(r.Context())),
		)
	}
	WriteAPIError(w, apiErr)
}

func observe(observer AuthObserver, outcome string) {
	if observer != nil {
		observer.ObserveAuth(outcome)
	}
}

// isVisibleASCII はヘッダ値が可視ASCII文字（およびタブ）のみで構成されているかを返す。
func isVisibleASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b == '\t' {
			continue
		}
		if b < 0x20 || b > 0x7e {
			return false
		}
	}
	return true
}
