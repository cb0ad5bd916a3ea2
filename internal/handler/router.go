package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/aiclub/internal/middleware"
)

// Observer はルーター全体で共有するメトリクスの記録先。metrics.Collectorが実装する。
type Observer interface {
	middleware.HTTPStatusRecorder
	middleware.AuthObserver
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger             *slog.Logger
	Observer           Observer
	CORSAllowedOrigins []string
	TokenVerifier      middleware.TokenVerifier
	RoleFetcher        middleware.RoleFetcher

	// サービス
	AuthService      AuthServiceInterface
	UserService      UserServiceInterface
	ResourceService  ResourceServiceInterface
	ChallengeService ChallengeServiceInterface
	ContactService   ContactServiceInterface

	// インフラ
	DB             Pinger
	UploadMaxBytes int64
	// UploadDir はローカルストレージのルート。空の場合 /uploads は配信しない。
	UploadDir      string
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Logging → Recovery → SecurityHeaders → CORS
//
// 認証が必要なルートはIdentityGuard、/admin/* はRoleGuardの内側に置く。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	observer := deps.Observer

	r := chi.NewRouter()
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger, observer))
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigins))

	authHandler := NewAuthHandler(deps.AuthService)
	userHandler := NewUserHandler(deps.UserService, deps.UploadMaxBytes)
	resourceHandler := NewResourceHandler(deps.ResourceService, deps.UploadMaxBytes)
	challengeHandler := NewChallengeHandler(deps.ChallengeService)
	contactHandler := NewContactHandler(deps.ContactService)

	identityGuard := middleware.NewIdentityGuard(deps.TokenVerifier, observer)
	roleGuard := middleware.NewRoleGuard(deps.TokenVerifier, deps.RoleFetcher, observer)

	// --- 認証不要のルート ---
	if deps.DB != nil {
		r.Get("/health", NewHealthHandler(deps.DB))
	}
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
	if deps.UploadDir != "" {
		fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(deps.UploadDir)))
		r.Method(http.MethodGet, "/uploads/*", fs)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
		r.Get("/google", authHandler.GoogleLogin)
		r.Get("/google/callback", authHandler.GoogleCallback)

		r.With(identityGuard).Post("/complete-profile", authHandler.CompleteProfile)
	})

	r.Get("/leaderboards", userHandler.Leaderboards)
	r.Get("/resources", resourceHandler.List)
	r.Get("/resources/{id}", resourceHandler.Detail)
	r.Post("/contact", contactHandler.Submit)

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(identityGuard)

		r.Route("/challenges", func(r chi.Router) {
			r.Get("/current", challengeHandler.Current)
			r.Get("/leaderboard", userHandler.ChallengeLeaderboard)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/profile", userHandler.Profile)
			r.Put("/profile", userHandler.UpdateProfile)
			r.Post("/avatar", userHandler.UploadAvatar)
			r.Put("/password", userHandler.ChangePassword)
		})
	})

	// --- 管理者ルート ---
	r.Route("/admin", func(r chi.Router) {
		r.Use(roleGuard)

		r.Route("/resources", func(r chi.Router) {
			r.Get("/", resourceHandler.AdminList)
			r.Post("/", resourceHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", resourceHandler.AdminGet)
				r.Put("/", resourceHandler.Update)
				r.Delete("/", resourceHandler.Delete)
				r.Patch("/visibility", resourceHandler.SetVisibility)
			})
		})

		r.Route("/challenges", func(r chi.Router) {
			r.Get("/", challengeHandler.AdminList)
			r.Post("/", challengeHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", challengeHandler.AdminGet)
				r.Put("/", challengeHandler.Update)
				r.Delete("/", challengeHandler.Delete)
				r.Patch("/visibility", challengeHandler.SetVisibility)
			})
		})
	})

	return r
}
