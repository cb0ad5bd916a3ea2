// Package app はアプリケーションの初期化と起動モードごとの実行を提供する。
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/aiclub/internal/auth"
	"github.com/hitoshi/aiclub/internal/challenge"
	"github.com/hitoshi/aiclub/internal/config"
	"github.com/hitoshi/aiclub/internal/contact"
	"github.com/hitoshi/aiclub/internal/database"
	"github.com/hitoshi/aiclub/internal/handler"
	"github.com/hitoshi/aiclub/internal/logger"
	"github.com/hitoshi/aiclub/internal/metrics"
	"github.com/hitoshi/aiclub/internal/repository"
	"github.com/hitoshi/aiclub/internal/resource"
	"github.com/hitoshi/aiclub/internal/security"
	"github.com/hitoshi/aiclub/internal/storage"
	"github.com/hitoshi/aiclub/internal/token"
	"github.com/hitoshi/aiclub/internal/user"
	"github.com/hitoshi/aiclub/internal/worker"
)

const (
	dotEnvPath      = ".env"
	shutdownTimeout = 30 * time.Second
)

// Init はアプリケーションの初期化を行う。
// .envを読み込んでから環境変数でConfigを構築し、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. 設定読み込み前にログを使えるようにする
	logger.SetupDefault(w, slog.LevelInfo)

	if err := config.LoadDotEnv(dotEnvPath); err != nil {
		return nil, err
	}

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. LOG_LEVELを反映する
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))
	return cfg, nil
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL, cfg.DBMaxOpenConns)
	if err != nil {
		return nil, err
	}
	if err := database.Ping(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// newBlobStore は設定に応じたアップロード保存先を返す。
// ローカル保存の場合は /uploads で配信するディレクトリも返す。
func newBlobStore(ctx context.Context, cfg *config.Config) (storage.BlobStore, string, error) {
	if cfg.StorageBackend == config.StorageS3 {
		store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			PublicURL:       cfg.S3PublicURL,
		})
		if err != nil {
			return nil, "", err
		}
		return store, "", nil
	}

	store, err := storage.NewLocalStore(cfg.UploadDir)
	if err != nil {
		return nil, "", err
	}
	return store, store.Root(), nil
}

// NewHandler は全依存関係をワイヤリングしたHTTPハンドラーを返す。
// dbへの接続はリクエスト処理時まで発生しない。
func NewHandler(ctx context.Context, cfg *config.Config, db *sql.DB, reg *prometheus.Registry) (http.Handler, error) {
	collector := metrics.NewCollector(reg)

	// 1. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	statsRepo := repository.NewPostgresStatsRepo(db)
	resourceRepo := repository.NewPostgresResourceRepo(db)
	quoteRepo := repository.NewPostgresQuoteRepo(db)
	challengeRepo := repository.NewPostgresChallengeRepo(db)
	contactRepo := repository.NewPostgresContactRepo(db)

	// 2. トークンとストレージ
	codec, err := token.NewCodec(cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create token codec: %w", err)
	}
	blobs, uploadDir, err := newBlobStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// 3. ドメインサービスの初期化
	oauthProvider := auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	})
	authService := auth.NewService(oauthProvider, userRepo, codec, collector, auth.ServiceConfig{
		FrontendURL:        cfg.FrontendURL,
		BcryptCost:         cfg.BcryptCost,
		PhoneDefaultRegion: cfg.PhoneDefaultRegion,
	})
	userService := user.NewService(userRepo, statsRepo, blobs, collector, cfg.BcryptCost)
	resourceService := resource.NewService(resourceRepo, quoteRepo, blobs, collector)
	challengeService := challenge.NewService(challengeRepo, security.NewRichTextSanitizer())
	contactService := contact.NewService(contactRepo, security.NewPlainTextSanitizer())

	// 4. ルーターの構築
	return handler.NewRouter(&handler.RouterDeps{
		Logger:             slog.Default(),
		Observer:           collector,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		TokenVerifier:      codec,
		RoleFetcher:        userRepo,

		AuthService:      authService,
		UserService:      userService,
		ResourceService:  resourceService,
		ChallengeService: challengeService,
		ContactService:   contactService,

		DB:             db,
		UploadMaxBytes: cfg.UploadMaxBytes,
		UploadDir:      uploadDir,
		MetricsHandler: metrics.Handler(reg),
	}), nil
}

// runServe はAPIサーバーモードで起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	// 1. DB接続
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	// 2. ルーターの構築
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	router, err := NewHandler(ctx, cfg, db, reg)
	if err != nil {
		return err
	}

	// 3. HTTPサーバーの起動
	server := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// newScheduler はワーカーの定期ジョブを登録したスケジューラを返す。
func newScheduler(cfg *config.Config, db *sql.DB, observer worker.JobObserver, log *slog.Logger) (*worker.Scheduler, error) {
	userRepo := repository.NewPostgresUserRepo(db)
	contactService := contact.NewService(repository.NewPostgresContactRepo(db), security.NewPlainTextSanitizer())

	return worker.NewScheduler([]worker.Entry{
		{Schedule: cfg.RankSchedule, Job: worker.NewRankJob(userRepo, log)},
		{Schedule: cfg.CleanupSchedule, Job: worker.NewContactRetentionJob(contactService, log, cfg.ContactRetentionDays)},
	}, observer, log)
}

// runWorker はワーカーモードで起動する。
// 起動時に全ジョブを1回実行し、以降はスケジュールに従って実行する。
// ctxがキャンセルされると実行中のジョブの完了を待って終了する。
func runWorker(ctx context.Context, cfg *config.Config) error {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	collector := metrics.NewCollector(prometheus.NewRegistry())
	scheduler, err := newScheduler(cfg, db, collector, slog.Default())
	if err != nil {
		return err
	}

	slog.Info("worker starting",
		slog.String("rank_schedule", cfg.RankSchedule),
		slog.String("cleanup_schedule", cfg.CleanupSchedule),
		slog.Int("contact_retention_days", cfg.ContactRetentionDays),
	)

	scheduler.Start(ctx)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully", slog.Uint64("schema_version", uint64(version)))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(ctx context.Context, addr string) error {
	target := healthcheckURL(addr)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to build health check request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// healthcheckURL はサーバーの待ち受けアドレスからローカルの /health URLを組み立てる。
// ワイルドカードや空のホストはループバックに置き換える。
func healthcheckURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		host, port = "", addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port) + "/health"
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	if u.User != nil {
		u.User = url.User("***")
	}
	return u.Redacted()
}
