package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hitoshi/letterbox/internal/auth"
	"github.com/hitoshi/letterbox/internal/config"
	"github.com/hitoshi/letterbox/internal/database"
	"github.com/hitoshi/letterbox/internal/drive"
	"github.com/hitoshi/letterbox/internal/handler"
	"github.com/hitoshi/letterbox/internal/letter"
	"github.com/hitoshi/letterbox/internal/logger"
	"github.com/hitoshi/letterbox/internal/metrics"
	"github.com/hitoshi/letterbox/internal/middleware"
	"github.com/hitoshi/letterbox/internal/repository"
	"github.com/hitoshi/letterbox/internal/security"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	return runServe(cfg)
}

// mongoHealthChecker はMongoDBへの疎通確認でヘルスチェックを実装する。
type mongoHealthChecker struct {
	client *mongo.Client
}

// Ping はプライマリノードへの疎通を確認する。
func (h *mongoHealthChecker) Ping(ctx context.Context) error {
	return database.Ping(ctx, h.client)
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// ミドルウェアとDB接続の初期化順序はここで明示的に固定する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	client, err := database.Connect(context.Background(), cfg.MongoURI)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := database.Disconnect(context.Background(), client); err != nil {
			slog.Error("failed to disconnect from database", slog.String("error", err.Error()))
		}
	}()

	if err := database.Ping(context.Background(), client); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("database connection established")

	db := client.Database(cfg.MongoDatabase)

	// 2. リポジトリの初期化
	letterRepo := repository.NewMongoLetterRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. ドメインサービスの初期化
	// OAuth/Driveのクライアントはここで1回だけ構築して注入する。
	// ライフサイクルはプロセス起動から終了まで。
	oauthProvider := auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	}, &http.Client{Timeout: 10 * time.Second})

	tokenCodec := auth.NewTokenCodec(cfg.TokenSecret, time.Duration(cfg.TokenMaxAge)*time.Second)
	authService := auth.NewService(oauthProvider, tokenCodec)

	driveClient := drive.NewClient(drive.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RefreshToken: cfg.GoogleRefreshToken,
	}, &http.Client{Timeout: cfg.DriveTimeout}, slog.Default())

	sanitizer := security.NewContentSanitizer()
	letterService := letter.NewService(letterRepo, sanitizer, driveClient, collector)

	// 5. レート制限の初期化
	rateLimiterCfg := middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitDriveUpload)
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	// 6. ルーターの構築
	deps := &handler.RouterDeps{
		TokenVerifier:     authService,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            slog.Default(),

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			FrontendURL:  cfg.FrontendURL,
			CookieDomain: cfg.CookieDomain,
			CookieSecure: cfg.CookieSecure,
		},

		LetterService: letterService,
		LetterMetrics: collector,

		HealthChecker:  &mongoHealthChecker{client: client},
		MetricsHandler: metrics.Handler(registry),
		StatusRecorder: collector.Middleware(),
	}

	router := handler.NewRouter(deps)

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
