package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/letterbox/internal/middleware"
)

// HealthChecker はヘルスチェックに必要なインターフェース。
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
// すべての依存はプロセス起動時に明示的に構築して注入する。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// レター
	LetterService LetterServiceInterface
	LetterMetrics LetterMetrics

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler
	StatusRecorder func(next http.Handler) http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Recovery → Logging → (StatusRecorder)
//	→ [/api/* のみ] Auth → RateLimit(General)
//
// 認証ルート（/auth/*）とヘルスチェックはAuthミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// 全ルートに効くアンビエントなミドルウェア
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.StatusRecorder != nil {
		r.Use(deps.StatusRecorder)
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	letterHandler := NewLetterHandler(deps.LetterService, deps.LetterMetrics)

	// --- 認証不要のルート ---

	// 認証ルート（OAuthフロー）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/google", authHandler.Login)
		r.Get("/google/callback", authHandler.Callback)
		r.Get("/user", authHandler.GetUser)
		r.Get("/logout", authHandler.Logout)
	})

	// ヘルスチェック
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.Ping(req.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	// Prometheusスクレイプ
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier))
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}

		r.Route("/api/letters", func(r chi.Router) {
			r.Get("/", letterHandler.List)
			r.Post("/", letterHandler.Create)

			// Drive連携（静的パスは{id}より先にマッチする）
			r.Get("/google-drive-letters", letterHandler.ListDriveLetters)
			r.Delete("/google-drive-letters/{fileId}", letterHandler.DeleteDriveLetter)

			// Driveアップロードはクォータ保護のため専用レート制限を追加
			if deps.RateLimiter != nil {
				r.With(deps.RateLimiter.DriveUploadMiddleware()).Post("/upload-to-drive/{id}", letterHandler.UploadToDrive)
			} else {
				r.Post("/upload-to-drive/{id}", letterHandler.UploadToDrive)
			}

			r.Put("/{id}", letterHandler.Update)
			r.Delete("/{id}", letterHandler.Delete)
		})
	})

	return r
}
