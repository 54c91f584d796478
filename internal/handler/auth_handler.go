// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/letterbox/internal/middleware"
	"github.com/hitoshi/letterbox/internal/model"
)

const oauthStateCookie = "oauth_state"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	GetLoginURL(state string) string
	HandleCallback(ctx context.Context, code string) (string, *model.Identity, error)
	VerifyToken(token string) (*model.Identity, error)
	TokenMaxAgeSeconds() int
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	FrontendURL  string
	CookieDomain string
	CookieSecure bool
}

// AuthHandler はOAuth認証関連のHTTPハンドラー。
// 識別トークンの受け渡しにはHTTP Only Cookieを使用する（Cookieトランスポート）。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// Login はGoogle OAuthフローを開始する。
// GET /auth/google
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	url := h.service.GetLoginURL(state)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// Callback はOAuthコールバックを処理する。
// 成功時は識別トークンをHTTP Only Cookieとして配送し、
// フロントエンドのリダイレクト先を含むJSONを返す。
// GET /auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	// 1. stateの検証（CSRF対策）
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value != state {
		slog.Warn("oauth state mismatch",
			slog.String("query_state", state),
		)
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("stateパラメータが一致しません"))
		return
	}

	// stateクッキーを削除
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 2. 認可コードの取得
	code := r.URL.Query().Get("code")
	if code == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("認可コードがありません"))
		return
	}

	// 3. 認証処理（プロバイダー失敗時はトークンを発行せずanonymousに戻る）
	token, identity, err := h.service.HandleCallback(r.Context(), code)
	if err != nil {
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		middleware.WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
			Code:     "AUTH_FAILED",
			Message:  "認証に失敗しました。",
			Category: "auth",
			Action:   "もう一度ログインをお試しください。",
		})
		return
	}

	// 4. 識別トークンCookieを設定（HTTP Only）
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookieName,
		Value:    token,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.service.TokenMaxAgeSeconds(),
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	slog.Info("login completed", slog.String("user_id", identity.ID))

	// 5. フロントエンドのリダイレクト先をJSONで返す
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":     true,
		"redirectUrl": h.config.FrontendURL + "/home",
	})
}

// GetUser は現在のログインユーザー情報を返す。
// トークンが欠落・不正・期限切れの場合は詳細を区別せず401を返す。
// GET /auth/user
func (h *AuthHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.TokenCookieName)
	if err != nil || cookie.Value == "" {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	identity, err := h.service.VerifyToken(cookie.Value)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"user": identity,
	})
}

// Logout は識別トークンCookieを破棄する。
// トークンはステートレスなため、サーバー側に破棄すべきセッションレコードは存在しない。
// GET /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "ログアウトしました。",
	})
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
