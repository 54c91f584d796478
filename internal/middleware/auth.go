// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hitoshi/letterbox/internal/model"
)

// TokenCookieName は識別トークンを保持するHTTP Only Cookieの名前。
const TokenCookieName = "token"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// identityContextKey はリクエストコンテキストに検証済みアイデンティティを格納するためのキー。
var identityContextKey = contextKey("identity")

// identityHolderKey はリクエストコンテキストにidentityHolderを格納するためのキー。
var identityHolderKey = contextKey("identityHolder")

// identityHolder はロギングミドルウェアがレスポンスフェーズで
// 認証済みアイデンティティを参照するための入れ物。
// 認証ミドルウェアはロギングより内側で実行され、コンテキストへの注入は
// 外側のミドルウェアから見えないため、共有の入れ物を経由して伝搬する。
type identityHolder struct {
	identity *model.Identity
}

// withIdentityHolder は空のidentityHolderをコンテキストに注入して返す。
func withIdentityHolder(ctx context.Context) (context.Context, *identityHolder) {
	h := &identityHolder{}
	return context.WithValue(ctx, identityHolderKey, h), h
}

// holderFromContext はコンテキストからidentityHolderを取得する。
// ロギングミドルウェアを経由していない場合はnilを返す。
func holderFromContext(ctx context.Context) *identityHolder {
	h, _ := ctx.Value(identityHolderKey).(*identityHolder)
	return h
}

// TokenVerifier はトークンの検証に必要なインターフェース。
// auth.Serviceの部分集合として定義する。
type TokenVerifier interface {
	VerifyToken(token string) (*model.Identity, error)
}

// NewAuthMiddleware はHTTP Only Cookieから識別トークンを読み取り、
// 署名と有効期限を検証するミドルウェアを返す。
// 検証済みアイデンティティをリクエストコンテキストに注入する。
// リクエストごとに導出されるアイデンティティは高々1つで、
// トークンが欠落・不正な場合は401 Unauthorizedを返す。
func NewAuthMiddleware(verifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Cookieからトークンを取得
			cookie, err := r.Cookie(TokenCookieName)
			if err != nil || cookie.Value == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			// 2. トークンの署名と有効期限を検証
			identity, err := verifier.VerifyToken(cookie.Value)
			if err != nil {
				// 失敗理由（署名不一致・期限切れ）はクライアントに返さない
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			// 3. 検証済みアイデンティティをコンテキストに注入
			// ロギングミドルウェアの入れ物があればそちらにも伝搬する
			if h := holderFromContext(r.Context()); h != nil {
				h.identity = identity
			}
			ctx := context.WithValue(r.Context(), identityContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext はリクエストコンテキストから検証済みアイデンティティを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func IdentityFromContext(ctx context.Context) (*model.Identity, error) {
	identity, ok := ctx.Value(identityContextKey).(*model.Identity)
	if !ok || identity == nil {
		return nil, fmt.Errorf("identity not found in context")
	}
	return identity, nil
}

// ContextWithIdentity はコンテキストにアイデンティティを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithIdentity(ctx context.Context, identity *model.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}
