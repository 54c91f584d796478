// Package auth はOAuth認証フローと識別トークンの発行・検証を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/letterbox/internal/model"
)

// OAuthUserInfo はOAuthプロバイダーから取得した外部アイデンティティを表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// Service は認証に関するビジネスロジックを提供する。
// プロバイダーから受け取った外部アイデンティティを識別トークンに変換するのが
// 唯一の責務で、ユーザーレコードやセッションレコードは一切保存しない。
type Service struct {
	oauth OAuthProvider
	codec *TokenCodec
}

// NewService はServiceを生成する。
func NewService(oauth OAuthProvider, codec *TokenCodec) *Service {
	return &Service{
		oauth: oauth,
		codec: codec,
	}
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// HandleCallback はOAuthコールバックを処理し、識別トークンを発行する。
// プロバイダーのコード交換が失敗した場合はトークンを発行せずエラーを返す
// （認証状態はanonymousに戻る）。
func (s *Service) HandleCallback(ctx context.Context, code string) (string, *model.Identity, error) {
	userInfo, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return "", nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	identity := &model.Identity{
		ID:    userInfo.ProviderUserID,
		Name:  userInfo.Name,
		Email: userInfo.Email,
	}

	token, err := s.codec.Issue(identity)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("user logged in",
		slog.String("user_id", identity.ID),
		slog.String("email", identity.Email),
	)

	return token, identity, nil
}

// VerifyToken はトークンを検証し、アイデンティティを復元する。
func (s *Service) VerifyToken(token string) (*model.Identity, error) {
	return s.codec.Verify(token)
}

// TokenMaxAgeSeconds は発行するトークンの有効期間（秒）を返す。
func (s *Service) TokenMaxAgeSeconds() int {
	return int(s.codec.MaxAge().Seconds())
}
