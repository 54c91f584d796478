package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/letterbox/internal/model"
)

// ErrInvalidToken はトークンの署名不一致・期限切れ・形式不正を表す。
// 拒否理由は呼び出し元に区別させない。
var ErrInvalidToken = errors.New("invalid token")

// tokenClaims は識別トークンのクレーム構造。
// 標準クレーム（sub, iat, exp）に表示名とメールアドレスを加える。
type tokenClaims struct {
	jwt.RegisteredClaims
	Name  string `json:"name"`
	Email string `json:"email"`
}

// TokenCodec は署名付き識別トークンの発行と検証を行う。
// トークンはHS256で署名され、サーバー側には保存しない。
// 署名鍵を変更すると発行済みの全トークンが無効になる。
type TokenCodec struct {
	secret []byte
	maxAge time.Duration
}

// NewTokenCodec はTokenCodecを生成する。
// maxAgeは発行するトークンの有効期間。
func NewTokenCodec(secret string, maxAge time.Duration) *TokenCodec {
	return &TokenCodec{
		secret: []byte(secret),
		maxAge: maxAge,
	}
}

// Issue はアイデンティティから署名付きトークンを発行する。
// 有効期限は発行時刻からmaxAge後に固定される。
func (c *TokenCodec) Issue(identity *model.Identity) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.maxAge)),
		},
		Name:  identity.Name,
		Email: identity.Email,
	})

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Verify はトークンを検証し、アイデンティティを復元する。
// 署名不一致または期限切れの場合はErrInvalidTokenを返す。
// 期限切れに猶予期間はない。
func (c *TokenCodec) Verify(tokenString string) (*model.Identity, error) {
	claims := &tokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	return &model.Identity{
		ID:    claims.Subject,
		Name:  claims.Name,
		Email: claims.Email,
	}, nil
}

// MaxAge はトークンの有効期間を返す。Cookieの有効期間設定に使用する。
func (c *TokenCodec) MaxAge() time.Duration {
	return c.maxAge
}
