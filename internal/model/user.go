// Package model はドメインモデルを定義する。
package model

// Identity は検証済みのユーザーアイデンティティを表す。
// Google OAuthのコールバックで取得し、署名付きトークンのクレームとして
// クライアントと往復する。サーバー側には保存しない（ステートレス）。
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
