// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, letter, drive, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeLetterNotFound    = "LETTER_NOT_FOUND"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeDriveUploadFailed = "DRIVE_UPLOAD_FAILED"
	ErrCodeDriveListFailed   = "DRIVE_LIST_FAILED"
	ErrCodeDriveDeleteFailed = "DRIVE_DELETE_FAILED"
)

// NewUnauthorizedError は認証エラーを生成する。
// トークン未提示・署名不一致・期限切れを区別しない固定メッセージを返す。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewLetterNotFoundError はレター未検出エラーを生成する。
func NewLetterNotFoundError(letterID string) *APIError {
	return &APIError{
		Code:     ErrCodeLetterNotFound,
		Message:  fmt.Sprintf("指定されたレターが見つかりません: %s", letterID),
		Category: "letter",
		Action:   "レターIDを確認してください。",
	}
}

// NewInvalidRequestError はリクエスト内容が不正な場合のエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエスト内容が不正です: %s", reason),
		Category: "validation",
		Action:   "タイトルと本文を入力してください。",
	}
}

// NewDriveUploadFailedError はGoogle Driveへのアップロード失敗エラーを生成する。
// 失敗の詳細（認可切れ、クォータ、ネットワーク）はログにのみ記録する。
func NewDriveUploadFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeDriveUploadFailed,
		Message:  "Google Driveへのアップロードに失敗しました。",
		Category: "drive",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewDriveListFailedError はGoogle Driveの一覧取得失敗エラーを生成する。
func NewDriveListFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeDriveListFailed,
		Message:  "Google Driveのレター一覧の取得に失敗しました。",
		Category: "drive",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewDriveDeleteFailedError はGoogle Driveからの削除失敗エラーを生成する。
func NewDriveDeleteFailedError(fileID string) *APIError {
	return &APIError{
		Code:     ErrCodeDriveDeleteFailed,
		Message:  fmt.Sprintf("Google Driveからのレター削除に失敗しました: %s", fileID),
		Category: "drive",
		Action:   "ファイルIDを確認し、しばらく待ってから再度お試しください。",
	}
}
