// Package drive はGoogle Drive連携機能を提供する。
// リフレッシュトークンによるアクセストークンの取得と、
// レターのアップロード・一覧取得・削除のREST API呼び出しを含む。
package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/letterbox/internal/model"
)

const (
	defaultTokenURL  = "https://oauth2.googleapis.com/token"
	defaultFilesURL  = "https://www.googleapis.com/drive/v3/files"
	defaultUploadURL = "https://www.googleapis.com/upload/drive/v3/files"

	// docMimeType はDrive上でレターを表すGoogleドキュメントのMIMEタイプ。
	docMimeType = "application/vnd.google-apps.document"

	// tokenExpirySkew はアクセストークンを期限より早めに失効扱いにする余裕時間。
	tokenExpirySkew = 30 * time.Second
)

// Config はDriveクライアントの設定。
// 認可はプロセス起動時に外部供給されるリフレッシュトークンで行う。
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string

	// テスト用にオーバーライド可能なURL
	TokenURL  string
	FilesURL  string
	UploadURL string
}

// Client はGoogle Drive APIのクライアント。
// アクセストークンは期限までプロセス内にキャッシュし、期限切れ時に
// リフレッシュトークンで再取得する。複数リクエストから並行に使用できる。
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient はClientの新しいインスタンスを生成する。
// loggerがnilの場合はslog.Default()を使用する。
func NewClient(config Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if config.TokenURL == "" {
		config.TokenURL = defaultTokenURL
	}
	if config.FilesURL == "" {
		config.FilesURL = defaultFilesURL
	}
	if config.UploadURL == "" {
		config.UploadURL = defaultUploadURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Upload はレターをGoogleドキュメントとしてDriveにアップロードする。
// 本文は最小限のHTMLドキュメントにラップしてtext/htmlとして送信し、
// Drive側でGoogleドキュメントに変換される。
// 返されるファイルIDはDrive側が採番する不透明なIDで、ローカルのレターIDとは無関係。
// プロバイダーエラー（認可切れ、クォータ、ネットワーク）時はリトライせずエラーを返す。
func (c *Client) Upload(ctx context.Context, title, content string) (*model.DriveFile, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain access token: %w", err)
	}

	body, contentType, err := buildUploadBody(title, content)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload body: %w", err)
	}

	reqURL := c.config.UploadURL + "?uploadType=multipart&fields=id,name,webViewLink"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("drive upload request failed",
			slog.String("error", err.Error()),
			slog.String("title", title),
		)
		return nil, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("drive upload returned error status",
			slog.Int("http_status", resp.StatusCode),
			slog.String("title", title),
		)
		return nil, fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	file := &model.DriveFile{}
	if err := json.Unmarshal(respBody, file); err != nil {
		return nil, fmt.Errorf("failed to parse upload response: %w", err)
	}
	if file.ID == "" {
		return nil, fmt.Errorf("empty file id in upload response")
	}

	return file, nil
}

// List はDrive上の全Googleドキュメントを取得する。
// フィールドはid, name, webViewLinkのみ要求する。
// ページネーションは追従せず、最初のページのみを返す。
func (c *Client) List(ctx context.Context) ([]*model.DriveFile, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain access token: %w", err)
	}

	q := url.Values{
		"q":      {fmt.Sprintf("mimeType='%s'", docMimeType)},
		"fields": {"files(id, name, webViewLink)"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.FilesURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create list request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("drive list request failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("list request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read list response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("drive list returned error status",
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("list failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Files []*model.DriveFile `json:"files"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse list response: %w", err)
	}

	if result.Files == nil {
		return []*model.DriveFile{}, nil
	}
	return result.Files, nil
}

// Delete は指定されたファイルIDのドキュメントをDriveから削除する。
// プロバイダーが拒否した場合（ID不存在、権限なし）はエラーを返す。
func (c *Client) Delete(ctx context.Context, fileID string) error {
	if fileID == "" {
		return fmt.Errorf("file ID is required")
	}

	token, err := c.token(ctx)
	if err != nil {
		return fmt.Errorf("failed to obtain access token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.config.FilesURL+"/"+url.PathEscape(fileID), nil)
	if err != nil {
		return fmt.Errorf("failed to create delete request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("drive delete request failed",
			slog.String("error", err.Error()),
			slog.String("file_id", fileID),
		)
		return fmt.Errorf("delete request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	// 成功時は204 No Contentを返す
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		c.logger.Error("drive delete returned error status",
			slog.Int("http_status", resp.StatusCode),
			slog.String("file_id", fileID),
		)
		return fmt.Errorf("delete failed with status %d", resp.StatusCode)
	}

	return nil
}

// tokenResponse はGoogleのトークンエンドポイントのレスポンス。
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// token は有効なアクセストークンを返す。
// キャッシュ済みトークンが有効期限内であればそれを返し、
// 期限切れの場合はリフレッシュトークンで再取得する。
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	data := url.Values{
		"client_id":     {c.config.ClientID},
		"client_secret": {c.config.ClientSecret},
		"refresh_token": {c.config.RefreshToken},
		"grant_type":    {"refresh_token"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token refresh failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("empty access token in response")
	}

	c.accessToken = tr.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tr.ExpiresIn)*time.Second - tokenExpirySkew)

	return c.accessToken, nil
}

// buildUploadBody はmultipart/related形式のアップロードボディを構築する。
// 1つ目のパートがファイルメタデータ（JSON）、2つ目のパートがHTML本文。
func buildUploadBody(title, content string) (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	// メタデータパート
	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	metaPart, err := w.CreatePart(metaHeader)
	if err != nil {
		return nil, "", err
	}
	meta := map[string]string{
		"name":     title,
		"mimeType": docMimeType,
	}
	if err := json.NewEncoder(metaPart).Encode(meta); err != nil {
		return nil, "", err
	}

	// メディアパート: 本文を最小限のHTMLドキュメントにラップする
	mediaHeader := textproto.MIMEHeader{}
	mediaHeader.Set("Content-Type", "text/html")
	mediaPart, err := w.CreatePart(mediaHeader)
	if err != nil {
		return nil, "", err
	}
	if _, err := fmt.Fprintf(mediaPart, "<html><body>%s</body></html>", content); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	contentType := "multipart/related; boundary=" + w.Boundary()
	return buf, contentType, nil
}
