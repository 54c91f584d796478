package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/letterbox/internal/model"
)

// LetterServiceInterface はレターハンドラーが必要とするサービスインターフェース。
type LetterServiceInterface interface {
	List(ctx context.Context) ([]*model.Letter, error)
	Create(ctx context.Context, title, content string) (*model.Letter, error)
	Update(ctx context.Context, id, title, content string) (*model.Letter, error)
	Delete(ctx context.Context, id string) error
	UploadToDrive(ctx context.Context, id string) (*model.DriveFile, error)
	ListDriveLetters(ctx context.Context) ([]*model.DriveFile, error)
	DeleteDriveLetter(ctx context.Context, fileID string) error
}

// LetterMetrics はレター操作数の記録インターフェース。nil可。
type LetterMetrics interface {
	RecordLetterOp(op string)
}

// LetterHandler はレター管理のHTTPハンドラー。
// 各エンドポイントは必須フィールドの存在を検証し、サービスの1操作を呼び出して
// 結果をJSONとして直列化するだけの薄い合成層。
// ストアとDriveにまたがるトランザクションは行わない。
type LetterHandler struct {
	service LetterServiceInterface
	metrics LetterMetrics
}

// NewLetterHandler はLetterHandlerを生成する。
func NewLetterHandler(service LetterServiceInterface, metrics LetterMetrics) *LetterHandler {
	return &LetterHandler{
		service: service,
		metrics: metrics,
	}
}

// letterRequest はレター作成・更新リクエストのボディ。
type letterRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// List は全レターを返す。
// GET /api/letters
func (h *LetterHandler) List(w http.ResponseWriter, r *http.Request) {
	letters, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(letters)
}

// Create はレターを下書きとして保存する。
// POST /api/letters
func (h *LetterHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req letterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディを解析できません"))
		return
	}

	letter, err := h.service.Create(r.Context(), req.Title, req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.recordOp("create")
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "下書きを保存しました。",
		"letter":  letter,
	})
}

// Update はレターのタイトルと本文を上書きする。
// PUT /api/letters/{id}
func (h *LetterHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req letterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディを解析できません"))
		return
	}

	letter, err := h.service.Update(r.Context(), id, req.Title, req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if letter == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewLetterNotFoundError(id))
		return
	}

	h.recordOp("update")
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(letter)
}

// Delete はレターをローカルストアから削除する。
// 存在しないIDへの削除も成功を返す（冪等削除）。
// DELETE /api/letters/{id}
func (h *LetterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}

	h.recordOp("delete")
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "レターを削除しました。",
	})
}

// UploadToDrive は保存済みレターをGoogle Driveにアップロードする。
// POST /api/letters/upload-to-drive/{id}
func (h *LetterHandler) UploadToDrive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	file, err := h.service.UploadToDrive(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":         "レターをGoogle Driveにアップロードしました。",
		"googleDriveFile": file,
	})
}

// ListDriveLetters はDrive上に保存されたレター一覧を返す。
// GET /api/letters/google-drive-letters
func (h *LetterHandler) ListDriveLetters(w http.ResponseWriter, r *http.Request) {
	files, err := h.service.ListDriveLetters(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(files)
}

// DeleteDriveLetter は指定されたファイルIDのレターをDriveから削除する。
// DELETE /api/letters/google-drive-letters/{fileId}
func (h *LetterHandler) DeleteDriveLetter(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileId")

	if err := h.service.DeleteDriveLetter(r.Context(), fileID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "レターをGoogle Driveから削除しました。",
	})
}

// recordOp はレター操作数をメトリクスに記録する。
func (h *LetterHandler) recordOp(op string) {
	if h.metrics != nil {
		h.metrics.RecordLetterOp(op)
	}
}

// apiErrorResponse はAPIエラーレスポンスのボディ。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeAPIErrorResponse は統一エラーフォーマットでレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// mapAPIErrorToHTTPStatus はAPIエラーコードをHTTPステータスコードに変換する。
// 上流（ストア・Drive）の失敗はすべて500に丸め、根本原因はログにのみ残す。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeLetterNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// handleServiceError はサービス層のエラーをHTTPレスポンスに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}
