// Package letter はレター管理のドメインロジックを提供する。
// ローカルストアのCRUDとGoogle Drive連携の組み合わせを担う。
package letter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/letterbox/internal/model"
	"github.com/hitoshi/letterbox/internal/repository"
	"github.com/hitoshi/letterbox/internal/security"
)

// DriveClient はDrive連携に必要なクライアントインターフェース。
type DriveClient interface {
	Upload(ctx context.Context, title, content string) (*model.DriveFile, error)
	List(ctx context.Context) ([]*model.DriveFile, error)
	Delete(ctx context.Context, fileID string) error
}

// MetricsRecorder はDrive操作のメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordDriveOp(op string, success bool)
	RecordDriveLatency(op string, duration time.Duration)
}

// Service はレター管理のサービス層。
// 本文はサニタイズしてから永続化する。
// Driveへのアップロードはローカルストアへの書き戻しを行わない:
// アップロード後のレターとDrive上の複製は独立しており、
// ローカルの編集・削除はDrive側に伝播しない（逆も同様）。
type Service struct {
	repo      repository.LetterRepository
	sanitizer security.ContentSanitizerService
	drive     DriveClient
	metrics   MetricsRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
// metricsはnil可（テスト用）。
func NewService(
	repo repository.LetterRepository,
	sanitizer security.ContentSanitizerService,
	drive DriveClient,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		drive:     drive,
		metrics:   metrics,
	}
}

// List は全レターを挿入順で返す。
func (s *Service) List(ctx context.Context) ([]*model.Letter, error) {
	letters, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list letters: %w", err)
	}
	return letters, nil
}

// Create はレターを下書きとして保存する。
// タイトルは必須。本文はサニタイズしてから保存する。
func (s *Service) Create(ctx context.Context, title, content string) (*model.Letter, error) {
	if strings.TrimSpace(title) == "" {
		return nil, model.NewInvalidRequestError("タイトルが空です")
	}

	letter, err := s.repo.Create(ctx, title, s.sanitizer.Sanitize(content))
	if err != nil {
		return nil, fmt.Errorf("failed to create letter: %w", err)
	}

	slog.Info("letter created",
		slog.String("letter_id", letter.ID.Hex()),
	)

	return letter, nil
}

// Update は指定IDのレターのタイトルと本文を上書きする。
// 同一入力での再適用は同一の最終状態になる（冪等）。
// 見つからない場合はnilを返す（ハンドラーが404に変換する）。
func (s *Service) Update(ctx context.Context, id, title, content string) (*model.Letter, error) {
	if strings.TrimSpace(title) == "" {
		return nil, model.NewInvalidRequestError("タイトルが空です")
	}

	letter, err := s.repo.Update(ctx, id, title, s.sanitizer.Sanitize(content))
	if err != nil {
		return nil, fmt.Errorf("failed to update letter: %w", err)
	}

	return letter, nil
}

// Delete は指定IDのレターをローカルストアから削除する。
// 存在しないIDへの削除も成功として扱う（冪等削除）。
// Drive上の複製が存在しても削除しない。
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete letter: %w", err)
	}

	slog.Info("letter deleted", slog.String("letter_id", id))
	return nil
}

// UploadToDrive は保存済みレターをGoogle Driveにアップロードする。
// ストアに保存されているタイトルと本文をそのまま送信する。
// レターが存在しない場合はLETTER_NOT_FOUNDエラーを返す。
// アップロード成功後もローカルのレターレコードは変更しない。
func (s *Service) UploadToDrive(ctx context.Context, id string) (*model.DriveFile, error) {
	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find letter: %w", err)
	}
	if l == nil {
		return nil, model.NewLetterNotFoundError(id)
	}

	start := time.Now()
	file, err := s.drive.Upload(ctx, l.Title, l.Content)
	s.recordDriveOp("upload", start, err)
	if err != nil {
		slog.Error("failed to upload letter to drive",
			slog.String("letter_id", id),
			slog.String("error", err.Error()),
		)
		return nil, model.NewDriveUploadFailedError()
	}

	slog.Info("letter uploaded to drive",
		slog.String("letter_id", id),
		slog.String("drive_file_id", file.ID),
	)

	return file, nil
}

// ListDriveLetters はDrive上に保存されたレター一覧を返す。
func (s *Service) ListDriveLetters(ctx context.Context) ([]*model.DriveFile, error) {
	start := time.Now()
	files, err := s.drive.List(ctx)
	s.recordDriveOp("list", start, err)
	if err != nil {
		slog.Error("failed to list drive letters",
			slog.String("error", err.Error()),
		)
		return nil, model.NewDriveListFailedError()
	}
	return files, nil
}

// DeleteDriveLetter は指定されたファイルIDのレターをDriveから削除する。
// ローカルストアのレターレコードは対象にしない。
func (s *Service) DeleteDriveLetter(ctx context.Context, fileID string) error {
	start := time.Now()
	err := s.drive.Delete(ctx, fileID)
	s.recordDriveOp("delete", start, err)
	if err != nil {
		slog.Error("failed to delete drive letter",
			slog.String("drive_file_id", fileID),
			slog.String("error", err.Error()),
		)
		return model.NewDriveDeleteFailedError(fileID)
	}

	slog.Info("letter deleted from drive", slog.String("drive_file_id", fileID))
	return nil
}

// recordDriveOp はDrive操作の成否とレイテンシをメトリクスに記録する。
func (s *Service) recordDriveOp(op string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordDriveOp(op, err == nil)
	s.metrics.RecordDriveLatency(op, time.Since(start))
}
